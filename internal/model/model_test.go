package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskUnmarshal_NormalizesSharedWith(t *testing.T) {
	t.Parallel()

	raw := `{"id":7,"order_no":"TF-007","assigned_to":"staff1","status":"Pending",
		"shared_with":["staff2","staff1","staff2"," ","staff3"],
		"created_at":"2024-05-01T10:00:00.123456"}`
	var task Task
	require.NoError(t, json.Unmarshal([]byte(raw), &task))
	assert.Equal(t, []string{"staff2", "staff3"}, task.SharedWith)
	assert.False(t, task.IsSharedWith("staff1"), "assignee must never appear in sharedWith")
	wantTS := time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC)
	assert.True(t, task.Timestamp.Equal(wantTS), "timestamp %s, want %s", task.Timestamp, wantTS)
}

func TestTimestamp_NullAndRFC3339(t *testing.T) {
	t.Parallel()

	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.True(t, ts.IsZero(), "expected zero time for null")
	require.NoError(t, json.Unmarshal([]byte(`"2024-05-01T10:00:00+02:00"`), &ts))
	assert.Equal(t, 8, ts.Hour())
	assert.Equal(t, time.UTC, ts.Location())
	assert.Error(t, json.Unmarshal([]byte(`"not a time"`), &ts))
}

func TestFilterQuery_OmitsAll(t *testing.T) {
	t.Parallel()

	f := DefaultFilter()
	require.False(t, f.Active(), "default filter must be inactive")
	f.Status = string(StatusPending)
	f.Branch = "SHOP-A"
	q := f.Query()
	assert.Len(t, q, 2)
	assert.Equal(t, "Pending", q["status"])
	assert.Equal(t, "SHOP-A", q["branch"])
}
