package statusutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow-cli/internal/model"
)

func TestIsOverdue_24HourBoundary(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		status model.Status
		age    time.Duration
		want   bool
	}{
		{"pending 25h", model.StatusPending, 25 * time.Hour, true},
		{"pending 23h", model.StatusPending, 23 * time.Hour, false},
		{"in progress 48h", model.StatusInProgress, 48 * time.Hour, true},
		{"hold 30h", model.StatusHold, 30 * time.Hour, true},
		{"received 72h", model.StatusReceived, 72 * time.Hour, false},
		{"completed 72h", model.StatusCompleted, 72 * time.Hour, false},
		{"cancelled 72h", model.StatusCancelled, 72 * time.Hour, false},
		{"exactly 24h", model.StatusPending, 24 * time.Hour, false},
	}
	for _, tc := range tests {
		task := model.Task{Status: tc.status, Timestamp: model.At(now.Add(-tc.age))}
		assert.Equal(t, tc.want, IsOverdue(task, now), tc.name)
	}
}

func TestIsOverdue_ZeroTimestampNeverOverdue(t *testing.T) {
	t.Parallel()

	task := model.Task{Status: model.StatusPending}
	assert.False(t, IsOverdue(task, time.Now()), "task without timestamp must not be overdue")
}

func TestHoursOverdue(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	task := model.Task{Status: model.StatusHold, Timestamp: model.At(now.Add(-50*time.Hour - 10*time.Minute))}
	assert.Equal(t, 50, HoursOverdue(task, now))
	task.Status = model.StatusCompleted
	assert.Zero(t, HoursOverdue(task, now))
}

func TestNormalizeStatus(t *testing.T) {
	t.Parallel()

	tests := map[string]model.Status{
		"pending":     model.StatusPending,
		"In Progress": model.StatusInProgress,
		"in-progress": model.StatusInProgress,
		"in_progress": model.StatusInProgress,
		"HOLD":        model.StatusHold,
		" completed ": model.StatusCompleted,
	}
	for in, want := range tests {
		got, err := NormalizeStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := NormalizeStatus("")
	assert.Error(t, err, "empty status")
	_, err = NormalizeStatus("archived")
	assert.Error(t, err, "unknown status")
}
