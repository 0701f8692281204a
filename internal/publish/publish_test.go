package publish

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/view"
)

func revenue(v float64) *float64 { return &v }

func TestReportsMarkdown_RevenueOnlyWhenPresent(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	r := Report{
		GeneratedAt: now,
		User:        "admin",
		Cards: []view.ReportCard{
			{Name: "staff1", Total: 3, Completed: 1, Pending: 1, Overdue: 1, Revenue: revenue(350)},
		},
		Overdue: []model.OverdueTask{
			{OrderNo: "TF-002", CustomerName: "Ann | Co", ServiceType: "Visa", Status: model.StatusPending, AssignedTo: "staff1", HoursOverdue: 26},
		},
	}
	md := ReportsMarkdown(r)
	for _, want := range []string{
		"# Staff reports",
		"- Generated: 2024-05-10T12:00:00Z",
		"| Staff | Total | Completed | Pending | Overdue | Revenue |",
		"| staff1 | 3 | 1 | 1 | 1 | 350.00 |",
		`| TF-002 | Ann \| Co | Visa | Pending | staff1 | 26 |`,
	} {
		assert.Contains(t, md, want)
	}

	r.Cards[0].Revenue = nil
	r.Overdue = nil
	md = ReportsMarkdown(r)
	assert.NotContains(t, md, "Revenue", "revenue column leaked")
	assert.Contains(t, md, "_Nothing overdue._")
}

func TestTasksMarkdown_IncludesBadges(t *testing.T) {
	t.Parallel()

	rows := []view.TaskRow{{
		Cells:  []string{"TF-001", "Ann", "555", "Passport", "Pending", "staff1", "SHOP-A", "10.00", "2024-05-01"},
		Badges: []string{"edited", "overdue"},
	}}
	md := TasksMarkdown("", rows)
	assert.True(t, strings.HasPrefix(md, "# Tasks\n"), "default title missing:\n%s", md)
	assert.Contains(t, md, "| TF-001 | Ann | 555 | Passport | Pending | staff1 | SHOP-A | 10.00 | 2024-05-01 | edited; overdue |")
	assert.Contains(t, TasksMarkdown("Mine", nil), "_No tasks._")
}

func TestTaskMarkdown_Detail(t *testing.T) {
	t.Parallel()

	md := TaskMarkdown(model.Task{
		ID: 7, OrderNo: "TF-007", CustomerName: "Ann", Status: model.StatusHold,
		SharedWith: []string{"staff2"}, Edited: true, Description: "Needs **photo**.",
	}, true, false)
	for _, want := range []string{"# TF-007 Ann", "- Shared with: staff2", "- **Overdue**", "- Edited: no reason recorded", "## Description", "Needs **photo**."} {
		assert.Contains(t, md, want)
	}
}

func TestWriteReports_RefusesOverwrite(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	r := Report{GeneratedAt: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)}

	res, err := WriteReports(r, dir, WriteOptions{})
	require.NoError(t, err)
	require.Len(t, res.Written, 1)
	assert.Equal(t, "reports.md", filepath.Base(res.Written[0]))

	_, err = WriteReports(r, dir, WriteOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--overwrite")
	_, err = WriteReports(r, dir, WriteOptions{Overwrite: true})
	require.NoError(t, err)

	res, err = WriteReports(r, dir, WriteOptions{Stamp: true})
	require.NoError(t, err)
	assert.Equal(t, "reports-2024-05-10.md", filepath.Base(res.Written[0]))
	b, err := os.ReadFile(res.Written[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), "# Staff reports")

	_, err = WriteReports(r, "  ", WriteOptions{})
	assert.Error(t, err, "missing --to")
}

func TestWriteTasks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	res, err := WriteTasks("Tasks", nil, dir, time.Time{}, WriteOptions{Stamp: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.Written)
	assert.Equal(t, "tasks.md", filepath.Base(res.Written[0]), "zero time should not stamp")
}
