package state

import (
	"context"
	"sort"
	"time"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/perm"
	"taskflow-cli/internal/statusutil"
)

func (c *Controller) LoadDashboardOp() (Op, error) {
	if err := c.requireSession(); err != nil {
		return Op{}, err
	}
	if !c.caps.CanView(perm.PageDashboard) {
		return Op{}, perm.Denied{Role: c.session.Role, Action: "open dashboard"}
	}
	return c.op("load dashboard", nil, refreshDashboard), nil
}

// LoadDashboard fetches stats, top performers and the overdue list concurrently.
func (c *Controller) LoadDashboard(ctx context.Context) error {
	op, err := c.LoadDashboardOp()
	return c.run(ctx, op, err)
}

// StaffReport is one per-staff card on the reports page.
type StaffReport struct {
	Name      string  `json:"name"`
	Total     int     `json:"totalTasks"`
	Completed int     `json:"completedTasks"`
	Pending   int     `json:"pendingTasks"`
	Overdue   int     `json:"overdueTasks"`
	Revenue   float64 `json:"revenue"`
}

// Reports recomputes the per-staff cards from the task cache, grouped by assignee.
func (c *Controller) Reports(now time.Time) []StaffReport {
	byName := map[string]*StaffReport{}
	get := func(name string) *StaffReport {
		r, ok := byName[name]
		if !ok {
			r = &StaffReport{Name: name}
			byName[name] = r
		}
		return r
	}
	for _, n := range c.StaffNames() {
		get(n)
	}
	for _, t := range c.tasks {
		if t.AssignedTo == "" {
			continue
		}
		r := get(t.AssignedTo)
		r.Total++
		r.Revenue += t.PaidAmount
		switch {
		case t.Status == model.StatusCompleted:
			r.Completed++
		case !statusutil.IsEndState(t.Status):
			r.Pending++
		}
		if statusutil.IsOverdue(t, now) {
			r.Overdue++
		}
	}
	out := make([]StaffReport, 0, len(byName))
	for _, r := range byName {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
