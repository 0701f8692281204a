// Package view turns controller state into render-ready rows and cards. Everything
// here is a pure function of its inputs; the TUI and CLI only format what it returns.
package view

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/perm"
	"taskflow-cli/internal/state"
	"taskflow-cli/internal/statusutil"
)

// TaskColumns are the headers of the task table, in display order.
var TaskColumns = []string{"Order", "Customer", "Contact", "Service", "Status", "Assigned", "Branch", "Paid", "Date"}

type TaskRow struct {
	Task  model.Task `json:"task"`
	Cells []string   `json:"cells"`
	// Badges are short markers rendered after the cells (edited, overdue, shared, claimed).
	Badges []string `json:"badges,omitempty"`
	// Text is everything the row shows; search matches against it.
	Text string `json:"-"`

	Overdue   bool `json:"overdue"`
	Claimed   bool `json:"claimed"`
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
	CanShare  bool `json:"canShare"`
}

// TaskRows renders the filtered cache and then applies the search term to the rendered text.
func TaskRows(c *state.Controller, now time.Time) []TaskRow {
	return Search(RowsFor(c, c.FilteredTasks(now), now), c.SearchTerm())
}

// RowsFor renders tasks as rows for the controller's session without filtering them.
func RowsFor(c *state.Controller, tasks []model.Task, now time.Time) []TaskRow {
	sess := c.Session()
	caps := c.Capabilities()
	rows := make([]TaskRow, 0, len(tasks))
	for i := range tasks {
		t := tasks[i]
		canEdit := perm.CanEditTask(sess, &t)
		r := TaskRow{
			Task:      t,
			Overdue:   statusutil.IsOverdue(t, now),
			Claimed:   c.TakenOver(t.ID),
			CanEdit:   canEdit,
			CanDelete: caps.DeleteTasks,
			CanShare:  canEdit,
		}
		r.Cells = []string{
			t.OrderNo,
			t.CustomerName,
			t.ContactNumber,
			t.ServiceType,
			string(t.Status),
			t.AssignedTo,
			t.Branch,
			Money(t.PaidAmount),
			taskDate(t),
		}
		if t.Edited {
			r.Badges = append(r.Badges, "edited")
		}
		if r.Overdue {
			r.Badges = append(r.Badges, "overdue")
		}
		if len(t.SharedWith) > 0 {
			r.Badges = append(r.Badges, "shared: "+strings.Join(t.SharedWith, ", "))
		}
		if r.Claimed {
			r.Badges = append(r.Badges, "claimed (local)")
		}
		r.Text = strings.Join(append(append([]string{}, r.Cells...), r.Badges...), " ")
		rows = append(rows, r)
	}
	return rows
}

// Search keeps rows whose visible text contains term, case-insensitively.
func Search(rows []TaskRow, term string) []TaskRow {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return rows
	}
	out := rows[:0:0]
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.Text), term) {
			out = append(out, r)
		}
	}
	return out
}

func taskDate(t model.Task) string {
	if s := strings.TrimSpace(t.TaskDate); s != "" {
		return s
	}
	if t.Timestamp.IsZero() {
		return ""
	}
	return t.Timestamp.Format("2006-01-02")
}

// Money formats an amount with two decimals.
func Money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

type ServiceRow struct {
	Service   model.Service `json:"service"`
	Duplicate bool          `json:"duplicate"`
	CanEdit   bool          `json:"canEdit"`
	CanDelete bool          `json:"canDelete"`
}

func ServiceRows(c *state.Controller) []ServiceRow {
	dups := c.DuplicateServiceIDs()
	caps := c.Capabilities()
	out := make([]ServiceRow, 0, len(c.Services()))
	for _, sv := range c.Services() {
		out = append(out, ServiceRow{
			Service:   sv,
			Duplicate: dups[sv.ID],
			CanEdit:   caps.EditServices,
			CanDelete: caps.DeleteServices,
		})
	}
	return out
}

// Card is one labelled figure.
type Card struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Performer struct {
	Name      string   `json:"name"`
	Completed int      `json:"completedTasks"`
	Score     string   `json:"score"`
	Revenue   *float64 `json:"revenue,omitempty"`
}

type DashboardView struct {
	Cards         []Card              `json:"cards"`
	TopPerformers []Performer         `json:"topPerformers"`
	Overdue       []model.OverdueTask `json:"overdue"`
}

// Dashboard builds the dashboard page. Revenue appears only when the role may see it.
func Dashboard(c *state.Controller) DashboardView {
	d := c.Dashboard()
	caps := c.Capabilities()
	v := DashboardView{
		Cards: []Card{
			{Label: "Total tasks", Value: strconv.Itoa(d.Stats.TotalTasks)},
			{Label: "Today", Value: strconv.Itoa(d.Stats.TasksToday)},
			{Label: "Completed", Value: strconv.Itoa(d.Stats.CompletedTasks)},
			{Label: "Overdue", Value: strconv.Itoa(d.Stats.OverdueTasks)},
		},
		Overdue: d.Overdue,
	}
	if caps.SeeRevenue {
		v.Cards = append(v.Cards, Card{Label: "Revenue", Value: Money(d.Stats.TotalRevenue)})
	}
	for _, p := range d.TopPerformers {
		row := Performer{Name: p.Name, Completed: p.CompletedTasks, Score: strconv.FormatFloat(p.Score, 'f', 1, 64)}
		if caps.SeeRevenue {
			rev := p.TotalRevenue
			row.Revenue = &rev
		}
		v.TopPerformers = append(v.TopPerformers, row)
	}
	return v
}

type ReportCard struct {
	Name      string   `json:"name"`
	Total     int      `json:"totalTasks"`
	Completed int      `json:"completedTasks"`
	Pending   int      `json:"pendingTasks"`
	Overdue   int      `json:"overdueTasks"`
	Revenue   *float64 `json:"revenue,omitempty"`
}

func Reports(c *state.Controller, now time.Time) []ReportCard {
	showRevenue := c.Capabilities().SeeRevenue
	var out []ReportCard
	for _, r := range c.Reports(now) {
		card := ReportCard{Name: r.Name, Total: r.Total, Completed: r.Completed, Pending: r.Pending, Overdue: r.Overdue}
		if showRevenue {
			rev := r.Revenue
			card.Revenue = &rev
		}
		out = append(out, card)
	}
	return out
}

type StaffPanelView struct {
	User  string           `json:"user"`
	Cards []Card           `json:"cards"`
	Rows  []TaskRow        `json:"tasks"`
	Panel state.StaffPanel `json:"counts"`
}

func StaffPanel(c *state.Controller, now time.Time) StaffPanelView {
	p := c.StaffPanel()
	v := StaffPanelView{
		Panel: p,
		Cards: []Card{
			{Label: "Total tasks", Value: strconv.Itoa(p.Total)},
			{Label: "Pending", Value: strconv.Itoa(p.Pending)},
			{Label: "My tasks", Value: strconv.Itoa(p.Mine)},
			{Label: "Extra (claimed)", Value: strconv.Itoa(p.Extra)},
		},
		Rows: RowsFor(c, c.MyTasks(), now),
	}
	if s := c.Session(); s != nil {
		v.User = s.Username
	}
	return v
}

type UserRow struct {
	User  model.User `json:"user"`
	Tasks int        `json:"tasks"`
	Open  int        `json:"openTasks"`
}

// Users lists users with the number of cached tasks assigned to each.
func Users(c *state.Controller) []UserRow {
	total := map[string]int{}
	open := map[string]int{}
	for _, t := range c.Tasks() {
		total[t.AssignedTo]++
		if !statusutil.IsEndState(t.Status) {
			open[t.AssignedTo]++
		}
	}
	out := make([]UserRow, 0, len(c.Users()))
	for _, u := range c.Users() {
		out = append(out, UserRow{User: u, Tasks: total[u.Username], Open: open[u.Username]})
	}
	return out
}

// NavItem is one entry of the page switcher.
type NavItem struct {
	Page   perm.Page `json:"page"`
	Label  string    `json:"label"`
	Key    string    `json:"key"`
	Active bool      `json:"active"`
}

var pageLabels = map[perm.Page]string{
	perm.PageDashboard:  "Dashboard",
	perm.PageTasks:      "Tasks",
	perm.PageStaff:      "Staff",
	perm.PageReports:    "Reports",
	perm.PageDatabase:   "Services",
	perm.PageStaffPanel: "My panel",
}

func PageLabel(p perm.Page) string {
	if l, ok := pageLabels[p]; ok {
		return l
	}
	return string(p)
}

// Nav lists the pages the role may open, numbered 1..n.
func Nav(c *state.Controller) []NavItem {
	var out []NavItem
	for i, p := range c.Capabilities().Pages {
		out = append(out, NavItem{Page: p, Label: PageLabel(p), Key: strconv.Itoa(i + 1), Active: p == c.Page()})
	}
	return out
}

// FilterSummary describes the active filters, or "" when none restrict the list.
func FilterSummary(f model.Filter) string {
	var parts []string
	add := func(name, v string) {
		if !model.IsAll(v) {
			parts = append(parts, fmt.Sprintf("%s=%s", name, v))
		}
	}
	add("date", f.Date)
	add("branch", f.Branch)
	add("staff", f.Staff)
	add("status", f.Status)
	add("service", f.Service)
	return strings.Join(parts, " ")
}
