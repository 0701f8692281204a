package publish

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/view"
)

// Report is the input of ReportsMarkdown. Revenue columns are emitted only when the
// cards carry revenue, so a staff or manager export never includes it.
type Report struct {
	GeneratedAt time.Time
	User        string
	Filters     string
	Cards       []view.ReportCard
	Overdue     []model.OverdueTask
}

func ReportsMarkdown(r Report) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# Staff reports")
	writeLn("")
	if !r.GeneratedAt.IsZero() {
		writeLn("- Generated: " + r.GeneratedAt.Format(time.RFC3339))
	}
	if u := strings.TrimSpace(r.User); u != "" {
		writeLn("- By: " + u)
	}
	if f := strings.TrimSpace(r.Filters); f != "" {
		writeLn("- Filters: " + f)
	}
	writeLn("")

	withRevenue := false
	for _, c := range r.Cards {
		if c.Revenue != nil {
			withRevenue = true
			break
		}
	}

	writeLn("## Per staff")
	writeLn("")
	if len(r.Cards) == 0 {
		writeLn("_No staff._")
	} else {
		head := []string{"Staff", "Total", "Completed", "Pending", "Overdue"}
		if withRevenue {
			head = append(head, "Revenue")
		}
		writeRow(writeLn, head)
		writeRule(writeLn, len(head))
		for _, c := range r.Cards {
			cells := []string{
				c.Name,
				strconv.Itoa(c.Total),
				strconv.Itoa(c.Completed),
				strconv.Itoa(c.Pending),
				strconv.Itoa(c.Overdue),
			}
			if withRevenue {
				rev := 0.0
				if c.Revenue != nil {
					rev = *c.Revenue
				}
				cells = append(cells, view.Money(rev))
			}
			writeRow(writeLn, cells)
		}
	}
	writeLn("")

	writeLn("## Overdue")
	writeLn("")
	if len(r.Overdue) == 0 {
		writeLn("_Nothing overdue._")
		return buf.String()
	}
	writeRow(writeLn, []string{"Order", "Customer", "Service", "Status", "Assigned", "Hours overdue"})
	writeRule(writeLn, 6)
	for _, o := range r.Overdue {
		writeRow(writeLn, []string{
			o.OrderNo,
			o.CustomerName,
			o.ServiceType,
			string(o.Status),
			o.AssignedTo,
			strconv.Itoa(o.HoursOverdue),
		})
	}
	return buf.String()
}

// TasksMarkdown renders task rows as a markdown table, badges included.
func TasksMarkdown(title string, rows []view.TaskRow) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Tasks"
	}
	writeLn("# " + title)
	writeLn("")
	if len(rows) == 0 {
		writeLn("_No tasks._")
		return buf.String()
	}
	head := append(append([]string{}, view.TaskColumns...), "Notes")
	writeRow(writeLn, head)
	writeRule(writeLn, len(head))
	for _, r := range rows {
		writeRow(writeLn, append(append([]string{}, r.Cells...), strings.Join(r.Badges, "; ")))
	}
	return buf.String()
}

// TaskMarkdown is the detail page of a single task.
func TaskMarkdown(t model.Task, overdue, claimed bool) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn(fmt.Sprintf("# %s %s", t.OrderNo, strings.TrimSpace(t.CustomerName)))
	writeLn("")
	writeLn("## Meta")
	writeLn("")
	writeLn("- ID: " + strconv.Itoa(t.ID))
	writeLn("- Status: " + string(t.Status))
	writeLn("- Service: " + t.ServiceType)
	writeLn("- Contact: " + t.ContactNumber)
	writeLn("- Assigned: " + t.AssignedTo)
	if len(t.SharedWith) > 0 {
		writeLn("- Shared with: " + strings.Join(t.SharedWith, ", "))
	}
	if b := strings.TrimSpace(t.Branch); b != "" {
		writeLn("- Branch: " + b)
	}
	if p := strings.TrimSpace(t.Paymode); p != "" {
		writeLn("- Paymode: " + p)
	}
	writeLn(fmt.Sprintf("- Price: %s, paid: %s, charge: %s", view.Money(t.ServicePrice), view.Money(t.PaidAmount), view.Money(t.ServiceCharge)))
	if !t.Timestamp.IsZero() {
		writeLn("- Created: " + t.Timestamp.Format("2006-01-02 15:04"))
	}
	if d := strings.TrimSpace(t.TaskDate); d != "" {
		writeLn("- Task date: " + d)
	}
	if overdue {
		writeLn("- **Overdue**")
	}
	if claimed {
		writeLn("- Claimed (local)")
	}
	if t.Edited {
		reason := strings.TrimSpace(t.EditReason)
		if reason == "" {
			reason = "no reason recorded"
		}
		writeLn("- Edited: " + reason)
	}

	if d := strings.TrimSpace(t.Description); d != "" {
		writeLn("")
		writeLn("## Description")
		writeLn("")
		writeLn(d)
	}
	return buf.String()
}

func writeRow(writeLn func(string), cells []string) {
	esc := make([]string, len(cells))
	for i, c := range cells {
		esc[i] = strings.ReplaceAll(strings.TrimSpace(c), "|", `\|`)
	}
	writeLn("| " + strings.Join(esc, " | ") + " |")
}

func writeRule(writeLn func(string), n int) {
	writeLn("|" + strings.Repeat(" --- |", n))
}
