package cli

import (
	"strconv"
	"strings"

	"taskflow-cli/internal/format"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/view"
)

// taskOut is the CLI shape of a task: the backend fields plus what the list shows.
type taskOut struct {
	model.Task
	Overdue bool     `json:"overdue"`
	Claimed bool     `json:"claimed,omitempty"`
	Badges  []string `json:"badges,omitempty"`
}

func tasksOut(rows []view.TaskRow) []taskOut {
	out := make([]taskOut, 0, len(rows))
	for _, r := range rows {
		out = append(out, taskOut{Task: r.Task, Overdue: r.Overdue, Claimed: r.Claimed, Badges: r.Badges})
	}
	return out
}

func taskTable(rows []view.TaskRow) format.TableData {
	t := format.TableData{Headers: append(append([]string{}, view.TaskColumns...), "Notes")}
	for _, r := range rows {
		t.Rows = append(t.Rows, append(append([]string{}, r.Cells...), strings.Join(r.Badges, ", ")))
	}
	return t
}

func serviceTable(rows []view.ServiceRow) format.TableData {
	t := format.TableData{Headers: []string{"ID", "Name", "Price", "Fee", "Charge", "Link", "Notes"}}
	for _, r := range rows {
		note := ""
		if r.Duplicate {
			note = "duplicate name"
		}
		sv := r.Service
		t.Rows = append(t.Rows, []string{strconv.Itoa(sv.ID), sv.Name, view.Money(sv.Price), view.Money(sv.Fee), view.Money(sv.Charge), sv.Link, note})
	}
	return t
}

func userTable(rows []view.UserRow) format.TableData {
	t := format.TableData{Headers: []string{"ID", "Username", "Role", "Email", "Tasks", "Open"}}
	for _, r := range rows {
		u := r.User
		t.Rows = append(t.Rows, []string{strconv.Itoa(u.ID), u.Username, string(u.Role), u.Email, strconv.Itoa(r.Tasks), strconv.Itoa(r.Open)})
	}
	return t
}

func reportTable(cards []view.ReportCard) format.TableData {
	withRevenue := false
	for _, c := range cards {
		if c.Revenue != nil {
			withRevenue = true
		}
	}
	t := format.TableData{Headers: []string{"Staff", "Total", "Completed", "Pending", "Overdue"}}
	if withRevenue {
		t.Headers = append(t.Headers, "Revenue")
	}
	for _, c := range cards {
		row := []string{c.Name, strconv.Itoa(c.Total), strconv.Itoa(c.Completed), strconv.Itoa(c.Pending), strconv.Itoa(c.Overdue)}
		if withRevenue {
			rev := ""
			if c.Revenue != nil {
				rev = view.Money(*c.Revenue)
			}
			row = append(row, rev)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func cardTable(cards []view.Card) format.TableData {
	t := format.TableData{Headers: []string{"Figure", "Value"}}
	for _, c := range cards {
		t.Rows = append(t.Rows, []string{c.Label, c.Value})
	}
	return t
}
