package state

import (
	"sort"
	"strconv"
	"strings"

	"taskflow-cli/internal/model"
)

// StaffPanel holds the self-service counters for the signed-in user.
type StaffPanel struct {
	Total   int `json:"totalTasks"`
	Pending int `json:"pendingTasks"`
	Mine    int `json:"myTasks"`
	Extra   int `json:"extraTasks"`
}

func (c *Controller) StaffPanel() StaffPanel {
	var p StaffPanel
	if c.session == nil {
		return p
	}
	self := c.session.Username
	for _, t := range c.tasks {
		p.Total++
		if t.Status == model.StatusPending {
			p.Pending++
		}
		claimed := c.takenOver[t.ID]
		if t.AssignedTo == self || claimed {
			p.Mine++
		}
		if claimed {
			p.Extra++
		}
	}
	return p
}

// MyTasks lists tasks assigned to the current user or claimed by them, newest first.
func (c *Controller) MyTasks() []model.Task {
	if c.session == nil {
		return nil
	}
	var out []model.Task
	for _, t := range c.tasks {
		if t.AssignedTo == c.session.Username || c.takenOver[t.ID] {
			out = append(out, t)
		}
	}
	SortTasks(out)
	return out
}

// TakeOverTask records a local-only claim on another staff member's task. No request
// is sent. Claiming twice is a no-op.
func (c *Controller) TakeOverTask(id int) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	t := c.task(id)
	if t == nil {
		return errNotFound("task", strconv.Itoa(id))
	}
	if t.AssignedTo == c.session.Username {
		return invalid("task", t.OrderNo+" is already assigned to you")
	}
	if c.takenOver[id] {
		return nil
	}
	c.takenOver[id] = true
	c.rev++
	c.persistTakeovers()
	return nil
}

// ReleaseTask drops a local claim.
func (c *Controller) ReleaseTask(id int) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	if !c.takenOver[id] {
		return errNotFound("claim", strconv.Itoa(id))
	}
	delete(c.takenOver, id)
	c.rev++
	c.persistTakeovers()
	return nil
}

func (c *Controller) TakenOver(id int) bool { return c.takenOver[id] }

// TakenOverIDs lists claimed task ids in ascending order.
func (c *Controller) TakenOverIDs() []int {
	ids := make([]int, 0, len(c.takenOver))
	for id := range c.takenOver {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// StaffNames lists the names offered by staff pickers (assignee, share target, filter).
// It prefers the fetched user list and falls back to names seen on cached tasks.
func (c *Controller) StaffNames() []string {
	seen := map[string]bool{}
	var out []string
	add := func(n string) {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			return
		}
		seen[n] = true
		out = append(out, n)
	}
	for _, u := range c.users {
		if u.Role == model.RoleStaff {
			add(u.Username)
		}
	}
	if len(out) == 0 {
		for _, t := range c.tasks {
			add(t.AssignedTo)
			for _, n := range t.SharedWith {
				add(n)
			}
		}
		if c.session != nil && c.session.Role == model.RoleStaff {
			add(c.session.Username)
		}
	}
	sort.Strings(out)
	return out
}
