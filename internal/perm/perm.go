package perm

import (
	"fmt"
	"strings"

	"taskflow-cli/internal/model"
)

// Page identifies one top-level screen of the dashboard.
type Page string

const (
	PageDashboard  Page = "dashboard"
	PageTasks      Page = "tasks"
	PageStaff      Page = "staff"
	PageReports    Page = "reports"
	PageDatabase   Page = "database"
	PageStaffPanel Page = "staff-panel"
)

// Pages lists every page in navigation order.
var Pages = []Page{PageDashboard, PageTasks, PageStaff, PageReports, PageDatabase, PageStaffPanel}

func ParsePage(s string) (Page, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range Pages {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// Capabilities are UX hints derived from a role. The backend is the only authority;
// nothing here is a security boundary.
type Capabilities struct {
	Role           model.Role `json:"role"`
	SeeRevenue     bool       `json:"seeRevenue"`
	DeleteTasks    bool       `json:"deleteTasks"`
	EditAllFields  bool       `json:"editAllFields"`
	CreateUsers    bool       `json:"createUsers"`
	ListUsers      bool       `json:"listUsers"`
	EditServices   bool       `json:"editServices"`
	DeleteServices bool       `json:"deleteServices"`
	Pages          []Page     `json:"pages"`
}

// For returns the capability set for a role. Unknown roles get nothing.
//
// Rules:
//   - admin sees all sections and revenue figures.
//   - manager sees all sections but no revenue and cannot create staff.
//   - staff sees only tasks and the staff panel, no revenue, no task deletion.
func For(role model.Role) Capabilities {
	switch role {
	case model.RoleAdmin:
		return Capabilities{
			Role:           role,
			SeeRevenue:     true,
			DeleteTasks:    true,
			EditAllFields:  true,
			CreateUsers:    true,
			ListUsers:      true,
			EditServices:   true,
			DeleteServices: true,
			Pages:          append([]Page{}, Pages...),
		}
	case model.RoleManager:
		return Capabilities{
			Role:          role,
			EditAllFields: true,
			ListUsers:     true,
			EditServices:  true,
			Pages:         append([]Page{}, Pages...),
		}
	case model.RoleStaff:
		return Capabilities{
			Role:  role,
			Pages: []Page{PageTasks, PageStaffPanel},
		}
	}
	return Capabilities{Role: role}
}

func (c Capabilities) CanView(p Page) bool {
	for _, x := range c.Pages {
		if x == p {
			return true
		}
	}
	return false
}

// Landing is the page shown right after login.
func (c Capabilities) Landing() Page {
	if c.CanView(PageDashboard) {
		return PageDashboard
	}
	if c.CanView(PageStaffPanel) {
		return PageStaffPanel
	}
	if len(c.Pages) > 0 {
		return c.Pages[0]
	}
	return ""
}

// CanEditTask reports whether the session may open the edit form for a task.
//
// Admins and managers can edit any task. Staff can edit a task only when it is
// assigned to them or shared with them.
func CanEditTask(s *model.Session, t *model.Task) bool {
	if s == nil || t == nil || !s.Valid() {
		return false
	}
	if s.Role != model.RoleStaff {
		return For(s.Role).EditAllFields
	}
	user := strings.TrimSpace(s.Username)
	if strings.TrimSpace(t.AssignedTo) == user {
		return true
	}
	return t.IsSharedWith(user)
}

// NeedsEditReason reports whether saving an edit requires a free-text reason.
func NeedsEditReason(s *model.Session, t *model.Task) bool {
	return s != nil && t != nil && s.Role == model.RoleStaff && t.Edited
}

// Denied is returned when a role lacks a capability.
type Denied struct {
	Role   model.Role
	Action string
}

func (e Denied) Error() string {
	return fmt.Sprintf("permission denied: role %s cannot %s", emptyAs(string(e.Role), "(none)"), e.Action)
}

func emptyAs(s, d string) string {
	if strings.TrimSpace(s) == "" {
		return d
	}
	return s
}
