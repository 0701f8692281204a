package perm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskflow-cli/internal/model"
)

func TestCanEditTask_StaffNeedsAssignmentOrShare(t *testing.T) {
	staff := &model.Session{ID: 3, Username: "staff1", Role: model.RoleStaff}

	task := &model.Task{ID: 1, AssignedTo: "staff2", SharedWith: []string{"staff3"}}
	assert.False(t, CanEditTask(staff, task), "staff1 blocked on a task assigned to staff2")

	task.SharedWith = append(task.SharedWith, "staff1")
	assert.True(t, CanEditTask(staff, task), "staff1 edits a task shared with them")

	task.SharedWith = nil
	task.AssignedTo = "staff1"
	assert.True(t, CanEditTask(staff, task), "staff1 edits their own task")
}

func TestCanEditTask_AdminAndManagerEditAnything(t *testing.T) {
	task := &model.Task{ID: 1, AssignedTo: "staff2"}
	for _, role := range []model.Role{model.RoleAdmin, model.RoleManager} {
		s := &model.Session{ID: 1, Username: string(role), Role: role}
		assert.True(t, CanEditTask(s, task), "%s edits any task", role)
	}
	assert.False(t, CanEditTask(nil, task), "nil session denied")
}

func TestFor_RoleGating(t *testing.T) {
	admin := For(model.RoleAdmin)
	manager := For(model.RoleManager)
	staff := For(model.RoleStaff)

	assert.True(t, admin.SeeRevenue)
	assert.False(t, manager.SeeRevenue)
	assert.False(t, staff.SeeRevenue)

	assert.True(t, admin.CreateUsers)
	assert.False(t, manager.CreateUsers)
	assert.False(t, staff.CreateUsers)

	assert.False(t, staff.DeleteTasks)
	for _, p := range Pages {
		assert.True(t, admin.CanView(p), "admin misses %s", p)
		assert.True(t, manager.CanView(p), "manager misses %s", p)
	}
	for _, p := range []Page{PageDatabase, PageDashboard, PageReports, PageStaff} {
		assert.False(t, staff.CanView(p), "staff sees %s", p)
	}
	assert.Equal(t, PageStaffPanel, staff.Landing())
	assert.Equal(t, PageDashboard, admin.Landing())
	assert.Empty(t, For("guest").Pages, "unknown role must see nothing")
}

func TestNeedsEditReason(t *testing.T) {
	staff := &model.Session{Username: "staff1", Role: model.RoleStaff}
	admin := &model.Session{Username: "admin", Role: model.RoleAdmin}

	assert.False(t, NeedsEditReason(staff, &model.Task{Edited: false}), "first edit needs no reason")
	assert.True(t, NeedsEditReason(staff, &model.Task{Edited: true}), "staff re-edit needs a reason")
	assert.False(t, NeedsEditReason(admin, &model.Task{Edited: true}), "admin edits never prompt")
}
