package state

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/perm"
)

func ptr[T any](v T) *T { return &v }

func TestFilteredTasks_SubsetSatisfyingEveryPredicate(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	branches := []string{"SHOP-A", "SHOP-B"}
	staff := []string{"staff1", "staff2", "staff3"}
	services := []string{"Passport", "Visa", "Repair"}

	var tasks []model.Task
	for i := 1; i <= 200; i++ {
		created := now.Add(-time.Duration(rng.Intn(40*24)) * time.Hour)
		tasks = append(tasks, model.Task{
			ID:          i,
			OrderNo:     fmt.Sprintf("TF-%03d", i),
			Branch:      branches[rng.Intn(len(branches))],
			AssignedTo:  staff[rng.Intn(len(staff))],
			Status:      model.Statuses[rng.Intn(len(model.Statuses))],
			ServiceType: services[rng.Intn(len(services))],
			TaskDate:    created.Add(time.Duration(rng.Intn(3)-1) * 24 * time.Hour).Format(dateLayout),
			Timestamp:   model.At(created),
		})
	}
	c := &Controller{tasks: tasks, filter: model.DefaultFilter(), takenOver: map[int]bool{}}
	cacheBefore := append([]model.Task{}, tasks...)

	pick := func(opts []string) string {
		if rng.Intn(2) == 0 {
			return model.FilterAll
		}
		return opts[rng.Intn(len(opts))]
	}
	statuses := make([]string, 0, len(model.Statuses))
	for _, s := range model.Statuses {
		statuses = append(statuses, string(s))
	}

	for i := 0; i < 300; i++ {
		f := model.Filter{
			Date:    pick(model.DatePresets[1:]),
			Branch:  pick(branches),
			Staff:   pick(staff),
			Status:  pick(statuses),
			Service: pick(services),
		}
		c.ApplyFilters(f)
		got := c.FilteredTasks(now)

		want := 0
		for _, task := range tasks {
			if MatchesFilter(task, f, now) {
				want++
			}
		}
		require.Len(t, got, want, "filter %+v", f)

		ids := map[int]bool{}
		for _, task := range tasks {
			ids[task.ID] = true
		}
		for j, task := range got {
			require.True(t, ids[task.ID])
			if !model.IsAll(f.Branch) {
				require.Equal(t, f.Branch, task.Branch)
			}
			if !model.IsAll(f.Staff) {
				require.Equal(t, f.Staff, task.AssignedTo)
			}
			if !model.IsAll(f.Status) {
				require.Equal(t, f.Status, string(task.Status))
			}
			if !model.IsAll(f.Service) {
				require.Equal(t, f.Service, task.ServiceType)
			}
			if j > 0 {
				require.False(t, task.Timestamp.After(got[j-1].Timestamp.Time), "not sorted newest first")
			}
		}
	}
	if diff := cmp.Diff(cacheBefore, c.Tasks()); diff != "" {
		t.Fatalf("cache mutated (-before +after):\n%s", diff)
	}
}

func TestFilteredTasks_DatePresets(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	c := &Controller{filter: model.DefaultFilter(), tasks: []model.Task{
		{ID: 1, TaskDate: "2024-05-10"},
		{ID: 2, TaskDate: "2024-05-09"},
		{ID: 3, TaskDate: "2024-05-11"},
		{ID: 4, TaskDate: "2024-04-10"},
		{ID: 5, TaskDate: "2024-04-01"},
		{ID: 6, Timestamp: model.At(time.Date(2024, 5, 10, 1, 0, 0, 0, time.UTC))},
	}}
	ids := func(preset string) []int {
		c.ApplyFilters(model.Filter{Date: preset})
		var out []int
		for _, task := range c.FilteredTasks(now) {
			out = append(out, task.ID)
		}
		return out
	}
	assert.ElementsMatch(t, []int{1, 6}, ids(model.DateToday))
	assert.ElementsMatch(t, []int{2}, ids(model.DateYesterday))
	assert.ElementsMatch(t, []int{3}, ids(model.DateTomorrow))
	assert.ElementsMatch(t, []int{1, 2, 4, 6}, ids(model.DateLast30))
	assert.Len(t, ids(model.FilterAll), 6)
}

func TestSortTasks_NewestFirstIDTiebreak(t *testing.T) {
	t.Parallel()

	at := model.At(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ts := []model.Task{
		{ID: 1, Timestamp: at},
		{ID: 3, Timestamp: at},
		{ID: 2, Timestamp: model.At(at.Add(time.Hour))},
	}
	SortTasks(ts)
	assert.Equal(t, []int{2, 3, 1}, []int{ts[0].ID, ts[1].ID, ts[2].ID})
}

func TestFindTask_ByIDOrOrderNo(t *testing.T) {
	t.Parallel()

	c := &Controller{tasks: []model.Task{{ID: 4, OrderNo: "TF-004"}, {ID: 7, OrderNo: "TF-007"}}}
	got, err := c.FindTask("tf-007")
	require.NoError(t, err)
	assert.Equal(t, 7, got.ID)

	got, err = c.FindTask("4")
	require.NoError(t, err)
	assert.Equal(t, "TF-004", got.OrderNo)

	_, err = c.FindTask("TF-999")
	assert.True(t, IsNotFound(err))
}

func TestStaffEdit_ReasonRequiredForEditedTask(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	task := h.srv.AddTask(model.Task{
		CustomerName: "Ann", AssignedTo: "staff1", Description: "renew passport",
		Edited: true, EditReason: "price corrected",
	})

	c := h.login(t, "staff1", "password123")
	require.NoError(t, c.LoadTasks(ctx))
	require.True(t, c.NeedsEditReason(task.ID))
	h.srv.ResetRequests()

	patch := api.TaskPatch{Description: ptr("renew passport, 2 photos")}
	_, err := c.UpdateTaskOp(task.ID, patch, "   ")
	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "edit_reason", ve.Field)
	assert.Empty(t, h.srv.Requests())

	require.NoError(t, c.UpdateTask(ctx, task.ID, patch, "customer brought photos"))

	puts := h.srv.RequestsTo(http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID))
	require.Len(t, puts, 1)
	assert.Equal(t, "customer brought photos", puts[0].Body["edit_reason"])
	assert.Equal(t, "renew passport, 2 photos", puts[0].Body["description"])
	assert.Len(t, h.srv.RequestsTo(http.MethodGet, "/api/tasks"), 1)

	got, err := c.FindTask(task.OrderNo)
	require.NoError(t, err)
	assert.True(t, got.Edited)
	assert.Equal(t, "customer brought photos", got.EditReason)
	assert.Equal(t, "renew passport, 2 photos", got.Description)
}

func TestStaffEdit_FirstEditNeedsNoReason(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	task := h.srv.AddTask(model.Task{CustomerName: "Ann", AssignedTo: "staff1"})

	c := h.login(t, "staff1", "password123")
	require.NoError(t, c.LoadTasks(ctx))
	require.NoError(t, c.UpdateTask(ctx, task.ID, api.TaskPatch{PaidAmount: ptr(250.0)}, ""))

	got, ok := h.srv.Task(task.ID)
	require.True(t, ok)
	assert.True(t, got.Edited)
	assert.Equal(t, "paid_amount changed from 0 to 250", got.EditReason)
}

func TestStaffEdit_RestrictedFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mine := h.srv.AddTask(model.Task{CustomerName: "Ann", AssignedTo: "staff1"})
	h.srv.AddTask(model.Task{CustomerName: "Bob", AssignedTo: "staff2"})

	c := h.login(t, "staff1", "password123")
	require.NoError(t, c.LoadTasks(ctx))
	require.Len(t, c.Tasks(), 1)

	_, err := c.UpdateTaskOp(mine.ID, api.TaskPatch{CustomerName: ptr("Annie")}, "")
	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "customer_name", ve.Field)

	_, err = c.UpdateTaskOp(mine.ID, api.TaskPatch{CustomerName: ptr("Ann")}, "")
	require.True(t, errors.As(err, &ve), "unchanged fields are dropped, leaving nothing to save")
}

func TestStaffEdit_IneligibleTaskDenied(t *testing.T) {
	t.Parallel()

	c := &Controller{
		session: &model.Session{Username: "staff1", Role: model.RoleStaff},
		caps:    perm.For(model.RoleStaff),
		tasks:   []model.Task{{ID: 1, OrderNo: "TF-001", AssignedTo: "staff2"}},
	}
	_, err := c.UpdateTaskOp(1, api.TaskPatch{Description: ptr("x")}, "")
	var denied perm.Denied
	assert.True(t, errors.As(err, &denied))

	c.tasks[0].SharedWith = []string{"staff1"}
	_, err = c.UpdateTaskOp(1, api.TaskPatch{Description: ptr("x")}, "")
	assert.NoError(t, err)
}

func TestSetStatus_StaffPatchesCacheAfterConfirm(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	task := h.srv.AddTask(model.Task{CustomerName: "Ann", AssignedTo: "staff1", Status: model.StatusPending})

	c := h.login(t, "staff1", "password123")
	require.NoError(t, c.LoadTasks(ctx))
	h.srv.ResetRequests()

	require.NoError(t, c.SetStatus(ctx, task.ID, model.StatusInProgress, ""))
	got, err := c.FindTask(task.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.True(t, got.Edited)
	assert.Empty(t, h.srv.RequestsTo(http.MethodGet, "/api/tasks"), "staff status change patches the cache")
}

func TestSetStatus_FailureKeepsPriorStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	task := h.srv.AddTask(model.Task{CustomerName: "Ann", AssignedTo: "staff1", Status: model.StatusPending})

	c := h.login(t, "staff1", "password123")
	require.NoError(t, c.LoadTasks(ctx))
	h.srv.FailNext(http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), http.StatusInternalServerError, "database is down")

	err := c.SetStatus(ctx, task.ID, model.StatusCompleted, "")
	require.Error(t, err)
	assert.Equal(t, "database is down", api.Message(err))
	got, _ := c.FindTask(task.OrderNo)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.True(t, c.SignedIn())
}

func TestSetStatus_AdminRefetches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	task := h.srv.AddTask(model.Task{CustomerName: "Ann", AssignedTo: "staff1"})

	c := h.login(t, "admin", "admin123")
	require.NoError(t, c.LoadTasks(ctx))
	h.srv.ResetRequests()

	_, err := c.SetStatusOp(task.ID, model.StatusReceived, "")
	require.Error(t, err, "same status")
	_, err = c.SetStatusOp(task.ID, "Archived", "")
	require.Error(t, err)

	require.NoError(t, c.SetStatus(ctx, task.ID, model.StatusHold, ""))
	assert.Len(t, h.srv.RequestsTo(http.MethodGet, "/api/tasks"), 1)
	got, _ := c.FindTask(task.OrderNo)
	assert.Equal(t, model.StatusHold, got.Status)
}

func TestCreateTask_ValidatesAndRefetches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.login(t, "manager", "password123")
	require.NoError(t, c.LoadServices(ctx))

	_, err := c.CreateTaskOp(api.TaskInput{CustomerName: "Ann"})
	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "contact_number", ve.Field)

	in := api.TaskInput{CustomerName: "Ann", ContactNumber: "555-0100", AssignedTo: "staff1", Branch: "SHOP-A"}
	require.True(t, c.ServiceDefaults(&in, " repair "))
	assert.Equal(t, "Repair", in.ServiceType)
	assert.Equal(t, 2000.0, in.ServicePrice)
	assert.Equal(t, 150.0, in.ServiceCharge)

	in.ServiceCharge = 120
	require.NoError(t, c.CreateTask(ctx, in))
	require.Len(t, c.Tasks(), 1)
	got := c.Tasks()[0]
	assert.Equal(t, "TF-001", got.OrderNo)
	assert.Equal(t, "Cash", got.Paymode)
	assert.Equal(t, 120.0, got.ServiceCharge)
	assert.Equal(t, model.StatusReceived, got.Status)
}

func TestDeleteTask_AdminOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	task := h.srv.AddTask(model.Task{CustomerName: "Ann", AssignedTo: "staff1"})

	manager := h.login(t, "manager", "password123")
	require.NoError(t, manager.LoadTasks(ctx))
	_, err := manager.DeleteTaskOp(task.ID)
	var denied perm.Denied
	require.True(t, errors.As(err, &denied))

	admin := h.login(t, "admin", "admin123")
	require.NoError(t, admin.LoadTasks(ctx))
	require.NoError(t, admin.DeleteTask(ctx, task.ID))
	assert.Empty(t, admin.Tasks())
}

func TestShareTask_IdempotentOnRead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	task := h.srv.AddTask(model.Task{CustomerName: "Ann", AssignedTo: "staff1"})

	c := h.login(t, "admin", "admin123")
	require.NoError(t, c.LoadTasks(ctx))

	_, err := c.ShareTaskOp(task.ID, " ")
	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	_, err = c.ShareTaskOp(task.ID, "staff1")
	require.True(t, errors.As(err, &ve))

	require.NoError(t, c.ShareTask(ctx, task.ID, "staff2"))
	require.NoError(t, c.ShareTask(ctx, task.ID, "staff2"))

	got, err := c.FindTask(task.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, []string{"staff2"}, got.SharedWith)

	staff2 := h.login(t, "staff2", "password123")
	require.NoError(t, staff2.LoadTasks(ctx))
	require.Len(t, staff2.Tasks(), 1)
	assert.True(t, perm.CanEditTask(staff2.Session(), &staff2.Tasks()[0]))
}
