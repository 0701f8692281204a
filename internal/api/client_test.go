package api_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/api/apitest"
	"taskflow-cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, srv *apitest.Server) *api.Client {
	t.Helper()
	c, err := api.New(api.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestLogin_SetsSessionCookie(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c := newClient(t, srv)
	ctx := context.Background()

	sess, err := c.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin", sess.Username)
	assert.Equal(t, model.RoleAdmin, sess.Role)
	require.NotEmpty(t, c.Cookies(), "expected the backend session cookie in the jar")

	me, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin", me.Username)
}

func TestLogin_InvalidCredentialsCarriesBackendMessage(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c := newClient(t, srv)

	_, err := c.Login(context.Background(), "admin", "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrUnauthorized))
	assert.Equal(t, "Invalid credentials", api.Message(err))
}

func TestUnauthenticatedCallIsUnauthorized(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c := newClient(t, srv)

	_, err := c.Tasks(context.Background(), model.DefaultFilter(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, api.StatusOf(err))
}

func TestCookiesRoundTripIntoFreshClient(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	ctx := context.Background()

	c1 := newClient(t, srv)
	_, err := c1.Login(ctx, "staff1", "password123")
	require.NoError(t, err)

	c2 := newClient(t, srv)
	c2.SetCookies(c1.Cookies())
	me, err := c2.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "staff1", me.Username)

	c2.ClearCookies()
	assert.Empty(t, c2.Cookies())
	_, err = c2.CurrentUser(ctx)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestTaskCRUDAndShare(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c := newClient(t, srv)
	ctx := context.Background()
	_, err := c.Login(ctx, "admin", "admin123")
	require.NoError(t, err)

	require.NoError(t, c.CreateTask(ctx, api.TaskInput{
		CustomerName:  "Michael Brown",
		ContactNumber: "555-1234",
		ServiceType:   "Consultation",
		AssignedTo:    "staff1",
		Branch:        "SHOP-A",
		ServicePrice:  1500,
		Description:   "Initial consultation",
	}))
	tasks, err := c.Tasks(ctx, model.DefaultFilter(), "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	task := tasks[0]
	assert.Equal(t, "TF-001", task.OrderNo)
	assert.Equal(t, model.StatusReceived, task.Status)
	assert.Equal(t, "Cash", task.Paymode)

	status := model.StatusInProgress
	reason := "customer called"
	require.NoError(t, c.UpdateTask(ctx, task.ID, api.TaskPatch{Status: &status, EditReason: &reason}))

	require.NoError(t, c.ShareTask(ctx, task.ID, "staff2"))
	require.NoError(t, c.ShareTask(ctx, task.ID, "staff2"))

	tasks, err = c.Tasks(ctx, model.DefaultFilter(), "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.StatusInProgress, tasks[0].Status)
	assert.True(t, tasks[0].Edited)
	assert.Equal(t, "customer called", tasks[0].EditReason)
	assert.Equal(t, []string{"staff2"}, tasks[0].SharedWith)

	require.NoError(t, c.DeleteTask(ctx, task.ID))
	tasks, err = c.Tasks(ctx, model.DefaultFilter(), "")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestBackendErrorMessageSurfaces(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c := newClient(t, srv)
	ctx := context.Background()
	_, err := c.Login(ctx, "manager", "password123")
	require.NoError(t, err)

	err = c.CreateUser(ctx, api.NewUser{Username: "x", Password: "y", Role: model.RoleStaff})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, api.StatusOf(err))
	assert.Equal(t, "Admin access required", api.Message(err))

	err = c.DeleteTask(ctx, 999)
	assert.Equal(t, http.StatusForbidden, api.StatusOf(err))
}

func TestTransportError(t *testing.T) {
	c, err := api.New(api.Options{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.Services(context.Background())
	var te *api.TransportError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, api.Message(err), "Network error")
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := api.New(api.Options{BaseURL: ""})
	assert.Error(t, err)
	_, err = api.New(api.Options{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestDashboardEndpoints(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	srv.SetClock(func() time.Time { return now })
	srv.AddTask(model.Task{CustomerName: "A", AssignedTo: "staff1", Status: model.StatusCompleted, PaidAmount: 1000, Timestamp: model.At(now)})
	srv.AddTask(model.Task{CustomerName: "B", AssignedTo: "staff2", Status: model.StatusPending, Timestamp: model.At(now.Add(-30 * time.Hour))})

	c := newClient(t, srv)
	ctx := context.Background()
	_, err := c.Login(ctx, "admin", "admin123")
	require.NoError(t, err)

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalTasks)
	assert.Equal(t, 1, st.CompletedTasks)
	assert.Equal(t, 1, st.OverdueTasks)
	assert.InDelta(t, 1000, st.TotalRevenue, 0.001)

	top, err := c.TopPerformers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, top)
	assert.Equal(t, "staff1", top[0].Name)
	assert.InDelta(t, 20, top[0].Score, 0.001)

	od, err := c.OverdueTasks(ctx)
	require.NoError(t, err)
	require.Len(t, od, 1)
	assert.Equal(t, 30, od[0].HoursOverdue)
}
