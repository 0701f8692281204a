package view

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/api/apitest"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/state"
)

func signedIn(t *testing.T, srv *apitest.Server, user, pass string) *state.Controller {
	t.Helper()
	client, err := api.New(api.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	c, err := state.New(state.Options{Backend: client})
	require.NoError(t, err)
	require.NoError(t, c.Login(context.Background(), user, pass), "login %s", user)
	return c
}

func seed(srv *apitest.Server, now time.Time) {
	srv.AddTask(model.Task{CustomerName: "Ann Lee", ContactNumber: "555-0100", ServiceType: "Passport", AssignedTo: "staff1", Branch: "SHOP-A", Status: model.StatusPending, PaidAmount: 400, Timestamp: model.At(now.Add(-30 * time.Hour))})
	srv.AddTask(model.Task{CustomerName: "Bob Stone", ContactNumber: "555-0101", ServiceType: "Visa", AssignedTo: "staff2", Branch: "SHOP-B", Status: model.StatusCompleted, PaidAmount: 900, Edited: true, Timestamp: model.At(now.Add(-2 * time.Hour))})
	srv.AddTask(model.Task{CustomerName: "Cy Park", ContactNumber: "555-0102", ServiceType: "Repair", AssignedTo: "staff2", SharedWith: []string{"staff1"}, Branch: "SHOP-A", Status: model.StatusReceived, Timestamp: model.At(now.Add(-1 * time.Hour))})
}

func TestTaskRows_StaffNeverSeesDeleteOrRevenue(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	now := time.Now()
	seed(srv, now)
	ctx := context.Background()

	c := signedIn(t, srv, "staff1", "password123")
	require.NoError(t, c.LoadTasks(ctx))
	rows := TaskRows(c, now)
	require.Len(t, rows, 2, "staff1 sees assigned and shared tasks only")
	for _, r := range rows {
		assert.False(t, r.CanDelete, "staff row %s offers delete", r.Task.OrderNo)
		assert.True(t, r.CanEdit, "staff1 should be able to edit %s", r.Task.OrderNo)
	}
	for _, card := range Reports(c, now) {
		assert.Nil(t, card.Revenue, "staff report card for %s carries revenue", card.Name)
	}
	for _, card := range Dashboard(c).Cards {
		assert.NotEqual(t, "Revenue", card.Label)
	}
}

func TestDashboard_RevenueOnlyForAdmin(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	seed(srv, time.Now())
	ctx := context.Background()

	hasRevenue := func(c *state.Controller) bool {
		require.NoError(t, c.LoadDashboard(ctx))
		d := Dashboard(c)
		found := false
		for _, card := range d.Cards {
			if card.Label == "Revenue" {
				found = true
			}
		}
		for _, p := range d.TopPerformers {
			assert.Equal(t, found, p.Revenue != nil, "performer revenue visibility disagrees with cards")
		}
		return found
	}

	assert.True(t, hasRevenue(signedIn(t, srv, "admin", "admin123")), "admin should see revenue")
	assert.False(t, hasRevenue(signedIn(t, srv, "manager", "password123")), "manager must not see revenue")
}

func TestTaskRows_BadgesAndSearchOnVisibleText(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	now := time.Now()
	seed(srv, now)

	c := signedIn(t, srv, "admin", "admin123")
	require.NoError(t, c.LoadTasks(context.Background()))
	rows := TaskRows(c, now)
	require.Len(t, rows, 3)
	assert.Equal(t, "Cy Park", rows[0].Task.CustomerName, "newest first")
	byName := map[string]TaskRow{}
	for _, r := range rows {
		byName[r.Task.CustomerName] = r
		assert.True(t, r.CanDelete, "admin row should offer delete")
	}
	assert.True(t, byName["Ann Lee"].Overdue, "pending task at 30h should be overdue")
	assert.Contains(t, byName["Bob Stone"].Text, "edited")

	c.Search("OVERDUE")
	got := TaskRows(c, now)
	require.Len(t, got, 1)
	assert.Equal(t, "Ann Lee", got[0].Task.CustomerName)

	// The filter runs first; search narrows the filtered rows.
	c.Search("555-01")
	c.ApplyFilters(model.Filter{Branch: "SHOP-A"})
	assert.Len(t, TaskRows(c, now), 2)
}

func TestServiceRows_FlagsDuplicates(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	srv.AddService(model.Service{Name: "Passport"})
	srv.AddService(model.Service{Name: "passport"})
	srv.AddService(model.Service{Name: "Visa"})

	c := signedIn(t, srv, "manager", "password123")
	require.NoError(t, c.LoadServices(context.Background()))
	for _, r := range ServiceRows(c) {
		want := strings.EqualFold(r.Service.Name, "passport")
		assert.Equal(t, want, r.Duplicate, r.Service.Name)
		assert.False(t, r.CanDelete, "manager should not be offered service delete")
	}
}

func TestNavAndFilterSummary(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()

	c := signedIn(t, srv, "staff2", "password123")
	nav := Nav(c)
	require.Len(t, nav, 2)
	assert.Equal(t, "Tasks", nav[0].Label)
	assert.True(t, nav[1].Active)
	assert.Equal(t, "date=today status=Pending", FilterSummary(model.Filter{Date: "today", Branch: "all", Status: "Pending"}))
}
