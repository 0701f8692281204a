package tui

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/api/apitest"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/perm"
	"taskflow-cli/internal/state"
)

func newController(t *testing.T, srv *apitest.Server) *state.Controller {
	t.Helper()
	client, err := api.New(api.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	c, err := state.New(state.Options{Backend: client})
	require.NoError(t, err)
	return c
}

// signedInModel logs in directly and runs the startup refresh.
func signedInModel(t *testing.T, srv *apitest.Server, user, pass string) appModel {
	t.Helper()
	c := newController(t, srv)
	require.NoError(t, c.Login(context.Background(), user, pass), "login %s", user)
	m := newAppModel(Options{Controller: c, Branches: []string{"SHOP-A", "SHOP-B"}, Paymodes: []string{"Cash", "Card"}})
	m.width, m.height = 140, 40
	m.resize()
	return drain(t, m, m.startup)
}

// collect runs cmd and every nested batch, returning the produced messages.
func collect(cmd tea.Cmd) []tea.Msg {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out []tea.Msg
		run func(tea.Cmd)
	)
	run = func(c tea.Cmd) {
		defer wg.Done()
		if c == nil {
			return
		}
		msg := c()
		if b, ok := msg.(tea.BatchMsg); ok {
			for _, x := range b {
				wg.Add(1)
				go run(x)
			}
			return
		}
		mu.Lock()
		out = append(out, msg)
		mu.Unlock()
	}
	wg.Add(1)
	go run(cmd)
	wg.Wait()
	return out
}

// drain feeds finished ops back into the model until no more ops are pending.
func drain(t *testing.T, m appModel, cmd tea.Cmd) appModel {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		require.LessOrEqual(t, i, 10, "ops did not settle")
		var next []tea.Cmd
		for _, msg := range collect(cmd) {
			done, ok := msg.(opDoneMsg)
			if !ok {
				continue
			}
			tm, c := m.Update(done)
			m = tm.(appModel)
			next = append(next, c)
		}
		cmd = tea.Batch(next...)
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(t *testing.T, m appModel, keys ...string) appModel {
	t.Helper()
	for _, k := range keys {
		tm, cmd := m.Update(keyMsg(k))
		m = drain(t, tm.(appModel), cmd)
	}
	return m
}

func TestMinibuffer_AutoClears(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	m := newAppModel(Options{Controller: newController(t, srv)})

	m.showMinibuffer("Saved")
	tm, _ := m.Update(clockTickMsg(time.Now()))
	m = tm.(appModel)
	require.Equal(t, "Saved", m.minibufferText, "cleared too early")

	m.minibufferSetAt = time.Now().Add(-minibufferAutoClearAfter - time.Second)
	tm, _ = m.Update(clockTickMsg(time.Now()))
	m = tm.(appModel)
	assert.Empty(t, m.minibufferText)
}

func TestLogin_LandsOnDashboardWithRevenue(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	m := newAppModel(Options{Controller: newController(t, srv)})
	m.width, m.height = 140, 40
	m.resize()

	require.Contains(t, m.View(), "Sign in")
	m = press(t, m, "admin", "tab", "admin123", "enter")
	require.True(t, m.c.SignedIn(), "minibuffer %q", m.minibufferText)
	assert.Equal(t, perm.PageDashboard, m.c.Page())
	assert.Contains(t, m.View(), "Revenue")
	assert.Empty(t, m.passInput.Value(), "password kept after login")
}

func TestLogin_WrongPasswordStaysOnLogin(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	m := newAppModel(Options{Controller: newController(t, srv)})

	m = press(t, m, "admin", "tab", "nope", "enter")
	require.False(t, m.c.SignedIn(), "signed in with a bad password")
	assert.True(t, m.minibufferErr)
	assert.Contains(t, m.minibufferText, "Invalid credentials")
}

func TestStaff_NeverSeesRevenueOrDelete(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	srv.AddTask(model.Task{CustomerName: "Ann Lee", AssignedTo: "staff1", Status: model.StatusCompleted, PaidAmount: 900})

	m := signedInModel(t, srv, "staff1", "password123")
	require.Equal(t, perm.PageStaffPanel, m.c.Page())
	for _, page := range []string{"1", "2"} {
		m = press(t, m, page)
		got := m.View()
		assert.NotContains(t, got, "Revenue", "page %s", m.c.Page())
		assert.NotContains(t, got, "d delete", "page %s", m.c.Page())
	}

	srv.ResetRequests()
	m = press(t, m, "d")
	assert.True(t, m.minibufferErr)
	assert.Contains(t, m.minibufferText, "permission denied")
	assert.Equal(t, modalNone, m.modal, "delete confirm opened for staff")
	assert.Empty(t, srv.Requests(), "denied delete reached the backend")
}

func TestFooter_ListsPageBindings(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()

	m := signedInModel(t, srv, "admin", "admin123")
	m = press(t, m, "2")
	require.Equal(t, perm.PageTasks, m.c.Page())
	got := m.footerHelp()
	for _, want := range []string{"/ search", "f filter", "t take over", "d delete", "? keys", "q quit"} {
		assert.Contains(t, got, want)
	}

	m = signedInModel(t, srv, "staff1", "password123")
	m = press(t, m, "1")
	got = m.footerHelp()
	assert.Contains(t, got, "e edit")
	assert.NotContains(t, got, "d delete")
	assert.NotContains(t, got, "/ search")
}

func TestEdit_ReasonRequiredForEditedTask(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	task := srv.AddTask(model.Task{CustomerName: "Ann Lee", AssignedTo: "staff1", Status: model.StatusPending, Edited: true})

	m := signedInModel(t, srv, "staff1", "password123")
	m = press(t, m, "1")
	row, ok := m.selectedTask()
	require.True(t, ok)
	require.Equal(t, task.ID, row.Task.ID)

	m = press(t, m, "e", "right", "ctrl+s")
	require.Equal(t, modalReason, m.modal, "toast %q", m.minibufferText)

	srv.ResetRequests()
	m = press(t, m, "enter")
	assert.Equal(t, modalReason, m.modal, "empty reason should keep the prompt open")
	assert.True(t, m.minibufferErr)
	assert.Empty(t, srv.Requests(), "empty reason sent a request")

	m = press(t, m, "customer called back", "enter")
	require.Equal(t, modalNone, m.modal, "prompt still open: %q", m.minibufferText)
	puts := srv.RequestsTo(http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID))
	require.Len(t, puts, 1)
	assert.Equal(t, "customer called back", puts[0].Body["edit_reason"])
	assert.NotEmpty(t, srv.RequestsTo(http.MethodGet, "/api/tasks"), "list not refetched after the edit")
	row, _ = m.selectedTask()
	assert.NotEqual(t, model.StatusPending, row.Task.Status)
	assert.Contains(t, row.Text, "edited")
}

func TestEdit_DescriptionKeepsNewlines(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	task := srv.AddTask(model.Task{CustomerName: "Ann Lee", AssignedTo: "staff1", Status: model.StatusPending})

	m := signedInModel(t, srv, "staff1", "password123")
	m = press(t, m, "1", "e")
	require.Equal(t, modalForm, m.modal)
	require.Equal(t, "description", m.form.fields[len(m.form.fields)-1].key)

	srv.ResetRequests()
	m = press(t, m, "shift+tab", "screen cracked", "enter", "battery swollen")
	require.Equal(t, modalForm, m.modal, "enter in the description submitted the form")
	assert.Empty(t, srv.Requests())

	m = press(t, m, "ctrl+s")
	require.Equal(t, modalNone, m.modal, "toast %q", m.minibufferText)
	puts := srv.RequestsTo(http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID))
	require.Len(t, puts, 1)
	assert.Equal(t, "screen cracked\nbattery swollen", puts[0].Body["description"])
}

func TestExpiredSession_ReturnsToLogin(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	m := signedInModel(t, srv, "manager", "password123")

	srv.ExpireSessions()
	m = press(t, m, "r")
	require.False(t, m.c.SignedIn(), "still signed in after 401")
	got := m.View()
	assert.Contains(t, got, "Sign in")
	assert.Contains(t, got, "Session expired")
}

func TestTakeOver_IsLocalOnly(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	task := srv.AddTask(model.Task{CustomerName: "Bob Stone", AssignedTo: "staff2", SharedWith: []string{"staff1"}, Status: model.StatusReceived})

	m := signedInModel(t, srv, "staff1", "password123")
	m = press(t, m, "1")
	srv.ResetRequests()

	m = press(t, m, "t")
	require.True(t, m.c.TakenOver(task.ID), "toast %q", m.minibufferText)
	assert.Empty(t, srv.Requests(), "take-over reached the backend")
	row, _ := m.selectedTask()
	assert.True(t, row.Claimed, "row not marked claimed")

	m = press(t, m, "t")
	assert.False(t, m.c.TakenOver(task.ID), "second t should release the claim")
}

func TestFilterForm_AppliesLocally(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	m := signedInModel(t, srv, "admin", "admin123")
	m = press(t, m, "2")
	require.Equal(t, perm.PageTasks, m.c.Page())

	srv.ResetRequests()
	m = press(t, m, "f", "right", "ctrl+s")
	assert.Equal(t, "today", m.c.Filter().Date)
	assert.Contains(t, m.minibufferText, "date=today")
	assert.Empty(t, srv.Requests(), "filtering sent requests")

	m = press(t, m, "x")
	assert.NotEqual(t, "today", m.c.Filter().Date, "filters not cleared")
}

func TestCopyOrderNumber(t *testing.T) {
	var copied string
	orig := clipboardWrite
	clipboardWrite = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { clipboardWrite = orig })

	srv := apitest.New()
	defer srv.Close()
	task := srv.AddTask(model.Task{CustomerName: "Ann Lee", AssignedTo: "staff1", Status: model.StatusPending})

	m := signedInModel(t, srv, "staff1", "password123")
	m = press(t, m, "1", "y")
	assert.Equal(t, task.OrderNo, copied)
	assert.Equal(t, "Copied: "+task.OrderNo, m.minibufferText)
}
