package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"taskflow-cli/internal/perm"
	"taskflow-cli/internal/state"
	"taskflow-cli/internal/view"
)

type appModel struct {
	c         *state.Controller
	log       *zap.Logger
	branches  []string
	paymodes  []string
	opTimeout time.Duration

	width  int
	height int

	spinner spinner.Model
	busy    int

	// listsRev and listsAt record the controller state the lists were last built from.
	listsRev uint64
	listsAt  time.Time

	startup tea.Cmd

	userInput  textinput.Model
	passInput  textinput.Model
	loginFocus loginFocus

	tasksList    list.Model
	panelList    list.Model
	servicesList list.Model
	usersList    list.Model
	pickList     list.Model

	searching   bool
	searchInput textinput.Model

	reportsMarkdown bool
	reportsView     viewport.Model
	pager           viewport.Model

	modal      modalKind
	modalTitle string
	form       *form
	pickForID  int

	reasonInput   textinput.Model
	pendingReason func(reason string) (state.Op, error)

	confirmBody    string
	confirmLabel   string
	confirmFocus   confirmModalFocus
	pendingConfirm func() (state.Op, error)

	minibufferText  string
	minibufferErr   bool
	minibufferSetAt time.Time
}

func newAppModel(opt Options) appModel {
	m := appModel{
		c:         opt.Controller,
		log:       opt.Logger,
		branches:  opt.Branches,
		paymodes:  opt.Paymodes,
		opTimeout: opt.OpTimeout,
		width:     100,
		height:    30,
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.opTimeout <= 0 {
		m.opTimeout = defaultOpTimeout
	}

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.MiniDot

	m.userInput = textinput.New()
	m.userInput.Placeholder = "username"
	m.userInput.CharLimit = 64
	m.userInput.Focus()
	m.passInput = textinput.New()
	m.passInput.Placeholder = "password"
	m.passInput.EchoMode = textinput.EchoPassword
	m.passInput.EchoCharacter = '*'
	m.passInput.CharLimit = 128

	m.searchInput = textinput.New()
	m.searchInput.Placeholder = "search visible text"
	m.searchInput.Prompt = "/ "
	m.searchInput.CharLimit = 100

	m.reasonInput = textinput.New()
	m.reasonInput.Placeholder = "why is this task being changed again?"
	m.reasonInput.CharLimit = 300

	m.tasksList = newList("Tasks", nil, newTaskRowDelegate())
	m.panelList = newList("My tasks", nil, newTaskRowDelegate())
	m.servicesList = newList("Services", nil, newCompactItemDelegate())
	m.usersList = newList("Staff", nil, newCompactItemDelegate())
	m.pickList = newPicker("Pick")

	m.reportsView = viewport.New(0, 0)
	m.pager = viewport.New(0, 0)

	m.resize()
	m.refreshLists()
	if m.c.SignedIn() {
		m.startup = m.exec(m.c.RefreshOp())
	}
	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.startup, textinput.Blink, clockTick())
}

// exec runs op off the update loop; the result comes back as an opDoneMsg.
func (m *appModel) exec(op state.Op) tea.Cmd {
	m.busy++
	b := m.c.Backend()
	timeout := m.opTimeout
	run := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return opDoneMsg{res: op.Exec(ctx, b)}
	}
	if m.busy == 1 {
		return tea.Batch(run, m.spinner.Tick)
	}
	return run
}

const (
	headerLines = 3
	footerLines = 2
	cardLines   = 4
)

func (m *appModel) resize() {
	w := m.width
	body := m.height - headerLines - footerLines
	if body < 6 {
		body = 6
	}
	m.tasksList.SetSize(w, body-2)
	m.panelList.SetSize(w, max(body-2-cardLines, 3))
	m.servicesList.SetSize(w, body-1)
	m.usersList.SetSize(w, body-1)
	m.pickList.SetSize(modalBodyWidth(w), min(10, max(body-6, 3)))

	m.reportsView.Width = w
	m.reportsView.Height = body - 1
	m.pager.Width = modalBodyWidth(w)
	m.pager.Height = max(body-6, 5)

	m.searchInput.Width = max(w-20, 10)
	m.reasonInput.Width = modalBodyWidth(w) - 4
	if m.form != nil {
		m.form.setWidth(modalBodyWidth(w))
	}
}

// refreshLists rebuilds every list from the controller's current state.
func (m *appModel) refreshLists() {
	now := m.c.Now()
	m.listsRev = m.c.Revision()
	m.listsAt = now

	var tasks []list.Item
	for _, r := range view.TaskRows(m.c, now) {
		tasks = append(tasks, taskItem{row: r})
	}
	setItemsKeepSelection(&m.tasksList, tasks)

	var mine []list.Item
	for _, r := range view.StaffPanel(m.c, now).Rows {
		mine = append(mine, taskItem{row: r})
	}
	setItemsKeepSelection(&m.panelList, mine)

	var services []list.Item
	for _, r := range view.ServiceRows(m.c) {
		services = append(services, serviceItem{row: r})
	}
	setItemsKeepSelection(&m.servicesList, services)

	var users []list.Item
	for _, r := range view.Users(m.c) {
		users = append(users, userItem{row: r})
	}
	setItemsKeepSelection(&m.usersList, users)

	if m.reportsMarkdown {
		m.reportsView.SetContent(renderMarkdown(m.reportsMarkdownSource(now), m.reportsView.Width))
	}
}

// taskList is the list shown on the active page, nil when the page has none.
func (m *appModel) taskList() *list.Model {
	switch m.c.Page() {
	case perm.PageTasks:
		return &m.tasksList
	case perm.PageStaffPanel:
		return &m.panelList
	}
	return nil
}

func (m *appModel) selectedTask() (view.TaskRow, bool) {
	l := m.taskList()
	if l == nil {
		return view.TaskRow{}, false
	}
	it, ok := l.SelectedItem().(taskItem)
	return it.row, ok
}

func (m *appModel) showMinibuffer(text string) {
	m.minibufferText = strings.TrimSpace(text)
	m.minibufferErr = false
	m.minibufferSetAt = time.Now()
}

func (m *appModel) showError(text string) {
	m.showMinibuffer(text)
	m.minibufferErr = true
}

func (m *appModel) closeModal() {
	m.modal = modalNone
	m.modalTitle = ""
	m.form = nil
	m.pickForID = 0
	m.pendingReason = nil
	m.pendingConfirm = nil
	m.confirmBody = ""
	m.confirmFocus = confirmFocusConfirm
	m.reasonInput.SetValue("")
	m.reasonInput.Blur()
}

// resetToLogin returns to the sign-in screen after a logout or an expired session.
func (m *appModel) resetToLogin() {
	m.closeModal()
	m.searching = false
	m.reportsMarkdown = false
	m.searchInput.SetValue("")
	m.passInput.SetValue("")
	m.passInput.Blur()
	m.loginFocus = loginFocusUser
	m.userInput.Focus()
	m.refreshLists()
}
