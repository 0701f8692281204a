package tui

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/docs"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/perm"
	"taskflow-cli/internal/publish"
	"taskflow-cli/internal/state"
	"taskflow-cli/internal/view"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refreshLists()
		return m, nil

	case clockTickMsg:
		if m.minibufferText != "" && time.Since(m.minibufferSetAt) > minibufferAutoClearAfter {
			m.minibufferText = ""
			m.minibufferErr = false
		}
		// Overdue badges depend on the clock.
		if m.c.Revision() != m.listsRev || m.c.Now().Sub(m.listsAt) >= time.Minute {
			m.refreshLists()
		}
		return m, clockTick()

	case spinner.TickMsg:
		if m.busy == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case opDoneMsg:
		return m.applyResult(msg.res)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if !m.c.SignedIn() {
			return m.updateLogin(msg)
		}
		if m.modal != modalNone {
			return m.updateModal(msg)
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updatePage(msg)
	}
	return m, nil
}

// applyResult folds a finished op into the controller on the update goroutine.
func (m appModel) applyResult(res state.Result) (tea.Model, tea.Cmd) {
	if m.busy > 0 {
		m.busy--
	}
	err := m.c.Apply(res)
	switch {
	case errors.Is(err, state.ErrStale):
		return m, nil
	case errors.Is(err, state.ErrSessionExpired):
		m.resetToLogin()
		m.showError("Session expired; please log in again")
		return m, nil
	case err != nil:
		m.refreshLists()
		m.showError(errorText(err))
		return m, nil
	}

	m.refreshLists()
	if res.Session != nil {
		m.passInput.SetValue("")
		m.showMinibuffer(res.Op.Done)
		return m, m.exec(m.c.RefreshOp())
	}
	if !m.c.SignedIn() {
		m.resetToLogin()
	}
	if res.Op.Done != "" {
		m.showMinibuffer(res.Op.Done)
	}
	return m, nil
}

func errorText(err error) string {
	return "Error: " + api.Message(err)
}

func emptyAs(s, d string) string {
	if strings.TrimSpace(s) == "" {
		return d
	}
	return s
}

func (m appModel) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		if m.loginFocus == loginFocusUser {
			m.loginFocus = loginFocusPass
			m.userInput.Blur()
			return m, m.passInput.Focus()
		}
		m.loginFocus = loginFocusUser
		m.passInput.Blur()
		return m, m.userInput.Focus()
	case "enter":
		if m.loginFocus == loginFocusUser && m.passInput.Value() == "" {
			m.loginFocus = loginFocusPass
			m.userInput.Blur()
			return m, m.passInput.Focus()
		}
		op, err := m.c.LoginOp(m.userInput.Value(), m.passInput.Value())
		if err != nil {
			m.showError(errorText(err))
			return m, nil
		}
		m.showMinibuffer("Signing in…")
		return m, m.exec(op)
	}
	var cmd tea.Cmd
	if m.loginFocus == loginFocusUser {
		m.userInput, cmd = m.userInput.Update(msg)
	} else {
		m.passInput, cmd = m.passInput.Update(msg)
	}
	return m, cmd
}

func (m appModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	case "esc", "ctrl+g":
		m.searching = false
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.c.Search("")
		m.refreshLists()
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.c.Search(m.searchInput.Value())
	m.refreshLists()
	return m, cmd
}

func (m appModel) navigate(p perm.Page) (tea.Model, tea.Cmd) {
	op, err := m.c.Navigate(p)
	if err != nil {
		m.showError(errorText(err))
		return m, nil
	}
	m.searching = false
	m.refreshLists()
	return m, m.exec(op)
}

func (m appModel) updatePage(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Refresh):
		return m, m.exec(m.c.RefreshOp())
	case key.Matches(msg, keys.Logout):
		return m, m.exec(m.c.LogoutOp())
	case key.Matches(msg, keys.Help):
		body, _ := docs.Get("keys")
		m.openPager(modalHelp, "Keys", body)
		return m, nil
	case key.Matches(msg, keys.NextPage, keys.PrevPage):
		pages := m.c.Capabilities().Pages
		if len(pages) == 0 {
			return m, nil
		}
		i := 0
		for j, p := range pages {
			if p == m.c.Page() {
				i = j
			}
		}
		if key.Matches(msg, keys.NextPage) {
			i++
		} else {
			i--
		}
		return m.navigate(pages[(i+len(pages))%len(pages)])
	}
	k := msg.String()
	if n, err := strconv.Atoi(k); err == nil && n >= 1 {
		nav := view.Nav(m.c)
		if n <= len(nav) {
			return m.navigate(nav[n-1].Page)
		}
		return m, nil
	}

	switch m.c.Page() {
	case perm.PageTasks, perm.PageStaffPanel:
		return m.updateTaskPage(msg)
	case perm.PageDatabase:
		return m.updateServicesPage(msg)
	case perm.PageStaff:
		return m.updateStaffPage(msg)
	case perm.PageReports:
		return m.updateReportsPage(msg)
	}
	return m, nil
}

func (m appModel) updateTaskPage(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	onTasks := m.c.Page() == perm.PageTasks
	row, ok := m.selectedTask()
	needRow := func() bool {
		if !ok {
			m.showError("No task selected")
		}
		return ok
	}
	denied := func(action string) {
		m.showError("Error: " + perm.Denied{Role: m.c.Capabilities().Role, Action: action}.Error())
	}

	switch {
	case key.Matches(msg, keys.Search):
		if !onTasks {
			break
		}
		m.searching = true
		m.searchInput.SetValue(m.c.SearchTerm())
		m.searchInput.CursorEnd()
		return m, m.searchInput.Focus()
	case key.Matches(msg, keys.Filter):
		if !onTasks {
			break
		}
		return m, m.openForm("Filter tasks", m.filterForm())
	case key.Matches(msg, keys.Clear):
		if !onTasks {
			break
		}
		m.c.ApplyFilters(model.Filter{})
		m.c.Search("")
		m.searchInput.SetValue("")
		m.refreshLists()
		m.showMinibuffer("Filters cleared")
		return m, nil
	case key.Matches(msg, keys.New):
		return m, m.openForm("New task", m.newTaskForm())
	case key.Matches(msg, keys.Edit):
		if !needRow() {
			return m, nil
		}
		if !row.CanEdit {
			denied("edit " + row.Task.OrderNo)
			return m, nil
		}
		return m, m.openForm("Edit "+row.Task.OrderNo, m.editTaskForm(row.Task))
	case key.Matches(msg, keys.Status):
		if !needRow() {
			return m, nil
		}
		if !row.CanEdit {
			denied("change the status of " + row.Task.OrderNo)
			return m, nil
		}
		m.openPicker(modalPickStatus, row.Task.OrderNo+" "+glyphArrow()+" status", row.Task.ID, statusChoices(), string(row.Task.Status))
		return m, nil
	case key.Matches(msg, keys.Share):
		if !needRow() {
			return m, nil
		}
		if !row.CanShare {
			denied("share " + row.Task.OrderNo)
			return m, nil
		}
		var names []string
		for _, n := range m.c.StaffNames() {
			if n != row.Task.AssignedTo && !row.Task.IsSharedWith(n) {
				names = append(names, n)
			}
		}
		if len(names) == 0 {
			m.showError("No one left to share " + row.Task.OrderNo + " with")
			return m, nil
		}
		m.openPicker(modalPickShare, "Share "+row.Task.OrderNo+" with", row.Task.ID, names, "")
		return m, nil
	case key.Matches(msg, keys.Delete):
		if !needRow() {
			return m, nil
		}
		if !row.CanDelete {
			denied("delete tasks")
			return m, nil
		}
		id := row.Task.ID
		m.openConfirm("Delete task", "Delete "+row.Task.OrderNo+" for "+row.Task.CustomerName+"?", "Delete", func() (state.Op, error) {
			return m.c.DeleteTaskOp(id)
		})
		return m, nil
	case key.Matches(msg, keys.TakeOver):
		if !needRow() {
			return m, nil
		}
		if m.c.TakenOver(row.Task.ID) {
			if err := m.c.ReleaseTask(row.Task.ID); err != nil {
				m.showError(errorText(err))
				return m, nil
			}
			m.showMinibuffer("Released " + row.Task.OrderNo)
		} else {
			if err := m.c.TakeOverTask(row.Task.ID); err != nil {
				m.showError(errorText(err))
				return m, nil
			}
			m.showMinibuffer("Claimed " + row.Task.OrderNo + " (local only)")
		}
		m.refreshLists()
		return m, nil
	case key.Matches(msg, keys.Copy):
		if !needRow() {
			return m, nil
		}
		if err := clipboardWrite(row.Task.OrderNo); err != nil {
			m.showError("Clipboard error: " + err.Error())
			return m, nil
		}
		m.showMinibuffer("Copied: " + row.Task.OrderNo)
		return m, nil
	case key.Matches(msg, keys.View):
		if !needRow() {
			return m, nil
		}
		m.openPager(modalDetail, row.Task.OrderNo, publish.TaskMarkdown(row.Task, row.Overdue, row.Claimed))
		return m, nil
	}

	l := m.taskList()
	if l == nil {
		return m, nil
	}
	var cmd tea.Cmd
	*l, cmd = l.Update(msg)
	return m, cmd
}

func (m appModel) updateServicesPage(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	caps := m.c.Capabilities()
	it, ok := m.servicesList.SelectedItem().(serviceItem)
	switch {
	case key.Matches(msg, keys.New):
		if !caps.EditServices {
			m.showError("Error: " + perm.Denied{Role: caps.Role, Action: "create services"}.Error())
			return m, nil
		}
		return m, m.openForm("New service", m.serviceForm(nil))
	case key.Matches(msg, keys.Edit):
		if !ok {
			return m, nil
		}
		if !caps.EditServices {
			m.showError("Error: " + perm.Denied{Role: caps.Role, Action: "edit services"}.Error())
			return m, nil
		}
		sv := it.row.Service
		return m, m.openForm("Edit "+sv.Name, m.serviceForm(&sv))
	case key.Matches(msg, keys.Delete):
		if !ok {
			return m, nil
		}
		if !caps.DeleteServices {
			m.showError("Error: " + perm.Denied{Role: caps.Role, Action: "delete services"}.Error())
			return m, nil
		}
		id := it.row.Service.ID
		m.openConfirm("Delete service", "Delete service "+it.row.Service.Name+"?", "Delete", func() (state.Op, error) {
			return m.c.DeleteServiceOp(id)
		})
		return m, nil
	case key.Matches(msg, keys.View):
		if !ok {
			return m, nil
		}
		sv := it.row.Service
		body := "# " + sv.Name + "\n\n- Price: " + view.Money(sv.Price) + "\n- Fee: " + view.Money(sv.Fee) + "\n- Charge: " + view.Money(sv.Charge)
		if strings.TrimSpace(sv.Link) != "" {
			body += "\n- Link: " + sv.Link
		}
		if strings.TrimSpace(sv.Note) != "" {
			body += "\n\n" + sv.Note
		}
		m.openPager(modalDetail, sv.Name, body)
		return m, nil
	}
	var cmd tea.Cmd
	m.servicesList, cmd = m.servicesList.Update(msg)
	return m, cmd
}

func (m appModel) updateStaffPage(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.NewUser) {
		caps := m.c.Capabilities()
		if !caps.CreateUsers {
			m.showError("Error: " + perm.Denied{Role: caps.Role, Action: "create users"}.Error())
			return m, nil
		}
		return m, m.openForm("New user", m.userForm())
	}
	var cmd tea.Cmd
	m.usersList, cmd = m.usersList.Update(msg)
	return m, cmd
}

func (m appModel) updateReportsPage(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Markdown) {
		m.reportsMarkdown = !m.reportsMarkdown
		m.reportsView.GotoTop()
		m.refreshLists()
		return m, nil
	}
	if !m.reportsMarkdown {
		return m, nil
	}
	var cmd tea.Cmd
	m.reportsView, cmd = m.reportsView.Update(msg)
	return m, cmd
}

func (m *appModel) reportsMarkdownSource(now time.Time) string {
	user := ""
	if s := m.c.Session(); s != nil {
		user = s.Username
	}
	return publish.ReportsMarkdown(publish.Report{
		GeneratedAt: now,
		User:        user,
		Cards:       view.Reports(m.c, now),
		Overdue:     m.c.Dashboard().Overdue,
	})
}

func (m *appModel) openPager(kind modalKind, title, md string) {
	m.closeModal()
	m.modal = kind
	m.modalTitle = title
	m.pager.SetContent(renderMarkdown(md, m.pager.Width))
	m.pager.GotoTop()
}

func (m *appModel) openPicker(kind modalKind, title string, taskID int, options []string, current string) {
	m.closeModal()
	m.modal = kind
	m.modalTitle = title
	m.pickForID = taskID
	m.pickList.SetItems(optionItems(options, current))
	m.pickList.Select(0)
	if current != "" {
		selectByValue(&m.pickList, current)
	}
}

func (m *appModel) openConfirm(title, body, label string, build func() (state.Op, error)) {
	m.closeModal()
	m.modal = modalConfirm
	m.modalTitle = title
	m.confirmBody = body
	m.confirmLabel = label
	m.confirmFocus = confirmFocusCancel
	m.pendingConfirm = build
}

func (m appModel) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalHelp, modalDetail:
		switch msg.String() {
		case "esc", "q", "enter", "ctrl+g":
			m.closeModal()
			return m, nil
		}
		var cmd tea.Cmd
		m.pager, cmd = m.pager.Update(msg)
		return m, cmd

	case modalForm:
		return m.updateForm(msg)

	case modalReason:
		return m.updateReason(msg)

	case modalPickStatus, modalPickShare:
		switch msg.String() {
		case "esc", "ctrl+g", "q":
			m.closeModal()
			return m, nil
		case "enter":
			it, ok := m.pickList.SelectedItem().(optionItem)
			if !ok {
				m.closeModal()
				return m, nil
			}
			return m.choose(it.value)
		}
		var cmd tea.Cmd
		m.pickList, cmd = m.pickList.Update(msg)
		return m, cmd

	case modalConfirm:
		switch msg.String() {
		case "esc", "ctrl+g", "n":
			m.closeModal()
			return m, nil
		case "tab", "shift+tab", "left", "right", "h", "l":
			if m.confirmFocus == confirmFocusConfirm {
				m.confirmFocus = confirmFocusCancel
			} else {
				m.confirmFocus = confirmFocusConfirm
			}
			return m, nil
		case "y":
			m.confirmFocus = confirmFocusConfirm
			fallthrough
		case "enter":
			build := m.pendingConfirm
			confirmed := m.confirmFocus == confirmFocusConfirm
			m.closeModal()
			if !confirmed || build == nil {
				return m, nil
			}
			op, err := build()
			if err != nil {
				m.showError(errorText(err))
				return m, nil
			}
			return m, m.exec(op)
		}
	}
	return m, nil
}

// choose applies a picker selection for the task the picker was opened on.
func (m appModel) choose(value string) (tea.Model, tea.Cmd) {
	id := m.pickForID
	kind := m.modal
	m.closeModal()

	switch kind {
	case modalPickStatus:
		st := model.Status(value)
		if m.c.NeedsEditReason(id) {
			m.openReason(func(reason string) (state.Op, error) {
				return m.c.SetStatusOp(id, st, reason)
			})
			return m, textinput.Blink
		}
		op, err := m.c.SetStatusOp(id, st, "")
		if err != nil {
			m.showError(errorText(err))
			return m, nil
		}
		return m, m.exec(op)
	case modalPickShare:
		op, err := m.c.ShareTaskOp(id, value)
		if err != nil {
			m.showError(errorText(err))
			return m, nil
		}
		return m, m.exec(op)
	}
	return m, nil
}
