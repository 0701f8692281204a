package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"taskflow-cli/internal/perm"
	"taskflow-cli/internal/view"
)

func (m appModel) View() string {
	var body string
	if !m.c.SignedIn() {
		body = m.viewLogin()
	} else {
		header := m.viewHeader()
		content := normalizePane(m.viewPage(), m.width, max(m.height-headerLines-footerLines, 1))
		body = header + "\n" + content + "\n" + m.viewFooter()
	}
	if box := m.viewModal(); box != "" {
		return overlay(body, box, m.width, m.height)
	}
	return body
}

func (m appModel) viewLogin() string {
	w := min(m.width, 60)
	title := styleHeading().Render("TaskFlow")
	sub := styleMuted().Render("Sign in to " + m.c.Backend().BaseURL())
	fieldW := max(w-4, 30)
	lines := []string{
		title,
		sub,
		"",
		renderField(fieldW, "Username", m.userInput.View(), m.loginFocus == loginFocusUser),
		renderField(fieldW, "Password", m.passInput.View(), m.loginFocus == loginFocusPass),
		"",
		styleMuted().Render("tab: switch field   enter: sign in   esc: quit"),
	}
	if m.minibufferText != "" {
		lines = append(lines, "", m.viewMinibuffer())
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorCardBorder).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m appModel) viewHeader() string {
	user := ""
	if s := m.c.Session(); s != nil {
		user = fmt.Sprintf("%s (%s)", s.Username, s.Role)
	}
	var nav []string
	for _, it := range view.Nav(m.c) {
		label := it.Key + " " + it.Label
		if it.Active {
			nav = append(nav, lipgloss.NewStyle().Foreground(colorAccentFg).Background(colorAccent).Bold(true).Padding(0, 1).Render(label))
		} else {
			nav = append(nav, styleMuted().Padding(0, 1).Render(label))
		}
	}
	busy := ""
	if m.busy > 0 {
		busy = " " + m.spinner.View()
	}
	top := styleHeading().Render("TaskFlow") + "  " + styleMuted().Render(user) + busy
	rule := styleMuted().Render(strings.Repeat(glyphHRule(), max(m.width, 1)))
	return fit(top, m.width) + "\n" + fit(strings.Join(nav, ""), m.width) + "\n" + rule
}

func (m appModel) viewPage() string {
	switch m.c.Page() {
	case perm.PageDashboard:
		return m.viewDashboard()
	case perm.PageTasks:
		return m.viewTasks()
	case perm.PageStaffPanel:
		return m.viewStaffPanel()
	case perm.PageReports:
		return m.viewReports()
	case perm.PageDatabase:
		return m.viewServices()
	case perm.PageStaff:
		return m.viewUsers()
	}
	return ""
}

func renderCards(cards []view.Card, width int) string {
	if len(cards) == 0 {
		return ""
	}
	cw := max(width/len(cards)-2, 12)
	var boxes []string
	for _, c := range cards {
		boxes = append(boxes, lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorCardBorder).
			Width(cw).
			Render(styleMuted().Render(c.Label)+"\n"+lipgloss.NewStyle().Bold(true).Render(c.Value)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (m appModel) viewDashboard() string {
	d := view.Dashboard(m.c)
	var b strings.Builder
	b.WriteString(renderCards(d.Cards, m.width))
	b.WriteString("\n\n")
	b.WriteString(styleHeading().Render("Top performers"))
	b.WriteString("\n")
	if len(d.TopPerformers) == 0 {
		b.WriteString(styleMuted().Render("  No completed tasks yet."))
		b.WriteString("\n")
	}
	for _, p := range d.TopPerformers {
		line := fmt.Sprintf("  %s %-16s %3d completed  score %s", glyphBullet(), p.Name, p.Completed, p.Score)
		if p.Revenue != nil {
			line += "  revenue " + view.Money(*p.Revenue)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	b.WriteString(styleHeading().Render("Overdue"))
	b.WriteString("\n")
	if len(d.Overdue) == 0 {
		b.WriteString(styleMuted().Render("  Nothing overdue."))
	}
	for _, o := range d.Overdue {
		b.WriteString(styleError().Render(fmt.Sprintf("  %s %-8s %-18s %-12s %s", glyphWarning(), o.OrderNo, o.CustomerName, o.AssignedTo, o.Status)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m appModel) viewTasks() string {
	var top string
	switch {
	case m.searching:
		top = m.searchInput.View()
	default:
		parts := []string{fmt.Sprintf("%d tasks", len(m.tasksList.Items()))}
		if s := view.FilterSummary(m.c.Filter()); s != "" {
			parts = append(parts, "filters: "+s)
		}
		if t := m.c.SearchTerm(); t != "" {
			parts = append(parts, "search: "+t)
		}
		top = styleMuted().Render(strings.Join(parts, "   "))
	}
	if len(m.tasksList.Items()) == 0 {
		return top + "\n\n" + styleMuted().Render("  No tasks match.")
	}
	return top + "\n" + renderTaskHeader(m.width) + "\n" + m.tasksList.View()
}

func (m appModel) viewStaffPanel() string {
	p := view.StaffPanel(m.c, m.c.Now())
	out := renderCards(p.Cards, m.width) + "\n"
	if len(m.panelList.Items()) == 0 {
		return out + "\n" + styleMuted().Render("  Nothing assigned, shared or claimed.")
	}
	return out + renderTaskHeader(m.width) + "\n" + m.panelList.View()
}

func (m appModel) viewReports() string {
	if m.reportsMarkdown {
		return styleMuted().Render("markdown view (m: table)") + "\n" + m.reportsView.View()
	}
	cards := view.Reports(m.c, m.c.Now())
	withRevenue := false
	for _, c := range cards {
		if c.Revenue != nil {
			withRevenue = true
		}
	}
	head := fmt.Sprintf("%-16s %7s %9s %7s %7s", "Staff", "Total", "Completed", "Pending", "Overdue")
	if withRevenue {
		head += fmt.Sprintf(" %10s", "Revenue")
	}
	lines := []string{styleMuted().Render("per staff (m: markdown)"), styleMuted().Bold(true).Render(head)}
	if len(cards) == 0 {
		lines = append(lines, styleMuted().Render("  No staff."))
	}
	for _, c := range cards {
		line := fmt.Sprintf("%-16s %7d %9d %7d %7d", c.Name, c.Total, c.Completed, c.Pending, c.Overdue)
		if c.Revenue != nil {
			line += fmt.Sprintf(" %10s", view.Money(*c.Revenue))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m appModel) viewServices() string {
	if len(m.servicesList.Items()) == 0 {
		return styleMuted().Render("  No services.")
	}
	return styleMuted().Render(fmt.Sprintf("%d services", len(m.servicesList.Items()))) + "\n" + m.servicesList.View()
}

func (m appModel) viewUsers() string {
	if len(m.usersList.Items()) == 0 {
		return styleMuted().Render("  No users loaded.")
	}
	return styleMuted().Render(fmt.Sprintf("%d users", len(m.usersList.Items()))) + "\n" + m.usersList.View()
}

func (m appModel) viewMinibuffer() string {
	if m.minibufferErr {
		return styleError().Render(m.minibufferText)
	}
	return lipgloss.NewStyle().Foreground(colorSuccess).Render(m.minibufferText)
}

// footerHelp lists the keys that work on the current page for the current role.
func (m appModel) footerHelp() string {
	caps := m.c.Capabilities()
	var bs []key.Binding
	switch m.c.Page() {
	case perm.PageTasks, perm.PageStaffPanel:
		if m.c.Page() == perm.PageTasks {
			bs = append(bs, keys.Search, keys.Filter, keys.Clear)
		}
		bs = append(bs, keys.New, keys.Edit, keys.Status, keys.Share, keys.TakeOver, keys.View, keys.Copy)
		if caps.DeleteTasks {
			bs = append(bs, keys.Delete)
		}
	case perm.PageDatabase:
		if caps.EditServices {
			bs = append(bs, keys.New, keys.Edit)
		}
		if caps.DeleteServices {
			bs = append(bs, keys.Delete)
		}
		bs = append(bs, keys.View)
	case perm.PageStaff:
		if caps.CreateUsers {
			bs = append(bs, keys.NewUser)
		}
	case perm.PageReports:
		bs = append(bs, keys.Markdown)
	}
	bs = append(bs, keys.Refresh, keys.Help, keys.Logout, keys.Quit)
	return styleMuted().Render(helpLine(bs...))
}

func (m appModel) viewFooter() string {
	rule := styleMuted().Render(strings.Repeat(glyphHRule(), max(m.width, 1)))
	line := m.footerHelp()
	if m.minibufferText != "" {
		line = m.viewMinibuffer()
	}
	return rule + "\n" + fit(line, m.width)
}

func (m appModel) viewModal() string {
	w := m.width
	bodyW := modalBodyWidth(w)
	switch m.modal {
	case modalHelp, modalDetail:
		help := styleMuted().Render("↑/↓ scroll   esc: close")
		return renderModalBox(w, m.modalTitle, m.pager.View()+"\n\n"+help)
	case modalForm:
		if m.form == nil {
			return ""
		}
		help := styleMuted().Width(bodyW).Render("tab: next   ←/→: choose   ctrl+s: save   esc: cancel")
		return renderModalBox(w, m.modalTitle, m.form.view(bodyW)+"\n\n"+help)
	case modalPickStatus, modalPickShare:
		help := styleMuted().Render("enter: choose   esc: cancel")
		return renderModalBox(w, m.modalTitle, m.pickList.View()+"\n\n"+help)
	case modalReason:
		body := "This task was edited before. Say why it is being changed again.\n\n" +
			renderInputLine(bodyW, m.reasonInput.View()) + "\n\n" +
			styleMuted().Render("enter: save   esc: cancel")
		return renderModalBox(w, m.modalTitle, body)
	case modalConfirm:
		return renderConfirmModal(w, m.modalTitle, m.confirmBody, m.confirmLabel, "Cancel", m.confirmFocus)
	}
	return ""
}
