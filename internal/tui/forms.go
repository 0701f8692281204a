package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/state"
	"taskflow-cli/internal/view"
)

// formField is a one-line input, a multi-line area when multiline is set, or, when options
// is set, a value cycled with left/right.
type formField struct {
	key       string
	label     string
	input     textinput.Model
	area      textarea.Model
	multiline bool
	options   []string
	choice    int
}

func (f formField) value() string {
	if f.options != nil {
		if f.choice >= 0 && f.choice < len(f.options) {
			return f.options[f.choice]
		}
		return ""
	}
	if f.multiline {
		return f.area.Value()
	}
	return f.input.Value()
}

type formValues map[string]string

func (v formValues) number(key, label string) (float64, error) {
	s := strings.TrimSpace(v[key])
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, state.ValidationError{Field: key, Message: label + " must be a number"}
	}
	return n, nil
}

type form struct {
	fields []formField
	focus  int

	// build turns the values into an op; reason is the edit reason, "" when none was asked for.
	build func(v formValues, reason string) (state.Op, error)
	// apply replaces build for forms that only change local state (filters).
	apply func(v formValues) error
	// reasonTask is the task whose edit may need a reason first.
	reasonTask int
}

func (f *form) text(key, label, value string) *form {
	in := textinput.New()
	in.Prompt = ""
	in.CharLimit = 500
	in.SetValue(value)
	f.fields = append(f.fields, formField{key: key, label: label, input: in})
	return f
}

// multiline adds a textarea field. Enter inserts a newline there; tab leaves the field.
func (f *form) multiline(key, label, value string) *form {
	ta := textarea.New()
	ta.Prompt = ""
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(multilineRows)
	ta.SetValue(value)
	ta.Blur()
	f.fields = append(f.fields, formField{key: key, label: label, area: ta, multiline: true})
	return f
}

const multilineRows = 4

func (f *form) secret(key, label string) *form {
	f.text(key, label, "")
	in := &f.fields[len(f.fields)-1].input
	in.EchoMode = textinput.EchoPassword
	in.EchoCharacter = '*'
	return f
}

// choice adds a cycled field. A field with no options falls back to free text.
func (f *form) choice(key, label string, options []string, current string) *form {
	if len(options) == 0 {
		return f.text(key, label, current)
	}
	opts := append([]string{}, options...)
	idx := -1
	for i, o := range opts {
		if strings.EqualFold(o, current) {
			idx = i
		}
	}
	if idx < 0 && current != "" {
		opts = append(opts, current)
		idx = len(opts) - 1
	}
	if idx < 0 {
		idx = 0
	}
	f.fields = append(f.fields, formField{key: key, label: label, options: opts, choice: idx})
	return f
}

func (f *form) values() formValues {
	v := formValues{}
	for _, fl := range f.fields {
		v[fl.key] = fl.value()
	}
	return v
}

func (f *form) field(key string) *formField {
	for i := range f.fields {
		if f.fields[i].key == key {
			return &f.fields[i]
		}
	}
	return nil
}

func (f *form) setWidth(w int) {
	for i := range f.fields {
		f.fields[i].input.Width = max(w-20, 10)
		if f.fields[i].multiline {
			f.fields[i].area.SetWidth(max(w-4, 10))
		}
	}
}

// focusField moves focus to i, wrapping around.
func (f *form) focusField(i int) tea.Cmd {
	n := len(f.fields)
	if n == 0 {
		return nil
	}
	f.focus = ((i % n) + n) % n
	var cmd tea.Cmd
	for j := range f.fields {
		fl := &f.fields[j]
		switch {
		case j != f.focus || fl.options != nil:
			fl.input.Blur()
			if fl.multiline {
				fl.area.Blur()
			}
		case fl.multiline:
			cmd = fl.area.Focus()
		default:
			cmd = fl.input.Focus()
		}
	}
	return cmd
}

func (f *form) cycle(delta int) bool {
	fl := &f.fields[f.focus]
	if fl.options == nil {
		return false
	}
	n := len(fl.options)
	fl.choice = ((fl.choice+delta)%n + n) % n
	return true
}

func (f *form) view(bodyW int) string {
	lines := make([]string, 0, len(f.fields))
	for i, fl := range f.fields {
		if fl.multiline {
			lines = append(lines, renderField(bodyW, fl.label, "", i == f.focus))
			lines = append(lines, lipgloss.NewStyle().PaddingLeft(2).Render(fl.area.View()))
			continue
		}
		val := fl.input.View()
		if fl.options != nil {
			val = fmt.Sprintf("< %s >", fl.value())
		}
		lines = append(lines, renderField(bodyW, fl.label, val, i == f.focus))
	}
	return strings.Join(lines, "\n")
}

func (m *appModel) openForm(title string, f *form) tea.Cmd {
	m.closeModal()
	m.modal = modalForm
	m.modalTitle = title
	m.form = f
	f.setWidth(modalBodyWidth(m.width))
	return f.focusField(0)
}

func (m *appModel) staffChoices() []string {
	return m.c.StaffNames()
}

func (m *appModel) serviceChoices() []string {
	var names []string
	for _, sv := range m.c.Services() {
		names = append(names, sv.Name)
	}
	return names
}

func statusChoices() []string {
	out := make([]string, 0, len(model.Statuses))
	for _, s := range model.Statuses {
		out = append(out, string(s))
	}
	return out
}

func (m *appModel) newTaskForm() *form {
	c := m.c
	f := &form{}
	f.text("customer_name", "Customer", "").
		text("contact_number", "Contact", "").
		choice("service_type", "Service", m.serviceChoices(), "").
		choice("assigned_to", "Assigned to", m.staffChoices(), "").
		choice("branch_code", "Branch", m.branches, "").
		choice("paymode", "Paymode", m.paymodes, "Cash").
		text("service_price", "Price", "").
		text("paid_amount", "Paid", "").
		text("service_charge", "Charge", "").
		multiline("description", "Description", "")
	fillServiceDefaults(c, f)
	f.build = func(v formValues, _ string) (state.Op, error) {
		in := api.TaskInput{
			CustomerName:  v["customer_name"],
			ContactNumber: v["contact_number"],
			ServiceType:   v["service_type"],
			AssignedTo:    v["assigned_to"],
			Branch:        v["branch_code"],
			Paymode:       v["paymode"],
			Description:   v["description"],
		}
		var err error
		if in.ServicePrice, err = v.number("service_price", "Price"); err != nil {
			return state.Op{}, err
		}
		if in.PaidAmount, err = v.number("paid_amount", "Paid"); err != nil {
			return state.Op{}, err
		}
		if in.ServiceCharge, err = v.number("service_charge", "Charge"); err != nil {
			return state.Op{}, err
		}
		return c.CreateTaskOp(in)
	}
	return f
}

// editTaskForm shows every field to admins and managers, and the four fields staff may change to staff.
func (m *appModel) editTaskForm(t model.Task) *form {
	c := m.c
	full := c.Capabilities().EditAllFields
	f := &form{reasonTask: t.ID}
	if full {
		f.text("customer_name", "Customer", t.CustomerName).
			text("contact_number", "Contact", t.ContactNumber).
			choice("service_type", "Service", m.serviceChoices(), t.ServiceType).
			choice("assigned_to", "Assigned to", m.staffChoices(), t.AssignedTo).
			choice("branch_code", "Branch", m.branches, t.Branch).
			choice("paymode", "Paymode", m.paymodes, t.Paymode).
			text("service_price", "Price", view.Money(t.ServicePrice))
	}
	f.choice("status", "Status", statusChoices(), string(t.Status)).
		text("paid_amount", "Paid", view.Money(t.PaidAmount)).
		text("service_charge", "Charge", view.Money(t.ServiceCharge)).
		multiline("description", "Description", t.Description)

	f.build = func(v formValues, reason string) (state.Op, error) {
		var p api.TaskPatch
		str := func(key string) *string {
			if _, ok := v[key]; !ok {
				return nil
			}
			s := v[key]
			return &s
		}
		num := func(key, label string) (*float64, error) {
			if _, ok := v[key]; !ok {
				return nil, nil
			}
			n, err := v.number(key, label)
			return &n, err
		}
		p.CustomerName = str("customer_name")
		p.ContactNumber = str("contact_number")
		p.ServiceType = str("service_type")
		p.AssignedTo = str("assigned_to")
		p.Branch = str("branch_code")
		p.Paymode = str("paymode")
		p.Description = str("description")
		if s := str("status"); s != nil {
			st := model.Status(*s)
			p.Status = &st
		}
		var err error
		if p.ServicePrice, err = num("service_price", "Price"); err != nil {
			return state.Op{}, err
		}
		if p.PaidAmount, err = num("paid_amount", "Paid"); err != nil {
			return state.Op{}, err
		}
		if p.ServiceCharge, err = num("service_charge", "Charge"); err != nil {
			return state.Op{}, err
		}
		return c.UpdateTaskOp(t.ID, p, reason)
	}
	return f
}

// fillServiceDefaults copies the selected service's price and charge into the form.
func fillServiceDefaults(c *state.Controller, f *form) {
	svc := f.field("service_type")
	if svc == nil {
		return
	}
	sv, ok := c.ServiceByName(svc.value())
	if !ok {
		return
	}
	if fl := f.field("service_price"); fl != nil {
		fl.input.SetValue(view.Money(sv.Price))
	}
	if fl := f.field("service_charge"); fl != nil {
		fl.input.SetValue(view.Money(sv.Charge))
	}
}

func (m *appModel) serviceForm(sv *model.Service) *form {
	c := m.c
	f := &form{}
	var cur model.Service
	if sv != nil {
		cur = *sv
	}
	money := func(v float64) string {
		if sv == nil {
			return ""
		}
		return view.Money(v)
	}
	f.text("name", "Name", cur.Name).
		text("price", "Price", money(cur.Price)).
		text("fee", "Fee", money(cur.Fee)).
		text("charge", "Charge", money(cur.Charge)).
		text("link", "Link", cur.Link).
		multiline("note", "Note", cur.Note)
	f.build = func(v formValues, _ string) (state.Op, error) {
		in := api.ServiceInput{Name: v["name"], Link: v["link"], Note: v["note"]}
		var err error
		if in.Price, err = v.number("price", "Price"); err != nil {
			return state.Op{}, err
		}
		if in.Fee, err = v.number("fee", "Fee"); err != nil {
			return state.Op{}, err
		}
		if in.Charge, err = v.number("charge", "Charge"); err != nil {
			return state.Op{}, err
		}
		if sv == nil {
			return c.CreateServiceOp(in)
		}
		return c.UpdateServiceOp(cur.ID, in)
	}
	return f
}

func (m *appModel) userForm() *form {
	c := m.c
	f := &form{}
	f.text("username", "Username", "").
		text("email", "Email", "").
		secret("password", "Password").
		choice("role", "Role", []string{string(model.RoleStaff), string(model.RoleManager), string(model.RoleAdmin)}, "")
	f.build = func(v formValues, _ string) (state.Op, error) {
		return c.CreateUserOp(api.NewUser{
			Username: v["username"],
			Email:    v["email"],
			Password: v["password"],
			Role:     model.Role(v["role"]),
		})
	}
	return f
}

func (m *appModel) filterForm() *form {
	c := m.c
	cur := c.Filter()
	withAll := func(vals []string) []string {
		out := []string{model.FilterAll}
		seen := map[string]bool{}
		for _, v := range vals {
			if v = strings.TrimSpace(v); v != "" && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
		return out
	}
	var branches, services []string
	branches = append(branches, m.branches...)
	services = append(services, m.serviceChoices()...)
	for _, t := range c.Tasks() {
		branches = append(branches, t.Branch)
		services = append(services, t.ServiceType)
	}

	f := &form{}
	f.choice("date", "Date", model.DatePresets, cur.Date).
		choice("branch", "Branch", withAll(branches), cur.Branch).
		choice("staff", "Staff", withAll(m.staffChoices()), cur.Staff).
		choice("status", "Status", withAll(statusChoices()), cur.Status).
		choice("service", "Service", withAll(services), cur.Service)
	f.apply = func(v formValues) error {
		c.ApplyFilters(model.Filter{
			Date:    v["date"],
			Branch:  v["branch"],
			Staff:   v["staff"],
			Status:  v["status"],
			Service: v["service"],
		})
		return nil
	}
	return f
}

func (m appModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.form
	if f == nil {
		m.closeModal()
		return m, nil
	}
	fl := &f.fields[f.focus]
	if fl.multiline {
		switch msg.String() {
		case "esc", "ctrl+g", "tab", "shift+tab", "ctrl+s":
		default:
			var cmd tea.Cmd
			fl.area, cmd = fl.area.Update(msg)
			return m, cmd
		}
	}
	switch msg.String() {
	case "esc", "ctrl+g":
		m.closeModal()
		m.showMinibuffer("Cancelled")
		return m, nil
	case "tab", "down":
		return m, f.focusField(f.focus + 1)
	case "shift+tab", "up":
		return m, f.focusField(f.focus - 1)
	case "left", "right":
		delta := 1
		if msg.String() == "left" {
			delta = -1
		}
		if f.cycle(delta) {
			if f.fields[f.focus].key == "service_type" {
				fillServiceDefaults(m.c, f)
			}
			return m, nil
		}
	case "ctrl+s":
		return m.submitForm()
	case "enter":
		if f.focus == len(f.fields)-1 {
			return m.submitForm()
		}
		return m, f.focusField(f.focus + 1)
	}

	if fl.options != nil {
		return m, nil
	}
	var cmd tea.Cmd
	fl.input, cmd = fl.input.Update(msg)
	return m, cmd
}

func (m appModel) submitForm() (tea.Model, tea.Cmd) {
	f := m.form
	v := f.values()
	if f.apply != nil {
		if err := f.apply(v); err != nil {
			m.showError(errorText(err))
			return m, nil
		}
		m.closeModal()
		m.refreshLists()
		m.showMinibuffer("Filters: " + emptyAs(view.FilterSummary(m.c.Filter()), "none"))
		return m, nil
	}
	if f.reasonTask != 0 && m.c.NeedsEditReason(f.reasonTask) {
		build := f.build
		m.openReason(func(reason string) (state.Op, error) { return build(v, reason) })
		return m, textinput.Blink
	}
	op, err := f.build(v, "")
	if err != nil {
		m.showError(errorText(err))
		return m, nil
	}
	m.closeModal()
	return m, m.exec(op)
}

// openReason asks for the mandatory edit reason before running build.
func (m *appModel) openReason(build func(reason string) (state.Op, error)) {
	m.closeModal()
	m.modal = modalReason
	m.modalTitle = "Reason for editing"
	m.pendingReason = build
	m.reasonInput.SetValue("")
	m.reasonInput.Focus()
}

func (m appModel) updateReason(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g":
		m.closeModal()
		m.showMinibuffer("Edit cancelled")
		return m, nil
	case "enter":
		if m.pendingReason == nil {
			m.closeModal()
			return m, nil
		}
		op, err := m.pendingReason(m.reasonInput.Value())
		if err != nil {
			// The modal stays open so the reason can be corrected.
			m.showError(errorText(err))
			return m, nil
		}
		m.closeModal()
		return m, m.exec(op)
	}
	var cmd tea.Cmd
	m.reasonInput, cmd = m.reasonInput.Update(msg)
	return m, cmd
}
