package state

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/perm"
	"taskflow-cli/internal/statusutil"
)

const dateLayout = "2006-01-02"

func (c *Controller) LoadTasksOp() Op {
	return c.op("load tasks", nil, refreshTasks)
}

func (c *Controller) LoadTasks(ctx context.Context) error {
	return c.run(ctx, c.LoadTasksOp(), c.requireSession())
}

// ApplyFilters replaces the active filter set. Blank fields mean "all".
func (c *Controller) ApplyFilters(f model.Filter) {
	norm := func(v string) string {
		if model.IsAll(v) {
			return model.FilterAll
		}
		return strings.TrimSpace(v)
	}
	c.filter = model.Filter{
		Date:    norm(f.Date),
		Branch:  norm(f.Branch),
		Staff:   norm(f.Staff),
		Status:  norm(f.Status),
		Service: norm(f.Service),
	}
	c.rev++
}

// Search sets the display-layer search term; matching happens on rendered rows.
func (c *Controller) Search(term string) {
	c.search = strings.TrimSpace(term)
	c.rev++
}

// FilteredTasks returns the cached tasks that satisfy every active filter, newest first.
// The cache itself is left untouched.
func (c *Controller) FilteredTasks(now time.Time) []model.Task {
	out := make([]model.Task, 0, len(c.tasks))
	for _, t := range c.tasks {
		if MatchesFilter(t, c.filter, now) {
			out = append(out, t)
		}
	}
	SortTasks(out)
	return out
}

// MatchesFilter reports whether t satisfies every non-"all" field of f.
func MatchesFilter(t model.Task, f model.Filter, now time.Time) bool {
	if !model.IsAll(f.Branch) && t.Branch != f.Branch {
		return false
	}
	if !model.IsAll(f.Staff) && t.AssignedTo != f.Staff {
		return false
	}
	if !model.IsAll(f.Status) && string(t.Status) != f.Status {
		return false
	}
	if !model.IsAll(f.Service) && t.ServiceType != f.Service {
		return false
	}
	if !model.IsAll(f.Date) && !matchesDate(t, f.Date, now) {
		return false
	}
	return true
}

func matchesDate(t model.Task, preset string, now time.Time) bool {
	day, ok := taskDay(t, now.Location())
	if !ok {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch preset {
	case model.DateToday:
		return day.Equal(today)
	case model.DateYesterday:
		return day.Equal(today.AddDate(0, 0, -1))
	case model.DateTomorrow:
		return day.Equal(today.AddDate(0, 0, 1))
	case model.DateLast30:
		return !day.Before(today.AddDate(0, 0, -30)) && !day.After(today)
	}
	return false
}

// taskDay is the task's calendar day: task_date when present, else the creation day.
func taskDay(t model.Task, loc *time.Location) (time.Time, bool) {
	if s := strings.TrimSpace(t.TaskDate); s != "" {
		if d, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
			return d, true
		}
	}
	if t.Timestamp.IsZero() {
		return time.Time{}, false
	}
	y, m, d := t.Timestamp.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), true
}

// SortTasks orders by creation time descending, then id descending.
func SortTasks(ts []model.Task) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := ts[i].Timestamp.Time, ts[j].Timestamp.Time
		if !a.Equal(b) {
			return a.After(b)
		}
		return ts[i].ID > ts[j].ID
	})
}

// FindTask looks a cached task up by numeric id or order number (TF-001).
func (c *Controller) FindTask(ref string) (model.Task, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Task{}, invalid("task", "task reference is required")
	}
	if id, err := strconv.Atoi(ref); err == nil {
		if t := c.task(id); t != nil {
			return *t, nil
		}
		return model.Task{}, errNotFound("task", ref)
	}
	for _, t := range c.tasks {
		if strings.EqualFold(t.OrderNo, ref) {
			return t, nil
		}
	}
	return model.Task{}, errNotFound("task", ref)
}

func (c *Controller) task(id int) *model.Task {
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			return &c.tasks[i]
		}
	}
	return nil
}

func (c *Controller) editableTask(id int) (*model.Task, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	t := c.task(id)
	if t == nil {
		return nil, errNotFound("task", strconv.Itoa(id))
	}
	if !perm.CanEditTask(c.session, t) {
		return nil, perm.Denied{Role: c.session.Role, Action: "edit " + t.OrderNo}
	}
	return t, nil
}

// ServiceDefaults copies price and charge from the named service into in.
// It reports whether the service was found.
func (c *Controller) ServiceDefaults(in *api.TaskInput, serviceName string) bool {
	sv, ok := c.ServiceByName(serviceName)
	if !ok {
		return false
	}
	in.ServiceType = sv.Name
	in.ServicePrice = sv.Price
	in.ServiceCharge = sv.Charge
	return true
}

// CreateTaskOp validates the create form.
func (c *Controller) CreateTaskOp(in api.TaskInput) (Op, error) {
	if err := c.requireSession(); err != nil {
		return Op{}, err
	}
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)
	in.ServiceType = strings.TrimSpace(in.ServiceType)
	in.AssignedTo = strings.TrimSpace(in.AssignedTo)
	in.Branch = strings.TrimSpace(in.Branch)
	in.Paymode = strings.TrimSpace(in.Paymode)
	required := []struct{ field, value string }{
		{"customer_name", in.CustomerName},
		{"contact_number", in.ContactNumber},
		{"service_type", in.ServiceType},
		{"assigned_to", in.AssignedTo},
		{"branch_code", in.Branch},
	}
	for _, r := range required {
		if r.value == "" {
			return Op{}, invalid(r.field, "is required")
		}
	}
	if err := nonNegative("service_price", in.ServicePrice); err != nil {
		return Op{}, err
	}
	if err := nonNegative("paid_amount", in.PaidAmount); err != nil {
		return Op{}, err
	}
	if err := nonNegative("service_charge", in.ServiceCharge); err != nil {
		return Op{}, err
	}
	if in.Paymode == "" {
		in.Paymode = "Cash"
	}
	op := c.op("create task", func(ctx context.Context, b Backend, _ *Result) error {
		return b.CreateTask(ctx, in)
	}, refreshTasks)
	op.Done = "Task created for " + in.CustomerName
	return op, nil
}

func (c *Controller) CreateTask(ctx context.Context, in api.TaskInput) error {
	op, err := c.CreateTaskOp(in)
	return c.run(ctx, op, err)
}

// UpdateTaskOp validates an edit. Unchanged fields are dropped from the patch; staff
// may only touch status, description, paid amount and service charge, and must give a
// reason when the task was already edited.
func (c *Controller) UpdateTaskOp(id int, p api.TaskPatch, reason string) (Op, error) {
	t, err := c.editableTask(id)
	if err != nil {
		return Op{}, err
	}
	p = changedFields(*t, p)
	if c.session.Role == model.RoleStaff {
		if f := staffForbiddenField(p); f != "" {
			return Op{}, invalid(f, "staff may only change status, description, paid amount and service charge")
		}
	}
	if p.Empty() {
		return Op{}, invalid("", "no changes to save")
	}
	if p.Status != nil && !statusutil.ValidStatus(*p.Status) {
		return Op{}, invalid("status", fmt.Sprintf("unknown status %q", *p.Status))
	}
	for _, n := range []struct {
		field string
		v     *float64
	}{{"service_price", p.ServicePrice}, {"paid_amount", p.PaidAmount}, {"service_charge", p.ServiceCharge}} {
		if n.v != nil {
			if err := nonNegative(n.field, *n.v); err != nil {
				return Op{}, err
			}
		}
	}
	if p, err = c.withReason(t, p, reason); err != nil {
		return Op{}, err
	}
	op := c.op("update task", func(ctx context.Context, b Backend, _ *Result) error {
		return b.UpdateTask(ctx, id, p)
	}, refreshTasks)
	op.Done = "Updated " + t.OrderNo
	return op, nil
}

func (c *Controller) UpdateTask(ctx context.Context, id int, p api.TaskPatch, reason string) error {
	op, err := c.UpdateTaskOp(id, p, reason)
	return c.run(ctx, op, err)
}

// NeedsEditReason reports whether saving an edit of task id needs a reason first.
func (c *Controller) NeedsEditReason(id int) bool {
	return perm.NeedsEditReason(c.session, c.task(id))
}

func (c *Controller) withReason(t *model.Task, p api.TaskPatch, reason string) (api.TaskPatch, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" && perm.NeedsEditReason(c.session, t) {
		return p, invalid("edit_reason", "a reason is required to edit a task that was already edited")
	}
	if reason != "" {
		p.EditReason = &reason
	}
	return p, nil
}

// SetStatusOp changes only the status. For staff the cache is patched once the
// backend confirms; other roles refetch the list.
func (c *Controller) SetStatusOp(id int, status model.Status, reason string) (Op, error) {
	t, err := c.editableTask(id)
	if err != nil {
		return Op{}, err
	}
	if !statusutil.ValidStatus(status) {
		return Op{}, invalid("status", fmt.Sprintf("unknown status %q", status))
	}
	if t.Status == status {
		return Op{}, invalid("status", "task is already "+string(status))
	}
	p, err := c.withReason(t, api.TaskPatch{Status: &status}, reason)
	if err != nil {
		return Op{}, err
	}
	from := t.Status
	call := func(ctx context.Context, b Backend, _ *Result) error {
		return b.UpdateTask(ctx, id, p)
	}
	var op Op
	if c.session.Role == model.RoleStaff {
		op = c.op("set status", call, 0)
		op.patch = func(c *Controller) {
			if t := c.task(id); t != nil {
				t.Status = status
				t.Edited = true
				if p.EditReason != nil {
					t.EditReason = *p.EditReason
				} else {
					t.EditReason = fmt.Sprintf("status changed from %s to %s", from, status)
				}
			}
		}
	} else {
		op = c.op("set status", call, refreshTasks)
	}
	op.Done = fmt.Sprintf("%s is now %s", t.OrderNo, status)
	return op, nil
}

func (c *Controller) SetStatus(ctx context.Context, id int, status model.Status, reason string) error {
	op, err := c.SetStatusOp(id, status, reason)
	return c.run(ctx, op, err)
}

func (c *Controller) DeleteTaskOp(id int) (Op, error) {
	if err := c.requireSession(); err != nil {
		return Op{}, err
	}
	if !c.caps.DeleteTasks {
		return Op{}, perm.Denied{Role: c.session.Role, Action: "delete tasks"}
	}
	t := c.task(id)
	if t == nil {
		return Op{}, errNotFound("task", strconv.Itoa(id))
	}
	op := c.op("delete task", func(ctx context.Context, b Backend, _ *Result) error {
		return b.DeleteTask(ctx, id)
	}, refreshTasks)
	op.patch = func(c *Controller) {
		if c.takenOver[id] {
			delete(c.takenOver, id)
			c.persistTakeovers()
		}
	}
	op.Done = "Deleted " + t.OrderNo
	return op, nil
}

func (c *Controller) DeleteTask(ctx context.Context, id int) error {
	op, err := c.DeleteTaskOp(id)
	return c.run(ctx, op, err)
}

// ShareTaskOp adds staffName to the task's sharing set.
func (c *Controller) ShareTaskOp(id int, staffName string) (Op, error) {
	staffName = strings.TrimSpace(staffName)
	if staffName == "" {
		return Op{}, invalid("staff_name", "staff name is required")
	}
	t, err := c.editableTask(id)
	if err != nil {
		return Op{}, err
	}
	if staffName == t.AssignedTo {
		return Op{}, invalid("staff_name", t.OrderNo+" is already assigned to "+staffName)
	}
	op := c.op("share task", func(ctx context.Context, b Backend, _ *Result) error {
		return b.ShareTask(ctx, id, staffName)
	}, refreshTasks)
	op.Done = fmt.Sprintf("Shared %s with %s", t.OrderNo, staffName)
	return op, nil
}

func (c *Controller) ShareTask(ctx context.Context, id int, staffName string) error {
	op, err := c.ShareTaskOp(id, staffName)
	return c.run(ctx, op, err)
}

func nonNegative(field string, v float64) error {
	if v < 0 {
		return invalid(field, "must not be negative")
	}
	return nil
}

// changedFields drops patch fields equal to the task's current value.
func changedFields(t model.Task, p api.TaskPatch) api.TaskPatch {
	str := func(v *string, cur string) *string {
		if v == nil || strings.TrimSpace(*v) == cur {
			return nil
		}
		s := strings.TrimSpace(*v)
		return &s
	}
	num := func(v *float64, cur float64) *float64 {
		if v == nil || *v == cur {
			return nil
		}
		return v
	}
	out := api.TaskPatch{
		CustomerName:  str(p.CustomerName, t.CustomerName),
		ContactNumber: str(p.ContactNumber, t.ContactNumber),
		ServiceType:   str(p.ServiceType, t.ServiceType),
		AssignedTo:    str(p.AssignedTo, t.AssignedTo),
		Branch:        str(p.Branch, t.Branch),
		Paymode:       str(p.Paymode, t.Paymode),
		ServicePrice:  num(p.ServicePrice, t.ServicePrice),
		PaidAmount:    num(p.PaidAmount, t.PaidAmount),
		ServiceCharge: num(p.ServiceCharge, t.ServiceCharge),
		Description:   str(p.Description, t.Description),
	}
	if p.Status != nil && *p.Status != t.Status {
		s := *p.Status
		out.Status = &s
	}
	return out
}

func staffForbiddenField(p api.TaskPatch) string {
	switch {
	case p.CustomerName != nil:
		return "customer_name"
	case p.ContactNumber != nil:
		return "contact_number"
	case p.ServiceType != nil:
		return "service_type"
	case p.AssignedTo != nil:
		return "assigned_to"
	case p.Branch != nil:
		return "branch_code"
	case p.Paymode != nil:
		return "paymode"
	case p.ServicePrice != nil:
		return "service_price"
	}
	return ""
}
