package model

import (
	"encoding/json"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff:
		return true
	}
	return false
}

type Status string

const (
	StatusReceived   Status = "Received"
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusHold       Status = "Hold"
	StatusCancelled  Status = "Cancelled"
)

// Statuses lists every task status in lifecycle order.
var Statuses = []Status{
	StatusReceived,
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusHold,
	StatusCancelled,
}

// Session is the authenticated user as returned by POST /api/login.
type Session struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Email    string `json:"email"`
}

func (s *Session) Valid() bool {
	return s != nil && strings.TrimSpace(s.Username) != "" && s.Role.Valid()
}

type User struct {
	ID        int        `json:"id"`
	Username  string     `json:"username"`
	Role      Role       `json:"role"`
	Email     string     `json:"email"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

// Staff is the picker-facing projection of a user.
type Staff struct {
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	Email string `json:"email,omitempty"`
}

type Task struct {
	ID            int       `json:"id"`
	OrderNo       string    `json:"order_no"`
	CustomerName  string    `json:"customer_name"`
	ContactNumber string    `json:"contact_number"`
	ServiceType   string    `json:"service_type"`
	Status        Status    `json:"status"`
	AssignedTo    string    `json:"assigned_to"`
	Branch        string    `json:"branch_code"`
	Paymode       string    `json:"paymode"`
	ServicePrice  float64   `json:"service_price"`
	PaidAmount    float64   `json:"paid_amount"`
	ServiceCharge float64   `json:"service_charge"`
	Description   string    `json:"description"`
	Edited        bool      `json:"edited"`
	EditReason    string    `json:"edit_reason"`
	SharedWith    []string  `json:"shared_with"`
	TaskDate      string    `json:"task_date,omitempty"` // YYYY-MM-DD
	Timestamp     Timestamp `json:"created_at"`
	UpdatedAt     Timestamp `json:"updated_at"`
}

// UnmarshalJSON normalizes the sharing set: the assignee and duplicates are dropped.
func (t *Task) UnmarshalJSON(b []byte) error {
	type wire Task
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*t = Task(w)
	t.SharedWith = NormalizeShared(t.AssignedTo, t.SharedWith)
	return nil
}

// NormalizeShared returns names with blanks, duplicates and the assignee removed, order preserved.
func NormalizeShared(assignedTo string, names []string) []string {
	out := make([]string, 0, len(names))
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || n == assignedTo || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func (t Task) IsSharedWith(username string) bool {
	for _, n := range t.SharedWith {
		if n == username {
			return true
		}
	}
	return false
}

type Service struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Price     float64    `json:"price"`
	Fee       float64    `json:"fee"`
	Charge    float64    `json:"charge"`
	Link      string     `json:"link"`
	Note      string     `json:"note"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

type Stats struct {
	TotalTasks     int     `json:"total_tasks"`
	TasksToday     int     `json:"tasks_today"`
	CompletedTasks int     `json:"completed_tasks"`
	TotalRevenue   float64 `json:"total_revenue"`
	OverdueTasks   int     `json:"overdue_tasks"`
}

type TopPerformer struct {
	Name           string  `json:"name"`
	CompletedTasks int     `json:"completed_tasks"`
	TotalRevenue   float64 `json:"total_revenue"`
	Score          float64 `json:"score"`
}

type OverdueTask struct {
	OrderNo      string `json:"order_no"`
	CustomerName string `json:"customer_name"`
	ServiceType  string `json:"service_type"`
	Status       Status `json:"status"`
	AssignedTo   string `json:"assigned_to"`
	TaskDate     string `json:"task_date,omitempty"`
	HoursOverdue int    `json:"hours_overdue"`
}

// Timestamp decodes the backend's zone-less ISO timestamps as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil {
		ts.Time = time.Time{}
		return nil
	}
	t, ok := ParseTimestamp(*s)
	if !ok {
		return &time.ParseError{Value: *s, Layout: time.RFC3339, Message: ": unrecognized timestamp"}
	}
	ts.Time = t
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339))
}

func At(t time.Time) Timestamp { return Timestamp{Time: t.UTC()} }
