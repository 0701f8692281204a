package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"taskflow-cli/internal/model"
)

type loginResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	User    model.Session `json:"user"`
}

func (c *Client) Login(ctx context.Context, username, password string) (model.Session, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/api/login", nil, map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return model.Session{}, err
	}
	if !resp.Success && resp.Message != "" {
		return model.Session{}, &Error{Method: http.MethodPost, Path: "/api/login", Status: http.StatusUnauthorized, Message: resp.Message}
	}
	if !resp.User.Valid() {
		return model.Session{}, &TransportError{Method: http.MethodPost, Path: "/api/login", Err: errors.New("login response missing user")}
	}
	return resp.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/logout", nil, nil, nil)
}

func (c *Client) CurrentUser(ctx context.Context) (model.Session, error) {
	var resp struct {
		User model.Session `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/current-user", nil, nil, &resp); err != nil {
		return model.Session{}, err
	}
	return resp.User, nil
}

type Health struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &h)
	return h, err
}

func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var out []model.User
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type NewUser struct {
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

func (c *Client) CreateUser(ctx context.Context, u NewUser) error {
	return c.do(ctx, http.MethodPost, "/api/users", nil, u, nil)
}

// Tasks fetches the task list. The backend applies the same filters; the client
// normally fetches with an empty filter and filters its cache locally.
func (c *Client) Tasks(ctx context.Context, f model.Filter, search string) ([]model.Task, error) {
	q := url.Values{}
	for k, v := range f.Query() {
		q.Set(k, v)
	}
	if s := strings.TrimSpace(search); s != "" {
		q.Set("search", s)
	}
	var out []model.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TaskInput is the create payload.
type TaskInput struct {
	CustomerName  string  `json:"customer_name"`
	ContactNumber string  `json:"contact_number"`
	ServiceType   string  `json:"service_type"`
	AssignedTo    string  `json:"assigned_to"`
	Branch        string  `json:"branch_code"`
	Paymode       string  `json:"paymode,omitempty"`
	ServicePrice  float64 `json:"service_price"`
	PaidAmount    float64 `json:"paid_amount"`
	ServiceCharge float64 `json:"service_charge"`
	Description   string  `json:"description"`
}

// TaskPatch is the update payload; nil fields are left unchanged by the backend.
type TaskPatch struct {
	CustomerName  *string       `json:"customer_name,omitempty"`
	ContactNumber *string       `json:"contact_number,omitempty"`
	ServiceType   *string       `json:"service_type,omitempty"`
	AssignedTo    *string       `json:"assigned_to,omitempty"`
	Branch        *string       `json:"branch_code,omitempty"`
	Paymode       *string       `json:"paymode,omitempty"`
	ServicePrice  *float64      `json:"service_price,omitempty"`
	PaidAmount    *float64      `json:"paid_amount,omitempty"`
	ServiceCharge *float64      `json:"service_charge,omitempty"`
	Description   *string       `json:"description,omitempty"`
	Status        *model.Status `json:"status,omitempty"`
	EditReason    *string       `json:"edit_reason,omitempty"`
}

// Empty reports whether the patch changes nothing (edit_reason alone does not count).
func (p TaskPatch) Empty() bool {
	return p.CustomerName == nil && p.ContactNumber == nil && p.ServiceType == nil &&
		p.AssignedTo == nil && p.Branch == nil && p.Paymode == nil &&
		p.ServicePrice == nil && p.PaidAmount == nil && p.ServiceCharge == nil &&
		p.Description == nil && p.Status == nil
}

func (c *Client) CreateTask(ctx context.Context, in TaskInput) error {
	return c.do(ctx, http.MethodPost, "/api/tasks", nil, in, nil)
}

func (c *Client) UpdateTask(ctx context.Context, id int, p TaskPatch) error {
	return c.do(ctx, http.MethodPut, "/api/tasks/"+strconv.Itoa(id), nil, p, nil)
}

func (c *Client) DeleteTask(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+strconv.Itoa(id), nil, nil, nil)
}

func (c *Client) ShareTask(ctx context.Context, id int, staffName string) error {
	return c.do(ctx, http.MethodPost, "/api/tasks/"+strconv.Itoa(id)+"/share", nil, map[string]string{
		"staff_name": staffName,
	}, nil)
}

func (c *Client) Services(ctx context.Context) ([]model.Service, error) {
	var out []model.Service
	if err := c.do(ctx, http.MethodGet, "/api/services", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type ServiceInput struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Fee    float64 `json:"fee"`
	Charge float64 `json:"charge"`
	Link   string  `json:"link"`
	Note   string  `json:"note"`
}

func (c *Client) CreateService(ctx context.Context, in ServiceInput) error {
	return c.do(ctx, http.MethodPost, "/api/services", nil, in, nil)
}

func (c *Client) UpdateService(ctx context.Context, id int, in ServiceInput) error {
	return c.do(ctx, http.MethodPut, "/api/services/"+strconv.Itoa(id), nil, in, nil)
}

func (c *Client) DeleteService(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/api/services/"+strconv.Itoa(id), nil, nil, nil)
}

func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	var out model.Stats
	err := c.do(ctx, http.MethodGet, "/api/dashboard/stats", nil, nil, &out)
	return out, err
}

func (c *Client) TopPerformers(ctx context.Context) ([]model.TopPerformer, error) {
	var out []model.TopPerformer
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/top-performers", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) OverdueTasks(ctx context.Context) ([]model.OverdueTask, error) {
	var out []model.OverdueTask
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/overdue-tasks", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
