// Package apitest runs an in-memory backend that follows the task-tracking REST contract.
// It exists for tests of the client, controller, CLI and TUI.
package apitest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/statusutil"
)

const sessionCookie = "session"

type user struct {
	model.User
	password string
}

// Request is one request the server received.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

type failure struct {
	status  int
	message string
}

// Server is a fake backend. All methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	now      func() time.Time
	users    []user
	services []model.Service
	tasks    []model.Task
	sessions map[string]string // token -> username
	requests []Request
	failNext map[string]failure // "METHOD /path" -> failure
	nextID   map[string]int
}

// New starts a server seeded with the default users (admin/admin123, manager and
// staff1..staff3 with password123) and services.
func New() *Server {
	s := &Server{
		now:      time.Now,
		sessions: map[string]string{},
		failNext: map[string]failure{},
		nextID:   map[string]int{},
	}
	s.seed()
	s.Server = httptest.NewServer(s.routes())
	return s
}

// SetClock replaces the server clock used for created_at and overdue math.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Server) seed() {
	now := time.Now().UTC()
	add := func(name string, role model.Role, pw string) {
		s.users = append(s.users, user{
			User:     model.User{ID: s.id("user"), Username: name, Role: role, Email: name + "@taskflow.test", CreatedAt: &model.Timestamp{Time: now}},
			password: pw,
		})
	}
	add("admin", model.RoleAdmin, "admin123")
	add("manager", model.RoleManager, "password123")
	add("staff1", model.RoleStaff, "password123")
	add("staff2", model.RoleStaff, "password123")
	add("staff3", model.RoleStaff, "password123")

	for _, sv := range []model.Service{
		{Name: "Consultation", Price: 1500, Fee: 100, Charge: 100, Link: "https://example.com/consultation", Note: "Initial consultation for new clients"},
		{Name: "Repair", Price: 2000, Fee: 150, Charge: 150, Link: "https://example.com/repair", Note: "Device repair service with 30-day warranty"},
	} {
		sv.ID = s.id("service")
		s.services = append(s.services, sv)
	}
}

func (s *Server) id(kind string) int {
	s.nextID[kind]++
	return s.nextID[kind]
}

// AddTask inserts a task directly (bypassing auth) and returns it with id/order number set.
// A zero Timestamp is replaced with the server clock.
func (s *Server) AddTask(t model.Task) model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id("task")
	if t.OrderNo == "" {
		t.OrderNo = fmt.Sprintf("TF-%03d", t.ID)
	}
	if t.Status == "" {
		t.Status = model.StatusReceived
	}
	if t.Paymode == "" {
		t.Paymode = "Cash"
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = model.At(s.now())
	}
	if t.TaskDate == "" {
		t.TaskDate = t.Timestamp.Format("2006-01-02")
	}
	t.UpdatedAt = t.Timestamp
	t.SharedWith = model.NormalizeShared(t.AssignedTo, t.SharedWith)
	s.tasks = append(s.tasks, t)
	return t
}

// AddService inserts a service directly and returns it.
func (s *Server) AddService(sv model.Service) model.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	sv.ID = s.id("service")
	s.services = append(s.services, sv)
	return sv
}

// Task returns the server's copy of a task.
func (s *Server) Task(id int) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

func (s *Server) Services() []model.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Service{}, s.services...)
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request{}, s.requests...)
}

// RequestsTo returns requests matching method and path exactly.
func (s *Server) RequestsTo(method, path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests clears the request log.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// FailNext makes the next request to "METHOD /path" fail with status and message.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[method+" "+path] = failure{status: status, message: message}
}

// ExpireSessions drops every session so the next authenticated call gets 401.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = map[string]string{}
}

type handler func(w http.ResponseWriter, r *http.Request, u *user, body map[string]any)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", s.wrap(false, s.login))
	mux.HandleFunc("POST /api/logout", s.wrap(true, s.logout))
	mux.HandleFunc("GET /api/current-user", s.wrap(true, s.currentUser))
	mux.HandleFunc("GET /api/health", s.wrap(false, func(w http.ResponseWriter, _ *http.Request, _ *user, _ map[string]any) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "database": "connected"})
	}))
	mux.HandleFunc("GET /api/users", s.wrap(true, s.listUsers))
	mux.HandleFunc("POST /api/users", s.wrap(true, s.createUser))
	mux.HandleFunc("GET /api/services", s.wrap(true, s.listServices))
	mux.HandleFunc("POST /api/services", s.wrap(true, s.createService))
	mux.HandleFunc("PUT /api/services/{id}", s.wrap(true, s.updateService))
	mux.HandleFunc("DELETE /api/services/{id}", s.wrap(true, s.deleteService))
	mux.HandleFunc("GET /api/tasks", s.wrap(true, s.listTasks))
	mux.HandleFunc("POST /api/tasks", s.wrap(true, s.createTask))
	mux.HandleFunc("PUT /api/tasks/{id}", s.wrap(true, s.updateTask))
	mux.HandleFunc("DELETE /api/tasks/{id}", s.wrap(true, s.deleteTask))
	mux.HandleFunc("POST /api/tasks/{id}/share", s.wrap(true, s.shareTask))
	mux.HandleFunc("GET /api/dashboard/stats", s.wrap(true, s.stats))
	mux.HandleFunc("GET /api/dashboard/top-performers", s.wrap(true, s.topPerformers))
	mux.HandleFunc("GET /api/dashboard/overdue-tasks", s.wrap(true, s.overdue))
	return mux
}

func (s *Server) wrap(auth bool, h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
		key := r.Method + " " + r.URL.Path
		if f, ok := s.failNext[key]; ok {
			delete(s.failNext, key)
			writeJSON(w, f.status, map[string]any{"error": f.message})
			return
		}

		var u *user
		if ck, err := r.Cookie(sessionCookie); err == nil {
			if name, ok := s.sessions[ck.Value]; ok {
				u = s.findUser(name)
			}
		}
		if auth && u == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Authentication required"})
			return
		}
		h(w, r, u, body)
	}
}

func (s *Server) findUser(name string) *user {
	for i := range s.users {
		if s.users[i].Username == name {
			return &s.users[i]
		}
	}
	return nil
}

func (s *Server) login(w http.ResponseWriter, _ *http.Request, _ *user, body map[string]any) {
	u := s.findUser(str(body, "username"))
	if u == nil || u.password != str(body, "password") {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})
		return
	}
	tok := make([]byte, 16)
	_, _ = rand.Read(tok)
	token := hex.EncodeToString(tok)
	s.sessions[token] = u.Username
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"user":    map[string]any{"id": u.ID, "username": u.Username, "role": u.Role, "email": u.Email},
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request, _ *user, _ map[string]any) {
	if ck, err := r.Cookie(sessionCookie); err == nil {
		delete(s.sessions, ck.Value)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logout successful"})
}

func (s *Server) currentUser(w http.ResponseWriter, _ *http.Request, u *user, _ map[string]any) {
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{"id": u.ID, "username": u.Username, "role": u.Role, "email": u.Email},
	})
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request, u *user, _ map[string]any) {
	if u.Role != model.RoleAdmin && u.Role != model.RoleManager {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "Access denied"})
		return
	}
	out := make([]model.User, 0, len(s.users))
	for _, x := range s.users {
		out = append(out, x.User)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createUser(w http.ResponseWriter, _ *http.Request, u *user, body map[string]any) {
	if u.Role != model.RoleAdmin {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "Admin access required"})
		return
	}
	name := str(body, "username")
	if s.findUser(name) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Username already exists"})
		return
	}
	now := model.At(s.now())
	s.users = append(s.users, user{
		User:     model.User{ID: s.id("user"), Username: name, Role: model.Role(str(body, "role")), Email: str(body, "email"), CreatedAt: &now},
		password: str(body, "password"),
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "User created successfully"})
}

func (s *Server) listServices(w http.ResponseWriter, _ *http.Request, _ *user, _ map[string]any) {
	writeJSON(w, http.StatusOK, append([]model.Service{}, s.services...))
}

func (s *Server) createService(w http.ResponseWriter, _ *http.Request, u *user, body map[string]any) {
	if u.Role == model.RoleStaff {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "Access denied"})
		return
	}
	s.services = append(s.services, model.Service{
		ID:     s.id("service"),
		Name:   str(body, "name"),
		Price:  num(body, "price", 0),
		Fee:    num(body, "fee", 0),
		Charge: num(body, "charge", 0),
		Link:   str(body, "link"),
		Note:   str(body, "note"),
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Service created successfully"})
}

func (s *Server) serviceIndex(w http.ResponseWriter, r *http.Request) int {
	id, _ := strconv.Atoi(r.PathValue("id"))
	for i := range s.services {
		if s.services[i].ID == id {
			return i
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"error": "Not Found"})
	return -1
}

func (s *Server) updateService(w http.ResponseWriter, r *http.Request, u *user, body map[string]any) {
	if u.Role == model.RoleStaff {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "Access denied"})
		return
	}
	i := s.serviceIndex(w, r)
	if i < 0 {
		return
	}
	sv := &s.services[i]
	sv.Name = strOr(body, "name", sv.Name)
	sv.Price = num(body, "price", sv.Price)
	sv.Fee = num(body, "fee", sv.Fee)
	sv.Charge = num(body, "charge", sv.Charge)
	sv.Link = strOr(body, "link", sv.Link)
	sv.Note = strOr(body, "note", sv.Note)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Service updated successfully"})
}

func (s *Server) deleteService(w http.ResponseWriter, r *http.Request, u *user, _ map[string]any) {
	if u.Role != model.RoleAdmin {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "Admin access required"})
		return
	}
	i := s.serviceIndex(w, r)
	if i < 0 {
		return
	}
	s.services = append(s.services[:i], s.services[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Service deleted successfully"})
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request, u *user, _ map[string]any) {
	q := r.URL.Query()
	f := model.Filter{
		Date:    q.Get("date"),
		Branch:  q.Get("branch"),
		Staff:   q.Get("staff"),
		Status:  q.Get("status"),
		Service: q.Get("service"),
	}
	search := strings.ToLower(q.Get("search"))
	today := s.now().UTC().Format("2006-01-02")

	out := []model.Task{}
	for _, t := range s.tasks {
		if !model.IsAll(f.Branch) && t.Branch != f.Branch {
			continue
		}
		if !model.IsAll(f.Staff) && t.AssignedTo != f.Staff {
			continue
		}
		if !model.IsAll(f.Status) && string(t.Status) != f.Status {
			continue
		}
		if !model.IsAll(f.Service) && t.ServiceType != f.Service {
			continue
		}
		if !model.IsAll(f.Date) && f.Date == model.DateToday && t.TaskDate != today {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.OrderNo+"\x00"+t.CustomerName+"\x00"+t.ContactNumber), search) {
			continue
		}
		if u.Role == model.RoleStaff && t.AssignedTo != u.Username && !t.IsSharedWith(u.Username) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp.Time) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createTask(w http.ResponseWriter, _ *http.Request, _ *user, body map[string]any) {
	now := s.now().UTC()
	id := s.id("task")
	s.tasks = append(s.tasks, model.Task{
		ID:            id,
		OrderNo:       fmt.Sprintf("TF-%03d", id),
		CustomerName:  str(body, "customer_name"),
		ContactNumber: str(body, "contact_number"),
		ServiceType:   str(body, "service_type"),
		Status:        model.StatusReceived,
		AssignedTo:    str(body, "assigned_to"),
		Branch:        str(body, "branch_code"),
		Paymode:       strOr(body, "paymode", "Cash"),
		ServicePrice:  num(body, "service_price", 0),
		PaidAmount:    num(body, "paid_amount", 0),
		ServiceCharge: num(body, "service_charge", 0),
		Description:   str(body, "description"),
		TaskDate:      now.Format("2006-01-02"),
		Timestamp:     model.At(now),
		UpdatedAt:     model.At(now),
		SharedWith:    []string{},
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Task created successfully"})
}

func (s *Server) taskIndex(w http.ResponseWriter, r *http.Request) int {
	id, _ := strconv.Atoi(r.PathValue("id"))
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"error": "Not Found"})
	return -1
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request, u *user, body map[string]any) {
	i := s.taskIndex(w, r)
	if i < 0 {
		return
	}
	t := &s.tasks[i]
	if u.Role == model.RoleStaff {
		if t.AssignedTo != u.Username && !t.IsSharedWith(u.Username) {
			writeJSON(w, http.StatusForbidden, map[string]any{"error": "You can only edit tasks assigned to you or shared with you"})
			return
		}
		var parts []string
		if v, ok := body["status"].(string); ok && model.Status(v) != t.Status {
			parts = append(parts, fmt.Sprintf("status changed from %s to %s", t.Status, v))
			t.Status = model.Status(v)
		}
		if v, ok := body["description"].(string); ok && v != t.Description {
			parts = append(parts, fmt.Sprintf("description changed from %s to %s", t.Description, v))
			t.Description = v
		}
		if v, ok := body["paid_amount"].(float64); ok && v != t.PaidAmount {
			parts = append(parts, fmt.Sprintf("paid_amount changed from %v to %v", t.PaidAmount, v))
			t.PaidAmount = v
		}
		if v, ok := body["service_charge"].(float64); ok && v != t.ServiceCharge {
			parts = append(parts, fmt.Sprintf("service_charge changed from %v to %v", t.ServiceCharge, v))
			t.ServiceCharge = v
		}
		if len(parts) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No allowed fields were modified"})
			return
		}
		t.Edited = true
		if reason := str(body, "edit_reason"); reason != "" {
			t.EditReason = reason
		} else {
			t.EditReason = strings.Join(parts, "; ")
		}
	} else {
		t.CustomerName = strOr(body, "customer_name", t.CustomerName)
		t.ContactNumber = strOr(body, "contact_number", t.ContactNumber)
		t.ServiceType = strOr(body, "service_type", t.ServiceType)
		t.AssignedTo = strOr(body, "assigned_to", t.AssignedTo)
		t.Branch = strOr(body, "branch_code", t.Branch)
		t.Paymode = strOr(body, "paymode", t.Paymode)
		t.ServicePrice = num(body, "service_price", t.ServicePrice)
		t.PaidAmount = num(body, "paid_amount", t.PaidAmount)
		t.ServiceCharge = num(body, "service_charge", t.ServiceCharge)
		t.Description = strOr(body, "description", t.Description)
		t.Status = model.Status(strOr(body, "status", string(t.Status)))
		t.Edited = true
		t.EditReason = str(body, "edit_reason")
		t.SharedWith = model.NormalizeShared(t.AssignedTo, t.SharedWith)
	}
	t.UpdatedAt = model.At(s.now())
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Task updated successfully"})
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request, u *user, _ map[string]any) {
	if u.Role != model.RoleAdmin {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "Admin access required"})
		return
	}
	i := s.taskIndex(w, r)
	if i < 0 {
		return
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Task deleted successfully"})
}

func (s *Server) shareTask(w http.ResponseWriter, r *http.Request, _ *user, body map[string]any) {
	i := s.taskIndex(w, r)
	if i < 0 {
		return
	}
	name := str(body, "staff_name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Staff name is required"})
		return
	}
	t := &s.tasks[i]
	if t.IsSharedWith(name) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Task already shared with this staff"})
		return
	}
	t.SharedWith = append(t.SharedWith, name)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Task shared with " + name})
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request, _ *user, _ map[string]any) {
	now := s.now().UTC()
	today := now.Format("2006-01-02")
	var st model.Stats
	for _, t := range s.tasks {
		st.TotalTasks++
		if t.TaskDate == today {
			st.TasksToday++
		}
		if t.Status == model.StatusCompleted {
			st.CompletedTasks++
		}
		st.TotalRevenue += t.PaidAmount
		if statusutil.IsOverdue(t, now) {
			st.OverdueTasks++
		}
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) topPerformers(w http.ResponseWriter, _ *http.Request, _ *user, _ map[string]any) {
	var out []model.TopPerformer
	for _, u := range s.users {
		if u.Role != model.RoleStaff {
			continue
		}
		p := model.TopPerformer{Name: u.Username}
		for _, t := range s.tasks {
			if t.AssignedTo != u.Username {
				continue
			}
			if t.Status == model.StatusCompleted {
				p.CompletedTasks++
			}
			p.TotalRevenue += t.PaidAmount
		}
		p.Score = float64(p.CompletedTasks)*10 + p.TotalRevenue/100
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > 3 {
		out = out[:3]
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) overdue(w http.ResponseWriter, _ *http.Request, _ *user, _ map[string]any) {
	now := s.now().UTC()
	out := []model.OverdueTask{}
	for _, t := range s.tasks {
		if !statusutil.IsOverdue(t, now) {
			continue
		}
		out = append(out, model.OverdueTask{
			OrderNo:      t.OrderNo,
			CustomerName: t.CustomerName,
			ServiceType:  t.ServiceType,
			Status:       t.Status,
			AssignedTo:   t.AssignedTo,
			TaskDate:     t.TaskDate,
			HoursOverdue: statusutil.HoursOverdue(t, now),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func str(body map[string]any, key string) string {
	v, _ := body[key].(string)
	return strings.TrimSpace(v)
}

func strOr(body map[string]any, key, d string) string {
	if v, ok := body[key].(string); ok {
		return v
	}
	return d
}

func num(body map[string]any, key string, d float64) float64 {
	switch v := body[key].(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return d
}
