// Package state holds the client's session, cached backend data and the
// operations that turn user actions into backend calls.
package state

import (
	"context"
	"errors"
	"slices"
	"sort"
	"time"

	"go.uber.org/zap"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/perm"
	"taskflow-cli/internal/store"
)

// Backend is the part of the REST client the controller drives. *api.Client implements it.
type Backend interface {
	BaseURL() string
	Cookies() []api.Cookie
	SetCookies([]api.Cookie)
	ClearCookies()

	Login(ctx context.Context, username, password string) (model.Session, error)
	Logout(ctx context.Context) error
	Users(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, u api.NewUser) error
	Tasks(ctx context.Context, f model.Filter, search string) ([]model.Task, error)
	CreateTask(ctx context.Context, in api.TaskInput) error
	UpdateTask(ctx context.Context, id int, p api.TaskPatch) error
	DeleteTask(ctx context.Context, id int) error
	ShareTask(ctx context.Context, id int, staffName string) error
	Services(ctx context.Context) ([]model.Service, error)
	CreateService(ctx context.Context, in api.ServiceInput) error
	UpdateService(ctx context.Context, id int, in api.ServiceInput) error
	DeleteService(ctx context.Context, id int) error
	Stats(ctx context.Context) (model.Stats, error)
	TopPerformers(ctx context.Context) ([]model.TopPerformer, error)
	OverdueTasks(ctx context.Context) ([]model.OverdueTask, error)
}

// Storage is the per-profile session storage. *store.SessionStorage implements it.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
	Clear(ctx context.Context) error
}

type Options struct {
	Backend Backend
	// Storage is optional; without it nothing survives the process.
	Storage Storage
	Logger  *zap.Logger
	Now     func() time.Time
}

// Dashboard is the last fetched set of dashboard figures.
type Dashboard struct {
	Stats         model.Stats          `json:"stats"`
	TopPerformers []model.TopPerformer `json:"topPerformers"`
	Overdue       []model.OverdueTask  `json:"overdue"`
	Loaded        bool                 `json:"-"`
}

// Controller owns the session and the cached backend data. It is not safe for
// concurrent use: one goroutine (the TUI update loop or a CLI command) owns it, and
// network work runs through Op.Exec whose Result is folded back in with Apply.
type Controller struct {
	backend Backend
	storage Storage
	log     *zap.Logger
	now     func() time.Time

	session *model.Session
	caps    perm.Capabilities
	page    perm.Page

	tasks     []model.Task
	services  []model.Service
	users     []model.User
	dash      Dashboard
	filter    model.Filter
	search    string
	takenOver map[int]bool

	// gen changes whenever a session starts or ends; results issued under an older
	// generation are dropped.
	gen uint64
	// rev changes on every state change; views use it to know when to rebuild.
	rev uint64
}

func New(opt Options) (*Controller, error) {
	if opt.Backend == nil {
		return nil, errors.New("state: missing backend")
	}
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opt.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		backend:   opt.Backend,
		storage:   opt.Storage,
		log:       log,
		now:       now,
		filter:    model.DefaultFilter(),
		takenOver: map[int]bool{},
	}, nil
}

func (c *Controller) Now() time.Time { return c.now() }

func (c *Controller) Backend() Backend { return c.backend }

// Session returns a copy of the signed-in user, or nil.
func (c *Controller) Session() *model.Session {
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Controller) SignedIn() bool { return c.session.Valid() }

func (c *Controller) Capabilities() perm.Capabilities { return c.caps }

func (c *Controller) Page() perm.Page { return c.page }

// Tasks returns a copy of the unfiltered cache.
func (c *Controller) Tasks() []model.Task { return slices.Clone(c.tasks) }

func (c *Controller) Services() []model.Service { return slices.Clone(c.services) }

func (c *Controller) Users() []model.User { return slices.Clone(c.users) }

func (c *Controller) Dashboard() Dashboard { return c.dash }

func (c *Controller) Filter() model.Filter { return c.filter }

func (c *Controller) SearchTerm() string { return c.search }

func (c *Controller) Revision() uint64 { return c.rev }

type sessionRecord struct {
	Server  string        `json:"server"`
	Session model.Session `json:"session"`
}

// Restore reloads a session persisted by an earlier run of the same profile. It reports
// whether a session was restored. The backend is not contacted; a stale cookie surfaces
// as a 401 on the next call.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	if c.storage == nil {
		return false, nil
	}
	var rec sessionRecord
	ok, err := c.storage.GetJSON(ctx, store.KeySession, &rec)
	if err != nil || !ok {
		return false, err
	}
	if !rec.Session.Valid() || rec.Server != c.backend.BaseURL() {
		return false, nil
	}
	var cookies []api.Cookie
	if _, err := c.storage.GetJSON(ctx, store.KeyCookies, &cookies); err != nil {
		return false, err
	}
	c.backend.SetCookies(cookies)

	s := rec.Session
	c.session = &s
	c.caps = perm.For(s.Role)
	c.page = c.caps.Landing()
	if raw, ok, err := c.storage.Get(ctx, store.KeyLastPage); err == nil && ok {
		if p, ok := perm.ParsePage(raw); ok && c.caps.CanView(p) {
			c.page = p
		}
	}
	var claimed []int
	if ok, err := c.storage.GetJSON(ctx, store.KeyTakeovers, &claimed); err == nil && ok {
		for _, id := range claimed {
			c.takenOver[id] = true
		}
	}
	c.gen++
	c.rev++
	c.log.Debug("session restored", zap.String("user", s.Username), zap.String("role", string(s.Role)))
	return true, nil
}

func (c *Controller) startSession(s model.Session) {
	c.resetCaches()
	c.session = &s
	c.caps = perm.For(s.Role)
	c.page = c.caps.Landing()
	c.gen++
	c.rev++

	if c.storage == nil {
		return
	}
	ctx := context.Background()
	if err := c.storage.Clear(ctx); err != nil {
		c.log.Warn("clear session storage", zap.Error(err))
	}
	rec := sessionRecord{Server: c.backend.BaseURL(), Session: s}
	if err := c.storage.SetJSON(ctx, store.KeySession, rec); err != nil {
		c.log.Warn("persist session", zap.Error(err))
	}
	if err := c.storage.SetJSON(ctx, store.KeyCookies, c.backend.Cookies()); err != nil {
		c.log.Warn("persist cookies", zap.Error(err))
	}
	c.persistPage()
}

// endSession drops the session, every cache and the profile's session storage.
func (c *Controller) endSession() {
	c.backend.ClearCookies()
	c.session = nil
	c.caps = perm.Capabilities{}
	c.page = ""
	c.resetCaches()
	c.gen++
	c.rev++
	if c.storage != nil {
		if err := c.storage.Clear(context.Background()); err != nil {
			c.log.Warn("clear session storage", zap.Error(err))
		}
	}
}

func (c *Controller) resetCaches() {
	c.tasks = nil
	c.services = nil
	c.users = nil
	c.dash = Dashboard{}
	c.filter = model.DefaultFilter()
	c.search = ""
	c.takenOver = map[int]bool{}
}

// Expire ends the session after the backend rejected it.
func (c *Controller) Expire() {
	if c.session != nil {
		c.log.Warn("session rejected by backend; signing out", zap.String("user", c.session.Username))
	}
	c.endSession()
}

// Navigate makes p the active page and returns the op that refreshes it.
func (c *Controller) Navigate(p perm.Page) (Op, error) {
	if !c.SignedIn() {
		return Op{}, ErrNotSignedIn
	}
	if !c.caps.CanView(p) {
		return Op{}, perm.Denied{Role: c.session.Role, Action: "open " + string(p)}
	}
	if c.page != p {
		c.page = p
		c.rev++
		c.persistPage()
	}
	return c.RefreshOp(), nil
}

// RefreshOp refetches whatever the active page shows.
func (c *Controller) RefreshOp() Op {
	var r refresh
	switch c.page {
	case perm.PageDashboard:
		r = refreshDashboard
	case perm.PageTasks:
		r = refreshTasks | refreshServices
		if c.caps.ListUsers {
			r |= refreshUsers
		}
	case perm.PageStaff:
		r = refreshUsers | refreshTasks
	case perm.PageReports:
		r = refreshTasks | refreshDashboard
		if c.caps.ListUsers {
			r |= refreshUsers
		}
	case perm.PageDatabase:
		r = refreshServices
	case perm.PageStaffPanel:
		r = refreshTasks
	}
	return c.op("refresh "+string(c.page), nil, r)
}

func (c *Controller) persistPage() {
	if c.storage == nil || c.page == "" {
		return
	}
	if err := c.storage.Set(context.Background(), store.KeyLastPage, string(c.page)); err != nil {
		c.log.Warn("persist page", zap.Error(err))
	}
}

func (c *Controller) persistTakeovers() {
	if c.storage == nil {
		return
	}
	ids := make([]int, 0, len(c.takenOver))
	for id := range c.takenOver {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	if err := c.storage.SetJSON(context.Background(), store.KeyTakeovers, ids); err != nil {
		c.log.Warn("persist takeovers", zap.Error(err))
	}
}

func (c *Controller) requireSession() error {
	if !c.SignedIn() {
		return ErrNotSignedIn
	}
	return nil
}
