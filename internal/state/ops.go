package state

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/model"
)

type refresh uint8

const (
	refreshTasks refresh = 1 << iota
	refreshServices
	refreshUsers
	refreshDashboard
)

// Op is a validated backend operation bound to the session generation it was built
// under. Exec only talks to the backend, so it may run on any goroutine; the Result
// goes back to the owning goroutine through Controller.Apply.
type Op struct {
	Name string
	// Done is the confirmation shown after Apply succeeds.
	Done string

	gen     uint64
	call    func(ctx context.Context, b Backend, r *Result) error
	refresh refresh
	patch   func(c *Controller)
	login   bool
	logout  bool
}

// Result is what Exec observed. Only the slices named by the op's refresh set are meaningful.
type Result struct {
	Op        Op
	Session   *model.Session
	Tasks     []model.Task
	Services  []model.Service
	Users     []model.User
	Dashboard Dashboard
	Err       error
}

func (c *Controller) op(name string, call func(ctx context.Context, b Backend, r *Result) error, r refresh) Op {
	return Op{Name: name, gen: c.gen, call: call, refresh: r}
}

// Exec performs the backend call and then fetches the op's refresh set concurrently.
func (op Op) Exec(ctx context.Context, b Backend) Result {
	r := Result{Op: op}
	if op.call != nil {
		if err := op.call(ctx, b, &r); err != nil {
			r.Err = err
			return r
		}
	}
	r.Err = fetch(ctx, b, op.refresh, &r)
	return r
}

func fetch(ctx context.Context, b Backend, what refresh, r *Result) error {
	if what == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	if what&refreshTasks != 0 {
		g.Go(func() error {
			ts, err := b.Tasks(gctx, model.Filter{}, "")
			r.Tasks = ts
			return err
		})
	}
	if what&refreshServices != 0 {
		g.Go(func() error {
			ss, err := b.Services(gctx)
			r.Services = ss
			return err
		})
	}
	if what&refreshUsers != 0 {
		g.Go(func() error {
			us, err := b.Users(gctx)
			r.Users = us
			return err
		})
	}
	if what&refreshDashboard != 0 {
		g.Go(func() error {
			st, err := b.Stats(gctx)
			r.Dashboard.Stats = st
			return err
		})
		g.Go(func() error {
			top, err := b.TopPerformers(gctx)
			r.Dashboard.TopPerformers = top
			return err
		})
		g.Go(func() error {
			od, err := b.OverdueTasks(gctx)
			r.Dashboard.Overdue = od
			return err
		})
	}
	return g.Wait()
}

// Apply folds a Result into the controller. Results from an earlier session are
// dropped with ErrStale. A 401 ends the session and returns ErrSessionExpired.
func (c *Controller) Apply(r Result) error {
	if r.Op.gen != c.gen {
		c.log.Debug("dropping stale result", zap.String("op", r.Op.Name))
		return ErrStale
	}
	if r.Op.logout {
		c.endSession()
		return nil
	}
	if r.Err != nil {
		if !r.Op.login && errors.Is(r.Err, api.ErrUnauthorized) {
			c.Expire()
			return ErrSessionExpired
		}
		c.log.Warn("operation failed", zap.String("op", r.Op.Name), zap.Error(r.Err))
		return r.Err
	}

	if r.Session != nil {
		c.startSession(*r.Session)
	}
	if r.Op.refresh&refreshTasks != 0 {
		c.tasks = r.Tasks
	}
	if r.Op.refresh&refreshServices != 0 {
		c.services = r.Services
	}
	if r.Op.refresh&refreshUsers != 0 {
		c.users = r.Users
	}
	if r.Op.refresh&refreshDashboard != 0 {
		c.dash = r.Dashboard
		c.dash.Loaded = true
	}
	if r.Op.patch != nil {
		r.Op.patch(c)
	}
	c.rev++
	return nil
}

// Do runs op synchronously on the calling goroutine.
func (c *Controller) Do(ctx context.Context, op Op) error {
	return c.Apply(op.Exec(ctx, c.backend))
}

func (c *Controller) run(ctx context.Context, op Op, err error) error {
	if err != nil {
		return err
	}
	return c.Do(ctx, op)
}
