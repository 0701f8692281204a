package state

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// LoginOp validates credentials locally and returns the op that signs in.
func (c *Controller) LoginOp(username, password string) (Op, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Op{}, invalid("username", "username is required")
	}
	if password == "" {
		return Op{}, invalid("password", "password is required")
	}
	op := c.op("login", func(ctx context.Context, b Backend, r *Result) error {
		s, err := b.Login(ctx, username, password)
		if err != nil {
			return err
		}
		r.Session = &s
		return nil
	}, 0)
	op.login = true
	op.Done = "Signed in as " + username
	return op, nil
}

func (c *Controller) Login(ctx context.Context, username, password string) error {
	op, err := c.LoginOp(username, password)
	return c.run(ctx, op, err)
}

// LogoutOp notifies the backend (best effort) and then clears every piece of local state.
func (c *Controller) LogoutOp() Op {
	log := c.log
	op := c.op("logout", func(ctx context.Context, b Backend, _ *Result) error {
		if err := b.Logout(ctx); err != nil {
			log.Debug("logout request failed", zap.Error(err))
		}
		return nil
	}, 0)
	op.logout = true
	op.Done = "Signed out"
	return op
}

func (c *Controller) Logout(ctx context.Context) error {
	if !c.SignedIn() {
		c.endSession()
		return nil
	}
	return c.Do(ctx, c.LogoutOp())
}
