package state

import (
	"context"
	"fmt"
	"strings"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/perm"
)

func (c *Controller) LoadUsersOp() (Op, error) {
	if err := c.requireSession(); err != nil {
		return Op{}, err
	}
	if !c.caps.ListUsers {
		return Op{}, perm.Denied{Role: c.session.Role, Action: "list users"}
	}
	return c.op("load users", nil, refreshUsers), nil
}

func (c *Controller) LoadUsers(ctx context.Context) error {
	op, err := c.LoadUsersOp()
	return c.run(ctx, op, err)
}

func (c *Controller) CreateUserOp(u api.NewUser) (Op, error) {
	if err := c.requireSession(); err != nil {
		return Op{}, err
	}
	if !c.caps.CreateUsers {
		return Op{}, perm.Denied{Role: c.session.Role, Action: "create users"}
	}
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.TrimSpace(u.Email)
	u.Role = model.Role(strings.ToLower(strings.TrimSpace(string(u.Role))))
	switch {
	case u.Username == "":
		return Op{}, invalid("username", "is required")
	case u.Password == "":
		return Op{}, invalid("password", "is required")
	case !u.Role.Valid():
		return Op{}, invalid("role", fmt.Sprintf("must be admin, manager or staff (got %q)", u.Role))
	}
	for _, existing := range c.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return Op{}, invalid("username", u.Username+" already exists")
		}
	}
	op := c.op("create user", func(ctx context.Context, b Backend, _ *Result) error {
		return b.CreateUser(ctx, u)
	}, refreshUsers)
	op.Done = fmt.Sprintf("Created %s %s", u.Role, u.Username)
	return op, nil
}

func (c *Controller) CreateUser(ctx context.Context, u api.NewUser) error {
	op, err := c.CreateUserOp(u)
	return c.run(ctx, op, err)
}
