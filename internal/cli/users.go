package cli

import (
	"context"

	"github.com/spf13/cobra"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/state"
	"taskflow-cli/internal/view"
)

func newUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"staff"},
		Short:   "List and create users",
	}
	cmd.AddCommand(newUsersListCmd(app))
	cmd.AddCommand(newUsersCreateCmd(app))
	return cmd
}

func writeUsers(cmd *cobra.Command, app *App, c *state.Controller, message string) error {
	rows := view.Users(c)
	meta := map[string]any{"count": len(rows), "staff": c.StaffNames()}
	if message != "" {
		meta["message"] = message
	}
	return writeData(cmd, app, envelope{Data: rows, Meta: meta}, userTable(rows))
}

func newUsersListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users with their task counts (admin, manager)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				if err := c.LoadUsers(ctx); err != nil {
					return err
				}
				if err := c.LoadTasks(ctx); err != nil {
					return err
				}
				return writeUsers(cmd, app, c, "")
			})
		},
	}
}

func newUsersCreateCmd(app *App) *cobra.Command {
	var u api.NewUser
	var role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user (admin only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u.Role = model.Role(role)
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				if c.Capabilities().CreateUsers {
					// Duplicate names are checked against the cached list.
					if err := c.LoadUsers(ctx); err != nil {
						return err
					}
				}
				op, err := c.CreateUserOp(u)
				if err != nil {
					return err
				}
				if err := c.Do(ctx, op); err != nil {
					return err
				}
				return writeUsers(cmd, app, c, op.Done)
			})
		},
	}
	cmd.Flags().StringVar(&u.Username, "username", "", "Username")
	cmd.Flags().StringVar(&u.Email, "email", "", "Email")
	cmd.Flags().StringVar(&u.Password, "password", "", "Initial password")
	cmd.Flags().StringVar(&role, "role", string(model.RoleStaff), "Role (staff|manager|admin)")
	return cmd
}
