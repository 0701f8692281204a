package cli

import (
	"bufio"
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/state"
	"taskflow-cli/internal/view"
)

func newLoginCmd(app *App) *cobra.Command {
	var username, password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session for this profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return writeErr(cmd, errors.New("read password from stdin: "+err.Error()))
				}
				password = strings.TrimRight(line, "\r\n")
			}
			return withController(cmd, app, false, func(ctx context.Context, c *state.Controller) error {
				if err := c.Login(ctx, username, password); err != nil {
					return err
				}
				s := c.Session()
				return writeOut(cmd, app, envelope{
					Data: map[string]any{"user": s, "page": c.Page(), "capabilities": c.Capabilities()},
					Meta: map[string]any{"server": c.Backend().BaseURL(), "profile": app.cfg.Profile},
					Hints: []string{
						"taskflow whoami",
						"taskflow tasks list --format table",
					},
				})
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear this profile's session storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, false, func(ctx context.Context, c *state.Controller) error {
				was := ""
				if s := c.Session(); s != nil {
					was = s.Username
				}
				if err := c.Logout(ctx); err != nil {
					return err
				}
				return writeOut(cmd, app, envelope{Data: map[string]any{"signedOut": was != "", "user": was}})
			})
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user for this profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				data := map[string]any{
					"user":         c.Session(),
					"page":         c.Page(),
					"capabilities": c.Capabilities(),
				}
				var pages []string
				for _, n := range view.Nav(c) {
					pages = append(pages, n.Label)
				}
				data["pages"] = pages
				if remote {
					u, err := app.client.CurrentUser(ctx)
					if errors.Is(err, api.ErrUnauthorized) {
						// A 401 here ends the stored session like any other call.
						c.Expire()
						return state.ErrSessionExpired
					}
					if err != nil {
						return err
					}
					data["remote"] = u
				}
				return writeOut(cmd, app, envelope{Data: data, Meta: map[string]any{"server": c.Backend().BaseURL(), "profile": app.cfg.Profile}})
			})
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Also ask the backend (GET /api/current-user)")
	return cmd
}
