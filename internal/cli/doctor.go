package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

var errDoctorIssuesFound = errors.New("doctor found problems")

type doctorCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

func newDoctorCmd(app *App) *cobra.Command {
	var fail bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, session storage and backend health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			var checks []doctorCheck
			add := func(name string, err error, detail string) {
				ch := doctorCheck{Name: name, OK: err == nil, Detail: detail}
				if err != nil {
					ch.Detail = errorMessage(err)
				}
				checks = append(checks, ch)
			}

			c, err := app.open(ctx, true)
			add("config", err, "")
			if err == nil {
				defer app.close()
				add("session storage", nil, app.storage.Path())

				h, herr := app.client.Health(ctx)
				if herr == nil && h.Status != "healthy" {
					herr = errors.New("backend reports " + h.Status + " (" + h.Database + ")")
				}
				add("backend", herr, c.Backend().BaseURL())

				detail := "not signed in"
				if s := c.Session(); s != nil {
					detail = "signed in as " + s.Username + " (" + string(s.Role) + ")"
				}
				add("session", nil, detail)
			}

			ok := true
			for _, ch := range checks {
				ok = ok && ch.OK
			}
			if err := writeOut(cmd, app, envelope{
				Data:  checks,
				Meta:  map[string]any{"ok": ok},
				Hints: []string{"taskflow config show", "taskflow login"},
			}); err != nil {
				return err
			}
			if fail && !ok {
				return errDoctorIssuesFound
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fail, "fail", false, "Exit with non-zero status if a check fails")
	return cmd
}
