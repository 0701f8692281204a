package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"taskflow-cli/internal/perm"
	"taskflow-cli/internal/publish"
	"taskflow-cli/internal/state"
	"taskflow-cli/internal/view"
)

func newDashboardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show dashboard figures, top performers and overdue tasks (admin, manager)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				if err := c.LoadDashboard(ctx); err != nil {
					return err
				}
				d := view.Dashboard(c)
				return writeData(cmd, app, envelope{
					Data: d,
					Meta: map[string]any{"overdue": len(d.Overdue)},
				}, cardTable(d.Cards))
			})
		},
	}
}

// buildReport loads what the reports page needs.
func buildReport(ctx context.Context, c *state.Controller) (publish.Report, error) {
	caps := c.Capabilities()
	if !caps.CanView(perm.PageReports) {
		return publish.Report{}, perm.Denied{Role: caps.Role, Action: "view reports"}
	}
	if err := c.LoadUsers(ctx); err != nil {
		return publish.Report{}, err
	}
	if err := c.LoadTasks(ctx); err != nil {
		return publish.Report{}, err
	}
	if err := c.LoadDashboard(ctx); err != nil {
		return publish.Report{}, err
	}
	now := c.Now()
	r := publish.Report{
		GeneratedAt: now,
		Cards:       view.Reports(c, now),
		Overdue:     c.Dashboard().Overdue,
	}
	if s := c.Session(); s != nil {
		r.User = s.Username
	}
	return r, nil
}

func newReportsCmd(app *App) *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Per-staff report cards (admin, manager)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				r, err := buildReport(ctx, c)
				if err != nil {
					return err
				}
				if markdown {
					_, err := fmt.Fprint(cmd.OutOrStdout(), publish.ReportsMarkdown(r))
					return err
				}
				return writeData(cmd, app, envelope{
					Data:  map[string]any{"staff": r.Cards, "overdue": r.Overdue},
					Meta:  map[string]any{"generatedAt": r.GeneratedAt},
					Hints: []string{"taskflow reports --markdown", "taskflow reports export --to ./out"},
				}, reportTable(r.Cards))
			})
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print the report as Markdown")

	cmd.AddCommand(newReportsExportCmd(app))
	return cmd
}

func newReportsExportCmd(app *App) *cobra.Command {
	var toDir string
	var opt publish.WriteOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the report as Markdown into a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				r, err := buildReport(ctx, c)
				if err != nil {
					return err
				}
				res, err := publish.WriteReports(r, toDir, opt)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, envelope{Data: res})
			})
		},
	}
	cmd.Flags().StringVar(&toDir, "to", "", "Output directory")
	cmd.Flags().BoolVar(&opt.Overwrite, "overwrite", false, "Replace existing files")
	cmd.Flags().BoolVar(&opt.Stamp, "stamp", false, "Add the date to the file name")
	return cmd
}

func newStaffPanelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "staff-panel",
		Short: "My tasks, including local claims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				if err := c.LoadTasks(ctx); err != nil {
					return err
				}
				p := view.StaffPanel(c, c.Now())
				return writeData(cmd, app, envelope{
					Data: map[string]any{"user": p.User, "counts": p.Panel, "tasks": tasksOut(p.Rows)},
				}, taskTable(p.Rows))
			})
		},
	}
}
