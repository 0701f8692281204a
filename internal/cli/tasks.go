package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/publish"
	"taskflow-cli/internal/state"
	"taskflow-cli/internal/statusutil"
	"taskflow-cli/internal/view"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "List and change tasks",
	}

	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksUpdateCmd(app))
	cmd.AddCommand(newTasksSetStatusCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	cmd.AddCommand(newTasksShareCmd(app))
	cmd.AddCommand(newTasksTakeOverCmd(app))
	cmd.AddCommand(newTasksReleaseCmd(app))
	cmd.AddCommand(newTasksExportCmd(app))
	return cmd
}

type taskListFlags struct {
	filter model.Filter
	search string
	mine   bool
}

func (f *taskListFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.filter.Date, "date", model.FilterAll, "Date preset (all|today|yesterday|tomorrow|last30)")
	cmd.Flags().StringVar(&f.filter.Branch, "branch", model.FilterAll, "Branch code")
	cmd.Flags().StringVar(&f.filter.Staff, "staff", model.FilterAll, "Assigned staff")
	cmd.Flags().StringVar(&f.filter.Status, "status", model.FilterAll, "Status")
	cmd.Flags().StringVar(&f.filter.Service, "service", model.FilterAll, "Service type")
	cmd.Flags().StringVar(&f.search, "search", "", "Case-insensitive match on the row text")
	cmd.Flags().BoolVar(&f.mine, "mine", false, "Only tasks assigned to or claimed by me")
}

// rows loads tasks and applies the filters and search the way the dashboard does.
func (f *taskListFlags) rows(ctx context.Context, c *state.Controller) ([]view.TaskRow, error) {
	if err := c.LoadTasks(ctx); err != nil {
		return nil, err
	}
	if f.filter.Status != "" && !model.IsAll(f.filter.Status) {
		st, err := statusutil.NormalizeStatus(f.filter.Status)
		if err != nil {
			return nil, err
		}
		f.filter.Status = string(st)
	}
	if f.filter.Date != "" && !model.IsAll(f.filter.Date) && !validDatePreset(f.filter.Date) {
		return nil, fmt.Errorf("invalid --date %q (all|today|yesterday|tomorrow|last30)", f.filter.Date)
	}
	c.ApplyFilters(f.filter)
	c.Search(f.search)
	now := c.Now()
	if f.mine {
		return view.Search(view.RowsFor(c, c.MyTasks(), now), f.search), nil
	}
	return view.TaskRows(c, now), nil
}

func validDatePreset(s string) bool {
	for _, p := range model.DatePresets {
		if strings.EqualFold(p, strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}

func newTasksListCmd(app *App) *cobra.Command {
	var f taskListFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks (filters and search run on the fetched list)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				rows, err := f.rows(ctx, c)
				if err != nil {
					return err
				}
				meta := map[string]any{"count": len(rows), "total": len(c.Tasks())}
				if s := view.FilterSummary(c.Filter()); s != "" {
					meta["filters"] = s
				}
				return writeData(cmd, app, envelope{
					Data:  tasksOut(rows),
					Meta:  meta,
					Hints: []string{"taskflow tasks show <order-no>"},
				}, taskTable(rows))
			})
		},
	}
	f.bind(cmd)
	return cmd
}

// loadTask fetches the list and resolves ref (id or order number).
func loadTask(ctx context.Context, c *state.Controller, ref string) (model.Task, error) {
	if err := c.LoadTasks(ctx); err != nil {
		return model.Task{}, err
	}
	return c.FindTask(ref)
}

func newTasksShowCmd(app *App) *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "show <order-no|id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				t, err := loadTask(ctx, c, args[0])
				if err != nil {
					return err
				}
				rows := view.RowsFor(c, []model.Task{t}, c.Now())
				if markdown {
					_, err := fmt.Fprint(cmd.OutOrStdout(), publish.TaskMarkdown(t, rows[0].Overdue, rows[0].Claimed))
					return err
				}
				r := rows[0]
				return writeData(cmd, app, envelope{
					Data: tasksOut(rows)[0],
					Meta: map[string]any{"canEdit": r.CanEdit, "canDelete": r.CanDelete, "needsEditReason": c.NeedsEditReason(t.ID)},
				}, taskTable(rows))
			})
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print the task as Markdown")
	return cmd
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var in api.TaskInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task (price and charge default from the service)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				if err := c.LoadServices(ctx); err != nil {
					return err
				}
				price, charge := in.ServicePrice, in.ServiceCharge
				if c.ServiceDefaults(&in, in.ServiceType) {
					if cmd.Flags().Changed("price") {
						in.ServicePrice = price
					}
					if cmd.Flags().Changed("charge") {
						in.ServiceCharge = charge
					}
				}
				op, err := c.CreateTaskOp(in)
				if err != nil {
					return err
				}
				if err := c.Do(ctx, op); err != nil {
					return err
				}
				created := newestFor(c.Tasks(), in.CustomerName)
				return writeOut(cmd, app, envelope{
					Data:  created,
					Meta:  map[string]any{"message": op.Done},
					Hints: []string{"taskflow tasks list --format table"},
				})
			})
		},
	}

	cmd.Flags().StringVar(&in.CustomerName, "customer", "", "Customer name (required)")
	cmd.Flags().StringVar(&in.ContactNumber, "contact", "", "Contact number (required)")
	cmd.Flags().StringVar(&in.ServiceType, "service", "", "Service type (required)")
	cmd.Flags().StringVar(&in.AssignedTo, "assign", "", "Assigned staff (required)")
	cmd.Flags().StringVar(&in.Branch, "branch", "", "Branch code (required)")
	cmd.Flags().StringVar(&in.Paymode, "paymode", "Cash", "Payment mode")
	cmd.Flags().Float64Var(&in.ServicePrice, "price", 0, "Service price")
	cmd.Flags().Float64Var(&in.PaidAmount, "paid", 0, "Paid amount")
	cmd.Flags().Float64Var(&in.ServiceCharge, "charge", 0, "Service charge")
	cmd.Flags().StringVar(&in.Description, "description", "", "Description")
	return cmd
}

// newestFor picks the highest-id task for customer; the create endpoint returns no id.
func newestFor(tasks []model.Task, customer string) *model.Task {
	var best *model.Task
	for i := range tasks {
		t := &tasks[i]
		if strings.TrimSpace(t.CustomerName) != strings.TrimSpace(customer) {
			continue
		}
		if best == nil || t.ID > best.ID {
			best = t
		}
	}
	return best
}

func newTasksUpdateCmd(app *App) *cobra.Command {
	var (
		customer, contact, service, assign, branch, paymode, description, status, reason string
		price, paid, charge                                                              float64
	)

	cmd := &cobra.Command{
		Use:   "update <order-no|id>",
		Short: "Change task fields (only the flags you pass are sent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := cmd.Flags().Changed
			str := func(flag, v string) *string {
				if !changed(flag) {
					return nil
				}
				return &v
			}
			num := func(flag string, v float64) *float64 {
				if !changed(flag) {
					return nil
				}
				return &v
			}
			p := api.TaskPatch{
				CustomerName:  str("customer", customer),
				ContactNumber: str("contact", contact),
				ServiceType:   str("service", service),
				AssignedTo:    str("assign", assign),
				Branch:        str("branch", branch),
				Paymode:       str("paymode", paymode),
				Description:   str("description", description),
				ServicePrice:  num("price", price),
				PaidAmount:    num("paid", paid),
				ServiceCharge: num("charge", charge),
			}
			if changed("status") {
				st, err := statusutil.NormalizeStatus(status)
				if err != nil {
					return writeErr(cmd, err)
				}
				p.Status = &st
			}
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				t, err := loadTask(ctx, c, args[0])
				if err != nil {
					return err
				}
				op, err := c.UpdateTaskOp(t.ID, p, reason)
				if err != nil {
					return err
				}
				return runTaskOp(ctx, cmd, app, c, op, t.ID)
			})
		},
	}

	cmd.Flags().StringVar(&customer, "customer", "", "Customer name")
	cmd.Flags().StringVar(&contact, "contact", "", "Contact number")
	cmd.Flags().StringVar(&service, "service", "", "Service type")
	cmd.Flags().StringVar(&assign, "assign", "", "Assigned staff")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch code")
	cmd.Flags().StringVar(&paymode, "paymode", "", "Payment mode")
	cmd.Flags().Float64Var(&price, "price", 0, "Service price")
	cmd.Flags().Float64Var(&paid, "paid", 0, "Paid amount")
	cmd.Flags().Float64Var(&charge, "charge", 0, "Service charge")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&status, "status", "", "Status")
	cmd.Flags().StringVar(&reason, "reason", "", "Edit reason (required for staff when the task was already edited)")
	return cmd
}

// runTaskOp executes op and prints the task as it is after the refetch.
func runTaskOp(ctx context.Context, cmd *cobra.Command, app *App, c *state.Controller, op state.Op, id int) error {
	if err := c.Do(ctx, op); err != nil {
		return err
	}
	var data any
	for _, t := range c.Tasks() {
		if t.ID == id {
			data = tasksOut(view.RowsFor(c, []model.Task{t}, c.Now()))[0]
		}
	}
	return writeOut(cmd, app, envelope{Data: data, Meta: map[string]any{"message": op.Done}})
}

func newTasksSetStatusCmd(app *App) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "set-status <order-no|id> <status>",
		Short: "Change only the status of a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := statusutil.NormalizeStatus(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				t, err := loadTask(ctx, c, args[0])
				if err != nil {
					return err
				}
				op, err := c.SetStatusOp(t.ID, st, reason)
				if err != nil {
					return err
				}
				return runTaskOp(ctx, cmd, app, c, op, t.ID)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Edit reason (required for staff when the task was already edited)")
	return cmd
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <order-no|id>",
		Short: "Delete a task (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				t, err := loadTask(ctx, c, args[0])
				if err != nil {
					return err
				}
				op, err := c.DeleteTaskOp(t.ID)
				if err != nil {
					return err
				}
				if !yes {
					return errors.New("refusing to delete " + t.OrderNo + " without --yes")
				}
				if err := c.Do(ctx, op); err != nil {
					return err
				}
				return writeOut(cmd, app, envelope{Data: map[string]any{"deleted": t.OrderNo, "id": t.ID}, Meta: map[string]any{"message": op.Done}})
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")
	return cmd
}

func newTasksShareCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "share <order-no|id> <staff>",
		Short: "Share a task with another staff member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				t, err := loadTask(ctx, c, args[0])
				if err != nil {
					return err
				}
				op, err := c.ShareTaskOp(t.ID, args[1])
				if err != nil {
					return err
				}
				return runTaskOp(ctx, cmd, app, c, op, t.ID)
			})
		},
	}
}

func newTasksTakeOverCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "take-over <order-no|id>",
		Short: "Claim another staff member's task locally (nothing is sent to the backend)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				t, err := loadTask(ctx, c, args[0])
				if err != nil {
					return err
				}
				if err := c.TakeOverTask(t.ID); err != nil {
					return err
				}
				return writeOut(cmd, app, envelope{
					Data:  map[string]any{"claimed": t.OrderNo, "panel": c.StaffPanel()},
					Hints: []string{"taskflow staff-panel", "taskflow tasks release " + t.OrderNo},
				})
			})
		},
	}
}

func newTasksReleaseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "release <order-no|id>",
		Short: "Drop a local claim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				t, err := loadTask(ctx, c, args[0])
				if err != nil {
					return err
				}
				if err := c.ReleaseTask(t.ID); err != nil {
					return err
				}
				return writeOut(cmd, app, envelope{Data: map[string]any{"released": t.OrderNo, "panel": c.StaffPanel()}})
			})
		},
	}
}

func newTasksExportCmd(app *App) *cobra.Command {
	var f taskListFlags
	var opt publish.WriteOptions
	var toDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered task list as Markdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				rows, err := f.rows(ctx, c)
				if err != nil {
					return err
				}
				title := "Tasks"
				if s := view.FilterSummary(c.Filter()); s != "" {
					title += " (" + s + ")"
				}
				res, err := publish.WriteTasks(title, rows, toDir, c.Now(), opt)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, envelope{Data: res, Meta: map[string]any{"count": len(rows)}})
			})
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&toDir, "to", "", "Output directory")
	cmd.Flags().BoolVar(&opt.Overwrite, "overwrite", false, "Replace existing files")
	cmd.Flags().BoolVar(&opt.Stamp, "stamp", false, "Add the date to the file name")
	return cmd
}
