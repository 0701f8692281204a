package cli

import (
	"context"

	"github.com/spf13/cobra"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/state"
	"taskflow-cli/internal/view"
)

func newServicesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "services",
		Aliases: []string{"service"},
		Short:   "Manage the service catalogue",
	}
	cmd.AddCommand(newServicesListCmd(app))
	cmd.AddCommand(newServicesCreateCmd(app))
	cmd.AddCommand(newServicesUpdateCmd(app))
	cmd.AddCommand(newServicesDeleteCmd(app))
	return cmd
}

func writeServices(cmd *cobra.Command, app *App, c *state.Controller, message string) error {
	rows := view.ServiceRows(c)
	dups := 0
	for _, r := range rows {
		if r.Duplicate {
			dups++
		}
	}
	meta := map[string]any{"count": len(rows), "duplicates": dups}
	if message != "" {
		meta["message"] = message
	}
	return writeData(cmd, app, envelope{Data: rows, Meta: meta}, serviceTable(rows))
}

func newServicesListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List services (duplicate names are flagged)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				if err := c.LoadServices(ctx); err != nil {
					return err
				}
				return writeServices(cmd, app, c, "")
			})
		},
	}
}

func bindServiceFlags(cmd *cobra.Command, in *api.ServiceInput) {
	cmd.Flags().StringVar(&in.Name, "name", "", "Service name")
	cmd.Flags().Float64Var(&in.Price, "price", 0, "Price")
	cmd.Flags().Float64Var(&in.Fee, "fee", 0, "Government/partner fee")
	cmd.Flags().Float64Var(&in.Charge, "charge", 0, "Service charge")
	cmd.Flags().StringVar(&in.Link, "link", "", "Reference link")
	cmd.Flags().StringVar(&in.Note, "note", "", "Note")
}

func newServicesCreateCmd(app *App) *cobra.Command {
	var in api.ServiceInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a service (admin, manager)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				op, err := c.CreateServiceOp(in)
				if err != nil {
					return err
				}
				if err := c.Do(ctx, op); err != nil {
					return err
				}
				return writeServices(cmd, app, c, op.Done)
			})
		},
	}
	bindServiceFlags(cmd, &in)
	return cmd
}

func newServicesUpdateCmd(app *App) *cobra.Command {
	var in api.ServiceInput

	cmd := &cobra.Command{
		Use:   "update <id|name>",
		Short: "Change a service; unset flags keep their current values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				if err := c.LoadServices(ctx); err != nil {
					return err
				}
				sv, err := c.FindService(args[0])
				if err != nil {
					return err
				}
				changed := cmd.Flags().Changed
				next := api.ServiceInput{Name: sv.Name, Price: sv.Price, Fee: sv.Fee, Charge: sv.Charge, Link: sv.Link, Note: sv.Note}
				if changed("name") {
					next.Name = in.Name
				}
				if changed("price") {
					next.Price = in.Price
				}
				if changed("fee") {
					next.Fee = in.Fee
				}
				if changed("charge") {
					next.Charge = in.Charge
				}
				if changed("link") {
					next.Link = in.Link
				}
				if changed("note") {
					next.Note = in.Note
				}
				op, err := c.UpdateServiceOp(sv.ID, next)
				if err != nil {
					return err
				}
				if err := c.Do(ctx, op); err != nil {
					return err
				}
				return writeServices(cmd, app, c, op.Done)
			})
		},
	}
	bindServiceFlags(cmd, &in)
	return cmd
}

func newServicesDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete a service (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, true, func(ctx context.Context, c *state.Controller) error {
				if err := c.LoadServices(ctx); err != nil {
					return err
				}
				sv, err := c.FindService(args[0])
				if err != nil {
					return err
				}
				op, err := c.DeleteServiceOp(sv.ID)
				if err != nil {
					return err
				}
				if err := c.Do(ctx, op); err != nil {
					return err
				}
				return writeServices(cmd, app, c, op.Done)
			})
		},
	}
}
