package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/format"
	"taskflow-cli/internal/logging"
	"taskflow-cli/internal/state"
	"taskflow-cli/internal/store"
	"taskflow-cli/internal/tui"
)

type App struct {
	Server     string
	Profile    string
	PrettyJSON bool
	Format     string
	Verbose    bool

	cfg     *store.Config
	log     *zap.Logger
	storage *store.SessionStorage
	client  *api.Client
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "taskflow",
		Short:        "TaskFlow dashboard client (TUI + CLI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive dashboard
  taskflow

  # Sign in once per profile, then script away
  taskflow login --username admin --password-stdin
  taskflow tasks list --status Pending --format table

  # Direct task lookup (shortcut for: taskflow tasks show TF-001)
  taskflow TF-001
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !format.Valid(app.Format) {
			return writeErr(cmd, fmt.Errorf("unknown format: %s (json|edn|table)", app.Format))
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Server, "server", envOr("TASKFLOW_SERVER", ""), "Backend base URL (default from config, then http://127.0.0.1:5000)")
	cmd.PersistentFlags().StringVar(&app.Profile, "profile", envOr("TASKFLOW_PROFILE", ""), "Profile name; each profile keeps its own session")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("TASKFLOW_FORMAT", "json"), "Output format (json|edn|table)")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Log requests to stderr at debug level")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newServicesCmd(app))
	cmd.AddCommand(newUsersCmd(app))
	cmd.AddCommand(newDashboardCmd(app))
	cmd.AddCommand(newReportsCmd(app))
	cmd.AddCommand(newStaffPanelCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDoctorCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	// The TUI owns the terminal; logs go to the configured file only.
	c, err := app.open(cmd.Context(), false)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer app.close()
	return tui.Run(tui.Options{
		Controller: c,
		Branches:   app.cfg.Branches,
		Paymodes:   app.cfg.Paymodes,
		Theme:      app.cfg.TUI.Theme,
		Logger:     app.log,
		OpTimeout:  app.cfg.RequestTimeout(),
	})
}

// loadConfig applies flag > env > config file > default.
func (app *App) loadConfig() (*store.Config, error) {
	if app.cfg != nil {
		return app.cfg, nil
	}
	cfg, err := store.LoadConfig()
	if err != nil {
		return nil, err
	}
	if s := strings.TrimSpace(app.Server); s != "" {
		cfg.Server = s
	}
	if p := strings.TrimSpace(app.Profile); p != "" {
		cfg.Profile = p
	}
	app.cfg = cfg
	return cfg, nil
}

// open builds the logger, client, session storage and controller, restoring a saved
// session for the profile when it belongs to the same server.
func (app *App) open(ctx context.Context, logToStderr bool) (*state.Controller, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := app.loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Stderr:  logToStderr && app.Verbose,
		Verbose: app.Verbose,
	})
	if err != nil {
		return nil, err
	}
	app.log = log

	client, err := api.New(api.Options{BaseURL: cfg.Server, Timeout: cfg.RequestTimeout(), Logger: log})
	if err != nil {
		return nil, err
	}
	app.client = client

	dir, err := store.ProfileDir(cfg.Profile)
	if err != nil {
		return nil, err
	}
	ss, err := store.OpenSessionStorage(ctx, dir)
	if err != nil {
		return nil, err
	}
	app.storage = ss

	c, err := state.New(state.Options{Backend: client, Storage: ss, Logger: log})
	if err != nil {
		app.close()
		return nil, err
	}
	if _, err := c.Restore(ctx); err != nil {
		log.Warn("restore session", zap.Error(err))
	}
	return c, nil
}

func (app *App) close() {
	if app.storage != nil {
		_ = app.storage.Close()
		app.storage = nil
	}
	if app.log != nil {
		_ = app.log.Sync()
	}
}

// withController runs fn against an opened controller. signedIn requires a restored session.
func withController(cmd *cobra.Command, app *App, signedIn bool, fn func(ctx context.Context, c *state.Controller) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := app.open(ctx, true)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer app.close()
	if signedIn && !c.SignedIn() {
		return writeErr(cmd, state.ErrNotSignedIn)
	}
	if err := fn(ctx, c); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

type envelope struct {
	Data  any            `json:"data"`
	Meta  map[string]any `json:"meta,omitempty"`
	Hints []string       `json:"_hints,omitempty"`
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

// writeData writes env, or table when table output was asked for and the payload has one.
func writeData(cmd *cobra.Command, app *App, env envelope, table format.Tabular) error {
	if table != nil && strings.EqualFold(strings.TrimSpace(app.Format), format.Table) {
		return format.WriteTable(cmd.OutOrStdout(), table)
	}
	return writeOut(cmd, app, env)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), errorMessage(err))
	return err
}
