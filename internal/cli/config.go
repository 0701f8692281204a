package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"taskflow-cli/internal/store"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change ~/.taskflow/config.yaml",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration (flags and env applied)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			path, err := store.ConfigPath()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: cfg, Meta: map[string]any{"path": path}})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set server|profile|timeout|log.level|log.file|tui.theme",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := store.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := setConfigKey(cfg, args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			if err := store.SaveConfig(cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: cfg})
		},
	})
	return cmd
}

func setConfigKey(cfg *store.Config, key, value string) error {
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "server":
		cfg.Server = value
	case "profile":
		p, err := store.NormalizeProfileName(value)
		if err != nil {
			return err
		}
		cfg.Profile = p
	case "timeout":
		cfg.Timeout = value
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "tui.theme":
		switch value {
		case "auto", "light", "dark":
		default:
			return fmt.Errorf("invalid tui.theme %q (auto|light|dark)", value)
		}
		cfg.TUI.Theme = value
	case "branches":
		cfg.Branches = splitList(value)
	case "paymodes":
		cfg.Paymodes = splitList(value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
