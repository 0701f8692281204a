package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultServer  = "http://127.0.0.1:5000"
	DefaultProfile = "default"
	DefaultTimeout = 15 * time.Second
)

// Config is the user configuration stored at ~/.taskflow/config.yaml.
type Config struct {
	// Server is the backend base URL.
	Server string `yaml:"server,omitempty" json:"server"`
	// Profile names the client identity directory; each profile has its own session.
	Profile string `yaml:"profile,omitempty" json:"profile"`
	// Timeout bounds each HTTP request (Go duration syntax, e.g. "15s").
	Timeout string `yaml:"timeout,omitempty" json:"timeout"`

	Log LogConfig `yaml:"log,omitempty" json:"log"`
	TUI TUIConfig `yaml:"tui,omitempty" json:"tui"`

	// Branches and Paymodes seed the pickers in task forms and filters.
	Branches []string `yaml:"branches,omitempty" json:"branches"`
	Paymodes []string `yaml:"paymodes,omitempty" json:"paymodes"`
}

type LogConfig struct {
	Level string `yaml:"level,omitempty" json:"level"`
	File  string `yaml:"file,omitempty" json:"file"`
}

type TUIConfig struct {
	// Theme is light|dark|auto.
	Theme string `yaml:"theme,omitempty" json:"theme"`
}

func DefaultConfig() *Config {
	return &Config{
		Server:   DefaultServer,
		Profile:  DefaultProfile,
		Timeout:  DefaultTimeout.String(),
		Log:      LogConfig{Level: "info"},
		TUI:      TUIConfig{Theme: "auto"},
		Branches: []string{"SHOP-A", "SHOP-B"},
		Paymodes: []string{"Cash", "Credit Card", "UPI", "Bank Transfer"},
	}
}

// RequestTimeout parses Timeout, falling back to DefaultTimeout.
func (c *Config) RequestTimeout() time.Duration {
	if c == nil {
		return DefaultTimeout
	}
	d, err := time.ParseDuration(strings.TrimSpace(c.Timeout))
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.taskflow).
	if v := strings.TrimSpace(os.Getenv("TASKFLOW_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".taskflow"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadConfig reads the config file (missing file => defaults), then applies
// .env and environment overrides.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	// .env is optional; values already in the environment win.
	_ = godotenv.Load()
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("TASKFLOW_SERVER")); v != "" {
		c.Server = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKFLOW_PROFILE")); v != "" {
		c.Profile = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKFLOW_TIMEOUT")); v != "" {
		c.Timeout = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKFLOW_LOG_LEVEL")); v != "" {
		c.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKFLOW_LOG_FILE")); v != "" {
		c.Log.File = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKFLOW_TUI_THEME")); v != "" {
		c.TUI.Theme = v
	}
}

func SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, ".config-*.yaml", path, b, 0o644)
}

var profileNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

func NormalizeProfileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultProfile, nil
	}
	if !profileNameRe.MatchString(name) {
		return "", fmt.Errorf("invalid profile name %q (letters, digits, '.', '_', '-')", name)
	}
	return name, nil
}

// ProfileDir returns ~/.taskflow/profiles/<name>, creating it.
func ProfileDir(name string) (string, error) {
	name, err := NormalizeProfileName(name)
	if err != nil {
		return "", err
	}
	root, err := ConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, "profiles", name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
