// Package tui is the interactive terminal dashboard.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"taskflow-cli/internal/state"
)

type Options struct {
	Controller *state.Controller
	// Branches and Paymodes seed the choice fields of the task forms.
	Branches []string
	Paymodes []string
	// Theme is the configured theme preference ("auto", "light" or "dark").
	Theme     string
	Logger    *zap.Logger
	OpTimeout time.Duration
}

// Run starts the dashboard and blocks until the user quits.
func Run(opt Options) error {
	applyColorProfilePreference()
	applyThemePreference(opt.Theme)
	applyGlyphPreference()

	m := newAppModel(opt)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
