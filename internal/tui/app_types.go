package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"taskflow-cli/internal/state"
)

type modalKind int

const (
	modalNone modalKind = iota
	modalHelp
	modalDetail
	modalForm
	modalPickStatus
	modalPickShare
	modalReason
	modalConfirm
)

// opDoneMsg carries a finished backend op back to the update loop, the only place the
// controller is mutated.
type opDoneMsg struct {
	res state.Result
}

// clockTickMsg drives the minibuffer auto-clear and the overdue badges.
type clockTickMsg time.Time

const (
	clockInterval            = time.Second
	minibufferAutoClearAfter = 4 * time.Second
	defaultOpTimeout         = 20 * time.Second
)

func clockTick() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg { return clockTickMsg(t) })
}

type loginFocus int

const (
	loginFocusUser loginFocus = iota
	loginFocusPass
)
