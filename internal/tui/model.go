// Package tui renders a live session status view. It is a consumer of the
// session manager's exposed surface (state, user, loading) and never mutates
// session state except through the manager's own operations.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/opencurrents/currents-cli/internal/session"
)

// Model is the bubbletea model for the status watcher
type Model struct {
	mgr     *session.Manager
	spinner spinner.Model

	width  int
	height int

	lastRefresh time.Time
	refreshing  bool
}

// NewModel creates the status watcher bound to a session manager
func NewModel(mgr *session.Manager) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return Model{
		mgr:     mgr,
		spinner: s,
	}
}

type tickMsg time.Time

type restoredMsg session.State

type refreshDoneMsg bool

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) restoreCmd() tea.Cmd {
	return func() tea.Msg {
		return restoredMsg(m.mgr.Restore(context.Background()))
	}
}

func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return refreshDoneMsg(m.mgr.RefreshAccessToken(context.Background()))
	}
}

// Init starts restoration and the render tick
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.restoreCmd(), tick())
}
