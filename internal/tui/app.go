// Package tui implements the live status view of a murm run.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/runoshun/git-murm/internal/usecase"
)

// DefaultRefreshInterval is how often progress is re-read from pipeline logs.
const DefaultRefreshInterval = time.Second

// StatusLoader loads the current run status.
type StatusLoader interface {
	Execute(ctx context.Context, in usecase.ShowStatusInput) (*usecase.ShowStatusOutput, error)
}

// Model is the bubbletea model for `murm status --watch`.
type Model struct {
	// Dependencies (pointers first for alignment)
	loader  StatusLoader
	changes <-chan struct{}
	status  *usecase.ShowStatusOutput
	err     error

	// Components
	keys   KeyMap
	styles Styles
	help   help.Model
	bar    progress.Model

	// Numeric state (smaller types last)
	interval    time.Duration
	width       int
	height      int
	showDetails bool
}

// New creates a watch Model. changes may be nil, in which case the view
// refreshes on the tick alone.
func New(loader StatusLoader, changes <-chan struct{}, interval time.Duration) *Model {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Model{
		loader:   loader,
		changes:  changes,
		keys:     DefaultKeyMap(),
		styles:   DefaultStyles(),
		help:     help.New(),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(24), progress.WithoutPercentage()),
		interval: interval,
	}
}

// Run opens the watch view until the user quits or ctx is cancelled.
func Run(ctx context.Context, loader StatusLoader, queuePath string, interval time.Duration) error {
	var changes <-chan struct{}
	watcher, err := NewQueueWatcher(queuePath)
	if err == nil {
		defer func() { _ = watcher.Close() }()
		changes = watcher.Changes()
	}

	p := tea.NewProgram(New(loader, changes, interval), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

// Init initializes the model and returns the initial command.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.load(),
		m.tick(),
		m.waitForChange(),
	)
}

// load returns a command that reads the queue file and pipeline logs.
func (m *Model) load() tea.Cmd {
	return func() tea.Msg {
		out, err := m.loader.Execute(context.Background(), usecase.ShowStatusInput{})
		if err != nil {
			return MsgError{Err: err}
		}
		return MsgStatusLoaded{Status: out}
	}
}

// tick schedules the next periodic refresh.
func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return MsgTick{}
	})
}

// waitForChange blocks until the queue watcher reports a write.
func (m *Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	ch := m.changes
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return MsgQueueChanged{}
	}
}
