package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Progress bar width bounds.
const (
	minBarWidth = 10
	maxBarWidth = 40
)

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.bar.Width = min(max(msg.Width-60, minBarWidth), maxBarWidth)
		return m, nil

	case MsgStatusLoaded:
		m.status = msg.Status
		m.err = nil
		return m, nil

	case MsgError:
		m.err = msg.Err
		return m, nil

	case MsgQueueChanged:
		return m, tea.Batch(m.load(), m.waitForChange())

	case MsgTick:
		return m, tea.Batch(m.load(), m.tick())
	}

	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Refresh):
		return m, m.load()
	case key.Matches(msg, m.keys.Details):
		m.showDetails = !m.showDetails
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}
