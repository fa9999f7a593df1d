package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/runoshun/git-murm/internal/domain"
)

// Colors defines the color palette shared by the watch view and CLI output.
var Colors = struct {
	// Base colors
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Error   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color

	// Status colors
	Queued   lipgloss.Color
	Active   lipgloss.Color
	Merging  lipgloss.Color
	Complete lipgloss.Color
	Failed   lipgloss.Color
	Conflict lipgloss.Color
	Aborted  lipgloss.Color
}{
	Primary: lipgloss.Color("#6C5CE7"), // Purple
	Muted:   lipgloss.Color("#636E72"), // Gray
	Error:   lipgloss.Color("#D63031"), // Red
	Success: lipgloss.Color("#00B894"), // Green
	Warning: lipgloss.Color("#FDCB6E"), // Yellow

	Queued:   lipgloss.Color("#74B9FF"), // Light blue
	Active:   lipgloss.Color("#FDCB6E"), // Yellow
	Merging:  lipgloss.Color("#A29BFE"), // Lavender
	Complete: lipgloss.Color("#00B894"), // Green
	Failed:   lipgloss.Color("#D63031"), // Red
	Conflict: lipgloss.Color("#E17055"), // Orange
	Aborted:  lipgloss.Color("#636E72"), // Gray
}

// Styles contains the lipgloss styles for the watch view.
type Styles struct {
	App       lipgloss.Style
	Header    lipgloss.Style
	HeaderSub lipgloss.Style
	Slug      lipgloss.Style
	Elapsed   lipgloss.Style
	Detail    lipgloss.Style
	Summary   lipgloss.Style
	LockLive  lipgloss.Style
	LockStale lipgloss.Style
	Error     lipgloss.Style
	Footer    lipgloss.Style
}

// DefaultStyles returns the default styles.
func DefaultStyles() Styles {
	return Styles{
		App:       lipgloss.NewStyle().Padding(1, 2),
		Header:    lipgloss.NewStyle().Bold(true).Foreground(Colors.Primary),
		HeaderSub: lipgloss.NewStyle().Foreground(Colors.Muted),
		Slug:      lipgloss.NewStyle().Bold(true),
		Elapsed:   lipgloss.NewStyle().Foreground(Colors.Muted),
		Detail:    lipgloss.NewStyle().Foreground(Colors.Muted).PaddingLeft(4),
		Summary:   lipgloss.NewStyle().MarginTop(1),
		LockLive:  lipgloss.NewStyle().Foreground(Colors.Success),
		LockStale: lipgloss.NewStyle().Foreground(Colors.Warning),
		Error:     lipgloss.NewStyle().Foreground(Colors.Error),
		Footer:    lipgloss.NewStyle().MarginTop(1),
	}
}

// StatusColor returns the color for a feature status.
func StatusColor(s domain.Status) lipgloss.Color {
	switch s {
	case domain.StatusQueued:
		return Colors.Queued
	case domain.StatusWorktreeCreated, domain.StatusRunning:
		return Colors.Active
	case domain.StatusMergePending:
		return Colors.Merging
	case domain.StatusComplete:
		return Colors.Complete
	case domain.StatusFailed:
		return Colors.Failed
	case domain.StatusMergeConflict:
		return Colors.Conflict
	case domain.StatusAborted:
		return Colors.Aborted
	default:
		return Colors.Muted
	}
}

// StatusStyle returns a foreground style for a feature status.
func StatusStyle(s domain.Status) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(StatusColor(s))
}
