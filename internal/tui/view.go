package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/runoshun/git-murm/internal/domain"
	"github.com/runoshun/git-murm/internal/usecase"
)

// Column widths of the feature table.
const (
	statusColumnWidth  = 16
	elapsedColumnWidth = 8
	maxSlugColumnWidth = 32
)

// View renders the model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Header.Render("murm status"))
	if m.status != nil && m.status.State.RunID != "" {
		b.WriteString(m.styles.HeaderSub.Render(fmt.Sprintf("  run %s on %s", shortID(m.status.State.RunID), m.status.State.BaseBranch)))
	}
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(m.styles.Error.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	case m.status == nil:
		b.WriteString("Loading...\n")
	default:
		b.WriteString(m.renderStatus())
	}

	b.WriteString(m.styles.Footer.Render(m.help.View(m.keys)))
	return m.styles.App.Render(b.String())
}

func (m *Model) renderStatus() string {
	var b strings.Builder
	out := m.status

	b.WriteString(m.renderLock(out))
	b.WriteString("\n")

	if len(out.Features) == 0 {
		b.WriteString("\nNo murm run recorded.\n")
		return b.String()
	}

	b.WriteString("\n")
	slugWidth := SlugColumnWidth(out.Features)
	for _, fs := range out.Features {
		b.WriteString(m.renderFeature(fs, slugWidth))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Summary.Render(SummaryLine(out.Summary)))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderLock(out *usecase.ShowStatusOutput) string {
	switch {
	case out.Lock == nil:
		return m.styles.HeaderSub.Render("No run holds the lock")
	case out.LockAlive:
		return m.styles.LockLive.Render(fmt.Sprintf("Running in pid %d since %s", out.Lock.PID, out.Lock.StartedAt.Format("15:04:05")))
	default:
		return m.styles.LockStale.Render(fmt.Sprintf("Stale lock from pid %d (process gone)", out.Lock.PID))
	}
}

func (m *Model) renderFeature(fs usecase.FeatureStatus, slugWidth int) string {
	f := fs.Record
	style := StatusStyle(f.Status)

	line := fmt.Sprintf("%s %s %s %s",
		style.Render(f.Status.Icon()),
		m.styles.Slug.Render(PadRight(f.Slug, slugWidth)),
		style.Render(PadRight(f.Status.Display(), statusColumnWidth)),
		m.styles.Elapsed.Render(PadRight(FormatElapsed(fs.Elapsed), elapsedColumnWidth)),
	)
	if f.Status.IsInFlight() {
		line += " " + m.bar.ViewAs(float64(fs.Progress.Percent)/100) + " " + fs.Progress.Stage
	}

	if m.showDetails {
		if detail := FeatureDetail(f); detail != "" {
			line += "\n" + m.styles.Detail.Render(detail)
		}
	}
	return line
}

// FeatureDetail returns the error, conflict or log hint for a feature.
func FeatureDetail(f *domain.FeatureRecord) string {
	switch {
	case f.TimedOut:
		return fmt.Sprintf("%s (log: %s)", f.Error, f.LogPath)
	case f.Status == domain.StatusMergeConflict && f.Error == "":
		return fmt.Sprintf("branch %s preserved at %s", f.BranchName, f.WorktreePath)
	case f.Error != "" && f.LogPath != "":
		return fmt.Sprintf("%s (log: %s)", f.Error, f.LogPath)
	default:
		return f.Error
	}
}

// SummaryLine renders the per-status counts of a run.
func SummaryLine(s domain.Summary) string {
	parts := []string{fmt.Sprintf("%d complete", s.Complete)}
	if s.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", s.Failed))
	}
	if s.Conflicts > 0 {
		parts = append(parts, fmt.Sprintf("%d conflicted", s.Conflicts))
	}
	if s.Aborted > 0 {
		parts = append(parts, fmt.Sprintf("%d aborted", s.Aborted))
	}
	if s.Pending > 0 {
		parts = append(parts, fmt.Sprintf("%d pending", s.Pending))
	}
	return fmt.Sprintf("%s of %d feature(s)", strings.Join(parts, ", "), s.Total)
}

// FormatElapsed renders a duration as 1h02m, 4m05s or 12s.
func FormatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	mins := int(d % time.Hour / time.Minute)
	secs := int(d % time.Minute / time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, mins)
	case mins > 0:
		return fmt.Sprintf("%dm%02ds", mins, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// SlugColumnWidth returns the display width of the widest slug, capped.
func SlugColumnWidth(features []usecase.FeatureStatus) int {
	width := 0
	for _, fs := range features {
		width = max(width, runewidth.StringWidth(fs.Record.Slug))
	}
	return min(width, maxSlugColumnWidth)
}

// PadRight pads or truncates s to exactly width terminal cells.
func PadRight(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
