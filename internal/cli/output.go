package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/runoshun/git-murm/internal/domain"
	"github.com/runoshun/git-murm/internal/tui"
	"github.com/runoshun/git-murm/internal/usecase"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(tui.Colors.Success)
	errorStyle   = lipgloss.NewStyle().Foreground(tui.Colors.Error)
	warningStyle = lipgloss.NewStyle().Foreground(tui.Colors.Warning)
	mutedStyle   = lipgloss.NewStyle().Foreground(tui.Colors.Muted)
	headingStyle = lipgloss.NewStyle().Bold(true)
)

// syncWriter serializes writes from concurrent goroutines.
type syncWriter struct {
	w  io.Writer
	mu sync.Mutex
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// confirm asks a y/N question. Anything but y or yes, including EOF, is no.
// Cancelling ctx abandons the read and returns ctx's error.
func confirm(ctx context.Context, in io.Reader, w io.Writer, prompt string) (bool, error) {
	_, _ = fmt.Fprintf(w, "%s [y/N] ", prompt)

	type reply struct {
		line string
		err  error
	}
	answer := make(chan reply, 1)
	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		answer <- reply{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		_, _ = fmt.Fprintln(w)
		return false, ctx.Err()
	case r := <-answer:
		if r.err != nil && r.line == "" {
			_, _ = fmt.Fprintln(w)
			return false, nil
		}
		switch strings.ToLower(strings.TrimSpace(r.line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

func printRepository(w io.Writer, r *usecase.RepositoryReport) {
	_, _ = fmt.Fprintf(w, "%s base branch %s, %s\n", headingStyle.Render("Repository:"), r.BaseBranch, r.GitVersion)
	for _, p := range r.Problems {
		_, _ = fmt.Fprintf(w, "  %s %s\n", errorStyle.Render("✗"), p)
	}
}

func printValidation(w io.Writer, v *domain.BatchValidation) {
	minutes := make(map[string]int, len(v.ScopeEstimates))
	for _, e := range v.ScopeEstimates {
		minutes[e.Slug] = e.Minutes
	}

	_, _ = fmt.Fprintln(w, headingStyle.Render("Features:"))
	for _, f := range v.Features {
		if f.Valid {
			_, _ = fmt.Fprintf(w, "  %s %s  %d stories, %d files, ~%d min\n",
				okStyle.Render("✓"), f.Slug, f.StoryCount, len(f.FilesToModify), minutes[f.Slug])
		} else {
			_, _ = fmt.Fprintf(w, "  %s %s\n", errorStyle.Render("✗"), f.Slug)
		}
		for _, e := range f.Errors {
			_, _ = fmt.Fprintf(w, "      %s\n", errorStyle.Render(e))
		}
		for _, warn := range f.Warnings {
			_, _ = fmt.Fprintf(w, "      %s\n", warningStyle.Render(warn))
		}
	}

	if len(v.FileOverlaps) > 0 {
		_, _ = fmt.Fprintln(w, headingStyle.Render("File overlaps:"))
		for _, o := range v.FileOverlaps {
			_, _ = fmt.Fprintf(w, "  %s: %s\n", o.File, strings.Join(o.Slugs, ", "))
		}
	}
	if len(v.Dependencies) > 0 {
		_, _ = fmt.Fprintln(w, headingStyle.Render("Dependencies:"))
		for _, d := range v.Dependencies {
			_, _ = fmt.Fprintf(w, "  %s depends on %s\n", d.Feature, d.DependsOn)
		}
	}
	if len(v.Recommendations) > 0 {
		_, _ = fmt.Fprintln(w, headingStyle.Render("Recommendations:"))
		for _, r := range v.Recommendations {
			_, _ = fmt.Fprintf(w, "  - %s\n", r)
		}
	}
	_, _ = fmt.Fprintf(w, "Estimated time: ~%d min sequential, ~%d min parallel\n", v.TotalMinutes, v.ParallelMinutes)
}

// printPlan shows what a run is about to do.
func printPlan(w io.Writer, plan *usecase.RunPlan) {
	printRepository(w, plan.Repository)
	if plan.Validation != nil {
		printValidation(w, plan.Validation)
	}
	if plan.Lock != nil && plan.Lock.Stale && plan.Lock.Existing != nil {
		_, _ = fmt.Fprintf(w, "%s\n", mutedStyle.Render(fmt.Sprintf("Replaced stale lock from pid %d", plan.Lock.Existing.PID)))
	}
	if plan.DiskWarning != "" {
		_, _ = fmt.Fprintf(w, "%s %s\n", warningStyle.Render("Warning:"), plan.DiskWarning)
	}
	_, _ = fmt.Fprintf(w, "Concurrency %d, timeout %s per feature\n", plan.Concurrency, domain.FormatTimeout(plan.Timeout))
	_, _ = fmt.Fprintf(w, "Starting: %s\n", strings.Join(plan.Active, ", "))
	if len(plan.Queued) > 0 {
		_, _ = fmt.Fprintf(w, "Queued:   %s\n", strings.Join(plan.Queued, ", "))
	}
}

func printEvent(w io.Writer, ev usecase.FeatureEvent) {
	line := fmt.Sprintf("[%s] %s %s", ev.Time.Format("15:04:05"), ev.Slug, tui.StatusStyle(ev.Status).Render(ev.Status.Display()))
	if ev.Message != "" {
		line += mutedStyle.Render(" " + ev.Message)
	}
	_, _ = fmt.Fprintln(w, line)
}

// printFeatures renders one line per feature, with details below.
func printFeatures(w io.Writer, features []usecase.FeatureStatus) {
	width := tui.SlugColumnWidth(features)
	for _, fs := range features {
		f := fs.Record
		style := tui.StatusStyle(f.Status)
		line := fmt.Sprintf("  %s %s %s %s",
			style.Render(f.Status.Icon()),
			tui.PadRight(f.Slug, width),
			style.Render(tui.PadRight(f.Status.Display(), 16)),
			tui.FormatElapsed(fs.Elapsed))
		if f.Status.IsInFlight() {
			line += fmt.Sprintf("  %s %d%%", fs.Progress.Stage, fs.Progress.Percent)
		}
		_, _ = fmt.Fprintln(w, line)
		if detail := tui.FeatureDetail(f); detail != "" {
			_, _ = fmt.Fprintf(w, "      %s\n", mutedStyle.Render(detail))
		}
	}
}

// featureStatuses adapts finished records to the status listing.
func featureStatuses(state *domain.RunState, now time.Time) []usecase.FeatureStatus {
	out := make([]usecase.FeatureStatus, 0, len(state.Features))
	for _, f := range state.Features {
		out = append(out, usecase.FeatureStatus{Record: f, Elapsed: f.Elapsed(now)})
	}
	return out
}

func printList(w io.Writer, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, heading)
	for _, item := range items {
		_, _ = fmt.Fprintf(w, "  - %s\n", item)
	}
}
