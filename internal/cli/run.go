package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/runoshun/git-murm/internal/app"
	"github.com/runoshun/git-murm/internal/domain"
	"github.com/runoshun/git-murm/internal/tui"
	"github.com/runoshun/git-murm/internal/usecase"
	"github.com/spf13/cobra"
)

type runOptions struct {
	timeout       time.Duration
	concurrency   int
	yes           bool
	dryRun        bool
	force         bool
	skipPreflight bool
	strict        bool
	verbose       bool
}

func newRunCommand(c *app.Container) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <slug>...",
		Short: "Run the pipeline for several features in parallel",
		Long: `Run validates the features, then runs the pipeline for each one in its own
worktree, at most --concurrency at a time. Successful features are merged
into the current branch as they finish.

Ctrl-C stops every pipeline, marks in-flight features aborted and keeps
their worktrees. Run 'murm cleanup' to remove them afterwards.`,
		Example: `  murm run user-auth billing --concurrency 2
  murm run user-auth --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runMurm(ctx, cmd, c, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Skip confirmation prompt")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show the plan without starting anything")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Take the lock even if another run holds it")
	cmd.Flags().BoolVar(&opts.skipPreflight, "skip-preflight", false, "Skip feature document validation")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Refuse to start when disk space is low")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Stream pipeline output to the terminal")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 0, "Maximum pipelines at once (default from config)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Per-feature pipeline timeout (default from config)")

	return cmd
}

func runMurm(ctx context.Context, cmd *cobra.Command, c *app.Container, slugs []string, opts runOptions) error {
	// Events and pipeline output arrive from different goroutines
	w := &syncWriter{w: cmd.OutOrStdout()}
	stderr := cmd.ErrOrStderr()

	in := usecase.RunMurmInput{
		Slugs:         slugs,
		Concurrency:   opts.concurrency,
		Timeout:       opts.timeout,
		DryRun:        opts.dryRun,
		Force:         opts.force,
		SkipPreflight: opts.skipPreflight,
		Strict:        opts.strict,
		Confirm: func(plan *usecase.RunPlan) (bool, error) {
			printPlan(w, plan)
			if opts.yes {
				return true, nil
			}
			ok, err := confirm(ctx, cmd.InOrStdin(), w, fmt.Sprintf("Start %d feature(s)?", len(slugs)))
			if err != nil {
				return false, fmt.Errorf("%w: %w", domain.ErrInterrupted, err)
			}
			return ok, nil
		},
		OnEvent: func(ev usecase.FeatureEvent) {
			printEvent(w, ev)
		},
	}
	if opts.verbose {
		in.Echo = w
	}

	out, err := c.RunMurmUseCase().Execute(ctx, in)
	if errors.Is(err, domain.ErrInterrupted) {
		if out != nil && out.State != nil {
			_, _ = fmt.Fprintln(w)
			printFeatures(w, featureStatuses(out.State, c.Clock.Now()))
			printInterrupted(w, out)
		}
		return &ExitError{Err: err, Code: ExitInterrupted}
	}
	if err != nil {
		printRunErrorHints(stderr, c, err)
		return err
	}

	switch {
	case opts.dryRun:
		printPlan(w, out.Plan)
		_, _ = fmt.Fprintln(w, "Dry run: nothing started.")
		return nil
	case out.Declined:
		_, _ = fmt.Fprintln(w, "Aborted.")
		return nil
	}

	_, _ = fmt.Fprintln(w)
	printFeatures(w, featureStatuses(out.State, c.Clock.Now()))
	_, _ = fmt.Fprintln(w, tui.SummaryLine(out.Summary))
	printKeptWorktrees(w, out.State)

	if !out.Summary.Succeeded() {
		return &ExitError{Code: ExitFailure}
	}
	return nil
}

func printInterrupted(w io.Writer, out *usecase.RunMurmOutput) {
	_, _ = fmt.Fprintln(w, warningStyle.Render("Run interrupted."))
	for _, p := range out.Stopped {
		_, _ = fmt.Fprintf(w, "  sent SIGTERM to %s (pid %d)\n", p.Slug, p.PID)
	}
	printKeptWorktrees(w, out.State)
	_, _ = fmt.Fprintln(w, "Queued features were not started. Run 'murm cleanup' to remove aborted worktrees.")
}

// printKeptWorktrees lists the worktrees left behind for inspection.
func printKeptWorktrees(w io.Writer, state *domain.RunState) {
	var kept []string
	for _, f := range state.Features {
		if f.WorktreePath == "" || f.Status == domain.StatusComplete {
			continue
		}
		switch f.Status {
		case domain.StatusMergeConflict:
			kept = append(kept, fmt.Sprintf("%s: resolve with 'git merge %s' (worktree %s)", f.Slug, f.BranchName, f.WorktreePath))
		default:
			kept = append(kept, fmt.Sprintf("%s: %s", f.Slug, f.WorktreePath))
		}
	}
	printList(w, "Worktrees kept:", kept)
}

// printRunErrorHints explains how to get past errors that stop a run before
// it starts.
func printRunErrorHints(w io.Writer, c *app.Container, err error) {
	var preflightErr *domain.PreflightError
	var lockErr *domain.LockConflictError
	var repoErr *domain.RepositoryStateError

	switch {
	case errors.As(err, &preflightErr):
		if preflightErr.Validation == nil {
			return
		}
		printValidation(w, preflightErr.Validation)
		for _, f := range preflightErr.Validation.Invalid() {
			if !f.SpecExists {
				_, _ = fmt.Fprintf(w, "Create %s to describe %s.\n",
					filepath.Join(domain.FeatureDocsDir(c.Config.FeaturesDir, f.Slug), "FEATURE_SPEC.md"), f.Slug)
			}
		}
		_, _ = fmt.Fprintln(w, "Fix the features above or pass --skip-preflight.")
	case errors.As(err, &lockErr):
		_, _ = fmt.Fprintln(w, "Wait for it to finish, stop it with 'murm abort', or pass --force.")
	case errors.As(err, &repoErr):
		for _, p := range repoErr.Problems {
			_, _ = fmt.Fprintf(w, "  %s %s\n", errorStyle.Render("✗"), p)
		}
	case errors.Is(err, domain.ErrDiskSpaceLow):
		_, _ = fmt.Fprintln(w, "Free some space, lower min_disk_space_mb, or drop --strict.")
	}
}
