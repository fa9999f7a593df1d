package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/runoshun/git-murm/internal/app"
	"github.com/runoshun/git-murm/internal/usecase"
	"github.com/spf13/cobra"
)

func newRollbackCommand(c *app.Container) *cobra.Command {
	var (
		dryRun        bool
		preserveQueue bool
		yes           bool
	)

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Revert the merges of the last run",
		Long: `Rollback reverts the merge of every complete feature of the last run, newest
first, with one revert commit per feature. Worktrees kept for failed and
conflicted features are removed. The queue file is cleared afterwards
unless --preserve-queue is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.RollbackUseCase()
			w := cmd.OutOrStdout()

			preview, err := uc.Execute(cmd.Context(), usecase.RollbackInput{DryRun: true})
			if err != nil {
				return err
			}
			if preview.NothingToDo {
				_, _ = fmt.Fprintln(w, "Nothing to roll back.")
				return nil
			}

			_, _ = fmt.Fprintln(w, "Rollback plan:")
			printRollbackActions(w, preview.Actions)

			if dryRun {
				_, _ = fmt.Fprintln(w, "Dry run: no changes made.")
				return nil
			}
			if !yes {
				ok, err := confirm(cmd.Context(), cmd.InOrStdin(), w, "Roll back these features?")
				if err != nil {
					return &ExitError{Err: err, Code: ExitInterrupted}
				}
				if !ok {
					_, _ = fmt.Fprintln(w, "Aborted.")
					return nil
				}
			}

			out, err := uc.Execute(cmd.Context(), usecase.RollbackInput{PreserveQueue: preserveQueue})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(w)
			printRollbackActions(w, out.Actions)
			_, _ = fmt.Fprintf(w, "Rolled back %d feature(s).\n", out.RolledBack)
			if out.QueueCleared {
				_, _ = fmt.Fprintln(w, "Queue cleared.")
			}
			for _, a := range out.Actions {
				if a.Error != "" {
					return &ExitError{Code: ExitFailure}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be rolled back")
	cmd.Flags().BoolVar(&preserveQueue, "preserve-queue", false, "Keep the queue file for inspection")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")

	return cmd
}

func printRollbackActions(w io.Writer, actions []usecase.RollbackAction) {
	for _, a := range actions {
		var line string
		switch a.Kind {
		case usecase.RollbackRevert:
			if a.Commit != nil {
				line = fmt.Sprintf("revert %s (%s)", shortHash(a.Commit.Hash), firstLine(a.Commit.Message))
			} else {
				line = "revert"
			}
		default:
			line = "remove worktree"
		}

		mark := mutedStyle.Render("-")
		switch {
		case a.Error != "":
			mark = errorStyle.Render("✗")
			line += ": " + a.Error
		case a.Done:
			mark = okStyle.Render("✓")
		}
		_, _ = fmt.Fprintf(w, "  %s %s: %s\n", mark, a.Slug, line)
	}
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
