package cli

import (
	"fmt"
	"strings"

	"github.com/runoshun/git-murm/internal/app"
	"github.com/runoshun/git-murm/internal/usecase"
	"github.com/spf13/cobra"
)

func newAbortCommand(c *app.Container) *cobra.Command {
	var cleanup bool

	cmd := &cobra.Command{
		Use:   "abort",
		Short: "Stop a running murm run",
		Long: `Abort sends SIGTERM to the process that holds the run lock. That process
stops its pipelines and records them as aborted.

If the owner is already gone, abort marks its in-flight features aborted
and releases the lock itself. Worktrees are kept unless --cleanup is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.AbortMurmUseCase().Execute(cmd.Context(), usecase.AbortMurmInput{Cleanup: cleanup})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out.NothingRunning {
				_, _ = fmt.Fprintln(w, "No murm pipelines running.")
				return nil
			}

			if out.Signalled {
				_, _ = fmt.Fprintf(w, "Sent SIGTERM to murm run (pid %d). It will mark its features aborted.\n", out.Lock.PID)
				if cleanup {
					_, _ = fmt.Fprintln(w, "Run 'murm cleanup' once it has exited.")
				}
			} else {
				if len(out.Aborted) > 0 {
					_, _ = fmt.Fprintf(w, "Marked aborted: %s\n", strings.Join(out.Aborted, ", "))
				}
				if out.Lock != nil {
					_, _ = fmt.Fprintf(w, "Released lock of pid %d.\n", out.Lock.PID)
				}
			}

			if out.Cleanup != nil {
				printCleanup(w, out.Cleanup, false)
			}
			printList(w, "Worktrees kept for inspection:", out.Worktrees)
			return nil
		},
	}

	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "Remove aborted worktrees afterwards")

	return cmd
}
