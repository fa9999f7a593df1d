package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/runoshun/git-murm/internal/app"
	"github.com/runoshun/git-murm/internal/tui"
	"github.com/runoshun/git-murm/internal/usecase"
	"github.com/spf13/cobra"
)

// runWatchFunc opens the live view; tests replace it.
var runWatchFunc = tui.Run

func newStatusCommand(c *app.Container) *cobra.Command {
	var (
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the current or last run",
		Long: `Status reads the queue file and each pipeline log to show where every
feature is. Progress is estimated from stage markers in the logs.

With --watch, a live view refreshes whenever the queue file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.ShowStatusUseCase()
			if watch {
				return runWatchFunc(cmd.Context(), uc, c.Config.QueuePath, interval)
			}

			out, err := uc.Execute(cmd.Context(), usecase.ShowStatusInput{})
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep refreshing in a live view")
	cmd.Flags().DurationVar(&interval, "interval", tui.DefaultRefreshInterval, "Refresh interval for --watch")

	return cmd
}

func printStatus(w io.Writer, out *usecase.ShowStatusOutput) {
	switch {
	case out.Lock == nil:
	case out.LockAlive:
		_, _ = fmt.Fprintf(w, "Running in pid %d since %s\n", out.Lock.PID, out.Lock.StartedAt.Format("2006-01-02 15:04:05"))
	default:
		_, _ = fmt.Fprintf(w, "%s stale lock from pid %d; the next run will replace it\n",
			warningStyle.Render("Warning:"), out.Lock.PID)
	}

	if len(out.Features) == 0 {
		_, _ = fmt.Fprintln(w, "No murm run recorded.")
		return
	}

	state := out.State
	_, _ = fmt.Fprintf(w, "Run %s on %s", state.RunID, state.BaseBranch)
	if state.StartedAt != nil {
		_, _ = fmt.Fprintf(w, ", started %s", state.StartedAt.Format("2006-01-02 15:04:05"))
	}
	_, _ = fmt.Fprintln(w)
	printFeatures(w, out.Features)
	_, _ = fmt.Fprintln(w, tui.SummaryLine(out.Summary))
}
