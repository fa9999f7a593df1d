package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/runoshun/git-murm/internal/app"
	"github.com/runoshun/git-murm/internal/usecase"
	"github.com/spf13/cobra"
)

func newCleanupCommand(c *app.Container) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove worktrees left by the last run",
		Long: `Cleanup removes the worktrees and branches of complete and aborted features.
Failed and conflicted features are kept for inspection unless --all is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.CleanupUseCase().Execute(cmd.Context(), usecase.CleanupInput{All: all})
			if err != nil {
				return err
			}
			printCleanup(cmd.OutOrStdout(), out, !all)
			if len(out.Failed) > 0 {
				return &ExitError{Code: ExitFailure}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Also remove worktrees of failed and conflicted features")

	return cmd
}

func printCleanup(w io.Writer, out *usecase.CleanupOutput, hintAll bool) {
	if len(out.Removed) == 0 && len(out.Missing) == 0 && len(out.Failed) == 0 && len(out.Kept) == 0 {
		_, _ = fmt.Fprintln(w, "Nothing to clean up.")
		return
	}
	printList(w, "Removed:", out.Removed)
	printList(w, "Already gone (branch deleted):", out.Missing)
	if len(out.Kept) > 0 {
		printList(w, "Kept (failed or conflicted):", out.Kept)
		if hintAll {
			_, _ = fmt.Fprintln(w, "Pass --all to remove them too.")
		}
	}
	if len(out.Failed) > 0 {
		slugs := make([]string, 0, len(out.Failed))
		for slug := range out.Failed {
			slugs = append(slugs, slug)
		}
		sort.Strings(slugs)
		_, _ = fmt.Fprintln(w, errorStyle.Render("Could not remove:"))
		for _, slug := range slugs {
			_, _ = fmt.Fprintf(w, "  - %s: %s\n", slug, out.Failed[slug])
		}
	}
}
