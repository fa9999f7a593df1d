package cli

import (
	"github.com/runoshun/git-murm/internal/app"
	"github.com/runoshun/git-murm/internal/domain"
	"github.com/runoshun/git-murm/internal/usecase"
	"github.com/spf13/cobra"
)

func newValidateCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <slug>...",
		Short: "Check the repository and feature documents without running",
		Long: `Validate runs the same checks as 'murm run' before it starts: repository
state, feature specs and stories, file overlaps between plans, declared
dependencies and time estimates. It exits 1 when a run would be refused.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := domain.ValidateSlugs(args); err != nil {
				return err
			}

			out, err := c.PreflightUseCase().Execute(cmd.Context(), usecase.PreflightInput{Slugs: args})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printRepository(w, out.Repository)
			printValidation(w, out.Validation)

			if !out.Repository.OK() || !out.Validation.Valid {
				return &ExitError{Code: ExitFailure}
			}
			return nil
		},
	}
}
