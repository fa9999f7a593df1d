// Package cli provides the command-line interface for murm.
package cli

import (
	"fmt"

	"github.com/runoshun/git-murm/internal/app"
	"github.com/spf13/cobra"
)

// Command group IDs.
const (
	groupRun      = "run"
	groupRecovery = "recovery"
	groupSetup    = "setup"
)

// NewRootCommand creates the root command for murm.
// It receives the container for dependency injection and version for display.
// c is nil when murm runs outside a git repository; only help and version
// work then.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "murm",
		Short: "Run feature pipelines in parallel git worktrees",
		Long: `murm runs an external implementation pipeline for several features at once.
Each feature gets its own git worktree and branch. Successful branches are
merged back into the current branch one at a time; failures and conflicts
are preserved for inspection.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if c == nil {
				return nil
			}
			stderr := cmd.ErrOrStderr()
			for _, m := range c.Migrated {
				_, _ = fmt.Fprintf(stderr, "Migrated %s -> %s\n", m.Old, m.New)
			}
			// config subcommands report warnings themselves
			if cmd.Parent() != nil && cmd.Parent().Name() == "config" {
				return nil
			}
			if c.Settings != nil {
				for _, w := range c.Settings.Warnings {
					_, _ = fmt.Fprintf(stderr, "Warning: %s\n", w)
				}
			}
			return nil
		},
	}

	root.AddGroup(
		&cobra.Group{ID: groupRun, Title: "Run Commands:"},
		&cobra.Group{ID: groupRecovery, Title: "Recovery Commands:"},
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
	)

	runCmd := newRunCommand(c)
	runCmd.GroupID = groupRun

	statusCmd := newStatusCommand(c)
	statusCmd.GroupID = groupRun

	validateCmd := newValidateCommand(c)
	validateCmd.GroupID = groupRun

	abortCmd := newAbortCommand(c)
	abortCmd.GroupID = groupRecovery

	rollbackCmd := newRollbackCommand(c)
	rollbackCmd.GroupID = groupRecovery

	cleanupCmd := newCleanupCommand(c)
	cleanupCmd.GroupID = groupRecovery

	configCmd := newConfigCommand(c)
	configCmd.GroupID = groupSetup

	root.AddCommand(
		runCmd,
		statusCmd,
		validateCmd,
		abortCmd,
		rollbackCmd,
		cleanupCmd,
		configCmd,
	)

	return root
}
