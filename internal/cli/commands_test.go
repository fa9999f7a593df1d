package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/runoshun/git-murm/internal/domain"
	"github.com/runoshun/git-murm/internal/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// finishedRun is a run with one feature in each end state.
func finishedRun() *domain.RunState {
	return &domain.RunState{
		RunID:      "run-1",
		BaseBranch: "main",
		StartedAt:  at(0),
		Features: []*domain.FeatureRecord{
			{Slug: "done", Status: domain.StatusComplete, StartedAt: at(0), CompletedAt: at(5),
				WorktreePath: "/repo/.claude/worktrees/feat-done", BranchName: "feature/done"},
			{Slug: "broke", Status: domain.StatusFailed, StartedAt: at(0), CompletedAt: at(2),
				WorktreePath: "/repo/.claude/worktrees/feat-broke", BranchName: "feature/broke", Error: "pipeline exited with code 1"},
			{Slug: "stopped", Status: domain.StatusAborted, WorktreePath: "/repo/.claude/worktrees/feat-stopped", BranchName: "feature/stopped"},
		},
	}
}

func TestStatusCommand_NoRun(t *testing.T) {
	e := newTestEnv()

	out, _, err := e.execute(t, "", "status")

	require.NoError(t, err)
	assert.Contains(t, out, "No murm run recorded.")
}

func TestStatusCommand_ShowsFeatures(t *testing.T) {
	e := newTestEnv()
	e.queue.State = finishedRun()
	e.locks.Held = &domain.LockRecord{PID: 777, StartedAt: *at(0)}

	out, _, err := e.execute(t, "", "status")

	require.NoError(t, err)
	assert.Contains(t, out, "stale lock from pid 777")
	assert.Contains(t, out, "Run run-1 on main, started 2026-03-01 09:00:00")
	assert.Contains(t, out, "Complete")
	assert.Contains(t, out, "5m00s")
	assert.Contains(t, out, "pipeline exited with code 1")
	assert.Contains(t, out, "1 complete, 1 failed, 1 aborted of 3 feature(s)")
}

func TestStatusCommand_Watch(t *testing.T) {
	original := runWatchFunc
	defer func() { runWatchFunc = original }()

	var gotPath string
	var gotInterval time.Duration
	runWatchFunc = func(_ context.Context, loader tui.StatusLoader, queuePath string, interval time.Duration) error {
		assert.NotNil(t, loader)
		gotPath, gotInterval = queuePath, interval
		return nil
	}

	e := newTestEnv()
	_, _, err := e.execute(t, "", "status", "--watch", "--interval", "2s")

	require.NoError(t, err)
	assert.Equal(t, "/repo/.claude/murm-queue.json", gotPath)
	assert.Equal(t, 2*time.Second, gotInterval)
}

func TestAbortCommand_NothingRunning(t *testing.T) {
	e := newTestEnv()

	out, _, err := e.execute(t, "", "abort")

	require.NoError(t, err)
	assert.Contains(t, out, "No murm pipelines running.")
}

func TestAbortCommand_SignalsLiveRun(t *testing.T) {
	e := newTestEnv()
	e.locks.Held = &domain.LockRecord{PID: 4242}
	e.procs.Alive[4242] = true

	out, _, err := e.execute(t, "", "abort")

	require.NoError(t, err)
	assert.Equal(t, []int{4242}, e.procs.Terminated)
	assert.Contains(t, out, "Sent SIGTERM to murm run (pid 4242)")
}

func TestAbortCommand_RepairsDeadRun(t *testing.T) {
	e := newTestEnv()
	e.locks.Held = &domain.LockRecord{PID: 4242}
	state := finishedRun()
	state.Features = append(state.Features, &domain.FeatureRecord{
		Slug: "orphan", Status: domain.StatusRunning, WorktreePath: "/repo/.claude/worktrees/feat-orphan",
	})
	e.queue.State = state
	e.worktrees.MarkPresent("orphan")

	out, _, err := e.execute(t, "", "abort")

	require.NoError(t, err)
	assert.Contains(t, out, "Marked aborted: orphan")
	assert.Contains(t, out, "Released lock of pid 4242")
	assert.Contains(t, out, "/repo/.claude/worktrees/feat-orphan")
	assert.Nil(t, e.locks.Held)
}

func TestCleanupCommand(t *testing.T) {
	e := newTestEnv()
	e.queue.State = finishedRun()
	e.worktrees.MarkPresent("done")

	out, _, err := e.execute(t, "", "cleanup")

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"done", "stopped"}, e.worktrees.Removed)
	assert.Contains(t, out, "Removed:\n  - done")
	assert.Contains(t, out, "Already gone (branch deleted):\n  - stopped")
	assert.Contains(t, out, "Kept (failed or conflicted):")
	assert.Contains(t, out, "Pass --all to remove them too.")
}

func TestCleanupCommand_RemoveErrorExitsOne(t *testing.T) {
	e := newTestEnv()
	e.queue.State = finishedRun()
	e.worktrees.RemoveErr = errors.New("locked")

	out, _, err := e.execute(t, "", "cleanup", "--all")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitFailure, exitErr.Code)
	assert.Contains(t, out, "Could not remove:")
	assert.Contains(t, out, "broke: locked")
}

func TestRollbackCommand_DryRun(t *testing.T) {
	e := newTestEnv()
	e.queue.State = finishedRun()
	e.git.FeatureCommits["done"] = &domain.CommitInfo{Hash: "abcdef1234", Message: "Merge branch 'feature/done'\n\nbody"}

	out, _, err := e.execute(t, "", "rollback", "--dry-run")

	require.NoError(t, err)
	assert.Contains(t, out, "done: revert abcdef1 (Merge branch 'feature/done')")
	assert.Contains(t, out, "broke: remove worktree")
	assert.Contains(t, out, "Dry run: no changes made.")
	assert.Empty(t, e.git.Reverted)
	assert.False(t, e.queue.Cleared)
}

func TestRollbackCommand_Confirmed(t *testing.T) {
	e := newTestEnv()
	e.queue.State = finishedRun()
	e.git.FeatureCommits["done"] = &domain.CommitInfo{Hash: "abcdef1234", Message: "feat: done"}

	out, _, err := e.execute(t, "y\n", "rollback")

	require.NoError(t, err)
	require.Len(t, e.git.Reverted, 1)
	assert.Equal(t, "abcdef1234", e.git.Reverted[0].Hash)
	assert.Contains(t, out, "Rolled back 2 feature(s).")
	assert.Contains(t, out, "Queue cleared.")
}

func TestRollbackCommand_Declined(t *testing.T) {
	e := newTestEnv()
	e.queue.State = finishedRun()

	out, _, err := e.execute(t, "n\n", "rollback")

	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")
	assert.Empty(t, e.worktrees.Removed)
}

func TestRollbackCommand_MissingCommitExitsOne(t *testing.T) {
	e := newTestEnv()
	e.queue.State = finishedRun()

	out, _, err := e.execute(t, "", "rollback", "--yes", "--preserve-queue")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, out, "could not find merge commit")
	assert.NotContains(t, out, "Queue cleared.")
}

func TestRollbackCommand_NothingToDo(t *testing.T) {
	e := newTestEnv()

	out, _, err := e.execute(t, "", "rollback")

	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to roll back.")
}

func TestValidateCommand(t *testing.T) {
	e := newTestEnv("auth")

	out, _, err := e.execute(t, "", "validate", "auth")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ auth")
	assert.Contains(t, out, "Estimated time:")

	out, _, err = e.execute(t, "", "validate", "auth", "ghost")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, out, "✗ ghost")
	assert.Contains(t, out, domain.MsgMissingSpec)
}

func TestValidateCommand_InvalidSlug(t *testing.T) {
	e := newTestEnv()

	_, _, err := e.execute(t, "", "validate", "Bad Slug")

	assert.ErrorIs(t, err, domain.ErrInvalidSlug)
}

func TestConfigCommand_Show(t *testing.T) {
	e := newTestEnv()
	e.configs.Config.Warnings = []string{"max_concurrency must be positive; using 3"}

	out, stderr, err := e.execute(t, "", "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "- /repo/.claude/murm-config.toml")
	assert.Contains(t, out, "max_concurrency = 3")
	assert.Contains(t, out, "[Warnings]")
	assert.Empty(t, stderr)
}

func TestConfigCommand_Set(t *testing.T) {
	e := newTestEnv()

	out, _, err := e.execute(t, "", "config", "set", "max_concurrency", "5")

	require.NoError(t, err)
	require.NotNil(t, e.configs.Saved)
	assert.Equal(t, 5, e.configs.Saved.MaxConcurrency)
	assert.Contains(t, out, "Set max_concurrency = 5")

	_, _, err = e.execute(t, "", "config", "set", "nope", "1")
	assert.ErrorIs(t, err, domain.ErrUnknownConfigKey)
}

func TestConfigCommand_Init(t *testing.T) {
	e := newTestEnv()

	out, _, err := e.execute(t, "", "config", "init", "--force")

	require.NoError(t, err)
	assert.True(t, e.configs.InitForce)
	assert.Contains(t, out, "Created /repo/.claude/murm-config.toml")
}
