package usecase

import (
	"context"
	"fmt"
	"os"

	"github.com/runoshun/git-murm/internal/domain"
)

// CleanupInput contains the parameters for removing run worktrees.
type CleanupInput struct {
	All bool // Also remove worktrees kept for failed and conflicted features
}

// CleanupOutput contains the result of a cleanup.
type CleanupOutput struct {
	Failed  map[string]string // slug -> error
	Removed []string
	Missing []string // Worktree already gone; only the branch was deleted
	Kept    []string // Failed or conflicted features left alone without All
}

// Cleanup removes worktrees and branches left behind by a run.
type Cleanup struct {
	queue     domain.QueueStore
	worktrees domain.WorktreeManager
	locks     domain.LockManager
	procs     domain.ProcessSignaler
	logger    domain.Logger
}

// NewCleanup creates a new Cleanup use case.
func NewCleanup(
	queue domain.QueueStore,
	worktrees domain.WorktreeManager,
	locks domain.LockManager,
	procs domain.ProcessSignaler,
	logger domain.Logger,
) *Cleanup {
	return &Cleanup{
		queue:     queue,
		worktrees: worktrees,
		locks:     locks,
		procs:     procs,
		logger:    logger,
	}
}

// Execute removes the worktrees of complete and aborted features, plus
// failed and conflicted ones when All is set. Queue records are kept.
// Refuses while another live process holds the run lock.
func (uc *Cleanup) Execute(_ context.Context, in CleanupInput) (*CleanupOutput, error) {
	if err := ensureNoLiveRun(uc.locks, uc.procs); err != nil {
		return nil, err
	}

	state, err := uc.queue.Load()
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}

	out := &CleanupOutput{Failed: map[string]string{}}
	for _, f := range state.Features {
		if f.WorktreePath == "" {
			continue
		}
		switch {
		case f.Status == domain.StatusComplete, f.Status == domain.StatusAborted:
		case f.Status.IsFailure() && in.All:
		case f.Status.IsFailure():
			out.Kept = append(out.Kept, f.Slug)
			continue
		default:
			continue
		}

		exists, err := uc.worktrees.Exists(f.Slug)
		if err != nil {
			uc.logger.Warn(f.Slug, "cleanup", err.Error())
			exists = true
		}
		if err := uc.worktrees.Remove(f.Slug); err != nil {
			out.Failed[f.Slug] = err.Error()
			uc.logger.Warn(f.Slug, "cleanup", err.Error())
			continue
		}
		if !exists {
			out.Missing = append(out.Missing, f.Slug)
			uc.logger.Info(f.Slug, "cleanup", "worktree already gone, deleted branch "+f.BranchName)
			continue
		}
		out.Removed = append(out.Removed, f.Slug)
		uc.logger.Info(f.Slug, "cleanup", "removed worktree "+f.WorktreePath)
	}
	return out, nil
}

// ensureNoLiveRun fails with a LockConflictError while another process owns
// the run lock.
func ensureNoLiveRun(locks domain.LockManager, procs domain.ProcessSignaler) error {
	lock, err := locks.Info()
	if err != nil {
		return fmt.Errorf("read lock: %w", err)
	}
	if lock != nil && lock.PID != os.Getpid() && procs.IsAlive(lock.PID) {
		return &domain.LockConflictError{Lock: lock}
	}
	return nil
}
