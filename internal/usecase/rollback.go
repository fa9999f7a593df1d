package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/runoshun/git-murm/internal/domain"
)

// Rollback action kinds.
const (
	RollbackRevert = "revert"
	RollbackRemove = "remove"
)

// RollbackMessage is the commit message of a rollback revert.
func RollbackMessage(slug string) string {
	return fmt.Sprintf("Revert: %s (murmuration rollback)", slug)
}

// RollbackAction is one step of a rollback, planned or performed.
type RollbackAction struct {
	Commit *domain.CommitInfo // Reverted commit, nil for removals or when none was found
	Slug   string
	Kind   string
	Error  string // Empty on success
	Done   bool   // False in dry-run and on failure
}

// RollbackInput contains the parameters for rolling back the last run.
type RollbackInput struct {
	DryRun        bool
	PreserveQueue bool // Keep the queue file for inspection
}

// RollbackOutput contains the result of a rollback.
type RollbackOutput struct {
	Actions      []RollbackAction
	RolledBack   int
	NothingToDo  bool
	QueueCleared bool
}

// Rollback undoes the last run: merged features are reverted and the
// worktrees kept for failed or conflicted features are removed.
type Rollback struct {
	git       domain.Git
	queue     domain.QueueStore
	worktrees domain.WorktreeManager
	locks     domain.LockManager
	procs     domain.ProcessSignaler
	logger    domain.Logger
}

// NewRollback creates a new Rollback use case.
func NewRollback(
	git domain.Git,
	queue domain.QueueStore,
	worktrees domain.WorktreeManager,
	locks domain.LockManager,
	procs domain.ProcessSignaler,
	logger domain.Logger,
) *Rollback {
	return &Rollback{
		git:       git,
		queue:     queue,
		worktrees: worktrees,
		locks:     locks,
		procs:     procs,
		logger:    logger,
	}
}

// Execute reverts complete features newest-merge first, then removes the
// worktrees of failed and conflicted ones. A failed revert is aborted so the
// repository is never left mid-revert; the remaining features still run.
func (uc *Rollback) Execute(_ context.Context, in RollbackInput) (*RollbackOutput, error) {
	if err := ensureNoLiveRun(uc.locks, uc.procs); err != nil {
		return nil, err
	}

	state, err := uc.queue.Load()
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}

	completed := pending(state.FeaturesIn(domain.StatusComplete))
	failed := pending(state.FeaturesIn(domain.StatusFailed, domain.StatusMergeConflict))
	out := &RollbackOutput{}
	if len(completed) == 0 && len(failed) == 0 {
		out.NothingToDo = true
		return out, nil
	}

	if len(completed) > 0 && !in.DryRun {
		dirty, err := uc.git.HasUncommittedChanges()
		if err != nil {
			return nil, fmt.Errorf("check working tree: %w", err)
		}
		if dirty {
			return nil, &domain.RepositoryStateError{Problems: []string{ProblemDirtyTree}}
		}
	}

	// Later merges may build on earlier ones, so undo them first
	sort.SliceStable(completed, func(i, j int) bool {
		a, b := completed[i].CompletedAt, completed[j].CompletedAt
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})

	for _, f := range completed {
		action := uc.revert(f, in.DryRun)
		if action.Done || (in.DryRun && action.Commit != nil) {
			out.RolledBack++
		}
		f.RolledBack = action.Done
		out.Actions = append(out.Actions, action)
	}

	for _, f := range failed {
		if f.WorktreePath == "" {
			continue
		}
		action := RollbackAction{Slug: f.Slug, Kind: RollbackRemove}
		if in.DryRun {
			out.RolledBack++
		} else if err := uc.worktrees.Remove(f.Slug); err != nil {
			action.Error = err.Error()
			uc.logger.Warn(f.Slug, "rollback", err.Error())
		} else {
			action.Done = true
			f.RolledBack = true
			out.RolledBack++
			uc.logger.Info(f.Slug, "rollback", "removed worktree")
		}
		out.Actions = append(out.Actions, action)
	}

	switch {
	case in.DryRun:
	case in.PreserveQueue:
		// Recorded so a repeated rollback does not revert the revert
		if err := uc.queue.Save(state); err != nil {
			return nil, fmt.Errorf("save queue: %w", err)
		}
	default:
		if err := uc.queue.Clear(); err != nil {
			return nil, fmt.Errorf("clear queue: %w", err)
		}
		out.QueueCleared = true
	}
	return out, nil
}

// pending drops features an earlier rollback already handled.
func pending(features []*domain.FeatureRecord) []*domain.FeatureRecord {
	var out []*domain.FeatureRecord
	for _, f := range features {
		if !f.RolledBack {
			out = append(out, f)
		}
	}
	return out
}

func (uc *Rollback) revert(f *domain.FeatureRecord, dryRun bool) RollbackAction {
	action := RollbackAction{Slug: f.Slug, Kind: RollbackRevert}

	commit, err := uc.git.FindFeatureCommit(f.Slug)
	if err != nil {
		action.Error = err.Error()
		return action
	}
	if commit == nil {
		action.Error = "could not find merge commit"
		uc.logger.Warn(f.Slug, "rollback", action.Error)
		return action
	}
	action.Commit = commit
	if dryRun {
		return action
	}

	if err := uc.git.Revert(*commit); err != nil {
		action.Error = err.Error()
		uc.abortRevert(f.Slug)
		return action
	}
	if err := uc.git.Commit(RollbackMessage(f.Slug)); err != nil {
		action.Error = err.Error()
		uc.abortRevert(f.Slug)
		return action
	}

	action.Done = true
	uc.logger.Info(f.Slug, "rollback", "reverted "+commit.Hash)
	return action
}

func (uc *Rollback) abortRevert(slug string) {
	if err := uc.git.AbortRevert(); err != nil {
		uc.logger.Warn(slug, "rollback", err.Error())
	}
}
