package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/runoshun/git-murm/internal/domain"
)

// MergeFeatureInput contains the parameters for merging a finished feature.
type MergeFeatureInput struct {
	Feature *domain.FeatureRecord // Must be in merge_pending; updated in place
}

// MergeFeatureOutput contains the result of a merge attempt.
type MergeFeatureOutput struct {
	Output   string // Combined git output of the merge
	Conflict bool
	Merged   bool
}

// MergeFeature integrates a feature branch into the checked-out base branch.
type MergeFeature struct {
	git       domain.Git
	worktrees domain.WorktreeManager
	clock     domain.Clock
	logger    domain.Logger
}

// NewMergeFeature creates a new MergeFeature use case.
func NewMergeFeature(
	git domain.Git,
	worktrees domain.WorktreeManager,
	clock domain.Clock,
	logger domain.Logger,
) *MergeFeature {
	return &MergeFeature{
		git:       git,
		worktrees: worktrees,
		clock:     clock,
		logger:    logger,
	}
}

// FeatureCommitMessage is the message used when committing pipeline output
// left uncommitted in a feature worktree.
func FeatureCommitMessage(slug string) string {
	return fmt.Sprintf("feat(%s): murmuration pipeline output", slug)
}

// Execute merges the feature and moves it to complete, merge_conflict or failed.
//
// Processing:
//  1. Commit pending worktree changes (the pipeline log is excluded)
//  2. git merge <branch> --no-edit
//  3. Success: complete, worktree and branch removed
//  4. Conflict: merge_conflict, merge aborted, branch and worktree preserved
//  5. Any other failure: failed, branch and worktree preserved
//
// Merge failures never return an error; they are recorded on the feature.
func (uc *MergeFeature) Execute(_ context.Context, in MergeFeatureInput) (*MergeFeatureOutput, error) {
	f := in.Feature
	if f.Status != domain.StatusMergePending {
		return nil, fmt.Errorf("%w: %s is %s, not %s", domain.ErrInvalidTransition, f.Slug, f.Status, domain.StatusMergePending)
	}
	out := &MergeFeatureOutput{}

	if f.WorktreePath != "" {
		exclude := filepath.Base(domain.PipelineLogPath(f.WorktreePath))
		committed, err := uc.git.CommitWorktree(f.WorktreePath, FeatureCommitMessage(f.Slug), exclude)
		if err != nil {
			return out, uc.fail(f, domain.StatusFailed, "", fmt.Sprintf("commit pipeline output: %v", err))
		}
		if committed {
			uc.logger.Info(f.Slug, "merge", "committed pending worktree changes")
		}
	}

	output, err := uc.git.Merge(f.BranchName)
	out.Output = output
	if err != nil {
		out.Conflict = errors.Is(err, domain.ErrMergeConflict)
		if abortErr := uc.git.AbortMerge(); abortErr != nil {
			uc.logger.Warn(f.Slug, "merge", abortErr.Error())
		}
		if out.Conflict {
			return out, uc.fail(f, domain.StatusMergeConflict, output, "")
		}
		return out, uc.fail(f, domain.StatusFailed, output, err.Error())
	}

	if err := f.TransitionTo(domain.StatusComplete); err != nil {
		return out, err
	}
	now := uc.clock.Now()
	f.CompletedAt = &now
	out.Merged = true
	uc.logger.Info(f.Slug, "merge", "merged "+f.BranchName)

	if err := uc.worktrees.Remove(f.Slug); err != nil {
		uc.logger.Warn(f.Slug, "merge", fmt.Sprintf("cleanup after merge: %v", err))
	}
	return out, nil
}

// fail records a merge that did not land. The branch and worktree stay for
// manual resolution.
func (uc *MergeFeature) fail(f *domain.FeatureRecord, status domain.Status, details, msg string) error {
	if err := f.TransitionTo(status); err != nil {
		return err
	}
	now := uc.clock.Now()
	f.CompletedAt = &now
	f.ConflictDetails = details
	f.Error = msg
	if msg != "" {
		uc.logger.Error(f.Slug, "merge", msg)
	} else {
		uc.logger.Warn(f.Slug, "merge", "conflict, branch preserved")
	}
	return nil
}
