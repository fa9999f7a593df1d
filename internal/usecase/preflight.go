package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-murm/internal/domain"
)

// Repository problems reported by preflight.
const (
	ProblemDirtyTree          = "Working tree has uncommitted changes"
	ProblemUnsupportedGit     = "Git version 2.5+ required for worktree support"
	ProblemDetachedHead       = "HEAD is detached; check out the branch to merge into"
	problemPendingPattern     = "A %s is in progress; finish or abort it first"
	problemCheckFailedPattern = "Cannot %s: %v"
)

// RepositoryReport is the result of the repository-level checks.
type RepositoryReport struct {
	BaseBranch string
	GitVersion string
	Problems   []string
	Dirty      bool
}

// OK reports whether a run may start.
func (r *RepositoryReport) OK() bool {
	return len(r.Problems) == 0
}

// PreflightInput contains the parameters for preflight validation.
type PreflightInput struct {
	Slugs        []string
	SkipFeatures bool // Only run the repository checks
}

// PreflightOutput contains the repository report and, unless skipped, the
// batch analysis.
type PreflightOutput struct {
	Repository *RepositoryReport
	Validation *domain.BatchValidation // nil when feature checks were skipped
}

// Preflight validates the repository and the requested features before a run.
type Preflight struct {
	git     domain.Git
	docs    domain.FeatureDocsReader
	configs domain.ConfigStore
}

// NewPreflight creates a new Preflight use case.
func NewPreflight(git domain.Git, docs domain.FeatureDocsReader, configs domain.ConfigStore) *Preflight {
	return &Preflight{git: git, docs: docs, configs: configs}
}

// Execute runs every check and reports findings without failing on them.
// Only I/O errors are returned; callers decide which findings block.
func (uc *Preflight) Execute(_ context.Context, in PreflightInput) (*PreflightOutput, error) {
	out := &PreflightOutput{Repository: uc.checkRepository()}
	if in.SkipFeatures {
		return out, nil
	}

	cfg, err := uc.configs.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	docs := make([]domain.FeatureDocs, 0, len(in.Slugs))
	for _, slug := range in.Slugs {
		d, err := uc.docs.Read(slug)
		if err != nil {
			return nil, fmt.Errorf("read feature %s: %w", slug, err)
		}
		docs = append(docs, d)
	}
	out.Validation = domain.AnalyzeBatch(docs, cfg.ScopeWeights())
	return out, nil
}

func (uc *Preflight) checkRepository() *RepositoryReport {
	r := &RepositoryReport{}

	branch, err := uc.git.CurrentBranch()
	switch {
	case err != nil:
		r.Problems = append(r.Problems, fmt.Sprintf(problemCheckFailedPattern, "determine current branch", err))
	case branch == "HEAD":
		r.Problems = append(r.Problems, ProblemDetachedHead)
	default:
		r.BaseBranch = branch
	}

	dirty, err := uc.git.HasUncommittedChanges()
	if err != nil {
		r.Problems = append(r.Problems, fmt.Sprintf(problemCheckFailedPattern, "check working tree", err))
	} else if dirty {
		r.Dirty = true
		r.Problems = append(r.Problems, ProblemDirtyTree)
	}

	pending, err := uc.git.PendingOperation()
	if err != nil {
		r.Problems = append(r.Problems, fmt.Sprintf(problemCheckFailedPattern, "check for unfinished operations", err))
	} else if pending != "" {
		r.Problems = append(r.Problems, fmt.Sprintf(problemPendingPattern, pending))
	}

	version, err := uc.git.Version()
	if err != nil {
		r.Problems = append(r.Problems, fmt.Sprintf(problemCheckFailedPattern, "determine git version", err))
	} else {
		r.GitVersion = version
		if !domain.IsGitVersionSupported(version) {
			r.Problems = append(r.Problems, ProblemUnsupportedGit)
		}
	}

	return r
}
