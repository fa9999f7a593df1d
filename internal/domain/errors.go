package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors.
var (
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrNotGitRepository     = errors.New("not a git repository (or any of the parent directories)")
	ErrRepositoryState      = errors.New("repository is not ready for a run")
	ErrLockHeld             = errors.New("another murm run is in progress")
	ErrPreflightFailed      = errors.New("preflight validation failed")
	ErrFeatureLimitExceeded = errors.New("too many features requested")
	ErrDiskSpaceLow         = errors.New("insufficient disk space")
	ErrNoFeatures           = errors.New("no features specified")
	ErrDuplicateFeature     = errors.New("feature specified more than once")
	ErrInvalidSlug          = errors.New("invalid feature slug")
	ErrInterrupted          = errors.New("run interrupted")
	ErrUnknownConfigKey     = errors.New("unknown config key")
	ErrInvalidConfigValue   = errors.New("invalid config value")
	ErrMergeConflict        = errors.New("merge conflict")
	ErrBranchExists         = errors.New("feature branch already exists")
)

// LockConflictError reports the run that currently owns the lock.
type LockConflictError struct {
	Lock *LockRecord
}

func (e *LockConflictError) Error() string {
	if e.Lock == nil {
		return ErrLockHeld.Error()
	}
	return fmt.Sprintf("%s (pid %d, started %s, features: %s)",
		ErrLockHeld, e.Lock.PID, e.Lock.StartedAt.Format("2006-01-02 15:04:05"),
		strings.Join(e.Lock.Features, ", "))
}

func (e *LockConflictError) Unwrap() error { return ErrLockHeld }

// PreflightError carries the batch validation that blocked a run.
type PreflightError struct {
	Validation *BatchValidation
}

func (e *PreflightError) Error() string {
	if e.Validation == nil {
		return ErrPreflightFailed.Error()
	}
	var invalid []string
	for _, f := range e.Validation.Features {
		if !f.Valid {
			invalid = append(invalid, f.Slug)
		}
	}
	return fmt.Sprintf("%s: %s", ErrPreflightFailed, strings.Join(invalid, ", "))
}

func (e *PreflightError) Unwrap() error { return ErrPreflightFailed }

// RepositoryStateError lists the repository checks that failed.
type RepositoryStateError struct {
	Problems []string
}

func (e *RepositoryStateError) Error() string {
	return fmt.Sprintf("%s: %s", ErrRepositoryState, strings.Join(e.Problems, "; "))
}

func (e *RepositoryStateError) Unwrap() error { return ErrRepositoryState }
