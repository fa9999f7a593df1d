package domain

import (
	"context"
	"io"
	"time"
)

// ConfigStore loads and persists orchestrator settings.
type ConfigStore interface {
	// Load returns the effective config. A missing or unreadable file yields
	// defaults with a warning attached rather than an error.
	Load() (*Config, error)

	// Save writes the full config.
	Save(cfg *Config) error

	// Init writes the commented default template. An existing file is only
	// replaced when force is set.
	Init(force bool) error

	// Path returns the config file location.
	Path() string
}

// LockManager provides cross-process mutual exclusion between runs.
type LockManager interface {
	// Acquire takes the lock for slugs. A live owner blocks acquisition
	// unless force is set; a dead owner's lock is discarded.
	Acquire(slugs []string, force bool) (*LockResult, error)

	// Release removes the lock. Missing locks are not an error.
	Release() error

	// Info returns the current lock, or nil if none exists.
	Info() (*LockRecord, error)
}

// QueueStore persists the RunState. Every write replaces the whole file.
type QueueStore interface {
	// Load returns the stored run. An absent file yields an empty RunState.
	Load() (*RunState, error)

	// Save stamps LastUpdated and writes state atomically.
	Save(state *RunState) error

	// Clear replaces the stored run with an empty one.
	Clear() error
}

// WorktreeInfo holds the deterministic locations for a feature.
type WorktreeInfo struct {
	Path   string
	Branch string
}

// WorktreeManager manages per-feature git worktrees.
type WorktreeManager interface {
	// Create adds a worktree on a new feature branch.
	Create(slug string) (WorktreeInfo, error)

	// Remove force-removes the worktree and deletes its branch.
	// Already-missing worktrees or branches are ignored.
	Remove(slug string) error

	// Paths returns where the worktree for slug lives, without touching git.
	Paths(slug string) WorktreeInfo

	// Exists checks if the worktree directory for slug is present.
	Exists(slug string) (bool, error)
}

// CommitInfo describes a commit located for rollback.
type CommitInfo struct {
	Hash    string
	Message string
	IsMerge bool
}

// Git provides the repository operations the orchestrator needs.
type Git interface {
	// RepoRoot returns the main repository root.
	RepoRoot() string

	// CurrentBranch returns the checked-out branch of the main worktree.
	CurrentBranch() (string, error)

	// HasUncommittedChanges checks for uncommitted changes in the main worktree.
	HasUncommittedChanges() (bool, error)

	// Version returns the output of `git --version`.
	Version() (string, error)

	// PendingOperation names an unfinished merge, revert, cherry-pick or
	// rebase in the main worktree. Returns "" if there is none.
	PendingOperation() (string, error)

	// CommitWorktree stages everything in dir except the excluded paths and
	// commits it. Returns false if there was nothing to commit.
	CommitWorktree(dir, message string, exclude ...string) (bool, error)

	// Merge merges branch into the current branch without an editor.
	// A conflicted merge returns an error wrapping ErrMergeConflict; output
	// is returned in every case.
	Merge(branch string) (output string, err error)

	// AbortMerge restores the working tree after a failed merge.
	AbortMerge() error

	// FindFeatureCommit returns the newest commit on HEAD whose message
	// mentions slug, skipping rollback reverts. Returns nil if none exists.
	FindFeatureCommit(slug string) (*CommitInfo, error)

	// Revert applies the inverse of commit to the index without committing.
	Revert(commit CommitInfo) error

	// AbortRevert cancels an in-progress revert.
	AbortRevert() error

	// Commit records the index with message.
	Commit(message string) error
}

// PipelineRequest describes one pipeline invocation.
type PipelineRequest struct {
	OnStart func(pid int) // Called once the process is spawned
	Echo    io.Writer     // Also receives every output line, prefixed with the slug, if set
	Slug    string
	Command string // Shell command line
	Dir     string // Working directory (the feature worktree)
	LogPath string
}

// PipelineResult is the outcome of one pipeline invocation.
type PipelineResult struct {
	Slug     string
	LogPath  string
	Error    string
	ExitCode int
	Success  bool
	TimedOut bool
}

// PipelineRunner executes the external pipeline command.
type PipelineRunner interface {
	// Run blocks until the process exits. Cancelling ctx sends a terminate
	// signal; the process is not killed forcibly.
	Run(ctx context.Context, req PipelineRequest) PipelineResult
}

// ProcessSignaler inspects and signals processes by pid.
type ProcessSignaler interface {
	// IsAlive checks pid with a zero-effect signal.
	IsAlive(pid int) bool

	// Terminate sends a terminate signal to pid.
	Terminate(pid int) error
}

// FeatureDocsReader reads the spec, stories and plan of a feature.
type FeatureDocsReader interface {
	Read(slug string) (FeatureDocs, error)
}

// DiskSpaceChecker reports free space on the volume holding a path.
type DiskSpaceChecker interface {
	AvailableMB(path string) (int64, error)
}

// Logger writes orchestrator diagnostics.
// An empty slug logs at global scope.
type Logger interface {
	Debug(slug, category, msg string)
	Info(slug, category, msg string)
	Warn(slug, category, msg string)
	Error(slug, category, msg string)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(_, _, _ string) {}
func (NopLogger) Info(_, _, _ string)  {}
func (NopLogger) Warn(_, _, _ string)  {}
func (NopLogger) Error(_, _, _ string) {}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}
