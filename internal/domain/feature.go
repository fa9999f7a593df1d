package domain

import (
	"fmt"
	"regexp"
	"time"
)

// FeatureRecord tracks one requested feature through a run.
// Records are never removed from a RunState; terminal records stay
// available to status and rollback queries.
// Fields are ordered to minimize memory padding.
type FeatureRecord struct {
	StartedAt       *time.Time `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt"`
	Slug            string     `json:"slug"`
	Status          Status     `json:"status"`
	WorktreePath    string     `json:"worktreePath,omitempty"`
	BranchName      string     `json:"branchName,omitempty"`
	LogPath         string     `json:"logPath,omitempty"`
	ConflictDetails string     `json:"conflictDetails,omitempty"`
	Error           string     `json:"error,omitempty"`
	TimedOut        bool       `json:"timedOut,omitempty"`
	RolledBack      bool       `json:"rolledBack,omitempty"` // Reverted or removed by a rollback that kept the queue
}

// NewFeatureRecord returns a queued record for slug.
func NewFeatureRecord(slug string) *FeatureRecord {
	return &FeatureRecord{Slug: slug, Status: StatusQueued}
}

// TransitionTo moves the record to target, rejecting moves the status
// graph does not allow.
func (f *FeatureRecord) TransitionTo(target Status) error {
	if !f.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, f.Slug, f.Status, target)
	}
	f.Status = target
	return nil
}

// Elapsed returns how long the feature has been (or was) active.
func (f *FeatureRecord) Elapsed(now time.Time) time.Duration {
	if f.StartedAt == nil {
		return 0
	}
	end := now
	if f.CompletedAt != nil {
		end = *f.CompletedAt
	}
	return end.Sub(*f.StartedAt)
}

// RunState is the persisted state of one orchestration run.
// Fields are ordered to minimize memory padding.
type RunState struct {
	StartedAt      *time.Time       `json:"startedAt"`
	LastUpdated    *time.Time       `json:"lastUpdated,omitempty"`
	RunID          string           `json:"runId,omitempty"`
	BaseBranch     string           `json:"baseBranch,omitempty"`
	Features       []*FeatureRecord `json:"features"`
	MaxConcurrency int              `json:"maxConcurrency,omitempty"`
}

// IsEmpty returns true when no run has been recorded.
func (s *RunState) IsEmpty() bool {
	return s == nil || len(s.Features) == 0
}

// Feature returns the record for slug, or nil.
func (s *RunState) Feature(slug string) *FeatureRecord {
	for _, f := range s.Features {
		if f.Slug == slug {
			return f
		}
	}
	return nil
}

// FeaturesIn returns the records whose status is one of statuses, in run order.
func (s *RunState) FeaturesIn(statuses ...Status) []*FeatureRecord {
	var out []*FeatureRecord
	for _, f := range s.Features {
		for _, st := range statuses {
			if f.Status == st {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// Summary counts features by outcome.
type Summary struct {
	Total     int
	Complete  int
	Failed    int
	Conflicts int
	Aborted   int
	Pending   int
}

// Succeeded reports whether the run ended without failures or conflicts.
func (s Summary) Succeeded() bool {
	return s.Failed == 0 && s.Conflicts == 0
}

// Summarize counts the run's features by status.
func (s *RunState) Summarize() Summary {
	sum := Summary{Total: len(s.Features)}
	for _, f := range s.Features {
		switch f.Status {
		case StatusComplete:
			sum.Complete++
		case StatusFailed:
			sum.Failed++
		case StatusMergeConflict:
			sum.Conflicts++
		case StatusAborted:
			sum.Aborted++
		default:
			sum.Pending++
		}
	}
	return sum
}

// LockRecord identifies the process holding the run lock.
type LockRecord struct {
	StartedAt time.Time `json:"startedAt"`
	Features  []string  `json:"features"`
	PID       int       `json:"pid"`
}

// LockResult is the outcome of a lock acquisition attempt.
type LockResult struct {
	Existing *LockRecord // Lock that blocked acquisition, or the one that was replaced
	Acquired bool
	Stale    bool // An existing lock was discarded because its owner is gone
}

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ValidateSlugs checks that slugs are non-empty, well-formed and unique.
// Slugs become branch and directory names, so they are restricted to
// lowercase letters, digits, dots, dashes and underscores.
func ValidateSlugs(slugs []string) error {
	if len(slugs) == 0 {
		return ErrNoFeatures
	}
	seen := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		if !slugPattern.MatchString(s) {
			return fmt.Errorf("%w: %q", ErrInvalidSlug, s)
		}
		if seen[s] {
			return fmt.Errorf("%w: %s", ErrDuplicateFeature, s)
		}
		seen[s] = true
	}
	return nil
}
