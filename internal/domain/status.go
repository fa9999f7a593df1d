package domain

// Status represents the lifecycle state of a feature within a run.
type Status string

const (
	StatusQueued          Status = "queued"           // Waiting for a free slot
	StatusWorktreeCreated Status = "worktree_created" // Worktree and branch provisioned
	StatusRunning         Status = "running"          // Pipeline subprocess active
	StatusMergePending    Status = "merge_pending"    // Pipeline succeeded, merge in progress
	StatusComplete        Status = "complete"         // Merged into the base branch
	StatusFailed          Status = "failed"           // Pipeline failed or timed out
	StatusMergeConflict   Status = "merge_conflict"   // Merge aborted, branch preserved
	StatusAborted         Status = "aborted"          // Interrupted by the operator
)

// AllStatuses returns all valid status values in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusQueued,
		StatusWorktreeCreated,
		StatusRunning,
		StatusMergePending,
		StatusComplete,
		StatusFailed,
		StatusMergeConflict,
		StatusAborted,
	}
}

// transitions defines the allowed status transitions.
// Flow: queued → worktree_created → running → merge_pending → complete
//
//	  ↓              ↓              ↓           ↓
//	failed         failed         failed    merge_conflict | failed
//
// queued fails only when the worktree cannot be provisioned. merge_pending
// fails when the merge breaks for a reason other than a conflict.
// worktree_created and running may also move to aborted. A merge in
// progress always finishes, so merge_pending cannot be aborted.
var transitions = map[Status][]Status{
	StatusQueued:          {StatusWorktreeCreated, StatusFailed},
	StatusWorktreeCreated: {StatusRunning, StatusFailed, StatusAborted},
	StatusRunning:         {StatusMergePending, StatusFailed, StatusAborted},
	StatusMergePending:    {StatusComplete, StatusMergeConflict, StatusFailed},
	StatusComplete:        {},
	StatusFailed:          {},
	StatusMergeConflict:   {},
	StatusAborted:         {},
}

// CanTransitionTo returns true if the status can transition to the target status.
func (s Status) CanTransitionTo(target Status) bool {
	allowed, ok := transitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the status has no outgoing transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusComplete, StatusFailed, StatusMergeConflict, StatusAborted:
		return true
	default:
		return false
	}
}

// IsInFlight returns true if a pipeline or worktree is owned by the feature
// right now. These are the features an abort marks as aborted.
func (s Status) IsInFlight() bool {
	return s == StatusWorktreeCreated || s == StatusRunning
}

// IsFailure returns true for terminal states that count against the run.
func (s Status) IsFailure() bool {
	return s == StatusFailed || s == StatusMergeConflict
}

// Display returns a human-readable representation of the status.
func (s Status) Display() string {
	switch s {
	case StatusQueued:
		return "Queued"
	case StatusWorktreeCreated:
		return "Worktree Created"
	case StatusRunning:
		return "Running"
	case StatusMergePending:
		return "Merging"
	case StatusComplete:
		return "Complete"
	case StatusFailed:
		return "Failed"
	case StatusMergeConflict:
		return "Merge Conflict"
	case StatusAborted:
		return "Aborted"
	default:
		return string(s)
	}
}

// Icon returns a single-glyph marker used by status listings.
func (s Status) Icon() string {
	switch s {
	case StatusComplete:
		return "✓"
	case StatusFailed:
		return "✗"
	case StatusMergeConflict:
		return "⚠"
	case StatusAborted:
		return "■"
	case StatusRunning, StatusMergePending:
		return "▶"
	case StatusWorktreeCreated:
		return "◇"
	default:
		return "○"
	}
}

// IsValid returns true if the status is a known valid value.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}
