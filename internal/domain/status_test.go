package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name   string
		from   Status
		to     Status
		expect bool
	}{
		// From queued
		{"queued -> worktree_created", StatusQueued, StatusWorktreeCreated, true},
		{"queued -> failed", StatusQueued, StatusFailed, true},
		{"queued -> running", StatusQueued, StatusRunning, false},
		{"queued -> aborted", StatusQueued, StatusAborted, false},

		// From worktree_created
		{"worktree_created -> running", StatusWorktreeCreated, StatusRunning, true},
		{"worktree_created -> failed", StatusWorktreeCreated, StatusFailed, true},
		{"worktree_created -> aborted", StatusWorktreeCreated, StatusAborted, true},
		{"worktree_created -> merge_pending", StatusWorktreeCreated, StatusMergePending, false},
		{"worktree_created -> queued", StatusWorktreeCreated, StatusQueued, false},

		// From running
		{"running -> merge_pending", StatusRunning, StatusMergePending, true},
		{"running -> failed", StatusRunning, StatusFailed, true},
		{"running -> aborted", StatusRunning, StatusAborted, true},
		{"running -> complete", StatusRunning, StatusComplete, false},
		{"running -> merge_conflict", StatusRunning, StatusMergeConflict, false},

		// From merge_pending
		{"merge_pending -> complete", StatusMergePending, StatusComplete, true},
		{"merge_pending -> merge_conflict", StatusMergePending, StatusMergeConflict, true},
		{"merge_pending -> aborted", StatusMergePending, StatusAborted, false},
		{"merge_pending -> failed", StatusMergePending, StatusFailed, true},
		{"merge_pending -> running", StatusMergePending, StatusRunning, false},
		{"merge_pending -> queued", StatusMergePending, StatusQueued, false},

		// Unknown
		{"unknown -> queued", Status("bogus"), StatusQueued, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.from.CanTransitionTo(tt.to)
			if got != tt.expect {
				t.Errorf("CanTransitionTo(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.expect)
			}
		})
	}
}

func TestStatus_TerminalStatesHaveNoTransitions(t *testing.T) {
	for _, from := range AllStatuses() {
		if !from.IsTerminal() {
			continue
		}
		for _, to := range AllStatuses() {
			assert.False(t, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusComplete:      true,
		StatusFailed:        true,
		StatusMergeConflict: true,
		StatusAborted:       true,
	}
	for _, s := range AllStatuses() {
		assert.Equal(t, terminal[s], s.IsTerminal(), string(s))
	}
}

func TestStatus_IsValid(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.True(t, s.IsValid(), string(s))
	}
	assert.False(t, Status("murm_complete").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestFeatureRecord_TransitionTo(t *testing.T) {
	f := NewFeatureRecord("auth")

	require.NoError(t, f.TransitionTo(StatusWorktreeCreated))
	require.NoError(t, f.TransitionTo(StatusRunning))
	require.NoError(t, f.TransitionTo(StatusMergePending))
	require.NoError(t, f.TransitionTo(StatusComplete))

	err := f.TransitionTo(StatusRunning)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, StatusComplete, f.Status, "rejected transition must not change status")
}

func TestFeatureRecord_TransitionTo_NoSkipping(t *testing.T) {
	f := NewFeatureRecord("auth")

	err := f.TransitionTo(StatusMergePending)

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusQueued, f.Status)
}
