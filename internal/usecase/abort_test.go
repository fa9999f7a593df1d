package usecase

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/runoshun/git-murm/internal/domain"
	"github.com/runoshun/git-murm/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type abortFixture struct {
	locks     *testutil.MockLockManager
	queue     *testutil.MockQueueStore
	procs     *testutil.MockProcessSignaler
	worktrees *testutil.MockWorktreeManager
	logger    *testutil.MockLogger
}

func newAbortFixture(alive ...int) *abortFixture {
	return &abortFixture{
		locks:     testutil.NewMockLockManager(),
		queue:     testutil.NewMockQueueStore(),
		procs:     testutil.NewMockProcessSignaler(alive...),
		worktrees: testutil.NewMockWorktreeManager(),
		logger:    &testutil.MockLogger{},
	}
}

func (f *abortFixture) useCase() *AbortMurm {
	cleanup := NewCleanup(f.queue, f.worktrees, f.locks, f.procs, f.logger)
	clock := &testutil.MockClock{NowTime: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewAbortMurm(f.locks, f.queue, f.procs, f.worktrees, cleanup, clock, f.logger)
}

func interruptedRun() *domain.RunState {
	wt := func(slug string) string { return "/repo/.claude/worktrees/feat-" + slug }
	return &domain.RunState{Features: []*domain.FeatureRecord{
		{Slug: "done", Status: domain.StatusComplete},
		{Slug: "busy", Status: domain.StatusRunning, WorktreePath: wt("busy")},
		{Slug: "setup", Status: domain.StatusWorktreeCreated, WorktreePath: wt("setup")},
		{Slug: "later", Status: domain.StatusQueued},
	}}
}

func TestAbortMurm_Execute_NothingRunning(t *testing.T) {
	f := newAbortFixture()

	out, err := f.useCase().Execute(context.Background(), AbortMurmInput{})

	require.NoError(t, err)
	assert.True(t, out.NothingRunning)
	assert.Zero(t, f.locks.ReleaseCalls)
	assert.Empty(t, f.queue.History)
}

func TestAbortMurm_Execute_SignalsLiveOwner(t *testing.T) {
	f := newAbortFixture(777)
	f.locks.Held = &domain.LockRecord{PID: 777, Features: []string{"busy", "setup"}}
	f.queue.State = interruptedRun()
	f.worktrees.MarkPresent("busy", "setup")

	out, err := f.useCase().Execute(context.Background(), AbortMurmInput{Cleanup: true})

	require.NoError(t, err)
	assert.True(t, out.Signalled)
	assert.Equal(t, []int{777}, f.procs.Terminated)
	assert.Empty(t, f.queue.History, "the owner records its own aborts")
	assert.Zero(t, f.locks.ReleaseCalls)
	assert.Nil(t, out.Cleanup)
	assert.Len(t, out.Worktrees, 2)
}

func TestAbortMurm_Execute_SignalError(t *testing.T) {
	f := newAbortFixture(777)
	f.procs.TerminateErr = errors.New("operation not permitted")
	f.locks.Held = &domain.LockRecord{PID: 777}

	_, err := f.useCase().Execute(context.Background(), AbortMurmInput{})

	assert.ErrorContains(t, err, "operation not permitted")
}

func TestAbortMurm_Execute_RepairsDeadOwner(t *testing.T) {
	f := newAbortFixture()
	f.locks.Held = &domain.LockRecord{PID: 777}
	f.queue.State = interruptedRun()
	f.worktrees.MarkPresent("busy", "setup")

	out, err := f.useCase().Execute(context.Background(), AbortMurmInput{})

	require.NoError(t, err)
	assert.False(t, out.Signalled)
	assert.Equal(t, []string{"busy", "setup"}, out.Aborted)
	assert.Equal(t, 1, f.locks.ReleaseCalls)

	saved := f.queue.Saved()
	assert.Equal(t, domain.StatusAborted, saved.Feature("busy").Status)
	assert.Equal(t, domain.StatusAborted, saved.Feature("setup").Status)
	assert.NotNil(t, saved.Feature("busy").CompletedAt)
	assert.Equal(t, domain.StatusQueued, saved.Feature("later").Status)
	assert.Equal(t, domain.StatusComplete, saved.Feature("done").Status)
	assert.ElementsMatch(t, []string{
		"/repo/.claude/worktrees/feat-busy",
		"/repo/.claude/worktrees/feat-setup",
	}, out.Worktrees)
}

func TestAbortMurm_Execute_OrphanedStateWithoutLock(t *testing.T) {
	f := newAbortFixture()
	f.queue.State = interruptedRun()
	f.worktrees.MarkPresent("busy", "setup")

	out, err := f.useCase().Execute(context.Background(), AbortMurmInput{})

	require.NoError(t, err)
	assert.Len(t, out.Aborted, 2)
	assert.Zero(t, f.locks.ReleaseCalls)
}

func TestAbortMurm_Execute_OwnLockIsNotSignalled(t *testing.T) {
	f := newAbortFixture(os.Getpid())
	f.locks.Held = &domain.LockRecord{PID: os.Getpid()}
	f.queue.State = interruptedRun()
	f.worktrees.MarkPresent("busy", "setup")

	out, err := f.useCase().Execute(context.Background(), AbortMurmInput{})

	require.NoError(t, err)
	assert.False(t, out.Signalled)
	assert.Empty(t, f.procs.Terminated)
	assert.Len(t, out.Aborted, 2)
}

func TestAbortMurm_Execute_WithCleanup(t *testing.T) {
	f := newAbortFixture()
	f.locks.Held = &domain.LockRecord{PID: 777}
	f.queue.State = interruptedRun()
	f.worktrees.MarkPresent("busy", "setup")

	out, err := f.useCase().Execute(context.Background(), AbortMurmInput{Cleanup: true})

	require.NoError(t, err)
	require.NotNil(t, out.Cleanup)
	assert.Equal(t, []string{"busy", "setup"}, out.Cleanup.Removed)
	assert.Empty(t, out.Worktrees)
}

func TestAbortMurm_Execute_SkipsVanishedWorktrees(t *testing.T) {
	f := newAbortFixture()
	f.locks.Held = &domain.LockRecord{PID: 777}
	f.queue.State = interruptedRun()
	f.worktrees.MarkPresent("setup")

	out, err := f.useCase().Execute(context.Background(), AbortMurmInput{})

	require.NoError(t, err)
	assert.Equal(t, []string{"busy", "setup"}, out.Aborted)
	assert.Equal(t, []string{"/repo/.claude/worktrees/feat-setup"}, out.Worktrees)
}

func TestAbortController(t *testing.T) {
	c := newAbortController()
	var cancelled []string
	c.track("a", func() { cancelled = append(cancelled, "a") })
	c.track("b", func() { cancelled = append(cancelled, "b") })
	c.track("c", func() { cancelled = append(cancelled, "c") })
	c.started("a", 101)
	c.started("b", 102)
	c.started("zzz", 999)
	c.untrack("c")

	assert.Equal(t, 2, c.active())

	stopped := c.abort()

	assert.Equal(t, []StoppedPipeline{{Slug: "a", PID: 101}, {Slug: "b", PID: 102}}, stopped)
	assert.Equal(t, []string{"a", "b"}, cancelled)
	assert.Empty(t, c.abort(), "second abort is a no-op")
	assert.Equal(t, []string{"a", "b"}, cancelled)
}
