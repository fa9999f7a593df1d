package usecase

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/runoshun/git-murm/internal/domain"
)

// StoppedPipeline identifies a pipeline that was sent a terminate signal.
type StoppedPipeline struct {
	Slug string
	PID  int
}

type trackedPipeline struct {
	cancel context.CancelFunc
	pid    int
}

// abortController owns the pipelines of one run. Cancelling a tracked
// pipeline's context sends it SIGTERM; nothing is killed forcibly.
type abortController struct {
	running map[string]*trackedPipeline
	order   []string
	once    sync.Once
	mu      sync.Mutex
}

func newAbortController() *abortController {
	return &abortController{running: make(map[string]*trackedPipeline)}
}

// track registers a pipeline before it is spawned.
func (c *abortController) track(slug string, cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running[slug] = &trackedPipeline{cancel: cancel}
	c.order = append(c.order, slug)
}

// started records the pid once the process exists.
func (c *abortController) started(slug string, pid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.running[slug]; ok {
		p.pid = pid
	}
}

// untrack forgets a pipeline whose result has been handled.
func (c *abortController) untrack(slug string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.running, slug)
}

// active returns how many pipelines are still tracked.
func (c *abortController) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.running)
}

// abort terminates every tracked pipeline. Only the first call has effect.
func (c *abortController) abort() []StoppedPipeline {
	var stopped []StoppedPipeline
	c.once.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for _, slug := range c.order {
			p, ok := c.running[slug]
			if !ok {
				continue
			}
			p.cancel()
			stopped = append(stopped, StoppedPipeline{Slug: slug, PID: p.pid})
		}
	})
	return stopped
}

// markAborted moves every in-flight feature to aborted. Queued features were
// never started and stay queued.
func markAborted(state *domain.RunState, clock domain.Clock) []string {
	var aborted []string
	t := clock.Now()
	for _, f := range state.FeaturesIn(domain.StatusWorktreeCreated, domain.StatusRunning) {
		if err := f.TransitionTo(domain.StatusAborted); err != nil {
			continue
		}
		f.CompletedAt = &t
		aborted = append(aborted, f.Slug)
	}
	return aborted
}

// AbortMurmInput contains the parameters for aborting a run from outside.
type AbortMurmInput struct {
	Cleanup bool // Remove aborted worktrees afterwards
}

// AbortMurmOutput contains the result of an external abort.
type AbortMurmOutput struct {
	Lock           *domain.LockRecord // Lock found when the abort started
	Cleanup        *CleanupOutput     // Set when cleanup ran
	Aborted        []string           // Features this call marked aborted
	Worktrees      []string           // Worktrees left behind for inspection
	NothingRunning bool
	Signalled      bool // The owning process was sent SIGTERM and will persist its own state
}

// AbortMurm stops a run started by another murm process.
type AbortMurm struct {
	locks     domain.LockManager
	queue     domain.QueueStore
	procs     domain.ProcessSignaler
	worktrees domain.WorktreeManager
	cleanup   *Cleanup
	clock     domain.Clock
	logger    domain.Logger
}

// NewAbortMurm creates a new AbortMurm use case.
func NewAbortMurm(
	locks domain.LockManager,
	queue domain.QueueStore,
	procs domain.ProcessSignaler,
	worktrees domain.WorktreeManager,
	cleanup *Cleanup,
	clock domain.Clock,
	logger domain.Logger,
) *AbortMurm {
	return &AbortMurm{
		locks:     locks,
		queue:     queue,
		procs:     procs,
		worktrees: worktrees,
		cleanup:   cleanup,
		clock:     clock,
		logger:    logger,
	}
}

// Execute signals a live owner, or repairs the state a dead owner left behind.
//
// A live owner handles SIGTERM like an interrupt: it stops its pipelines,
// records them as aborted and releases the lock itself. When the owner is
// gone, the queue is rewritten here and the lock released.
func (uc *AbortMurm) Execute(ctx context.Context, in AbortMurmInput) (*AbortMurmOutput, error) {
	lock, err := uc.locks.Info()
	if err != nil {
		return nil, fmt.Errorf("read lock: %w", err)
	}
	state, err := uc.queue.Load()
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}

	out := &AbortMurmOutput{Lock: lock}
	inFlight := state.FeaturesIn(domain.StatusWorktreeCreated, domain.StatusRunning)
	if lock == nil && len(inFlight) == 0 {
		out.NothingRunning = true
		return out, nil
	}

	if lock != nil && lock.PID > 0 && lock.PID != os.Getpid() && uc.procs.IsAlive(lock.PID) {
		if err := uc.procs.Terminate(lock.PID); err != nil {
			return nil, fmt.Errorf("signal pid %d: %w", lock.PID, err)
		}
		uc.logger.Info("", "abort", fmt.Sprintf("sent SIGTERM to pid %d", lock.PID))
		out.Signalled = true
		out.Worktrees = uc.preservedWorktrees(state)
		return out, nil
	}

	out.Aborted = markAborted(state, uc.clock)
	if len(out.Aborted) > 0 {
		if err := uc.queue.Save(state); err != nil {
			return nil, fmt.Errorf("save queue: %w", err)
		}
		uc.logger.Info("", "abort", fmt.Sprintf("marked %d orphaned feature(s) aborted", len(out.Aborted)))
	}
	if lock != nil {
		if err := uc.locks.Release(); err != nil {
			return nil, fmt.Errorf("release lock: %w", err)
		}
	}

	if in.Cleanup {
		out.Cleanup, err = uc.cleanup.Execute(ctx, CleanupInput{})
		if err != nil {
			return nil, err
		}
	}
	out.Worktrees = uc.preservedWorktrees(state)
	return out, nil
}

// preservedWorktrees lists the worktrees of features that did not complete
// and are still on disk.
func (uc *AbortMurm) preservedWorktrees(state *domain.RunState) []string {
	var paths []string
	for _, f := range state.Features {
		if f.WorktreePath == "" || f.Status == domain.StatusComplete || f.Status == domain.StatusQueued {
			continue
		}
		exists, err := uc.worktrees.Exists(f.Slug)
		if err != nil {
			uc.logger.Warn(f.Slug, "abort", err.Error())
		} else if !exists {
			continue
		}
		paths = append(paths, f.WorktreePath)
	}
	return paths
}
