package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/runoshun/git-murm/internal/domain"
)

// abortGrace bounds how long an interrupted run waits for its pipelines to
// report back after being sent SIGTERM.
const abortGrace = 3 * time.Second

// FeatureEvent reports progress of one feature during a run.
type FeatureEvent struct {
	Time    time.Time
	Slug    string
	Status  domain.Status
	Message string
}

// RunPlan describes what a run is about to do. It is shown for confirmation
// and returned as the result of a dry run.
type RunPlan struct {
	Repository  *RepositoryReport
	Validation  *domain.BatchValidation // nil when preflight was skipped
	Lock        *domain.LockResult      // nil for dry runs
	Active      []string
	Queued      []string
	DiskWarning string
	Timeout     time.Duration
	Concurrency int
}

// RunMurmInput contains the parameters for a run.
type RunMurmInput struct {
	Confirm       func(plan *RunPlan) (bool, error) // Asked once before anything is started; nil means yes
	OnEvent       func(FeatureEvent)                // Receives every transition; may be nil
	Echo          io.Writer                         // Receives live pipeline output when set
	Slugs         []string
	Concurrency   int           // Overrides max_concurrency when > 0
	Timeout       time.Duration // Overrides timeout_minutes when > 0
	DryRun        bool
	Force         bool // Take the lock even if another live run holds it
	SkipPreflight bool
	Strict        bool // Treat low disk space as fatal
}

// RunMurmOutput contains the result of a run.
type RunMurmOutput struct {
	Plan     *RunPlan
	State    *domain.RunState // nil for dry runs and declined runs
	Stopped  []StoppedPipeline
	Summary  domain.Summary
	Declined bool
}

// RunMurm is the use case for orchestrating a batch of feature pipelines.
type RunMurm struct {
	configs   domain.ConfigStore
	locks     domain.LockManager
	queue     domain.QueueStore
	git       domain.Git
	worktrees domain.WorktreeManager
	runner    domain.PipelineRunner
	disk      domain.DiskSpaceChecker
	preflight *Preflight
	merge     *MergeFeature
	clock     domain.Clock
	logger    domain.Logger
}

// NewRunMurm creates a new RunMurm use case.
func NewRunMurm(
	configs domain.ConfigStore,
	locks domain.LockManager,
	queue domain.QueueStore,
	git domain.Git,
	worktrees domain.WorktreeManager,
	runner domain.PipelineRunner,
	disk domain.DiskSpaceChecker,
	preflight *Preflight,
	merge *MergeFeature,
	clock domain.Clock,
	logger domain.Logger,
) *RunMurm {
	return &RunMurm{
		configs:   configs,
		locks:     locks,
		queue:     queue,
		git:       git,
		worktrees: worktrees,
		runner:    runner,
		disk:      disk,
		preflight: preflight,
		merge:     merge,
		clock:     clock,
		logger:    logger,
	}
}

// Execute validates the batch, then runs every feature to a terminal state.
//
// Environment problems (bad slugs, feature limit, repository state, failed
// preflight, low disk in strict mode, a held lock) are returned as errors
// before any worktree exists. Per-feature failures are recorded in the
// returned state instead. Cancelling ctx aborts the run: pipelines are sent
// SIGTERM, in-flight features are marked aborted and ErrInterrupted is
// returned alongside the output.
func (uc *RunMurm) Execute(ctx context.Context, in RunMurmInput) (*RunMurmOutput, error) {
	if err := domain.ValidateSlugs(in.Slugs); err != nil {
		return nil, err
	}

	cfg, err := uc.configs.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if len(in.Slugs) > cfg.MaxFeatures {
		return nil, fmt.Errorf("%w: %d requested, max is %d", domain.ErrFeatureLimitExceeded, len(in.Slugs), cfg.MaxFeatures)
	}

	plan := &RunPlan{Concurrency: cfg.MaxConcurrency, Timeout: cfg.Timeout()}
	if in.Concurrency > 0 {
		plan.Concurrency = in.Concurrency
	}
	if in.Timeout > 0 {
		plan.Timeout = in.Timeout
	}
	plan.Active, plan.Queued = domain.SplitByLimit(in.Slugs, plan.Concurrency)

	pre, err := uc.preflight.Execute(ctx, PreflightInput{Slugs: in.Slugs, SkipFeatures: in.SkipPreflight})
	if err != nil {
		return nil, err
	}
	plan.Repository, plan.Validation = pre.Repository, pre.Validation
	plan.DiskWarning = uc.checkDisk(cfg)

	if in.DryRun {
		return &RunMurmOutput{Plan: plan}, nil
	}

	if !pre.Repository.OK() {
		return nil, &domain.RepositoryStateError{Problems: pre.Repository.Problems}
	}
	if pre.Validation != nil && !pre.Validation.Valid {
		return nil, &domain.PreflightError{Validation: pre.Validation}
	}
	if plan.DiskWarning != "" && in.Strict {
		return nil, fmt.Errorf("%w: %s", domain.ErrDiskSpaceLow, plan.DiskWarning)
	}

	lock, err := uc.locks.Acquire(in.Slugs, in.Force)
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !lock.Acquired {
		return nil, &domain.LockConflictError{Lock: lock.Existing}
	}
	plan.Lock = lock
	defer func() {
		if err := uc.locks.Release(); err != nil {
			uc.logger.Warn("", "lock", fmt.Sprintf("release: %v", err))
		}
	}()

	if in.Confirm != nil {
		ok, err := in.Confirm(plan)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &RunMurmOutput{Plan: plan, Declined: true}, nil
		}
	}

	r := &run{
		uc:      uc,
		cfg:     cfg,
		plan:    plan,
		onEvent: in.OnEvent,
		echo:    in.Echo,
		ctrl:    newAbortController(),
		results: make(chan domain.PipelineResult, len(in.Slugs)),
	}
	return r.execute(ctx, in.Slugs)
}

// checkDisk returns a warning when free space is below the configured minimum.
func (uc *RunMurm) checkDisk(cfg *domain.Config) string {
	if cfg.MinDiskSpaceMB <= 0 {
		return ""
	}
	avail, err := uc.disk.AvailableMB(uc.git.RepoRoot())
	if err != nil {
		uc.logger.Warn("", "disk", err.Error())
		return ""
	}
	if avail < int64(cfg.MinDiskSpaceMB) {
		return fmt.Sprintf("Low disk space: %dMB available, %dMB recommended", avail, cfg.MinDiskSpaceMB)
	}
	return ""
}

// run holds the state of one execution. Only the goroutine calling execute
// touches state; pipeline goroutines communicate through results.
type run struct {
	uc      *RunMurm
	cfg     *domain.Config
	plan    *RunPlan
	state   *domain.RunState
	sched   *domain.Schedule
	ctrl    *abortController
	results chan domain.PipelineResult
	onEvent func(FeatureEvent)
	echo    io.Writer
}

func (r *run) execute(ctx context.Context, slugs []string) (*RunMurmOutput, error) {
	now := r.uc.clock.Now()
	r.state = &domain.RunState{
		RunID:          uuid.NewString(),
		StartedAt:      &now,
		BaseBranch:     r.plan.Repository.BaseBranch,
		MaxConcurrency: r.plan.Concurrency,
		Features:       make([]*domain.FeatureRecord, 0, len(slugs)),
	}
	for _, slug := range slugs {
		r.state.Features = append(r.state.Features, domain.NewFeatureRecord(slug))
	}
	if err := r.save(); err != nil {
		return nil, err
	}
	r.uc.logger.Info("", "run", fmt.Sprintf("run %s started: %d feature(s), concurrency %d", r.state.RunID, len(slugs), r.plan.Concurrency))

	r.sched = domain.NewSchedule(slugs, r.plan.Concurrency)
	if err := r.launch(ctx, append([]string(nil), r.sched.Active...)); err != nil {
		return nil, err
	}

	for !r.sched.Done() {
		select {
		case res := <-r.results:
			if err := r.handle(ctx, res); err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return r.abort()
		}
	}

	sum := r.state.Summarize()
	r.uc.logger.Info("", "run", fmt.Sprintf("run %s finished: %d complete, %d failed, %d conflicts", r.state.RunID, sum.Complete, sum.Failed, sum.Conflicts))
	return &RunMurmOutput{Plan: r.plan, State: r.state, Summary: sum}, nil
}

// launch starts slugs. A feature that cannot start frees its slot at once,
// so the next queued feature is started in its place.
func (r *run) launch(ctx context.Context, slugs []string) error {
	for len(slugs) > 0 {
		slug := slugs[0]
		slugs = slugs[1:]
		if ctx.Err() != nil {
			return nil
		}
		started, err := r.start(ctx, slug)
		if err != nil {
			return err
		}
		if !started {
			r.sched.Finish(slug)
			slugs = append(slugs, r.sched.Promote()...)
		}
	}
	return nil
}

// start provisions the worktree and spawns the pipeline for slug.
// Returns false if the feature failed before its pipeline was spawned.
func (r *run) start(ctx context.Context, slug string) (bool, error) {
	f := r.state.Feature(slug)

	info, err := r.uc.worktrees.Create(slug)
	if err != nil {
		return false, r.fail(f, fmt.Sprintf("create worktree: %v", err), false)
	}
	now := r.uc.clock.Now()
	f.WorktreePath = info.Path
	f.BranchName = info.Branch
	f.LogPath = domain.PipelineLogPath(info.Path)
	f.StartedAt = &now
	if err := r.transition(f, domain.StatusWorktreeCreated, "worktree "+info.Path); err != nil {
		return false, err
	}

	command, err := r.cfg.RenderPipelineCommand(domain.PipelineCommandData{
		Slug:     slug,
		Worktree: info.Path,
		Branch:   info.Branch,
		RepoRoot: r.uc.git.RepoRoot(),
	})
	if err != nil {
		return false, r.fail(f, err.Error(), false)
	}

	if err := r.transition(f, domain.StatusRunning, fmt.Sprintf("started (log: %s, timeout: %s)", f.LogPath, r.plan.Timeout)); err != nil {
		return false, err
	}

	// Pipelines outlive ctx so an interrupt is delivered as SIGTERM through
	// the abort controller, not by the parent context.
	pctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.ctrl.track(slug, cancel)

	var once sync.Once
	deliver := func(res domain.PipelineResult) {
		once.Do(func() { r.results <- res })
	}
	timeout := r.plan.Timeout
	timer := time.AfterFunc(timeout, func() {
		deliver(domain.PipelineResult{
			Slug:     slug,
			LogPath:  f.LogPath,
			ExitCode: -1,
			TimedOut: true,
			Error:    fmt.Sprintf("Pipeline timed out after %s", domain.FormatTimeout(timeout)),
		})
		cancel()
	})

	req := domain.PipelineRequest{
		Slug:    slug,
		Command: command,
		Dir:     info.Path,
		LogPath: f.LogPath,
		Echo:    r.echo,
		OnStart: func(pid int) { r.ctrl.started(slug, pid) },
	}
	go func() {
		res := r.uc.runner.Run(pctx, req)
		timer.Stop()
		deliver(res)
		cancel()
	}()
	return true, nil
}

// handle applies one pipeline result, merges on success and refills the window.
func (r *run) handle(ctx context.Context, res domain.PipelineResult) error {
	r.ctrl.untrack(res.Slug)
	f := r.state.Feature(res.Slug)
	if f == nil || f.Status != domain.StatusRunning {
		return nil
	}

	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = fmt.Sprintf("pipeline exited with code %d", res.ExitCode)
		}
		if err := r.fail(f, msg, res.TimedOut); err != nil {
			return err
		}
	} else if err := r.complete(ctx, f); err != nil {
		return err
	}

	r.sched.Finish(res.Slug)
	return r.launch(ctx, r.sched.Promote())
}

// complete runs the merge for a successful pipeline.
func (r *run) complete(ctx context.Context, f *domain.FeatureRecord) error {
	if err := r.transition(f, domain.StatusMergePending, "pipeline finished, merging"); err != nil {
		return err
	}

	out, err := r.uc.merge.Execute(ctx, MergeFeatureInput{Feature: f})
	if err != nil {
		return err
	}
	switch {
	case out.Merged:
		r.emit(f, "merged into "+r.state.BaseBranch)
	case out.Conflict:
		r.emit(f, "merge conflict (branch preserved: "+f.BranchName+")")
	default:
		r.emit(f, "merge failed: "+f.Error)
	}
	return r.save()
}

// fail records a failure. Worktree and log are kept for inspection.
func (r *run) fail(f *domain.FeatureRecord, msg string, timedOut bool) error {
	now := r.uc.clock.Now()
	f.CompletedAt = &now
	f.Error = msg
	f.TimedOut = timedOut
	r.uc.logger.Error(f.Slug, "pipeline", msg)

	event := msg
	if f.LogPath != "" && f.Status == domain.StatusRunning {
		event = fmt.Sprintf("%s (see log: %s)", msg, f.LogPath)
	}
	return r.transition(f, domain.StatusFailed, event)
}

// transition moves f to status, persists the run and reports the event.
func (r *run) transition(f *domain.FeatureRecord, status domain.Status, msg string) error {
	if err := f.TransitionTo(status); err != nil {
		return err
	}
	r.uc.logger.Info(f.Slug, "state", fmt.Sprintf("%s: %s", status, msg))
	if err := r.save(); err != nil {
		return err
	}
	r.emit(f, msg)
	return nil
}

func (r *run) emit(f *domain.FeatureRecord, msg string) {
	if r.onEvent == nil {
		return
	}
	r.onEvent(FeatureEvent{Time: r.uc.clock.Now(), Slug: f.Slug, Status: f.Status, Message: msg})
}

func (r *run) save() error {
	if err := r.uc.queue.Save(r.state); err != nil {
		return fmt.Errorf("save queue: %w", err)
	}
	return nil
}

// abort stops every pipeline, waits briefly for them to exit and records
// in-flight features as aborted. Worktrees are left in place.
func (r *run) abort() (*RunMurmOutput, error) {
	stopped := r.ctrl.abort()
	for _, p := range stopped {
		r.uc.logger.Warn(p.Slug, "abort", fmt.Sprintf("sent SIGTERM to pid %d", p.PID))
	}

	grace := time.NewTimer(abortGrace)
	defer grace.Stop()
wait:
	for r.ctrl.active() > 0 {
		select {
		case res := <-r.results:
			r.ctrl.untrack(res.Slug)
		case <-grace.C:
			r.uc.logger.Warn("", "abort", fmt.Sprintf("%d pipeline(s) still exiting", r.ctrl.active()))
			break wait
		}
	}

	for _, slug := range markAborted(r.state, r.uc.clock) {
		f := r.state.Feature(slug)
		f.Error = "aborted by interrupt"
		r.emit(f, "aborted")
	}
	out := &RunMurmOutput{Plan: r.plan, State: r.state, Stopped: stopped, Summary: r.state.Summarize()}
	if err := r.save(); err != nil {
		return out, errors.Join(domain.ErrInterrupted, err)
	}
	r.uc.logger.Warn("", "run", fmt.Sprintf("run %s interrupted", r.state.RunID))
	return out, domain.ErrInterrupted
}
