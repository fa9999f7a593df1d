package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/runoshun/git-murm/internal/domain"
)

// FeatureStatus is one feature as reported by status.
type FeatureStatus struct {
	Record   *domain.FeatureRecord
	Progress domain.Progress
	Elapsed  time.Duration
}

// ShowStatusInput contains the parameters for the status query.
type ShowStatusInput struct{}

// ShowStatusOutput contains the persisted run and the lock owner.
type ShowStatusOutput struct {
	State     *domain.RunState
	Lock      *domain.LockRecord
	Features  []FeatureStatus
	Summary   domain.Summary
	LockAlive bool
}

// ShowStatus reads the queue file and estimates progress from pipeline logs.
type ShowStatus struct {
	queue domain.QueueStore
	locks domain.LockManager
	procs domain.ProcessSignaler
	clock domain.Clock
}

// NewShowStatus creates a new ShowStatus use case.
func NewShowStatus(
	queue domain.QueueStore,
	locks domain.LockManager,
	procs domain.ProcessSignaler,
	clock domain.Clock,
) *ShowStatus {
	return &ShowStatus{queue: queue, locks: locks, procs: procs, clock: clock}
}

// Execute returns the state of the most recent run.
func (uc *ShowStatus) Execute(_ context.Context, _ ShowStatusInput) (*ShowStatusOutput, error) {
	state, err := uc.queue.Load()
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	lock, err := uc.locks.Info()
	if err != nil {
		return nil, fmt.Errorf("read lock: %w", err)
	}

	out := &ShowStatusOutput{State: state, Lock: lock, Summary: state.Summarize()}
	if lock != nil {
		out.LockAlive = uc.procs.IsAlive(lock.PID)
	}

	now := uc.clock.Now()
	for _, f := range state.Features {
		fs := FeatureStatus{Record: f, Elapsed: f.Elapsed(now)}
		if f.Status.IsInFlight() {
			fs.Progress = LogProgress(f.LogPath)
		}
		out.Features = append(out.Features, fs)
	}
	return out, nil
}

// LogProgress estimates pipeline progress from the log at path.
// A missing or empty log means the pipeline has not written anything yet.
func LogProgress(path string) domain.Progress {
	if path == "" {
		return domain.Progress{Stage: domain.StageStarting}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Progress{Stage: domain.StageStarting}
		}
		return domain.Progress{Stage: domain.StageUnknown}
	}
	if len(content) == 0 {
		return domain.Progress{Stage: domain.StageStarting}
	}
	return domain.ProgressFromLog(string(content))
}
