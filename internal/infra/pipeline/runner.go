// Package pipeline runs the external feature pipeline and captures its output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/runoshun/git-murm/internal/domain"
)

// defaultWaitDelay bounds how long Run waits for output pipes after the
// pipeline exits or is cancelled. Background children that keep stdout open
// would otherwise block Wait.
const defaultWaitDelay = 5 * time.Second

// Runner implements domain.PipelineRunner by spawning the command through sh.
type Runner struct {
	clock     domain.Clock
	waitDelay time.Duration
}

// Ensure Runner implements domain.PipelineRunner interface.
var _ domain.PipelineRunner = (*Runner)(nil)

// NewRunner creates a new pipeline runner.
func NewRunner(clock domain.Clock) *Runner {
	return &Runner{clock: clock, waitDelay: defaultWaitDelay}
}

// Run executes req.Command in req.Dir, appending timestamped output to req.LogPath.
// Cancelling ctx sends SIGTERM to the pipeline's process group. A process
// still alive after the wait delay is killed.
func (r *Runner) Run(ctx context.Context, req domain.PipelineRequest) domain.PipelineResult {
	result := domain.PipelineResult{Slug: req.Slug, LogPath: req.LogPath, ExitCode: -1}

	log, err := openLog(req.LogPath)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer func() { _ = log.Close() }()

	out := newLogWriter(log, r.clock)
	if req.Echo != nil {
		out.echoTo(req.Echo, req.Slug)
	}
	out.banner("Pipeline started for %s", req.Slug)
	out.banner("Command: %s", req.Command)
	out.banner("Working directory: %s\n", req.Dir)

	// #nosec G204 - the command line comes from the user's own config
	cmd := exec.CommandContext(ctx, "sh", "-c", req.Command)
	cmd.Dir = req.Dir
	cmd.Stdout = out.stream("stdout")
	cmd.Stderr = out.stream("stderr")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Signal the whole group so children of sh see the terminate too
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = r.waitDelay

	if err := cmd.Start(); err != nil {
		out.banner("\nPipeline error: %v", err)
		result.Error = fmt.Sprintf("start pipeline: %v", err)
		return result
	}
	if req.OnStart != nil {
		req.OnStart(cmd.Process.Pid)
	}

	waitErr := cmd.Wait()
	out.flush()

	// The pipeline itself finished; only a leftover child still held its output
	if errors.Is(waitErr, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() {
		out.banner("Output still held open by a background process; stopped reading")
		waitErr = nil
	}

	result.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case waitErr == nil:
		result.Success = true
		out.banner("\nPipeline completed with exit code %d", result.ExitCode)
	case ctx.Err() != nil:
		result.Error = fmt.Sprintf("pipeline terminated: %v", ctx.Err())
		out.banner("\nPipeline terminated: %v", ctx.Err())
	default:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.Error = fmt.Sprintf("pipeline exited with code %d", result.ExitCode)
			out.banner("\nPipeline completed with exit code %d", result.ExitCode)
		} else {
			result.Error = fmt.Sprintf("pipeline error: %v", waitErr)
			out.banner("\nPipeline error: %v", waitErr)
		}
	}

	return result
}

func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open pipeline log: %w", err)
	}
	return f, nil
}

// timestamp formats t the way pipeline log lines are stamped.
func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
