package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/runoshun/git-murm/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T, command string) domain.PipelineRequest {
	t.Helper()
	dir := t.TempDir()
	return domain.PipelineRequest{
		Slug:    "auth",
		Command: command,
		Dir:     dir,
		LogPath: filepath.Join(dir, "pipeline.log"),
	}
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestRunner_Run_Success(t *testing.T) {
	req := newRequest(t, `echo hello; echo oops >&2; pwd > where.txt`)
	var pid int
	req.OnStart = func(p int) { pid = p }

	result := NewRunner(domain.RealClock{}).Run(context.Background(), req)

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ExitCode)
	assert.Empty(t, result.Error)
	assert.Equal(t, "auth", result.Slug)
	assert.Positive(t, pid)

	log := readLog(t, req.LogPath)
	assert.Contains(t, log, "Pipeline started for auth")
	assert.Contains(t, log, "[stdout] hello")
	assert.Contains(t, log, "[stderr] oops")
	assert.Contains(t, log, "Pipeline completed with exit code 0")

	where, err := os.ReadFile(filepath.Join(req.Dir, "where.txt"))
	require.NoError(t, err)
	assert.Equal(t, req.Dir, strings.TrimSpace(string(where)))
}

func TestRunner_Run_NonZeroExit(t *testing.T) {
	req := newRequest(t, `echo partial; exit 3`)

	result := NewRunner(domain.RealClock{}).Run(context.Background(), req)

	assert.False(t, result.Success)
	assert.False(t, result.TimedOut)
	assert.Equal(t, 3, result.ExitCode)
	assert.Contains(t, result.Error, "code 3")
	assert.Contains(t, readLog(t, req.LogPath), "Pipeline completed with exit code 3")
}

func TestRunner_Run_AppendsToExistingLog(t *testing.T) {
	req := newRequest(t, `echo second`)
	require.NoError(t, os.WriteFile(req.LogPath, []byte("first run\n"), 0o600))

	NewRunner(domain.RealClock{}).Run(context.Background(), req)

	log := readLog(t, req.LogPath)
	assert.True(t, strings.HasPrefix(log, "first run\n"))
	assert.Contains(t, log, "[stdout] second")
}

func TestRunner_Run_Cancelled(t *testing.T) {
	req := newRequest(t, `sleep 30`)
	ctx, cancel := context.WithCancel(context.Background())
	req.OnStart = func(int) { cancel() }

	start := time.Now()
	result := NewRunner(domain.RealClock{}).Run(ctx, req)

	assert.Less(t, time.Since(start), 10*time.Second)
	assert.False(t, result.Success)
	assert.False(t, result.TimedOut)
	assert.Contains(t, result.Error, "terminated")
}

func TestRunner_Run_DeadlineMarksTimedOut(t *testing.T) {
	req := newRequest(t, `sleep 30`)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	result := NewRunner(domain.RealClock{}).Run(ctx, req)

	assert.False(t, result.Success)
	assert.True(t, result.TimedOut)
	assert.Contains(t, readLog(t, req.LogPath), "Pipeline terminated")
}

func TestRunner_Run_BadLogPath(t *testing.T) {
	req := newRequest(t, `true`)
	blocker := filepath.Join(req.Dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	req.LogPath = filepath.Join(blocker, "pipeline.log")

	result := NewRunner(domain.RealClock{}).Run(context.Background(), req)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "log")
}

func TestRunner_Run_EchoesOutput(t *testing.T) {
	req := newRequest(t, `echo hello; echo oops >&2`)
	var echo syncBuffer
	req.Echo = &echo

	result := NewRunner(domain.RealClock{}).Run(context.Background(), req)

	require.True(t, result.Success, result.Error)
	assert.Contains(t, echo.String(), "[auth] hello\n")
	assert.Contains(t, echo.String(), "[auth] oops\n")
	assert.NotContains(t, echo.String(), "Pipeline started", "banners stay in the log")
}

func TestRunner_Run_BackgroundChildHoldingOutput(t *testing.T) {
	req := newRequest(t, `sleep 3 & echo started`)
	runner := NewRunner(domain.RealClock{})
	runner.waitDelay = 200 * time.Millisecond

	start := time.Now()
	result := runner.Run(context.Background(), req)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, result.Success, result.Error)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, readLog(t, req.LogPath), "[stdout] started")
}

func TestLogWriter_SplitsAndStampsLines(t *testing.T) {
	var buf strings.Builder
	clock := fixedClock(time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC))
	w := newLogWriter(&buf, clock)
	out := w.stream("stdout")

	_, _ = out.Write([]byte("one\ntw"))
	_, _ = out.Write([]byte("o\n\n   \nthree"))
	w.flush()

	assert.Equal(t,
		"[2026-02-03T04:05:06.000Z] [stdout] one\n"+
			"[2026-02-03T04:05:06.000Z] [stdout] two\n"+
			"[2026-02-03T04:05:06.000Z] [stdout] three\n",
		buf.String())
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

// syncBuffer is a strings.Builder safe for the concurrent stdout and stderr copiers.
type syncBuffer struct {
	b  strings.Builder
	mu sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}
