package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/runoshun/git-murm/internal/domain"
	"github.com/runoshun/git-murm/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // default
		{"", slog.LevelInfo},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestLogger_FeatureEntry(t *testing.T) {
	murmDir := t.TempDir()
	clock := &testutil.MockClock{NowTime: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)}
	logger := New(murmDir, slog.LevelInfo, clock)
	defer func() { _ = logger.Close() }()

	logger.Info("auth", "pipeline", "started")

	want := "[2026-03-01 09:30:00] [INFO] [auth] [pipeline] started\n"
	assert.Equal(t, want, readFile(t, domain.GlobalLogPath(murmDir)))
	assert.Equal(t, want, readFile(t, domain.FeatureLogPath(murmDir, "auth")))
}

func TestLogger_GlobalEntry(t *testing.T) {
	murmDir := t.TempDir()
	logger := New(murmDir, slog.LevelInfo, nil)
	defer func() { _ = logger.Close() }()

	logger.Warn("", "lock", "stale lock removed")

	content := readFile(t, domain.GlobalLogPath(murmDir))
	assert.Contains(t, content, "[WARN] [global] [lock] stale lock removed")
}

func TestLogger_LevelFilter(t *testing.T) {
	murmDir := t.TempDir()
	logger := New(murmDir, slog.LevelWarn, nil)
	defer func() { _ = logger.Close() }()

	logger.Debug("", "run", "debug")
	logger.Info("", "run", "info")
	logger.Error("", "run", "boom")

	content := readFile(t, domain.GlobalLogPath(murmDir))
	assert.NotContains(t, content, "debug")
	assert.NotContains(t, content, "info")
	assert.Contains(t, content, "[ERROR]")
}

func TestLogger_Disabled(t *testing.T) {
	logger := New("", slog.LevelDebug, nil)

	logger.Error("auth", "run", "ignored")

	assert.NoError(t, logger.Close())
}

func TestLogger_ConcurrentWrites(t *testing.T) {
	murmDir := t.TempDir()
	logger := New(murmDir, slog.LevelInfo, nil)
	defer func() { _ = logger.Close() }()

	var wg sync.WaitGroup
	for _, slug := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(slug string) {
			defer wg.Done()
			for range 20 {
				logger.Info(slug, "pipeline", "tick")
			}
		}(slug)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(readFile(t, domain.GlobalLogPath(murmDir))), "\n")
	assert.Len(t, lines, 80)
	assert.Len(t, strings.Split(strings.TrimSpace(readFile(t, domain.FeatureLogPath(murmDir, "c"))), "\n"), 20)
}
