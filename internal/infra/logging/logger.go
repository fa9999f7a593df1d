// Package logging provides file-based logging for murm.
// It outputs logs to both a global log file (.claude/logs/murm.log)
// and feature-specific log files (.claude/logs/feature-<slug>.log).
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/runoshun/git-murm/internal/domain"
)

// Ensure Logger implements domain.Logger interface.
var _ domain.Logger = (*Logger)(nil)

// Logger writes leveled entries to the global and per-feature log files.
// Fields are ordered to minimize memory padding.
type Logger struct {
	clock        domain.Clock
	globalFile   *os.File
	featureFiles map[string]*os.File
	murmDir      string
	mu           sync.Mutex
	level        slog.Level
}

// New creates a new Logger that writes under murmDir/logs.
// If murmDir is empty, logging is disabled.
func New(murmDir string, level slog.Level, clock domain.Clock) *Logger {
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &Logger{
		clock:        clock,
		murmDir:      murmDir,
		level:        level,
		featureFiles: make(map[string]*os.File),
	}
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openLocked opens path for appending. Callers hold l.mu.
func (l *Logger) openLocked(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // Log file readable by owner and group
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// Close closes all open log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lastErr error
	if l.globalFile != nil {
		if err := l.globalFile.Close(); err != nil {
			lastErr = err
		}
		l.globalFile = nil
	}
	for slug, f := range l.featureFiles {
		if err := f.Close(); err != nil {
			lastErr = err
		}
		delete(l.featureFiles, slug)
	}
	return lastErr
}

// formatLog formats a log entry.
// Format: [2025-12-30 09:32:51] [INFO] [auth|global] [category] message
func formatLog(t time.Time, level slog.Level, slug, category, msg string) string {
	scope := "global"
	if slug != "" {
		scope = slug
	}
	return fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n",
		t.Format("2006-01-02 15:04:05"),
		levelToString(level),
		scope,
		category,
		msg,
	)
}

func levelToString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// log writes to the global log and, when slug is set, to the feature log.
func (l *Logger) log(level slog.Level, slug, category, msg string) {
	if l.murmDir == "" || level < l.level {
		return
	}

	entry := formatLog(l.clock.Now(), level, slug, category, msg)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.globalFile == nil {
		f, err := l.openLocked(domain.GlobalLogPath(l.murmDir))
		if err != nil {
			return
		}
		l.globalFile = f
	}
	_, _ = io.WriteString(l.globalFile, entry)

	if slug == "" {
		return
	}
	f, ok := l.featureFiles[slug]
	if !ok {
		var err error
		if f, err = l.openLocked(domain.FeatureLogPath(l.murmDir, slug)); err != nil {
			return
		}
		l.featureFiles[slug] = f
	}
	_, _ = io.WriteString(f, entry)
}

// Info logs an info message.
func (l *Logger) Info(slug, category, msg string) {
	l.log(slog.LevelInfo, slug, category, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(slug, category, msg string) {
	l.log(slog.LevelDebug, slug, category, msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(slug, category, msg string) {
	l.log(slog.LevelWarn, slug, category, msg)
}

// Error logs an error message.
func (l *Logger) Error(slug, category, msg string) {
	l.log(slog.LevelError, slug, category, msg)
}
