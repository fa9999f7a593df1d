// Package lockfile provides the PID-stamped run lock.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/runoshun/git-murm/internal/domain"
)

// Ensure Manager implements domain.LockManager.
var _ domain.LockManager = (*Manager)(nil)

// Manager guards a repository against concurrent runs.
// Fields are ordered to minimize memory padding.
type Manager struct {
	procs  domain.ProcessSignaler
	clock  domain.Clock
	logger domain.Logger
	path   string
	pid    int
}

// New creates a Manager for the lock file at path, stamped with the
// current process id.
func New(path string, procs domain.ProcessSignaler, clock domain.Clock, logger domain.Logger) *Manager {
	return NewWithPID(path, os.Getpid(), procs, clock, logger)
}

// NewWithPID creates a Manager that writes pid into the lock.
// This is useful for testing.
func NewWithPID(path string, pid int, procs domain.ProcessSignaler, clock domain.Clock, logger domain.Logger) *Manager {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	return &Manager{path: path, pid: pid, procs: procs, clock: clock, logger: logger}
}

// Acquire takes the lock for slugs.
// A lock owned by a live process is returned unchanged with Acquired false.
// A lock whose owner is gone, or which cannot be parsed, is discarded.
// With force the existing lock is replaced regardless of its owner.
func (m *Manager) Acquire(slugs []string, force bool) (*domain.LockResult, error) {
	existing, err := m.Info()
	if err != nil {
		m.logger.Warn("", "lock", fmt.Sprintf("unreadable lock file treated as stale: %v", err))
		existing = &domain.LockRecord{}
	}

	result := &domain.LockResult{Existing: existing}
	if existing != nil {
		switch {
		case force:
			m.logger.Warn("", "lock", fmt.Sprintf("force replacing lock held by pid %d", existing.PID))
		case existing.PID > 0 && m.procs.IsAlive(existing.PID):
			return result, nil
		default:
			m.logger.Warn("", "lock", fmt.Sprintf("removing stale lock from pid %d", existing.PID))
			result.Stale = true
		}
		if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove old lock: %w", err)
		}
	}

	rec := domain.LockRecord{PID: m.pid, StartedAt: m.clock.Now(), Features: slugs}
	if err := m.create(rec); err != nil {
		if errors.Is(err, os.ErrExist) {
			// Another process won the race between removal and creation.
			winner, _ := m.Info()
			return &domain.LockResult{Existing: winner}, nil
		}
		return nil, err
	}

	result.Acquired = true
	m.logger.Info("", "lock", "lock acquired by pid "+strconv.Itoa(m.pid))
	return result, nil
}

// create writes rec with O_EXCL so two runs cannot both succeed.
func (m *Manager) create(rec domain.LockRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lock: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o750); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(m.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create lock file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		_ = os.Remove(m.path)
		return fmt.Errorf("write lock file: %w", err)
	}
	return nil
}

// Release deletes the lock file. Absence and permission errors are ignored
// so Release is safe to call from every shutdown path.
func (m *Manager) Release() error {
	err := os.Remove(m.path)
	if err == nil {
		m.logger.Info("", "lock", "lock released")
		return nil
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		return nil
	}
	return fmt.Errorf("remove lock: %w", err)
}

// Info returns the parsed lock, or nil if no lock file exists.
func (m *Manager) Info() (*domain.LockRecord, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read lock: %w", err)
	}

	var rec domain.LockRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse lock: %w", err)
	}
	return &rec, nil
}
