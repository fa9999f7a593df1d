// Package queuestore persists the run state as a JSON queue file.
package queuestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/runoshun/git-murm/internal/domain"
)

// Ensure Store implements domain.QueueStore.
var _ domain.QueueStore = (*Store)(nil)

// Store implements domain.QueueStore using a JSON file that is replaced
// atomically on every save, so readers never observe a partial write.
type Store struct {
	clock    domain.Clock
	path     string
	lockPath string
}

// New creates a Store for the given file path.
// The file does not need to exist; it will be created on first write.
func New(path string, clock domain.Clock) *Store {
	return &Store{
		clock:    clock,
		path:     path,
		lockPath: path + ".lock",
	}
}

// Path returns the queue file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored run. An absent file yields an empty RunState.
func (s *Store) Load() (*domain.RunState, error) {
	lock, err := s.acquireLock(unix.LOCK_SH)
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(lock)

	return s.read()
}

// Save stamps LastUpdated and replaces the queue file with state.
func (s *Store) Save(state *domain.RunState) error {
	lock, err := s.acquireLock(unix.LOCK_EX)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	now := s.clock.Now()
	state.LastUpdated = &now
	if state.Features == nil {
		state.Features = []*domain.FeatureRecord{}
	}
	return s.write(state)
}

// Clear replaces the stored run with an empty one.
func (s *Store) Clear() error {
	return s.Save(&domain.RunState{})
}

func (s *Store) read() (*domain.RunState, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &domain.RunState{Features: []*domain.FeatureRecord{}}, nil
		}
		return nil, fmt.Errorf("read queue file: %w", err)
	}

	var state domain.RunState
	if err := json.Unmarshal(content, &state); err != nil {
		return nil, fmt.Errorf("parse queue file: %w", err)
	}
	if state.Features == nil {
		state.Features = []*domain.FeatureRecord{}
	}
	return &state, nil
}

func (s *Store) write(state *domain.RunState) error {
	content, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal queue: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath) // Clean up
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (s *Store) acquireLock(lockType int) (*os.File, error) {
	dir := filepath.Dir(s.lockPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := unix.Flock(int(lock.Fd()), lockType); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	return lock, nil
}

func (s *Store) releaseLock(lock *os.File) {
	_ = unix.Flock(int(lock.Fd()), unix.LOCK_UN)
	_ = lock.Close()
}
