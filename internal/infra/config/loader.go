// Package config provides configuration loading and persistence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/runoshun/git-murm/internal/domain"
)

// Ensure Store implements domain.ConfigStore.
var _ domain.ConfigStore = (*Store)(nil)

// Store loads and saves the repository config file.
type Store struct {
	path string // Path to .claude/murm-config.toml
}

// NewStore creates a Store for the config file of repoRoot.
func NewStore(repoRoot string) *Store {
	return &Store{path: domain.ConfigPath(repoRoot)}
}

// NewStoreWithPath creates a Store for an explicit file path.
// This is useful for testing.
func NewStoreWithPath(path string) *Store {
	return &Store{path: path}
}

// Path returns the config file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns defaults overridden by the keys present in the config file.
// A missing file yields defaults. An unreadable or malformed file also
// yields defaults, with the failure recorded in Warnings.
func (s *Store) Load() (*domain.Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		cfg := domain.NewDefaultConfig()
		if !errors.Is(err, os.ErrNotExist) {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("cannot read %s, using defaults: %v", s.path, err))
		}
		return cfg, nil
	}
	return parse(data, s.path), nil
}

// parse decodes data over the defaults and normalizes the result.
func parse(data []byte, path string) *domain.Config {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		cfg := domain.NewDefaultConfig()
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("cannot parse %s, using defaults: %v", path, err))
		return cfg
	}

	cfg := domain.NewDefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		cfg = domain.NewDefaultConfig()
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid value in %s, using defaults: %v", path, err))
		return cfg
	}

	var unknown []string
	for key := range raw {
		if !domain.IsConfigKey(key) {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown key %q in %s", key, path))
	}

	cfg.Normalize()
	return cfg
}

// Save writes cfg in full, replacing the previous file.
func (s *Store) Save(cfg *domain.Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFile(s.path, data)
}

// Init writes the commented starter config. An existing file is kept
// unless force is set.
func (s *Store) Init(force bool) error {
	if !force {
		if _, err := os.Stat(s.path); err == nil {
			return fmt.Errorf("config already exists: %s", s.path)
		}
	}
	return writeFile(s.path, []byte(domain.ConfigTemplate()))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
