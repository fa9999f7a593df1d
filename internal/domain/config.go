package domain

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

//go:embed config_template.toml
var configTemplateContent string

// ConfigTemplate returns the commented starter config written by `murm config init`.
func ConfigTemplate() string {
	return configTemplateContent
}

// Default configuration values.
const (
	DefaultMaxConcurrency    = 3
	DefaultMaxFeatures       = 10
	DefaultTimeoutMinutes    = 30
	DefaultMinDiskSpaceMB    = 500
	DefaultWorktreeDir       = ".claude/worktrees"
	DefaultQueueFile         = ".claude/murm-queue.json"
	DefaultFeaturesDir       = ".blueprint/features"
	DefaultLogLevel          = "info"
	DefaultPipelineCommand   = `npx claude --cwd {{.Worktree}} /implement-feature "{{.Slug}}" --no-commit`
	DefaultScopeBaseMinutes  = 10
	DefaultScopeStoryMinutes = 5
	DefaultScopeFileMinutes  = 2
)

// Config represents the orchestrator settings.
// Fields are ordered to minimize memory padding.
type Config struct {
	PipelineCommand   string   `toml:"pipeline_command"`
	WorktreeDir       string   `toml:"worktree_dir"`
	QueueFile         string   `toml:"queue_file"`
	FeaturesDir       string   `toml:"features_dir"`
	LogLevel          string   `toml:"log_level"`
	Warnings          []string `toml:"-"`
	MaxConcurrency    int      `toml:"max_concurrency"`
	MaxFeatures       int      `toml:"max_features"`
	TimeoutMinutes    int      `toml:"timeout_minutes"`
	MinDiskSpaceMB    int      `toml:"min_disk_space_mb"`
	ScopeBaseMinutes  int      `toml:"scope_base_minutes"`
	ScopeStoryMinutes int      `toml:"scope_story_minutes"`
	ScopeFileMinutes  int      `toml:"scope_file_minutes"`
}

// NewDefaultConfig returns a Config populated with defaults.
func NewDefaultConfig() *Config {
	return &Config{
		MaxConcurrency:    DefaultMaxConcurrency,
		MaxFeatures:       DefaultMaxFeatures,
		TimeoutMinutes:    DefaultTimeoutMinutes,
		MinDiskSpaceMB:    DefaultMinDiskSpaceMB,
		PipelineCommand:   DefaultPipelineCommand,
		WorktreeDir:       DefaultWorktreeDir,
		QueueFile:         DefaultQueueFile,
		FeaturesDir:       DefaultFeaturesDir,
		LogLevel:          DefaultLogLevel,
		ScopeBaseMinutes:  DefaultScopeBaseMinutes,
		ScopeStoryMinutes: DefaultScopeStoryMinutes,
		ScopeFileMinutes:  DefaultScopeFileMinutes,
	}
}

// Timeout returns the per-feature pipeline timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

// FormatTimeout renders whole minutes the way the config expresses them.
func FormatTimeout(d time.Duration) string {
	if d%time.Minute == 0 {
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
	return d.String()
}

// ScopeWeights returns the scope estimate coefficients.
func (c *Config) ScopeWeights() ScopeWeights {
	return ScopeWeights{
		BaseMinutes:  c.ScopeBaseMinutes,
		StoryMinutes: c.ScopeStoryMinutes,
		FileMinutes:  c.ScopeFileMinutes,
	}
}

// Normalize replaces out-of-range values with defaults and records a warning
// for each replacement.
func (c *Config) Normalize() {
	d := NewDefaultConfig()
	positive := []struct {
		val  *int
		key  string
		def  int
		zero bool // zero is a valid value
	}{
		{&c.MaxConcurrency, "max_concurrency", d.MaxConcurrency, false},
		{&c.MaxFeatures, "max_features", d.MaxFeatures, false},
		{&c.TimeoutMinutes, "timeout_minutes", d.TimeoutMinutes, false},
		{&c.MinDiskSpaceMB, "min_disk_space_mb", d.MinDiskSpaceMB, true},
		{&c.ScopeBaseMinutes, "scope_base_minutes", d.ScopeBaseMinutes, true},
		{&c.ScopeStoryMinutes, "scope_story_minutes", d.ScopeStoryMinutes, true},
		{&c.ScopeFileMinutes, "scope_file_minutes", d.ScopeFileMinutes, true},
	}
	for _, p := range positive {
		if *p.val < 0 || (*p.val == 0 && !p.zero) {
			c.Warnings = append(c.Warnings, fmt.Sprintf("%s must be positive, using default %d", p.key, p.def))
			*p.val = p.def
		}
	}

	strs := []struct {
		val *string
		def string
	}{
		{&c.PipelineCommand, d.PipelineCommand},
		{&c.WorktreeDir, d.WorktreeDir},
		{&c.QueueFile, d.QueueFile},
		{&c.FeaturesDir, d.FeaturesDir},
		{&c.LogLevel, d.LogLevel},
	}
	for _, s := range strs {
		if strings.TrimSpace(*s.val) == "" {
			*s.val = s.def
		}
	}
	if c.QueueFile == LegacyQueueFile {
		c.QueueFile = DefaultQueueFile
	}
}

// configKeys lists the settable keys and whether each holds an integer.
var configKeys = map[string]bool{
	"max_concurrency":     true,
	"max_features":        true,
	"timeout_minutes":     true,
	"min_disk_space_mb":   true,
	"scope_base_minutes":  true,
	"scope_story_minutes": true,
	"scope_file_minutes":  true,
	"pipeline_command":    false,
	"worktree_dir":        false,
	"queue_file":          false,
	"features_dir":        false,
	"log_level":           false,
}

// ConfigKeys returns all known config keys in sorted order.
func ConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsConfigKey reports whether key is a known config key.
func IsConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

// Set assigns a raw string value to key, parsing integers as needed.
func (c *Config) Set(key, raw string) error {
	isInt, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
	}
	if isInt {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidConfigValue, key)
		}
		*c.intField(key) = n
		return nil
	}
	if key == "log_level" {
		switch raw {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("%w: log_level must be one of debug, info, warn, error", ErrInvalidConfigValue)
		}
	}
	if key == "pipeline_command" {
		if _, err := parsePipelineTemplate(raw); err != nil {
			return fmt.Errorf("%w: pipeline_command: %v", ErrInvalidConfigValue, err)
		}
	}
	*c.stringField(key) = raw
	return nil
}

func (c *Config) intField(key string) *int {
	switch key {
	case "max_concurrency":
		return &c.MaxConcurrency
	case "max_features":
		return &c.MaxFeatures
	case "timeout_minutes":
		return &c.TimeoutMinutes
	case "min_disk_space_mb":
		return &c.MinDiskSpaceMB
	case "scope_base_minutes":
		return &c.ScopeBaseMinutes
	case "scope_story_minutes":
		return &c.ScopeStoryMinutes
	default:
		return &c.ScopeFileMinutes
	}
}

func (c *Config) stringField(key string) *string {
	switch key {
	case "pipeline_command":
		return &c.PipelineCommand
	case "worktree_dir":
		return &c.WorktreeDir
	case "queue_file":
		return &c.QueueFile
	case "features_dir":
		return &c.FeaturesDir
	default:
		return &c.LogLevel
	}
}

// PipelineCommandData holds the template variables available to pipeline_command.
type PipelineCommandData struct {
	Slug     string // Feature slug
	Worktree string // Absolute worktree path
	Branch   string // Feature branch name
	RepoRoot string // Main repository root
}

// RenderPipelineCommand expands the configured pipeline command template.
func (c *Config) RenderPipelineCommand(data PipelineCommandData) (string, error) {
	tmpl, err := parsePipelineTemplate(c.PipelineCommand)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render pipeline command: %w", err)
	}
	return buf.String(), nil
}

func parsePipelineTemplate(s string) (*template.Template, error) {
	tmpl, err := template.New("pipeline").Option("missingkey=error").Parse(s)
	if err != nil {
		return nil, fmt.Errorf("parse pipeline command: %w", err)
	}
	return tmpl, nil
}
