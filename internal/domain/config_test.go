package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 3, cfg.MaxConcurrency)
	assert.Equal(t, 10, cfg.MaxFeatures)
	assert.Equal(t, 30, cfg.TimeoutMinutes)
	assert.Equal(t, 500, cfg.MinDiskSpaceMB)
	assert.Equal(t, ".claude/worktrees", cfg.WorktreeDir)
	assert.Equal(t, ".claude/murm-queue.json", cfg.QueueFile)
	assert.Equal(t, 30*time.Minute, cfg.Timeout())
	assert.Equal(t, DefaultScopeWeights(), cfg.ScopeWeights())
}

func TestConfig_Normalize(t *testing.T) {
	cfg := &Config{
		MaxConcurrency: 0,
		MaxFeatures:    -2,
		TimeoutMinutes: 5,
		QueueFile:      LegacyQueueFile,
	}

	cfg.Normalize()

	assert.Equal(t, DefaultMaxConcurrency, cfg.MaxConcurrency)
	assert.Equal(t, DefaultMaxFeatures, cfg.MaxFeatures)
	assert.Equal(t, 5, cfg.TimeoutMinutes)
	assert.Equal(t, 0, cfg.MinDiskSpaceMB, "zero disk threshold disables the check")
	assert.Equal(t, DefaultQueueFile, cfg.QueueFile)
	assert.Equal(t, DefaultPipelineCommand, cfg.PipelineCommand)
	assert.Len(t, cfg.Warnings, 2)
}

func TestConfig_Set(t *testing.T) {
	cfg := NewDefaultConfig()

	require.NoError(t, cfg.Set("max_concurrency", "5"))
	require.NoError(t, cfg.Set("worktree_dir", "/tmp/wt"))
	require.NoError(t, cfg.Set("log_level", "debug"))
	require.NoError(t, cfg.Set("scope_file_minutes", "0"))

	assert.Equal(t, 5, cfg.MaxConcurrency)
	assert.Equal(t, "/tmp/wt", cfg.WorktreeDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 0, cfg.ScopeFileMinutes)
}

func TestConfig_Set_Errors(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.ErrorIs(t, cfg.Set("nope", "1"), ErrUnknownConfigKey)
	assert.ErrorIs(t, cfg.Set("max_features", "many"), ErrInvalidConfigValue)
	assert.ErrorIs(t, cfg.Set("max_features", "-1"), ErrInvalidConfigValue)
	assert.ErrorIs(t, cfg.Set("log_level", "loud"), ErrInvalidConfigValue)
	assert.ErrorIs(t, cfg.Set("pipeline_command", "run {{.Slug"), ErrInvalidConfigValue)
	assert.Equal(t, DefaultMaxFeatures, cfg.MaxFeatures)
}

func TestConfig_RenderPipelineCommand(t *testing.T) {
	cfg := NewDefaultConfig()

	cmd, err := cfg.RenderPipelineCommand(PipelineCommandData{
		Slug:     "auth",
		Worktree: "/repo/.claude/worktrees/feat-auth",
		Branch:   "feature/auth",
	})

	require.NoError(t, err)
	assert.Equal(t, `npx claude --cwd /repo/.claude/worktrees/feat-auth /implement-feature "auth" --no-commit`, cmd)
}

func TestConfig_RenderPipelineCommand_UnknownField(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.PipelineCommand = "run {{.Nope}}"

	_, err := cfg.RenderPipelineCommand(PipelineCommandData{Slug: "auth"})

	assert.Error(t, err)
}

func TestConfigKeys(t *testing.T) {
	keys := ConfigKeys()

	assert.Len(t, keys, 12)
	assert.True(t, IsConfigKey("timeout_minutes"))
	assert.False(t, IsConfigKey("Warnings"))
	assert.Contains(t, ConfigTemplate(), "max_concurrency = 3")
}

func TestFormatTimeout(t *testing.T) {
	assert.Equal(t, "30 minutes", FormatTimeout(30*time.Minute))
	assert.Equal(t, "1.5s", FormatTimeout(1500*time.Millisecond))
}
