package domain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeatureNaming(t *testing.T) {
	assert.Equal(t, "feature/auth", BranchName("auth"))
	assert.Equal(t, filepath.Join("/wt", "feat-auth"), WorktreePath("/wt", "auth"))
	assert.Equal(t, filepath.Join("/wt", "feat-auth", "pipeline.log"), PipelineLogPath(WorktreePath("/wt", "auth")))
	assert.Equal(t, filepath.Join("docs", "feature_auth"), FeatureDocsDir("docs", "auth"))
	assert.Equal(t, filepath.Join("/repo/.claude", "logs", "murm.log"), GlobalLogPath("/repo/.claude"))
	assert.Equal(t, filepath.Join("/repo/.claude", "logs", "feature-auth.log"), FeatureLogPath("/repo/.claude", "auth"))
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/repo", ".claude/worktrees"), ResolvePath("/repo", ".claude/worktrees"))
	assert.Equal(t, "/abs/dir", ResolvePath("/repo", "/abs/dir/"))
}

func TestLegacyMigrations(t *testing.T) {
	m := LegacyMigrations("/repo")

	assert.Len(t, m, 3)
	assert.Equal(t, "/repo/.claude/parallel-config.toml", m[0].Old)
	assert.Equal(t, "/repo/.claude/murm-config.toml", m[0].New)
	assert.Equal(t, "/repo/.claude/parallel.lock", m[1].Old)
	assert.Equal(t, "/repo/.claude/murm.lock", m[1].New)
	assert.Equal(t, "/repo/.claude/parallel-queue.json", m[2].Old)
	assert.Equal(t, "/repo/.claude/murm-queue.json", m[2].New)
}
