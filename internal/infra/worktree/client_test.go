package worktree

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/runoshun/git-murm/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo creates a temporary git repository for testing.
func setupTestRepo(t *testing.T) (repoRoot, worktreeDir string) {
	t.Helper()

	tmpDir := t.TempDir()
	repoRoot = filepath.Join(tmpDir, "repo")
	worktreeDir = filepath.Join(repoRoot, ".claude", "worktrees")
	require.NoError(t, os.MkdirAll(repoRoot, 0o755))

	runGit(t, repoRoot, "init", "-b", "main")
	runGit(t, repoRoot, "config", "user.email", "test@example.com")
	runGit(t, repoRoot, "config", "user.name", "Test User")

	// Create initial commit (required for worktrees)
	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, "README.md"), []byte("# Test"), 0o644))
	runGit(t, repoRoot, "add", ".")
	runGit(t, repoRoot, "commit", "-m", "Initial commit")

	return repoRoot, worktreeDir
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, out)
}

func branchExists(t *testing.T, repoRoot, branch string) bool {
	t.Helper()
	cmd := exec.Command("git", "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	cmd.Dir = repoRoot
	return cmd.Run() == nil
}

func TestClient_Paths(t *testing.T) {
	client := NewClient("/repo", "/repo/.claude/worktrees")

	info := client.Paths("auth")

	assert.Equal(t, "/repo/.claude/worktrees/feat-auth", info.Path)
	assert.Equal(t, "feature/auth", info.Branch)
}

func TestClient_Create(t *testing.T) {
	repoRoot, worktreeDir := setupTestRepo(t)
	client := NewClient(repoRoot, worktreeDir)

	info, err := client.Create("auth")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(worktreeDir, "feat-auth"), info.Path)
	assert.DirExists(t, info.Path)
	assert.FileExists(t, filepath.Join(info.Path, "README.md"))
	assert.True(t, branchExists(t, repoRoot, "feature/auth"))

	exists, err := client.Exists("auth")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestClient_Create_BranchAlreadyExists(t *testing.T) {
	repoRoot, worktreeDir := setupTestRepo(t)
	runGit(t, repoRoot, "branch", "feature/auth")
	client := NewClient(repoRoot, worktreeDir)

	_, err := client.Create("auth")

	assert.ErrorIs(t, err, domain.ErrBranchExists)
	assert.NoDirExists(t, filepath.Join(worktreeDir, "feat-auth"))
}

func TestClient_Create_PrunesStaleRegistration(t *testing.T) {
	repoRoot, worktreeDir := setupTestRepo(t)
	client := NewClient(repoRoot, worktreeDir)
	info, err := client.Create("auth")
	require.NoError(t, err)

	// Simulate a crash that lost the directory and the branch but not the registration
	require.NoError(t, os.RemoveAll(info.Path))
	runGit(t, repoRoot, "branch", "-D", "feature/auth")

	_, err = client.Create("auth")

	require.NoError(t, err)
	assert.DirExists(t, info.Path)
}

func TestClient_Remove(t *testing.T) {
	repoRoot, worktreeDir := setupTestRepo(t)
	client := NewClient(repoRoot, worktreeDir)
	info, err := client.Create("auth")
	require.NoError(t, err)
	// Dirty worktrees are removed too
	require.NoError(t, os.WriteFile(filepath.Join(info.Path, "pipeline.log"), []byte("x"), 0o644))

	require.NoError(t, client.Remove("auth"))

	assert.NoDirExists(t, info.Path)
	assert.False(t, branchExists(t, repoRoot, "feature/auth"))
	exists, err := client.Exists("auth")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClient_Remove_Idempotent(t *testing.T) {
	repoRoot, worktreeDir := setupTestRepo(t)
	client := NewClient(repoRoot, worktreeDir)

	assert.NoError(t, client.Remove("never-created"))

	_, err := client.Create("auth")
	require.NoError(t, err)
	require.NoError(t, client.Remove("auth"))
	assert.NoError(t, client.Remove("auth"))
}

func TestClient_Remove_OrphanDirectory(t *testing.T) {
	repoRoot, worktreeDir := setupTestRepo(t)
	client := NewClient(repoRoot, worktreeDir)
	orphan := filepath.Join(worktreeDir, "feat-auth")
	require.NoError(t, os.MkdirAll(orphan, 0o755))

	require.NoError(t, client.Remove("auth"))

	assert.NoDirExists(t, orphan)
}

func TestParseWorktreeList(t *testing.T) {
	output := "worktree /repo\nHEAD abc\nbranch refs/heads/main\n\nworktree /repo/.claude/worktrees/feat-auth\nHEAD def\nbranch refs/heads/feature/auth\n"

	got, err := parseWorktreeList(output)

	require.NoError(t, err)
	assert.Equal(t, []domain.WorktreeInfo{
		{Path: "/repo", Branch: "main"},
		{Path: "/repo/.claude/worktrees/feat-auth", Branch: "feature/auth"},
	}, got)
}
