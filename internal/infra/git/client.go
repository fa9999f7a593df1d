// Package git provides git operations.
package git

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/runoshun/git-murm/internal/domain"
)

// Client provides git operations on the main worktree of a repository.
type Client struct {
	repoRoot string // Main repository root (parent of .git)
	gitDir   string // Common .git directory
}

// Ensure Client implements domain.Git interface.
var _ domain.Git = (*Client)(nil)

// rollbackPrefix marks commits created by rollback; they never count as
// feature commits.
const rollbackPrefix = "Revert:"

// NewClient creates a new git client by detecting the repository root from the given directory.
// It handles both regular repositories and worktrees.
func NewClient(dir string) (*Client, error) {
	repoRoot, gitDir, err := findGitRoot(dir)
	if err != nil {
		return nil, err
	}
	return &Client{
		repoRoot: repoRoot,
		gitDir:   gitDir,
	}, nil
}

// RepoRoot returns the repository root directory.
func (c *Client) RepoRoot() string {
	return c.repoRoot
}

// pendingMarkers maps the state files git leaves in the main worktree's git
// directory to the operation they belong to.
var pendingMarkers = []struct {
	name string
	op   string
}{
	{"MERGE_HEAD", "merge"},
	{"REVERT_HEAD", "revert"},
	{"CHERRY_PICK_HEAD", "cherry-pick"},
	{"rebase-merge", "rebase"},
	{"rebase-apply", "rebase"},
}

// PendingOperation returns the name of an unfinished merge, revert,
// cherry-pick or rebase in the main worktree, or "" if there is none.
func (c *Client) PendingOperation() (string, error) {
	for _, m := range pendingMarkers {
		_, err := os.Stat(filepath.Join(c.gitDir, m.name))
		if err == nil {
			return m.op, nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("check %s: %w", m.name, err)
		}
	}
	return "", nil
}

// CurrentBranch returns the branch checked out in the main worktree.
func (c *Client) CurrentBranch() (string, error) {
	out, err := c.output(c.repoRoot, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	return out, nil
}

// HasUncommittedChanges checks for uncommitted changes to tracked files.
// Untracked files are ignored: the orchestrator keeps its own state under
// the repository and merges never touch untracked paths.
func (c *Client) HasUncommittedChanges() (bool, error) {
	out, err := c.output(c.repoRoot, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, fmt.Errorf("failed to check uncommitted changes: %w", err)
	}
	return out != "", nil
}

// Version returns the output of `git --version`.
func (c *Client) Version() (string, error) {
	out, err := c.output(c.repoRoot, "--version")
	if err != nil {
		return "", fmt.Errorf("failed to get git version: %w", err)
	}
	return out, nil
}

// CommitWorktree commits all changes in dir except the excluded paths.
func (c *Client) CommitWorktree(dir, message string, exclude ...string) (bool, error) {
	args := []string{"add", "-A", "--", "."}
	for _, p := range exclude {
		args = append(args, ":(exclude)"+p)
	}
	if out, err := c.combined(dir, args...); err != nil {
		return false, fmt.Errorf("failed to stage changes: %w: %s", err, out)
	}

	// Exit code 1 means there are staged changes
	cmd := exec.Command("git", "diff", "--cached", "--quiet")
	cmd.Dir = dir
	if err := cmd.Run(); err == nil {
		return false, nil
	} else if exitErr, ok := err.(*exec.ExitError); !ok || exitErr.ExitCode() != 1 {
		return false, fmt.Errorf("failed to inspect staged changes: %w", err)
	}

	if out, err := c.combined(dir, "commit", "--no-verify", "-m", message); err != nil {
		return false, fmt.Errorf("failed to commit: %w: %s", err, out)
	}
	return true, nil
}

// Merge merges branch into the current branch without opening an editor.
func (c *Client) Merge(branch string) (string, error) {
	out, err := c.combined(c.repoRoot, "merge", branch, "--no-edit")
	if err == nil {
		return out, nil
	}
	if strings.Contains(out, "CONFLICT") {
		return out, fmt.Errorf("%w: %s", domain.ErrMergeConflict, branch)
	}
	return out, fmt.Errorf("failed to merge branch %s: %w", branch, err)
}

// AbortMerge restores the pre-merge state.
func (c *Client) AbortMerge() error {
	if out, err := c.combined(c.repoRoot, "merge", "--abort"); err != nil {
		return fmt.Errorf("failed to abort merge: %w: %s", err, out)
	}
	return nil
}

// FindFeatureCommit walks HEAD's history for the newest commit that names slug.
func (c *Client) FindFeatureCommit(slug string) (*domain.CommitInfo, error) {
	repo, err := git.PlainOpen(c.repoRoot)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	mention := slugMention(slug)
	var found *domain.CommitInfo
	err = iter.ForEach(func(commit *object.Commit) error {
		msg := strings.TrimSpace(commit.Message)
		if strings.HasPrefix(msg, rollbackPrefix) || !mention.MatchString(msg) {
			return nil
		}
		found = &domain.CommitInfo{
			Hash:    commit.Hash.String(),
			Message: firstLine(msg),
			IsMerge: commit.NumParents() > 1,
		}
		return storer.ErrStop
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, fmt.Errorf("walk log: %w", err)
	}
	return found, nil
}

// Revert stages the inverse of commit. Merge commits are reverted against
// their first parent.
func (c *Client) Revert(commit domain.CommitInfo) error {
	args := []string{"revert", "--no-commit"}
	if commit.IsMerge {
		args = append(args, "-m", "1")
	}
	args = append(args, commit.Hash)
	if out, err := c.combined(c.repoRoot, args...); err != nil {
		return fmt.Errorf("failed to revert %s: %w: %s", commit.Hash, err, out)
	}
	return nil
}

// AbortRevert cancels an in-progress revert.
func (c *Client) AbortRevert() error {
	if out, err := c.combined(c.repoRoot, "revert", "--abort"); err != nil {
		return fmt.Errorf("failed to abort revert: %w: %s", err, out)
	}
	return nil
}

// Commit records the index of the main worktree.
func (c *Client) Commit(message string) error {
	if out, err := c.combined(c.repoRoot, "commit", "--no-verify", "-m", message); err != nil {
		return fmt.Errorf("failed to commit: %w: %s", err, out)
	}
	return nil
}

func (c *Client) output(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	return strings.TrimSpace(string(out)), err
}

func (c *Client) combined(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// slugMention matches slug as a whole token, so "auth" matches neither
// "oauth" nor "auth.v2". A sentence-ending period still counts as a boundary.
func slugMention(slug string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(^|[^a-z0-9._-])` + regexp.QuoteMeta(slug) + `($|[^a-z0-9._-]|\.($|[^a-z0-9_-]))`)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// findGitRoot finds the git repository root and .git directory from the given directory.
// This works correctly both in the main repository and inside worktrees.
// Returns:
//   - repoRoot: main repository root (parent of .git)
//   - gitDir: common .git directory
func findGitRoot(dir string) (repoRoot, gitDir string, err error) {
	cmd := exec.Command("git", "rev-parse", "--git-common-dir")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", "", domain.ErrNotGitRepository
	}
	gitDir = strings.TrimSpace(string(out))

	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(dir, gitDir)
	}
	gitDir = filepath.Clean(gitDir)
	repoRoot = filepath.Dir(gitDir)

	return repoRoot, gitDir, nil
}
