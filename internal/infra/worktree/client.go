// Package worktree provides git worktree operations.
package worktree

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/runoshun/git-murm/internal/domain"
)

// Client manages one git worktree per feature.
type Client struct {
	repoRoot    string // Main repository root
	worktreeDir string // Directory where worktrees are created
}

// NewClient creates a new worktree client.
// repoRoot is the main repository root directory.
// worktreeDir is the absolute directory where feature worktrees are created.
func NewClient(repoRoot, worktreeDir string) *Client {
	return &Client{
		repoRoot:    repoRoot,
		worktreeDir: worktreeDir,
	}
}

// Ensure Client implements domain.WorktreeManager interface.
var _ domain.WorktreeManager = (*Client)(nil)

// Paths returns the deterministic worktree path and branch for slug.
func (c *Client) Paths(slug string) domain.WorktreeInfo {
	return domain.WorktreeInfo{
		Path:   domain.WorktreePath(c.worktreeDir, slug),
		Branch: domain.BranchName(slug),
	}
}

// Create adds a worktree for slug on a new branch forked from HEAD.
// A leftover branch from an earlier run is never reused, since it may hold
// work preserved for inspection.
func (c *Client) Create(slug string) (domain.WorktreeInfo, error) {
	info := c.Paths(slug)

	branchExists, err := c.branchExists(info.Branch)
	if err != nil {
		return info, fmt.Errorf("check branch exists: %w", err)
	}
	if branchExists {
		return info, fmt.Errorf("%w: %s", domain.ErrBranchExists, info.Branch)
	}

	if err := os.MkdirAll(c.worktreeDir, 0o750); err != nil {
		return info, fmt.Errorf("create worktree directory: %w", err)
	}

	args := []string{"worktree", "add", "-b", info.Branch, info.Path}
	out, err := c.git(args...)
	if err != nil {
		// A registered worktree whose directory is gone blocks re-adding the path
		if !strings.Contains(out, "already registered") {
			return info, fmt.Errorf("create worktree: %w: %s", err, out)
		}
		if pruneErr := c.prune(); pruneErr != nil {
			return info, fmt.Errorf("prune stale worktrees: %w", pruneErr)
		}
		if out, err = c.git(args...); err != nil {
			return info, fmt.Errorf("create worktree after prune: %w: %s", err, out)
		}
	}

	return info, nil
}

// Remove force-removes the worktree and force-deletes the branch.
// Either may already be gone; cleanup has to be repeatable after a partial failure.
func (c *Client) Remove(slug string) error {
	info := c.Paths(slug)

	if _, err := c.git("worktree", "remove", "--force", info.Path); err != nil {
		// Not registered: drop any leftover directory and stale entries
		if _, statErr := os.Stat(info.Path); statErr == nil {
			if rmErr := os.RemoveAll(info.Path); rmErr != nil {
				return fmt.Errorf("remove worktree directory: %w", rmErr)
			}
		}
		_ = c.prune()
	}

	_, _ = c.git("branch", "-D", info.Branch)
	return nil
}

// Exists checks if a worktree is registered for slug and its directory is present.
func (c *Client) Exists(slug string) (bool, error) {
	info := c.Paths(slug)

	worktrees, err := c.List()
	if err != nil {
		return false, err
	}

	for _, wt := range worktrees {
		if wt.Branch != info.Branch {
			continue
		}
		if _, err := os.Stat(wt.Path); err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, fmt.Errorf("check worktree directory: %w", err)
		}
		return true, nil
	}

	return false, nil
}

// List returns all worktrees.
func (c *Client) List() ([]domain.WorktreeInfo, error) {
	cmd := exec.Command("git", "worktree", "list", "--porcelain")
	cmd.Dir = c.repoRoot

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}

	return parseWorktreeList(string(out))
}

// parseWorktreeList parses the porcelain output of git worktree list.
// Format:
//
//	worktree /path/to/worktree
//	HEAD abc123
//	branch refs/heads/branch-name
//	<blank line>
func parseWorktreeList(output string) ([]domain.WorktreeInfo, error) {
	var worktrees []domain.WorktreeInfo
	var current domain.WorktreeInfo

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "worktree "):
			current.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		case line == "":
			if current.Path != "" {
				worktrees = append(worktrees, current)
			}
			current = domain.WorktreeInfo{}
		}
	}

	// Handle last entry if no trailing newline
	if current.Path != "" {
		worktrees = append(worktrees, current)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse worktree list: %w", err)
	}

	return worktrees, nil
}

// prune removes registrations whose directory no longer exists.
func (c *Client) prune() error {
	if out, err := c.git("worktree", "prune"); err != nil {
		return fmt.Errorf("prune worktrees: %w: %s", err, out)
	}
	return nil
}

// branchExists checks if a branch exists in the repository.
func (c *Client) branchExists(branch string) (bool, error) {
	cmd := exec.Command("git", "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	cmd.Dir = c.repoRoot

	err := cmd.Run()
	if err != nil {
		// Exit code 1 means branch doesn't exist
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return false, nil
		}
		return false, fmt.Errorf("check branch exists: %w", err)
	}
	return true, nil
}

func (c *Client) git(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = c.repoRoot
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}
