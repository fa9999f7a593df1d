// Package diskspace reports free space on a filesystem.
package diskspace

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/runoshun/git-murm/internal/domain"
)

// Ensure Checker implements domain.DiskSpaceChecker.
var _ domain.DiskSpaceChecker = (*Checker)(nil)

// Checker reads filesystem statistics with statfs.
type Checker struct{}

// NewChecker creates a new Checker.
func NewChecker() *Checker {
	return &Checker{}
}

// AvailableMB returns the megabytes available to unprivileged users on the
// volume holding path.
func (c *Checker) AvailableMB(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	//nolint:gosec // block counts and sizes fit in int64 on supported platforms
	return int64(st.Bavail) * int64(st.Bsize) / (1024 * 1024), nil
}
