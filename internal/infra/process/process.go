// Package process inspects and signals processes by pid.
package process

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/runoshun/git-murm/internal/domain"
)

// Ensure Signaler implements domain.ProcessSignaler.
var _ domain.ProcessSignaler = (*Signaler)(nil)

// Signaler sends signals to local processes.
type Signaler struct{}

// NewSignaler creates a new Signaler.
func NewSignaler() *Signaler {
	return &Signaler{}
}

// IsAlive checks pid with signal 0. EPERM means the process exists but
// belongs to another user, which still counts as alive.
func (s *Signaler) IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Terminate sends SIGTERM to pid. A process that already exited is not an error.
func (s *Signaler) Terminate(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("terminate pid %d: %w", pid, err)
	}
	return nil
}
