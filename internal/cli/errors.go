package cli

import "fmt"

// Process exit codes.
const (
	ExitFailure     = 1
	ExitInterrupted = 130
)

// ExitError asks main to exit with Code. A nil Err means the command has
// already reported the problem and nothing more should be printed.
type ExitError struct {
	Err  error
	Code int
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }
