package commands

import (
	"errors"

	"github.com/secemp9/jari/internal/core/model"
)

// Exit codes per spec.md §6: 0 success, 1 user error, 2 conflict pending,
// 3 storage error, 4 cycle detected.
const (
	ExitSuccess         = 0
	ExitUserError       = 1
	ExitConflictPending = 2
	ExitStorageError    = 3
	ExitCycleDetected   = 4
)

// ExitCode maps a domain error returned from internal/core to the process
// exit code the CLI should report. A nil error is ExitSuccess.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, model.ErrCycleDetected):
		return ExitCycleDetected
	case errors.Is(err, model.ErrConflictPending):
		return ExitConflictPending
	case errors.Is(err, model.ErrStorageFull), errors.Is(err, model.ErrStorageCorrupt):
		return ExitStorageError
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, model.ErrAlreadyClaimed),
		errors.Is(err, model.ErrNotClaimable),
		errors.Is(err, model.ErrNoConflicts),
		errors.Is(err, model.ErrInvalidOverride),
		errors.Is(err, model.ErrNotClosed),
		errors.Is(err, model.ErrSelfEdge):
		return ExitUserError
	default:
		return ExitStorageError
	}
}
