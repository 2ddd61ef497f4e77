package model

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per member of the closed error sum in spec.md §7.
// Callers use errors.Is against these; the typed errors below carry the
// context spec.md requires ("enough context for the CLI adapter to render
// a one-line message") and Unwrap to their sentinel.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrCycleDetected   = errors.New("cycle detected")
	ErrConflictPending = errors.New("conflict pending")
	ErrAlreadyClaimed  = errors.New("already claimed")
	ErrNotClaimable    = errors.New("not claimable")
	ErrNoConflicts     = errors.New("no conflicts")
	ErrInvalidOverride = errors.New("invalid override")
	ErrStorageFull     = errors.New("storage full")
	ErrStorageCorrupt  = errors.New("storage corrupt")
	ErrNotClosed       = errors.New("not closed")
	ErrSelfEdge        = errors.New("self edge")
)

// NotFoundError names the missing todo or edge endpoint.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("todo %q not found", e.ID) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidInputError names the offending field and why it was rejected.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input for %s: %s", e.Field, e.Reason)
}
func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// CycleDetectedError names the rejected edge. Path holds the new edge's
// parent and child only; the intermediate todos of the cycle are not
// recorded.
type CycleDetectedError struct {
	Child, Parent string
	Path          []string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("adding blocked_by edge %s->%s would create a cycle: %v", e.Child, e.Parent, e.Path)
}
func (e *CycleDetectedError) Unwrap() error { return ErrCycleDetected }

// ConflictPendingError lists the fields left unmerged by an update.
type ConflictPendingError struct {
	ID     string
	Fields []string
}

func (e *ConflictPendingError) Error() string {
	return fmt.Sprintf("todo %q has conflicting fields pending resolution: %v", e.ID, e.Fields)
}
func (e *ConflictPendingError) Unwrap() error { return ErrConflictPending }

// AlreadyClaimedError names the agent who won the race.
type AlreadyClaimedError struct {
	ID, By string
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("todo %q already claimed by %q", e.ID, e.By)
}
func (e *AlreadyClaimedError) Unwrap() error { return ErrAlreadyClaimed }

// NotClaimableError explains why a claim was rejected.
type NotClaimableError struct {
	ID, Reason string
}

func (e *NotClaimableError) Error() string {
	return fmt.Sprintf("todo %q is not claimable: %s", e.ID, e.Reason)
}
func (e *NotClaimableError) Unwrap() error { return ErrNotClaimable }

// InvalidOverrideError names the manual-merge override that failed
// validation against its field's domain.
type InvalidOverrideError struct {
	Field, Reason string
}

func (e *InvalidOverrideError) Error() string {
	return fmt.Sprintf("invalid override for %s: %s", e.Field, e.Reason)
}
func (e *InvalidOverrideError) Unwrap() error { return ErrInvalidOverride }
