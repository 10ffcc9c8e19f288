package domain

import "errors"

// Error kinds. Callers branch with errors.Is/errors.As, never on message text.
var (
	// ErrValidation marks malformed or missing input, caught before any
	// store interaction.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID marks an identifier that fails the format check.
	ErrInvalidID = errors.New("invalid identifier")

	// ErrNotFound marks a referenced account or entry that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks concurrent-write contention that exhausted retries.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrStoreUnavailable marks a connection or transport failure.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConnectionInProgress is returned when the store handle is acquired
	// while another caller's initialization is still in flight.
	ErrConnectionInProgress = errors.New("connection already in progress")

	// ErrStoreClosed is returned when acquiring an already-closed store handle.
	ErrStoreClosed = errors.New("store is closed")
)

// NotFoundError tags ErrNotFound with the entity that was missing.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

var (
	ErrAccountNotFound = &NotFoundError{Entity: "account"}
	ErrEntryNotFound   = &NotFoundError{Entity: "entry"}
)
