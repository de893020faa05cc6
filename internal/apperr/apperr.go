// Package apperr defines the shared error taxonomy for the mochimono
// core. Callers match errors with errors.Is/errors.As; externally
// surfaced messages are human-readable, with diagnostic detail kept in
// logs only.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing required input.
	// Never retried; surfaced to the caller immediately.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an operation targeting a nonexistent id.
	ErrNotFound = errors.New("not found")

	// ErrAuthorization marks a realm-scope violation.
	ErrAuthorization = errors.New("not authorized")

	// ErrTransient marks a remote failure that is likely to succeed
	// on retry (rate limit, timeout, network reset).
	ErrTransient = errors.New("transient service error")

	// ErrSync marks an asynchronous replication failure reported by
	// the sync monitor. It never blocks local repository operations.
	ErrSync = errors.New("sync error")
)

// ValidationError reports which field of an input was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Unwrap makes errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validationf builds a *ValidationError for a single field.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError identifies the missing entity and id.
type NotFoundError struct {
	Kind string // "item", "realm", "member"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound builds a *NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// AuthorizationError carries the denied action for the message.
type AuthorizationError struct {
	Action string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized to %s", e.Action)
}

func (e *AuthorizationError) Unwrap() error { return ErrAuthorization }

// Unauthorized builds an *AuthorizationError.
func Unauthorized(action string) error {
	return &AuthorizationError{Action: action}
}

// TransientError wraps a retryable remote failure, optionally with the
// HTTP-style status that classified it.
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient service error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transient service error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return ErrTransient }

// Transient wraps err as retryable.
func Transient(status int, err error) error {
	return &TransientError{Status: status, Err: err}
}
