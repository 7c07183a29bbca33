// Package common defines shared constants and sentinel errors used across
// the kanban server layers. Callers should use errors.Is / errors.As to
// match these values.
package common

import (
	"errors"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrVersionConflict = errors.New("version conflict")

	// Service-level errors.
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Credential errors.
	ErrIdentityNotFound = errors.New("identity not found")
	ErrBadCredentials   = errors.New("You provided an incorrect password.")

	// Token errors (bad signature, expired, malformed).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// A protected route was called without credentials.
	ErrUnauthenticated = errors.New("authentication required")

	// Admission errors.
	ErrRateExceeded     = errors.New("too many requests")
	ErrUnknownClientKey = errors.New("client address unknown")

	// Patch documents that cannot be merged onto a task.
	ErrMergeFailure = errors.New("merge patch failed")
)

// Conflict messages surfaced to callers on optimistic-lock failures.
const (
	MsgUpdateConflict = "Task was updated by another user. Please reload and try again."
	MsgPatchConflict  = "Task was updated during your edit. Please reload and try again."
	MsgDeleteConflict = "Task was modified before deletion. Please refresh and try again."
)

// ConflictError is returned by the task service when a write lost an
// optimistic-concurrency race. Message is safe to show to the caller.
// It unwraps to ErrVersionConflict.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Unwrap() error {
	return ErrVersionConflict
}

// NewConflict builds a ConflictError with the given caller-facing message.
func NewConflict(msg string) error {
	return &ConflictError{Message: msg}
}

// ValidationError lists every problem found in a submitted payload.
// It unwraps to ErrorValidation.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrorValidation
}
