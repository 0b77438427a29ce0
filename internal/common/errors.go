// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Portal errors.
	ErrNotFound     = errors.New("not found")
	ErrNoProjects   = errors.New("no projects available")
	ErrNoDatasets   = errors.New("no datasets available")
	ErrNoProcesses  = errors.New("no processes available")
	ErrUnauthorized = errors.New("not authorized")

	// Annotation errors.
	ErrInputRequired   = errors.New("input required")
	ErrInvalidTemplate = errors.New("invalid file template")
	ErrNoMatches       = errors.New("template matched no files")
	ErrNoTempDir       = errors.New("no temp directory in path")

	// Workflow form errors.
	ErrUnknownField   = errors.New("unknown field")
	ErrUnknownSection = errors.New("unknown section")
	ErrNothingToUndo  = errors.New("nothing to undo")
	ErrNothingToRedo  = errors.New("nothing to redo")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// InputError reports a missing or invalid interactive answer. It aborts the
// current flow and its message is printed as-is.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrInputRequired) match any InputError.
func (e *InputError) Is(target error) bool {
	return target == ErrInputRequired
}

// NewInputError creates a new input error.
func NewInputError(message string) error {
	return &InputError{Message: message}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
