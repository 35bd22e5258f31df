// Package errs holds the error kinds the HTTP handlers map to status codes.
package errs

import "errors"

var (
	ErrSessionNotFound  = errors.New("Session not found")
	ErrStoreUnavailable = errors.New("session store unavailable")

	// ErrConflict is returned when a conditional write lost against a
	// concurrent writer.
	ErrConflict = errors.New("conflicting session update")
)

// ValidationError reports missing or malformed request input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// PreconditionError reports that a linked resource the operation depends on
// has not been provisioned.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string {
	return e.Msg
}

func Validation(msg string) error {
	return &ValidationError{Msg: msg}
}

func Precondition(msg string) error {
	return &PreconditionError{Msg: msg}
}
