// Package kcerrors holds the error types produced while compiling kernel
// source. Compilation failures are reported as a single *Diagnostic that
// carries a position, the stage that raised it, and one of the sentinel errors
// below as its cause, so callers can check the failure class with errors.Is.
package kcerrors

import "errors"

var (
	ErrSyntax            = errors.New("syntax error")
	ErrAttributeMisuse   = errors.New("attribute misuse")
	ErrQualifierConflict = errors.New("qualifier conflict")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrEmission          = errors.New("emission error")

	// ErrInternal is used when a compiler component breaks its own contract,
	// such as a transform pass returning neither a statement nor an error.
	ErrInternal = errors.New("internal compiler error")
)

// Error is an error with a message and any number of causes. Calling
// errors.Is on an Error with any of its causes as the target returns true.
//
// Error should not be used directly; call New to create one.
type Error struct {
	msg   string
	cause []error
}

// Error returns the message of the Error followed by the message of its first
// cause, if it has one.
func (e Error) Error() string {
	if e.msg == "" && e.cause != nil {
		return e.cause[0].Error()
	}

	if e.cause != nil {
		return e.msg + ": " + e.cause[0].Error()
	}

	return e.msg
}

// Unwrap returns the causes of the Error, or nil if it has none.
func (e Error) Unwrap() []error {
	if len(e.cause) > 0 {
		return e.cause
	}
	return nil
}

// Is returns whether one of the causes of e is target.
func (e Error) Is(target error) bool {
	for i := range e.cause {
		if e.cause[i] == target {
			return true
		}
	}
	return false
}

// New creates a new Error with the given message and causes.
func New(msg string, causes ...error) Error {
	err := Error{msg: msg}
	if len(causes) > 0 {
		err.cause = make([]error, len(causes))
		copy(err.cause, causes)
	}
	return err
}

// Class returns the sentinel failure class of err: one of ErrSyntax,
// ErrAttributeMisuse, ErrQualifierConflict, ErrTypeMismatch, ErrEmission or
// ErrInternal. If err matches none of them, nil is returned.
func Class(err error) error {
	for _, sentinel := range []error{ErrSyntax, ErrAttributeMisuse, ErrQualifierConflict, ErrTypeMismatch, ErrEmission, ErrInternal} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}
