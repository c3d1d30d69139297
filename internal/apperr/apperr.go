// Package apperr defines the error taxonomy shared by every operation of the
// command surface: validation, external service, auth and state errors.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to react differently to
// bad input, failed dependencies and missing state.
type Kind int

const (
	// Validation means the input was rejected before any I/O was attempted.
	Validation Kind = iota + 1
	// External means a dependency timed out, answered non-2xx, or sent garbage.
	External
	// Auth means a brokerage access token could not be obtained.
	Auth
	// State means the operation referenced something that does not exist.
	State
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation error"
	case External:
		return "external service error"
	case Auth:
		return "auth error"
	case State:
		return "state error"
	default:
		return "error"
	}
}

// Error is the concrete error type returned across package boundaries.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf builds a Validation error.
func Validationf(op, format string, args ...any) error {
	return &Error{Kind: Validation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Statef builds a State error.
func Statef(op, format string, args ...any) error {
	return &Error{Kind: State, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// ExternalErr wraps a dependency failure.
func ExternalErr(op, msg string, err error) error {
	return &Error{Kind: External, Op: op, Msg: msg, Err: err}
}

// AuthErr wraps a token acquisition failure.
func AuthErr(op, msg string, err error) error {
	return &Error{Kind: Auth, Op: op, Msg: msg, Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ExitCode maps an error to the CLI status: 0 success, 1 caller error, 2 dependency failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case Validation, State:
		return 1
	case External, Auth:
		return 2
	default:
		return 1
	}
}
