// Package zerrors categorizes the failures this layer can produce so
// callers can tell a locally rejected input from an engine failure without
// string matching.
package zerrors

import (
	"errors"
	"fmt"
)

// Kind partitions errors by where they originate and how recoverable they
// are.
type Kind string

const (
	// KindValidation is a locally rejected input. No engine resource was
	// touched; the call can be retried with corrected input.
	KindValidation Kind = "validation"
	// KindEngine is a failure reported by the engine during compress,
	// decompress, build, or select.
	KindEngine Kind = "engine"
	// KindCompilation is a diagnostic from the format description
	// compiler.
	KindCompilation Kind = "compilation"
	// KindAllocation is an engine-side handle creation failure, fatal for
	// the call that hit it.
	KindAllocation Kind = "allocation"
)

// Error is the concrete error type for every failure surfaced by this
// layer.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds a validation error from a format string.
func Validation(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Engine wraps an engine failure, keeping the engine's contextual message
// when it has one and falling back to a fixed description otherwise.
func Engine(op string, err error, fallback string) *Error {
	msg := fallback
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &Error{Kind: KindEngine, Op: op, Message: msg, Err: err}
}

// Compilation wraps a compiler diagnostic verbatim.
func Compilation(op string, err error) *Error {
	msg := "compilation failed"
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: KindCompilation, Op: op, Message: msg, Err: err}
}

// Allocation reports an engine-side handle creation failure.
func Allocation(op string, err error, what string) *Error {
	msg := "failed to create " + what
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &Error{Kind: KindAllocation, Op: op, Message: msg, Err: err}
}

func is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func IsValidation(err error) bool  { return is(err, KindValidation) }
func IsEngine(err error) bool      { return is(err, KindEngine) }
func IsCompilation(err error) bool { return is(err, KindCompilation) }
func IsAllocation(err error) bool  { return is(err, KindAllocation) }
