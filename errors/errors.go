// Package errors wraps pkg/errors and adds the coded-error vocabulary shared
// by the cache and RTO packages.
package errors

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// Code identifies a class of failure that callers can check against with Is,
// independent of the human-readable message attached to a particular error.
type Code string

const (
	// InvalidArgument marks a precondition violation: a null/zero key or
	// value, a malformed path, a non-positive capacity, and so on.
	InvalidArgument Code = "InvalidArgument"

	// InvariantViolation marks a broken internal state-machine invariant,
	// e.g. an eviction-policy transition attempted from the wrong source
	// state. These are programmer errors, not input errors.
	InvariantViolation Code = "InvariantViolation"

	// NoSolutions marks that a join graph produced no paths with positive
	// cardinality.
	NoSolutions Code = "NoSolutions"

	// SamplerError marks a failure surfaced by the sampling executor during
	// a cutoff join.
	SamplerError Code = "SamplerError"
)

// New returns an error carrying the given code and message.
func New(code Code, message string) error {
	return errors.WithStack(codedError{
		Code:    code,
		Message: message,
	})
}

// Newf is New with Printf-style formatting.
func Newf(code Code, format string, args ...interface{}) error {
	return errors.WithStack(codedError{
		Code:    code,
		Message: errors.Errorf(format, args...).Error(),
	})
}

// Is reports whether err (or any error it wraps) carries the given Code.
func Is(err error, code Code) bool {
	var ce codedError
	if stderrors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// Cause unwraps err to the underlying root cause, same as pkg/errors.Cause.
func Cause(err error) error {
	return errors.Cause(err)
}

func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// codedError is the fundamental type used by this package to attach a Code
// to an error without losing the message.
type codedError struct {
	Code    Code
	Message string
}

func (ce codedError) Error() string {
	return ce.Message
}
