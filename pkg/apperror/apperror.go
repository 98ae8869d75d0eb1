// Package apperror defines the typed error taxonomy shared by every layer.
//
// Each error carries a short uppercase code such as "COMMAND-Org31". Codes
// are part of the public contract: clients map them to localized messages,
// so a code point must never change meaning once released.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping and retry decisions.
type Kind int

const (
	KindUnspecified Kind = iota
	KindInvalidArgument
	KindNotFound
	KindAlreadyExists
	KindPreconditionFailed
	KindPermissionDenied
	KindConcurrencyConflict
	KindInternal
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindPreconditionFailed:
		return "precondition_failed"
	case KindPermissionDenied:
		return "permission_denied"
	case KindConcurrencyConflict:
		return "concurrency_conflict"
	case KindInternal:
		return "internal"
	case KindTransient:
		return "transient"
	default:
		return "unspecified"
	}
}

// Error is the concrete error type used across the module.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Parent  error
}

func (e *Error) Error() string {
	if e.Parent != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Code, e.Kind, e.Message, e.Parent)
	}
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Parent }

// Is reports kind equality so callers can match with errors.Is on a
// zero-value probe of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, parent error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Parent: parent}
}

func ThrowInvalidArgument(parent error, code, message string) *Error {
	return newError(KindInvalidArgument, parent, code, message)
}

func ThrowNotFound(parent error, code, message string) *Error {
	return newError(KindNotFound, parent, code, message)
}

func ThrowAlreadyExists(parent error, code, message string) *Error {
	return newError(KindAlreadyExists, parent, code, message)
}

func ThrowPreconditionFailed(parent error, code, message string) *Error {
	return newError(KindPreconditionFailed, parent, code, message)
}

func ThrowPermissionDenied(parent error, code, message string) *Error {
	return newError(KindPermissionDenied, parent, code, message)
}

func ThrowConcurrencyConflict(parent error, code, message string) *Error {
	return newError(KindConcurrencyConflict, parent, code, message)
}

func ThrowInternal(parent error, code, message string) *Error {
	return newError(KindInternal, parent, code, message)
}

func ThrowTransient(parent error, code, message string) *Error {
	return newError(KindTransient, parent, code, message)
}

// UniqueConstraintError is a specialization of AlreadyExists raised by the
// event store when a constraint add collides. It keeps the caller-supplied
// code so command handlers surface their own stable error point.
type UniqueConstraintError struct {
	// Err carries the AlreadyExists kind and the caller's code. It must
	// stay a named field: embedding would promote it over the Error method.
	Err            *Error
	ConstraintType string
	Value          string
}

func ThrowUniqueConstraintViolation(constraintType, value, code, message string) *UniqueConstraintError {
	return &UniqueConstraintError{
		Err:            newError(KindAlreadyExists, nil, code, message),
		ConstraintType: constraintType,
		Value:          value,
	}
}

func (e *UniqueConstraintError) Error() string { return e.Err.Error() }

func (e *UniqueConstraintError) Unwrap() error { return e.Err }

func (e *UniqueConstraintError) Is(target error) bool {
	if t, ok := target.(*UniqueConstraintError); ok {
		return (t.ConstraintType == "" || t.ConstraintType == e.ConstraintType) &&
			(t.Err == nil || t.Err.Code == "" || t.Err.Code == e.Err.Code)
	}
	return e.Err.Is(target)
}

func kindOf(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func IsInvalidArgument(err error) bool     { return kindOf(err, KindInvalidArgument) }
func IsNotFound(err error) bool            { return kindOf(err, KindNotFound) }
func IsAlreadyExists(err error) bool       { return kindOf(err, KindAlreadyExists) }
func IsPreconditionFailed(err error) bool  { return kindOf(err, KindPreconditionFailed) }
func IsPermissionDenied(err error) bool    { return kindOf(err, KindPermissionDenied) }
func IsConcurrencyConflict(err error) bool { return kindOf(err, KindConcurrencyConflict) }
func IsInternal(err error) bool            { return kindOf(err, KindInternal) }
func IsTransient(err error) bool           { return kindOf(err, KindTransient) }

// IsUniqueConstraintViolation reports whether err is a constraint collision
// from the event store.
func IsUniqueConstraintViolation(err error) bool {
	var e *UniqueConstraintError
	return errors.As(err, &e)
}

// Code extracts the stable code from err, or "" when err carries none.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
