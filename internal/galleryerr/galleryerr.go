// Package galleryerr defines the error taxonomy from spec.md §7: NotFound
// and AccessDenied propagate to the request edge, Corrupt and Transient are
// absorbed by the component that owns them, and Invariant violations are
// fatal to the operation that discovered them.
package galleryerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation-policy decisions at component
// boundaries (C3 for I/O, C4 for decode, C5 for watcher events).
type Kind int

const (
	KindNotFound Kind = iota
	KindAccessDenied
	KindCorrupt
	KindTransient
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindAccessDenied:
		return "AccessDenied"
	case KindCorrupt:
		return "Corrupt"
	case KindTransient:
		return "Transient"
	case KindInvariant:
		return "Invariant"
	default:
		return "Unknown"
	}
}

// Error is a taxonomy-tagged error. Wrap with New/Wrap so that errors.As
// recovers the Kind at any boundary that needs to decide whether to
// absorb or propagate.
type Error struct {
	Kind Kind
	Op   string // the operation that failed, e.g. "sync", "send", "watch"
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a taxonomy error with no wrapped cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Wrap tags an existing error with a taxonomy Kind.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind == kind
	}
	return false
}

func NotFound(op string, err error) *Error     { return Wrap(KindNotFound, op, err) }
func AccessDenied(op string, err error) *Error { return Wrap(KindAccessDenied, op, err) }
func Corrupt(op string, err error) *Error      { return Wrap(KindCorrupt, op, err) }
func Transient(op string, err error) *Error    { return Wrap(KindTransient, op, err) }
func Invariant(op string, err error) *Error    { return Wrap(KindInvariant, op, err) }
