// Package flasherr defines the error taxonomy of the flash storage stack:
// which failures are fatal (programming errors or exhausted media), which
// are transparently recovered, and which merely need to be surfaced to the
// caller.
package flasherr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a flash storage stack error.
type Kind int

const (
	// MediumWriteOnceViolation: attempt to write a non-zero page. Fatal.
	MediumWriteOnceViolation Kind = iota
	// AddressOutOfRange: read/write/erase beyond device geometry. Fatal.
	AddressOutOfRange
	// NoSpareBlock: reserved region exhausted. Fatal; read-only from here.
	NoSpareBlock
	// CorruptionUnrecoverable: signature mismatch, no repair. Non-fatal.
	CorruptionUnrecoverable
	// CorruptionRepaired: verify returned a repaired page. Transparent.
	CorruptionRepaired
	// UnimplementedScheme: ECC selected but not built. Fatal until built.
	UnimplementedScheme
)

func (k Kind) String() string {
	switch k {
	case MediumWriteOnceViolation:
		return "medium write-once violation"
	case AddressOutOfRange:
		return "address out of range"
	case NoSpareBlock:
		return "no spare block"
	case CorruptionUnrecoverable:
		return "corruption unrecoverable"
	case CorruptionRepaired:
		return "corruption repaired"
	case UnimplementedScheme:
		return "unimplemented scheme"
	default:
		return "unknown"
	}
}

// Fatal reports whether errors of this kind must abort the caller rather
// than be handled inline.
func (k Kind) Fatal() bool {
	switch k {
	case MediumWriteOnceViolation, AddressOutOfRange, NoSpareBlock, UnimplementedScheme:
		return true
	default:
		return false
	}
}

// Error is a typed, stack-carrying error value.
type Error struct {
	kind Kind
	err  error
}

// New builds an Error of kind k with the given formatted message, carrying
// a stack trace via github.com/pkg/errors.
func New(k Kind, format string, args ...interface{}) *Error {
	return &Error{kind: k, err: errors.Errorf(format, args...)}
}

// Wrap attaches kind k to an existing error, preserving its stack if it
// already carries one.
func Wrap(k Kind, err error, msg string) *Error {
	return &Error{kind: k, err: errors.Wrap(err, msg)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.kind, e.err)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.err }

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

// Is reports whether err is a *Error of kind k.
func Is(err error, k Kind) bool {
	fe, ok := err.(*Error)
	if !ok {
		return false
	}
	return fe.kind == k
}
