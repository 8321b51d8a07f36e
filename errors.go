package fluidcore

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. The
// control thread surfaces these to callers; the render thread never
// returns errors, it drops the offending event and counts it.
type Kind int

const (
	KindInvalidArgument Kind = iota
	KindNotFound
	KindOutOfMemory
	KindRingOverflow
	KindIOError
	KindState
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid-argument"
	case KindNotFound:
		return "not-found"
	case KindOutOfMemory:
		return "out-of-memory"
	case KindRingOverflow:
		return "ring-overflow"
	case KindIOError:
		return "io-error"
	case KindState:
		return "state"
	default:
		return "fatal"
	}
}

// Error is the control-thread error type: a kind, the failing
// operation, and an optional wrapped cause, composing with errors.Is
// and errors.As.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err carries the given Kind anywhere in its
// chain.
func IsKind(err error, k Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == k
}

func newError(k Kind, op, format string, args ...any) *Error {
	return &Error{Kind: k, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(k Kind, op string, err error) *Error {
	return &Error{Kind: k, Op: op, Err: err}
}
