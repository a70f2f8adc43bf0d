package podcast

import (
	"errors"
	"fmt"

	"github.com/diacast/diacast/internal/synth"
)

// Kind classifies a failed generation for the caller. Every fatal error
// aborts the request atomically; no partial output file is left behind.
type Kind string

const (
	KindValidation Kind = "validation"
	KindParse      Kind = "parse"
	KindSynthesis  Kind = "synthesis"
	KindAssembly   Kind = "assembly"
	KindIO         Kind = "io"
	KindInternal   Kind = "internal"
)

// Error pairs an error kind with its cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func errKind(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func wrapKind(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the error kind for reporting.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var se *synth.Error
	if errors.As(err, &se) {
		return KindSynthesis
	}
	return KindInternal
}
