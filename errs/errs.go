// Package errs defines the fatal error kinds from spec §7. Every kind
// aborts its caller; none are recovered internally by the core.
package errs

import (
	"fmt"
	"runtime"
)

// Kind enumerates the error kinds from spec §7.
type Kind int

const (
	BadPrerequisite Kind = iota
	BadArguments
	OpenFailure
	ExtentMismatch
	BoundaryNotZero
	NonPairedFace
	MissingSurfOnCell
	InvalidCase
)

func (k Kind) String() string {
	switch k {
	case BadPrerequisite:
		return "BadPrerequisite"
	case BadArguments:
		return "BadArguments"
	case OpenFailure:
		return "OpenFailure"
	case ExtentMismatch:
		return "ExtentMismatch"
	case BoundaryNotZero:
		return "BoundaryNotZero"
	case NonPairedFace:
		return "NonPairedFace"
	case MissingSurfOnCell:
		return "MissingSurfOnCell"
	case InvalidCase:
		return "InvalidCase"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned for every fatal condition
// named in spec §7. MissingSurfOnCell and InvalidCase always carry the
// file+line of the call site that raised them, per spec §7's "aborts
// with file+line context"; the other kinds carry it too since capturing
// it costs nothing and helps any caller that logs these before aborting.
type Error struct {
	Kind    Kind
	Msg     string
	File    string
	Line    int
	Context map[string]any
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s (%s:%d)", e.Kind, e.Msg, e.File, e.Line)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New builds an Error of the given kind with a caller-supplied message,
// capturing the immediate caller's file and line.
func New(kind Kind, msg string) error {
	return newSkip(kind, msg, nil, 2)
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) error {
	return newSkip(kind, fmt.Sprintf(format, args...), nil, 2)
}

// WithContext attaches structured context (e.g. case dump, corner values)
// to a new Error, matching spec §7's "InvalidCase ... aborts with case
// dump (eight corner values)".
func WithContext(kind Kind, msg string, ctx map[string]any) error {
	return newSkip(kind, msg, ctx, 2)
}

func newSkip(kind Kind, msg string, ctx map[string]any, skip int) error {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		file, line = "unknown", 0
	}
	return &Error{Kind: kind, Msg: msg, File: file, Line: line, Context: ctx}
}

// Is reports whether err is an *Error of the given kind, for use with
// errors.Is-style checks in tests.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
