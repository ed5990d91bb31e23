// Package diag defines the typed error kinds shared across the compiler
// and runtime pipeline (§7): argument, file, parse, include, and machine
// errors, plus non-fatal warnings. Every pipeline stage returns these
// instead of bare errors so the CLI can format a location-aware message
// and choose the right exit code.
package diag

import (
	"fmt"

	"github.com/organic-audio/organic/internal/lang/token"
)

// Kind classifies a diagnostic.
type Kind int

const (
	Argument Kind = iota
	File
	Parse
	Include
	Machine
	Warning
)

func (k Kind) String() string {
	switch k {
	case Argument:
		return "argument error"
	case File:
		return "file error"
	case Parse:
		return "parse error"
	case Include:
		return "include error"
	case Machine:
		return "machine error"
	case Warning:
		return "warning"
	default:
		return "error"
	}
}

// Error is a single diagnostic, optionally carrying a source location.
type Error struct {
	Kind Kind
	Loc  *token.Location
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Loc != nil {
		return fmt.Sprintf("%s: %s: %s", e.Loc, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, loc *token.Location, format string, args ...any) *Error {
	return &Error{Kind: kind, Loc: loc, Msg: fmt.Sprintf(format, args...)}
}

// Argumentf builds a CLI argument error (no source location).
func Argumentf(format string, args ...any) *Error {
	return newf(Argument, nil, format, args...)
}

// Filef builds a file-access/bytecode-magic error.
func Filef(format string, args ...any) *Error {
	return newf(File, nil, format, args...)
}

// Parsef builds a tokenization/grammar error at loc.
func Parsef(loc token.Location, format string, args ...any) *Error {
	return newf(Parse, &loc, format, args...)
}

// Includef builds an unresolvable-or-misplaced include error at loc.
func Includef(loc token.Location, format string, args ...any) *Error {
	return newf(Include, &loc, format, args...)
}

// Machinef builds a VM execution error (bad opcode, stack underflow, etc).
func Machinef(format string, args ...any) *Error {
	return newf(Machine, nil, format, args...)
}

// Warningf builds a benign, non-aborting diagnostic (duplicate include,
// no-op include). Callers log it and continue.
func Warningf(loc token.Location, format string, args ...any) *Error {
	return newf(Warning, &loc, format, args...)
}

// IsWarning reports whether err is a diag.Error of Kind Warning.
func IsWarning(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == Warning
	}
	return false
}

// ExitCode maps a diagnostic to the CLI's process exit code: 0 for nil or
// a warning, 1 for anything else.
func ExitCode(err error) int {
	if err == nil || IsWarning(err) {
		return 0
	}
	return 1
}
