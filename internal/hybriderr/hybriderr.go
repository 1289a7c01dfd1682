// Package hybriderr defines the error taxonomy shared by the file
// loaders, the index builders, and the query engine.
package hybriderr

import (
	"errors"
	"fmt"
)

// ExitCode classifies an error for the CLI's process exit status.
type ExitCode int

const (
	ExitSuccess       ExitCode = 0
	ExitUsage         ExitCode = 1
	ExitIO            ExitCode = 2
	ExitInvariant     ExitCode = 3
)

// sentinel kinds, matched with errors.Is against the wrapping types below.
var (
	// ErrIO marks a file-missing, wrong-size, or read/write failure.
	ErrIO = errors.New("io error")
	// ErrFormat marks malformed input, e.g. a query kind outside {0,1,2,3}.
	ErrFormat = errors.New("format error")
	// ErrInsufficientRange marks an exhaustive range narrower than k.
	ErrInsufficientRange = errors.New("insufficient range")
	// ErrBuild marks a build-time invariant violation (degree overflow,
	// duplicate edge).
	ErrBuild = errors.New("build failure")
)

// IOError wraps a failing path with ErrIO.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error: %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }

// NewIOError builds an IOError for path.
func NewIOError(path string, err error) error {
	return &IOError{Path: path, Err: err}
}

// FormatError wraps a malformed-input description with ErrFormat.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string { return fmt.Sprintf("format error: %s", e.Msg) }
func (e *FormatError) Unwrap() error { return ErrFormat }

// NewFormatError builds a FormatError.
func NewFormatError(format string, args ...interface{}) error {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// InsufficientRangeError wraps ErrInsufficientRange with the number of
// points found in the requested range (Have) and the number needed (Want).
type InsufficientRangeError struct {
	Have int
	Want int
}

func (e *InsufficientRangeError) Error() string {
	return fmt.Sprintf("insufficient range: have %d points, need %d", e.Have, e.Want)
}
func (e *InsufficientRangeError) Unwrap() error { return ErrInsufficientRange }

// NewInsufficientRangeError builds an InsufficientRangeError.
func NewInsufficientRangeError(have, want int) error {
	return &InsufficientRangeError{Have: have, Want: want}
}

// BuildError wraps a build-time invariant violation with ErrBuild.
type BuildError struct {
	Msg string
}

func (e *BuildError) Error() string { return fmt.Sprintf("build failure: %s", e.Msg) }
func (e *BuildError) Unwrap() error { return ErrBuild }

// NewBuildError builds a BuildError.
func NewBuildError(format string, args ...interface{}) error {
	return &BuildError{Msg: fmt.Sprintf(format, args...)}
}

// Code maps an error produced by this package (or wrapping one of its
// sentinels) to a process exit code. Unrecognized errors map to
// ExitInvariant, the catch-all for invariant violations.
func Code(err error) ExitCode {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrIO):
		return ExitIO
	case errors.Is(err, ErrFormat):
		return ExitUsage
	default:
		return ExitInvariant
	}
}
