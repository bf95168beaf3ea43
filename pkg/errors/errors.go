// Package errors provides error wrapping utilities and the typed failures
// recorded on an image request.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Wrap wraps an error with additional context information.
// If err is nil, it returns nil without wrapping.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf is Wrap with a formatted context.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// New, Is and As mirror the standard library so callers need one import.
func New(text string) error { return stderrors.New(text) }

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

// FormatError reports a declared or sniffed format outside the accepted
// input formats.
type FormatError struct {
	Format string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("The listed format (%s) is not valid.", e.Format)
}

// ExcludedSourceError reports a request whose effective source type is on
// the exclusion list.
type ExcludedSourceError struct {
	Source string
}

func (e *ExcludedSourceError) Error() string {
	return e.Source + " is an excluded source"
}

// IsFormatError reports whether err carries a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return As(err, &fe)
}

// IsExcludedSource reports whether err carries an ExcludedSourceError.
func IsExcludedSource(err error) bool {
	var ee *ExcludedSourceError
	return As(err, &ee)
}
