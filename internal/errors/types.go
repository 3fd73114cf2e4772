// Package errors provides the structured error taxonomy used across stitch.
//
// Errors fall into two groups. Run-fatal errors (configuration and source
// errors) abort a build before any output is written. Variant-scoped errors
// (missing variant fragments and output write failures) are recorded against
// the variant that caused them in the build report.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeSource   ErrorType = "source"
	ErrorTypeFragment ErrorType = "fragment"
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeInternal ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeConfigInvalid      = "ERR_CONFIG_INVALID"
	ErrCodeFragmentListEmpty  = "ERR_FRAGMENT_LIST_EMPTY"
	ErrCodeManifestInvalid    = "ERR_MANIFEST_INVALID"
	ErrCodeMetadataInvalid    = "ERR_METADATA_INVALID"
	ErrCodeVariantsUnreadable = "ERR_VARIANTS_UNREADABLE"
	ErrCodeSharedUnreadable   = "ERR_SHARED_UNREADABLE"
	ErrCodeFragmentMissing    = "ERR_FRAGMENT_MISSING"
	ErrCodeFragmentUnreadable = "ERR_FRAGMENT_UNREADABLE"
	ErrCodeOutputDirFailed    = "ERR_OUTPUT_DIR_FAILED"
	ErrCodeOutputWriteFailed  = "ERR_OUTPUT_WRITE_FAILED"
	ErrCodeInternal           = "ERR_INTERNAL"
)

// StitchError is a structured error type with context.
type StitchError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	Path    string
	Variant string
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *StitchError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Variant != "" {
		parts = append(parts, "variant:"+e.Variant)
	}

	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *StitchError) Unwrap() error {
	return e.Cause
}

// Is reports a match when target is a *StitchError with the same type and code.
func (e *StitchError) Is(target error) bool {
	var t *StitchError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *StitchError) WithContext(key string, value interface{}) *StitchError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath records the file or directory the error concerns.
func (e *StitchError) WithPath(path string) *StitchError {
	e.Path = path

	return e
}

// WithVariant records the variant the error is scoped to.
func (e *StitchError) WithVariant(variant string) *StitchError {
	e.Variant = variant

	return e
}

// Fatal reports whether the error aborts the whole run.
func (e *StitchError) Fatal() bool {
	// Without an output directory no variant can be written.
	if e.Code == ErrCodeOutputDirFailed {
		return true
	}
	switch e.Type {
	case ErrorTypeConfig, ErrorTypeSource, ErrorTypeInternal:
		return true
	default:
		return false
	}
}

// Error creation functions

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *StitchError {
	return &StitchError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewSourceError creates an error for an unreadable source directory or shared fragment.
func NewSourceError(code, message string, cause error) *StitchError {
	return &StitchError{
		Type:    ErrorTypeSource,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewFragmentError creates a variant-scoped fragment error.
func NewFragmentError(code, message string, cause error) *StitchError {
	return &StitchError{
		Type:    ErrorTypeFragment,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *StitchError {
	return &StitchError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *StitchError {
	return &StitchError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Helper functions for common errors

// ErrFragmentListEmpty is returned when no shared fragments are configured.
func ErrFragmentListEmpty() *StitchError {
	return NewConfigError(ErrCodeFragmentListEmpty, "shared fragment list is empty")
}

// ErrVariantsUnreadable is returned when the variants directory is missing or unlistable.
func ErrVariantsUnreadable(dir string, cause error) *StitchError {
	return NewSourceError(ErrCodeVariantsUnreadable, "variants directory unreadable", cause).WithPath(dir)
}

// ErrFragmentMissing is returned when a variant's own fragment cannot be found.
func ErrFragmentMissing(variant, path string) *StitchError {
	return NewFragmentError(ErrCodeFragmentMissing, "variant fragment not found", nil).
		WithVariant(variant).
		WithPath(path)
}

// ErrOutputWriteFailed is returned when an assembled document cannot be written.
func ErrOutputWriteFailed(variant, path string, cause error) *StitchError {
	return NewIOError(ErrCodeOutputWriteFailed, "failed to write output", cause).
		WithVariant(variant).
		WithPath(path)
}

// Sentinels for errors.Is comparisons.
var (
	FragmentListEmpty  = &StitchError{Type: ErrorTypeConfig, Code: ErrCodeFragmentListEmpty}
	VariantsUnreadable = &StitchError{Type: ErrorTypeSource, Code: ErrCodeVariantsUnreadable}
	FragmentMissing    = &StitchError{Type: ErrorTypeFragment, Code: ErrCodeFragmentMissing}
	OutputWriteFailed  = &StitchError{Type: ErrorTypeIO, Code: ErrCodeOutputWriteFailed}
)
