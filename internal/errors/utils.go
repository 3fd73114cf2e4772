package errors

import (
	"errors"
)

// Wrap wraps an error with additional context, creating a StitchError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *StitchError {
	if err == nil {
		return nil
	}

	// Keep location details from an inner StitchError
	var se *StitchError
	if errors.As(err, &se) {
		return &StitchError{
			Type:    errType,
			Code:    code,
			Message: message,
			Cause:   se,
			Path:    se.Path,
			Variant: se.Variant,
			Context: se.Context,
		}
	}

	return &StitchError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *StitchError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *StitchError {
	return Wrap(err, ErrorTypeIO, code, message)
}

// IsFatal reports whether err aborts the whole run. Errors that are not
// StitchErrors are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var se *StitchError
	if errors.As(err, &se) {
		return se.Fatal()
	}

	return true
}

// IsConfigError checks if an error is configuration-related.
func IsConfigError(err error) bool {
	return hasType(err, ErrorTypeConfig)
}

// IsSourceError checks if an error concerns unreadable build sources.
func IsSourceError(err error) bool {
	return hasType(err, ErrorTypeSource)
}

// CodeOf returns the error code of the outermost StitchError in err's chain.
func CodeOf(err error) string {
	var se *StitchError
	if errors.As(err, &se) {
		return se.Code
	}

	return ""
}

func hasType(err error, t ErrorType) bool {
	var se *StitchError
	if errors.As(err, &se) {
		return se.Type == t
	}

	return false
}
