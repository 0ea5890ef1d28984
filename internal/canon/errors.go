package canon

import (
	"errors"
	"fmt"
)

// EncodingError reports a value outside the structured value grammar:
// a non-finite float, a cyclic container, or an unsupported type at the
// conversion boundary.
type EncodingError struct {
	// Path locates the offending value, e.g. "payload.items[2]".
	// Empty for the root value.
	Path string

	// Message describes what was rejected.
	Message string
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("encoding: %s at %s", e.Message, e.Path)
	}
	return fmt.Sprintf("encoding: %s", e.Message)
}

// IsEncodingError reports whether err is (or wraps) an *EncodingError.
func IsEncodingError(err error) bool {
	var ee *EncodingError
	return errors.As(err, &ee)
}

func encodingErrorf(path, format string, args ...any) *EncodingError {
	return &EncodingError{Path: path, Message: fmt.Sprintf(format, args...)}
}
