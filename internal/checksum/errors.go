package checksum

import (
	"errors"
	"fmt"
)

// ChecksumError reports an I/O failure while hashing a file. Programmatic
// encoding failures surface as *canon.EncodingError instead.
type ChecksumError struct {
	Op   string // "open" or "read"
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying I/O error.
func (e *ChecksumError) Unwrap() error {
	return e.Err
}

// IsChecksumError reports whether err is (or wraps) a *ChecksumError.
func IsChecksumError(err error) bool {
	var ce *ChecksumError
	return errors.As(err, &ce)
}
