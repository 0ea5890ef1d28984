package lineage

import (
	"errors"
	"fmt"
)

// LineageError reports a reference to an artifact the backing store does not
// hold. Broken chains discovered during verification are findings, not
// errors; see VerifyChain.
type LineageError struct {
	Op         string
	ArtifactID string
	Message    string
}

func (e *LineageError) Error() string {
	return fmt.Sprintf("lineage %s: artifact %s: %s", e.Op, e.ArtifactID, e.Message)
}

// IsLineageError reports whether err is or wraps a *LineageError.
func IsLineageError(err error) bool {
	var le *LineageError
	return errors.As(err, &le)
}
