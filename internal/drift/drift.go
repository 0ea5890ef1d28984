// Package drift compares an expected checksum against an observed one and
// reports whether they match. The digest comparison is the primitive;
// DetectValues layers on top for callers that hold structured values rather
// than precomputed digests.
//
// Classifying a mismatch (fact vs drift vs unknown) is a caller concern; see
// the truth package.
package drift

import (
	"bytes"
	"time"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/checksum"
)

// Result is the outcome of one comparison. Expected and Actual are the
// compared checksums, retained so a report can show both sides. Drift is a
// finding, never an error.
type Result struct {
	Expected   string
	Actual     string
	Matches    bool
	Source     string
	DetectedAt string // RFC 3339 UTC
}

// Clock supplies detection timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Detector stamps comparison results. The zero value is not usable; call
// New.
type Detector struct {
	clock Clock
}

// Option configures a Detector.
type Option func(*Detector)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(d *Detector) { d.clock = c }
}

// New creates a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{clock: systemClock{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect compares an expected checksum against an observed one and returns
// the stamped result. Pure apart from the timestamp.
func (d *Detector) Detect(expected, actual, source string) Result {
	return Result{
		Expected:   expected,
		Actual:     actual,
		Matches:    expected == actual,
		Source:     source,
		DetectedAt: d.clock.Now().UTC().Format(time.RFC3339Nano),
	}
}

// DetectValues computes the checksum of each value and compares the digests.
// The error return is reserved for values outside the canonical grammar
// (cyclic, non-finite floats); a mismatch is a finding, not an error.
func (d *Detector) DetectValues(expected, actual canon.Value, source string) (Result, error) {
	eh, err := checksum.Compute(expected)
	if err != nil {
		return Result{}, err
	}
	ah, err := checksum.Compute(actual)
	if err != nil {
		return Result{}, err
	}
	return d.Detect(eh, ah, source), nil
}

// Equal reports whether two values have identical canonical encodings.
// Values that cannot be encoded never match.
func Equal(a, b canon.Value) bool {
	ab, err := canon.Encode(a)
	if err != nil {
		return false
	}
	bb, err := canon.Encode(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
