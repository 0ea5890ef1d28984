// Package truth is a policy layer over the drift primitive: it tags asserted
// state as FACT, ESTIMATE, UNKNOWN, or DRIFT and keeps a log of detected
// divergence. It consumes the core packages; the core never depends on it.
package truth

import (
	"time"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/drift"
)

// Tag classifies the epistemic status of an assertion.
type Tag string

const (
	// TagFact marks a value verified against an authoritative source.
	TagFact Tag = "FACT"
	// TagEstimate marks a value the asserter believes but has not verified.
	TagEstimate Tag = "ESTIMATE"
	// TagUnknown marks a key whose value is explicitly not known.
	TagUnknown Tag = "UNKNOWN"
	// TagDrift marks a key whose observed value diverged from the expected
	// one.
	TagDrift Tag = "DRIFT"
)

// Assertion is the latest recorded claim about one key.
type Assertion struct {
	Key        string
	Value      canon.Value
	Tag        Tag
	Source     string
	AssertedAt string // RFC 3339 UTC
}

// Clock supplies assertion timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// State tracks per-key assertions and the drift log. Not safe for
// concurrent use; each logical session owns its own State.
type State struct {
	clock      Clock
	detector   *drift.Detector
	assertions map[string]Assertion
	order      []string
	driftLog   []drift.Result
}

// Option configures a State.
type Option func(*State)

// WithClock replaces the system clock for both assertions and drift
// detection.
func WithClock(c Clock) Option {
	return func(s *State) {
		s.clock = c
		s.detector = drift.New(drift.WithClock(c))
	}
}

// New creates an empty State.
func New(opts ...Option) *State {
	s := &State{
		clock:      systemClock{},
		detector:   drift.New(),
		assertions: make(map[string]Assertion),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AssertFact records key as a verified value.
func (s *State) AssertFact(key string, value canon.Value, source string) Assertion {
	return s.record(key, value, TagFact, source)
}

// AssertEstimate records key as an unverified belief.
func (s *State) AssertEstimate(key string, value canon.Value, source string) Assertion {
	return s.record(key, value, TagEstimate, source)
}

// AssertUnknown records that key's value is explicitly not known.
func (s *State) AssertUnknown(key, source string) Assertion {
	return s.record(key, canon.Null{}, TagUnknown, source)
}

// RecordDrift compares expected against actual for key. A match re-asserts
// the key as FACT; a mismatch tags it DRIFT, records the observed value, and
// appends the result to the drift log. The error return is reserved for
// values that cannot be canonically encoded.
func (s *State) RecordDrift(key string, expected, actual canon.Value, source string) (drift.Result, error) {
	r, err := s.detector.DetectValues(expected, actual, source)
	if err != nil {
		return drift.Result{}, err
	}
	if r.Matches {
		s.record(key, actual, TagFact, source)
	} else {
		s.record(key, actual, TagDrift, source)
		s.driftLog = append(s.driftLog, r)
	}
	return r, nil
}

func (s *State) record(key string, value canon.Value, tag Tag, source string) Assertion {
	if value == nil {
		value = canon.Null{}
	}
	a := Assertion{
		Key:        key,
		Value:      value,
		Tag:        tag,
		Source:     source,
		AssertedAt: s.clock.Now().UTC().Format(time.RFC3339Nano),
	}
	if _, ok := s.assertions[key]; !ok {
		s.order = append(s.order, key)
	}
	s.assertions[key] = a
	return a
}

// Get returns the latest assertion for key.
func (s *State) Get(key string) (Assertion, bool) {
	a, ok := s.assertions[key]
	return a, ok
}

// Assertions returns the latest assertion per key in first-asserted order.
func (s *State) Assertions() []Assertion {
	out := make([]Assertion, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.assertions[key])
	}
	return out
}

// DriftLog returns every recorded divergence in detection order.
func (s *State) DriftLog() []drift.Result {
	out := make([]drift.Result, len(s.driftLog))
	copy(out, s.driftLog)
	return out
}

// Summary returns per-tag assertion counts.
func (s *State) Summary() map[Tag]int {
	out := make(map[Tag]int)
	for _, a := range s.assertions {
		out[a.Tag]++
	}
	return out
}
