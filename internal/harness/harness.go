// Package harness executes YAML conformance scenarios against the ledger:
// append events, corrupt them in controlled ways, and check that
// verification reports exactly the expected findings.
//
// Traces deliberately exclude event IDs, timestamps, and checksums so that
// scenario runs are byte-for-byte reproducible and comparable against
// golden files.
package harness

import (
	"fmt"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/timeline"
)

// Result captures a scenario execution: the final events, the final
// verification findings, and the deterministic trace.
type Result struct {
	Scenario   *Scenario
	Events     []timeline.Event
	Violations []timeline.Violation
	Trace      []canon.Value
}

// Run executes a scenario. Execution stops at the first failed expectation
// or malformed step; detection findings themselves are never errors, only
// mismatches between found and expected.
func Run(scenario *Scenario) (*Result, error) {
	tl := timeline.New(scenario.TimelineID)
	result := &Result{Scenario: scenario}

	for i, step := range scenario.Steps {
		var err error
		switch {
		case step.Append != nil:
			tl, err = runAppend(tl, step.Append, result)
		case step.Tamper != nil:
			tl, err = runTamper(tl, step.Tamper, result)
		case step.Drop != nil:
			tl, err = runDrop(tl, step.Drop, result)
		case step.Verify != nil:
			err = runVerify(tl, step.Verify, result)
		}
		if err != nil {
			return nil, fmt.Errorf("scenario %s: steps[%d]: %w", scenario.Name, i, err)
		}
	}

	result.Events = tl.Events()
	result.Violations = tl.VerifyIntegrity()

	if err := checkExpect(scenario.Expect, result); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	return result, nil
}

func runAppend(tl *timeline.Timeline, step *AppendStep, result *Result) (*timeline.Timeline, error) {
	payload, err := canon.FromAny(step.Payload)
	if err != nil {
		return nil, fmt.Errorf("append: payload: %w", err)
	}

	ev, err := tl.Append(step.EventType, step.Actor, payload)
	if err != nil {
		return nil, fmt.Errorf("append: %w", err)
	}

	result.Trace = append(result.Trace, canon.Mapping{
		"step":       canon.String("append"),
		"event_type": canon.String(ev.EventType),
		"actor":      canon.String(ev.Actor),
		"seq":        canon.Int(int64(ev.Seq)),
	})
	return tl, nil
}

func runTamper(tl *timeline.Timeline, step *TamperStep, result *Result) (*timeline.Timeline, error) {
	events := tl.Events()
	if step.Pos >= len(events) {
		return nil, fmt.Errorf("tamper: pos %d out of range (%d events)", step.Pos, len(events))
	}

	ev := &events[step.Pos]
	switch step.Field {
	case TamperPayload:
		payload, err := canon.FromAny(step.Value)
		if err != nil {
			return nil, fmt.Errorf("tamper: value: %w", err)
		}
		ev.Payload = payload
	case TamperEventType, TamperActor, TamperTimestamp, TamperChecksum:
		s, ok := step.Value.(string)
		if !ok {
			return nil, fmt.Errorf("tamper: field %s requires a string value, got %T", step.Field, step.Value)
		}
		switch step.Field {
		case TamperEventType:
			ev.EventType = s
		case TamperActor:
			ev.Actor = s
		case TamperTimestamp:
			ev.Timestamp = s
		case TamperChecksum:
			ev.Checksum = s
		}
	}

	result.Trace = append(result.Trace, canon.Mapping{
		"step":  canon.String("tamper"),
		"field": canon.String(step.Field),
		"pos":   canon.Int(int64(step.Pos)),
	})
	return timeline.Restore(tl.ID(), events), nil
}

func runDrop(tl *timeline.Timeline, step *DropStep, result *Result) (*timeline.Timeline, error) {
	events := tl.Events()
	if step.Pos >= len(events) {
		return nil, fmt.Errorf("drop: pos %d out of range (%d events)", step.Pos, len(events))
	}
	events = append(events[:step.Pos], events[step.Pos+1:]...)

	result.Trace = append(result.Trace, canon.Mapping{
		"step": canon.String("drop"),
		"pos":  canon.Int(int64(step.Pos)),
	})
	return timeline.Restore(tl.ID(), events), nil
}

func runVerify(tl *timeline.Timeline, step *VerifyStep, result *Result) error {
	kinds := violationKinds(tl.VerifyIntegrity())

	result.Trace = append(result.Trace, canon.Mapping{
		"step":       canon.String("verify"),
		"violations": kindsValue(kinds),
	})

	if step.Expect != nil && !equalStrings(kinds, *step.Expect) {
		return fmt.Errorf("verify: found violations %v, expected %v", kinds, *step.Expect)
	}
	return nil
}

func checkExpect(expect *Expect, result *Result) error {
	if expect == nil {
		return nil
	}

	if expect.EventCount != nil && len(result.Events) != *expect.EventCount {
		return fmt.Errorf("expect: %d events, expected %d", len(result.Events), *expect.EventCount)
	}

	if expect.Violations != nil {
		kinds := violationKinds(result.Violations)
		if !equalStrings(kinds, *expect.Violations) {
			return fmt.Errorf("expect: found violations %v, expected %v", kinds, *expect.Violations)
		}
	}
	return nil
}

func violationKinds(violations []timeline.Violation) []string {
	kinds := make([]string, len(violations))
	for i, v := range violations {
		kinds[i] = string(v.Kind)
	}
	return kinds
}

func kindsValue(kinds []string) canon.Sequence {
	seq := make(canon.Sequence, len(kinds))
	for i, k := range kinds {
		seq[i] = canon.String(k)
	}
	return seq
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
