package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: a sequence of ledger operations
// and corruptions followed by integrity checks, with expectations on the
// final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// TimelineID is the ID of the timeline under test. Defaults to
	// "tl-<name>" for deterministic traces.
	TimelineID string `yaml:"timeline_id,omitempty"`

	// Steps is the ordered list of operations to execute.
	Steps []Step `yaml:"steps"`

	// Expect validates the final timeline state after all steps ran.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Step is one scenario operation. Exactly one of the fields must be set.
type Step struct {
	// Append records a new event on the timeline.
	Append *AppendStep `yaml:"append,omitempty"`

	// Tamper rewrites a field of an already-recorded event, simulating
	// corruption between save and load.
	Tamper *TamperStep `yaml:"tamper,omitempty"`

	// Drop removes the event at a position, simulating a lost record.
	Drop *DropStep `yaml:"drop,omitempty"`

	// Verify runs integrity verification and optionally checks the
	// reported violation kinds.
	Verify *VerifyStep `yaml:"verify,omitempty"`
}

// AppendStep records an event.
type AppendStep struct {
	EventType string         `yaml:"event_type"`
	Actor     string         `yaml:"actor"`
	Payload   map[string]any `yaml:"payload,omitempty"`
}

// TamperStep rewrites one field of the event at Pos.
// Field is one of: payload, event_type, actor, timestamp, checksum.
type TamperStep struct {
	Pos   int    `yaml:"pos"`
	Field string `yaml:"field"`
	Value any    `yaml:"value"`
}

// DropStep removes the event at Pos.
type DropStep struct {
	Pos int `yaml:"pos"`
}

// VerifyStep runs VerifyIntegrity. If Expect is non-nil the reported
// violation kinds must match it exactly, in order; an empty list expects a
// clean result.
type VerifyStep struct {
	Expect *[]string `yaml:"expect,omitempty"`
}

// Expect validates the final timeline state.
type Expect struct {
	// EventCount is the expected number of events, if set.
	EventCount *int `yaml:"event_count,omitempty"`

	// Violations is the expected list of violation kinds, in order.
	// An empty (but present) list expects a clean timeline.
	Violations *[]string `yaml:"violations,omitempty"`
}

// Valid tamper targets.
const (
	TamperPayload   = "payload"
	TamperEventType = "event_type"
	TamperActor     = "actor"
	TamperTimestamp = "timestamp"
	TamperChecksum  = "checksum"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation
// (catches typos like "step:" vs "steps:").
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	if scenario.TimelineID == "" {
		scenario.TimelineID = "tl-" + scenario.Name
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks that exactly one operation is set and well-formed.
func validateStep(index int, step *Step) error {
	set := 0
	if step.Append != nil {
		set++
	}
	if step.Tamper != nil {
		set++
	}
	if step.Drop != nil {
		set++
	}
	if step.Verify != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of append, tamper, drop, verify is required", index)
	}

	switch {
	case step.Append != nil:
		if step.Append.EventType == "" {
			return fmt.Errorf("steps[%d].append: event_type is required", index)
		}
		if step.Append.Actor == "" {
			return fmt.Errorf("steps[%d].append: actor is required", index)
		}
	case step.Tamper != nil:
		if step.Tamper.Pos < 0 {
			return fmt.Errorf("steps[%d].tamper: pos must be non-negative", index)
		}
		switch step.Tamper.Field {
		case TamperPayload, TamperEventType, TamperActor, TamperTimestamp, TamperChecksum:
		default:
			return fmt.Errorf("steps[%d].tamper: unknown field %q", index, step.Tamper.Field)
		}
	case step.Drop != nil:
		if step.Drop.Pos < 0 {
			return fmt.Errorf("steps[%d].drop: pos must be non-negative", index)
		}
	}

	return nil
}
