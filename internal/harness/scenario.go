package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/counterslot/internal/counter"
	"github.com/roach88/counterslot/internal/ir"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Used as the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Label overrides the seed label. Empty uses the manifest's seed.
	Label string `yaml:"label,omitempty"`

	// Actors lists every identity the scenario refers to.
	Actors []string `yaml:"actors"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation performed by an actor.
type Step struct {
	// Actor performs the operation.
	Actor string `yaml:"actor"`

	// Op is initialize, update, or update_account.
	Op string `yaml:"op"`

	// Value is the new counter value for update operations.
	Value *int `yaml:"value,omitempty"`

	// Target names the actor whose slot update_account addresses.
	Target string `yaml:"target,omitempty"`

	// ExpectError is the expected error code. Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Operation names.
const (
	OpInitialize    = "initialize"
	OpUpdate        = "update"
	OpUpdateAccount = "update_account"
)

// Assertion validates trace or final state.
type Assertion struct {
	// Type is final_value, event_count, event_order, or absent.
	Type string `yaml:"type"`

	// Actor selects the slot (final_value, absent).
	Actor string `yaml:"actor,omitempty"`

	// Value is the expected counter value (final_value).
	Value *int `yaml:"value,omitempty"`

	// Kind restricts event_count to one event kind.
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number of notifications (event_count).
	Count *int `yaml:"count,omitempty"`

	// Messages is the expected message order (event_order).
	Messages []string `yaml:"messages,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalValue = "final_value"
	AssertEventCount = "event_count"
	AssertEventOrder = "event_order"
	AssertAbsent     = "absent"
)

var errorCodes = []string{
	string(counter.CodeAlreadyInitialized),
	string(counter.CodeNotInitialized),
	string(counter.CodeNotOwner),
	string(counter.CodeDerivationFailed),
}

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

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
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

	if len(s.Actors) == 0 {
		return fmt.Errorf("actors list is required and must be non-empty")
	}
	seen := make(map[string]bool, len(s.Actors))
	for i, a := range s.Actors {
		if a == "" {
			return fmt.Errorf("actors[%d]: name is required", i)
		}
		if seen[a] {
			return fmt.Errorf("actors[%d]: duplicate actor %q", i, a)
		}
		seen[a] = true
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step, seen); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, seen); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step *Step, actors map[string]bool) error {
	if !actors[step.Actor] {
		return fmt.Errorf("steps[%d]: unknown actor %q", index, step.Actor)
	}

	switch step.Op {
	case OpInitialize:
		if step.Value != nil {
			return fmt.Errorf("steps[%d]: initialize takes no value", index)
		}
	case OpUpdate, OpUpdateAccount:
		if step.Value == nil {
			return fmt.Errorf("steps[%d]: value is required for %s", index, step.Op)
		}
		if err := checkByte(*step.Value); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	if step.Op == OpUpdateAccount {
		if !actors[step.Target] {
			return fmt.Errorf("steps[%d]: unknown target %q", index, step.Target)
		}
	} else if step.Target != "" {
		return fmt.Errorf("steps[%d]: target is only valid for %s", index, OpUpdateAccount)
	}

	if step.ExpectError != "" && !slices.Contains(errorCodes, step.ExpectError) {
		return fmt.Errorf("steps[%d]: unknown error code %q", index, step.ExpectError)
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, actors map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalValue:
		if !actors[a.Actor] {
			return fmt.Errorf("assertions[%d]: unknown actor %q for final_value", index, a.Actor)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for final_value", index)
		}
		if err := checkByte(*a.Value); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertEventCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for event_count", index)
		}
		if a.Kind != "" && a.Kind != string(ir.EventInitialized) && a.Kind != string(ir.EventUpdated) {
			return fmt.Errorf("assertions[%d]: unknown event kind %q", index, a.Kind)
		}
	case AssertEventOrder:
		if a.Messages == nil {
			return fmt.Errorf("assertions[%d]: messages list is required for event_order", index)
		}
	case AssertAbsent:
		if !actors[a.Actor] {
			return fmt.Errorf("assertions[%d]: unknown actor %q for absent", index, a.Actor)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func checkByte(v int) error {
	if v < 0 || v > 255 {
		return fmt.Errorf("value %d out of range 0..255", v)
	}
	return nil
}
