package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/demo"
)

// Scenario is a list of dispatches plus the assertions that must hold
// afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// FlowToken prefixes the flow tokens of the run: "<token>-1", ...
	// Defaults to the scenario name.
	FlowToken string `yaml:"flow_token,omitempty"`

	// MaxAttempts configures the user store lock. Zero means
	// demo.DefaultMaxAttempts.
	MaxAttempts int `yaml:"max_attempts,omitempty"`

	// Steps are dispatched in order. Follow-ups emitted by a step are
	// drained before the next step.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state and the trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Step dispatches one action.
type Step struct {
	// Dispatch is the action, by short name ("LOGIN") or full constant
	// ("USER_LOGIN").
	Dispatch string `yaml:"dispatch"`

	// Payload is sent with the action.
	Payload map[string]any `yaml:"payload,omitempty"`

	// ExpectError, when set, must be a substring of the dispatch error.
	// When empty the dispatch must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates the final state or the trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Store names the store (state, action_state, outcome, lifecycle).
	Store string `yaml:"store,omitempty"`

	// Action names the constant (action_state, outcome, lifecycle,
	// cycle_count).
	Action string `yaml:"action,omitempty"`

	// Expect holds expected values; subset match (state, action_state).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Status is the expected outcome: ok, failed or ignored (outcome).
	Status string `yaml:"status,omitempty"`

	// Error must be a substring of the store's error (outcome).
	Error string `yaml:"error,omitempty"`

	// Events is the exact lifecycle event sequence (lifecycle).
	Events []string `yaml:"events,omitempty"`

	// Actions is the expected order of cycles (cycle_order).
	Actions []string `yaml:"actions,omitempty"`

	// Count is the expected number of cycles (cycle_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion types.
const (
	AssertState       = "state"
	AssertActionState = "action_state"
	AssertOutcome     = "outcome"
	AssertLifecycle   = "lifecycle"
	AssertCycleOrder  = "cycle_order"
	AssertCycleCount  = "cycle_count"
)

// LoadScenario reads, schema-checks and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario schema-checks and parses scenario YAML.
// Unknown fields are rejected; every action and store name must exist in
// the demo application.
func ParseScenario(data []byte) (*Scenario, error) {
	if err := ValidateScenario(data); err != nil {
		return nil, err
	}

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

// storeNames are the stores of demo.App.
var storeNames = map[string]bool{"user": true, "session": true, "audit": true}

// resolveAction maps a short or full action name onto a demo constant.
func resolveAction(name string) (action.Constant, error) {
	c, ok := demo.Actions.Resolve(name)
	if !ok {
		return "", fmt.Errorf("unknown action %q (known: %v)", name, demo.Actions.Names())
	}
	return c, nil
}

// validateScenario checks what the schema cannot: names that must resolve
// against the demo application.
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
	if s.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must be non-negative")
	}

	for i, step := range s.Steps {
		if _, err := resolveAction(step.Dispatch); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	needStore := func() error {
		if !storeNames[a.Store] {
			return fmt.Errorf("assertions[%d]: unknown store %q", index, a.Store)
		}
		return nil
	}
	needAction := func() error {
		if _, err := resolveAction(a.Action); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		return nil
	}

	switch a.Type {
	case AssertState:
		return needStore()
	case AssertActionState, AssertLifecycle:
		if err := needStore(); err != nil {
			return err
		}
		return needAction()
	case AssertOutcome:
		if err := needStore(); err != nil {
			return err
		}
		if err := needAction(); err != nil {
			return err
		}
		switch a.Status {
		case "", "ok", "failed", "ignored":
		default:
			return fmt.Errorf("assertions[%d]: status must be ok, failed or ignored, got %q", index, a.Status)
		}
		return nil
	case AssertCycleOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for cycle_order", index)
		}
		for _, name := range a.Actions {
			if _, err := resolveAction(name); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
		return nil
	case AssertCycleCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for cycle_count", index)
		}
		return needAction()
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
}
