package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines an executable registration scenario.
// It registers the actions of one definition file, runs a sequence of create
// and dispatch steps, and asserts on the resulting actions, trace and state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Definitions is the path to the CUE definition file to register.
	// Relative paths are resolved against the scenario file location.
	Definitions string `yaml:"definitions"`

	// RunID is an optional fixed run ID. If empty, a UUIDv7 is generated.
	RunID string `yaml:"run_id,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the created actions, the trace and the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is either a create step (Create set, optionally dispatching the
// created action) or a literal dispatch step.
type Step struct {
	// Create names the action whose creator is invoked.
	Create string `yaml:"create,omitempty"`

	// Args is the positional argument record passed to the creator.
	Args []any `yaml:"args,omitempty"`

	// Dispatch is `true` to dispatch the created action, or a literal
	// action object {type, payload}.
	Dispatch *Dispatch `yaml:"dispatch,omitempty"`
}

// Dispatch is the dispatch part of a step.
type Dispatch struct {
	// Created dispatches the action produced by the step's creator.
	Created bool

	// Type and Payload describe a literal action.
	Type    string
	Payload map[string]any
}

// IsLiteral reports whether the dispatch carries its own action.
func (d *Dispatch) IsLiteral() bool {
	return d != nil && d.Type != ""
}

// UnmarshalYAML accepts a boolean or a {type, payload} mapping.
func (d *Dispatch) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var created bool
		if err := node.Decode(&created); err != nil {
			return fmt.Errorf("line %d: dispatch must be true or an action object", node.Line)
		}
		d.Created = created
		return nil
	case yaml.MappingNode:
		var lit struct {
			Type    string         `yaml:"type"`
			Payload map[string]any `yaml:"payload"`
		}
		if err := node.Decode(&lit); err != nil {
			return err
		}
		if lit.Type == "" {
			return fmt.Errorf("line %d: dispatch action requires a type", node.Line)
		}
		d.Type = lit.Type
		d.Payload = lit.Payload
		return nil
	default:
		return fmt.Errorf("line %d: dispatch must be true or an action object", node.Line)
	}
}

// Assertion validates trace, actions or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "state": the final state under Store matches Expect (subset match)
	// - "action": the action created at Step matches Expect (subset match)
	// - "error": the creator call at Step failed with Code
	// - "trace_contains": an event of Event kind for action type Action exists
	// - "trace_count": exactly Count events of Event kind for Action exist
	Type string `yaml:"type"`

	// Store is the store key (used by state).
	Store string `yaml:"store,omitempty"`

	// Step is the zero-based step index (used by action and error).
	Step *int `yaml:"step,omitempty"`

	// Expect is the expected value (used by state and action).
	// Maps are matched as subsets; everything else must be equal.
	Expect any `yaml:"expect,omitempty"`

	// Code is the expected configuration error code (used by error).
	Code string `yaml:"code,omitempty"`

	// Event is the trace event kind: created, dispatched or rejected.
	// Defaults to dispatched (used by trace_contains and trace_count).
	Event string `yaml:"event,omitempty"`

	// Action is the action name or dispatch type (used by trace_contains and trace_count).
	Action string `yaml:"action,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertState         = "state"
	AssertAction        = "action"
	AssertError         = "error"
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The definitions path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the definitions path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Definitions != "" && !filepath.IsAbs(scenario.Definitions) && basePath != "" {
		scenario.Definitions = filepath.Join(basePath, scenario.Definitions)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if _, err := os.Stat(scenario.Definitions); err != nil {
		return nil, fmt.Errorf("invalid scenario: definitions file not found: %s", scenario.Definitions)
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Definitions == "" {
		return fmt.Errorf("definitions is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch {
		case step.Create != "" && step.Dispatch.IsLiteral():
			return fmt.Errorf("steps[%d]: create and a literal dispatch are mutually exclusive", i)
		case step.Create == "" && !step.Dispatch.IsLiteral():
			return fmt.Errorf("steps[%d]: create or a dispatch action is required", i)
		case step.Create == "" && len(step.Args) > 0:
			return fmt.Errorf("steps[%d]: args require create", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], len(s.Steps)); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needStep := func() error {
		if a.Step == nil {
			return fmt.Errorf("assertions[%d]: step is required for %s", index, a.Type)
		}
		if *a.Step < 0 || *a.Step >= steps {
			return fmt.Errorf("assertions[%d]: step %d out of range", index, *a.Step)
		}
		return nil
	}

	switch a.Type {
	case AssertState:
		if a.Store == "" {
			return fmt.Errorf("assertions[%d]: store is required for state", index)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for state", index)
		}
	case AssertAction:
		if err := needStep(); err != nil {
			return err
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for action", index)
		}
	case AssertError:
		if err := needStep(); err != nil {
			return err
		}
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	case AssertTraceContains, AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for %s", index, a.Type)
		}
		if a.Event != "" && !isEventKind(a.Event) {
			return fmt.Errorf("assertions[%d]: unknown event kind %q", index, a.Event)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
