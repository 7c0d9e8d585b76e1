package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: a course, an ordered step
// flow and final assertions against tracking state and persistence.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Course is the path to the course structure file, relative to the
	// scenario file's directory.
	Course string `yaml:"course"`

	// Steps is the ordered flow of navigation requests, API calls and
	// resolve steps.
	Steps []Step `yaml:"steps"`

	// Assertions validate final state after the flow completes.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one flow entry. Exactly one of Nav, API or Resolve must be
// set.
type Step struct {
	// Nav issues a host navigation request ("start", "continue",
	// "choice", ...). A "choice" request requires Target.
	Nav    string `yaml:"nav,omitempty"`
	Target string `yaml:"target,omitempty"`

	// API runs RTE calls against the current session.
	API []APICall `yaml:"api,omitempty"`

	// Resolve consumes the navigation the last terminated session left
	// behind (adl.nav.request or exit/post-condition rules).
	Resolve bool `yaml:"resolve,omitempty"`

	// Expect validates the outcome of a Nav or Resolve step.
	Expect *NavExpect `yaml:"expect,omitempty"`
}

// APICall is one RTE call against the current session.
type APICall struct {
	// Op is the RTE method name: Initialize, Terminate, Commit,
	// GetValue, SetValue, GetLastError, GetErrorString, GetDiagnostic.
	Op string `yaml:"op"`

	// Element is the data model path for GetValue and SetValue.
	Element string `yaml:"element,omitempty"`

	// Value is the written value for SetValue, or the code argument for
	// GetErrorString and GetDiagnostic.
	Value string `yaml:"value,omitempty"`

	// Want validates the call's return value when non-empty.
	Want string `yaml:"want,omitempty"`

	// WantError validates the error register after the call when
	// non-empty ("0" asserts no error).
	WantError string `yaml:"wantError,omitempty"`
}

// NavExpect validates the outcome of a navigation or resolve step.
// Zero-valued fields are not checked.
type NavExpect struct {
	Success  *bool  `yaml:"success,omitempty"`
	Reason   string `yaml:"reason,omitempty"`
	Activity string `yaml:"activity,omitempty"`
	End      *bool  `yaml:"end,omitempty"`
	Handled  *bool  `yaml:"handled,omitempty"`
}

// Assertion validates final state after the flow.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Activity names the asserted activity (tracking).
	Activity string `yaml:"activity,omitempty"`

	// Completion and Success assert rolled-up status strings
	// ("completed", "incomplete", "unknown" / "passed", "failed",
	// "unknown"). Empty means unchecked.
	Completion string `yaml:"completion,omitempty"`
	Success    string `yaml:"success,omitempty"`

	// AttemptCount and Suspended assert tracking counters.
	AttemptCount *int  `yaml:"attemptCount,omitempty"`
	Suspended    *bool `yaml:"suspended,omitempty"`

	// Continue, Previous, Exit and Choice assert navigation availability.
	Continue *bool           `yaml:"continue,omitempty"`
	Previous *bool           `yaml:"previous,omitempty"`
	Exit     *bool           `yaml:"exit,omitempty"`
	Choice   map[string]bool `yaml:"choice,omitempty"`

	// Count asserts the number of persisted attempts (attempts_saved).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTracking      = "tracking"
	AssertAvailable     = "available"
	AssertAttemptsSaved = "attempts_saved"
)

var knownRequests = map[string]bool{
	"start": true, "resumeAll": true, "continue": true, "previous": true,
	"choice": true, "exit": true, "exitAll": true, "retry": true,
	"abandon": true, "abandonAll": true, "suspendAll": true,
}

var knownOps = map[string]bool{
	"Initialize": true, "Terminate": true, "Commit": true,
	"GetValue": true, "SetValue": true,
	"GetLastError": true, "GetErrorString": true, "GetDiagnostic": true,
}

// LoadScenario reads and parses a scenario YAML file. The course path is
// resolved relative to the scenario file's directory. Unknown fields
// (typos) and structural violations are load errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if scenario.Course != "" && !filepath.IsAbs(scenario.Course) {
		scenario.Course = filepath.Join(filepath.Dir(path), scenario.Course)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and step/assertion shape.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Course == "" {
		return fmt.Errorf("course is required")
	}
	if _, err := os.Stat(s.Course); err != nil {
		return fmt.Errorf("course file not found: %s", s.Course)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	kinds := 0
	if step.Nav != "" {
		kinds++
	}
	if len(step.API) > 0 {
		kinds++
	}
	if step.Resolve {
		kinds++
	}
	if kinds != 1 {
		return fmt.Errorf("steps[%d]: exactly one of nav, api or resolve is required", index)
	}

	if step.Nav != "" {
		if !knownRequests[step.Nav] {
			return fmt.Errorf("steps[%d]: unknown navigation request %q", index, step.Nav)
		}
		if step.Nav == "choice" && step.Target == "" {
			return fmt.Errorf("steps[%d]: choice requires a target", index)
		}
		if step.Nav != "choice" && step.Target != "" {
			return fmt.Errorf("steps[%d]: target is only valid with choice", index)
		}
	}
	if len(step.API) > 0 && step.Expect != nil {
		return fmt.Errorf("steps[%d]: expect is only valid on nav and resolve steps (use want on api calls)", index)
	}
	for j, call := range step.API {
		if !knownOps[call.Op] {
			return fmt.Errorf("steps[%d].api[%d]: unknown op %q", index, j, call.Op)
		}
		if (call.Op == "GetValue" || call.Op == "SetValue") && call.Element == "" {
			return fmt.Errorf("steps[%d].api[%d]: %s requires an element", index, j, call.Op)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertTracking:
		if a.Activity == "" {
			return fmt.Errorf("assertions[%d]: activity is required for tracking", index)
		}
		if a.Completion == "" && a.Success == "" && a.AttemptCount == nil && a.Suspended == nil {
			return fmt.Errorf("assertions[%d]: tracking asserts nothing", index)
		}
	case AssertAvailable:
		if a.Continue == nil && a.Previous == nil && a.Exit == nil && len(a.Choice) == 0 {
			return fmt.Errorf("assertions[%d]: available asserts nothing", index)
		}
	case AssertAttemptsSaved:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
