package harness

import (
	"context"
	"fmt"

	"github.com/svincent240/scormrt/internal/activity"
)

// AssertionError is returned when a final-state assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

func (h *Harness) evaluateAssertions(asserts []Assertion, result *Result) {
	for i, a := range asserts {
		if err := h.evaluateAssertion(a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
}

func (h *Harness) evaluateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTracking:
		return h.assertTracking(a)
	case AssertAvailable:
		return h.assertAvailable(a)
	case AssertAttemptsSaved:
		return h.assertAttemptsSaved(a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertTracking checks an activity's rolled-up tracking state.
func (h *Harness) assertTracking(a Assertion) error {
	n, ok := h.attempt.Tree().ByID(a.Activity)
	if !ok {
		return &AssertionError{
			Type:     AssertTracking,
			Expected: fmt.Sprintf("activity %q in tree", a.Activity),
			Actual:   "not found",
		}
	}
	t := n.Tracking

	if a.Completion != "" && completionOf(t) != a.Completion {
		return &AssertionError{
			Type:     AssertTracking,
			Expected: fmt.Sprintf("%s completion %q", a.Activity, a.Completion),
			Actual:   fmt.Sprintf("%q", completionOf(t)),
		}
	}
	if a.Success != "" && successOf(t) != a.Success {
		return &AssertionError{
			Type:     AssertTracking,
			Expected: fmt.Sprintf("%s success %q", a.Activity, a.Success),
			Actual:   fmt.Sprintf("%q", successOf(t)),
		}
	}
	if a.AttemptCount != nil && t.AttemptCount != *a.AttemptCount {
		return &AssertionError{
			Type:     AssertTracking,
			Expected: fmt.Sprintf("%s attempt count %d", a.Activity, *a.AttemptCount),
			Actual:   fmt.Sprintf("%d", t.AttemptCount),
		}
	}
	if a.Suspended != nil && t.Suspended != *a.Suspended {
		return &AssertionError{
			Type:     AssertTracking,
			Expected: fmt.Sprintf("%s suspended %t", a.Activity, *a.Suspended),
			Actual:   fmt.Sprintf("%t", t.Suspended),
		}
	}
	return nil
}

// assertAvailable checks final navigation availability.
func (h *Harness) assertAvailable(a Assertion) error {
	av := h.attempt.AvailableNavigation()

	if a.Continue != nil && av.Continue != *a.Continue {
		return &AssertionError{
			Type:     AssertAvailable,
			Expected: fmt.Sprintf("continue %t", *a.Continue),
			Actual:   fmt.Sprintf("%t", av.Continue),
		}
	}
	if a.Previous != nil && av.Previous != *a.Previous {
		return &AssertionError{
			Type:     AssertAvailable,
			Expected: fmt.Sprintf("previous %t", *a.Previous),
			Actual:   fmt.Sprintf("%t", av.Previous),
		}
	}
	if a.Exit != nil && av.Exit != *a.Exit {
		return &AssertionError{
			Type:     AssertAvailable,
			Expected: fmt.Sprintf("exit %t", *a.Exit),
			Actual:   fmt.Sprintf("%t", av.Exit),
		}
	}
	for id, want := range a.Choice {
		if av.Choice[id] != want {
			return &AssertionError{
				Type:     AssertAvailable,
				Expected: fmt.Sprintf("choice of %q %t", id, want),
				Actual:   fmt.Sprintf("%t", av.Choice[id]),
			}
		}
	}
	return nil
}

// assertAttemptsSaved checks how many attempt snapshots the store holds.
func (h *Harness) assertAttemptsSaved(a Assertion) error {
	infos, err := h.store.ListAttempts(context.Background())
	if err != nil {
		return fmt.Errorf("list attempts: %w", err)
	}
	if len(infos) != a.Count {
		return &AssertionError{
			Type:     AssertAttemptsSaved,
			Expected: fmt.Sprintf("%d saved attempts", a.Count),
			Actual:   fmt.Sprintf("%d", len(infos)),
		}
	}
	return nil
}

func completionOf(t activity.Tracking) string {
	if !t.CompletionKnown {
		return "unknown"
	}
	if t.Completed {
		return "completed"
	}
	return "incomplete"
}

func successOf(t activity.Tracking) string {
	if !t.SatisfiedKnown {
		return "unknown"
	}
	if t.Satisfied {
		return "passed"
	}
	return "failed"
}
