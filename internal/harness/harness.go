package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/svincent240/scormrt/internal/activity"
	"github.com/svincent240/scormrt/internal/course"
	"github.com/svincent240/scormrt/internal/sequencing"
	"github.com/svincent240/scormrt/internal/store"
	"github.com/svincent240/scormrt/internal/testutil"
)

// Harness executes one scenario against a freshly built attempt.
type Harness struct {
	attempt *sequencing.Attempt
	store   *store.Store
	clock   *testutil.DeterministicClock
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store and a fresh
// attempt on the scenario's course, with sequential session ids and a
// deterministic trace clock so repeated runs produce identical traces.
//
// A non-nil error means the scenario could not be executed at all
// (unreadable course, broken tree). Expect and assertion failures are
// reported through Result.Errors instead.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	defer st.Close()

	crs, errs := course.LoadFile(scenario.Course)
	if len(errs) > 0 {
		return nil, fmt.Errorf("course %s: %w", scenario.Course, errs[0])
	}
	def, seeds, err := course.Compile(crs)
	if err != nil {
		return nil, fmt.Errorf("course %s: %w", scenario.Course, err)
	}
	tree, err := activity.Build(def)
	if err != nil {
		return nil, fmt.Errorf("course %s: %w", scenario.Course, err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		attempt: sequencing.NewAttempt(tree,
			sequencing.WithPersister(st),
			sequencing.WithSessionIDs(testutil.NewSequentialIDs("")),
			sequencing.WithSeeds(seeds),
			sequencing.WithLogger(logger),
		),
		store:  st,
		clock:  testutil.NewDeterministicClock(),
		logger: logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(i, step, result)
	}
	h.evaluateAssertions(scenario.Assertions, result)
	return result, nil
}

func (h *Harness) executeStep(index int, step Step, result *Result) {
	switch {
	case step.Nav != "":
		h.executeNav(index, step, result)
	case len(step.API) > 0:
		for j, call := range step.API {
			h.executeCall(fmt.Sprintf("steps[%d].api[%d]", index, j), call, result)
		}
	case step.Resolve:
		h.executeResolve(index, step, result)
	}
}

func (h *Harness) executeNav(index int, step Step, result *Result) {
	req := parseRequest(step.Nav, step.Target)
	res := h.attempt.ProcessNavigationRequest(req)

	ev := TraceEvent{
		Seq:     h.clock.Next(),
		Type:    "nav",
		Request: step.Nav,
		Target:  step.Target,
		Success: &res.Success,
		Reason:  res.Reason,
	}
	if res.Delivery != nil {
		ev.Activity = res.Delivery.ActivityID
		ev.End = res.Delivery.End
	}
	result.Trace = append(result.Trace, ev)

	checkNavExpect(fmt.Sprintf("steps[%d]", index), step.Expect, res, nil, result)

	h.logger.Info("navigation step",
		"step", index,
		"request", req.String(),
		"success", res.Success,
		"reason", res.Reason,
	)
}

func (h *Harness) executeResolve(index int, step Step, result *Result) {
	res, handled := h.attempt.ResolvePending()

	ev := TraceEvent{
		Seq:     h.clock.Next(),
		Type:    "resolve",
		Handled: &handled,
	}
	if handled {
		ev.Success = &res.Success
		ev.Reason = res.Reason
		if res.Delivery != nil {
			ev.Activity = res.Delivery.ActivityID
			ev.End = res.Delivery.End
		}
	}
	result.Trace = append(result.Trace, ev)

	checkNavExpect(fmt.Sprintf("steps[%d]", index), step.Expect, res, &handled, result)
}

func (h *Harness) executeCall(prefix string, call APICall, result *Result) {
	s := h.attempt.Session()
	if s == nil {
		result.AddError(fmt.Sprintf("%s: no session to call %s on", prefix, call.Op))
		return
	}

	var out string
	switch call.Op {
	case "Initialize":
		out = boolString(s.Initialize())
	case "Terminate":
		out = boolString(s.Terminate())
	case "Commit":
		out = boolString(s.Commit())
	case "GetValue":
		out = s.GetValue(call.Element)
	case "SetValue":
		out = boolString(s.SetValue(call.Element, call.Value))
	case "GetLastError":
		out = s.GetLastError()
	case "GetErrorString":
		out = s.GetErrorString(call.Value)
	case "GetDiagnostic":
		out = s.GetDiagnostic(call.Value)
	}

	ev := TraceEvent{
		Seq:     h.clock.Next(),
		Type:    "api",
		Op:      call.Op,
		Element: call.Element,
		Value:   call.Value,
		Result:  out,
	}
	code := s.GetLastError()
	if code != "0" {
		ev.Error = code
	}
	result.Trace = append(result.Trace, ev)

	if call.Want != "" && out != call.Want {
		result.AddError(fmt.Sprintf("%s: %s returned %q, want %q", prefix, call.Op, out, call.Want))
	}
	if call.WantError != "" && code != call.WantError {
		result.AddError(fmt.Sprintf("%s: %s left error %s, want %s", prefix, call.Op, code, call.WantError))
	}
}

// checkNavExpect validates a navigation or resolve outcome against its
// expect clause. handled is non-nil only for resolve steps.
func checkNavExpect(prefix string, exp *NavExpect, res sequencing.Result, handled *bool, result *Result) {
	if exp == nil {
		return
	}
	if exp.Handled != nil {
		if handled == nil {
			result.AddError(fmt.Sprintf("%s: handled is only checkable on resolve steps", prefix))
		} else if *handled != *exp.Handled {
			result.AddError(fmt.Sprintf("%s: handled = %t, want %t", prefix, *handled, *exp.Handled))
		}
	}
	if exp.Success != nil && res.Success != *exp.Success {
		result.AddError(fmt.Sprintf("%s: success = %t, want %t (reason %q)",
			prefix, res.Success, *exp.Success, res.Reason))
	}
	if exp.Reason != "" && res.Reason != exp.Reason {
		result.AddError(fmt.Sprintf("%s: reason = %q, want %q", prefix, res.Reason, exp.Reason))
	}
	if exp.Activity != "" {
		actual := ""
		if res.Delivery != nil {
			actual = res.Delivery.ActivityID
		}
		if actual != exp.Activity {
			result.AddError(fmt.Sprintf("%s: delivered %q, want %q", prefix, actual, exp.Activity))
		}
	}
	if exp.End != nil {
		actual := res.Delivery != nil && res.Delivery.End
		if actual != *exp.End {
			result.AddError(fmt.Sprintf("%s: end = %t, want %t", prefix, actual, *exp.End))
		}
	}
}

// parseRequest maps a scenario request string to an engine request.
// The string is pre-validated by validateScenario.
func parseRequest(nav, target string) sequencing.Request {
	if nav == "choice" {
		return sequencing.ChoiceRequest(target)
	}
	return sequencing.Request{Type: sequencing.RequestType(nav)}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
