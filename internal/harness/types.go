package harness

// TraceEvent is one entry in a scenario's execution trace.
//
// Type is "nav" for a host navigation request, "api" for an RTE call
// against the current session, and "resolve" for post-termination
// navigation resolution. Fields not meaningful for the event type are
// omitted from serialization.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Type string `json:"type"`

	// Resolve events.
	Handled *bool `json:"handled,omitempty"`

	// Navigation events.
	Request  string `json:"request,omitempty"`
	Target   string `json:"target,omitempty"`
	Success  *bool  `json:"success,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Activity string `json:"activity,omitempty"`
	End      bool   `json:"end,omitempty"`

	// API events.
	Op      string `json:"op,omitempty"`
	Element string `json:"element,omitempty"`
	Value   string `json:"value,omitempty"`
	Result  string `json:"result,omitempty"`

	// Error carries the session's error register when it is non-zero
	// after an API call.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every step outcome in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors lists expect and assertion failures. Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates an empty passing result.
func NewResult() *Result {
	return &Result{
		Pass:  true,
		Trace: []TraceEvent{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}
