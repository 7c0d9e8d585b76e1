package sequencing

import (
	"fmt"
	"strings"
)

// RequestType enumerates the navigation request variants a host can issue.
type RequestType string

const (
	Start      RequestType = "start"
	ResumeAll  RequestType = "resumeAll"
	Continue   RequestType = "continue"
	Previous   RequestType = "previous"
	Choice     RequestType = "choice"
	Exit       RequestType = "exit"
	ExitAll    RequestType = "exitAll"
	Retry      RequestType = "retry"
	Abandon    RequestType = "abandon"
	AbandonAll RequestType = "abandonAll"
	SuspendAll RequestType = "suspendAll"
)

// Request is a host-issued navigation intent. Target is only meaningful
// for Choice.
type Request struct {
	Type   RequestType
	Target string
}

// String renders the request for logs and traces.
func (r Request) String() string {
	if r.Type == Choice {
		return fmt.Sprintf("choice(%s)", r.Target)
	}
	return string(r.Type)
}

// ChoiceRequest builds a choice request for a target activity.
func ChoiceRequest(target string) Request {
	return Request{Type: Choice, Target: target}
}

// ParseNavRequest converts an adl.nav.request value content has set into a
// Request. The "_none_" token and the empty string yield ok=false.
//
// The "{target=<id>}choice" and "{target=<id>}jump" forms both map to a
// choice request; jump differs only in skipping availability gating, which
// the navigation process applies per request type.
func ParseNavRequest(value string) (Request, bool) {
	switch value {
	case "", "_none_":
		return Request{}, false
	case "continue":
		return Request{Type: Continue}, true
	case "previous":
		return Request{Type: Previous}, true
	case "exit":
		return Request{Type: Exit}, true
	case "exitAll":
		return Request{Type: ExitAll}, true
	case "abandon":
		return Request{Type: Abandon}, true
	case "abandonAll":
		return Request{Type: AbandonAll}, true
	case "suspendAll":
		return Request{Type: SuspendAll}, true
	}
	if strings.HasPrefix(value, "{target=") {
		rest := value[len("{target="):]
		if i := strings.Index(rest, "}"); i > 0 {
			return ChoiceRequest(rest[:i]), true
		}
	}
	return Request{}, false
}
