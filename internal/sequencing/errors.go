package sequencing

import (
	"errors"
	"fmt"
)

// NavErrorCode categorizes navigation failures.
type NavErrorCode string

const (
	// CodeRequestNotValid indicates the request form is invalid for the
	// attempt's current state (e.g. Start mid-attempt, Continue with no
	// current activity).
	CodeRequestNotValid NavErrorCode = "REQUEST_NOT_VALID"

	// CodeFlowNotPermitted indicates flow navigation through a cluster
	// whose control modes forbid it.
	CodeFlowNotPermitted NavErrorCode = "FLOW_NOT_PERMITTED"

	// CodeChoiceNotPermitted indicates a choice target whose permission
	// chain from the common ancestor denies choice or choice-exit.
	CodeChoiceNotPermitted NavErrorCode = "CHOICE_NOT_PERMITTED"

	// CodeHiddenOrDisabled indicates a choice target hidden from choice or
	// disabled by a precondition rule or limit condition.
	CodeHiddenOrDisabled NavErrorCode = "HIDDEN_OR_DISABLED"

	// CodeUnknownTarget indicates a choice target absent from the tree.
	CodeUnknownTarget NavErrorCode = "UNKNOWN_TARGET"

	// CodeNothingToDeliver indicates sequencing completed without finding
	// a deliverable activity.
	CodeNothingToDeliver NavErrorCode = "NOTHING_TO_DELIVER"

	// CodeActivityActive indicates the current activity's session has not
	// terminated yet.
	CodeActivityActive NavErrorCode = "ACTIVITY_STILL_ACTIVE"

	// CodeNoSuspension indicates ResumeAll with no suspended activity.
	CodeNoSuspension NavErrorCode = "NO_SUSPENDED_ACTIVITY"
)

// reasons maps codes to the stable reason strings surfaced in
// Result.Reason for the host UI.
var reasons = map[NavErrorCode]string{
	CodeRequestNotValid:    "requestNotValid",
	CodeFlowNotPermitted:   "flowNotPermitted",
	CodeChoiceNotPermitted: "choiceNotPermitted",
	CodeHiddenOrDisabled:   "hiddenOrDisabled",
	CodeUnknownTarget:      "unknownTarget",
	CodeNothingToDeliver:   "nothingToDeliver",
	CodeActivityActive:     "activityStillActive",
	CodeNoSuspension:       "noSuspendedActivity",
}

// NavError reports which validity check a navigation request failed.
// It never escapes ProcessNavigationRequest as a Go error; the handler
// folds it into the Result.
type NavError struct {
	Code   NavErrorCode
	Target string
	Detail string
}

// Error implements the error interface.
func (e *NavError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: target %q: %s", e.Code, e.Target, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// Reason returns the stable reason string for the host UI.
func (e *NavError) Reason() string {
	return reasons[e.Code]
}

// IsNavCode reports whether err is a *NavError with the given code.
func IsNavCode(err error, code NavErrorCode) bool {
	var ne *NavError
	if errors.As(err, &ne) {
		return ne.Code == code
	}
	return false
}

func navErr(code NavErrorCode, target, format string, args ...any) *NavError {
	return &NavError{Code: code, Target: target, Detail: fmt.Sprintf(format, args...)}
}

// InternalError marks a broken engine invariant. The owning attempt treats
// it as fatal: the attempt is marked failed, never silently ignored.
type InternalError struct {
	Message string
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return "internal: " + e.Message
}
