package activity

import "time"

// ConditionType identifies one sequencing/rollup rule condition fact,
// evaluated against an activity's tracking state.
type ConditionType string

const (
	CondSatisfied             ConditionType = "satisfied"
	CondObjectiveStatusKnown  ConditionType = "objectiveStatusKnown"
	CondObjectiveMeasureKnown ConditionType = "objectiveMeasureKnown"
	CondCompleted             ConditionType = "completed"
	CondProgressKnown         ConditionType = "activityProgressKnown"
	CondAttempted             ConditionType = "attempted"
	CondAttemptLimitExceeded  ConditionType = "attemptLimitExceeded"
	CondAlways                ConditionType = "always"
)

// Combination selects how a rule's condition set aggregates.
type Combination string

const (
	CombinationAll Combination = "all"
	CombinationAny Combination = "any"
)

// RuleCondition is one possibly-negated condition inside a rule.
type RuleCondition struct {
	Condition ConditionType
	Not       bool
}

// RuleAction is the action a satisfied sequencing rule yields.
// Precondition, exit-condition and post-condition rule sets each admit a
// distinct subset, enforced at build time.
type RuleAction string

const (
	// Precondition actions.
	ActionSkip                 RuleAction = "skip"
	ActionDisabled             RuleAction = "disabled"
	ActionHiddenFromChoice     RuleAction = "hiddenFromChoice"
	ActionStopForwardTraversal RuleAction = "stopForwardTraversal"

	// Exit-condition actions.
	ActionExit       RuleAction = "exit"
	ActionExitParent RuleAction = "exitParent"
	ActionExitAll    RuleAction = "exitAll"

	// Post-condition actions.
	ActionRetry    RuleAction = "retry"
	ActionRetryAll RuleAction = "retryAll"
	ActionContinue RuleAction = "continue"
	ActionPrevious RuleAction = "previous"
)

// preActions, exitActions and postActions define which actions each rule
// set admits.
var (
	preActions = map[RuleAction]bool{
		ActionSkip: true, ActionDisabled: true,
		ActionHiddenFromChoice: true, ActionStopForwardTraversal: true,
	}
	exitActions = map[RuleAction]bool{
		ActionExit: true, ActionExitParent: true, ActionExitAll: true,
	}
	postActions = map[RuleAction]bool{
		ActionRetry: true, ActionRetryAll: true, ActionContinue: true,
		ActionPrevious: true, ActionExitParent: true, ActionExitAll: true,
	}
)

// SequencingRule is a condition set mapped to an action.
// An empty condition set never fires.
type SequencingRule struct {
	Conditions  []RuleCondition
	Combination Combination
	Action      RuleAction
}

// ChildSet selects which children a rollup rule quantifies over.
type ChildSet string

const (
	ChildSetAll            ChildSet = "all"
	ChildSetAny            ChildSet = "any"
	ChildSetNone           ChildSet = "none"
	ChildSetAtLeastCount   ChildSet = "atLeastCount"
	ChildSetAtLeastPercent ChildSet = "atLeastPercent"
)

// RollupAction is the status a satisfied rollup rule sets on the parent.
type RollupAction string

const (
	RollupSatisfied    RollupAction = "satisfied"
	RollupNotSatisfied RollupAction = "notSatisfied"
	RollupCompleted    RollupAction = "completed"
	RollupIncomplete   RollupAction = "incomplete"
)

// RollupRule aggregates child conditions into a parent status.
type RollupRule struct {
	ChildSet       ChildSet
	MinimumCount   int
	MinimumPercent float64
	Conditions     []RuleCondition
	Combination    Combination
	Action         RollupAction
}

// ControlModes govern which navigation forms an activity's children admit.
// Zero value is NOT the default; see DefaultControlModes.
type ControlModes struct {
	Choice      bool
	ChoiceExit  bool
	Flow        bool
	ForwardOnly bool
}

// DefaultControlModes returns the specification defaults: choice permitted,
// choiceExit permitted, flow and forwardOnly off.
func DefaultControlModes() ControlModes {
	return ControlModes{Choice: true, ChoiceExit: true}
}

// LimitConditions bound attempts on an activity. Zero values mean
// unbounded.
type LimitConditions struct {
	AttemptLimit         int
	AttemptDurationLimit time.Duration
}

// RollupControls govern how an activity participates in its parent's
// rollup. Zero value is NOT the default; see DefaultRollupControls.
type RollupControls struct {
	// TrackedForSatisfied includes this child in objective rollup.
	TrackedForSatisfied bool

	// TrackedForCompletion includes this child in progress rollup.
	TrackedForCompletion bool

	// MeasureWeight scales this child's contribution to measure rollup.
	MeasureWeight float64
}

// DefaultRollupControls returns the specification defaults: tracked for
// both rollups with weight 1.
func DefaultRollupControls() RollupControls {
	return RollupControls{
		TrackedForSatisfied:  true,
		TrackedForCompletion: true,
		MeasureWeight:        1.0,
	}
}

// Tracking is one activity's mutable tracking state within an attempt on
// the tree.
//
// Rollup-derived fields on non-leaf activities are only written by the
// rollup pass.
type Tracking struct {
	AttemptCount    int
	AttemptDuration time.Duration
	Attempted       bool
	Active          bool
	Suspended       bool

	CompletionKnown bool
	Completed       bool

	ProgressMeasureKnown bool
	ProgressMeasure      float64

	SatisfiedKnown bool
	Satisfied      bool

	MeasureKnown bool
	Measure      float64
}

// Reset clears per-attempt tracking (used by retry).
func (t *Tracking) Reset() {
	*t = Tracking{}
}
