package sequencing

import (
	"github.com/svincent240/scormrt/internal/activity"
)

// conditionMet evaluates one condition fact against an activity's tracking
// state. Unknown status conditions evaluate against the "known" flag first:
// "satisfied" on an activity with no recorded objective status is false, and
// so is its negation's base fact before Not is applied.
func conditionMet(a *activity.Activity, c activity.RuleCondition) bool {
	t := &a.Tracking
	var met bool
	switch c.Condition {
	case activity.CondSatisfied:
		met = t.SatisfiedKnown && t.Satisfied
	case activity.CondObjectiveStatusKnown:
		met = t.SatisfiedKnown
	case activity.CondObjectiveMeasureKnown:
		met = t.MeasureKnown
	case activity.CondCompleted:
		met = t.CompletionKnown && t.Completed
	case activity.CondProgressKnown:
		met = t.CompletionKnown
	case activity.CondAttempted:
		met = t.Attempted
	case activity.CondAttemptLimitExceeded:
		met = a.Limits.AttemptLimit > 0 && t.AttemptCount >= a.Limits.AttemptLimit
	case activity.CondAlways:
		met = true
	}
	if c.Not {
		return !met
	}
	return met
}

// ruleApplies reports whether a rule's condition set is satisfied on the
// activity. An empty condition set never fires.
func ruleApplies(a *activity.Activity, r activity.SequencingRule) bool {
	if len(r.Conditions) == 0 {
		return false
	}
	return combine(a, r.Conditions, r.Combination)
}

func combine(a *activity.Activity, conds []activity.RuleCondition, comb activity.Combination) bool {
	switch comb {
	case activity.CombinationAny:
		for _, c := range conds {
			if conditionMet(a, c) {
				return true
			}
		}
		return false
	default: // all
		for _, c := range conds {
			if !conditionMet(a, c) {
				return false
			}
		}
		return true
	}
}

// firstAction returns the action of the first rule in declaration order
// whose conditions hold, restricted to the given admissible actions.
// ok is false when no rule fires.
func firstAction(a *activity.Activity, rules []activity.SequencingRule, admit map[activity.RuleAction]bool) (activity.RuleAction, bool) {
	for _, r := range rules {
		if admit != nil && !admit[r.Action] {
			continue
		}
		if ruleApplies(a, r) {
			return r.Action, true
		}
	}
	return "", false
}

// preActionFiring evaluates an activity's precondition rules and returns
// whether any rule with the given action fires.
func preActionFiring(a *activity.Activity, action activity.RuleAction) bool {
	for _, r := range a.PreRules {
		if r.Action != action {
			continue
		}
		if ruleApplies(a, r) {
			return true
		}
	}
	return false
}

// limitExceeded reports whether an activity's limit conditions forbid a
// new attempt on it. Attempt count limits compare the count of attempts
// already begun; duration limits compare accumulated attempt experience.
func limitExceeded(a *activity.Activity) bool {
	if a.Limits.AttemptLimit > 0 && a.Tracking.AttemptCount >= a.Limits.AttemptLimit {
		return true
	}
	if a.Limits.AttemptDurationLimit > 0 && a.Tracking.AttemptDuration >= a.Limits.AttemptDurationLimit {
		return true
	}
	return false
}

// disabledFor reports whether an activity is blocked for delivery or
// traversal: a disabled precondition rule fired, or limits are exceeded.
// A suspended activity being resumed bypasses limit checks; callers
// handle that case before asking.
func disabledFor(a *activity.Activity) bool {
	return preActionFiring(a, activity.ActionDisabled) || limitExceeded(a)
}

// skippedFor reports whether flow traversal passes over the activity
// without delivering it.
func skippedFor(a *activity.Activity) bool {
	return preActionFiring(a, activity.ActionSkip)
}

// hiddenFromChoice reports whether choice navigation may not target the
// activity.
func hiddenFromChoice(a *activity.Activity) bool {
	return preActionFiring(a, activity.ActionHiddenFromChoice)
}

// stopsForward reports whether forward flow traversal halts before the
// activity.
func stopsForward(a *activity.Activity) bool {
	return preActionFiring(a, activity.ActionStopForwardTraversal)
}
