package sequencing

import (
	"github.com/svincent240/scormrt/internal/activity"
)

// rollupAll recomputes every cluster's rolled-up status bottom-up.
//
// Reverse document order visits all children before their parent, so one
// linear pass suffices; no fixpoint iteration is needed. Leaf tracking is
// never touched here - it is owned by the RTE recording path.
func rollupAll(t *activity.Tree) {
	order := t.DocumentOrder()
	for i := len(order) - 1; i >= 0; i-- {
		n := t.Node(order[i])
		if n.IsLeaf() {
			continue
		}
		rollupMeasure(t, n)
		rollupObjective(t, n)
		rollupCompletion(t, n)
	}
}

// rollupMeasure sets the cluster's measure to the weighted average of its
// tracked children's measures. The result is known only when every
// tracked child with a positive weight has a known measure.
func rollupMeasure(t *activity.Tree, n *activity.Activity) {
	var sum, weight float64
	known := true
	counted := 0
	for _, ci := range n.Children {
		c := t.Node(ci)
		if !c.Rollup.TrackedForSatisfied || c.Rollup.MeasureWeight <= 0 {
			continue
		}
		counted++
		if !c.Tracking.MeasureKnown {
			known = false
			continue
		}
		sum += c.Tracking.Measure * c.Rollup.MeasureWeight
		weight += c.Rollup.MeasureWeight
	}
	if counted == 0 || !known {
		n.Tracking.MeasureKnown = false
		n.Tracking.Measure = 0
		return
	}
	n.Tracking.MeasureKnown = true
	n.Tracking.Measure = sum / weight
}

// rollupObjective derives the cluster's satisfaction. Explicit rules with
// satisfied/notSatisfied actions take precedence over the default
// all-children behavior; notSatisfied rules evaluate first so a firing
// satisfied rule wins.
func rollupObjective(t *activity.Tree, n *activity.Activity) {
	if applyStatusRules(t, n,
		activity.RollupNotSatisfied, activity.RollupSatisfied,
		trackedForSatisfied,
		func(known, val bool) { n.Tracking.SatisfiedKnown = known; n.Tracking.Satisfied = val }) {
		return
	}

	children := trackedChildren(t, n, trackedForSatisfied)
	known, val := defaultStatus(children, func(c *activity.Activity) (bool, bool) {
		return c.Tracking.SatisfiedKnown, c.Tracking.Satisfied
	})
	n.Tracking.SatisfiedKnown = known
	n.Tracking.Satisfied = val
}

// rollupCompletion derives the cluster's completion the same way, over
// children tracked for completion.
func rollupCompletion(t *activity.Tree, n *activity.Activity) {
	if applyStatusRules(t, n,
		activity.RollupIncomplete, activity.RollupCompleted,
		trackedForCompletion,
		func(known, val bool) { n.Tracking.CompletionKnown = known; n.Tracking.Completed = val }) {
		return
	}

	children := trackedChildren(t, n, trackedForCompletion)
	known, val := defaultStatus(children, func(c *activity.Activity) (bool, bool) {
		return c.Tracking.CompletionKnown, c.Tracking.Completed
	})
	n.Tracking.CompletionKnown = known
	n.Tracking.Completed = val
}

func trackedForSatisfied(c *activity.Activity) bool  { return c.Rollup.TrackedForSatisfied }
func trackedForCompletion(c *activity.Activity) bool { return c.Rollup.TrackedForCompletion }

func trackedChildren(t *activity.Tree, n *activity.Activity, tracked func(*activity.Activity) bool) []*activity.Activity {
	var out []*activity.Activity
	for _, ci := range n.Children {
		if c := t.Node(ci); tracked(c) {
			out = append(out, c)
		}
	}
	return out
}

// defaultStatus implements the default all-children rollup: status becomes
// positive when every tracked child has a known positive status, negative
// as soon as any tracked child has a known negative status, unknown
// otherwise. Once established from full knowledge the result is stable
// under further child transitions to positive, so rollup never regresses a
// cluster from known to unknown within an attempt.
func defaultStatus(children []*activity.Activity, get func(*activity.Activity) (known, val bool)) (known, val bool) {
	if len(children) == 0 {
		return false, false
	}
	allKnownPositive := true
	for _, c := range children {
		k, v := get(c)
		if k && !v {
			return true, false
		}
		if !k || !v {
			allKnownPositive = false
		}
	}
	if allKnownPositive {
		return true, true
	}
	return false, false
}

// applyStatusRules evaluates the cluster's explicit rollup rules for one
// status dimension. Returns true when at least one rule of either action
// exists, in which case the rules fully determine the status (unfired
// rules leave it unknown).
func applyStatusRules(t *activity.Tree, n *activity.Activity,
	negAction, posAction activity.RollupAction,
	tracked func(*activity.Activity) bool,
	set func(known, val bool)) bool {

	var hasRules bool
	for _, r := range n.RollupRules {
		if r.Action == negAction || r.Action == posAction {
			hasRules = true
			break
		}
	}
	if !hasRules {
		return false
	}

	known, val := false, false
	for _, action := range []activity.RollupAction{negAction, posAction} {
		for _, r := range n.RollupRules {
			if r.Action != action {
				continue
			}
			if rollupRuleApplies(t, n, r, tracked) {
				known = true
				val = action == posAction
			}
		}
	}
	set(known, val)
	return true
}

// rollupRuleApplies checks a rule's child-set quantifier against the
// cluster's tracked children.
func rollupRuleApplies(t *activity.Tree, n *activity.Activity, r activity.RollupRule, tracked func(*activity.Activity) bool) bool {
	children := trackedChildren(t, n, tracked)
	if len(children) == 0 {
		return false
	}
	met := 0
	for _, c := range children {
		if combine(c, r.Conditions, r.Combination) {
			met++
		}
	}
	switch r.ChildSet {
	case activity.ChildSetAll:
		return met == len(children)
	case activity.ChildSetAny:
		return met > 0
	case activity.ChildSetNone:
		return met == 0
	case activity.ChildSetAtLeastCount:
		return met >= r.MinimumCount
	case activity.ChildSetAtLeastPercent:
		return float64(met)/float64(len(children)) >= r.MinimumPercent
	}
	return false
}
