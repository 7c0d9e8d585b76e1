package course

import (
	"fmt"
	"time"

	"github.com/svincent240/scormrt/internal/activity"
)

// CompileError reports a course element the compiler could not convert.
// Schema-valid documents can still fail here (e.g. an unparseable
// duration string).
type CompileError struct {
	Field   string
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Compile converts a loaded course into the activity tree definition and
// the data model seeds for a new attempt. Structural validation (leaf vs
// cluster, duplicate ids, rule admissibility) happens in activity.Build;
// this layer only translates vocabulary.
func Compile(c *Course) (activity.Def, map[string]string, error) {
	def, err := compileNode(&c.Organization, "organization")
	if err != nil {
		return activity.Def{}, nil, err
	}

	seeds := make(map[string]string, len(c.Seeds))
	for path, value := range c.Seeds {
		seeds[path] = value
	}
	return def, seeds, nil
}

func compileNode(n *Node, field string) (activity.Def, error) {
	def := activity.Def{
		ID:     n.ID,
		Title:  n.Title,
		Launch: n.Launch,
	}

	if n.ControlModes != nil {
		modes := activity.DefaultControlModes()
		applyBool(n.ControlModes.Choice, &modes.Choice)
		applyBool(n.ControlModes.ChoiceExit, &modes.ChoiceExit)
		applyBool(n.ControlModes.Flow, &modes.Flow)
		applyBool(n.ControlModes.ForwardOnly, &modes.ForwardOnly)
		def.Modes = &modes
	}

	if n.RollupControls != nil {
		rc := activity.DefaultRollupControls()
		applyBool(n.RollupControls.TrackedForSatisfied, &rc.TrackedForSatisfied)
		applyBool(n.RollupControls.TrackedForCompletion, &rc.TrackedForCompletion)
		if n.RollupControls.MeasureWeight != nil {
			rc.MeasureWeight = *n.RollupControls.MeasureWeight
		}
		def.Rollup = &rc
	}

	if n.Limits != nil {
		def.Limits.AttemptLimit = n.Limits.AttemptLimit
		if n.Limits.AttemptDurationLimit != "" {
			d, err := time.ParseDuration(n.Limits.AttemptDurationLimit)
			if err != nil {
				return activity.Def{}, &CompileError{
					Field:   field + ".limits.attemptDurationLimit",
					Message: err.Error(),
				}
			}
			def.Limits.AttemptDurationLimit = d
		}
	}

	def.PreRules = compileRules(n.PreConditionRules)
	def.ExitRules = compileRules(n.ExitConditionRules)
	def.PostRules = compileRules(n.PostConditionRules)
	def.RollupRules = compileRollupRules(n.RollupRules)

	for i := range n.Children {
		child, err := compileNode(&n.Children[i],
			fmt.Sprintf("%s.children[%d]", field, i))
		if err != nil {
			return activity.Def{}, err
		}
		def.Children = append(def.Children, child)
	}
	return def, nil
}

func compileRules(rules []Rule) []activity.SequencingRule {
	out := make([]activity.SequencingRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, activity.SequencingRule{
			Action:      activity.RuleAction(r.Action),
			Combination: combination(r.Combination),
			Conditions:  compileConditions(r.Conditions),
		})
	}
	return out
}

func compileRollupRules(rules []RollupRule) []activity.RollupRule {
	out := make([]activity.RollupRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, activity.RollupRule{
			Action:         activity.RollupAction(r.Action),
			ChildSet:       activity.ChildSet(r.ChildSet),
			MinimumCount:   r.MinimumCount,
			MinimumPercent: r.MinimumPercent,
			Combination:    combination(r.Combination),
			Conditions:     compileConditions(r.Conditions),
		})
	}
	return out
}

func compileConditions(conds []Condition) []activity.RuleCondition {
	out := make([]activity.RuleCondition, 0, len(conds))
	for _, c := range conds {
		out = append(out, activity.RuleCondition{
			Condition: activity.ConditionType(c.Condition),
			Not:       c.Not,
		})
	}
	return out
}

func combination(s string) activity.Combination {
	if s == string(activity.CombinationAny) {
		return activity.CombinationAny
	}
	return activity.CombinationAll
}

func applyBool(src *bool, dst *bool) {
	if src != nil {
		*dst = *src
	}
}
