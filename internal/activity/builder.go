package activity

import (
	"fmt"
)

// ConfigError reports a malformed tree definition. Configuration errors
// are fatal to attempt construction; they are never runtime faults.
type ConfigError struct {
	ActivityID string
	Field      string
	Message    string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.ActivityID != "" {
		return fmt.Sprintf("activity %q: %s: %s", e.ActivityID, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func configErr(activityID, field, format string, args ...any) *ConfigError {
	return &ConfigError{
		ActivityID: activityID,
		Field:      field,
		Message:    fmt.Sprintf(format, args...),
	}
}

// Def is the construction payload for one activity, produced by the
// external manifest collaborator (see the course package).
//
// Optional sub-structures are pointers so omission falls back to the
// specification defaults rather than zero values.
type Def struct {
	ID       string
	Title    string
	Launch   string
	Children []Def

	Modes  *ControlModes
	Rollup *RollupControls
	Limits LimitConditions

	PreRules    []SequencingRule
	ExitRules   []SequencingRule
	PostRules   []SequencingRule
	RollupRules []RollupRule
}

// Build validates a definition and constructs the arena in preorder.
//
// Validation covers: unique non-empty ids, launchable leaves, cluster/launch
// consistency, rule actions admissible for their rule set, rollup rule
// quantifier parameters, and limit condition signs. The first violation
// aborts the build with a *ConfigError.
func Build(root Def) (*Tree, error) {
	t := &Tree{
		byID:      make(map[string]int),
		Current:   -1,
		Suspended: -1,
	}

	// Iterative preorder construction with an explicit stack of
	// (definition, parent index) pairs.
	type frame struct {
		def    *Def
		parent int
	}
	stack := []frame{{def: &root, parent: -1}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		a, err := buildNode(f.def, f.parent)
		if err != nil {
			return nil, err
		}
		a.Index = len(t.nodes)
		if _, dup := t.byID[a.ID]; dup {
			return nil, configErr(a.ID, "id", "duplicate activity id")
		}
		t.nodes = append(t.nodes, a)
		t.byID[a.ID] = a.Index

		if f.parent >= 0 {
			t.nodes[f.parent].Children = append(t.nodes[f.parent].Children, a.Index)
		}

		// Reversed push keeps preorder: first child built next.
		for c := len(f.def.Children) - 1; c >= 0; c-- {
			stack = append(stack, frame{def: &f.def.Children[c], parent: a.Index})
		}
	}

	if err := validateTree(t); err != nil {
		return nil, err
	}
	return t, nil
}

// buildNode validates and materializes a single definition.
func buildNode(def *Def, parent int) (*Activity, error) {
	if def.ID == "" {
		return nil, configErr("", "id", "activity id is required")
	}
	if len(def.Children) == 0 && def.Launch == "" {
		return nil, configErr(def.ID, "launch", "leaf activity requires a launch reference")
	}
	if len(def.Children) > 0 && def.Launch != "" {
		return nil, configErr(def.ID, "launch", "cluster activity cannot carry a launch reference")
	}
	if def.Limits.AttemptLimit < 0 {
		return nil, configErr(def.ID, "limitConditions.attemptLimit", "must be non-negative")
	}
	if def.Limits.AttemptDurationLimit < 0 {
		return nil, configErr(def.ID, "limitConditions.attemptDurationLimit", "must be non-negative")
	}

	modes := DefaultControlModes()
	if def.Modes != nil {
		modes = *def.Modes
	}
	rollup := DefaultRollupControls()
	if def.Rollup != nil {
		rollup = *def.Rollup
	}

	for _, chk := range []struct {
		field   string
		rules   []SequencingRule
		allowed map[RuleAction]bool
	}{
		{"preConditionRules", def.PreRules, preActions},
		{"exitConditionRules", def.ExitRules, exitActions},
		{"postConditionRules", def.PostRules, postActions},
	} {
		for i, r := range chk.rules {
			if err := validateRule(def.ID, fmt.Sprintf("%s[%d]", chk.field, i), r, chk.allowed); err != nil {
				return nil, err
			}
		}
	}

	for i, r := range def.RollupRules {
		if err := validateRollupRule(def.ID, i, r); err != nil {
			return nil, err
		}
	}

	return &Activity{
		ID:          def.ID,
		Title:       def.Title,
		Launch:      def.Launch,
		Parent:      parent,
		Modes:       modes,
		Rollup:      rollup,
		Limits:      def.Limits,
		PreRules:    def.PreRules,
		ExitRules:   def.ExitRules,
		PostRules:   def.PostRules,
		RollupRules: def.RollupRules,
	}, nil
}

var knownConditions = map[ConditionType]bool{
	CondSatisfied: true, CondObjectiveStatusKnown: true,
	CondObjectiveMeasureKnown: true, CondCompleted: true,
	CondProgressKnown: true, CondAttempted: true,
	CondAttemptLimitExceeded: true, CondAlways: true,
}

func validateRule(activityID, field string, r SequencingRule, allowed map[RuleAction]bool) error {
	if !allowed[r.Action] {
		return configErr(activityID, field, "action %q not admissible in this rule set", r.Action)
	}
	if len(r.Conditions) == 0 {
		return configErr(activityID, field, "rule requires at least one condition")
	}
	if r.Combination != "" && r.Combination != CombinationAll && r.Combination != CombinationAny {
		return configErr(activityID, field, "unknown combination %q", r.Combination)
	}
	for _, c := range r.Conditions {
		if !knownConditions[c.Condition] {
			return configErr(activityID, field, "unknown condition %q", c.Condition)
		}
	}
	return nil
}

func validateRollupRule(activityID string, i int, r RollupRule) error {
	field := fmt.Sprintf("rollupRules[%d]", i)
	switch r.Action {
	case RollupSatisfied, RollupNotSatisfied, RollupCompleted, RollupIncomplete:
	default:
		return configErr(activityID, field, "unknown rollup action %q", r.Action)
	}
	switch r.ChildSet {
	case ChildSetAll, ChildSetAny, ChildSetNone, "":
	case ChildSetAtLeastCount:
		if r.MinimumCount <= 0 {
			return configErr(activityID, field, "atLeastCount requires a positive minimumCount")
		}
	case ChildSetAtLeastPercent:
		if r.MinimumPercent < 0 || r.MinimumPercent > 1 {
			return configErr(activityID, field, "minimumPercent must lie in [0, 1]")
		}
	default:
		return configErr(activityID, field, "unknown child set %q", r.ChildSet)
	}
	if len(r.Conditions) == 0 {
		return configErr(activityID, field, "rollup rule requires at least one condition")
	}
	for _, c := range r.Conditions {
		if !knownConditions[c.Condition] {
			return configErr(activityID, field, "unknown condition %q", c.Condition)
		}
	}
	if r.Combination != "" && r.Combination != CombinationAll && r.Combination != CombinationAny {
		return configErr(activityID, field, "unknown combination %q", r.Combination)
	}
	return nil
}

// validateTree checks whole-tree invariants after construction.
func validateTree(t *Tree) error {
	if len(t.nodes) == 0 {
		return configErr("", "tree", "definition produced no activities")
	}
	if t.Root().Parent != -1 {
		return configErr(t.Root().ID, "parent", "root must have no parent")
	}
	for _, a := range t.nodes[1:] {
		if a.Parent < 0 || a.Parent >= len(t.nodes) {
			return configErr(a.ID, "parent", "dangling parent link")
		}
	}
	return nil
}
