package course

// Course is one decoded course structure file.
type Course struct {
	ID           string            `yaml:"id" json:"id"`
	Title        string            `yaml:"title,omitempty" json:"title,omitempty"`
	Seeds        map[string]string `yaml:"seeds,omitempty" json:"seeds,omitempty"`
	Organization Node              `yaml:"organization" json:"organization"`
}

// Node is one activity in the course structure: a cluster when it has
// children, a SCO when it carries a launch reference.
type Node struct {
	ID     string `yaml:"id" json:"id"`
	Title  string `yaml:"title,omitempty" json:"title,omitempty"`
	Launch string `yaml:"launch,omitempty" json:"launch,omitempty"`

	ControlModes   *ControlModes   `yaml:"controlModes,omitempty" json:"controlModes,omitempty"`
	RollupControls *RollupControls `yaml:"rollupControls,omitempty" json:"rollupControls,omitempty"`
	Limits         *Limits         `yaml:"limits,omitempty" json:"limits,omitempty"`

	PreConditionRules  []Rule       `yaml:"preConditionRules,omitempty" json:"preConditionRules,omitempty"`
	ExitConditionRules []Rule       `yaml:"exitConditionRules,omitempty" json:"exitConditionRules,omitempty"`
	PostConditionRules []Rule       `yaml:"postConditionRules,omitempty" json:"postConditionRules,omitempty"`
	RollupRules        []RollupRule `yaml:"rollupRules,omitempty" json:"rollupRules,omitempty"`

	Children []Node `yaml:"children,omitempty" json:"children,omitempty"`
}

// ControlModes overrides individual navigation control modes. Omitted
// fields keep their specification defaults.
type ControlModes struct {
	Choice      *bool `yaml:"choice,omitempty" json:"choice,omitempty"`
	ChoiceExit  *bool `yaml:"choiceExit,omitempty" json:"choiceExit,omitempty"`
	Flow        *bool `yaml:"flow,omitempty" json:"flow,omitempty"`
	ForwardOnly *bool `yaml:"forwardOnly,omitempty" json:"forwardOnly,omitempty"`
}

// RollupControls overrides rollup participation. Omitted fields keep
// their specification defaults.
type RollupControls struct {
	TrackedForSatisfied  *bool    `yaml:"trackedForSatisfied,omitempty" json:"trackedForSatisfied,omitempty"`
	TrackedForCompletion *bool    `yaml:"trackedForCompletion,omitempty" json:"trackedForCompletion,omitempty"`
	MeasureWeight        *float64 `yaml:"measureWeight,omitempty" json:"measureWeight,omitempty"`
}

// Limits bounds attempts. AttemptDurationLimit uses Go duration syntax.
type Limits struct {
	AttemptLimit         int    `yaml:"attemptLimit,omitempty" json:"attemptLimit,omitempty"`
	AttemptDurationLimit string `yaml:"attemptDurationLimit,omitempty" json:"attemptDurationLimit,omitempty"`
}

// Rule is one sequencing rule: conditions mapped to an action.
type Rule struct {
	Action      string      `yaml:"action" json:"action"`
	Combination string      `yaml:"combination,omitempty" json:"combination,omitempty"`
	Conditions  []Condition `yaml:"conditions" json:"conditions"`
}

// RollupRule aggregates child conditions into a parent status.
type RollupRule struct {
	Action         string      `yaml:"action" json:"action"`
	ChildSet       string      `yaml:"childSet" json:"childSet"`
	MinimumCount   int         `yaml:"minimumCount,omitempty" json:"minimumCount,omitempty"`
	MinimumPercent float64     `yaml:"minimumPercent,omitempty" json:"minimumPercent,omitempty"`
	Combination    string      `yaml:"combination,omitempty" json:"combination,omitempty"`
	Conditions     []Condition `yaml:"conditions" json:"conditions"`
}

// Condition is one possibly-negated condition fact.
type Condition struct {
	Condition string `yaml:"condition" json:"condition"`
	Not       bool   `yaml:"not,omitempty" json:"not,omitempty"`
}
