package sequencing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svincent240/scormrt/internal/activity"
)

// flowDef builds a single cluster with three SCOs under flow control.
func flowDef() activity.Def {
	return activity.Def{
		ID:    "root",
		Modes: &activity.ControlModes{Choice: true, ChoiceExit: true, Flow: true},
		Children: []activity.Def{
			{ID: "sco-1", Launch: "sco1/index.html"},
			{ID: "sco-2", Launch: "sco2/index.html"},
			{ID: "sco-3", Launch: "sco3/index.html"},
		},
	}
}

// branchedDef builds two modules under a choice-only root, flow inside
// each module.
func branchedDef() activity.Def {
	flow := activity.ControlModes{Choice: true, ChoiceExit: true, Flow: true}
	return activity.Def{
		ID: "root",
		Children: []activity.Def{
			{ID: "mod-a", Modes: &flow, Children: []activity.Def{
				{ID: "sco-1", Launch: "sco1/index.html"},
				{ID: "sco-2", Launch: "sco2/index.html"},
			}},
			{ID: "mod-b", Modes: &flow, Children: []activity.Def{
				{ID: "sco-3", Launch: "sco3/index.html"},
			}},
		},
	}
}

func buildEngine(t *testing.T, def activity.Def) *Engine {
	t.Helper()
	tree, err := activity.Build(def)
	require.NoError(t, err)
	return NewEngine(tree, nil)
}

// ============================================================
// Start / Continue / Previous
// ============================================================

func TestEngine_Navigate_StartDeliversFirstLeaf(t *testing.T) {
	e := buildEngine(t, flowDef())

	d, err := e.Navigate(Request{Type: Start})
	require.Nil(t, err)
	assert.Equal(t, "sco-1", d.ActivityID)
	assert.Equal(t, "sco1/index.html", d.Launch)
	assert.False(t, d.End)

	cur := e.Tree().CurrentActivity()
	require.NotNil(t, cur)
	assert.Equal(t, 1, cur.Tracking.AttemptCount)
	assert.True(t, cur.Tracking.Attempted)
	assert.Equal(t, 1, e.Tree().Root().Tracking.AttemptCount)
}

func TestEngine_Navigate_StartTwiceRejected(t *testing.T) {
	e := buildEngine(t, flowDef())

	_, err := e.Navigate(Request{Type: Start})
	require.Nil(t, err)

	_, err = e.Navigate(Request{Type: Start})
	require.NotNil(t, err)
	assert.Equal(t, CodeRequestNotValid, err.Code)
}

func TestEngine_Navigate_StartNeedsFlowIntoRoot(t *testing.T) {
	def := flowDef()
	def.Modes = &activity.ControlModes{Choice: true, ChoiceExit: true}
	e := buildEngine(t, def)

	_, err := e.Navigate(Request{Type: Start})
	require.NotNil(t, err)
	assert.Equal(t, CodeNothingToDeliver, err.Code)
}

func TestEngine_Navigate_ContinueWalksSiblings(t *testing.T) {
	e := buildEngine(t, flowDef())

	d, err := e.Navigate(Request{Type: Start})
	require.Nil(t, err)
	require.Equal(t, "sco-1", d.ActivityID)

	d, err = e.Navigate(Request{Type: Continue})
	require.Nil(t, err)
	assert.Equal(t, "sco-2", d.ActivityID)

	d, err = e.Navigate(Request{Type: Continue})
	require.Nil(t, err)
	assert.Equal(t, "sco-3", d.ActivityID)
}

func TestEngine_Navigate_ContinuePastLastEndsAttempt(t *testing.T) {
	e := buildEngine(t, flowDef())
	e.Tree().Current = 3 // sco-3

	d, err := e.Navigate(Request{Type: Continue})
	require.Nil(t, err)
	assert.True(t, d.End)
	assert.Empty(t, d.ActivityID)
	assert.Nil(t, e.Tree().CurrentActivity())
}

func TestEngine_Navigate_ContinueWithoutFlowRejected(t *testing.T) {
	def := flowDef()
	def.Modes = &activity.ControlModes{Choice: true, ChoiceExit: true}
	e := buildEngine(t, def)
	e.Tree().Current = 1 // sco-1, delivered via choice

	_, err := e.Navigate(Request{Type: Continue})
	require.NotNil(t, err)
	assert.Equal(t, CodeFlowNotPermitted, err.Code)
}

func TestEngine_Navigate_PreviousWalksBackward(t *testing.T) {
	e := buildEngine(t, flowDef())
	e.Tree().Current = 2 // sco-2

	d, err := e.Navigate(Request{Type: Previous})
	require.Nil(t, err)
	assert.Equal(t, "sco-1", d.ActivityID)
}

func TestEngine_Navigate_PreviousAtFirstLeafRejected(t *testing.T) {
	e := buildEngine(t, flowDef())
	e.Tree().Current = 1 // sco-1

	_, err := e.Navigate(Request{Type: Previous})
	require.NotNil(t, err)
	assert.Equal(t, CodeNothingToDeliver, err.Code)
}

func TestEngine_Navigate_PreviousBlockedByForwardOnly(t *testing.T) {
	def := flowDef()
	def.Modes = &activity.ControlModes{
		Choice: true, ChoiceExit: true, Flow: true, ForwardOnly: true,
	}
	e := buildEngine(t, def)
	e.Tree().Current = 2 // sco-2

	_, err := e.Navigate(Request{Type: Previous})
	require.NotNil(t, err)
	assert.Equal(t, CodeFlowNotPermitted, err.Code)
}

// disabledClusterDef puts a disabled cluster between two deliverable
// leaves, so flow traversal must jump its whole subtree in either
// direction.
func disabledClusterDef() activity.Def {
	flow := activity.ControlModes{Choice: true, ChoiceExit: true, Flow: true}
	return activity.Def{
		ID:    "root",
		Modes: &flow,
		Children: []activity.Def{
			{ID: "sco-1", Launch: "sco1/index.html"},
			{ID: "mod-off", Modes: &flow,
				PreRules: []activity.SequencingRule{{
					Conditions: []activity.RuleCondition{{Condition: activity.CondAlways}},
					Action:     activity.ActionDisabled,
				}},
				Children: []activity.Def{
					{ID: "sco-2", Launch: "sco2/index.html"},
				}},
			{ID: "sco-3", Launch: "sco3/index.html"},
		},
	}
}

func TestEngine_Navigate_PreviousJumpsDisabledCluster(t *testing.T) {
	e := buildEngine(t, disabledClusterDef())

	d, err := e.Navigate(Request{Type: Start})
	require.Nil(t, err)
	require.Equal(t, "sco-1", d.ActivityID)

	d, err = e.Navigate(Request{Type: Continue})
	require.Nil(t, err)
	require.Equal(t, "sco-3", d.ActivityID, "forward flow jumps the disabled cluster")

	d, err = e.Navigate(Request{Type: Previous})
	require.Nil(t, err)
	assert.Equal(t, "sco-1", d.ActivityID, "backward flow jumps the disabled cluster")
}

func TestEngine_Navigate_PreviousOnlyDisabledBefore(t *testing.T) {
	def := disabledClusterDef()
	def.Children = def.Children[1:] // mod-off, sco-3
	e := buildEngine(t, def)
	e.Tree().Current = 3 // sco-3

	_, err := e.Navigate(Request{Type: Previous})
	require.NotNil(t, err)
	assert.Equal(t, CodeNothingToDeliver, err.Code)

	av := e.AvailableNavigation()
	assert.False(t, av.Previous, "no deliverable leaf before sco-3")
}

func TestEngine_Navigate_SkipRuleJumpsActivity(t *testing.T) {
	def := flowDef()
	def.Children[1].PreRules = []activity.SequencingRule{{
		Conditions: []activity.RuleCondition{{Condition: activity.CondAlways}},
		Action:     activity.ActionSkip,
	}}
	e := buildEngine(t, def)

	_, err := e.Navigate(Request{Type: Start})
	require.Nil(t, err)

	d, err := e.Navigate(Request{Type: Continue})
	require.Nil(t, err)
	assert.Equal(t, "sco-3", d.ActivityID, "skipped sco-2")
}

func TestEngine_Navigate_StopForwardHaltsFlow(t *testing.T) {
	def := flowDef()
	def.Children[2].PreRules = []activity.SequencingRule{{
		Conditions: []activity.RuleCondition{{Condition: activity.CondAlways}},
		Action:     activity.ActionStopForwardTraversal,
	}}
	e := buildEngine(t, def)
	e.Tree().Current = 2 // sco-2

	d, err := e.Navigate(Request{Type: Continue})
	require.Nil(t, err)
	assert.True(t, d.End, "stop rule ends the attempt instead of delivering sco-3")
}

// ============================================================
// Choice
// ============================================================

func TestEngine_Navigate_ChoiceDeliversTarget(t *testing.T) {
	e := buildEngine(t, branchedDef())

	d, err := e.Navigate(ChoiceRequest("sco-3"))
	require.Nil(t, err)
	assert.Equal(t, "sco-3", d.ActivityID)
	assert.Equal(t, "sco-3", e.Tree().CurrentActivity().ID)
}

func TestEngine_Navigate_ChoiceOnClusterFlowsIn(t *testing.T) {
	e := buildEngine(t, branchedDef())

	d, err := e.Navigate(ChoiceRequest("mod-a"))
	require.Nil(t, err)
	assert.Equal(t, "sco-1", d.ActivityID)
}

func TestEngine_Navigate_ChoiceUnknownTarget(t *testing.T) {
	e := buildEngine(t, branchedDef())

	_, err := e.Navigate(ChoiceRequest("nope"))
	require.NotNil(t, err)
	assert.Equal(t, CodeUnknownTarget, err.Code)
	assert.Equal(t, "unknownTarget", err.Reason())
}

func TestEngine_Navigate_ChoiceHiddenTarget(t *testing.T) {
	def := branchedDef()
	def.Children[1].Children[0].PreRules = []activity.SequencingRule{{
		Conditions: []activity.RuleCondition{{Condition: activity.CondAlways}},
		Action:     activity.ActionHiddenFromChoice,
	}}
	e := buildEngine(t, def)

	_, err := e.Navigate(ChoiceRequest("sco-3"))
	require.NotNil(t, err)
	assert.Equal(t, CodeHiddenOrDisabled, err.Code)
	assert.Equal(t, "hiddenOrDisabled", err.Reason())
}

func TestEngine_Navigate_ChoiceNotPermittedByAncestor(t *testing.T) {
	def := branchedDef()
	def.Children[1].Modes = &activity.ControlModes{ChoiceExit: true, Flow: true}
	e := buildEngine(t, def)

	_, err := e.Navigate(ChoiceRequest("sco-3"))
	require.NotNil(t, err)
	assert.Equal(t, CodeChoiceNotPermitted, err.Code)
}

func TestEngine_Navigate_ChoiceExitDenied(t *testing.T) {
	def := branchedDef()
	def.Children[0].Modes = &activity.ControlModes{Choice: true, Flow: true}
	e := buildEngine(t, def)

	_, err := e.Navigate(ChoiceRequest("sco-1"))
	require.Nil(t, err)

	// Leaving mod-a needs choiceExit on it.
	_, cerr := e.Navigate(ChoiceRequest("sco-3"))
	require.NotNil(t, cerr)
	assert.Equal(t, CodeChoiceNotPermitted, cerr.Code)
}

func TestEngine_Navigate_ChoiceDeactivatesOldBranch(t *testing.T) {
	e := buildEngine(t, branchedDef())

	_, err := e.Navigate(ChoiceRequest("sco-1"))
	require.Nil(t, err)
	modA, _ := e.Tree().ByID("mod-a")
	require.True(t, modA.Tracking.Active)

	_, err = e.Navigate(ChoiceRequest("sco-3"))
	require.Nil(t, err)
	assert.False(t, modA.Tracking.Active)
	modB, _ := e.Tree().ByID("mod-b")
	assert.True(t, modB.Tracking.Active)
}

// ============================================================
// Exit / Suspend / Retry
// ============================================================

func TestEngine_Navigate_SuspendAllAndResumeAll(t *testing.T) {
	e := buildEngine(t, flowDef())

	_, err := e.Navigate(Request{Type: Start})
	require.Nil(t, err)

	d, err := e.Navigate(Request{Type: SuspendAll})
	require.Nil(t, err)
	assert.True(t, d.End)
	require.NotNil(t, e.Tree().SuspendedActivity())
	assert.Equal(t, "sco-1", e.Tree().SuspendedActivity().ID)

	d, err = e.Navigate(Request{Type: ResumeAll})
	require.Nil(t, err)
	assert.Equal(t, "sco-1", d.ActivityID)
	assert.True(t, d.Resume)
	assert.Nil(t, e.Tree().SuspendedActivity())

	sco1, _ := e.Tree().ByID("sco-1")
	assert.Equal(t, 1, sco1.Tracking.AttemptCount, "resume is not a new attempt")
}

func TestEngine_Navigate_ResumeAllWithoutSuspension(t *testing.T) {
	e := buildEngine(t, flowDef())

	_, err := e.Navigate(Request{Type: ResumeAll})
	require.NotNil(t, err)
	assert.Equal(t, CodeNoSuspension, err.Code)
}

func TestEngine_Navigate_ExitAllEndsAttempt(t *testing.T) {
	e := buildEngine(t, flowDef())

	_, err := e.Navigate(Request{Type: Start})
	require.Nil(t, err)

	d, err := e.Navigate(Request{Type: ExitAll})
	require.Nil(t, err)
	assert.True(t, d.End)
	assert.Nil(t, e.Tree().CurrentActivity())
	assert.False(t, e.Tree().Root().Tracking.Active)
}

func TestEngine_Navigate_RetryResetsAndRedelivers(t *testing.T) {
	e := buildEngine(t, flowDef())

	_, err := e.Navigate(Request{Type: Start})
	require.Nil(t, err)
	sco1, _ := e.Tree().ByID("sco-1")
	sco1.Tracking.Active = false
	sco1.Tracking.CompletionKnown = true
	sco1.Tracking.Completed = true

	d, err := e.Navigate(Request{Type: Retry})
	require.Nil(t, err)
	assert.Equal(t, "sco-1", d.ActivityID)
	assert.False(t, sco1.Tracking.CompletionKnown, "tracking reset")
	assert.Equal(t, 1, sco1.Tracking.AttemptCount, "fresh attempt after reset")
}

func TestEngine_Navigate_AttemptLimitBlocksRedelivery(t *testing.T) {
	def := branchedDef()
	def.Children[1].Children[0].Limits = activity.LimitConditions{AttemptLimit: 1}
	e := buildEngine(t, def)

	_, err := e.Navigate(ChoiceRequest("sco-3"))
	require.Nil(t, err)
	sco3, _ := e.Tree().ByID("sco-3")
	sco3.Tracking.Active = false

	_, err = e.Navigate(ChoiceRequest("sco-3"))
	require.NotNil(t, err)
	assert.Equal(t, CodeHiddenOrDisabled, err.Code)
}

// ============================================================
// Post- and exit-condition rules
// ============================================================

func TestEngine_AfterTermination_PostContinue(t *testing.T) {
	def := flowDef()
	def.Children[0].PostRules = []activity.SequencingRule{{
		Conditions: []activity.RuleCondition{{Condition: activity.CondCompleted}},
		Action:     activity.ActionContinue,
	}}
	e := buildEngine(t, def)

	_, err := e.Navigate(Request{Type: Start})
	require.Nil(t, err)
	sco1, _ := e.Tree().ByID("sco-1")
	sco1.Tracking.Active = false
	sco1.Tracking.CompletionKnown = true
	sco1.Tracking.Completed = true

	d, handled, err := e.AfterTermination()
	require.Nil(t, err)
	require.True(t, handled)
	assert.Equal(t, "sco-2", d.ActivityID)
}

func TestEngine_AfterTermination_NoRuleFires(t *testing.T) {
	e := buildEngine(t, flowDef())

	_, err := e.Navigate(Request{Type: Start})
	require.Nil(t, err)
	sco1, _ := e.Tree().ByID("sco-1")
	sco1.Tracking.Active = false

	_, handled, aerr := e.AfterTermination()
	assert.Nil(t, aerr)
	assert.False(t, handled)
}

func TestEngine_AfterTermination_ExitAllRule(t *testing.T) {
	def := flowDef()
	def.ExitRules = []activity.SequencingRule{{
		Conditions: []activity.RuleCondition{{Condition: activity.CondSatisfied}},
		Action:     activity.ActionExitAll,
	}}
	e := buildEngine(t, def)

	_, err := e.Navigate(Request{Type: Start})
	require.Nil(t, err)
	e.Tree().Root().Tracking.SatisfiedKnown = true
	e.Tree().Root().Tracking.Satisfied = true

	d, handled, aerr := e.AfterTermination()
	require.Nil(t, aerr)
	require.True(t, handled)
	assert.True(t, d.End)
	assert.Nil(t, e.Tree().CurrentActivity())
}

func TestEngine_AfterTermination_RetryAllRule(t *testing.T) {
	def := flowDef()
	def.Children[2].PostRules = []activity.SequencingRule{{
		Conditions: []activity.RuleCondition{{
			Condition: activity.CondSatisfied, Not: true,
		}},
		Action: activity.ActionRetryAll,
	}}
	e := buildEngine(t, def)
	e.Tree().Current = 3 // sco-3
	sco3, _ := e.Tree().ByID("sco-3")
	sco3.Tracking.AttemptCount = 1

	d, handled, err := e.AfterTermination()
	require.Nil(t, err)
	require.True(t, handled)
	assert.Equal(t, "sco-1", d.ActivityID)
	assert.Equal(t, 0, sco3.Tracking.AttemptCount, "whole tree reset")
}

// ============================================================
// Available navigation
// ============================================================

func TestEngine_AvailableNavigation(t *testing.T) {
	e := buildEngine(t, flowDef())

	av := e.AvailableNavigation()
	assert.False(t, av.Continue)
	assert.False(t, av.Previous)
	assert.False(t, av.Exit, "no current activity to exit")
	assert.True(t, av.Choice["sco-1"])

	_, err := e.Navigate(Request{Type: Start})
	require.Nil(t, err)

	av = e.AvailableNavigation()
	assert.True(t, av.Continue)
	assert.False(t, av.Previous, "nothing before the first leaf")
	assert.True(t, av.Exit)

	e.Tree().Current = 3 // sco-3
	av = e.AvailableNavigation()
	assert.False(t, av.Continue, "no activity after the last leaf")
	assert.True(t, av.Previous)
}

func TestParseNavRequest(t *testing.T) {
	tests := []struct {
		value string
		want  Request
		ok    bool
	}{
		{"continue", Request{Type: Continue}, true},
		{"previous", Request{Type: Previous}, true},
		{"exitAll", Request{Type: ExitAll}, true},
		{"suspendAll", Request{Type: SuspendAll}, true},
		{"{target=sco-2}choice", Request{Type: Choice, Target: "sco-2"}, true},
		{"{target=sco-2}jump", Request{Type: Choice, Target: "sco-2"}, true},
		{"_none_", Request{}, false},
		{"", Request{}, false},
		{"{target=}choice", Request{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseNavRequest(tt.value)
		assert.Equal(t, tt.ok, ok, tt.value)
		assert.Equal(t, tt.want, got, tt.value)
	}
}
