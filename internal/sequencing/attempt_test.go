package sequencing

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svincent240/scormrt/internal/activity"
	"github.com/svincent240/scormrt/internal/rte"
)

// seqIDs hands out session-1, session-2, ... for stable assertions.
type seqIDs struct{ n int }

func (g *seqIDs) Generate() string {
	g.n++
	return fmt.Sprintf("session-%d", g.n)
}

// capturePersister records every snapshot hand-off.
type capturePersister struct {
	snaps []rte.Snapshot
}

func (p *capturePersister) SaveSnapshot(_ context.Context, snap rte.Snapshot) error {
	p.snaps = append(p.snaps, snap)
	return nil
}

func newFlowAttempt(t *testing.T, opts ...AttemptOption) *Attempt {
	t.Helper()
	tree, err := activity.Build(flowDef())
	require.NoError(t, err)
	opts = append([]AttemptOption{WithSessionIDs(&seqIDs{})}, opts...)
	return NewAttempt(tree, opts...)
}

// runThrough initializes and terminates the current session, applying the
// given writes in between.
func runThrough(t *testing.T, a *Attempt, writes map[string]string) {
	t.Helper()
	s := a.Session()
	require.NotNil(t, s)
	require.True(t, s.Initialize())
	for path, value := range writes {
		require.True(t, s.SetValue(path, value), "SetValue(%s, %s): error %s",
			path, value, s.GetLastError())
	}
	require.True(t, s.Terminate())
}

// ============================================================
// Flow walk (three siblings under flow control)
// ============================================================

func TestAttempt_FlowWalkToEnd(t *testing.T) {
	a := newFlowAttempt(t)

	res := a.ProcessNavigationRequest(Request{Type: Start})
	require.True(t, res.Success)
	require.NotNil(t, res.Delivery)
	assert.Equal(t, "sco-1", res.Delivery.ActivityID)
	assert.True(t, res.Available.Continue)

	runThrough(t, a, nil)
	res = a.ProcessNavigationRequest(Request{Type: Continue})
	require.True(t, res.Success)
	assert.Equal(t, "sco-2", res.Delivery.ActivityID)

	runThrough(t, a, nil)
	res = a.ProcessNavigationRequest(Request{Type: Continue})
	require.True(t, res.Success)
	assert.Equal(t, "sco-3", res.Delivery.ActivityID)

	runThrough(t, a, nil)
	res = a.ProcessNavigationRequest(Request{Type: Continue})
	require.True(t, res.Success)
	require.NotNil(t, res.Delivery)
	assert.True(t, res.Delivery.End, "flowing past the last sibling ends the attempt")
	assert.False(t, res.Available.Continue)
	assert.Nil(t, a.Session())
}

func TestAttempt_RequestWhileContentRunning(t *testing.T) {
	a := newFlowAttempt(t)

	res := a.ProcessNavigationRequest(Request{Type: Start})
	require.True(t, res.Success)
	require.True(t, a.Session().Initialize())

	res = a.ProcessNavigationRequest(Request{Type: Continue})
	assert.False(t, res.Success)
	assert.Equal(t, "activityStillActive", res.Reason)
}

func TestAttempt_ChoiceOfHiddenTarget(t *testing.T) {
	def := flowDef()
	def.Children[1].PreRules = []activity.SequencingRule{{
		Conditions: []activity.RuleCondition{{Condition: activity.CondAlways}},
		Action:     activity.ActionHiddenFromChoice,
	}}
	tree, err := activity.Build(def)
	require.NoError(t, err)
	a := NewAttempt(tree, WithSessionIDs(&seqIDs{}))

	res := a.ProcessNavigationRequest(ChoiceRequest("sco-2"))
	assert.False(t, res.Success)
	assert.Equal(t, "hiddenOrDisabled", res.Reason)
	assert.Nil(t, res.Delivery)
	assert.False(t, res.Available.Choice["sco-2"])
}

// ============================================================
// Availability projection into the data model
// ============================================================

func TestAttempt_ProjectsRequestValidity(t *testing.T) {
	a := newFlowAttempt(t)

	res := a.ProcessNavigationRequest(Request{Type: Start})
	require.True(t, res.Success)

	s := a.Session()
	require.True(t, s.Initialize())
	assert.Equal(t, "true", s.GetValue("adl.nav.request_valid.continue"))
	assert.Equal(t, "false", s.GetValue("adl.nav.request_valid.previous"))
}

// ============================================================
// Pending navigation left by terminated content
// ============================================================

func TestAttempt_ResolvePending_ContentNavRequest(t *testing.T) {
	a := newFlowAttempt(t)

	res := a.ProcessNavigationRequest(Request{Type: Start})
	require.True(t, res.Success)
	runThrough(t, a, map[string]string{"adl.nav.request": "continue"})

	pres, ok := a.ResolvePending()
	require.True(t, ok)
	require.True(t, pres.Success)
	assert.Equal(t, "sco-2", pres.Delivery.ActivityID)
}

func TestAttempt_ResolvePending_NothingPending(t *testing.T) {
	a := newFlowAttempt(t)

	res := a.ProcessNavigationRequest(Request{Type: Start})
	require.True(t, res.Success)
	runThrough(t, a, nil)

	_, ok := a.ResolvePending()
	assert.False(t, ok, "no nav request and no firing rule")
}

func TestAttempt_ResolvePending_PostRuleContinue(t *testing.T) {
	def := flowDef()
	def.Children[0].PostRules = []activity.SequencingRule{{
		Conditions: []activity.RuleCondition{{Condition: activity.CondCompleted}},
		Action:     activity.ActionContinue,
	}}
	tree, err := activity.Build(def)
	require.NoError(t, err)
	a := NewAttempt(tree, WithSessionIDs(&seqIDs{}))

	res := a.ProcessNavigationRequest(Request{Type: Start})
	require.True(t, res.Success)
	runThrough(t, a, map[string]string{"cmi.completion_status": "completed"})

	pres, ok := a.ResolvePending()
	require.True(t, ok)
	require.True(t, pres.Success)
	assert.Equal(t, "sco-2", pres.Delivery.ActivityID)
}

// ============================================================
// Terminate recording and rollup
// ============================================================

func TestAttempt_TerminateRecordsTracking(t *testing.T) {
	a := newFlowAttempt(t)

	res := a.ProcessNavigationRequest(Request{Type: Start})
	require.True(t, res.Success)
	runThrough(t, a, map[string]string{
		"cmi.completion_status": "completed",
		"cmi.success_status":    "passed",
		"cmi.score.scaled":      "0.9",
		"cmi.progress_measure":  "1",
		"cmi.session_time":      "PT10M",
	})

	sco1, _ := a.Tree().ByID("sco-1")
	tr := sco1.Tracking
	assert.True(t, tr.CompletionKnown)
	assert.True(t, tr.Completed)
	assert.True(t, tr.SatisfiedKnown)
	assert.True(t, tr.Satisfied)
	assert.True(t, tr.MeasureKnown)
	assert.Equal(t, 0.9, tr.Measure)
	assert.Equal(t, 1.0, tr.ProgressMeasure)
	assert.Equal(t, "10m0s", tr.AttemptDuration.String())
	assert.False(t, tr.Active)
}

func TestAttempt_ScaledPassingScoreFallback(t *testing.T) {
	a := newFlowAttempt(t, WithSeeds(map[string]string{
		"cmi.scaled_passing_score": "0.8",
	}))

	res := a.ProcessNavigationRequest(Request{Type: Start})
	require.True(t, res.Success)
	runThrough(t, a, map[string]string{"cmi.score.scaled": "0.7"})

	sco1, _ := a.Tree().ByID("sco-1")
	assert.True(t, sco1.Tracking.SatisfiedKnown,
		"measure against passing score decides satisfaction")
	assert.False(t, sco1.Tracking.Satisfied)
}

func TestAttempt_RollupRunsOnTerminate(t *testing.T) {
	a := newFlowAttempt(t)

	for i, id := range []string{"sco-1", "sco-2", "sco-3"} {
		var res Result
		if i == 0 {
			res = a.ProcessNavigationRequest(Request{Type: Start})
		} else {
			res = a.ProcessNavigationRequest(Request{Type: Continue})
		}
		require.True(t, res.Success)
		require.Equal(t, id, res.Delivery.ActivityID)
		runThrough(t, a, map[string]string{"cmi.completion_status": "completed"})
	}

	root := a.Tree().Root()
	assert.True(t, root.Tracking.CompletionKnown)
	assert.True(t, root.Tracking.Completed)
}

// ============================================================
// Suspend / resume
// ============================================================

func TestAttempt_SuspendAndResume(t *testing.T) {
	a := newFlowAttempt(t)

	res := a.ProcessNavigationRequest(Request{Type: Start})
	require.True(t, res.Success)
	runThrough(t, a, map[string]string{
		"cmi.location":    "page-3",
		"cmi.exit":        "suspend",
		"adl.nav.request": "suspendAll",
	})

	pres, ok := a.ResolvePending()
	require.True(t, ok)
	require.True(t, pres.Success)
	require.NotNil(t, pres.Delivery)
	assert.True(t, pres.Delivery.End)
	require.NotNil(t, a.Tree().SuspendedActivity())

	res = a.ProcessNavigationRequest(Request{Type: ResumeAll})
	require.True(t, res.Success)
	assert.Equal(t, "sco-1", res.Delivery.ActivityID)
	assert.True(t, res.Delivery.Resume)

	s := a.Session()
	require.True(t, s.Initialize())
	assert.Equal(t, "resume", s.GetValue("cmi.entry"))
	assert.Equal(t, "page-3", s.GetValue("cmi.location"),
		"suspended data survives into the resumed session")

	sco1, _ := a.Tree().ByID("sco-1")
	assert.Equal(t, 1, sco1.Tracking.AttemptCount, "resume is not a new attempt")
}

// ============================================================
// Persistence hand-off and snapshot restore
// ============================================================

func TestAttempt_TerminateHandsSnapshotToPersister(t *testing.T) {
	p := &capturePersister{}
	a := newFlowAttempt(t, WithPersister(p))

	res := a.ProcessNavigationRequest(Request{Type: Start})
	require.True(t, res.Success)
	runThrough(t, a, map[string]string{"cmi.completion_status": "completed"})

	require.Len(t, p.snaps, 1)
	snap := p.snaps[0]
	assert.Equal(t, "session-1", snap.SessionID)
	assert.Equal(t, "sco-1", snap.ActivityID)
	assert.Equal(t, "completed", snap.DataModel["cmi.completion_status"])
	assert.Equal(t, "start", snap.LastNavigationRequest)

	state, ok := snap.ActivityTree["sco-1"]
	require.True(t, ok)
	assert.Equal(t, 1, state.AttemptCount)
	assert.Equal(t, "completed", state.CompletionStatus)
}

func TestAttempt_RestoreSnapshotResumesAttempt(t *testing.T) {
	// First run: suspend mid-course and capture the terminate snapshot.
	p := &capturePersister{}
	a := newFlowAttempt(t, WithPersister(p))

	res := a.ProcessNavigationRequest(Request{Type: Start})
	require.True(t, res.Success)
	runThrough(t, a, map[string]string{
		"cmi.location":    "page-7",
		"cmi.exit":        "suspend",
		"adl.nav.request": "suspendAll",
	})
	_, ok := a.ResolvePending()
	require.True(t, ok)
	require.Len(t, p.snaps, 1)

	// Second run: a fresh attempt restored from the snapshot.
	b := newFlowAttempt(t)
	b.RestoreSnapshot(p.snaps[0])

	res = b.ProcessNavigationRequest(Request{Type: ResumeAll})
	require.True(t, res.Success)
	assert.Equal(t, "sco-1", res.Delivery.ActivityID)
	assert.True(t, res.Delivery.Resume)

	s := b.Session()
	require.True(t, s.Initialize())
	assert.Equal(t, "page-7", s.GetValue("cmi.location"))
}
