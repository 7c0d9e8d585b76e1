package cmi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Defaults and access control
// =============================================================================

func TestDataModel_GetValue_SchemaDefaults(t *testing.T) {
	d := New()

	tests := []struct {
		path string
		want string
	}{
		{"cmi._version", "1.0"},
		{"cmi.completion_status", "unknown"},
		{"cmi.success_status", "unknown"},
		{"cmi.entry", "ab-initio"},
		{"cmi.credit", "credit"},
		{"cmi.mode", "normal"},
		{"cmi.total_time", "PT0S"},
		{"adl.nav.request", "_none_"},
	}
	for _, tt := range tests {
		got, err := d.GetValue(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestDataModel_GetValue_NotInitialized(t *testing.T) {
	d := New()

	_, err := d.GetValue("cmi.location")
	require.Error(t, err)
	assert.Equal(t, KindNotInitialized, KindOf(err))
}

func TestDataModel_GetValue_Undefined(t *testing.T) {
	d := New()

	for _, path := range []string{
		"cmi.no_such_element",
		"cmi.interactions.x.id",
		"cmi.interactions.01.id",
		"cmi.core.lesson_status", // SCORM 1.2 namespace
	} {
		_, err := d.GetValue(path)
		assert.Equal(t, KindUndefined, KindOf(err), path)
	}
}

func TestDataModel_GetValue_Unimplemented(t *testing.T) {
	d := New()

	_, err := d.GetValue("adl.data.0.id")
	assert.Equal(t, KindUnimplemented, KindOf(err))
}

func TestDataModel_SetValue_ReadOnly(t *testing.T) {
	d := New()

	err := d.SetValue("cmi.learner_id", "learner-1")
	require.Error(t, err)
	assert.Equal(t, KindReadOnly, KindOf(err))

	// Value unchanged: still not initialized.
	_, err = d.GetValue("cmi.learner_id")
	assert.Equal(t, KindNotInitialized, KindOf(err))
}

func TestDataModel_GetValue_WriteOnly(t *testing.T) {
	d := New()

	require.NoError(t, d.SetValue("cmi.exit", "suspend"))

	_, err := d.GetValue("cmi.exit")
	assert.Equal(t, KindWriteOnly, KindOf(err))

	_, err = d.GetValue("cmi.session_time")
	assert.Equal(t, KindWriteOnly, KindOf(err))
}

func TestDataModel_Seed_BypassesAccessControl(t *testing.T) {
	d := New()

	require.NoError(t, d.Seed(map[string]string{
		"cmi.learner_id":           "learner-1",
		"cmi.learner_name":         "Pat Example",
		"cmi.scaled_passing_score": "0.7",
		"cmi.launch_data":          "unit=3",
	}))

	got, err := d.GetValue("cmi.learner_id")
	require.NoError(t, err)
	assert.Equal(t, "learner-1", got)

	got, err = d.GetValue("cmi.scaled_passing_score")
	require.NoError(t, err)
	assert.Equal(t, "0.7", got)
}

func TestDataModel_Seed_RejectsBadValue(t *testing.T) {
	d := New()

	err := d.Seed(map[string]string{"cmi.scaled_passing_score": "1.5"})
	require.Error(t, err)
	assert.Equal(t, KindOutOfRange, KindOf(err))
}

func TestDataModel_Seed_RejectsOversizedString(t *testing.T) {
	d := New()

	err := d.Seed(map[string]string{
		"cmi.suspend_data": strings.Repeat("x", 64001),
	})
	require.Error(t, err)
	assert.Equal(t, KindOutOfRange, KindOf(err))

	err = d.Seed(map[string]string{
		"cmi.learner_name": "{lang=en}" + strings.Repeat("n", 251),
	})
	require.Error(t, err)
	assert.Equal(t, KindOutOfRange, KindOf(err))
}

// =============================================================================
// Type and range validation
// =============================================================================

func TestDataModel_SetValue_ScaledScoreRange(t *testing.T) {
	d := New()

	err := d.SetValue("cmi.score.scaled", "1.5")
	require.Error(t, err)
	assert.Equal(t, KindOutOfRange, KindOf(err))

	// Value unchanged after the failed write.
	_, err = d.GetValue("cmi.score.scaled")
	assert.Equal(t, KindNotInitialized, KindOf(err))

	require.NoError(t, d.SetValue("cmi.score.scaled", "0.85"))
	got, err := d.GetValue("cmi.score.scaled")
	require.NoError(t, err)
	assert.Equal(t, "0.85", got)
}

func TestDataModel_SetValue_VocabRejected(t *testing.T) {
	d := New()

	err := d.SetValue("cmi.completion_status", "done")
	require.Error(t, err)
	assert.Equal(t, KindTypeMismatch, KindOf(err))

	got, err := d.GetValue("cmi.completion_status")
	require.NoError(t, err)
	assert.Equal(t, "unknown", got, "failed write must not disturb the default")
}

func TestDataModel_SetValue_ProgressMeasureRange(t *testing.T) {
	d := New()

	require.NoError(t, d.SetValue("cmi.progress_measure", "0.5"))

	err := d.SetValue("cmi.progress_measure", "-0.1")
	assert.Equal(t, KindOutOfRange, KindOf(err))

	err = d.SetValue("cmi.progress_measure", "abc")
	assert.Equal(t, KindTypeMismatch, KindOf(err))
}

func TestDataModel_SetValue_SessionTimeFormat(t *testing.T) {
	d := New()

	require.NoError(t, d.SetValue("cmi.session_time", "PT1H30M5S"))

	err := d.SetValue("cmi.session_time", "1:30:05")
	assert.Equal(t, KindTypeMismatch, KindOf(err))

	err = d.SetValue("cmi.session_time", "PT")
	assert.Equal(t, KindTypeMismatch, KindOf(err))
}

func TestDataModel_SetValue_NavRequest(t *testing.T) {
	d := New()

	require.NoError(t, d.SetValue("adl.nav.request", "continue"))
	require.NoError(t, d.SetValue("adl.nav.request", "{target=module-2}choice"))

	err := d.SetValue("adl.nav.request", "sideways")
	assert.Equal(t, KindTypeMismatch, KindOf(err))
}

// =============================================================================
// Collections
// =============================================================================

func TestDataModel_Collections_AppendInOrder(t *testing.T) {
	d := New()

	require.NoError(t, d.SetValue("cmi.objectives.0.id", "obj-a"))
	assert.Equal(t, 1, d.Count("cmi.objectives"))

	require.NoError(t, d.SetValue("cmi.objectives.1.id", "obj-b"))
	assert.Equal(t, 2, d.Count("cmi.objectives"))

	got, err := d.GetValue("cmi.objectives._count")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}

func TestDataModel_Collections_IndexBeyondCountRejected(t *testing.T) {
	d := New()

	err := d.SetValue("cmi.objectives.1.id", "obj-b")
	require.Error(t, err)
	assert.Equal(t, KindIndexOutOfOrder, KindOf(err))
	assert.Equal(t, 0, d.Count("cmi.objectives"))
}

func TestDataModel_Collections_OverwriteKeepsCount(t *testing.T) {
	d := New()

	require.NoError(t, d.SetValue("cmi.comments_from_learner.0.comment", "first"))
	require.NoError(t, d.SetValue("cmi.comments_from_learner.0.comment", "revised"))
	assert.Equal(t, 1, d.Count("cmi.comments_from_learner"))

	got, err := d.GetValue("cmi.comments_from_learner.0.comment")
	require.NoError(t, err)
	assert.Equal(t, "revised", got)
}

func TestDataModel_Collections_EntryCreationRequiresKey(t *testing.T) {
	d := New()

	err := d.SetValue("cmi.interactions.0.result", "correct")
	require.Error(t, err)
	assert.Equal(t, KindDependency, KindOf(err))

	require.NoError(t, d.SetValue("cmi.interactions.0.id", "q1"))
	require.NoError(t, d.SetValue("cmi.interactions.0.type", "true-false"))
	require.NoError(t, d.SetValue("cmi.interactions.0.result", "correct"))
}

func TestDataModel_Collections_Nested(t *testing.T) {
	d := New()

	require.NoError(t, d.SetValue("cmi.interactions.0.id", "q1"))
	require.NoError(t, d.SetValue("cmi.interactions.0.objectives.0.id", "obj-a"))
	require.NoError(t, d.SetValue("cmi.interactions.0.correct_responses.0.pattern", "true"))

	assert.Equal(t, 1, d.Count("cmi.interactions.0.objectives"))
	assert.Equal(t, 1, d.Count("cmi.interactions.0.correct_responses"))

	// Nested append beyond count is rejected like any other.
	err := d.SetValue("cmi.interactions.0.correct_responses.2.pattern", "false")
	assert.Equal(t, KindIndexOutOfOrder, KindOf(err))
}

func TestDataModel_Collections_MemberDefaultNeedsEntry(t *testing.T) {
	d := New()

	// objectives.n.success_status has a default, but only for entries
	// that exist.
	_, err := d.GetValue("cmi.objectives.0.success_status")
	assert.Equal(t, KindNotInitialized, KindOf(err))

	require.NoError(t, d.SetValue("cmi.objectives.0.id", "obj-a"))
	got, err := d.GetValue("cmi.objectives.0.success_status")
	require.NoError(t, err)
	assert.Equal(t, "unknown", got)
}

func TestDataModel_Collections_WriteOnceID(t *testing.T) {
	d := New()

	require.NoError(t, d.SetValue("cmi.objectives.0.id", "obj-a"))

	// Rewriting the same value is permitted; changing it is not.
	require.NoError(t, d.SetValue("cmi.objectives.0.id", "obj-a"))
	err := d.SetValue("cmi.objectives.0.id", "obj-b")
	assert.Equal(t, KindWriteOnce, KindOf(err))
}

func TestDataModel_Children(t *testing.T) {
	d := New()

	got, err := d.GetValue("cmi.score._children")
	require.NoError(t, err)
	assert.Equal(t, "scaled,raw,min,max", got)

	got, err = d.GetValue("cmi.interactions._children")
	require.NoError(t, err)
	assert.Contains(t, got, "learner_response")

	err = d.SetValue("cmi.objectives._count", "3")
	assert.Equal(t, KindReadOnly, KindOf(err))
}

// =============================================================================
// Snapshot round-trip
// =============================================================================

func TestDataModel_Restore_RoundTrip(t *testing.T) {
	d := New()
	require.NoError(t, d.Seed(map[string]string{"cmi.learner_id": "learner-1"}))
	require.NoError(t, d.SetValue("cmi.completion_status", "completed"))
	require.NoError(t, d.SetValue("cmi.score.scaled", "0.9"))
	require.NoError(t, d.SetValue("cmi.interactions.0.id", "q1"))
	require.NoError(t, d.SetValue("cmi.interactions.0.type", "choice"))
	require.NoError(t, d.SetValue("cmi.interactions.0.learner_response", "b"))
	require.NoError(t, d.SetValue("cmi.suspend_data", "bookmark=3"))

	restored, err := Restore(d.Snapshot())
	require.NoError(t, err)

	for _, path := range []string{
		"cmi.learner_id",
		"cmi.completion_status",
		"cmi.score.scaled",
		"cmi.interactions.0.id",
		"cmi.interactions.0.type",
		"cmi.interactions.0.learner_response",
		"cmi.suspend_data",
	} {
		want, err := d.GetValue(path)
		require.NoError(t, err, path)
		got, err := restored.GetValue(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	assert.Equal(t, 1, restored.Count("cmi.interactions"))
}

func TestDataModel_Restore_RejectsUnknownPath(t *testing.T) {
	_, err := Restore(map[string]string{"cmi.bogus": "x"})
	require.Error(t, err)
	assert.Equal(t, KindUndefined, KindOf(err))
}
