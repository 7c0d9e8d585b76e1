package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
	require.NoError(t, err)
	return s
}

func TestRun_LinearWalk_Golden(t *testing.T) {
	s := loadTestScenario(t, "linear-walk.yaml")

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ChoiceHidden_Golden(t *testing.T) {
	s := loadTestScenario(t, "choice-hidden.yaml")

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	s := &Scenario{
		Name:        "expect-mismatch",
		Description: "start must not deliver the second activity",
		Course:      filepath.Join("testdata", "courses", "linear.yaml"),
		Steps: []Step{
			{Nav: "start", Expect: &NavExpect{Activity: "sco-2"}},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `delivered "sco-1", want "sco-2"`)
}

func TestRun_APICallWithoutSession(t *testing.T) {
	s := &Scenario{
		Name:        "no-session",
		Description: "API calls before any delivery have no session",
		Course:      filepath.Join("testdata", "courses", "linear.yaml"),
		Steps: []Step{
			{API: []APICall{{Op: "Initialize"}}},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no session")
}

func TestRun_WantErrorChecksRegister(t *testing.T) {
	s := &Scenario{
		Name:        "get-before-init",
		Description: "reading before Initialize sets code 122",
		Course:      filepath.Join("testdata", "courses", "linear.yaml"),
		Steps: []Step{
			{Nav: "start"},
			{API: []APICall{
				{Op: "GetValue", Element: "cmi.location", WantError: "122"},
			}},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, "122", result.Trace[1].Error)
	assert.Equal(t, "", result.Trace[1].Result)
}

func TestRun_AssertionFailureFailsResult(t *testing.T) {
	s := &Scenario{
		Name:        "wrong-count",
		Description: "nothing terminated, so nothing is saved",
		Course:      filepath.Join("testdata", "courses", "linear.yaml"),
		Steps: []Step{
			{Nav: "start"},
		},
		Assertions: []Assertion{
			{Type: AssertAttemptsSaved, Count: 5},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "5 saved attempts")
}

func TestRun_UnreadableCourse(t *testing.T) {
	s := &Scenario{
		Name:        "missing-course",
		Description: "the course file does not exist",
		Course:      filepath.Join("testdata", "courses", "missing.yaml"),
		Steps: []Step{
			{Nav: "start"},
		},
	}

	_, err := Run(s)
	require.Error(t, err)
}
