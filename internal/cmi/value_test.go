package cmi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeInterval(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"PT0S", 0},
		{"PT5S", 5 * time.Second},
		{"PT1H30M", 90 * time.Minute},
		{"PT1H30M5.5S", 90*time.Minute + 5500*time.Millisecond},
		{"P1DT1H", 25 * time.Hour},
		{"P2M", 60 * 24 * time.Hour},
		{"P1Y", 365 * 24 * time.Hour},
	}
	for _, tt := range tests {
		got, err := ParseTimeInterval(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseTimeInterval_Malformed(t *testing.T) {
	for _, in := range []string{"", "P", "PT", "1H", "PT1H30", "P-1D", "1:30:00"} {
		_, err := ParseTimeInterval(in)
		assert.Error(t, err, in)
	}
}

func TestFormatTimeInterval(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "PT0S"},
		{5 * time.Second, "PT5S"},
		{90 * time.Minute, "PT1H30M0S"},
		{25*time.Hour + 30*time.Second, "PT25H30S"},
		{1500 * time.Millisecond, "PT1.50S"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTimeInterval(tt.in), tt.in.String())
	}
}

func TestAddTimeIntervals(t *testing.T) {
	got, err := AddTimeIntervals("PT30M", "PT45M")
	require.NoError(t, err)
	assert.Equal(t, "PT1H15M0S", got)

	got, err = AddTimeIntervals("PT0S", "PT2.5S")
	require.NoError(t, err)
	assert.Equal(t, "PT2.50S", got)

	_, err = AddTimeIntervals("bogus", "PT1S")
	assert.Error(t, err)
}

func TestCheckValue_Timestamp(t *testing.T) {
	el := &Element{Type: TypeTime}

	for _, ok := range []string{
		"2026-08-24",
		"2026-08-24T10:30",
		"2026-08-24T10:30:05",
		"2026-08-24T10:30:05.25Z",
		"2026-08-24T10:30:05+02:00",
	} {
		assert.NoError(t, checkValue(el, "cmi.interactions.0.timestamp", ok), ok)
	}

	for _, bad := range []string{"today", "2026/08/24", "10:30:05"} {
		assert.Error(t, checkValue(el, "cmi.interactions.0.timestamp", bad), bad)
	}
}

func TestCheckValue_Result(t *testing.T) {
	el := &Element{Type: TypeResult}

	for _, ok := range []string{"correct", "incorrect", "neutral", "unanticipated", "0.5", "-2"} {
		assert.NoError(t, checkValue(el, "cmi.interactions.0.result", ok), ok)
	}
	assert.Error(t, checkValue(el, "cmi.interactions.0.result", "wrong"))
}

func TestCheckValue_LocalizedString(t *testing.T) {
	el := &Element{Type: TypeLocalizedString, MaxLen: 10}

	assert.NoError(t, checkValue(el, "cmi.learner_name", "{lang=en}short"))
	assert.NoError(t, checkValue(el, "cmi.learner_name", "short"))

	err := checkValue(el, "cmi.learner_name", "{lang=en}this is far too long")
	assert.Equal(t, KindOutOfRange, KindOf(err))
}

func TestNavRequestValid(t *testing.T) {
	for _, ok := range []string{
		"continue", "previous", "exit", "exitAll", "abandon",
		"abandonAll", "suspendAll", "_none_",
		"{target=intro}choice", "{target=intro}jump",
	} {
		assert.True(t, navRequestValid(ok), ok)
	}
	for _, bad := range []string{"", "start", "{target=}choice", "{target=x}skip"} {
		assert.False(t, navRequestValid(bad), bad)
	}
}
