package cmi

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ValueType identifies the wire format of an element value.
// All values cross the RTE boundary as strings; the type drives validation.
type ValueType int

const (
	// TypeString is a character string, optionally length-limited.
	TypeString ValueType = iota

	// TypeLocalizedString is a character string with an optional
	// {lang=xx} delimiter prefix.
	TypeLocalizedString

	// TypeVocab is an enumerated vocabulary token.
	TypeVocab

	// TypeReal is a decimal number, optionally range-limited.
	TypeReal

	// TypeInteger is a whole number, optionally range-limited.
	TypeInteger

	// TypeTime is an ISO 8601 timestamp (second precision or finer).
	TypeTime

	// TypeTimeInterval is an ISO 8601 duration (PT1H30M format).
	TypeTimeInterval

	// TypeResult is an interaction result: a vocabulary token or a real.
	TypeResult
)

var (
	langDelimiterRe = regexp.MustCompile(`^\{lang=[a-zA-Z]{2,3}(-[a-zA-Z0-9]{2,8})*\}`)
	timestampRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(T\d{2}:\d{2}(:\d{2}(\.\d{1,2})?)?(Z|[+-]\d{2}:\d{2})?)?$`)
	intervalRe      = regexp.MustCompile(`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d{1,2})?)S)?)?$`)
)

// resultVocab is the enumerated part of the interaction result type.
var resultVocab = []string{"correct", "incorrect", "unanticipated", "neutral"}

// checkValue validates a candidate value against an element schema entry.
// Returns a *cmi.Error with KindTypeMismatch or KindOutOfRange on failure.
func checkValue(el *Element, path, value string) error {
	switch el.Type {
	case TypeString:
		if el.MaxLen > 0 && len(value) > el.MaxLen {
			return newError(KindOutOfRange, path,
				fmt.Sprintf("string exceeds %d characters", el.MaxLen))
		}
		return nil

	case TypeLocalizedString:
		s := value
		if loc := langDelimiterRe.FindString(s); loc != "" {
			s = s[len(loc):]
		}
		if el.MaxLen > 0 && len(s) > el.MaxLen {
			return newError(KindOutOfRange, path,
				fmt.Sprintf("string exceeds %d characters", el.MaxLen))
		}
		return nil

	case TypeVocab:
		for _, tok := range el.Vocab {
			if value == tok {
				return nil
			}
		}
		return newError(KindTypeMismatch, path,
			fmt.Sprintf("%q not in vocabulary %v", value, el.Vocab))

	case TypeReal:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return newError(KindTypeMismatch, path, "not a decimal number")
		}
		if el.Ranged && (f < el.Min || f > el.Max) {
			return newError(KindOutOfRange, path,
				fmt.Sprintf("%v outside [%v, %v]", f, el.Min, el.Max))
		}
		return nil

	case TypeInteger:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return newError(KindTypeMismatch, path, "not an integer")
		}
		if el.Ranged && (float64(n) < el.Min || float64(n) > el.Max) {
			return newError(KindOutOfRange, path,
				fmt.Sprintf("%d outside [%v, %v]", n, el.Min, el.Max))
		}
		return nil

	case TypeTime:
		if !timestampRe.MatchString(value) {
			return newError(KindTypeMismatch, path, "malformed timestamp")
		}
		return nil

	case TypeTimeInterval:
		if _, err := ParseTimeInterval(value); err != nil {
			return newError(KindTypeMismatch, path, err.Error())
		}
		return nil

	case TypeResult:
		for _, tok := range resultVocab {
			if value == tok {
				return nil
			}
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return nil
		}
		return newError(KindTypeMismatch, path,
			fmt.Sprintf("%q is neither a result token nor a decimal", value))

	default:
		return newError(KindTypeMismatch, path, "unknown value type")
	}
}

// Fixed conversion factors for calendar components of a duration.
// Durations are accumulated as absolute time, so Y and M use fixed spans.
const (
	intervalDay   = 24 * time.Hour
	intervalMonth = 30 * intervalDay
	intervalYear  = 365 * intervalDay
)

// ParseTimeInterval parses an ISO 8601 duration (e.g. "PT1H30M5.5S").
//
// Calendar components (years, months, days) convert with fixed factors so
// that intervals accumulate deterministically across attempts.
func ParseTimeInterval(s string) (time.Duration, error) {
	if s == "" || s == "P" || s == "PT" {
		return 0, fmt.Errorf("malformed timeinterval %q", s)
	}
	m := intervalRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("malformed timeinterval %q", s)
	}
	// At least one component must be present.
	present := false
	for _, g := range m[1:] {
		if g != "" {
			present = true
			break
		}
	}
	if !present {
		return 0, fmt.Errorf("malformed timeinterval %q", s)
	}

	var d time.Duration
	if m[1] != "" {
		n, _ := strconv.Atoi(m[1])
		d += time.Duration(n) * intervalYear
	}
	if m[2] != "" {
		n, _ := strconv.Atoi(m[2])
		d += time.Duration(n) * intervalMonth
	}
	if m[3] != "" {
		n, _ := strconv.Atoi(m[3])
		d += time.Duration(n) * intervalDay
	}
	if m[4] != "" {
		n, _ := strconv.Atoi(m[4])
		d += time.Duration(n) * time.Hour
	}
	if m[5] != "" {
		n, _ := strconv.Atoi(m[5])
		d += time.Duration(n) * time.Minute
	}
	if m[6] != "" {
		sec, _ := strconv.ParseFloat(m[6], 64)
		d += time.Duration(sec * float64(time.Second))
	}
	return d, nil
}

// FormatTimeInterval renders a duration as a normalized ISO 8601 duration
// using only H/M/S components (the form total_time is reported in).
func FormatTimeInterval(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int64(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int64(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	sec := d.Seconds()

	var b strings.Builder
	b.WriteString("PT")
	if h > 0 {
		fmt.Fprintf(&b, "%dH", h)
	}
	if m > 0 {
		fmt.Fprintf(&b, "%dM", m)
	}
	// Seconds always present so "PT0S" is valid for a zero interval.
	if sec == math.Trunc(sec) {
		fmt.Fprintf(&b, "%dS", int64(sec))
	} else {
		fmt.Fprintf(&b, "%sS", strconv.FormatFloat(sec, 'f', 2, 64))
	}
	return b.String()
}

// AddTimeIntervals parses both operands and returns their normalized sum.
// Used for total_time accumulation across attempts.
func AddTimeIntervals(a, b string) (string, error) {
	da, err := ParseTimeInterval(a)
	if err != nil {
		return "", fmt.Errorf("left operand: %w", err)
	}
	db, err := ParseTimeInterval(b)
	if err != nil {
		return "", fmt.Errorf("right operand: %w", err)
	}
	return FormatTimeInterval(da + db), nil
}
