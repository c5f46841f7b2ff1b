package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeRange is returned when a time range boundary cannot be parsed
var ErrInvalidTimeRange = errors.New("invalid time range")

// TimeWindow is a closed time interval [Start, End]
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within the window. Both ends are
// inclusive; an inverted window contains nothing.
func (w TimeWindow) Contains(t time.Time) bool {
	if w.End.Before(w.Start) {
		return false
	}
	return !t.Before(w.Start) && !t.After(w.End)
}

// IsInverted reports whether End precedes Start
func (w TimeWindow) IsInverted() bool {
	return w.End.Before(w.Start)
}

// Duration returns the window length, or zero for an inverted window
func (w TimeWindow) Duration() time.Duration {
	if w.IsInverted() {
		return 0
	}
	return w.End.Sub(w.Start)
}

// ParseTimeRange resolves a pair of date-math boundaries against now.
// An inverted range is not rejected.
func ParseTimeRange(start, end string, now time.Time) (TimeWindow, error) {
	s, err := ParseDateMath(start, now, false)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: start: %v", ErrInvalidTimeRange, err)
	}
	e, err := ParseDateMath(end, now, true)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: end: %v", ErrInvalidTimeRange, err)
	}
	return TimeWindow{Start: s, End: e}, nil
}

// ParseDateMath parses an absolute or relative time expression.
//
// Supported forms:
//   - "now", "now-15m", "now+1h", "now-7d/d" (rounding to the unit)
//   - RFC3339 / RFC3339Nano timestamps
//   - epoch milliseconds
//
// Units are s, m, h, d, w, M, y. When roundUp is set, a trailing "/unit"
// rounds to the end of that unit instead of its start.
func ParseDateMath(expr string, now time.Time, roundUp bool) (time.Time, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return time.Time{}, errors.New("empty expression")
	}

	if !strings.HasPrefix(expr, "now") {
		if ms, err := strconv.ParseInt(expr, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
		t, err := time.Parse(time.RFC3339Nano, expr)
		if err != nil {
			return time.Time{}, fmt.Errorf("unrecognised time %q", expr)
		}
		return t, nil
	}

	t := now
	rest := expr[len("now"):]
	for len(rest) > 0 {
		op := rest[0]
		rest = rest[1:]
		switch op {
		case '+', '-':
			i := 0
			for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
				i++
			}
			n := 1
			if i > 0 {
				parsed, err := strconv.Atoi(rest[:i])
				if err != nil {
					return time.Time{}, fmt.Errorf("bad amount in %q", expr)
				}
				n = parsed
			}
			if i >= len(rest) {
				return time.Time{}, fmt.Errorf("missing unit in %q", expr)
			}
			unit := rest[i]
			rest = rest[i+1:]
			if op == '-' {
				n = -n
			}
			shifted, err := addUnit(t, n, unit)
			if err != nil {
				return time.Time{}, fmt.Errorf("%v in %q", err, expr)
			}
			t = shifted
		case '/':
			if len(rest) == 0 {
				return time.Time{}, fmt.Errorf("missing rounding unit in %q", expr)
			}
			rounded, err := roundUnit(t, rest[0], roundUp)
			if err != nil {
				return time.Time{}, fmt.Errorf("%v in %q", err, expr)
			}
			t = rounded
			rest = rest[1:]
		default:
			return time.Time{}, fmt.Errorf("unexpected %q in %q", op, expr)
		}
	}
	return t, nil
}

func addUnit(t time.Time, n int, unit byte) (time.Time, error) {
	switch unit {
	case 's':
		return t.Add(time.Duration(n) * time.Second), nil
	case 'm':
		return t.Add(time.Duration(n) * time.Minute), nil
	case 'h', 'H':
		return t.Add(time.Duration(n) * time.Hour), nil
	case 'd':
		return t.AddDate(0, 0, n), nil
	case 'w':
		return t.AddDate(0, 0, 7*n), nil
	case 'M':
		return t.AddDate(0, n, 0), nil
	case 'y':
		return t.AddDate(n, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("unknown unit %q", unit)
}

func roundUnit(t time.Time, unit byte, up bool) (time.Time, error) {
	var start time.Time
	switch unit {
	case 's':
		start = t.Truncate(time.Second)
	case 'm':
		start = t.Truncate(time.Minute)
	case 'h', 'H':
		start = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	case 'd':
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case 'w':
		offset := (int(t.Weekday()) + 6) % 7 // weeks start on Monday
		start = time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
	case 'M':
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case 'y':
		start = time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Time{}, fmt.Errorf("unknown unit %q", unit)
	}
	if !up {
		return start, nil
	}
	next, err := addUnit(start, 1, unit)
	if err != nil {
		return time.Time{}, err
	}
	return next.Add(-time.Millisecond), nil
}
