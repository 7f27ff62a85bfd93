// internal/assistant/temporal/resolver.go

// Package temporal resolves natural-language and duration expressions to
// absolute instants. Every function is total: bad or ambiguous input is
// repaired to a sensible default rather than reported as an error, so a
// malformed model completion never surfaces to the user.
package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Range is a resolved absolute interval. End is always strictly after Start.
type Range struct {
	Start time.Time
	End   time.Time
}

var durationPattern = regexp.MustCompile(`(?i)(\d+)\s*(hours?|hrs?|h|minutes?|mins?|m)\b`)

// ResolveRange resolves a start expression and an optional end expression to
// an absolute interval, relative to now.
//
// Start: strict ISO-with-time is parsed literally; anything else goes through
// the natural-language engine relative to now; failure falls back to now.
// End: a duration phrase ("1 hour", "30 minutes") offsets the resolved start;
// strict ISO is parsed literally; anything else resolves relative to the
// resolved start, not now; absence defaults to start + 1 hour.
//
// Before returning, end <= start is unconditionally repaired to start + 1
// hour. This deliberately favors leniency over strictness: the inputs come
// from a probabilistic model and an invalid interval must not become a
// user-facing error.
func ResolveRange(startExpr, endExpr string, now time.Time) Range {
	start := resolveInstant(startExpr, now)

	var end time.Time
	switch {
	case strings.TrimSpace(endExpr) == "":
		end = start.Add(time.Hour)
	default:
		if d, ok := parseDurationPhrase(endExpr); ok {
			end = start.Add(d)
		} else if t, ok := parseISO(endExpr); ok {
			end = t
		} else if t, ok := Parse(endExpr, start); ok {
			end = t
		} else {
			end = start.Add(time.Hour)
		}
	}

	if !end.After(start) {
		end = start.Add(time.Hour)
	}

	return Range{Start: start, End: end}
}

// ResolveSingle resolves one expression to an absolute instant, or nil when
// nothing can be made of it. Used for task due dates.
func ResolveSingle(expr string, now time.Time) *time.Time {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	if t, ok := parseISO(expr); ok {
		return &t
	}
	if t, ok := Parse(expr, now); ok {
		return &t
	}
	return nil
}

func resolveInstant(expr string, now time.Time) time.Time {
	if t, ok := parseISO(expr); ok {
		return t
	}
	if t, ok := Parse(expr, now); ok {
		return t
	}
	return now
}

// parseISO accepts strict ISO forms carrying an explicit time of day.
// Forms without a zone are interpreted as UTC so resolution is deterministic.
func parseISO(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseDurationPhrase matches offsets like "1 hour", "90 min", "2h".
func parseDurationPhrase(expr string) (time.Duration, bool) {
	trimmed := strings.TrimSpace(expr)
	m := durationPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return 0, false
	}
	// Only treat the expression as a duration when it is nothing but one;
	// "tomorrow at 3" must not be eaten by the digit rule.
	if !durationOnly.MatchString(trimmed) {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	unit := strings.ToLower(m[2])
	if strings.HasPrefix(unit, "h") {
		return time.Duration(n) * time.Hour, true
	}
	return time.Duration(n) * time.Minute, true
}

var durationOnly = regexp.MustCompile(`(?i)^\s*\d+\s*(hours?|hrs?|h|minutes?|mins?|m)\s*$`)
