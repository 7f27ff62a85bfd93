// internal/assistant/query/daterange.go
package query

import (
	"strings"
	"time"

	"calendar-assistant/internal/assistant/temporal"
	"calendar-assistant/internal/models"
)

// ExtractDateRange resolves a temporal constraint from the query text using
// a layered, first-match-wins strategy over the lowercased query. When
// nothing matches, both bounds are nil.
func ExtractDateRange(queryText string, now time.Time) models.DateRange {
	text := strings.ToLower(queryText)
	loc := now.Location()

	switch {
	case strings.Contains(text, "today"):
		return dayRange(now, loc)
	case strings.Contains(text, "tomorrow"):
		return dayRange(now.AddDate(0, 0, 1), loc)
	case strings.Contains(text, "this week"):
		return weekRange(now, loc)
	case strings.Contains(text, "next week"):
		return weekRange(now.AddDate(0, 0, 7), loc)
	case strings.Contains(text, "this month"):
		return monthRange(now, loc)
	case strings.Contains(text, "next month"):
		firstNext := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
		return monthRange(firstNext, loc)
	}

	// General natural-language fallback: take the engine's match as the
	// start and default the end to that day's 23:59:59.999.
	if t, ok := temporal.Parse(text, now); ok {
		start := t
		end := endOfDay(t, loc)
		if !end.After(start) {
			end = start.Add(time.Hour)
		}
		return models.DateRange{Start: &start, End: &end}
	}

	return models.DateRange{}
}

func dayRange(t time.Time, loc *time.Location) models.DateRange {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := endOfDay(t, loc)
	return models.DateRange{Start: &start, End: &end}
}

// weekRange spans Monday 00:00 through Sunday 23:59:59.999 of t's week,
// computing Monday as day - dayOfWeek + (dayOfWeek == 0 ? -6 : 1).
func weekRange(t time.Time, loc *time.Location) models.DateRange {
	dow := int(t.Weekday())
	offset := 1
	if dow == 0 {
		offset = -6
	}
	monday := t.AddDate(0, 0, offset-dow)

	y, m, d := monday.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := endOfDay(start.AddDate(0, 0, 6), loc)
	return models.DateRange{Start: &start, End: &end}
}

// monthRange spans the 1st through the last day of t's month.
func monthRange(t time.Time, loc *time.Location) models.DateRange {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	end := endOfDay(start.AddDate(0, 1, -1), loc)
	return models.DateRange{Start: &start, End: &end}
}

func endOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc)
}
