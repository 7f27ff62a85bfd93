// internal/assistant/schedule/engine.go

// Package schedule implements pure interval algorithms over calendar events:
// conflict detection, available-slot search, and meeting-time suggestion.
// Nothing here talks to the reasoning service or to storage.
package schedule

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"calendar-assistant/internal/assistant/temporal"
	"calendar-assistant/internal/models"
)

const maxSlots = 10

// defaultHours is the business-hour fallback when no usable preferred hours
// were supplied.
var defaultHours = []int{9, 10, 11, 14, 15, 16, 17}

// preferredHourVocab maps day-part tokens to candidate start hours.
var preferredHourVocab = map[string][]int{
	"morning":   {9, 10, 11},
	"afternoon": {14, 15, 16},
	"evening":   {17, 18, 19},
}

var reHourToken = regexp.MustCompile(`^(\d{1,2})\s*(am|pm)?$`)

// Engine runs the interval algorithms. The evaluation instant is injected so
// tests are deterministic.
type Engine struct {
	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// DetectConflicts tests a proposed interval against existing events using
// strict open-interval overlap: touching endpoints do not conflict, so
// back-to-back events are allowed. The event matching excludeID is removed
// before testing, which supports re-checking an event being edited.
func (e *Engine) DetectConflicts(events []models.Event, proposedStart, proposedEnd time.Time, excludeID string) models.ConflictResult {
	conflicts := []models.EventSummary{}
	for i := range events {
		ev := &events[i]
		if excludeID != "" && ev.ID == excludeID {
			continue
		}
		if proposedStart.Before(ev.EndTime) && proposedEnd.After(ev.StartTime) {
			conflicts = append(conflicts, ev.Summary())
		}
	}
	return models.ConflictResult{
		HasConflict:   len(conflicts) > 0,
		Conflicts:     conflicts,
		ConflictCount: len(conflicts),
	}
}

// FindAvailableSlots walks each calendar day in [windowStart, windowEnd] and,
// within each day, each preferred hour in the caller-supplied order, yielding
// candidate slots of durationMinutes. Candidates starting before the
// evaluation instant or overlapping an existing event are discarded. At most
// 10 slots are returned, day-major hour-minor.
func (e *Engine) FindAvailableSlots(events []models.Event, windowStart, windowEnd time.Time, durationMinutes int, preferredHours []int) []models.AvailableSlot {
	if durationMinutes <= 0 {
		durationMinutes = 60
	}
	if len(preferredHours) == 0 {
		preferredHours = defaultHours
	}

	now := e.now()
	duration := time.Duration(durationMinutes) * time.Minute
	loc := windowStart.Location()

	slots := []models.AvailableSlot{}
	y, m, d := windowStart.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)

	for !day.After(windowEnd) && len(slots) < maxSlots {
		for _, hour := range preferredHours {
			start := day.Add(time.Duration(hour) * time.Hour)
			end := start.Add(duration)
			if start.Before(now) || start.Before(windowStart) || end.After(windowEnd) {
				continue
			}
			if e.overlapsAny(events, start, end) {
				continue
			}
			slots = append(slots, models.AvailableSlot{
				StartTime: start,
				EndTime:   end,
				Date:      start.Format("2006-01-02"),
				Hour:      hour,
			})
			if len(slots) >= maxSlots {
				break
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return slots
}

func (e *Engine) overlapsAny(events []models.Event, start, end time.Time) bool {
	for i := range events {
		if start.Before(events[i].EndTime) && end.After(events[i].StartTime) {
			return true
		}
	}
	return false
}

// Suggestion is the outcome of a meeting-time request: the slots found plus
// the window they were searched in.
type Suggestion struct {
	Slots       []models.AvailableSlot `json:"slots"`
	WindowStart time.Time              `json:"windowStart"`
	WindowEnd   time.Time              `json:"windowEnd"`
}

// SuggestMeetingTime anchors a search window on preferredDateExpr (a 24-hour
// window when the expression resolves, the next 7 days otherwise), maps the
// preferred-time tokens to candidate hours, and delegates to
// FindAvailableSlots.
func (e *Engine) SuggestMeetingTime(events []models.Event, durationMinutes int, preferredDateExpr string, preferredTimeTokens []string) Suggestion {
	now := e.now()

	windowStart := now
	windowEnd := now.AddDate(0, 0, 7)
	if preferredDateExpr != "" {
		if anchor, ok := temporal.Parse(preferredDateExpr, now); ok {
			y, m, d := anchor.Date()
			windowStart = time.Date(y, m, d, 0, 0, 0, 0, anchor.Location())
			windowEnd = windowStart.Add(24 * time.Hour)
		}
	}

	hours := ResolvePreferredHours(preferredTimeTokens)
	slots := e.FindAvailableSlots(events, windowStart, windowEnd, durationMinutes, hours)
	return Suggestion{Slots: slots, WindowStart: windowStart, WindowEnd: windowEnd}
}

// ResolvePreferredHours maps time tokens through a fixed vocabulary: day-part
// words expand to hour sets, numeric tokens parse to a 24-hour hour (shifted
// by 12 for pm values under 12) and are accepted only within [9, 18]. The
// result is deduplicated and sorted. Zero usable hours falls back to the
// default business-hour set.
func ResolvePreferredHours(tokens []string) []int {
	seen := map[int]bool{}
	for _, token := range tokens {
		t := strings.ToLower(strings.TrimSpace(token))
		if t == "" {
			continue
		}
		if hours, ok := preferredHourVocab[t]; ok {
			for _, h := range hours {
				seen[h] = true
			}
			continue
		}
		if m := reHourToken.FindStringSubmatch(t); m != nil {
			h, _ := strconv.Atoi(m[1])
			if m[2] == "pm" && h < 12 {
				h += 12
			}
			if h >= 9 && h <= 18 {
				seen[h] = true
			}
		}
	}
	if len(seen) == 0 {
		return append([]int(nil), defaultHours...)
	}
	hours := make([]int, 0, len(seen))
	for h := range seen {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours
}
