// internal/assistant/schedule/engine_test.go
package schedule

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendar-assistant/internal/models"
)

// Reference instant: Friday 2025-01-31 10:00 UTC.
var testNow = time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)

func newEngine() *Engine {
	e := NewEngine()
	e.now = func() time.Time { return testNow }
	return e
}

func event(id string, start, end time.Time) models.Event {
	return models.Event{ID: id, Title: id, StartTime: start, EndTime: end}
}

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 2, day, hour, minute, 0, 0, time.UTC)
}

func TestDetectConflicts_Overlap(t *testing.T) {
	e := newEngine()
	stored := []models.Event{event("standup", at(1, 14, 0), at(1, 15, 0))}

	result := e.DetectConflicts(stored, at(1, 14, 30), at(1, 15, 30), "")

	assert.True(t, result.HasConflict)
	assert.Equal(t, 1, result.ConflictCount)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "standup", result.Conflicts[0].ID)
}

func TestDetectConflicts_BackToBackDoesNotConflict(t *testing.T) {
	e := newEngine()
	stored := []models.Event{event("standup", at(1, 14, 0), at(1, 15, 0))}

	// Touching endpoints are allowed under the open-interval rule.
	after := e.DetectConflicts(stored, at(1, 15, 0), at(1, 16, 0), "")
	before := e.DetectConflicts(stored, at(1, 13, 0), at(1, 14, 0), "")

	assert.False(t, after.HasConflict)
	assert.False(t, before.HasConflict)
}

func TestDetectConflicts_ContainmentAndSpanning(t *testing.T) {
	e := newEngine()
	stored := []models.Event{event("standup", at(1, 14, 0), at(1, 15, 0))}

	inside := e.DetectConflicts(stored, at(1, 14, 15), at(1, 14, 45), "")
	spanning := e.DetectConflicts(stored, at(1, 13, 0), at(1, 16, 0), "")

	assert.True(t, inside.HasConflict)
	assert.True(t, spanning.HasConflict)
}

func TestDetectConflicts_ExcludesEventBeingEdited(t *testing.T) {
	e := newEngine()
	stored := []models.Event{
		event("editing", at(1, 14, 0), at(1, 15, 0)),
		event("other", at(1, 14, 30), at(1, 15, 30)),
	}

	result := e.DetectConflicts(stored, at(1, 14, 0), at(1, 15, 0), "editing")

	assert.True(t, result.HasConflict)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "other", result.Conflicts[0].ID)
}

func TestDetectConflicts_Symmetric(t *testing.T) {
	e := newEngine()
	intervals := [][2]time.Time{
		{at(1, 14, 0), at(1, 15, 0)},
		{at(1, 14, 30), at(1, 15, 30)},
		{at(1, 15, 0), at(1, 16, 0)},
		{at(1, 9, 0), at(1, 17, 0)},
	}

	for i, a := range intervals {
		for j, b := range intervals {
			if i == j {
				continue
			}
			stored := []models.Event{event("e", b[0], b[1])}
			forward := e.DetectConflicts(stored, a[0], a[1], "")
			reversed := e.DetectConflicts([]models.Event{event("e", a[0], a[1])}, b[0], b[1], "")
			assert.Equal(t, forward.HasConflict, reversed.HasConflict,
				"symmetry violated for intervals %d and %d", i, j)
		}
	}
}

func TestFindAvailableSlots_SkipsBusyHoursAndPast(t *testing.T) {
	e := newEngine()
	// Saturday Feb 1, one meeting 10:00-11:00.
	windowStart := at(1, 0, 0)
	windowEnd := at(1, 23, 59)
	busy := []models.Event{event("meeting", at(1, 10, 0), at(1, 11, 0))}

	slots := e.FindAvailableSlots(busy, windowStart, windowEnd, 60, []int{9, 10, 11, 14})

	var hours []int
	for _, s := range slots {
		hours = append(hours, s.Hour)
	}
	assert.Equal(t, []int{9, 11, 14}, hours)
	for _, s := range slots {
		assert.Equal(t, "2025-02-01", s.Date)
		assert.Equal(t, time.Hour, s.EndTime.Sub(s.StartTime))
	}
}

func TestFindAvailableSlots_NeverBeforeNow(t *testing.T) {
	e := newEngine()
	// Window covers today; testNow is 10:00, so 9:00 and the 10:00 start
	// are unusable (10:00 is not strictly before now, so it survives).
	windowStart := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC)

	slots := e.FindAvailableSlots(nil, windowStart, windowEnd, 30, []int{9, 10, 14})

	for _, s := range slots {
		assert.False(t, s.StartTime.Before(testNow), "slot %v starts before evaluation time", s.StartTime)
	}
	var hours []int
	for _, s := range slots {
		hours = append(hours, s.Hour)
	}
	assert.Equal(t, []int{10, 14}, hours)
}

func TestFindAvailableSlots_CapsAtTen(t *testing.T) {
	e := newEngine()
	windowStart := at(1, 0, 0)
	windowEnd := at(7, 23, 59)

	slots := e.FindAvailableSlots(nil, windowStart, windowEnd, 60, []int{9, 10, 11, 14})

	require.Len(t, slots, 10)
	// Day-major, hour-minor: the first day's hours come first, in order.
	assert.Equal(t, "2025-02-01", slots[0].Date)
	assert.Equal(t, 9, slots[0].Hour)
	assert.Equal(t, 14, slots[3].Hour)
	assert.Equal(t, "2025-02-02", slots[4].Date)
}

func TestFindAvailableSlots_NeverOverlapsInput(t *testing.T) {
	e := newEngine()
	var busy []models.Event
	for d := 1; d <= 5; d++ {
		busy = append(busy,
			event(fmt.Sprintf("am-%d", d), at(d, 9, 30), at(d, 11, 30)),
			event(fmt.Sprintf("pm-%d", d), at(d, 14, 0), at(d, 16, 0)),
		)
	}

	slots := e.FindAvailableSlots(busy, at(1, 0, 0), at(5, 23, 59), 60, defaultHours)

	for _, s := range slots {
		for _, b := range busy {
			overlap := s.StartTime.Before(b.EndTime) && s.EndTime.After(b.StartTime)
			assert.False(t, overlap, "slot %v-%v overlaps %s", s.StartTime, s.EndTime, b.ID)
		}
	}
}

func TestResolvePreferredHours(t *testing.T) {
	tests := []struct {
		name     string
		tokens   []string
		expected []int
	}{
		{name: "morning", tokens: []string{"morning"}, expected: []int{9, 10, 11}},
		{name: "afternoon and evening", tokens: []string{"afternoon", "evening"}, expected: []int{14, 15, 16, 17, 18, 19}},
		{name: "numeric pm shift", tokens: []string{"3pm"}, expected: []int{15}},
		{name: "numeric 24h", tokens: []string{"14"}, expected: []int{14}},
		{name: "out of business hours rejected", tokens: []string{"8pm", "7"}, expected: defaultHours},
		{name: "dedup and sort", tokens: []string{"afternoon", "2pm", "morning"}, expected: []int{9, 10, 11, 14, 15, 16}},
		{name: "empty falls back", tokens: nil, expected: defaultHours},
		{name: "garbage falls back", tokens: []string{"whenever", ""}, expected: defaultHours},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolvePreferredHours(tt.tokens))
		})
	}
}

func TestSuggestMeetingTime_AnchorsOnDateExpression(t *testing.T) {
	e := newEngine()

	s := e.SuggestMeetingTime(nil, 60, "tomorrow", []string{"morning"})

	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), s.WindowStart)
	assert.Equal(t, 24*time.Hour, s.WindowEnd.Sub(s.WindowStart))
	require.NotEmpty(t, s.Slots)
	for _, slot := range s.Slots {
		assert.Equal(t, "2025-02-01", slot.Date)
		assert.Contains(t, []int{9, 10, 11}, slot.Hour)
	}
}

func TestSuggestMeetingTime_DefaultsToSevenDayWindow(t *testing.T) {
	e := newEngine()

	s := e.SuggestMeetingTime(nil, 30, "", nil)

	assert.Equal(t, testNow, s.WindowStart)
	assert.Equal(t, testNow.AddDate(0, 0, 7), s.WindowEnd)
	require.NotEmpty(t, s.Slots)
	for _, slot := range s.Slots {
		assert.False(t, slot.StartTime.Before(testNow))
		assert.Contains(t, defaultHours, slot.Hour)
	}
}
