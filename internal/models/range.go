// internal/models/range.go
package models

import "time"

// DateRange bounds a temporal query. Nil on both ends means no temporal
// constraint was found in the query text.
type DateRange struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// IsZero reports whether no bound was resolved.
func (r DateRange) IsZero() bool {
	return r.Start == nil && r.End == nil
}

// ConflictResult reports temporal overlaps between a proposed interval and
// existing events.
type ConflictResult struct {
	HasConflict   bool           `json:"hasConflict"`
	Conflicts     []EventSummary `json:"conflicts"`
	ConflictCount int            `json:"conflictCount"`
}

// AvailableSlot is a candidate free interval satisfying duration and
// preferred-hour constraints.
type AvailableSlot struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Hour      int       `json:"hour"`
}
