// internal/models/event.go
package models

import "time"

// Event is a persisted calendar event.
type Event struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"userId" db:"user_id"`
	CalendarID  string     `json:"calendarId" db:"calendar_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description,omitempty" db:"description"`
	Location    string     `json:"location,omitempty" db:"location"`
	StartTime   time.Time  `json:"startTime" db:"start_time"`
	EndTime     time.Time  `json:"endTime" db:"end_time"`
	IsAllDay    bool       `json:"isAllDay" db:"is_all_day"`
	Attendees   []Attendee `json:"attendees,omitempty" db:"-"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// Attendee is a person invited to an event.
type Attendee struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// EventSummary is the compact representation embedded in conflict results
// and grounding payloads.
type EventSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Location  string    `json:"location,omitempty"`
}

// Summary converts an event to its compact form.
func (e *Event) Summary() EventSummary {
	return EventSummary{
		ID:        e.ID,
		Title:     e.Title,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Location:  e.Location,
	}
}

// EventDraft is a tentative, unpersisted event extracted from free text.
// StartTime and EndTime are always absolute once extraction succeeds.
type EventDraft struct {
	Title         string     `json:"title,omitempty"`
	Description   string     `json:"description,omitempty"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       time.Time  `json:"endTime"`
	Location      string     `json:"location,omitempty"`
	Attendees     []Attendee `json:"attendees,omitempty"`
	CalendarID    string     `json:"calendarId,omitempty"`
	IsAllDay      bool       `json:"isAllDay"`
	Confidence    float64    `json:"confidence"`
	MissingFields []string   `json:"missingFields,omitempty"`
}
