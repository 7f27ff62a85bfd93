// internal/models/task.go
package models

import "time"

// Priority is the urgency level of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid reports whether p is one of the four task priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
	StatusCancelled  TaskStatus = "cancelled"
)

// IsValid reports whether s is a known task status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Task is a persisted task.
type Task struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"userId" db:"user_id"`
	CalendarID  string     `json:"calendarId,omitempty" db:"calendar_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description,omitempty" db:"description"`
	Priority    Priority   `json:"priority" db:"priority"`
	Status      TaskStatus `json:"status" db:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty" db:"due_date"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// TaskDraft is a tentative, unpersisted task extracted from free text.
type TaskDraft struct {
	Title         string     `json:"title,omitempty"`
	Description   string     `json:"description,omitempty"`
	Priority      Priority   `json:"priority"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	CalendarID    string     `json:"calendarId,omitempty"`
	Status        TaskStatus `json:"status"`
	Confidence    float64    `json:"confidence"`
	MissingFields []string   `json:"missingFields,omitempty"`
}

// TaskFilters narrows task store lookups.
type TaskFilters struct {
	Status   TaskStatus
	Priority Priority
	DueFrom  *time.Time
	DueTo    *time.Time
}
