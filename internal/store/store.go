// internal/store/store.go

// Package store defines the persistence collaborators the assistant core
// depends on, plus the Postgres and Redis implementations. Lookups return
// empty results or nil rather than errors when nothing matches.
package store

import (
	"context"
	"time"

	"calendar-assistant/internal/models"
)

// CalendarStore resolves a user's calendars.
type CalendarStore interface {
	// FindByUser returns all calendars owned by the user, primary first.
	FindByUser(ctx context.Context, userID string) ([]models.Calendar, error)
	// FindByIDForUser returns the calendar only if it belongs to the user;
	// nil without error otherwise.
	FindByIDForUser(ctx context.Context, id, userID string) (*models.Calendar, error)
}

// EventStore reads and creates calendar events.
type EventStore interface {
	FindByUserInRange(ctx context.Context, userID string, start, end time.Time) ([]models.Event, error)
	Create(ctx context.Context, userID string, draft models.EventDraft) (*models.Event, error)
}

// TaskStore reads and creates tasks.
type TaskStore interface {
	FindByUser(ctx context.Context, userID string, filters models.TaskFilters) ([]models.Task, error)
	Create(ctx context.Context, userID string, draft models.TaskDraft) (*models.Task, error)
}

// ConversationStore owns the append-only conversation log.
type ConversationStore interface {
	// GetOrCreate reuses an explicitly supplied conversation when it belongs
	// to the user, else the user's most recently active conversation, else
	// creates a new one.
	GetOrCreate(ctx context.Context, userID, conversationID string) (*models.Conversation, error)
	AppendTurn(ctx context.Context, conversationID, role, content string, metadata map[string]interface{}) error
	// RecentTurns returns up to limit turns, oldest first.
	RecentTurns(ctx context.Context, conversationID string, limit int) ([]models.ConversationTurn, error)
}
