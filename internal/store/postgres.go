// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	stderrors "calendar-assistant/internal/common/errors"
	"calendar-assistant/internal/models"
)

// PostgresStore implements CalendarStore, EventStore and TaskStore over a
// single database handle.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByUser(ctx context.Context, userID string) ([]models.Calendar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, color, is_primary, created_at
		FROM calendars
		WHERE user_id = $1
		ORDER BY is_primary DESC, created_at ASC`, userID)
	if err != nil {
		return nil, stderrors.NewDatabaseQueryError(err)
	}
	defer rows.Close()

	var calendars []models.Calendar
	for rows.Next() {
		var c models.Calendar
		var color sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &color, &c.IsPrimary, &c.CreatedAt); err != nil {
			return nil, stderrors.NewDatabaseQueryError(err)
		}
		c.Color = color.String
		calendars = append(calendars, c)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewDatabaseQueryError(err)
	}
	return calendars, nil
}

func (s *PostgresStore) FindByIDForUser(ctx context.Context, id, userID string) (*models.Calendar, error) {
	var c models.Calendar
	var color sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, color, is_primary, created_at
		FROM calendars
		WHERE id = $1 AND user_id = $2`, id, userID).Scan(
		&c.ID, &c.UserID, &c.Name, &color, &c.IsPrimary, &c.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, stderrors.NewDatabaseQueryError(err)
	}
	c.Color = color.String
	return &c, nil
}

func (s *PostgresStore) FindByUserInRange(ctx context.Context, userID string, start, end time.Time) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, calendar_id, title, description, location,
		       start_time, end_time, is_all_day, attendees, created_at, updated_at
		FROM events
		WHERE user_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time ASC`, userID, start, end)
	if err != nil {
		return nil, stderrors.NewDatabaseQueryError(err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var description, location sql.NullString
		var attendees []byte
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.CalendarID, &e.Title, &description, &location,
			&e.StartTime, &e.EndTime, &e.IsAllDay, &attendees, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, stderrors.NewDatabaseQueryError(err)
		}
		e.Description = description.String
		e.Location = location.String
		if len(attendees) > 0 {
			// Malformed attendee JSON loses the attendee list, not the event.
			_ = json.Unmarshal(attendees, &e.Attendees)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewDatabaseQueryError(err)
	}
	return events, nil
}

func (s *PostgresStore) Create(ctx context.Context, userID string, draft models.EventDraft) (*models.Event, error) {
	now := time.Now().UTC()
	event := &models.Event{
		ID:          uuid.New().String(),
		UserID:      userID,
		CalendarID:  draft.CalendarID,
		Title:       draft.Title,
		Description: draft.Description,
		Location:    draft.Location,
		StartTime:   draft.StartTime,
		EndTime:     draft.EndTime,
		IsAllDay:    draft.IsAllDay,
		Attendees:   draft.Attendees,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	attendees, err := json.Marshal(event.Attendees)
	if err != nil {
		return nil, stderrors.NewDatabaseQueryError(err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, user_id, calendar_id, title, description, location,
			start_time, end_time, is_all_day, attendees, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		event.ID, event.UserID, event.CalendarID, event.Title, event.Description,
		event.Location, event.StartTime, event.EndTime, event.IsAllDay,
		attendees, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return nil, stderrors.NewDatabaseQueryError(err)
	}
	return event, nil
}

// TaskStore

type PostgresTaskStore struct {
	db *sql.DB
}

func NewPostgresTaskStore(db *sql.DB) *PostgresTaskStore {
	return &PostgresTaskStore{db: db}
}

func (s *PostgresTaskStore) FindByUser(ctx context.Context, userID string, filters models.TaskFilters) ([]models.Task, error) {
	query := `
		SELECT id, user_id, calendar_id, title, description, priority, status,
		       due_date, created_at, updated_at
		FROM tasks
		WHERE user_id = $1`
	args := []interface{}{userID}

	if filters.Status != "" {
		args = append(args, filters.Status)
		query += ` AND status = $2`
	}
	query += ` ORDER BY due_date ASC NULLS LAST, created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, stderrors.NewDatabaseQueryError(err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		var calendarID, description sql.NullString
		var dueDate sql.NullTime
		if err := rows.Scan(
			&t.ID, &t.UserID, &calendarID, &t.Title, &description,
			&t.Priority, &t.Status, &dueDate, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, stderrors.NewDatabaseQueryError(err)
		}
		t.CalendarID = calendarID.String
		t.Description = description.String
		if dueDate.Valid {
			due := dueDate.Time
			t.DueDate = &due
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewDatabaseQueryError(err)
	}
	return filterTasks(tasks, filters), nil
}

// filterTasks applies the filters not pushed into SQL.
func filterTasks(tasks []models.Task, filters models.TaskFilters) []models.Task {
	out := tasks[:0]
	for _, t := range tasks {
		if filters.Priority != "" && t.Priority != filters.Priority {
			continue
		}
		if filters.DueFrom != nil && (t.DueDate == nil || t.DueDate.Before(*filters.DueFrom)) {
			continue
		}
		if filters.DueTo != nil && (t.DueDate == nil || t.DueDate.After(*filters.DueTo)) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (s *PostgresTaskStore) Create(ctx context.Context, userID string, draft models.TaskDraft) (*models.Task, error) {
	now := time.Now().UTC()
	task := &models.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		CalendarID:  draft.CalendarID,
		Title:       draft.Title,
		Description: draft.Description,
		Priority:    draft.Priority,
		Status:      draft.Status,
		DueDate:     draft.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var calendarID interface{}
	if task.CalendarID != "" {
		calendarID = task.CalendarID
	}
	var dueDate interface{}
	if task.DueDate != nil {
		dueDate = *task.DueDate
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, calendar_id, title, description, priority,
			status, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		task.ID, task.UserID, calendarID, task.Title, task.Description,
		task.Priority, task.Status, dueDate, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return nil, stderrors.NewDatabaseQueryError(err)
	}
	return task, nil
}
