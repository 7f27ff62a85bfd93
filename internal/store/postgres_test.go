// internal/store/postgres_test.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "calendar-assistant/internal/common/errors"
	"calendar-assistant/internal/models"
)

func newMockDB(t *testing.T) (*PostgresStore, *PostgresTaskStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), NewPostgresTaskStore(db), mock
}

func TestFindByUser_Calendars(t *testing.T) {
	s, _, mock := newMockDB(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "name", "color", "is_primary", "created_at"}).
		AddRow("cal-1", "user-1", "Work", "#4285f4", true, now).
		AddRow("cal-2", "user-1", "Personal", nil, false, now)
	mock.ExpectQuery(`SELECT id, user_id, name, color, is_primary, created_at`).
		WithArgs("user-1").
		WillReturnRows(rows)

	calendars, err := s.FindByUser(context.Background(), "user-1")

	require.NoError(t, err)
	require.Len(t, calendars, 2)
	assert.True(t, calendars[0].IsPrimary)
	assert.Equal(t, "Work", calendars[0].Name)
	assert.Empty(t, calendars[1].Color)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDForUser_NotFoundIsNil(t *testing.T) {
	s, _, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT id, user_id, name, color, is_primary, created_at`).
		WithArgs("cal-9", "user-1").
		WillReturnError(sql.ErrNoRows)

	calendar, err := s.FindByIDForUser(context.Background(), "cal-9", "user-1")

	assert.NoError(t, err)
	assert.Nil(t, calendar)
}

func TestFindByUserInRange_Events(t *testing.T) {
	s, _, mock := newMockDB(t)

	start := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "calendar_id", "title", "description", "location",
		"start_time", "end_time", "is_all_day", "attendees", "created_at", "updated_at",
	}).AddRow(
		"evt-1", "user-1", "cal-1", "Standup", nil, "Room 4",
		start.Add(10*time.Hour), start.Add(11*time.Hour), false,
		[]byte(`[{"email":"ana@example.com","name":"Ana"}]`), start, start,
	)
	mock.ExpectQuery(`SELECT id, user_id, calendar_id, title, description, location`).
		WithArgs("user-1", start, end).
		WillReturnRows(rows)

	events, err := s.FindByUserInRange(context.Background(), "user-1", start, end)

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Standup", events[0].Title)
	assert.Equal(t, "Room 4", events[0].Location)
	require.Len(t, events[0].Attendees, 1)
	assert.Equal(t, "ana@example.com", events[0].Attendees[0].Email)
}

func TestCreate_Event(t *testing.T) {
	s, _, mock := newMockDB(t)

	draft := models.EventDraft{
		Title:      "Planning",
		CalendarID: "cal-1",
		StartTime:  time.Date(2025, 2, 1, 14, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2025, 2, 1, 15, 0, 0, 0, time.UTC),
	}
	mock.ExpectExec(`INSERT INTO events`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event, err := s.Create(context.Background(), "user-1", draft)

	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "user-1", event.UserID)
	assert.Equal(t, draft.StartTime, event.StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_EventQueryFailure(t *testing.T) {
	s, _, mock := newMockDB(t)

	mock.ExpectExec(`INSERT INTO events`).
		WillReturnError(errors.New("connection reset"))

	_, err := s.Create(context.Background(), "user-1", models.EventDraft{Title: "x"})

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeDatabaseQueryFailed, stderrors.CodeOf(err))
}

func TestFindByUser_TasksWithFilters(t *testing.T) {
	_, s, mock := newMockDB(t)

	now := time.Now()
	due1 := now.Add(24 * time.Hour)
	due2 := now.Add(72 * time.Hour)
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "calendar_id", "title", "description", "priority",
		"status", "due_date", "created_at", "updated_at",
	}).
		AddRow("task-1", "user-1", nil, "Report", nil, "urgent", "todo", due1, now, now).
		AddRow("task-2", "user-1", nil, "Groceries", nil, "low", "todo", due2, now, now).
		AddRow("task-3", "user-1", nil, "Someday", nil, "urgent", "todo", nil, now, now)
	mock.ExpectQuery(`SELECT id, user_id, calendar_id, title, description, priority`).
		WithArgs("user-1", "todo").
		WillReturnRows(rows)

	tasks, err := s.FindByUser(context.Background(), "user-1", models.TaskFilters{
		Status:   models.StatusTodo,
		Priority: models.PriorityUrgent,
		DueFrom:  &now,
	})

	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Report", tasks[0].Title)
}

func TestCreate_TaskNilDueDate(t *testing.T) {
	_, s, mock := newMockDB(t)

	mock.ExpectExec(`INSERT INTO tasks`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	task, err := s.Create(context.Background(), "user-1", models.TaskDraft{
		Title:    "Follow up",
		Priority: models.PriorityMedium,
		Status:   models.StatusTodo,
	})

	require.NoError(t, err)
	assert.Nil(t, task.DueDate)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.NoError(t, mock.ExpectationsWereMet())
}
