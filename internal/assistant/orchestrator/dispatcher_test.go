// internal/assistant/orchestrator/dispatcher_test.go
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendar-assistant/internal/common/config"
	stderrors "calendar-assistant/internal/common/errors"
	"calendar-assistant/internal/common/logger"
	"calendar-assistant/internal/llm"
	"calendar-assistant/internal/models"
)

// ==========================
// Test Fakes
// ==========================

type fakeCalendarStore struct {
	calendars []models.Calendar
}

func (f *fakeCalendarStore) FindByUser(ctx context.Context, userID string) ([]models.Calendar, error) {
	return f.calendars, nil
}

func (f *fakeCalendarStore) FindByIDForUser(ctx context.Context, id, userID string) (*models.Calendar, error) {
	for i := range f.calendars {
		if f.calendars[i].ID == id && f.calendars[i].UserID == userID {
			return &f.calendars[i], nil
		}
	}
	return nil, nil
}

type fakeEventStore struct {
	existing []models.Event
	created  []models.Event
}

func (f *fakeEventStore) FindByUserInRange(ctx context.Context, userID string, start, end time.Time) ([]models.Event, error) {
	return f.existing, nil
}

func (f *fakeEventStore) Create(ctx context.Context, userID string, draft models.EventDraft) (*models.Event, error) {
	event := models.Event{
		ID:         "evt-created",
		UserID:     userID,
		CalendarID: draft.CalendarID,
		Title:      draft.Title,
		StartTime:  draft.StartTime,
		EndTime:    draft.EndTime,
	}
	f.created = append(f.created, event)
	return &event, nil
}

type fakeTaskStore struct {
	created []models.Task
}

func (f *fakeTaskStore) FindByUser(ctx context.Context, userID string, filters models.TaskFilters) ([]models.Task, error) {
	return nil, nil
}

func (f *fakeTaskStore) Create(ctx context.Context, userID string, draft models.TaskDraft) (*models.Task, error) {
	task := models.Task{
		ID:         "task-created",
		UserID:     userID,
		CalendarID: draft.CalendarID,
		Title:      draft.Title,
		Priority:   draft.Priority,
		Status:     draft.Status,
		DueDate:    draft.DueDate,
	}
	f.created = append(f.created, task)
	return &task, nil
}

type appendedTurn struct {
	conversationID string
	role           string
	content        string
}

type fakeConversationStore struct {
	mu           sync.Mutex
	conversation models.Conversation
	turns        []appendedTurn
	history      []models.ConversationTurn
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{
		conversation: models.Conversation{
			ID:           "conv-1",
			UserID:       "user-1",
			CreatedAt:    time.Now(),
			LastActivity: time.Now(),
		},
	}
}

func (f *fakeConversationStore) GetOrCreate(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	conv := f.conversation
	return &conv, nil
}

func (f *fakeConversationStore) AppendTurn(ctx context.Context, conversationID, role, content string, metadata map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, appendedTurn{conversationID, role, content})
	return nil
}

func (f *fakeConversationStore) RecentTurns(ctx context.Context, conversationID string, limit int) ([]models.ConversationTurn, error) {
	return f.history, nil
}

type fixture struct {
	dispatcher    *Dispatcher
	stub          *llm.StubClient
	calendars     *fakeCalendarStore
	events        *fakeEventStore
	tasks         *fakeTaskStore
	conversations *fakeConversationStore
}

func newFixture(stub *llm.StubClient) *fixture {
	f := &fixture{
		stub: stub,
		calendars: &fakeCalendarStore{calendars: []models.Calendar{
			{ID: "cal-1", UserID: "user-1", Name: "Work", IsPrimary: true},
			{ID: "cal-2", UserID: "user-1", Name: "Personal"},
		}},
		events:        &fakeEventStore{},
		tasks:         &fakeTaskStore{},
		conversations: newFakeConversationStore(),
	}
	f.dispatcher = NewDispatcher(Deps{
		Client:        stub,
		Calendars:     f.calendars,
		Events:        f.events,
		Tasks:         f.tasks,
		Conversations: f.conversations,
		Assistant: config.AssistantConfig{
			ContextTokenBudget:   4000,
			SystemPromptHeadroom: 500,
			HistoryLimit:         50,
			AdvancedModelRole:    "premium",
		},
		LLM: config.LLMConfig{
			Model:         "gpt-4o-mini",
			AdvancedModel: "gpt-4o",
		},
		Logger: logger.NewNoOpLogger(),
	})
	return f
}

// ==========================
// Dispatch Tests
// ==========================

func TestHandle_GeneralChat(t *testing.T) {
	stub := &llm.StubClient{Disabled: true, Responses: []string{"Hi there! How can I help with your schedule?"}}
	f := newFixture(stub)

	resp, err := f.dispatcher.Handle(context.Background(), Request{
		UserID:    "user-1",
		Utterance: "hello",
	})

	require.NoError(t, err)
	assert.Equal(t, models.IntentGeneralChat, resp.Intent)
	assert.Equal(t, "conv-1", resp.ConversationID)
	assert.Equal(t, "Hi there! How can I help with your schedule?", resp.Message)
}

func TestHandle_PersistsBothTurnsInOrder(t *testing.T) {
	stub := &llm.StubClient{Disabled: true, Responses: []string{"Sure."}}
	f := newFixture(stub)

	resp, err := f.dispatcher.Handle(context.Background(), Request{
		UserID:    "user-1",
		Utterance: "hello",
	})

	require.NoError(t, err)
	require.Len(t, f.conversations.turns, 2)
	assert.Equal(t, models.RoleUser, f.conversations.turns[0].role)
	assert.Equal(t, "hello", f.conversations.turns[0].content)
	assert.Equal(t, models.RoleAssistant, f.conversations.turns[1].role)
	assert.Equal(t, resp.Message, f.conversations.turns[1].content)
}

func TestHandle_SerializesTurnsPerConversation(t *testing.T) {
	stub := &llm.StubClient{Responses: []string{"Sure thing."}}
	f := newFixture(stub)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := f.dispatcher.Handle(context.Background(), Request{
				UserID:    "user-1",
				Utterance: fmt.Sprintf("hello %d", n),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Every request holds the conversation lock across both appends, so
	// the log must be strict user/assistant pairs with no interleaving.
	turns := f.conversations.turns
	require.Len(t, turns, 2*workers)
	seen := map[string]bool{}
	for i := 0; i < len(turns); i += 2 {
		assert.Equal(t, models.RoleUser, turns[i].role)
		assert.Equal(t, models.RoleAssistant, turns[i+1].role)
		assert.False(t, seen[turns[i].content], "duplicate user turn %q", turns[i].content)
		seen[turns[i].content] = true
	}
	assert.Len(t, seen, workers)
}

func TestConversationLock_KeyedByConversation(t *testing.T) {
	f := newFixture(&llm.StubClient{Disabled: true})

	a := f.dispatcher.conversationLock("conv-a")
	b := f.dispatcher.conversationLock("conv-b")

	// Distinct conversations get distinct locks and never contend.
	assert.NotSame(t, a, b)
	assert.Same(t, a, f.dispatcher.conversationLock("conv-a"))
	assert.Same(t, b, f.dispatcher.conversationLock("conv-b"))
}

func TestHandle_CreateEventSuccess(t *testing.T) {
	stub := &llm.StubClient{Responses: []string{
		`{"intent": "create_event", "confidence": 0.95, "entities": {}}`,
		`{"title": "Meeting with John", "start_time": "2030-03-01T14:00:00Z", "end_time": "1 hour", "confidence": 0.9}`,
	}}
	f := newFixture(stub)

	resp, err := f.dispatcher.Handle(context.Background(), Request{
		UserID:    "user-1",
		Utterance: "Schedule a meeting with John on March 1st 2030 at 2pm",
	})

	require.NoError(t, err)
	assert.Equal(t, models.IntentCreateEvent, resp.Intent)
	require.NotNil(t, resp.Action)
	assert.True(t, resp.Action.Success)
	assert.Equal(t, "event_created", resp.Action.Type)
	require.Len(t, f.events.created, 1)
	assert.Equal(t, "Meeting with John", f.events.created[0].Title)
	// Absent calendar id resolves to the primary calendar.
	assert.Equal(t, "cal-1", f.events.created[0].CalendarID)
	assert.Contains(t, resp.Message, `"Meeting with John"`)
	// Action branches persist both turns too.
	require.Len(t, f.conversations.turns, 2)
}

func TestHandle_CreateEventLowConfidenceAsksForInfo(t *testing.T) {
	stub := &llm.StubClient{Responses: []string{
		`{"intent": "create_event", "confidence": 0.95}`,
		`{"title": "Something", "start_time": "tomorrow", "confidence": 0.3}`,
	}}
	f := newFixture(stub)

	resp, err := f.dispatcher.Handle(context.Background(), Request{
		UserID:    "user-1",
		Utterance: "maybe set up something tomorrow?",
	})

	require.NoError(t, err)
	require.NotNil(t, resp.Action)
	assert.False(t, resp.Action.Success)
	assert.Contains(t, resp.Message, "more information")
	assert.Empty(t, f.events.created)
}

func TestHandle_CreateEventNoCalendars(t *testing.T) {
	stub := &llm.StubClient{Responses: []string{
		`{"intent": "create_event", "confidence": 0.95}`,
		`{"title": "Standup", "start_time": "2030-03-01T14:00:00Z", "confidence": 0.9}`,
	}}
	f := newFixture(stub)
	f.calendars.calendars = nil

	resp, err := f.dispatcher.Handle(context.Background(), Request{
		UserID:    "user-1",
		Utterance: "schedule standup",
	})

	require.NoError(t, err)
	require.NotNil(t, resp.Action)
	assert.False(t, resp.Action.Success)
	assert.Contains(t, resp.Message, "don't have a calendar")
	assert.Empty(t, f.events.created)
}

func TestHandle_CreateTaskSuccess(t *testing.T) {
	stub := &llm.StubClient{Responses: []string{
		`{"intent": "create_task", "confidence": 0.95}`,
		`{"title": "Finish the report", "priority": "urgent", "due_date": "2030-03-01T17:00:00Z", "status": "todo", "confidence": 0.9}`,
	}}
	f := newFixture(stub)

	resp, err := f.dispatcher.Handle(context.Background(), Request{
		UserID:    "user-1",
		Utterance: "remind me to finish the report asap",
	})

	require.NoError(t, err)
	require.NotNil(t, resp.Action)
	assert.True(t, resp.Action.Success)
	require.Len(t, f.tasks.created, 1)
	assert.Equal(t, models.PriorityUrgent, f.tasks.created[0].Priority)
	// No calendar named in the draft: the task links to the primary.
	assert.Equal(t, "cal-1", f.tasks.created[0].CalendarID)
	assert.Contains(t, resp.Message, "urgent priority")
}

func TestHandle_CreateTaskWithoutCalendarsStaysUnlinked(t *testing.T) {
	stub := &llm.StubClient{Responses: []string{
		`{"intent": "create_task", "confidence": 0.95}`,
		`{"title": "Buy groceries", "status": "todo", "confidence": 0.9}`,
	}}
	f := newFixture(stub)
	f.calendars.calendars = nil

	resp, err := f.dispatcher.Handle(context.Background(), Request{
		UserID:    "user-1",
		Utterance: "remind me to buy groceries",
	})

	require.NoError(t, err)
	require.NotNil(t, resp.Action)
	assert.True(t, resp.Action.Success)
	require.Len(t, f.tasks.created, 1)
	assert.Empty(t, f.tasks.created[0].CalendarID)
}

func TestHandle_ExtractionFailureAsksForInfo(t *testing.T) {
	stub := &llm.StubClient{Responses: []string{
		`{"intent": "create_event", "confidence": 0.95}`,
		`I could not figure that out, sorry.`,
	}}
	f := newFixture(stub)

	resp, err := f.dispatcher.Handle(context.Background(), Request{
		UserID:    "user-1",
		Utterance: "schedule the thing",
	})

	require.NoError(t, err)
	require.NotNil(t, resp.Action)
	assert.False(t, resp.Action.Success)
	assert.Contains(t, resp.Message, "more information")
}

func TestHandle_ModificationGuidance(t *testing.T) {
	stub := &llm.StubClient{Responses: []string{
		`{"intent": "delete_event", "confidence": 0.9}`,
	}}
	f := newFixture(stub)

	resp, err := f.dispatcher.Handle(context.Background(), Request{
		UserID:    "user-1",
		Utterance: "delete my 3pm meeting",
	})

	require.NoError(t, err)
	assert.Equal(t, models.IntentDeleteEvent, resp.Intent)
	assert.Contains(t, resp.Message, "can't delete events from chat yet")
	// Guidance responses still persist both turns.
	require.Len(t, f.conversations.turns, 2)
}

func TestHandle_AccessGateRefusesBeforeAnyWork(t *testing.T) {
	stub := &llm.StubClient{Responses: []string{"should never be used"}}
	f := newFixture(stub)

	_, err := f.dispatcher.Handle(context.Background(), Request{
		UserID:    "user-1",
		Utterance: "hello",
		Model:     "gpt-4o",
	})

	require.Error(t, err)
	assert.True(t, stderrors.IsAccessDenied(err))
	assert.Zero(t, stub.CallCount())
	assert.Empty(t, f.conversations.turns)
}

func TestHandle_AccessGateAllowsWithRole(t *testing.T) {
	stub := &llm.StubClient{Disabled: true, Responses: []string{"Hello!"}}
	f := newFixture(stub)

	resp, err := f.dispatcher.Handle(context.Background(), Request{
		UserID:    "user-1",
		Utterance: "hello",
		Model:     "gpt-4o",
		Roles:     []string{"premium"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello!", resp.Message)
}

func TestHandle_ChatFailureIsPolite(t *testing.T) {
	stub := &llm.StubClient{Disabled: true, Err: assertError("llm down")}
	f := newFixture(stub)

	resp, err := f.dispatcher.Handle(context.Background(), Request{
		UserID:    "user-1",
		Utterance: "hello",
	})

	require.NoError(t, err)
	assert.Equal(t, chatFailureMessage, resp.Message)
	// The assistant turn still records the polite failure.
	require.Len(t, f.conversations.turns, 2)
}

type assertError string

func (e assertError) Error() string { return string(e) }

// ==========================
// Streaming Tests
// ==========================

func TestHandleStream_DeltasThenFinal(t *testing.T) {
	stub := &llm.StubClient{Disabled: true, Responses: []string{"Hello! What can I do for you today?"}}
	f := newFixture(stub)

	var events []StreamEvent
	f.dispatcher.HandleStream(context.Background(), Request{
		UserID:    "user-1",
		Utterance: "hi",
	}, func(ev StreamEvent) error {
		events = append(events, ev)
		return nil
	})

	require.NotEmpty(t, events)
	final := events[len(events)-1]
	require.NotNil(t, final.Final)
	assert.Empty(t, final.Delta)

	var assembled strings.Builder
	for _, ev := range events[:len(events)-1] {
		assert.Nil(t, ev.Final)
		assembled.WriteString(ev.Delta)
	}
	assert.Equal(t, final.Final.Message, assembled.String())
}

func TestHandleStream_ErrorEvent(t *testing.T) {
	stub := &llm.StubClient{}
	f := newFixture(stub)

	var events []StreamEvent
	f.dispatcher.HandleStream(context.Background(), Request{
		UserID:    "user-1",
		Utterance: "hello",
		Model:     "gpt-4o",
	}, func(ev StreamEvent) error {
		events = append(events, ev)
		return nil
	})

	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].Error)
	assert.Nil(t, events[0].Final)
}

// ==========================
// History Truncation Tests
// ==========================

func TestTruncateHistory_StripsSystemTurns(t *testing.T) {
	turns := []models.ConversationTurn{
		{Role: models.RoleSystem, Content: "internal note"},
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	}

	messages := truncateHistory(turns, 1000)

	require.Len(t, messages, 2)
	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, models.RoleAssistant, messages[1].Role)
}

func TestTruncateHistory_KeepsNewestWithinBudget(t *testing.T) {
	// Each turn estimates to 25 tokens (100 chars / 4).
	content := strings.Repeat("x", 100)
	var turns []models.ConversationTurn
	for i := 0; i < 10; i++ {
		turns = append(turns, models.ConversationTurn{Role: models.RoleUser, Content: content})
	}
	turns[9].Content = strings.Repeat("z", 100)

	messages := truncateHistory(turns, 60)

	// Budget of 60 tokens fits two 25-token turns, newest last.
	require.Len(t, messages, 2)
	assert.Equal(t, strings.Repeat("z", 100), messages[1].Content)
}

func TestTruncateHistory_ZeroBudget(t *testing.T) {
	turns := []models.ConversationTurn{{Role: models.RoleUser, Content: "hi"}}
	assert.Empty(t, truncateHistory(turns, 0))
}
