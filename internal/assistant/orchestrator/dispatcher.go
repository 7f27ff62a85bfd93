// internal/assistant/orchestrator/dispatcher.go

// Package orchestrator routes classified utterances to the pipeline
// components, manages conversation continuity and history truncation, and
// assembles the response envelope returned to the transport layer.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"calendar-assistant/internal/assistant/extract"
	"calendar-assistant/internal/assistant/intent"
	"calendar-assistant/internal/assistant/query"
	"calendar-assistant/internal/assistant/schedule"
	"calendar-assistant/internal/common/config"
	stderrors "calendar-assistant/internal/common/errors"
	"calendar-assistant/internal/common/logger"
	"calendar-assistant/internal/common/metrics"
	"calendar-assistant/internal/llm"
	"calendar-assistant/internal/models"
	"calendar-assistant/internal/store"
)

const genericFailureMessage = "Something went wrong handling that request. Please try again."

// Request is one incoming utterance plus the caller's identity and options.
type Request struct {
	UserID         string   `json:"userId"`
	Utterance      string   `json:"message"`
	ConversationID string   `json:"conversationId,omitempty"`
	Model          string   `json:"model,omitempty"`
	Roles          []string `json:"-"`
}

// Response is the envelope returned for every handled utterance.
type Response struct {
	Message        string        `json:"message"`
	ConversationID string        `json:"conversationId"`
	Intent         models.Intent `json:"intent"`
	Action         *ActionResult `json:"action,omitempty"`
	Usage          llm.Usage     `json:"usage"`
}

// ActionResult reports the outcome of an action branch (event/task creation
// or scheduling suggestion).
type ActionResult struct {
	Type          string                 `json:"type"`
	Success       bool                   `json:"success"`
	Event         *models.Event          `json:"event,omitempty"`
	Task          *models.Task           `json:"task,omitempty"`
	Slots         []models.AvailableSlot `json:"slots,omitempty"`
	MissingFields []string               `json:"missingFields,omitempty"`
}

// StreamEvent is one element of a streamed response: zero or more deltas,
// then exactly one terminal event carrying either the final envelope or an
// error message.
type StreamEvent struct {
	Delta string    `json:"delta,omitempty"`
	Final *Response `json:"final,omitempty"`
	Error string    `json:"error,omitempty"`
}

// Dispatcher wires the pipeline components together. Handlers for different
// conversations run concurrently; handlers for the same conversation are
// serialized so turn ordering and history accounting stay correct.
type Dispatcher struct {
	classifier     *intent.Classifier
	eventExtractor *extract.EventExtractor
	taskExtractor  *extract.TaskExtractor
	queryProcessor *query.Processor
	engine         *schedule.Engine

	calendars     store.CalendarStore
	events        store.EventStore
	tasks         store.TaskStore
	conversations store.ConversationStore

	client llm.Client
	cfg    config.AssistantConfig
	llmCfg config.LLMConfig
	logger logger.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Deps struct {
	Client        llm.Client
	Calendars     store.CalendarStore
	Events        store.EventStore
	Tasks         store.TaskStore
	Conversations store.ConversationStore
	Assistant     config.AssistantConfig
	LLM           config.LLMConfig
	Logger        logger.Logger
}

func NewDispatcher(deps Deps) *Dispatcher {
	log := deps.Logger.WithFields(map[string]interface{}{
		"component": "dispatcher",
	})
	return &Dispatcher{
		classifier:     intent.NewClassifier(deps.Client, deps.Logger),
		eventExtractor: extract.NewEventExtractor(deps.Client, deps.Logger),
		taskExtractor:  extract.NewTaskExtractor(deps.Client, deps.Logger),
		queryProcessor: query.NewProcessor(deps.Client, deps.Logger),
		engine:         schedule.NewEngine(),
		calendars:      deps.Calendars,
		events:         deps.Events,
		tasks:          deps.Tasks,
		conversations:  deps.Conversations,
		client:         deps.Client,
		cfg:            deps.Assistant,
		llmCfg:         deps.LLM,
		logger:         log,
		now:            time.Now,
		locks:          map[string]*sync.Mutex{},
	}
}

// Handle runs the full state machine for one utterance: classify, dispatch,
// persist both turns, respond. Unexpected panics become a generic failure
// response so a single utterance can never take the service down.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (resp *Response, err error) {
	started := d.now()

	if gateErr := d.checkModelAccess(req); gateErr != nil {
		return nil, gateErr
	}

	conv, err := d.conversations.GetOrCreate(ctx, req.UserID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	lock := d.conversationLock(conv.ID)
	lock.Lock()
	defer lock.Unlock()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while handling utterance", map[string]interface{}{
				"panic":          r,
				"conversationId": conv.ID,
			})
			resp = &Response{
				Message:        genericFailureMessage,
				ConversationID: conv.ID,
				Intent:         models.IntentGeneralChat,
			}
			err = nil
		}
	}()

	if err := d.conversations.AppendTurn(ctx, conv.ID, models.RoleUser, req.Utterance, nil); err != nil {
		return nil, err
	}

	classification := d.classifier.Classify(ctx, req.Utterance, "")
	resp = d.dispatch(ctx, req, conv, classification)
	resp.ConversationID = conv.ID
	resp.Intent = classification.Intent

	assistantMeta := map[string]interface{}{"intent": string(classification.Intent)}
	if err := d.conversations.AppendTurn(ctx, conv.ID, models.RoleAssistant, resp.Message, assistantMeta); err != nil {
		d.logger.Warn("failed to persist assistant turn", map[string]interface{}{
			"error":          err.Error(),
			"conversationId": conv.ID,
		})
	}

	outcome := "success"
	if resp.Action != nil && !resp.Action.Success {
		outcome = "incomplete"
	}
	metrics.UtterancesHandled.WithLabelValues(string(classification.Intent), outcome).Inc()
	metrics.DispatchDuration.WithLabelValues(string(classification.Intent)).Observe(time.Since(started).Seconds())

	return resp, nil
}

// HandleStream computes the response, then emits it as rune chunks followed
// by one terminal event. The assistant turn is persisted inside Handle, so a
// consumer dropping mid-stream never loses the turn.
func (d *Dispatcher) HandleStream(ctx context.Context, req Request, emit func(StreamEvent) error) {
	resp, err := d.Handle(ctx, req)
	if err != nil {
		_ = emit(StreamEvent{Error: stderrors.UserMessage(err)})
		return
	}

	for _, chunk := range chunkMessage(resp.Message, 24) {
		if ctx.Err() != nil {
			return
		}
		if emit(StreamEvent{Delta: chunk}) != nil {
			// Consumer is gone; the turn is already persisted.
			return
		}
	}
	_ = emit(StreamEvent{Final: resp})
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request, conv *models.Conversation, classification models.IntentClassification) *Response {
	switch classification.Intent {
	case models.IntentCreateEvent:
		return d.handleCreateEvent(ctx, req)
	case models.IntentCreateTask:
		return d.handleCreateTask(ctx, req)
	case models.IntentQueryCalendar, models.IntentQueryTask:
		return d.handleQuery(ctx, req)
	case models.IntentScheduling:
		return d.handleScheduling(ctx, req)
	case models.IntentUpdateEvent, models.IntentUpdateTask, models.IntentDeleteEvent, models.IntentDeleteTask:
		return d.handleModificationGuidance(classification.Intent)
	default:
		return d.handleChat(ctx, req, conv)
	}
}

// checkModelAccess refuses a higher-capability model request from a
// principal lacking the required role, before any pipeline work happens.
func (d *Dispatcher) checkModelAccess(req Request) error {
	if req.Model == "" || req.Model == d.llmCfg.Model {
		return nil
	}
	if req.Model != d.llmCfg.AdvancedModel {
		return stderrors.NewValidationError("unknown model: " + req.Model)
	}
	for _, role := range req.Roles {
		if role == d.cfg.AdvancedModelRole {
			return nil
		}
	}
	return stderrors.NewAccessDeniedError("the requested model tier requires the " + d.cfg.AdvancedModelRole + " role")
}

func (d *Dispatcher) conversationLock(id string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[id] = lock
	}
	return lock
}

// chunkMessage splits a message into fixed-size rune chunks for streaming.
func chunkMessage(message string, size int) []string {
	if message == "" {
		return nil
	}
	runes := []rune(message)
	var chunks []string
	for len(runes) > 0 {
		n := size
		if n > len(runes) {
			n = len(runes)
		}
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}
