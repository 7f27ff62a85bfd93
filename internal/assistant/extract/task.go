// internal/assistant/extract/task.go
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"calendar-assistant/internal/assistant/temporal"
	stderrors "calendar-assistant/internal/common/errors"
	"calendar-assistant/internal/common/logger"
	"calendar-assistant/internal/llm"
	"calendar-assistant/internal/models"
)

var errDisabledForExtraction = errors.New("reasoning service unavailable for extraction")

const taskSystemPrompt = `You extract task details from a user message.
Current time: %s

Respond with a JSON object only, using exactly this schema:
{
  "title": "string or null",
  "description": "string or null",
  "priority": "low|medium|high|urgent",
  "due_date": "ISO timestamp, natural phrase, or null",
  "status": "todo|in_progress|done|cancelled",
  "confidence": 0.0
}
Leave fields null when the message does not mention them.`

type rawTaskDraft struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	DueDate     string  `json:"due_date"`
	Status      string  `json:"status"`
	Confidence  float64 `json:"confidence"`
}

// TaskExtractor produces TaskDrafts from utterances.
type TaskExtractor struct {
	client llm.Client
	logger logger.Logger
	now    func() time.Time
}

func NewTaskExtractor(client llm.Client, log logger.Logger) *TaskExtractor {
	return &TaskExtractor{
		client: client,
		logger: log.WithFields(map[string]interface{}{
			"component": "task-extractor",
		}),
		now: time.Now,
	}
}

// Extract requests a structured task draft and normalizes every field
// through the total normalizers in normalize.go.
func (e *TaskExtractor) Extract(ctx context.Context, utterance string, calendars []models.Calendar) (*models.TaskDraft, error) {
	if !e.client.Enabled() {
		return nil, stderrors.NewExternalServiceError("llm", errDisabledForExtraction)
	}

	now := e.now()
	system := fmt.Sprintf(taskSystemPrompt, now.Format(time.RFC3339))

	completion, err := e.client.Complete(ctx, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: utterance},
	}, llm.Options{Temperature: 0.1})
	if err != nil {
		return nil, err
	}

	block, err := llm.ExtractJSONBlock(completion.Content)
	if err != nil {
		return nil, stderrors.NewModelOutputParseError(err)
	}
	if err := validateDraft(block, taskDraftSchema); err != nil {
		return nil, stderrors.NewModelOutputParseError(err)
	}

	var raw rawTaskDraft
	if err := llm.DecodeJSONBlock(block, &raw); err != nil {
		return nil, stderrors.NewModelOutputParseError(err)
	}

	draft := &models.TaskDraft{
		Title:       strings.TrimSpace(raw.Title),
		Description: strings.TrimSpace(raw.Description),
		Priority:    NormalizePriority(raw.Priority, utterance),
		DueDate:     temporal.ResolveSingle(raw.DueDate, now),
		Status:      NormalizeStatus(raw.Status),
		Confidence:  clampConfidence(raw.Confidence),
	}
	if draft.Title == "" {
		draft.MissingFields = append(draft.MissingFields, "title")
	}

	e.logger.Debug("task draft extracted", map[string]interface{}{
		"title":      draft.Title,
		"priority":   string(draft.Priority),
		"confidence": draft.Confidence,
	})

	return draft, nil
}
