// internal/assistant/extract/event.go

// Package extract turns free-text utterances into structured event and task
// drafts. The reasoning service proposes a JSON draft; everything it returns
// is treated as untrusted and passed through total normalization functions,
// so a bad completion degrades to a low-confidence draft instead of an error.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"calendar-assistant/internal/assistant/temporal"
	stderrors "calendar-assistant/internal/common/errors"
	"calendar-assistant/internal/common/logger"
	"calendar-assistant/internal/llm"
	"calendar-assistant/internal/models"
)

const eventSystemPrompt = `You extract calendar event details from a user message.
Current time: %s

Respond with a JSON object only, using exactly this schema:
{
  "title": "string or null",
  "description": "string or null",
  "start_time": "ISO timestamp or natural phrase like 'tomorrow at 2pm'",
  "end_time": "ISO timestamp, natural phrase, or duration like '1 hour'",
  "location": "string or null",
  "attendees": [{"email": "string", "name": "string"}],
  "is_all_day": false,
  "confidence": 0.0
}
Leave fields null when the message does not mention them. Set confidence to
how certain you are that the user wants this event created.`

// rawEventDraft mirrors the schema the model is asked for, before
// normalization.
type rawEventDraft struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	StartTime   string            `json:"start_time"`
	EndTime     string            `json:"end_time"`
	Location    string            `json:"location"`
	Attendees   []models.Attendee `json:"attendees"`
	IsAllDay    bool              `json:"is_all_day"`
	Confidence  float64           `json:"confidence"`
}

// EventExtractor produces EventDrafts from utterances.
type EventExtractor struct {
	client llm.Client
	logger logger.Logger
	now    func() time.Time
}

func NewEventExtractor(client llm.Client, log logger.Logger) *EventExtractor {
	return &EventExtractor{
		client: client,
		logger: log.WithFields(map[string]interface{}{
			"component": "event-extractor",
		}),
		now: time.Now,
	}
}

// Extract requests a structured draft from the reasoning service and
// normalizes it. Calendars are offered as context so the model can match an
// explicitly named calendar.
func (e *EventExtractor) Extract(ctx context.Context, utterance string, calendars []models.Calendar) (*models.EventDraft, error) {
	if !e.client.Enabled() {
		return nil, stderrors.NewExternalServiceError("llm", errDisabledForExtraction)
	}

	now := e.now()
	system := fmt.Sprintf(eventSystemPrompt, now.Format(time.RFC3339))
	if len(calendars) > 0 {
		names := make([]string, 0, len(calendars))
		for _, cal := range calendars {
			names = append(names, fmt.Sprintf("%s (id %s)", cal.Name, cal.ID))
		}
		system += "\nAvailable calendars: " + strings.Join(names, ", ") +
			`. Include "calendar_id" only when the user names one of them.`
	}

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
	if err := validateDraft(block, eventDraftSchema); err != nil {
		return nil, stderrors.NewModelOutputParseError(err)
	}

	var raw rawEventDraft
	if err := llm.DecodeJSONBlock(block, &raw); err != nil {
		return nil, stderrors.NewModelOutputParseError(err)
	}
	var calendarID struct {
		CalendarID string `json:"calendar_id"`
	}
	_ = llm.DecodeJSONBlock(block, &calendarID)

	resolved := temporal.ResolveRange(raw.StartTime, raw.EndTime, now)

	draft := &models.EventDraft{
		Title:       strings.TrimSpace(raw.Title),
		Description: strings.TrimSpace(raw.Description),
		StartTime:   resolved.Start,
		EndTime:     resolved.End,
		Location:    strings.TrimSpace(raw.Location),
		Attendees:   raw.Attendees,
		CalendarID:  calendarID.CalendarID,
		IsAllDay:    raw.IsAllDay,
		Confidence:  clampConfidence(raw.Confidence),
	}
	draft.MissingFields = missingEventFields(draft, raw)

	e.logger.Debug("event draft extracted", map[string]interface{}{
		"title":      draft.Title,
		"confidence": draft.Confidence,
		"missing":    draft.MissingFields,
	})

	return draft, nil
}

func missingEventFields(draft *models.EventDraft, raw rawEventDraft) []string {
	var missing []string
	if draft.Title == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(raw.StartTime) == "" {
		missing = append(missing, "start_time")
	}
	return missing
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
