// internal/assistant/orchestrator/actions.go
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"calendar-assistant/internal/assistant/query"
	stderrors "calendar-assistant/internal/common/errors"
	"calendar-assistant/internal/models"
)

// Drafts below this confidence are never acted on; the user is asked to
// clarify instead.
const actionConfidenceThreshold = 0.6

func (d *Dispatcher) handleCreateEvent(ctx context.Context, req Request) *Response {
	calendars, err := d.calendars.FindByUser(ctx, req.UserID)
	if err != nil {
		d.logger.Error("calendar lookup failed", map[string]interface{}{"error": err.Error()})
		return &Response{Message: genericFailureMessage}
	}

	draft, err := d.eventExtractor.Extract(ctx, req.Utterance, calendars)
	if err != nil {
		if stderrors.IsParseFailure(err) || stderrors.IsExternalService(err) {
			return needsInfoResponse("event", []string{"title", "start_time"})
		}
		d.logger.Error("event extraction failed", map[string]interface{}{"error": err.Error()})
		return &Response{Message: genericFailureMessage}
	}

	if draft.Title == "" || draft.Confidence < actionConfidenceThreshold {
		missing := draft.MissingFields
		if len(missing) == 0 {
			missing = []string{"title"}
		}
		return needsInfoResponse("event", missing)
	}

	calendar, errResp := d.resolveCalendar(ctx, req.UserID, draft.CalendarID, calendars, true)
	if errResp != nil {
		return errResp
	}
	draft.CalendarID = calendar.ID

	// Creation goes ahead even when the slot is busy; the confirmation
	// carries a warning instead.
	conflictNote := d.conflictNote(ctx, req.UserID, draft.StartTime, draft.EndTime)

	event, err := d.events.Create(ctx, req.UserID, *draft)
	if err != nil {
		d.logger.Error("event creation failed", map[string]interface{}{"error": err.Error()})
		return &Response{Message: genericFailureMessage}
	}

	message := fmt.Sprintf("I've scheduled %q for %s.", event.Title, formatEventTime(event.StartTime))
	if conflictNote != "" {
		message += " " + conflictNote
	}
	return &Response{
		Message: message,
		Action:  &ActionResult{Type: "event_created", Success: true, Event: event},
	}
}

func (d *Dispatcher) handleCreateTask(ctx context.Context, req Request) *Response {
	calendars, err := d.calendars.FindByUser(ctx, req.UserID)
	if err != nil {
		d.logger.Error("calendar lookup failed", map[string]interface{}{"error": err.Error()})
		return &Response{Message: genericFailureMessage}
	}

	draft, err := d.taskExtractor.Extract(ctx, req.Utterance, calendars)
	if err != nil {
		if stderrors.IsParseFailure(err) || stderrors.IsExternalService(err) {
			return needsInfoResponse("task", []string{"title"})
		}
		d.logger.Error("task extraction failed", map[string]interface{}{"error": err.Error()})
		return &Response{Message: genericFailureMessage}
	}

	if draft.Title == "" || draft.Confidence < actionConfidenceThreshold {
		missing := draft.MissingFields
		if len(missing) == 0 {
			missing = []string{"title"}
		}
		return needsInfoResponse("task", missing)
	}

	// Same target-calendar policy as events, except a user with no
	// calendars still gets the task: it is just left unlinked.
	calendar, errResp := d.resolveCalendar(ctx, req.UserID, draft.CalendarID, calendars, false)
	if errResp != nil {
		return errResp
	}
	if calendar != nil {
		draft.CalendarID = calendar.ID
	} else {
		draft.CalendarID = ""
	}

	task, err := d.tasks.Create(ctx, req.UserID, *draft)
	if err != nil {
		d.logger.Error("task creation failed", map[string]interface{}{"error": err.Error()})
		return &Response{Message: genericFailureMessage}
	}

	message := fmt.Sprintf("I've added %q to your tasks", task.Title)
	if task.DueDate != nil {
		message += fmt.Sprintf(", due %s", formatEventTime(*task.DueDate))
	}
	if task.Priority != models.PriorityMedium {
		message += fmt.Sprintf(" with %s priority", task.Priority)
	}
	message += "."
	return &Response{
		Message: message,
		Action:  &ActionResult{Type: "task_created", Success: true, Task: task},
	}
}

func (d *Dispatcher) handleQuery(ctx context.Context, req Request) *Response {
	now := d.now()
	events, err := d.events.FindByUserInRange(ctx, req.UserID, now.AddDate(0, 0, -7), now.AddDate(0, 0, 60))
	if err != nil {
		d.logger.Warn("event lookup failed", map[string]interface{}{"error": err.Error()})
	}
	tasks, err := d.tasks.FindByUser(ctx, req.UserID, models.TaskFilters{})
	if err != nil {
		d.logger.Warn("task lookup failed", map[string]interface{}{"error": err.Error()})
	}
	calendars, err := d.calendars.FindByUser(ctx, req.UserID)
	if err != nil {
		d.logger.Warn("calendar lookup failed", map[string]interface{}{"error": err.Error()})
	}

	result := d.queryProcessor.Process(ctx, req.Utterance, query.Context{
		Events:    events,
		Tasks:     tasks,
		Calendars: calendars,
	})

	return &Response{Message: result.Answer}
}

func (d *Dispatcher) handleScheduling(ctx context.Context, req Request) *Response {
	now := d.now()
	events, err := d.events.FindByUserInRange(ctx, req.UserID, now, now.AddDate(0, 0, 8))
	if err != nil {
		d.logger.Warn("event lookup failed", map[string]interface{}{"error": err.Error()})
	}

	suggestion := d.engine.SuggestMeetingTime(events, 60, req.Utterance, timeTokens(req.Utterance))
	if len(suggestion.Slots) == 0 {
		return &Response{
			Message: "I couldn't find a free slot in that window. Would you like me to look at different days or times?",
			Action:  &ActionResult{Type: "slots_suggested", Success: false},
		}
	}

	var b strings.Builder
	b.WriteString("Here are some times that work:\n")
	for _, slot := range suggestion.Slots {
		fmt.Fprintf(&b, "- %s\n", formatEventTime(slot.StartTime))
	}
	b.WriteString("Let me know which one you'd like and I'll schedule it.")
	return &Response{
		Message: b.String(),
		Action:  &ActionResult{Type: "slots_suggested", Success: true, Slots: suggestion.Slots},
	}
}

// handleModificationGuidance answers update/delete intents. Modifying
// existing records through chat needs an unambiguous reference to the record,
// which the extraction layer does not produce yet, so the user is pointed at
// the calendar views instead.
func (d *Dispatcher) handleModificationGuidance(classified models.Intent) *Response {
	var message string
	switch classified {
	case models.IntentUpdateEvent:
		message = "I can't edit events from chat yet. You can open the event in your calendar to change it, or tell me to create a replacement."
	case models.IntentDeleteEvent:
		message = "I can't delete events from chat yet. You can remove the event from your calendar view."
	case models.IntentUpdateTask:
		message = "I can't edit tasks from chat yet. You can update the task from your task list."
	default:
		message = "I can't delete tasks from chat yet. You can remove the task from your task list."
	}
	return &Response{Message: message}
}

// resolveCalendar applies the target-calendar policy: an explicit id must
// belong to the user or it is treated as absent; absent resolves to the
// primary calendar, else the first; no calendars at all is fatal only when
// required (events).
func (d *Dispatcher) resolveCalendar(ctx context.Context, userID, explicitID string, calendars []models.Calendar, required bool) (*models.Calendar, *Response) {
	if explicitID != "" {
		owned, err := d.calendars.FindByIDForUser(ctx, explicitID, userID)
		if err != nil {
			d.logger.Error("calendar ownership check failed", map[string]interface{}{"error": err.Error()})
			return nil, &Response{Message: genericFailureMessage}
		}
		if owned != nil {
			return owned, nil
		}
	}

	for i := range calendars {
		if calendars[i].IsPrimary {
			return &calendars[i], nil
		}
	}
	if len(calendars) > 0 {
		return &calendars[0], nil
	}
	if required {
		return nil, &Response{
			Message: "You don't have a calendar set up yet, so I can't create events. Create a calendar first and try again.",
			Action:  &ActionResult{Type: "event_created", Success: false},
		}
	}
	return nil, nil
}

func (d *Dispatcher) conflictNote(ctx context.Context, userID string, start, end time.Time) string {
	existing, err := d.events.FindByUserInRange(ctx, userID, start.AddDate(0, 0, -1), end.AddDate(0, 0, 1))
	if err != nil {
		return ""
	}
	result := d.engine.DetectConflicts(existing, start, end, "")
	if !result.HasConflict {
		return ""
	}
	return fmt.Sprintf("Heads up: this overlaps with %q.", result.Conflicts[0].Title)
}

func needsInfoResponse(kind string, missing []string) *Response {
	fields := strings.Join(missing, " and ")
	return &Response{
		Message: fmt.Sprintf("I need a bit more information to create that %s. Could you tell me the %s?", kind, fields),
		Action: &ActionResult{
			Type:          kind + "_created",
			Success:       false,
			MissingFields: missing,
		},
	}
}

// timeTokens pulls day-part and clock tokens out of the utterance for the
// preferred-hour vocabulary.
func timeTokens(utterance string) []string {
	var tokens []string
	lower := strings.ToLower(utterance)
	for _, word := range []string{"morning", "afternoon", "evening"} {
		if strings.Contains(lower, word) {
			tokens = append(tokens, word)
		}
	}
	for _, field := range strings.Fields(lower) {
		trimmed := strings.Trim(field, ".,!?")
		if strings.HasSuffix(trimmed, "am") || strings.HasSuffix(trimmed, "pm") {
			tokens = append(tokens, trimmed)
		}
	}
	return tokens
}

func formatEventTime(t time.Time) string {
	return t.Format("Monday, January 2 at 3:04 PM")
}
