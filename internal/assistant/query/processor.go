// internal/assistant/query/processor.go

// Package query answers natural-language questions against the user's own
// events and tasks. The answer is grounded: only facts passed in by the
// caller are embedded in the prompt, so the reasoning service cannot invent
// appointments.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"calendar-assistant/internal/common/logger"
	"calendar-assistant/internal/llm"
	"calendar-assistant/internal/models"
)

const (
	// groundingLimit caps how many events/tasks each are embedded in the prompt.
	groundingLimit = 20
	// responseLimit caps how many events/tasks each are returned to the caller.
	responseLimit = 10
)

const errorAnswer = "I encountered an error processing your query. Please try again."

// Context carries the facts a query is answered against.
type Context struct {
	Events    []models.Event
	Tasks     []models.Task
	Calendars []models.Calendar
}

// Result is the grounded answer plus the facts that informed it.
type Result struct {
	Answer    string           `json:"answer"`
	Events    []models.Event   `json:"events"`
	Tasks     []models.Task    `json:"tasks"`
	DateRange models.DateRange `json:"dateRange"`
}

// Processor answers calendar/task queries.
type Processor struct {
	client llm.Client
	logger logger.Logger
	now    func() time.Time
}

func NewProcessor(client llm.Client, log logger.Logger) *Processor {
	return &Processor{
		client: client,
		logger: log.WithFields(map[string]interface{}{
			"component": "query-processor",
		}),
		now: time.Now,
	}
}

// Process resolves a date range from the query, filters the supplied facts,
// and asks the reasoning service for a grounded answer. A reasoning failure
// becomes a polite error answer, never a propagated error.
func (p *Processor) Process(ctx context.Context, queryText string, qc Context) Result {
	now := p.now()
	dateRange := ExtractDateRange(queryText, now)

	events := qc.Events
	tasks := qc.Tasks
	if !dateRange.IsZero() {
		events = filterEvents(events, dateRange)
		tasks = filterTasks(tasks, dateRange)
	}

	groundEvents := truncateEvents(events, groundingLimit)
	groundTasks := truncateTasks(tasks, groundingLimit)

	answer, err := p.answer(ctx, queryText, groundEvents, groundTasks, now)
	if err != nil {
		p.logger.Warn("grounded answer failed", map[string]interface{}{
			"error": err.Error(),
		})
		return Result{
			Answer:    errorAnswer,
			Events:    []models.Event{},
			Tasks:     []models.Task{},
			DateRange: dateRange,
		}
	}

	return Result{
		Answer:    answer,
		Events:    truncateEvents(events, responseLimit),
		Tasks:     truncateTasks(tasks, responseLimit),
		DateRange: dateRange,
	}
}

func (p *Processor) answer(ctx context.Context, queryText string, events []models.Event, tasks []models.Task, now time.Time) (string, error) {
	var b strings.Builder
	b.WriteString("You are a calendar assistant. Answer the user's question based ONLY on the data below.\n")
	fmt.Fprintf(&b, "Current time: %s\n", now.Format(time.RFC3339))

	if len(events) == 0 {
		b.WriteString("\nEvents: none\n")
	} else {
		b.WriteString("\nEvents:\n")
		for _, e := range events {
			fmt.Fprintf(&b, "- %s: %s to %s", e.Title, e.StartTime.Format(time.RFC3339), e.EndTime.Format(time.RFC3339))
			if e.Location != "" {
				fmt.Fprintf(&b, " at %s", e.Location)
			}
			b.WriteString("\n")
		}
	}

	if len(tasks) == 0 {
		b.WriteString("\nTasks: none\n")
	} else {
		b.WriteString("\nTasks:\n")
		for _, t := range tasks {
			fmt.Fprintf(&b, "- %s (%s, %s)", t.Title, t.Priority, t.Status)
			if t.DueDate != nil {
				fmt.Fprintf(&b, " due %s", t.DueDate.Format(time.RFC3339))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nInstructions:\n")
	b.WriteString("- Mention specific titles and times when they answer the question\n")
	b.WriteString("- If the data does not answer the question, say so clearly\n")
	b.WriteString("- Keep the response concise and friendly\n")

	completion, err := p.client.Complete(ctx, []llm.Message{
		{Role: "system", Content: b.String()},
		{Role: "user", Content: queryText},
	}, llm.Options{})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(completion.Content) == "" {
		return "I couldn't find anything relevant to that question.", nil
	}
	return completion.Content, nil
}

// filterEvents keeps events whose interval overlaps the range. Absent bounds
// are unconstrained.
func filterEvents(events []models.Event, r models.DateRange) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if r.Start != nil && e.EndTime.Before(*r.Start) {
			continue
		}
		if r.End != nil && e.StartTime.After(*r.End) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// filterTasks keeps tasks with a due date inside the range. Tasks without a
// due date are excluded once a range applies.
func filterTasks(tasks []models.Task, r models.DateRange) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		if r.Start != nil && t.DueDate.Before(*r.Start) {
			continue
		}
		if r.End != nil && t.DueDate.After(*r.End) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func truncateEvents(events []models.Event, limit int) []models.Event {
	if len(events) <= limit {
		return events
	}
	return events[:limit]
}

func truncateTasks(tasks []models.Task, limit int) []models.Task {
	if len(tasks) <= limit {
		return tasks
	}
	return tasks[:limit]
}
