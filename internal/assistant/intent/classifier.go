// internal/assistant/intent/classifier.go

// Package intent classifies a user utterance into one of a fixed intent
// enum. The primary path asks the reasoning service; any failure there —
// service disabled, transport error, unparseable output — falls through to
// an ordered list of deterministic regex rules. Classification never raises
// to its caller.
package intent

import (
	"context"
	"fmt"
	"strings"

	"calendar-assistant/internal/common/logger"
	"calendar-assistant/internal/common/metrics"
	"calendar-assistant/internal/llm"
	"calendar-assistant/internal/models"
)

const defaultConfidence = 0.8

const systemInstruction = `You are an intent classifier for a calendar and task assistant.
Classify the user's message into exactly one of these intents:
- create_event: schedule a meeting, appointment or other calendar event
- create_task: add a task, todo or reminder item
- query_calendar: ask what is on the calendar for some period
- query_task: ask about tasks, todos or deadlines
- scheduling: find free time, check availability or suggest a meeting time
- update_event: change an existing event
- update_task: change an existing task
- delete_event: cancel or remove an event
- delete_task: remove a task
- general_chat: anything else

Respond with a JSON object only:
{"intent": "<intent>", "confidence": <0.0-1.0>, "entities": {"<name>": "<value>"}}`

// Classifier turns utterances into IntentClassifications.
type Classifier struct {
	client llm.Client
	logger logger.Logger
}

func NewClassifier(client llm.Client, log logger.Logger) *Classifier {
	return &Classifier{
		client: client,
		logger: log.WithFields(map[string]interface{}{
			"component": "intent-classifier",
		}),
	}
}

// Classify produces exactly one IntentClassification for the utterance.
// convContext, when non-empty, is appended to help disambiguate follow-ups.
func (c *Classifier) Classify(ctx context.Context, utterance, convContext string) models.IntentClassification {
	if c.client.Enabled() {
		if result, err := c.classifyWithModel(ctx, utterance, convContext); err == nil {
			return result
		} else {
			metrics.IntentFallbacks.WithLabelValues("primary_failed").Inc()
			c.logger.Warn("primary classification failed, using fallback rules", map[string]interface{}{
				"error": err.Error(),
			})
		}
	} else {
		metrics.IntentFallbacks.WithLabelValues("llm_disabled").Inc()
	}

	return classifyWithRules(utterance)
}

func (c *Classifier) classifyWithModel(ctx context.Context, utterance, convContext string) (models.IntentClassification, error) {
	user := utterance
	if convContext != "" {
		user = fmt.Sprintf("Conversation context:\n%s\n\nMessage: %s", convContext, utterance)
	}

	completion, err := c.client.Complete(ctx, []llm.Message{
		{Role: "system", Content: systemInstruction},
		{Role: "user", Content: user},
	}, llm.Options{Temperature: 0.1})
	if err != nil {
		return models.IntentClassification{}, err
	}

	var parsed struct {
		Intent     string            `json:"intent"`
		Confidence *float64          `json:"confidence"`
		Entities   map[string]string `json:"entities"`
	}
	if err := llm.DecodeJSONBlock(completion.Content, &parsed); err != nil {
		return models.IntentClassification{}, fmt.Errorf("parse model output: %w", err)
	}

	confidence := defaultConfidence
	if parsed.Confidence != nil && *parsed.Confidence >= 0 && *parsed.Confidence <= 1 {
		confidence = *parsed.Confidence
	}

	result := models.IntentClassification{
		Intent:         models.ParseIntent(strings.TrimSpace(parsed.Intent)),
		Confidence:     confidence,
		Entities:       parsed.Entities,
		RawModelOutput: completion.Content,
	}

	c.logger.Debug("classified via model", map[string]interface{}{
		"intent":     string(result.Intent),
		"confidence": result.Confidence,
	})

	return result, nil
}
