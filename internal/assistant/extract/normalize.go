// internal/assistant/extract/normalize.go
package extract

import (
	"strings"

	"calendar-assistant/internal/models"
)

// Priority keyword lexicon. Category order is significant and fixed here:
// urgent outranks high outranks low, with medium as the catch-all. First
// matching category wins.
var priorityLexicon = []struct {
	priority models.Priority
	keywords []string
}{
	{models.PriorityUrgent, []string{"urgent", "asap", "immediately", "critical", "emergency", "now"}},
	{models.PriorityHigh, []string{"important", "high", "soon", "quickly"}},
	{models.PriorityLow, []string{"low", "later", "whenever", "optional"}},
}

// NormalizePriority is total: when the model's value is not one of the four
// valid priorities, it re-derives one from the raw utterance via the
// lexicon, defaulting to medium.
func NormalizePriority(modelValue, utterance string) models.Priority {
	candidate := models.Priority(strings.ToLower(strings.TrimSpace(modelValue)))
	if candidate.IsValid() {
		return candidate
	}
	return InferPriority(utterance)
}

// InferPriority scans the utterance against the keyword lexicon.
func InferPriority(utterance string) models.Priority {
	text := strings.ToLower(utterance)
	for _, entry := range priorityLexicon {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.priority
			}
		}
	}
	return models.PriorityMedium
}

// NormalizeStatus is total: anything invalid or absent becomes todo.
func NormalizeStatus(modelValue string) models.TaskStatus {
	candidate := models.TaskStatus(strings.ToLower(strings.TrimSpace(modelValue)))
	if candidate.IsValid() {
		return candidate
	}
	return models.StatusTodo
}
