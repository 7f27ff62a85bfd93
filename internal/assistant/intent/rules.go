// internal/assistant/intent/rules.go
package intent

import (
	"regexp"
	"strings"

	"calendar-assistant/internal/models"
)

// The fallback is an ordered list of predicate rules evaluated until the
// first match, with general_chat as the catch-all. Rule order is part of the
// contract: event creation outranks task creation, queries outrank chat.

type fallbackRule struct {
	intent     models.Intent
	confidence float64
	matches    func(text string) bool
}

var (
	reEventVerb    = regexp.MustCompile(`\b(schedule|book|set up|setup|plan|arrange|create)\b`)
	reEventNoun    = regexp.MustCompile(`\b(meeting|event|appointment|call|lunch|dinner|interview|session|standup|sync)\b`)
	reTemporalHint = regexp.MustCompile(`\b(today|tomorrow|tonight|monday|tuesday|wednesday|thursday|friday|saturday|sunday|next week|at \d|am\b|pm\b|noon|o'clock)\b`)
	reTaskVerb     = regexp.MustCompile(`\b(add|create|make|remind|remember|need to|have to|todo|to-do)\b`)
	reTaskNoun     = regexp.MustCompile(`\b(task|todo|to-do|reminder|item|chore|deadline)\b`)
	reQueryVerb    = regexp.MustCompile(`\b(what|when|show|list|do i have|what's|whats|any|tell me|how many)\b`)
	reCalendarNoun = regexp.MustCompile(`\b(calendar|schedule|meeting|event|appointment|agenda|plan)s?\b`)
	reRangePhrase  = regexp.MustCompile(`\b(today|tomorrow|this week|next week|this month|this afternoon|this morning|tonight)\b`)
	reEventWord    = regexp.MustCompile(`\b(meeting|event|appointment)s?\b`)
	reTaskWord     = regexp.MustCompile(`\btasks?\b|\btodos?\b|\bto-dos?\b`)
	reTaskState    = regexp.MustCompile(`\b(pending|upcoming|due|overdue|unfinished|open)\b`)
)

var fallbackRules = []fallbackRule{
	{
		intent:     models.IntentCreateEvent,
		confidence: 0.7,
		matches: func(text string) bool {
			if reEventVerb.MatchString(text) && reEventNoun.MatchString(text) {
				return true
			}
			return reEventNoun.MatchString(text) && reTemporalHint.MatchString(text)
		},
	},
	{
		intent:     models.IntentCreateTask,
		confidence: 0.7,
		matches: func(text string) bool {
			return reTaskVerb.MatchString(text) && reTaskNoun.MatchString(text)
		},
	},
	{
		intent:     models.IntentQueryCalendar,
		confidence: 0.7,
		matches: func(text string) bool {
			if reQueryVerb.MatchString(text) && reCalendarNoun.MatchString(text) {
				return true
			}
			return reRangePhrase.MatchString(text) && reEventWord.MatchString(text)
		},
	},
	{
		intent:     models.IntentQueryTask,
		confidence: 0.7,
		matches: func(text string) bool {
			if reQueryVerb.MatchString(text) && reTaskWord.MatchString(text) {
				return true
			}
			return reTaskState.MatchString(text) && reTaskWord.MatchString(text)
		},
	},
}

// classifyWithRules applies the ordered rules against the lowercased
// utterance. It always returns a valid classification.
func classifyWithRules(utterance string) models.IntentClassification {
	text := strings.ToLower(utterance)

	for _, rule := range fallbackRules {
		if rule.matches(text) {
			return models.IntentClassification{
				Intent:     rule.intent,
				Confidence: rule.confidence,
			}
		}
	}

	return models.IntentClassification{
		Intent:     models.IntentGeneralChat,
		Confidence: 0.5,
	}
}
