// internal/models/intent.go
package models

// Intent is the classified purpose of a user utterance.
type Intent string

const (
	IntentCreateEvent   Intent = "create_event"
	IntentCreateTask    Intent = "create_task"
	IntentQueryCalendar Intent = "query_calendar"
	IntentQueryTask     Intent = "query_task"
	IntentScheduling    Intent = "scheduling"
	IntentUpdateEvent   Intent = "update_event"
	IntentUpdateTask    Intent = "update_task"
	IntentDeleteEvent   Intent = "delete_event"
	IntentDeleteTask    Intent = "delete_task"
	IntentGeneralChat   Intent = "general_chat"
)

// AllIntents lists every member of the intent enum in a fixed order.
var AllIntents = []Intent{
	IntentCreateEvent,
	IntentCreateTask,
	IntentQueryCalendar,
	IntentQueryTask,
	IntentScheduling,
	IntentUpdateEvent,
	IntentUpdateTask,
	IntentDeleteEvent,
	IntentDeleteTask,
	IntentGeneralChat,
}

// IsValid reports whether i is a member of the intent enum.
func (i Intent) IsValid() bool {
	for _, known := range AllIntents {
		if i == known {
			return true
		}
	}
	return false
}

// ParseIntent maps raw model output onto the enum; anything unrecognized
// becomes general_chat.
func ParseIntent(raw string) Intent {
	candidate := Intent(raw)
	if candidate.IsValid() {
		return candidate
	}
	return IntentGeneralChat
}

// IntentClassification is the immutable result of classifying one utterance.
type IntentClassification struct {
	Intent         Intent            `json:"intent"`
	Confidence     float64           `json:"confidence"`
	Entities       map[string]string `json:"entities,omitempty"`
	RawModelOutput string            `json:"rawModelOutput,omitempty"`
}
