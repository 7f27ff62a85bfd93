// internal/assistant/orchestrator/chat.go
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"calendar-assistant/internal/llm"
	"calendar-assistant/internal/models"
)

const chatFailureMessage = "I'm having trouble responding right now. Please try again in a moment."

const chatSystemPrompt = "You are a friendly calendar and task assistant. " +
	"Help the user manage their schedule, answer small talk briefly, and " +
	"suggest what you can do (create events, create tasks, check the calendar, find meeting times) when it fits naturally."

// handleChat answers open-ended utterances with truncated conversation
// history. A reasoning failure is converted into a polite error string, not
// propagated.
func (d *Dispatcher) handleChat(ctx context.Context, req Request, conv *models.Conversation) *Response {
	history, err := d.conversations.RecentTurns(ctx, conv.ID, d.cfg.HistoryLimit)
	if err != nil {
		d.logger.Warn("history fetch failed", map[string]interface{}{
			"error":          err.Error(),
			"conversationId": conv.ID,
		})
		history = nil
	}

	budget := d.cfg.ContextTokenBudget - d.cfg.SystemPromptHeadroom
	messages := []llm.Message{{Role: "system", Content: chatSystemPrompt + currentTimeSuffix(d.now())}}
	messages = append(messages, truncateHistory(history, budget)...)

	// The user turn was already persisted; make sure it closes the prompt
	// even if the store read raced or dropped it.
	if len(messages) == 1 || messages[len(messages)-1].Content != req.Utterance {
		messages = append(messages, llm.Message{Role: models.RoleUser, Content: req.Utterance})
	}

	opts := llm.Options{}
	if req.Model != "" {
		opts.Model = req.Model
	}
	completion, err := d.client.Complete(ctx, messages, opts)
	if err != nil {
		d.logger.Warn("chat completion failed", map[string]interface{}{
			"error":          err.Error(),
			"conversationId": conv.ID,
		})
		return &Response{Message: chatFailureMessage}
	}

	return &Response{Message: completion.Content, Usage: completion.Usage}
}

// truncateHistory strips system turns and walks from the most recent turn
// backward, keeping turns while the running size estimate (characters / 4, a
// token proxy) stays under the budget. The kept turns come back oldest first.
func truncateHistory(turns []models.ConversationTurn, budget int) []llm.Message {
	if budget <= 0 {
		return nil
	}

	kept := make([]models.ConversationTurn, 0, len(turns))
	used := 0
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == models.RoleSystem {
			continue
		}
		cost := len(turns[i].Content) / 4
		if used+cost > budget {
			break
		}
		used += cost
		kept = append(kept, turns[i])
	}

	messages := make([]llm.Message, 0, len(kept))
	for i := len(kept) - 1; i >= 0; i-- {
		messages = append(messages, llm.Message{Role: kept[i].Role, Content: kept[i].Content})
	}
	return messages
}

func currentTimeSuffix(now time.Time) string {
	return fmt.Sprintf(" The current time is %s.", now.Format(time.RFC1123))
}
