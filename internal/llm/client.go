// internal/llm/client.go
package llm

import "context"

// Message is one chat turn forwarded to the reasoning service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single completion request. Zero values fall back to the
// client's configured defaults.
type Options struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
}

// Usage reports token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Completion is the reasoning service's answer: messages in, text out.
type Completion struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Client is the reasoning-service collaborator. Every pipeline component
// takes it as an injected dependency so tests can substitute a deterministic
// stub. Enabled lets callers skip the primary path entirely and go straight
// to deterministic fallbacks.
type Client interface {
	Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error)
	Enabled() bool
}

// Disabled is a Client that reports itself unavailable. Classification and
// extraction degrade to their deterministic fallbacks against it.
type Disabled struct{}

func (Disabled) Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error) {
	return nil, errDisabled
}

func (Disabled) Enabled() bool { return false }
