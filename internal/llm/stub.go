// internal/llm/stub.go
package llm

import (
	"context"
	"sync"
)

// StubClient is a deterministic Client for tests. Responses are returned in
// order; the last one repeats once exhausted.
type StubClient struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Disabled  bool
	Calls     [][]Message
	next      int
}

func (s *StubClient) Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, messages)
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Responses) == 0 {
		return &Completion{}, nil
	}
	idx := s.next
	if idx >= len(s.Responses) {
		idx = len(s.Responses) - 1
	}
	s.next++
	content := s.Responses[idx]
	return &Completion{
		Content: content,
		Usage:   Usage{TotalTokens: len(content) / 4},
	}, nil
}

func (s *StubClient) Enabled() bool { return !s.Disabled }

// CallCount returns how many completions were requested.
func (s *StubClient) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}
