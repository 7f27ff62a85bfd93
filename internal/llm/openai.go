// internal/llm/openai.go
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"calendar-assistant/internal/common/config"
	stderrors "calendar-assistant/internal/common/errors"
	"calendar-assistant/internal/common/logger"
	"calendar-assistant/internal/common/metrics"
)

var errDisabled = errors.New("reasoning service is disabled")

// OpenAIClient talks to any OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	cfg    config.LLMConfig
	client *http.Client
	logger logger.Logger
}

// NewOpenAIClient builds a client from config. The HTTP client carries no
// timeout of its own; every call is bounded by a per-request context derived
// from cfg.Timeout.
func NewOpenAIClient(cfg config.LLMConfig, log logger.Logger) *OpenAIClient {
	return &OpenAIClient{
		cfg:    cfg,
		client: &http.Client{},
		logger: log.WithFields(map[string]interface{}{
			"component": "llm-client",
		}),
	}
}

func (c *OpenAIClient) Enabled() bool {
	return c.cfg.Enabled && c.cfg.BaseURL != ""
}

type chatRequest struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Messages    []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends the messages and returns the model's text. Transient
// failures are retried with exponential backoff up to cfg.MaxRetries;
// context expiry is reported as a timeout immediately.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error) {
	if !c.Enabled() {
		return nil, errDisabled
	}

	model := opts.Model
	if model == "" {
		model = c.cfg.Model
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = c.cfg.Temperature
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.cfg.MaxTokens
	}

	payload := chatRequest{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages:    messages,
	}
	body, _ := json.Marshal(payload)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Timeout)*time.Millisecond)
	defer cancel()

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	start := time.Now()
	completion, err := c.send(ctx, url, body)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = string(stderrors.Normalize(err).Code)
	}
	metrics.LLMRequests.WithLabelValues("complete", status).Inc()
	metrics.LLMRequestDuration.WithLabelValues("complete").Observe(elapsed.Seconds())

	if err != nil {
		return nil, err
	}

	c.logger.Debug("completion received", map[string]interface{}{
		"model":       model,
		"totalTokens": completion.Usage.TotalTokens,
		"durationMs":  elapsed.Milliseconds(),
	})

	return completion, nil
}

func (c *OpenAIClient) send(ctx context.Context, url string, body []byte) (*Completion, error) {
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, stderrors.NewLLMTimeoutError()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, stderrors.NewExternalServiceError("llm", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, lastErr = c.client.Do(req)

		// If the context expired during the request, return timeout immediately.
		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return nil, stderrors.NewLLMTimeoutError()
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			// Credential failures won't heal on retry; surface them now.
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				resp.Body.Close()
				return nil, stderrors.NewUnauthorizedError(fmt.Sprintf("status %d", resp.StatusCode))
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				retryAfter := resp.Header.Get("Retry-After")
				resp.Body.Close()
				lastErr = stderrors.NewRateLimitedError(fmt.Sprintf("retry-after: %s", retryAfter))
				resp = nil
				continue
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, stderrors.NewLLMTimeoutError()
		}
		if se, ok := lastErr.(*stderrors.StandardError); ok {
			return nil, se
		}
		return nil, stderrors.NewExternalServiceError("llm", lastErr)
	}

	if resp == nil {
		return nil, stderrors.NewExternalServiceError("llm", errors.New("no successful response after retries"))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, stderrors.NewExternalServiceError("llm", err)
	}

	var apiResponse chatResponse
	if err := json.Unmarshal(raw, &apiResponse); err != nil {
		return nil, stderrors.NewExternalServiceError("llm", fmt.Errorf("decode error: %v", err))
	}

	if len(apiResponse.Choices) == 0 {
		return nil, stderrors.NewExternalServiceError("llm", errors.New("empty choices in response"))
	}

	return &Completion{
		Content: apiResponse.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     apiResponse.Usage.PromptTokens,
			CompletionTokens: apiResponse.Usage.CompletionTokens,
			TotalTokens:      apiResponse.Usage.TotalTokens,
		},
	}, nil
}
