package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ci-log-analyzer/internal/domain"
	"ci-log-analyzer/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIServiceAdapter = (*CompatAdapter)(nil)

// CompatAdapter implements adapter.AIServiceAdapter against any
// OpenAI-compatible gateway (self-hosted inference servers, provider
// proxies). Chat completions path is the same as OpenAI: /chat/completions.
// Authorization: Bearer <key>
type CompatAdapter struct {
	apiKey string
	base   string // e.g., https://llm.internal.example.com/v1
	model  string
	client *http.Client
}

func NewCompatAdapter(apiKey, model, base string, timeout time.Duration) (*CompatAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("compat gateway api key empty")
	}
	if base == "" {
		return nil, errors.New("compat gateway base url empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CompatAdapter{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		model:  model,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (c *CompatAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{c.model}, nil
}

func (c *CompatAdapter) GetModelInfo(model string) (adapter.ModelInfo, error) {
	if model == "" {
		model = c.model
	}
	return adapter.ModelInfo{
		Name:        model,
		Description: "OpenAI-compatible gateway model",
		Supports:    []string{"text"},
	}, nil
}

// CountTokens is best-effort for gateways: rune-based approximation, since
// the served model's tokenizer is unknown.
func (c *CompatAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	total := 0
	for _, m := range messages {
		total += len([]rune(m.Content))/4 + 4
	}
	return total, nil
}

func (c *CompatAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	reply, _, err := c.ChatWithUsage(ctx, model, messages)
	return reply, err
}

func (c *CompatAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	if model == "" {
		model = c.model
	}
	reqBody := struct {
		Model       string            `json:"model"`
		Messages    []adapter.Message `json:"messages"`
		Temperature float64           `json:"temperature"`
	}{Model: model, Messages: messages, Temperature: 0}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", adapter.Usage{}, fmt.Errorf("%w: %v", domain.ErrAnalysisFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", adapter.Usage{}, fmt.Errorf("%w: %v", domain.ErrAnalysisFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", adapter.Usage{}, fmt.Errorf("%w: gateway http 429", domain.ErrRateLimited)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", adapter.Usage{}, fmt.Errorf("%w: gateway rejected credentials (http %d)", domain.ErrAnalysisFailed, resp.StatusCode)
	case resp.StatusCode >= 300:
		return "", adapter.Usage{}, fmt.Errorf("%w: gateway http %d", domain.ErrAnalysisFailed, resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message adapter.Message `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", adapter.Usage{}, fmt.Errorf("%w: malformed gateway response: %v", domain.ErrAnalysisFailed, err)
	}

	u := adapter.Usage{
		PromptTokens:     payload.Usage.PromptTokens,
		CompletionTokens: payload.Usage.CompletionTokens,
		TotalTokens:      payload.Usage.TotalTokens,
	}
	for _, choice := range payload.Choices {
		if choice.Message.Content != "" {
			return choice.Message.Content, u, nil
		}
	}
	return "", u, domain.ErrEmptyResponse
}
