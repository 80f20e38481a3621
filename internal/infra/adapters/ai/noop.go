package ai

import (
	"context"

	"ci-log-analyzer/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAI)(nil)

// NoopAI returns a fixed reply without network calls. Used in tests and
// for dry-running the pipeline against a live Jenkins.
type NoopAI struct {
	Reply string
}

func NewNoopAI(reply string) *NoopAI {
	if reply == "" {
		reply = "noop analysis"
	}
	return &NoopAI{Reply: reply}
}

func (n *NoopAI) ListModels(ctx context.Context) ([]string, error) {
	return []string{"noop"}, nil
}

func (n *NoopAI) GetModelInfo(model string) (adapter.ModelInfo, error) {
	return adapter.ModelInfo{Name: "noop", Description: "static reply", Supports: []string{"text"}}, nil
}

func (n *NoopAI) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	total := 0
	for _, m := range messages {
		total += len(m.Content) / 4
	}
	return total, nil
}

func (n *NoopAI) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	return n.Reply, nil
}

func (n *NoopAI) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	return n.Reply, adapter.Usage{}, nil
}
