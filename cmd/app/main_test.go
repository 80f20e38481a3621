package main

import (
	"context"
	"net"
	"testing"

	"github.com/rs/zerolog"

	"ci-log-analyzer/internal/config"
	"ci-log-analyzer/internal/domain/model"
	aiAdapters "ci-log-analyzer/internal/infra/adapters/ai"
)

type staticUC struct{}

func (staticUC) Run(_ context.Context, build model.BuildRef) (*model.AnalysisReport, error) {
	return model.NewAnalysisReport(build, "noop", "noop", "ok"), nil
}

// A listener that cannot bind must fail the process, not idle until a signal.
func TestServe_BindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	defer ln.Close()

	cfg := &config.Config{}
	cfg.Serve.ListenAddr = ln.Addr().String()
	cfg.Serve.APIKey = "secret"

	logger := zerolog.Nop()
	got := serve(cfg, staticUC{}, aiAdapters.NewNoopAI(""), &logger)
	if got != exitConfig {
		t.Fatalf("exit status: got %d want %d", got, exitConfig)
	}
}
