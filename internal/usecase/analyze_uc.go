package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ci-log-analyzer/internal/domain"
	"ci-log-analyzer/internal/domain/model"
	"ci-log-analyzer/internal/domain/ports/adapter"
	"ci-log-analyzer/internal/infra/i18n"
	"ci-log-analyzer/internal/infra/logging"
	"ci-log-analyzer/internal/infra/logparse"
	"ci-log-analyzer/internal/infra/metrics"
)

// Compile-time check
var _ AnalyzeUseCase = (*analyzeUC)(nil)

// AnalyzeUseCase runs the full pipeline for one build: fetch the console
// log, reduce it to the failure excerpt, obtain the model's analysis.
type AnalyzeUseCase interface {
	Run(ctx context.Context, build model.BuildRef) (*model.AnalysisReport, error)
}

type analyzeUC struct {
	fetcher      adapter.LogFetcher
	ai           adapter.AIServiceAdapter
	parser       *logparse.Parser
	tr           *i18n.Translator
	provider     string
	model        string
	promptBudget int
	tailLines    int
	log          *zerolog.Logger
}

func NewAnalyzeUseCase(
	fetcher adapter.LogFetcher,
	ai adapter.AIServiceAdapter,
	parser *logparse.Parser,
	tr *i18n.Translator,
	provider, modelName string,
	promptBudget, tailLines int,
	logger *zerolog.Logger,
) *analyzeUC {
	return &analyzeUC{
		fetcher:      fetcher,
		ai:           ai,
		parser:       parser,
		tr:           tr,
		provider:     provider,
		model:        modelName,
		promptBudget: promptBudget,
		tailLines:    tailLines,
		log:          logger,
	}
}

func (u *analyzeUC) Run(ctx context.Context, build model.BuildRef) (*model.AnalysisReport, error) {
	ctx = logging.WithJob(logging.WithBuild(ctx, build.BuildNumber), build.JobName)
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "analyzeUC.Run")()

	consoleLog, err := u.fetcher.FetchConsoleLog(ctx, build)
	if err != nil {
		return nil, fmt.Errorf("fetch console log for %s: %w", build, err)
	}

	// An empty log still yields a deterministic report instead of a failure:
	// the orchestrator treats the report file as the run's artifact.
	if consoleLog.Empty() {
		log.Warn().Msg("console log is empty")
		return model.NewAnalysisReport(build, "local", "none", u.tr.T("report_empty_log", build.String())), nil
	}

	excerpt := u.parser.Excerpt(consoleLog.Text)
	if excerpt == "" {
		log.Info().Int("log_bytes", consoleLog.Size).Msg("no error-bearing lines in log tail")
		return model.NewAnalysisReport(build, "local", "none",
			u.tr.T("report_no_findings", u.tailLines, build.String())), nil
	}
	excerpt = logparse.TruncateToTokens(excerpt, u.model, u.promptBudget)

	messages := []adapter.Message{
		{Role: "system", Content: u.tr.T("system_prompt")},
		{Role: "user", Content: u.tr.T("analysis_prompt", excerpt)},
	}

	start := time.Now()
	reply, usage, err := u.ai.ChatWithUsage(ctx, u.model, messages)
	latency := time.Since(start).Milliseconds()
	metrics.ObserveAnalysis(u.provider, u.model,
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens, latency, err == nil)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", build, err)
	}
	if strings.TrimSpace(reply) == "" {
		return nil, fmt.Errorf("analyze %s: %w", build, domain.ErrEmptyResponse)
	}

	log.Info().
		Str("provider", u.provider).
		Str("model", u.model).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int64("latency_ms", latency).
		Msg("analysis complete")

	report := model.NewAnalysisReport(build, u.provider, u.model, reply)
	report.Usage = model.TokenUsage{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}
	return report, nil
}
