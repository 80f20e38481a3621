package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ci-log-analyzer/internal/config"
	"ci-log-analyzer/internal/domain"
	"ci-log-analyzer/internal/domain/model"
	"ci-log-analyzer/internal/domain/ports/adapter"
	aiAdapters "ci-log-analyzer/internal/infra/adapters/ai"
	"ci-log-analyzer/internal/infra/adapters/ci"
	"ci-log-analyzer/internal/infra/i18n"
	"ci-log-analyzer/internal/infra/logging"
	"ci-log-analyzer/internal/infra/logparse"
	"ci-log-analyzer/internal/infra/metrics"
	"ci-log-analyzer/internal/infra/web"
	"ci-log-analyzer/internal/usecase"

	"github.com/rs/zerolog"
)

// Exit statuses keep the error taxonomy visible to the orchestrating
// pipeline: configuration, fetch and analysis failures are distinguishable
// without parsing stderr.
const (
	exitOK       = 0
	exitConfig   = 2
	exitFetch    = 3
	exitAnalysis = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	// No CLI flags: the container contract passes everything through the
	// environment.
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitConfig
	}
	logger := logging.New(cfg.Log)
	metrics.MustRegister()

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("configuration error")
		return exitConfig
	}

	tr, err := i18n.ForLocale(i18n.Detect(os.Getenv))
	if err != nil {
		logger.Error().Err(err).Msg("load locale")
		return exitConfig
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher, err := ci.NewJenkinsClient(cfg.Jenkins.BaseURL, cfg.Jenkins.User, cfg.Jenkins.Token, cfg.Jenkins.Timeout, logger)
	if err != nil {
		logger.Error().Err(err).Msg("jenkins client")
		return exitConfig
	}
	logger.Debug().
		Str("jenkins", cfg.Jenkins.BaseURL).
		Str("token", logging.Redact(cfg.Jenkins.Token)).
		Msg("jenkins client ready")

	aiAdapter, provider, err := buildAIAdapter(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("ai adapter")
		return exitConfig
	}

	parser := logparse.New(cfg.Parser.TailLines)
	uc := usecase.NewAnalyzeUseCase(
		fetcher, aiAdapter, parser, tr,
		provider, cfg.AI.Model, cfg.AI.PromptBudget, cfg.Parser.TailLines,
		logger,
	)

	if cfg.Serve.ListenAddr != "" {
		return serve(cfg, uc, aiAdapter, logger)
	}

	if err := cfg.ValidateBuild(); err != nil {
		logger.Error().Err(err).Msg("configuration error")
		return exitConfig
	}
	build, err := model.NewBuildRef(cfg.Build.JobName, cfg.Build.BuildNumber)
	if err != nil {
		logger.Error().Err(err).Msg("configuration error")
		return exitConfig
	}

	runCtx, cancelRun := context.WithTimeout(ctx, 5*time.Minute)
	defer cancelRun()

	report, err := uc.Run(runCtx, build)
	if err != nil {
		logger.Error().Err(err).Str("job", build.JobName).Int("build", build.BuildNumber).Msg("pipeline failed")
		switch {
		case domain.IsConfigError(err):
			return exitConfig
		case domain.IsFetchError(err):
			return exitFetch
		default:
			return exitAnalysis
		}
	}

	// The report is the process's sole stdout output; the pipeline captures
	// it verbatim into the report file.
	fmt.Fprintln(os.Stdout, report.Summary)
	return exitOK
}

// buildAIAdapter wires every configured provider and routes between them by
// model name. Precedence for the default provider: OpenAI, Gemini, then an
// OpenAI-compatible gateway.
func buildAIAdapter(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (adapter.AIServiceAdapter, string, error) {
	if cfg.AI.DryRun {
		logger.Warn().Msg("AI adapter: dry run, no provider will be called")
		return aiAdapters.NewNoopAI(""), "noop", nil
	}

	byProvider := map[string]adapter.AIServiceAdapter{}

	if cfg.AI.OpenAIKey != "" {
		a, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.Model, cfg.AI.MaxOutTokens)
		if err != nil {
			return nil, "", err
		}
		byProvider["openai"] = a
		logger.Info().Str("model", cfg.AI.Model).Msg("AI adapter: OpenAI")
	}
	if cfg.AI.GeminiKey != "" {
		a, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, "", cfg.AI.Model, cfg.AI.MaxOutTokens)
		if err != nil {
			return nil, "", err
		}
		byProvider["gemini"] = a
		logger.Info().Str("model", cfg.AI.Model).Msg("AI adapter: Gemini")
	}
	if cfg.AI.CompatKey != "" && cfg.AI.CompatBaseURL != "" {
		a, err := aiAdapters.NewCompatAdapter(cfg.AI.CompatKey, cfg.AI.Model, cfg.AI.CompatBaseURL, cfg.AI.Timeout)
		if err != nil {
			return nil, "", err
		}
		byProvider["compat"] = a
		logger.Info().Str("base", cfg.AI.CompatBaseURL).Str("model", cfg.AI.Model).Msg("AI adapter: OpenAI-compatible gateway")
	}

	switch len(byProvider) {
	case 0:
		return nil, "", fmt.Errorf("%w: no AI provider configured", domain.ErrMissingConfig)
	case 1:
		for name, a := range byProvider {
			return a, name, nil
		}
	}

	def := "openai"
	if byProvider[def] == nil {
		if byProvider["gemini"] != nil {
			def = "gemini"
		} else {
			def = "compat"
		}
	}
	m := aiAdapters.NewMultiAIAdapter(def, byProvider, nil)
	return m, m.ResolveProvider(cfg.AI.Model), nil
}

func serve(cfg *config.Config, uc usecase.AnalyzeUseCase, ai adapter.AIServiceAdapter, logger *zerolog.Logger) int {
	srv := web.NewServer(uc, ai, cfg.Serve.APIKey, logger)
	server := &http.Server{Addr: cfg.Serve.ListenAddr, Handler: srv.Router()}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Serve.ListenAddr).Msg("trigger api listening")
		errc <- server.ListenAndServe()
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)

	select {
	case err := <-errc:
		// ListenAndServe returned before any shutdown was requested, so this
		// is a bind or accept failure, not ErrServerClosed. A trigger surface
		// that cannot listen must not idle as a healthy process.
		logger.Error().Err(err).Msg("http server error")
		return exitConfig
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
		return exitConfig
	}
	return exitOK
}
