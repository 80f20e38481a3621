// Package web exposes the resident trigger surface: pipelines that keep one
// analyzer running POST failed build references here instead of launching a
// container per failure.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ci-log-analyzer/internal/domain"
	"ci-log-analyzer/internal/domain/model"
	"ci-log-analyzer/internal/domain/ports/adapter"
	"ci-log-analyzer/internal/usecase"
)

type Server struct {
	uc     usecase.AnalyzeUseCase
	ai     adapter.AIServiceAdapter
	apiKey string
	log    *zerolog.Logger
}

func NewServer(uc usecase.AnalyzeUseCase, ai adapter.AIServiceAdapter, apiKey string, logger *zerolog.Logger) *Server {
	return &Server{uc: uc, ai: ai, apiKey: apiKey, log: logger}
}

// Router builds the chi router with the full middleware chain.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	analyze := Chain(
		http.HandlerFunc(s.handleAnalyze),
		TraceID(),
		RequestLog(s.log),
		Recover(s.log),
		Timeout(2*time.Minute),
	)
	r.Method(http.MethodPost, "/api/v1/analyze", s.authMiddleware(analyze))
	r.Method(http.MethodGet, "/api/v1/models", s.authMiddleware(http.HandlerFunc(s.handleListModels)))
	r.Method(http.MethodGet, "/api/v1/models/{model}", s.authMiddleware(http.HandlerFunc(s.handleModelInfo)))

	return r
}

// authMiddleware provides simple Bearer token authentication for the trigger API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("ANALYZER_API_KEY is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "bearer") {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}
		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type analyzeRequest struct {
	JobName     string `json:"job_name"`
	BuildNumber int    `json:"build_number"`
}

type analyzeResponse struct {
	ID          string `json:"id"`
	JobName     string `json:"job_name"`
	BuildNumber int    `json:"build_number"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	Summary     string `json:"summary"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	build, err := model.NewBuildRef(req.JobName, req.BuildNumber)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := s.uc.Run(r.Context(), build)
	if err != nil {
		status := statusFor(err)
		evt := s.log.Error()
		if status < 500 {
			evt = s.log.Warn()
		}
		evt.Err(err).Str("job", build.JobName).Int("build", build.BuildNumber).Msg("analysis request failed")
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(analyzeResponse{
		ID:          report.ID,
		JobName:     report.Build.JobName,
		BuildNumber: report.Build.BuildNumber,
		Provider:    report.Provider,
		Model:       report.Model,
		Summary:     report.Summary,
	})
}

// handleListModels reports the models the configured providers expose, so an
// operator can check routing before wiring a pipeline to a model name.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.ai.ListModels(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("list models failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Models []string `json:"models"`
	}{Models: models})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "model")
	info, err := s.ai.GetModelInfo(name)
	if err != nil {
		s.log.Warn().Err(err).Str("model", name).Msg("model info failed")
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Name        string   `json:"name"`
		Description string   `json:"description,omitempty"`
		MaxTokens   int      `json:"max_tokens,omitempty"`
		Supports    []string `json:"supports,omitempty"`
	}{
		Name:        info.Name,
		Description: info.Description,
		MaxTokens:   info.MaxTokens,
		Supports:    info.Supports,
	})
}

// statusFor maps the error taxonomy onto HTTP statuses. Upstream failures
// surface as gateway errors so the caller can tell them from bad input.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrLogNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrFetchUnauthorized), errors.Is(err, domain.ErrFetchFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
