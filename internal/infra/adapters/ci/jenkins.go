// Package ci implements the LogFetcher port against a Jenkins server.
package ci

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ci-log-analyzer/internal/domain"
	"ci-log-analyzer/internal/domain/model"
	"ci-log-analyzer/internal/domain/ports/adapter"
	"ci-log-analyzer/internal/infra/logparse"
	"ci-log-analyzer/internal/infra/metrics"
)

// Compile-time assurance this client satisfies the port
var _ adapter.LogFetcher = (*JenkinsClient)(nil)

// JenkinsClient fetches a build's console text over the Jenkins REST API.
// Authentication is HTTP basic (user + API token) when a user is configured,
// otherwise the token is sent as a bearer header for reverse-proxy setups.
type JenkinsClient struct {
	baseURL string
	user    string
	token   string
	client  *http.Client
	log     *zerolog.Logger
}

func NewJenkinsClient(baseURL, user, token string, timeout time.Duration, logger *zerolog.Logger) (*JenkinsClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: jenkins base url", domain.ErrMissingConfig)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: jenkins api token", domain.ErrMissingConfig)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &JenkinsClient{
		baseURL: baseURL,
		user:    user,
		token:   token,
		client:  &http.Client{Timeout: timeout},
		log:     logger,
	}, nil
}

// ConsoleURL returns the consoleText endpoint for a build. Job names may be
// folder paths ("team/app"); each segment maps to its own /job/ element.
func (c *JenkinsClient) ConsoleURL(build model.BuildRef) string {
	segments := strings.Split(build.JobName, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/job/%s/%d/consoleText", c.baseURL, strings.Join(segments, "/job/"), build.BuildNumber)
}

// FetchConsoleLog issues exactly one GET against the consoleText endpoint and
// returns the body as an in-memory ConsoleLog.
func (c *JenkinsClient) FetchConsoleLog(ctx context.Context, build model.BuildRef) (*model.ConsoleLog, error) {
	consoleURL := c.ConsoleURL(build)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, consoleURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrFetchFailed, err)
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.token)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ObserveFetch(0, 0, time.Since(start).Milliseconds())
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: timeout fetching %s", domain.ErrFetchFailed, consoleURL)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	latency := time.Since(start).Milliseconds()
	metrics.ObserveFetch(resp.StatusCode, len(body), latency)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrFetchFailed, err)
	}

	c.log.Debug().
		Str("url", consoleURL).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Int64("latency_ms", latency).
		Msg("console log fetched")

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: http %d from %s", domain.ErrFetchUnauthorized, resp.StatusCode, consoleURL)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrLogNotFound, build)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: http %d from %s: %s", domain.ErrFetchFailed, resp.StatusCode, consoleURL, excerpt(body))
	}

	return model.NewConsoleLog(string(body), consoleURL), nil
}

// excerpt bounds an error body so a huge HTML error page never floods
// stderr; credential-shaped tokens in it are redacted like log lines are.
func excerpt(body []byte) string {
	const max = 240
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		s = s[:max] + "..."
	}
	return logparse.Redact(s)
}
