package ci

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ci-log-analyzer/internal/domain"
	"ci-log-analyzer/internal/domain/model"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newClient(t *testing.T, baseURL, user string) *JenkinsClient {
	t.Helper()
	c, err := NewJenkinsClient(baseURL, user, "tok123", 5*time.Second, testLogger())
	if err != nil {
		t.Fatalf("NewJenkinsClient: %v", err)
	}
	return c
}

func mustRef(t *testing.T, job string, n int) model.BuildRef {
	t.Helper()
	b, err := model.NewBuildRef(job, n)
	if err != nil {
		t.Fatalf("NewBuildRef: %v", err)
	}
	return b
}

func TestFetchConsoleLog_OneGETToExpectedURL(t *testing.T) {
	t.Parallel()

	var calls int32
	var gotPath, gotMethod string
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotUser, gotPass, _ = r.BasicAuth()
		_, _ = w.Write([]byte("ERROR: compile failed"))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/", "admin") // trailing slash must be tolerated
	log, err := c.FetchConsoleLog(context.Background(), mustRef(t, "build-42", 7))
	if err != nil {
		t.Fatalf("FetchConsoleLog: %v", err)
	}

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("want exactly one request, got %d", n)
	}
	if gotMethod != http.MethodGet {
		t.Errorf("method: got %s", gotMethod)
	}
	if gotPath != "/job/build-42/7/consoleText" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotUser != "admin" || gotPass != "tok123" {
		t.Errorf("basic auth: got %q/%q", gotUser, gotPass)
	}
	if log.Text != "ERROR: compile failed" {
		t.Errorf("body: got %q", log.Text)
	}
	if log.Size != len(log.Text) {
		t.Errorf("size: got %d", log.Size)
	}
}

func TestFetchConsoleLog_BearerWithoutUser(t *testing.T) {
	t.Parallel()

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("ok failed"))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, "")
	if _, err := c.FetchConsoleLog(context.Background(), mustRef(t, "j", 1)); err != nil {
		t.Fatalf("FetchConsoleLog: %v", err)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("authorization header: got %q", gotAuth)
	}
}

func TestConsoleURL_FolderJobs(t *testing.T) {
	t.Parallel()

	c := newClient(t, "https://jenkins.example.com", "admin")
	got := c.ConsoleURL(mustRef(t, "team/app", 5))
	want := "https://jenkins.example.com/job/team/job/app/5/consoleText"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestFetchConsoleLog_StatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrFetchUnauthorized},
		{"forbidden", http.StatusForbidden, domain.ErrFetchUnauthorized},
		{"not found", http.StatusNotFound, domain.ErrLogNotFound},
		{"server error", http.StatusInternalServerError, domain.ErrFetchFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			defer srv.Close()

			c := newClient(t, srv.URL, "admin")
			_, err := c.FetchConsoleLog(context.Background(), mustRef(t, "j", 1))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFetchConsoleLog_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := newClient(t, srv.URL, "admin")
	_, err := c.FetchConsoleLog(context.Background(), mustRef(t, "j", 1))
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("want ErrFetchFailed, got %v", err)
	}
}

func TestNewJenkinsClient_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewJenkinsClient("", "u", "tok", 0, testLogger()); !errors.Is(err, domain.ErrMissingConfig) {
		t.Errorf("empty base url: want ErrMissingConfig, got %v", err)
	}
	if _, err := NewJenkinsClient("https://j", "u", "", 0, testLogger()); !errors.Is(err, domain.ErrMissingConfig) {
		t.Errorf("empty token: want ErrMissingConfig, got %v", err)
	}
}
