package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"ci-log-analyzer/internal/domain"
	"ci-log-analyzer/internal/domain/model"
	"ci-log-analyzer/internal/domain/ports/adapter"
	"ci-log-analyzer/internal/infra/i18n"
	"ci-log-analyzer/internal/infra/logparse"
)

// ---- Fakes ----

type fakeFetcher struct {
	log   string
	err   error
	calls int
}

func (f *fakeFetcher) FetchConsoleLog(ctx context.Context, build model.BuildRef) (*model.ConsoleLog, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return model.NewConsoleLog(f.log, "http://jenkins/job/"+build.JobName), nil
}

type fakeAI struct {
	reply    string
	err      error
	calls    int
	lastMsgs []adapter.Message
}

func (f *fakeAI) ListModels(ctx context.Context) ([]string, error) { return []string{"m"}, nil }
func (f *fakeAI) GetModelInfo(model string) (adapter.ModelInfo, error) {
	return adapter.ModelInfo{Name: model}, nil
}
func (f *fakeAI) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	return 1, nil
}
func (f *fakeAI) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	reply, _, err := f.ChatWithUsage(ctx, model, messages)
	return reply, err
}
func (f *fakeAI) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	f.calls++
	f.lastMsgs = messages
	if f.err != nil {
		return "", adapter.Usage{}, f.err
	}
	return f.reply, adapter.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, nil
}

// ---- helpers ----

func newUC(t *testing.T, fetcher *fakeFetcher, aiStub *fakeAI) *analyzeUC {
	t.Helper()
	tr, err := i18n.ForLocale("en")
	if err != nil {
		t.Fatalf("ForLocale: %v", err)
	}
	logger := zerolog.Nop()
	return NewAnalyzeUseCase(fetcher, aiStub, logparse.New(100), tr, "openai", "gpt-4o-mini", 6000, 100, &logger)
}

func mustRef(t *testing.T, job string, n int) model.BuildRef {
	t.Helper()
	b, err := model.NewBuildRef(job, n)
	if err != nil {
		t.Fatalf("NewBuildRef: %v", err)
	}
	return b
}

// ---- tests ----

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{log: "ERROR: compile failed"}
	aiStub := &fakeAI{reply: "The build failed due to a compile error."}
	uc := newUC(t, fetcher, aiStub)

	report, err := uc.Run(context.Background(), mustRef(t, "build-42", 7))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Summary != "The build failed due to a compile error." {
		t.Errorf("summary must carry the model reply verbatim, got %q", report.Summary)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher calls: got %d", fetcher.calls)
	}
	if aiStub.calls != 1 {
		t.Errorf("ai calls: got %d", aiStub.calls)
	}
	if report.Provider != "openai" || report.Model != "gpt-4o-mini" {
		t.Errorf("provenance: %+v", report)
	}
	if report.Usage.TotalTokens != 15 {
		t.Errorf("usage not propagated: %+v", report.Usage)
	}

	if len(aiStub.lastMsgs) != 2 {
		t.Fatalf("want system+user messages, got %d", len(aiStub.lastMsgs))
	}
	if aiStub.lastMsgs[0].Role != "system" {
		t.Errorf("first message role: %q", aiStub.lastMsgs[0].Role)
	}
	if !strings.Contains(aiStub.lastMsgs[1].Content, "ERROR: compile failed") {
		t.Errorf("user prompt does not embed the excerpt: %q", aiStub.lastMsgs[1].Content)
	}
}

func TestRun_EmptyLogSkipsAI(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{log: "   \n  "}
	aiStub := &fakeAI{reply: "should not be used"}
	uc := newUC(t, fetcher, aiStub)

	report, err := uc.Run(context.Background(), mustRef(t, "build-42", 7))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if aiStub.calls != 0 {
		t.Errorf("empty log must not reach the AI, calls=%d", aiStub.calls)
	}
	if report.Provider != "local" {
		t.Errorf("provider: got %q", report.Provider)
	}
	if !strings.Contains(report.Summary, "build-42 #7") {
		t.Errorf("deterministic empty-log report must name the build: %q", report.Summary)
	}

	again, err := uc.Run(context.Background(), mustRef(t, "build-42", 7))
	if err != nil {
		t.Fatalf("Run again: %v", err)
	}
	if again.Summary != report.Summary {
		t.Errorf("empty-log report not deterministic: %q vs %q", again.Summary, report.Summary)
	}
}

func TestRun_NoFindingsSkipsAI(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{log: "checkout ok\ncompile ok\nall tests green"}
	aiStub := &fakeAI{reply: "should not be used"}
	uc := newUC(t, fetcher, aiStub)

	report, err := uc.Run(context.Background(), mustRef(t, "quiet-job", 3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if aiStub.calls != 0 {
		t.Errorf("no-findings log must not reach the AI, calls=%d", aiStub.calls)
	}
	if !strings.Contains(report.Summary, "100") {
		t.Errorf("report must name the window size: %q", report.Summary)
	}
}

func TestRun_FetchErrorPropagates(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: domain.ErrLogNotFound}
	aiStub := &fakeAI{reply: "unused"}
	uc := newUC(t, fetcher, aiStub)

	_, err := uc.Run(context.Background(), mustRef(t, "gone", 9))
	if !errors.Is(err, domain.ErrLogNotFound) {
		t.Fatalf("want ErrLogNotFound, got %v", err)
	}
	if !domain.IsFetchError(err) {
		t.Error("fetch error must classify as fetch class")
	}
	if aiStub.calls != 0 {
		t.Errorf("no analysis after fetch failure, calls=%d", aiStub.calls)
	}
}

func TestRun_AnalysisErrorPropagates(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{log: "ERROR: boom"}
	aiStub := &fakeAI{err: domain.ErrRateLimited}
	uc := newUC(t, fetcher, aiStub)

	_, err := uc.Run(context.Background(), mustRef(t, "j", 1))
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	if domain.IsFetchError(err) {
		t.Error("analysis error must not classify as fetch class")
	}
}

func TestRun_BlankReplyIsError(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{log: "ERROR: boom"}
	aiStub := &fakeAI{reply: "   "}
	uc := newUC(t, fetcher, aiStub)

	_, err := uc.Run(context.Background(), mustRef(t, "j", 1))
	if !errors.Is(err, domain.ErrEmptyResponse) {
		t.Fatalf("want ErrEmptyResponse, got %v", err)
	}
}
