package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenUsage mirrors what the provider reported for a single analysis call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// AnalysisReport is the outcome of analyzing one build's console log.
// Summary is the text that reaches standard output verbatim; nothing here
// is persisted beyond the process.
type AnalysisReport struct {
	ID        string
	Build     BuildRef
	Provider  string
	Model     string
	Summary   string
	Usage     TokenUsage
	CreatedAt time.Time
}

func NewAnalysisReport(build BuildRef, provider, modelName, summary string) *AnalysisReport {
	return &AnalysisReport{
		ID:        uuid.NewString(),
		Build:     build,
		Provider:  provider,
		Model:     modelName,
		Summary:   summary,
		CreatedAt: time.Now(),
	}
}
