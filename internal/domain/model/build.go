package model

import (
	"fmt"
	"strings"

	"ci-log-analyzer/internal/domain"
)

// BuildRef identifies a single build of a CI job. Immutable once created.
type BuildRef struct {
	JobName     string
	BuildNumber int
}

// NewBuildRef validates the job name and build number supplied by the
// orchestrating pipeline before any network call is attempted.
func NewBuildRef(jobName string, buildNumber int) (BuildRef, error) {
	jobName = strings.TrimSpace(jobName)
	if jobName == "" {
		return BuildRef{}, fmt.Errorf("%w: job name is empty", domain.ErrInvalidArgument)
	}
	if buildNumber <= 0 {
		return BuildRef{}, fmt.Errorf("%w: build number %d is not positive", domain.ErrInvalidArgument, buildNumber)
	}
	return BuildRef{JobName: jobName, BuildNumber: buildNumber}, nil
}

func (b BuildRef) String() string {
	return fmt.Sprintf("%s #%d", b.JobName, b.BuildNumber)
}

// ConsoleLog is the raw console text of one build, held only in memory.
type ConsoleLog struct {
	Text      string
	SourceURL string
	Size      int
}

func NewConsoleLog(text, sourceURL string) *ConsoleLog {
	return &ConsoleLog{Text: text, SourceURL: sourceURL, Size: len(text)}
}

// Empty reports whether the log carries no analyzable content.
func (l *ConsoleLog) Empty() bool {
	return l == nil || strings.TrimSpace(l.Text) == ""
}
