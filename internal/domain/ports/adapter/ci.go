package adapter

import (
	"context"

	"ci-log-analyzer/internal/domain/model"
)

// LogFetcher is the port for retrieving a build's console log from a CI server.
type LogFetcher interface {
	FetchConsoleLog(ctx context.Context, build model.BuildRef) (*model.ConsoleLog, error)
}
