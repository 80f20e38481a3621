package domain

import "errors"

var (
	// Configuration errors
	ErrMissingConfig   = errors.New("missing required configuration")
	ErrInvalidArgument = errors.New("invalid argument")

	// Fetch errors (CI side)
	ErrLogNotFound       = errors.New("console log not found")
	ErrFetchUnauthorized = errors.New("ci server rejected credentials")
	ErrFetchFailed       = errors.New("console log fetch failed")

	// Analysis errors (AI side)
	ErrRateLimited    = errors.New("ai provider rate limited")
	ErrEmptyResponse  = errors.New("ai provider returned no content")
	ErrAnalysisFailed = errors.New("log analysis failed")
)

// IsConfigError reports whether err belongs to the configuration class.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrMissingConfig) || errors.Is(err, ErrInvalidArgument)
}

// IsFetchError reports whether err belongs to the CI fetch class.
func IsFetchError(err error) bool {
	return errors.Is(err, ErrLogNotFound) ||
		errors.Is(err, ErrFetchUnauthorized) ||
		errors.Is(err, ErrFetchFailed)
}
