package logparse

import (
	"regexp"
	"strings"
)

var (
	errorPattern  = regexp.MustCompile(`(?i)(error|exception|failed|failure|fatal|traceback|panic)`)
	secretPattern = regexp.MustCompile(`(?i)(password|token|secret|api[_-]?key)\S*`)
)

// Parser extracts the failure-relevant excerpt from a console log. Only the
// last tailLines lines are considered: failures surface at the end of build
// logs and the window keeps prompt cost bounded.
type Parser struct {
	tailLines int
}

func New(tailLines int) *Parser {
	if tailLines <= 0 {
		tailLines = 100
	}
	return &Parser{tailLines: tailLines}
}

// Excerpt returns the error-bearing lines of the log tail, stripped of
// terminal noise and with credential-shaped tokens redacted. Returns ""
// when no line in the window matches an error keyword.
func (p *Parser) Excerpt(raw string) string {
	lines := strings.Split(StripANSI(raw), "\n")
	if len(lines) > p.tailLines {
		lines = lines[len(lines)-p.tailLines:]
	}

	var out []string
	for _, line := range lines {
		if !errorPattern.MatchString(line) {
			continue
		}
		line = secretPattern.ReplaceAllString(line, "[REDACTED]")
		out = append(out, strings.TrimSpace(line))
	}
	return strings.Join(out, "\n")
}

// Redact applies the credential filter alone, for callers that forward raw
// lines (for example the no-findings fallback).
func Redact(s string) string {
	return secretPattern.ReplaceAllString(s, "[REDACTED]")
}
