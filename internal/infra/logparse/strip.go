// Package logparse reduces a raw console log to the excerpt worth sending to
// an LLM: it strips terminal noise, keeps the failure tail, extracts
// error-bearing lines and redacts credentials before anything leaves the
// process.
package logparse

import "regexp"

var (
	// ANSI escape codes: \x1b[...m (SGR sequences)
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

	// Jenkins console note markers: \x1b[8mha:...\x1b[0m blobs embedded by
	// the timestamper and pipeline plugins.
	consoleNotePattern = regexp.MustCompile(`\x1b\[8mha:[^\x1b]*\x1b\[0m`)
)

// StripANSI removes ANSI color sequences and Jenkins console note markers.
func StripANSI(s string) string {
	s = consoleNotePattern.ReplaceAllString(s, "")
	s = ansiPattern.ReplaceAllString(s, "")
	return s
}
