package logging

import "log/slog"

// EnableTrace turns on per-card trace output such as full prompts and
// resolved overrides. Set by the --trace flag.
var EnableTrace = false

// Trace logs at DEBUG level, but only if EnableTrace is true.
func Trace(msg string, args ...any) {
	if EnableTrace {
		slog.Debug(msg, args...)
	}
}
