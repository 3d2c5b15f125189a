package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
const (
	VerbosityUser  = 0 // No flags: lifecycle and per-chunk summaries
	VerbosityDebug = 1 // -v: + scan/notify dispatch, connection lifecycle
	VerbosityTrace = 2 // -vv: + SQL statements
)

// VerbosityToLevel maps verbosity flags (-v, -vv) to zap log levels.
//
// A stage runner is a daemon whose normal output is its per-chunk summary,
// so the floor is InfoLevel rather than WarnLevel.
//
//	0 (none)  -> InfoLevel
//	1+ (-v)   -> DebugLevel
func VerbosityToLevel(verbosity int) zapcore.Level {
	if verbosity >= VerbosityDebug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// ShouldLogTrace returns true for verbosity >= 2 (-vv)
func ShouldLogTrace(verbosity int) bool {
	return verbosity >= VerbosityTrace
}
