package logger

import "log/slog"

// LevelFromFlags maps the CLI verbosity flags to a slog level. Without flags
// only errors reach the log file; --debug adds info and --trace adds debug.
func LevelFromFlags(debug, trace bool) slog.Level {
	if trace {
		return slog.LevelDebug
	}

	if debug {
		return slog.LevelInfo
	}

	return slog.LevelError
}
