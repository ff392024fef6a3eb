package logging

import (
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotatingFileOptions configures the rotating diagnostic log file opened by
// NewRotatingFileLogger; no mindctl flag wires it up. Defaults match the
// teacher's daemon log rotation sizing.
type RotatingFileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func (o RotatingFileOptions) withDefaults() RotatingFileOptions {
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = 10
	}
	if o.MaxBackups <= 0 {
		o.MaxBackups = 5
	}
	if o.MaxAgeDays <= 0 {
		o.MaxAgeDays = 28
	}
	return o
}

// NewRotatingFileLogger returns a structured text logger writing to a
// lumberjack-rotated file at opts.Path, in the same slog.NewTextHandler
// style the teacher's daemon uses for its own diagnostics. The returned
// *lumberjack.Logger must be closed by the caller when done.
func NewRotatingFileLogger(opts RotatingFileOptions) (*slog.Logger, *lumberjack.Logger) {
	opts = opts.withDefaults()
	writer := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(handler), writer
}
