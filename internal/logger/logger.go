package logger

import (
	"io"
	"log/slog"
	"os"
)

var Logger = slog.Default()

// New builds a text logger writing to w; debug enables debug level.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// Init installs the process logger on stdout and returns it.
func Init(debug bool) *slog.Logger {
	Logger = New(os.Stdout, debug)
	slog.SetDefault(Logger)
	return Logger
}

// OrDefault returns l, or the process logger when l is nil.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Logger
}
