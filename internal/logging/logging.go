package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

type Level string

const (
	Debug Level = "debug"
	Info  Level = "info"
	Warn  Level = "warn"
	Error Level = "error"
)

func ToSlogLevel(level Level) slog.Level {
	switch Level(strings.ToLower(string(level))) {
	case Debug:
		return slog.LevelDebug
	case Info, "":
		return slog.LevelInfo
	case Warn, "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// New builds a logger writing warnings and errors to stderr and, when
// logFile is non-nil, every record at or above level to logFile. Stdout is
// left to the status line.
func New(level Level, stderr io.Writer, logFile io.Writer) *slog.Logger {
	lvl := ToSlogLevel(level)

	errLevel := slog.LevelWarn
	if lvl > errLevel {
		errLevel = lvl
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: errLevel}),
	}
	if logFile != nil {
		handlers = append(handlers, slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: lvl}))
	}

	return slog.New(slogmulti.Fanout(handlers...))
}

// MustCreateLogger opens logPath (if set), installs the logger as the slog
// default and returns it with a closer for the file
func MustCreateLogger(level Level, logPath string) (*slog.Logger, func()) {
	closer := func() {}

	var logFile io.Writer
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			panic(fmt.Sprintf("Failed to open logfile: %v", err))
		}
		closer = func() {
			if errClose := f.Close(); errClose != nil {
				fmt.Fprintf(os.Stderr, "Failed to close log file: %v\n", errClose)
			}
		}
		logFile = f
	}

	logger := New(level, os.Stderr, logFile)
	slog.SetDefault(logger)

	return logger, closer
}

func ErrAttr(err error) slog.Attr {
	return slog.Any("error", err)
}
