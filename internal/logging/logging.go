package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init builds a text logger writing to stdout and, when logPath is set, to
// that file as well. It also becomes the slog default. The returned closer
// releases the log file.
func Init(logPath string, logLevel string) (*slog.Logger, func() error, error) {
	var (
		w      io.Writer = os.Stdout
		closer           = func() error { return nil }
	)
	if logPath != "" {
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o666)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, logFile)
		closer = logFile.Close
	}

	logger, err := New(w, logLevel)
	slog.SetDefault(logger)
	if err != nil {
		logger.Warn(err.Error())
	}
	return logger, closer, nil
}

// New builds a text logger on w. An unknown level falls back to INFO and is
// reported through the error.
func New(w io.Writer, logLevel string) (*slog.Logger, error) {
	level, err := ParseLevel(logLevel)
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("module", "minidock"), err
}

func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q, using INFO", levelStr)
	}
}
