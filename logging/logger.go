// Package logging installs the default slog logger. Records are written by
// zerolog as JSON or console lines, and errors from cockroachdb/errors carry
// their stack trace.
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

var (
	ErrInvalidLevel  = errors.New("invalid log level")
	ErrInvalidFormat = errors.New("invalid log format")
)

// New builds a slog logger writing to w at the given level and format
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ToLevel(level)
	if err != nil {
		return nil, err
	}

	var out io.Writer
	switch strings.ToLower(format) {
	case "", FormatJSON:
		out = w
	case FormatConsole:
		out = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339}
	default:
		return nil, errors.Wrapf(ErrInvalidFormat, "%q, expected json or console", format)
	}

	zl := zerolog.New(out)
	return slog.New(WrapByErrFmtHandler(NewZerologHandler(zl, lvl))), nil
}

// Setup installs the logger from New as the slog default
func Setup(w io.Writer, level, format string) error {
	logger, err := New(w, level, format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

func ToLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Wrapf(ErrInvalidLevel, "%q", level)
	}
}
