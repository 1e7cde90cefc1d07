// Package logger is the process-wide structured logger. It wraps zerolog and
// keeps the printf style helpers used across the codebase.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls where and how much is logged.
type Config struct {
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string
	// Pretty switches to zerolog's human readable console writer.
	Pretty bool
	// Output defaults to os.Stderr.
	Output io.Writer
	// File, when set, also receives every entry as JSON lines.
	File string
}

var (
	defaultLogger zerolog.Logger
	logFile       *os.File
)

func init() {
	_ = Configure(Config{Level: "info", Pretty: true})
}

// Configure replaces the global logger. It fails only when File cannot be
// opened.
func Configure(cfg Config) error {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	Close()
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o750); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", cfg.File, err)
		}
		logFile = f
		out = zerolog.MultiLevelWriter(out, f)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	defaultLogger = zerolog.New(out).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
	return nil
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Close releases the log file opened by Configure, if any.
func Close() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// L returns the current logger.
func L() *zerolog.Logger { return &defaultLogger }

func Debug() *zerolog.Event { return defaultLogger.Debug() }
func Info() *zerolog.Event  { return defaultLogger.Info() }
func Warn() *zerolog.Event  { return defaultLogger.Warn() }
func Error() *zerolog.Event { return defaultLogger.Error() }

func Infof(format string, v ...any)  { defaultLogger.Info().Msgf(format, v...) }
func Warnf(format string, v ...any)  { defaultLogger.Warn().Msgf(format, v...) }
func Errorf(format string, v ...any) { defaultLogger.Error().Msgf(format, v...) }
