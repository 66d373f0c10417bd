// Package logging configures the process-wide structured logger. It
// follows the same shape the rest of the ecosystem uses for this: a
// logrus.Logger with a JSON or text formatter, level driven by an
// environment variable, and file output rotated through lumberjack.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Fields is a convenience alias so callers don't need to import logrus
// directly just to attach structured fields.
type Fields = logrus.Fields

// New builds a logger with level taken from LOG_LEVEL if set, falling
// back to defaultLevel.
func New(defaultLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetReportCaller(true)

	level := defaultLevel
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	if lvl, err := logrus.ParseLevel(strings.ToLower(level)); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	logger.SetFormatter(jsonFormatter())
	return logger
}

func jsonFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
		},
	}
}

// Configure applies a config-driven level/format/output to an existing
// logger, used by cmd/server after loading config.Config.
func Configure(logger *logrus.Logger, level, format, output string, maxAgeDays int) error {
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(lvl)

	switch format {
	case "", "json":
		logger.SetFormatter(jsonFormatter())
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	default:
		return fmt.Errorf("invalid log format %q", format)
	}

	switch output {
	case "", "stdout":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		logger.SetOutput(&lumberjack.Logger{
			Filename: output,
			MaxAge:   maxAgeDays,
			MaxSize:  100,
			Compress: true,
		})
	}
	return nil
}
