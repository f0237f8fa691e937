package utils

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// LoggerOptions configures InitLogger.
type LoggerOptions struct {
	// Level is the textual log level: debug, info, warn, error, fatal.
	Level string
	// Output is where log lines go. Defaults to stderr.
	Output io.Writer
	// Prefix is the logger prefix shown on every line.
	Prefix string
	// ReportTimestamp controls timestamp rendering.
	ReportTimestamp bool
}

// InitLogger builds a charmbracelet logger from options.
func InitLogger(opts LoggerOptions) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return log.NewWithOptions(out, log.Options{
		Level:           parseLevel(opts.Level),
		Prefix:          opts.Prefix,
		ReportTimestamp: opts.ReportTimestamp,
	})
}

// InitDefaultLogger builds the standard stderr logger for CLI commands.
// SAFEGATE_LOG_LEVEL overrides the level.
func InitDefaultLogger() *log.Logger {
	level := os.Getenv("SAFEGATE_LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	return InitLogger(LoggerOptions{
		Level:  level,
		Prefix: "safegate",
	})
}

func parseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}
