package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// LoggingConfig selects log verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // panic|fatal|error|warn|info|debug|trace
	Format string `yaml:"format"` // text|json
}

// DefaultLoggingConfig logs info and above as human-readable text.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{Level: "info", Format: "text"}
}

// NewLogger builds the process logger. Logs go to stderr so that stdout
// stays reserved for the command's own narration.
func NewLogger(cfg LoggingConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(err, "parse log level")
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errors.Errorf("unknown log format %q", cfg.Format)
	}
	return logger, nil
}

// componentLogger tags a logger with the component name, or discards
// everything when logger is nil.
func componentLogger(logger logrus.FieldLogger, component string) logrus.FieldLogger {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return logger.WithField("component", component)
}
