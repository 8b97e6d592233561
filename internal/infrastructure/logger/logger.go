package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/media-storage/internal/config"
)

// New creates a zerolog.Logger configured for the media storage service.
func New(cfg *config.Config) zerolog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter builds the service logger on top of an arbitrary writer.
func NewWithWriter(cfg *config.Config, out io.Writer) zerolog.Logger {
	level := parseLevel(cfg.LogLevel)
	var output io.Writer = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	if strings.EqualFold(cfg.LogFormat, "json") {
		output = out
	}
	return zerolog.New(output).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Logger().
		Level(level)
}

func parseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
