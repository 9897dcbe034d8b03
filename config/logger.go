package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger builds the slog logger described by the logging section.
func (c *Config) Logger() (*slog.Logger, error) {
	var w io.Writer = os.Stderr
	if strings.EqualFold(c.Logging.Output, "stdout") {
		w = os.Stdout
	}
	return c.LoggerTo(w)
}

// LoggerTo is Logger writing to w instead of the configured output.
func (c *Config) LoggerTo(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: c.Logging.AddSource,
	}

	var handler slog.Handler
	switch strings.ToLower(c.Logging.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return slog.New(handler), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
