// Package logger builds the process-wide slog logger: a console handler
// (tint, JSON or plain text) optionally fanned out to a Fluent Bit sink.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"

	"github.com/jengzang/bim4d-backend-go/internal/config"
)

// ConsoleOptions configures the console handler
type ConsoleOptions struct {
	Writer    io.Writer
	Level     slog.Leveler
	AddSource bool
	JSON      bool
	Color     bool
}

// NewConsoleHandler returns a JSON, tint or text handler
func NewConsoleHandler(opts ConsoleOptions) slog.Handler {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{AddSource: opts.AddSource, Level: opts.Level}

	switch {
	case opts.JSON:
		return slog.NewJSONHandler(opts.Writer, hopts)
	case opts.Color:
		return tint.NewHandler(opts.Writer, &tint.Options{
			Level:      opts.Level,
			AddSource:  opts.AddSource,
			TimeFormat: "2006-01-02 15:04:05",
		})
	default:
		return slog.NewTextHandler(opts.Writer, hopts)
	}
}

// ParseLevel maps debug/info/warn/error onto slog levels; unknown is info
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// New builds the logger described by cfg. The returned close function
// flushes and closes the fluent client when one was opened.
func New(cfg *config.Config) (*slog.Logger, func() error, error) {
	console := NewConsoleHandler(ConsoleOptions{
		Level: ParseLevel(cfg.Log.Level),
		JSON:  cfg.Log.JSON,
		Color: cfg.Log.Color,
	})
	closer := func() error { return nil }

	if !cfg.FluentBit.Enabled {
		return slog.New(console).With("app", cfg.AppName), closer, nil
	}

	client, err := fluent.New(fluent.Config{
		FluentHost: cfg.FluentBit.Host,
		FluentPort: cfg.FluentBit.Port,
		Async:      true,
	})
	if err != nil {
		return nil, closer, fmt.Errorf("failed to connect to fluent bit: %w", err)
	}
	remote := NewFluentHandler(client, cfg.AppName, ParseLevel(cfg.FluentBit.Level))
	logger := slog.New(NewFanoutHandler(console, remote)).With("app", cfg.AppName)
	return logger, client.Close, nil
}
