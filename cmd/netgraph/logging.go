package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recera/netgraph/cmd/netgraph/internal/config"
	"github.com/recera/netgraph/pkg/debug"
)

// loadConfig reads the file named by --config, or netgraph.yaml in the
// working directory
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the process logger from the log section
func newLogger(w io.Writer, c config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Level)}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// setupLogging builds the logger and, at debug level, routes scheduler and
// reactive traces into it
func setupLogging(w io.Writer, c config.LogConfig) *slog.Logger {
	logger := newLogger(w, c)
	if parseLevel(c.Level) == slog.LevelDebug {
		debug.EnableLogging(logger.With("component", "trace"))
	}
	return logger
}
