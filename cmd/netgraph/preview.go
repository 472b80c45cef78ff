package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/recera/netgraph/cmd/netgraph/internal/config"
	"github.com/recera/netgraph/cmd/netgraph/internal/ui"
	"github.com/recera/netgraph/pkg/capability"
	"github.com/recera/netgraph/pkg/gate"
	"github.com/recera/netgraph/pkg/prefs"
)

func newPreviewCommand() *cobra.Command {
	var logFile string
	var seed int64
	var nodes int

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the scene in the terminal",
		Long: `Renders the animated scene in the terminal. Terminals without color
show the static fallback. Press ? for key bindings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Scene.Seed = seed
			}
			if cmd.Flags().Changed("nodes") {
				cfg.Scene.Nodes = nodes
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runPreview(cmd.Context(), cfg, logFile)
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file (discarded otherwise)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Scene seed (0 picks one from the clock)")
	cmd.Flags().IntVar(&nodes, "nodes", 0, "Number of scene nodes")

	return cmd
}

func runPreview(ctx context.Context, cfg *config.Config, logFile string) error {
	// The terminal belongs to the UI
	var out io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	logger := setupLogging(out, cfg.Log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	env := capability.TerminalEnvironment{}
	systemDefault := env.PrefersReducedMotion()
	if cfg.Prefs.SystemPath != "" {
		v, err := capability.ReadReducedMotion(cfg.Prefs.SystemPath)
		if err != nil {
			logger.Warn("read system motion preference", "path", cfg.Prefs.SystemPath, "error", err)
		}
		systemDefault = systemDefault || v
	}

	path := cfg.Prefs.Path
	if path == "" {
		path = prefs.DefaultPath()
	}
	store, err := prefs.Open(path, systemDefault, logger.With("component", "prefs"))
	if err != nil {
		return err
	}

	stopPrefs, err := store.Watch(ctx)
	if err != nil {
		logger.Warn("preference file not watched", "error", err)
	} else {
		defer stopPrefs()
	}
	if cfg.Prefs.SystemPath != "" {
		stopSystem, err := capability.WatchReducedMotion(ctx, cfg.Prefs.SystemPath,
			logger.With("component", "capability"), store.SetSystemDefault)
		if err != nil {
			logger.Warn("system motion preference not watched", "error", err)
		} else {
			defer stopSystem()
		}
	}

	m := ui.NewModel(ui.Options{
		Logger: logger,
		Gate: gate.Options{
			MaxRestores:     cfg.Gate.MaxRestores,
			DisableOnLowEnd: cfg.Gate.DisableOnLowEnd,
			NodeCount:       cfg.Scene.Nodes,
			Generator:       generator(cfg.Scene.Seed),
		},
		Env:   env,
		Prefs: store,
		FPS:   cfg.Render.FPS,
		Color: termenv.EnvColorProfile() != termenv.Ascii,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}
