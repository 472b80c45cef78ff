package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/recera/netgraph/cmd/netgraph/internal/config"
	"github.com/recera/netgraph/cmd/netgraph/internal/site"
	"github.com/recera/netgraph/pkg/gate"
	"github.com/recera/netgraph/pkg/live"
	"github.com/recera/netgraph/pkg/metrics"
	"github.com/recera/netgraph/pkg/surface"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand() *cobra.Command {
	var port int
	var host string
	var seed int64
	var nodes int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scene over HTTP and live WebSocket sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			// CLI takes precedence
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
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

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	cmd.Flags().StringVarP(&host, "host", "H", "localhost", "Host to bind to")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Scene seed (0 picks one from the clock)")
	cmd.Flags().IntVar(&nodes, "nodes", 0, "Number of scene nodes")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := setupLogging(os.Stderr, cfg.Log)
	reg := metrics.NewRegistry().WithProcessCollectors()

	viewport := surface.Viewport{
		Width:      cfg.Render.Width,
		Height:     cfg.Render.Height,
		PixelRatio: 1,
	}

	liveServer := live.NewServer(live.Options{
		Logger:   logger.With("component", "live"),
		Metrics:  reg,
		FPS:      cfg.Render.FPS,
		Viewport: viewport,
		Seed:     cfg.Scene.Seed,
		Gate: gate.Options{
			MaxRestores:     cfg.Gate.MaxRestores,
			DisableOnLowEnd: cfg.Gate.DisableOnLowEnd,
			NodeCount:       cfg.Scene.Nodes,
		},
	})

	s := site.New(site.Options{
		Logger:        logger,
		Metrics:       reg,
		Live:          liveServer,
		ServeMetrics:  cfg.Server.Metrics,
		Viewport:      viewport,
		NodeCount:     cfg.Scene.Nodes,
		Seed:          cfg.Scene.Seed,
		PixelRatioCap: cfg.Render.PixelRatioCap,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving", "addr", "http://"+cfg.Addr(), "nodes", cfg.Scene.Nodes, "fps", cfg.Render.FPS)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		liveServer.Close()
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	// Hijacked sockets are not tracked by Shutdown
	liveServer.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
