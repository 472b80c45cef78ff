package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/recera/netgraph/pkg/capability"
)

func newProbeCommand() *cobra.Command {
	var asJSON bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Print the capabilities of this terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.Log)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			snap := capability.NewProber(capability.TerminalEnvironment{}, logger).Probe(ctx)

			if !asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), snap.String())
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snapshotJSON(snap))
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the snapshot as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "Probe timeout")

	return cmd
}

func snapshotJSON(s capability.Snapshot) map[string]any {
	out := map[string]any{
		"graphics":      s.Graphics.String(),
		"reducedMotion": s.ReducedMotion,
		"lowEnd":        s.LowEnd,
		"touch":         s.Touch,
		"pixelRatio":    s.PixelRatio,
		"cores":         s.Cores,
		"renderer":      s.Renderer,
		"supported":     s.Supported(),
	}
	if s.MemoryGB != nil {
		out["memoryGB"] = *s.MemoryGB
	}
	return out
}
