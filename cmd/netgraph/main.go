package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "netgraph",
		Short: "netgraph - adaptive network scene renderer",
		Long: `netgraph renders an animated 3D network of nodes, edges and packets.
It probes the client's capabilities and falls back to a static gradient
when the animated scene cannot or should not be shown.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to netgraph.yaml (defaults to ./netgraph.yaml)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newPreviewCommand())
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newProbeCommand())

	return rootCmd
}
