// Package main wires the acquisition pipeline's components
// (crawlstore -> ratelimit -> httpclient -> downloader) into a single
// runnable binary. The flag surface is deliberately thin: only the config
// file path and the source to drain are exposed, per spec.md §1's
// Non-goal on CLI flag/config-format surface. Structure follows the
// teacher's internal/cli root command, generalized from documentation
// crawling to document acquisition.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/monokrome/foiacquire-sub003/internal/config"
)

var (
	configFile string
	sourceID   string
)

var rootCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Drains one source's pending URLs through the document acquisition pipeline.",
	Long: `acquire loads a JSON configuration file describing a source's seed
URLs and pipeline policy, then runs the download worker pool to completion
or until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.WithConfigFile(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, cfg, sourceID)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a JSON pipeline configuration file")
	rootCmd.PersistentFlags().StringVar(&sourceID, "source", "default", "source identifier to drain")
	rootCmd.MarkPersistentFlagRequired("config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
