// Package main is the entry point for the FUSION live dashboard.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// version is stamped at build time.
var version = "dev"

var (
	configPath string
	headless   bool

	mockAddr           string
	mockInterval       time.Duration
	mockMalformedEvery int
	mockSeed           int64

	rootCmd = &cobra.Command{
		Use:           "fusion",
		Short:         "Live event dashboard for the FUSION backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDashboard,
	}

	dashboardCmd = &cobra.Command{
		Use:   "dashboard",
		Short: "Stream events from the backend into the terminal dashboard",
		RunE:  runDashboard,
	}

	mockfeedCmd = &cobra.Command{
		Use:   "mockfeed",
		Short: "Serve a development event stream and bootstrap document",
		RunE:  runMockfeed,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default $FUSION_CONFIG)")

	for _, cmd := range []*cobra.Command{rootCmd, dashboardCmd} {
		cmd.Flags().BoolVar(&headless, "headless", false, "disable the terminal UI and log to stdout")
	}

	mockfeedCmd.Flags().StringVar(&mockAddr, "addr", "127.0.0.1:8080", "listen address")
	mockfeedCmd.Flags().DurationVar(&mockInterval, "interval", time.Second, "delay between events")
	mockfeedCmd.Flags().IntVar(&mockMalformedEvery, "malformed-every", 0, "replace every Nth event with an invalid frame (0 disables)")
	mockfeedCmd.Flags().Int64Var(&mockSeed, "seed", 1, "event generator seed")

	rootCmd.AddCommand(dashboardCmd, mockfeedCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("fusion_failed", "error", err)
		os.Exit(1)
	}
}
