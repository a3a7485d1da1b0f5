package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fusion/dashboard/internal/mockfeed"
	"github.com/spf13/cobra"
)

func runMockfeed(cmd *cobra.Command, args []string) error {
	slog.SetDefault(setupLogger(os.Getenv("LOG_LEVEL"), os.Stdout))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := mockfeed.New(mockfeed.Options{
		Interval:       mockInterval,
		MalformedEvery: mockMalformedEvery,
		Seed:           mockSeed,
	})
	return srv.Run(ctx, mockAddr)
}
