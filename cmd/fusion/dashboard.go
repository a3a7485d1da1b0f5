package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fusion/dashboard/internal/config"
	"github.com/fusion/dashboard/internal/server"
	"github.com/fusion/dashboard/internal/session"
	"github.com/fusion/dashboard/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// errQuit ends the run when the user closes the terminal UI.
var errQuit = errors.New("user quit")

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if headless {
		cfg.EnableTUI = false
	}

	// The terminal UI owns stdout, so logs go to a file while it runs
	var out io.Writer = os.Stdout
	if cfg.EnableTUI {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	slog.SetDefault(setupLogger(cfg.LogLevel, out))

	slog.Info("fusion starting", "version", version)
	slog.Info("config_loaded",
		"ws_url", cfg.WSURL,
		"rest_url", cfg.RESTURL,
		"feed_capacity", cfg.FeedCapacity,
		"retry_base", cfg.RetryBase,
		"retry_max", cfg.RetryMax,
		"retry_jitter", cfg.RetryJitter,
		"numeric_parameters", cfg.NumericParameters,
		"enable_tui", cfg.EnableTUI,
		"http_addr", cfg.HTTPAddr,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := session.New(cfg, session.Options{})
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sess.Run(gctx)
	})

	if cfg.HTTPAddr != "" {
		srv := server.New(sess.Adapter, cfg.LogLevel)
		g.Go(func() error {
			return srv.Run(gctx, cfg.HTTPAddr)
		})
	}

	if cfg.EnableTUI {
		app := ui.NewApp(sess.Adapter, cfg.UIRefreshRate)
		g.Go(func() error {
			return runTUI(gctx, app)
		})
	}

	err = g.Wait()
	if errors.Is(err, errQuit) {
		err = nil
	}
	slog.Info("shutdown_complete")
	return err
}

// runTUI runs the app until it exits or ctx is cancelled.
func runTUI(ctx context.Context, app *ui.App) error {
	slog.Info("starting_tui")
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Run()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown_signal_received")
		app.Stop()
		return <-errCh
	case err := <-errCh:
		if err != nil {
			slog.Error("tui_error", "error", err)
			return err
		}
		return errQuit
	}
}
