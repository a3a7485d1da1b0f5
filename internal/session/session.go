// Package session wires one dashboard session: the stores, the router, the
// connection manager and the view adapter.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fusion/dashboard/internal/config"
	"github.com/fusion/dashboard/internal/ingest"
	"github.com/fusion/dashboard/internal/metrics"
	"github.com/fusion/dashboard/internal/router"
	"github.com/fusion/dashboard/internal/store"
	"github.com/fusion/dashboard/internal/view"
	"golang.org/x/time/rate"
)

const (
	// BootstrapTimeout bounds the initial REST fetch
	BootstrapTimeout = 5 * time.Second

	// CleanupInterval is how often the tracker's rate window is trimmed
	CleanupInterval = 5 * time.Minute
)

// Options overrides session collaborators, mostly for tests.
type Options struct {
	Dialer ingest.Dialer
	Clock  ingest.Clock
}

// Session owns the state for one process lifetime. Feed, parameter and bot
// state survive reconnects.
type Session struct {
	cfg *config.Config

	Feeds     *store.FeedStore
	Params    *store.ParameterState
	Bots      *store.BotStatusMap
	Protocols *store.ProtocolStats
	Tracker   *metrics.MetricsTracker
	Router    *router.Router
	Adapter   *view.Adapter

	// seeder applies bootstrap history without counting it as live traffic
	seeder *router.Router

	manager   *ingest.Manager
	bootstrap *ingest.BootstrapClient

	rejectLog rate.Sometimes
}

// New builds a session from validated configuration.
func New(cfg *config.Config, opts Options) *Session {
	s := &Session{
		cfg:       cfg,
		Feeds:     store.NewFeedStore(cfg.FeedCapacity),
		Params:    store.NewParameterState(),
		Bots:      store.NewBotStatusMap(),
		Protocols: store.NewProtocolStats(),
		Tracker:   metrics.NewMetricsTracker(),
		rejectLog: rate.Sometimes{First: 3, Interval: 5 * time.Second},
	}

	s.Adapter = view.NewAdapter(s.Feeds, s.Params, s.Bots, s.Protocols, s.Tracker)
	s.Router = router.New(router.Config{
		Feeds:             s.Feeds,
		Parameters:        s.Params,
		Bots:              s.Bots,
		NumericParameters: cfg.NumericParameters,
		Notifier:          s.Adapter,
		Recorder:          s.Tracker,
	})
	s.seeder = router.New(router.Config{
		Feeds:             s.Feeds,
		Parameters:        s.Params,
		Bots:              s.Bots,
		NumericParameters: cfg.NumericParameters,
	})

	s.manager = ingest.NewManager(ingest.Options{
		URL:    cfg.WSURL,
		Dialer: opts.Dialer,
		Backoff: ingest.Backoff{
			Base:   cfg.RetryBase,
			Max:    cfg.RetryMax,
			Jitter: cfg.RetryJitter,
		},
		Clock:   opts.Clock,
		Handler: s,
	})

	if cfg.RESTURL != "" {
		s.bootstrap = ingest.NewBootstrapClient(cfg.RESTURL)
	}
	return s
}

// Run bootstraps, starts streaming and blocks until ctx is cancelled. The
// connection is closed before Run returns.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Bootstrap(ctx); err != nil {
		slog.Warn("bootstrap_failed", "url", s.cfg.RESTURL, "error", err)
	}

	s.Start(ctx)
	slog.Info("session_started", "endpoint", s.cfg.WSURL, "feed_capacity", s.Feeds.Capacity())

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			slog.Info("session_stopped")
			return nil
		case <-ticker.C:
			s.Tracker.Cleanup()
		}
	}
}

// Bootstrap loads protocol stats and seeds the feeds from the REST endpoint.
// It is a no-op when no REST URL is configured.
func (s *Session) Bootstrap(ctx context.Context) error {
	if s.bootstrap == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, BootstrapTimeout)
	defer cancel()

	dash, err := s.bootstrap.Fetch(ctx)
	if err != nil {
		return err
	}

	s.Protocols.Set(dash.ProtocolStats)

	// feeds are listed newest first; replay oldest first so order survives
	seeded := 0
	for _, feed := range [][]store.Event{dash.DexFeed, dash.LiquidationFeed} {
		for i := len(feed) - 1; i >= 0; i-- {
			if err := s.seeder.Dispatch(feed[i]); err == nil {
				seeded++
			}
		}
	}
	s.Tracker.AddBootstrapEvents(seeded)
	s.Adapter.Notify()

	slog.Info("bootstrap_applied", "events", seeded, "protocols", len(dash.ProtocolStats), "rejected", dash.Rejected)
	return nil
}

// Start connects to the event endpoint.
func (s *Session) Start(ctx context.Context) {
	s.manager.Start(ctx)
}

// Stop closes the connection terminally.
func (s *Session) Stop() {
	s.manager.Stop()
}

// Status returns the current connection status.
func (s *Session) Status() ingest.Status {
	return s.manager.Status()
}

// HandleEvent routes one validated event.
func (s *Session) HandleEvent(event store.Event) {
	s.Tracker.IncrementMessages()

	if err := s.Router.Dispatch(event); err != nil {
		var coercionErr *router.ParameterCoercionError
		if !errors.As(err, &coercionErr) {
			slog.Error("dispatch_failed", "kind", event.Kind(), "error", err)
		}
	}
}

// HandleInvalid counts a dropped payload. Logging is throttled.
func (s *Session) HandleInvalid(raw []byte, err error) {
	s.Tracker.IncrementMessages()

	reason := ingest.ReasonLabel(err)
	s.Tracker.IncrementRejected(reason)
	s.rejectLog.Do(func() {
		slog.Warn("event_rejected", "reason", reason, "bytes", len(raw), "error", err)
	})
}

// HandleStatus publishes connection transitions to renderers.
func (s *Session) HandleStatus(status ingest.Status) {
	if status.State == ingest.StateRetrying {
		s.Tracker.IncrementReconnects()
	}
	s.Adapter.SetConnection(status)
}
