// Package server exposes the dashboard state over HTTP for browser renderers
// and scrapers.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/fusion/dashboard/internal/store"
	"github.com/fusion/dashboard/internal/view"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// Server is the local status server.
type Server struct {
	adapter *view.Adapter
	engine  *gin.Engine

	// PushInterval is the minimum gap between snapshot pushes per client
	PushInterval time.Duration
}

// New creates a server over the adapter.
func New(adapter *view.Adapter, logLevel string) *Server {
	if !strings.EqualFold(logLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		adapter:      adapter,
		engine:       gin.New(),
		PushInterval: 250 * time.Millisecond,
	}
	s.engine.Use(gin.Recovery(), requestLogger())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/snapshot", s.getSnapshot)
	api.GET("/feeds/:feed", s.getFeed)
	api.GET("/parameters", s.getParameters)
	api.GET("/bots", s.getBots)

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("status_server_listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("status_server_stopped")
	return nil
}

func (s *Server) getHealth(c *gin.Context) {
	status := s.adapter.Connection()
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"connection": status.Indicator(),
		"connected":  status.Connected,
		"last_error": status.LastErrorText(),
	})
}

func (s *Server) getSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.adapter.Snapshot())
}

func (s *Server) getFeed(c *gin.Context) {
	id := store.FeedID(c.Param("feed"))
	if id != store.FeedDex && id != store.FeedLiquidation {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown feed " + string(id)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"feed": id, "events": s.adapter.Feed(id)})
}

func (s *Server) getParameters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"parameters": s.adapter.Parameters()})
}

func (s *Server) getBots(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"bots": s.adapter.Bots()})
}

// requestLogger logs each request through slog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http_request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
