package mockfeed

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fusion/dashboard/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// EventsPath is the event stream endpoint.
const EventsPath = "/ws/events"

const (
	writeWait  = 2 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 10 * time.Second
)

var welcomeFrame = []byte(`{"type":"welcome","message":"Connected to Fusion WebSocket server"}`)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Options configures the mock feed.
type Options struct {
	// Interval between events on each connection
	Interval time.Duration

	// MalformedEvery sends an invalid frame in place of every Nth event; 0 disables
	MalformedEvery int

	// Seed for the event generator
	Seed int64
}

// Server serves the event stream and the bootstrap document.
type Server struct {
	opts   Options
	engine *gin.Engine

	mu      sync.Mutex
	clients int
}

// New creates a mock feed server.
func New(opts Options) *Server {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{opts: opts, engine: gin.New()}
	s.engine.Use(gin.Recovery())
	s.engine.GET(EventsPath, s.handleEvents)
	s.engine.GET("/api/dashboard", s.getDashboard)
	s.engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": s.Clients()})
	})
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Clients returns the number of connected stream clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("mockfeed_listening", "addr", addr, "interval", s.opts.Interval, "malformed_every", s.opts.MalformedEvery)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("mockfeed_upgrade_failed", "error", err)
		return
	}
	defer conn.Close()

	s.mu.Lock()
	s.clients++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.clients--
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go drain(conn, cancel)

	slog.Info("mockfeed_client_connected", "remote", conn.RemoteAddr().String())
	s.stream(ctx, conn)
	slog.Info("mockfeed_client_disconnected", "remote", conn.RemoteAddr().String())
}

// stream writes the welcome frame and then one event per interval.
func (s *Server) stream(ctx context.Context, conn *websocket.Conn) {
	gen := NewGenerator(s.opts.Seed)

	if err := write(conn, welcomeFrame); err != nil {
		return
	}

	events := time.NewTicker(s.opts.Interval)
	pings := time.NewTicker(pingPeriod)
	defer events.Stop()
	defer pings.Stop()

	sent := 0
	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"))
			return

		case <-events.C:
			sent++
			frame := gen.Next()
			if s.opts.MalformedEvery > 0 && sent%s.opts.MalformedEvery == 0 {
				frame = gen.Malformed()
			}
			if err := write(conn, frame); err != nil {
				slog.Debug("mockfeed_write_error", "error", err)
				return
			}

		case <-pings.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func write(conn *websocket.Conn, frame []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// drain reads until the client goes away so pongs and close frames are handled.
func drain(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

type feedEntry map[string]string

// getDashboard serves the bootstrap document. Feeds are listed newest first.
func (s *Server) getDashboard(c *gin.Context) {
	now := time.Now().UTC()
	ts := func(ago time.Duration) string { return now.Add(-ago).Format(time.RFC3339) }

	c.JSON(http.StatusOK, gin.H{
		"protocol_stats": []store.ProtocolStat{
			{Name: "Venus", ProfitThreshold: 0.42, ScanInterval: 60, Weight: 1.0, AITuned: true},
			{Name: "Aave", ProfitThreshold: 0.38, ScanInterval: 45, Weight: 0.8, AITuned: true},
			{Name: "PancakeSwap", ProfitThreshold: 0.51, ScanInterval: 30, Weight: 1.2, AITuned: false},
		},
		"dex_feed": []feedEntry{
			{"timestamp": ts(0), "dex": "PancakeSwap", "status": store.DexScanning, "message": "Scanning for arbitrage..."},
			{"timestamp": ts(time.Second), "dex": "Uniswap", "status": store.DexSuccess, "message": "Found opportunity!"},
			{"timestamp": ts(2 * time.Second), "dex": "SushiSwap", "status": store.DexError, "message": "API timeout"},
		},
		"liquidation_feed": []feedEntry{
			{"timestamp": ts(0), "account": "0x123...abc", "status": store.LiquidationFlagged, "details": "Health factor below 1.0"},
			{"timestamp": ts(time.Second), "account": "0x456...def", "status": store.LiquidationHealthy, "details": "No risk"},
			{"timestamp": ts(2 * time.Second), "account": "0x789...fed", "status": store.LiquidationFlagged, "details": "Collateral shortfall"},
		},
	})
}
