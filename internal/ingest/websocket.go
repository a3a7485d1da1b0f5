package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fusion/dashboard/internal/store"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// DefaultURL is the canonical event endpoint.
const DefaultURL = "ws://localhost:8080/ws/events"

var errConnectionEnded = errors.New("connection ended")

// Handler receives everything the manager produces. All methods are called
// from the manager goroutine and must not block.
type Handler interface {
	HandleEvent(event store.Event)
	HandleInvalid(raw []byte, err error)
	HandleStatus(status Status)
}

// Options configures a Manager. Zero values fall back to defaults.
type Options struct {
	URL     string
	Dialer  Dialer
	Backoff Backoff
	Clock   Clock
	Handler Handler

	// NewAttemptID generates connection attempt IDs
	NewAttemptID func() string
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdStop
)

type command struct {
	kind  commandKind
	reply chan struct{}
}

type dialResult struct {
	attemptID string
	conn      Conn
	err       error
}

// Manager keeps one live connection to the event endpoint and reconnects with
// backoff when it drops. One goroutine owns all connection state; Start and
// Stop talk to it over a channel.
type Manager struct {
	url     string
	dialer  Dialer
	backoff Backoff
	clock   Clock
	handler Handler
	newID   func() string

	cmds        chan command
	dialResults chan dialResult

	mu       sync.Mutex
	loopDone chan struct{}
	status   Status

	// owned by the loop goroutine
	state      State
	retryCount int
	nextDelay  time.Duration
	lastErr    error
	since      time.Time
	attemptID  string
	connID     string
	conn       Conn
	events     <-chan TransportEvent
	timer      Timer
	dialCancel context.CancelFunc
	done       chan struct{}
}

// NewManager creates a manager in the Idle state.
func NewManager(opts Options) *Manager {
	m := &Manager{
		url:         opts.URL,
		dialer:      opts.Dialer,
		backoff:     opts.Backoff,
		clock:       opts.Clock,
		handler:     opts.Handler,
		newID:       opts.NewAttemptID,
		cmds:        make(chan command),
		dialResults: make(chan dialResult),
	}
	if m.url == "" {
		m.url = DefaultURL
	}
	if m.dialer == nil {
		m.dialer = &WSDialer{}
	}
	if err := m.backoff.Validate(); err != nil {
		if m.backoff.Base != 0 || m.backoff.Max != 0 || m.backoff.Jitter != 0 {
			slog.Warn("ws_backoff_invalid", "error", err, "fallback", "default")
		}
		m.backoff = DefaultBackoff()
	}
	if m.clock == nil {
		m.clock = RealClock{}
	}
	if m.handler == nil {
		m.handler = nopHandler{}
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	m.since = m.clock.Now()
	m.status = m.snapshot()
	return m
}

// Start connects. It is a no-op while connecting or open; while a retry is
// pending it cancels the timer and connects immediately. Cancelling ctx has
// the same effect as Stop.
func (m *Manager) Start(ctx context.Context) {
	for ctx.Err() == nil {
		done := m.ensureLoop(ctx)
		reply := make(chan struct{})
		select {
		case m.cmds <- command{kind: cmdStart, reply: reply}:
			<-reply
			return
		case <-done:
			// the loop exited underneath us; start a fresh one
		}
	}
}

// Stop closes the connection terminally. It returns once the timer is
// cancelled, any in-flight dial is abandoned and the socket is closed.
func (m *Manager) Stop() {
	m.mu.Lock()
	done := m.loopDone
	m.mu.Unlock()
	if done == nil {
		return
	}

	reply := make(chan struct{})
	select {
	case m.cmds <- command{kind: cmdStop, reply: reply}:
		<-reply
	case <-done:
	}
	<-done
}

// Status returns the most recently published status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Manager) ensureLoop(ctx context.Context) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loopDone == nil {
		m.loopDone = make(chan struct{})
		go m.run(ctx, m.loopDone)
	}
	return m.loopDone
}

// run is the manager loop. It is the only caller of Validate and the handler.
func (m *Manager) run(ctx context.Context, done chan struct{}) {
	m.done = done
	defer func() {
		m.mu.Lock()
		m.loopDone = nil
		m.mu.Unlock()
		close(done)
	}()

	for {
		var timerC <-chan time.Time
		if m.timer != nil {
			timerC = m.timer.C()
		}

		select {
		case <-ctx.Done():
			m.shutdown("context cancelled")
			return

		case cmd := <-m.cmds:
			if cmd.kind == cmdStop {
				m.shutdown("stop requested")
				close(cmd.reply)
				return
			}
			m.handleStart(ctx)
			close(cmd.reply)

		case res := <-m.dialResults:
			m.handleDial(res)

		case ev, ok := <-m.events:
			m.handleTransport(ev, ok)

		case <-timerC:
			m.timer = nil
			slog.Debug("ws_retry_timer_fired", "retry_count", m.retryCount)
			m.connect(ctx)
		}
	}
}

func (m *Manager) handleStart(ctx context.Context) {
	switch m.state {
	case StateOpen, StateConnecting:
		slog.Debug("ws_start_ignored", "state", m.state.String())
	case StateRetrying:
		m.stopTimer()
		m.connect(ctx)
	default:
		m.connect(ctx)
	}
}

// connect replaces any live connection with a fresh dial attempt.
func (m *Manager) connect(ctx context.Context) {
	m.stopTimer()
	m.cancelDial()
	m.closeConn(websocket.CloseNormalClosure, "reconnecting")

	id := m.newID()
	m.attemptID = id
	m.nextDelay = 0

	dialCtx, cancel := context.WithCancel(ctx)
	m.dialCancel = cancel
	m.setState(StateConnecting)
	slog.Info("ws_connecting", "endpoint", m.url, "attempt_id", id, "retry_count", m.retryCount)

	done := m.done
	go func() {
		conn, err := m.dialer.Dial(dialCtx, m.url)
		select {
		case m.dialResults <- dialResult{attemptID: id, conn: conn, err: err}:
		case <-done:
			if conn != nil {
				conn.Close(websocket.CloseNormalClosure, "client stopped")
			}
		}
	}()
}

func (m *Manager) handleDial(res dialResult) {
	if res.attemptID != m.attemptID || m.state != StateConnecting {
		slog.Debug("ws_dial_stale", "attempt_id", res.attemptID)
		if res.conn != nil {
			res.conn.Close(websocket.CloseNormalClosure, "superseded")
		}
		return
	}
	m.cancelDial()

	if res.err != nil {
		slog.Warn("ws_connect_failed", "attempt_id", res.attemptID, "error", res.err)
		m.fail(&TransportError{AttemptID: res.attemptID, Phase: PhaseDial, Err: res.err})
		return
	}

	m.conn = res.conn
	m.events = res.conn.Events()
	m.connID = res.attemptID
	m.retryCount = 0
	m.nextDelay = 0
	m.lastErr = nil
	m.setState(StateOpen)
	slog.Info("ws_connected", "endpoint", m.url, "attempt_id", res.attemptID)
}

func (m *Manager) handleTransport(ev TransportEvent, ok bool) {
	if !ok {
		m.fail(&TransportError{AttemptID: m.connID, Phase: PhaseRead, Err: errConnectionEnded})
		return
	}

	switch ev.Kind {
	case FrameReceived:
		event, err := Validate(ev.Data)
		if err != nil {
			m.handler.HandleInvalid(ev.Data, err)
			return
		}
		m.handler.HandleEvent(event)

	case ConnClosed:
		slog.Warn("ws_closed_by_peer", "attempt_id", m.connID, "code", ev.Code)
		m.fail(&TransportError{AttemptID: m.connID, Phase: PhaseClose, Err: ev.Err})

	case ConnFailed:
		slog.Warn("ws_read_error", "attempt_id", m.connID, "error", ev.Err)
		m.fail(&TransportError{AttemptID: m.connID, Phase: PhaseRead, Err: ev.Err})
	}
}

// fail moves to Closed and arms exactly one retry timer. The timer is armed
// before Closed is published so no status ever reads as stopped.
func (m *Manager) fail(err error) {
	m.lastErr = err
	m.closeConn(websocket.CloseNormalClosure, "")

	delay := m.backoff.Delay(m.retryCount)
	m.retryCount++
	m.nextDelay = delay
	m.timer = m.clock.NewTimer(delay)
	m.setState(StateClosed)
	m.setState(StateRetrying)
	slog.Info("ws_retry_scheduled", "delay", delay, "retry_count", m.retryCount, "error", err)
}

// shutdown is the terminal teardown. It runs in a single loop turn.
func (m *Manager) shutdown(reason string) {
	m.stopTimer()
	m.cancelDial()
	m.attemptID = ""
	m.closeConn(websocket.CloseNormalClosure, "client stopped")
	m.nextDelay = 0
	m.setState(StateClosed)
	slog.Info("ws_stopped", "reason", reason)
}

func (m *Manager) closeConn(code int, reason string) {
	if m.conn == nil {
		return
	}
	if err := m.conn.Close(code, reason); err != nil {
		slog.Debug("ws_close_error", "attempt_id", m.connID, "error", err)
	}
	m.conn = nil
	m.events = nil
	slog.Info("ws_disconnected", "attempt_id", m.connID)
}

func (m *Manager) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) cancelDial() {
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
}

func (m *Manager) setState(s State) {
	m.state = s
	m.since = m.clock.Now()

	status := m.snapshot()
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
	m.handler.HandleStatus(status)
}

func (m *Manager) snapshot() Status {
	return Status{
		State:          m.state,
		Connected:      m.state == StateOpen,
		Pending:        m.timer != nil,
		LastError:      m.lastErr,
		RetryCount:     m.retryCount,
		NextRetryDelay: m.nextDelay,
		ConnID:         m.connID,
		Since:          m.since,
	}
}

type nopHandler struct{}

func (nopHandler) HandleEvent(store.Event) {}
func (nopHandler) HandleInvalid([]byte, error) {}
func (nopHandler) HandleStatus(Status) {}
