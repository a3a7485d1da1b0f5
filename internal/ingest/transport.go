package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport timing.
const (
	HandshakeTimeout = 10 * time.Second
	WriteTimeout     = 10 * time.Second
	PongWait         = 60 * time.Second
	PingPeriod       = (PongWait * 9) / 10
	MaxMessageSize   = 1024 * 1024
)

// TransportEventKind classifies what a connection reported.
type TransportEventKind int

const (
	// FrameReceived carries one text or binary message.
	FrameReceived TransportEventKind = iota
	// ConnClosed reports a close frame from the peer.
	ConnClosed
	// ConnFailed reports a read or protocol error.
	ConnFailed
)

// TransportEvent is a typed notification from a live connection.
type TransportEvent struct {
	Kind TransportEventKind
	Data []byte
	Code int
	Err  error
}

// Conn is one live duplex connection. Its Events channel is closed after the
// final ConnClosed or ConnFailed event, or after Close.
type Conn interface {
	Events() <-chan TransportEvent
	Close(code int, reason string) error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WSDialer dials gorilla WebSocket connections.
type WSDialer struct {
	Header http.Header
}

// Dial opens a WebSocket connection and starts its read and ping pumps.
func (d *WSDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	c := &wsConn{
		conn:   conn,
		events: make(chan TransportEvent, 64),
		done:   make(chan struct{}),
	}
	go c.readPump()
	go c.pingPump()
	return c, nil
}

type wsConn struct {
	conn      *websocket.Conn
	events    chan TransportEvent
	done      chan struct{}
	closeOnce sync.Once
}

func (c *wsConn) Events() <-chan TransportEvent { return c.events }

// Close sends a close frame with code and releases the socket. Safe to call more than once.
func (c *wsConn) Close(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(code, reason)
		writeErr := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(WriteTimeout))
		closeErr := c.conn.Close()
		if writeErr != nil && !errors.Is(writeErr, websocket.ErrCloseSent) {
			err = writeErr
		}
		if closeErr != nil && err == nil {
			err = closeErr
		}
	})
	return err
}

// readPump forwards frames until the connection ends. It is the only sender on events.
func (c *wsConn) readPump() {
	defer close(c.events)

	c.conn.SetReadLimit(MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			c.emit(readFailure(err))
			return
		}
		if !c.emit(TransportEvent{Kind: FrameReceived, Data: message}) {
			return
		}
	}
}

// emit delivers ev unless the connection has been closed locally.
func (c *wsConn) emit(ev TransportEvent) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *wsConn) pingPump() {
	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(WriteTimeout)); err != nil {
				return
			}
		}
	}
}

func readFailure(err error) TransportEvent {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return TransportEvent{Kind: ConnClosed, Code: closeErr.Code, Err: err}
	}
	return TransportEvent{Kind: ConnFailed, Err: err}
}
