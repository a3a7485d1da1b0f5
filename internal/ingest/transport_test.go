package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func nextEvent(t *testing.T, conn Conn) TransportEvent {
	t.Helper()
	select {
	case ev, ok := <-conn.Events():
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for transport event")
		return TransportEvent{}
	}
}

func TestWSDialer_ForwardsFramesAndPeerClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		c.WriteMessage(websocket.TextMessage, []byte(`{"kind":"dex"}`))
		c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "restart"), time.Now().Add(time.Second))
		// wait for the client's close reply
		c.ReadMessage()
	}))
	defer srv.Close()

	conn, err := (&WSDialer{}).Dial(context.Background(), wsURL(srv))
	require.NoError(t, err)
	defer conn.Close(websocket.CloseNormalClosure, "")

	ev := nextEvent(t, conn)
	assert.Equal(t, FrameReceived, ev.Kind)
	assert.JSONEq(t, `{"kind":"dex"}`, string(ev.Data))

	ev = nextEvent(t, conn)
	assert.Equal(t, ConnClosed, ev.Kind)
	assert.Equal(t, websocket.CloseGoingAway, ev.Code)
}

func TestWSDialer_CloseSendsNormalClosure(t *testing.T) {
	upgrader := websocket.Upgrader{}
	codes := make(chan int, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		_, _, err = c.ReadMessage()
		if ce, ok := err.(*websocket.CloseError); ok {
			codes <- ce.Code
			return
		}
		codes <- -1
	}))
	defer srv.Close()

	conn, err := (&WSDialer{}).Dial(context.Background(), wsURL(srv))
	require.NoError(t, err)

	require.NoError(t, conn.Close(websocket.CloseNormalClosure, "client stopped"))
	assert.NoError(t, conn.Close(websocket.CloseNormalClosure, "again"))

	select {
	case code := <-codes:
		assert.Equal(t, websocket.CloseNormalClosure, code)
	case <-time.After(waitFor):
		t.Fatal("server never saw the close frame")
	}

	// events channel is closed after a local close
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-conn.Events():
			return !ok
		default:
			return false
		}
	}, waitFor, tick)
}

func TestWSDialer_DialFailureReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := (&WSDialer{}).Dial(context.Background(), wsURL(srv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestManager_OverRealWebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"welcome","message":"hi"}`))
		c.WriteMessage(websocket.TextMessage, []byte(
			`{"kind":"bot_status","timestamp":"2024-01-01T00:00:00Z","bot_name":"scanner","status":"Scanning"}`))
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	handler := &recordingHandler{}
	m := NewManager(Options{URL: wsURL(srv), Handler: handler})
	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		events, invalid := handler.counts()
		return events == 1 && invalid == 1
	}, waitFor, tick)
	assert.Equal(t, StateOpen, m.Status().State)
}
