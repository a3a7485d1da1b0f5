package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fusion/dashboard/internal/ingest"
	"github.com/fusion/dashboard/internal/metrics"
	"github.com/fusion/dashboard/internal/store"
	"github.com/fusion/dashboard/internal/view"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	feeds   *store.FeedStore
	bots    *store.BotStatusMap
	adapter *view.Adapter
	server  *Server
}

func newFixture() *fixture {
	f := &fixture{
		feeds: store.NewFeedStore(10),
		bots:  store.NewBotStatusMap(),
	}
	f.adapter = view.NewAdapter(f.feeds, store.NewParameterState(), f.bots, store.NewProtocolStats(), metrics.NewMetricsTracker())
	f.server = New(f.adapter, "INFO")
	f.server.PushInterval = time.Millisecond
	return f
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	f := newFixture()
	f.adapter.SetConnection(ingest.Status{State: ingest.StateOpen, Connected: true})

	rec := f.get(t, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "connected", body["connection"])
}

func TestServer_Feeds(t *testing.T) {
	f := newFixture()
	f.feeds.Push(store.FeedDex, &store.DexScanEvent{Dex: "Uniswap", Status: store.DexScanning})

	rec := f.get(t, "/api/feeds/dex")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Feed   string           `json:"feed"`
		Events []view.FeedEntry `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, "Uniswap", body.Events[0].Subject)

	rec = f.get(t, "/api/feeds/liquidation")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.get(t, "/api/feeds/orders")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_SnapshotAndMetrics(t *testing.T) {
	f := newFixture()
	f.bots.Replace("scanner", store.BotStatus{Status: "Idle"})

	rec := f.get(t, "/api/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap view.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Bots, 1)
	assert.Equal(t, "stopped", snap.Connection.Indicator)

	rec = f.get(t, "/api/bots")
	assert.Contains(t, rec.Body.String(), "scanner")

	rec = f.get(t, "/api/parameters")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fusion_messages_received_total")
}

func TestServer_PushesSnapshotOnChange(t *testing.T) {
	f := newFixture()
	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first view.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Empty(t, first.DexFeed)

	f.feeds.Push(store.FeedDex, &store.DexScanEvent{Dex: "SushiSwap", Status: store.DexError})
	f.adapter.Notify()

	var next view.Snapshot
	require.NoError(t, conn.ReadJSON(&next))
	require.Len(t, next.DexFeed, 1)
	assert.Equal(t, "SushiSwap", next.DexFeed[0].Subject)
}
