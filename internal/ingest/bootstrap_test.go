package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fusion/dashboard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dashboardFixture = `{
  "protocol_stats": [
    {"name": "Venus", "profit_threshold": 0.42, "scan_interval": 60, "weight": 1.0, "ai_tuned": true},
    {"name": "PancakeSwap", "profit_threshold": 0.51, "scan_interval": 30, "weight": 1.2, "ai_tuned": false}
  ],
  "dex_feed": [
    {"timestamp": "2024-01-01T00:00:02Z", "dex": "PancakeSwap", "status": "scanning", "message": "Scanning for arbitrage..."},
    {"timestamp": "2024-01-01T00:00:01Z", "dex": "Uniswap", "status": "success", "message": "Found opportunity!"},
    {"timestamp": "not a time", "dex": "SushiSwap", "status": "error", "message": "API timeout"}
  ],
  "liquidation_feed": [
    {"timestamp": "2024-01-01T00:00:00Z", "account": "0x123abc", "status": "flagged", "details": "Health factor below 1.0"}
  ],
  "opportunity_metrics": []
}`

func TestBootstrapClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DashboardPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(dashboardFixture))
	}))
	defer srv.Close()

	dash, err := NewBootstrapClient(srv.URL + "/").Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, dash.ProtocolStats, 2)
	assert.Equal(t, "Venus", dash.ProtocolStats[0].Name)
	assert.True(t, dash.ProtocolStats[0].AITuned)

	require.Len(t, dash.DexFeed, 2)
	assert.Equal(t, "PancakeSwap", dash.DexFeed[0].(*store.DexScanEvent).Dex)
	assert.Equal(t, "Uniswap", dash.DexFeed[1].(*store.DexScanEvent).Dex)

	require.Len(t, dash.LiquidationFeed, 1)
	assert.Equal(t, store.KindLiquidation, dash.LiquidationFeed[0].Kind())
	assert.Equal(t, 1, dash.Rejected)
}

func TestBootstrapClient_FetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewBootstrapClient(srv.URL).Fetch(context.Background())
	assert.ErrorContains(t, err, "404")

	garbled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer garbled.Close()

	_, err = NewBootstrapClient(garbled.URL).Fetch(context.Background())
	assert.ErrorContains(t, err, "failed to decode dashboard")
}
