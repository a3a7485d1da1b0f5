package view

import (
	"errors"
	"testing"
	"time"

	"github.com/fusion/dashboard/internal/ingest"
	"github.com/fusion/dashboard/internal/metrics"
	"github.com/fusion/dashboard/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdapter() (*Adapter, *store.FeedStore, *store.ParameterState, *store.BotStatusMap) {
	feeds := store.NewFeedStore(10)
	params := store.NewParameterState()
	bots := store.NewBotStatusMap()
	a := NewAdapter(feeds, params, bots, store.NewProtocolStats(), metrics.NewMetricsTracker())
	return a, feeds, params, bots
}

func setNumber(p *store.ParameterState, name string, v float64) {
	p.Set(store.ParameterValue{Name: name, Raw: decimal.NewFromFloat(v).String(), Number: decimal.NewFromFloat(v), Numeric: true})
}

func TestAdapter_SubscribeCoalesces(t *testing.T) {
	a, _, _, _ := newAdapter()
	ch, unsubscribe := a.Subscribe()

	a.Notify()
	a.Notify()
	a.Notify()

	select {
	case <-ch:
	default:
		t.Fatal("expected a pending notification")
	}
	select {
	case <-ch:
		t.Fatal("notifications should coalesce into one")
	default:
	}

	unsubscribe()
	unsubscribe()
	a.Notify()
	select {
	case <-ch:
		t.Fatal("unsubscribed channel must not be notified")
	default:
	}
}

func TestAdapter_SnapshotReflectsState(t *testing.T) {
	a, feeds, params, bots := newAdapter()

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feeds.Push(store.FeedDex, &store.DexScanEvent{Header: store.Header{ID: "1", Timestamp: ts}, Dex: "Uniswap", Status: store.DexSuccess, Message: "ok"})
	feeds.Push(store.FeedLiquidation, &store.LiquidationEvent{Header: store.Header{Timestamp: ts}, Account: "0xabc", Status: store.LiquidationFlagged, Details: "HF 0.9"})
	setNumber(params, ParamRisk, 7)
	bots.Replace("scanner", store.BotStatus{Status: "Scanning"})
	bots.Replace("arb", store.BotStatus{Status: "Idle"})

	a.SetConnection(ingest.Status{
		State:      ingest.StateRetrying,
		Pending:    true,
		RetryCount: 2,
		LastError:  errors.New("connection reset"),
	})

	snap := a.Snapshot()
	require.Len(t, snap.DexFeed, 1)
	assert.Equal(t, FeedEntry{Kind: "dex", ID: "1", Timestamp: ts, Subject: "Uniswap", Status: "success", Detail: "ok"}, snap.DexFeed[0])
	assert.Equal(t, "0xabc", snap.LiquidationFeed[0].Subject)

	assert.Equal(t, "reconnecting", snap.Connection.Indicator)
	assert.Equal(t, "connection reset", snap.Connection.LastError)
	assert.Equal(t, 2, snap.Connection.RetryCount)

	require.Len(t, snap.Bots, 2)
	assert.Equal(t, "arb", snap.Bots[0].Name)

	require.Len(t, snap.Parameters, 1)
	assert.Equal(t, 7.0, snap.Parameters[0].Number)
	assert.True(t, snap.Gauges.Risk.Set)
	assert.Equal(t, 70.0, snap.Gauges.Risk.Percent)
	assert.False(t, snap.Gauges.Gas.Set)
	assert.Equal(t, "reconnecting", a.tracker.Snapshot().ConnectionStatus)
}

func TestGauges_Scaling(t *testing.T) {
	params := store.NewParameterState()
	setNumber(params, ParamSlippage, 0.5)
	setNumber(params, ParamRisk, 12)
	setNumber(params, ParamGas, 50)

	g := gaugesFor(params)
	assert.Equal(t, 50.0, g.Slippage.Percent)
	assert.Equal(t, "0.50%", g.Slippage.Display)
	assert.Equal(t, 100.0, g.Risk.Percent)
	assert.Equal(t, 25.0, g.Gas.Percent)
	assert.Equal(t, "50.0 Gwei", g.Gas.Display)
}

func TestGauges_UnsetShowsPlaceholder(t *testing.T) {
	g := gaugesFor(store.NewParameterState())
	assert.False(t, g.Slippage.Set)
	assert.Equal(t, "--", g.Slippage.Display)
	assert.Equal(t, 0.0, g.Slippage.Percent)
}
