package router

import (
	"errors"
	"testing"
	"time"

	"github.com/fusion/dashboard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingNotifier struct{ n int }

func (c *countingNotifier) Notify() { c.n++ }

type countingRecorder struct {
	accepted map[string]int
	coercion int
}

func (c *countingRecorder) IncrementAccepted(kind string) {
	if c.accepted == nil {
		c.accepted = make(map[string]int)
	}
	c.accepted[kind]++
}

func (c *countingRecorder) IncrementCoercionErrors() { c.coercion++ }

type fixture struct {
	router   *Router
	feeds    *store.FeedStore
	params   *store.ParameterState
	bots     *store.BotStatusMap
	notifier *countingNotifier
	recorder *countingRecorder
}

func newFixture() *fixture {
	f := &fixture{
		feeds:    store.NewFeedStore(100),
		params:   store.NewParameterState(),
		bots:     store.NewBotStatusMap(),
		notifier: &countingNotifier{},
		recorder: &countingRecorder{},
	}
	f.router = New(Config{
		Feeds:      f.feeds,
		Parameters: f.params,
		Bots:       f.bots,
		Notifier:   f.notifier,
		Recorder:   f.recorder,
	})
	return f
}

var ts = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func paramEvent(name, value string) *store.ParameterUpdateEvent {
	return &store.ParameterUpdateEvent{
		Header:        store.Header{Timestamp: ts},
		ParameterName: name,
		NewValue:      value,
		Source:        "ai",
	}
}

func TestDispatch_FeedEvents(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.router.Dispatch(&store.DexScanEvent{Header: store.Header{Timestamp: ts}, Dex: "Uniswap", Status: store.DexSuccess, Message: "ok"}))
	require.NoError(t, f.router.Dispatch(&store.LiquidationEvent{Header: store.Header{Timestamp: ts}, Account: "0xabc", Status: store.LiquidationFlagged}))

	dex := f.feeds.Snapshot(store.FeedDex)
	require.Len(t, dex, 1)
	assert.Equal(t, "Uniswap", dex[0].(*store.DexScanEvent).Dex)
	assert.Len(t, f.feeds.Snapshot(store.FeedLiquidation), 1)

	assert.Equal(t, 2, f.notifier.n)
	assert.Equal(t, 1, f.recorder.accepted["dex"])
	assert.Equal(t, 1, f.recorder.accepted["liquidation"])
}

func TestDispatch_NumericParameter(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.router.Dispatch(paramEvent("risk_level", "7")))

	v, ok := f.params.Get("risk_level")
	require.True(t, ok)
	n, numeric := v.Float()
	assert.True(t, numeric)
	assert.Equal(t, 7.0, n)
	assert.Equal(t, "7", v.Raw)
	assert.Equal(t, "ai", v.Source)
	assert.True(t, ts.Equal(v.UpdatedAt))
	assert.Equal(t, 1, f.notifier.n)
}

func TestDispatch_CoercionFailureKeepsPriorValue(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.router.Dispatch(paramEvent("slippage_tolerance", "0.005")))

	err := f.router.Dispatch(paramEvent("slippage_tolerance", "high"))

	var coercion *ParameterCoercionError
	require.True(t, errors.As(err, &coercion))
	assert.Equal(t, "slippage_tolerance", coercion.Name)
	assert.Equal(t, "high", coercion.Value)

	v, _ := f.params.Get("slippage_tolerance")
	assert.Equal(t, "0.005", v.Raw)
	assert.Equal(t, 1, f.recorder.coercion)
	assert.Equal(t, 1, f.notifier.n, "failed update must not notify")
	assert.Equal(t, 1, f.recorder.accepted["parameter_update"])
}

func TestDispatch_UnknownParameterKeptVerbatim(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.router.Dispatch(paramEvent("strategy", "aggressive")))

	v, ok := f.params.Get("strategy")
	require.True(t, ok)
	assert.False(t, v.Numeric)
	assert.Equal(t, "aggressive", v.Raw)
}

func TestDispatch_BotStatusReplaces(t *testing.T) {
	f := newFixture()
	msg := "rpc timeout"

	require.NoError(t, f.router.Dispatch(&store.BotStatusEvent{Header: store.Header{Timestamp: ts}, BotName: "arb", Status: "Error", Message: &msg}))
	require.NoError(t, f.router.Dispatch(&store.BotStatusEvent{Header: store.Header{Timestamp: ts}, BotName: "arb", Status: "Idle"}))

	got, ok := f.bots.Get("arb")
	require.True(t, ok)
	assert.Equal(t, "Idle", got.Status)
	assert.Nil(t, got.Message)
	assert.Len(t, f.bots.Snapshot(), 1)
}

func TestNew_CustomNumericSet(t *testing.T) {
	r := New(Config{NumericParameters: []string{" max_gas "}})
	assert.True(t, r.IsNumeric("max_gas"))
	assert.False(t, r.IsNumeric("risk_level"))

	assert.Error(t, r.Dispatch(paramEvent("max_gas", "lots")))
	assert.NoError(t, r.Dispatch(paramEvent("risk_level", "lots")))
}
