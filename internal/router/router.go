// Package router applies validated events to the dashboard state.
package router

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/fusion/dashboard/internal/store"
	"github.com/shopspring/decimal"
)

// DefaultNumericParameters are coerced to numbers; other parameters are kept verbatim.
var DefaultNumericParameters = []string{"slippage_tolerance", "risk_level", "gas_price", "profit_threshold"}

// Notifier is told once per accepted change.
type Notifier interface {
	Notify()
}

// Recorder counts routing outcomes.
type Recorder interface {
	IncrementAccepted(kind string)
	IncrementCoercionErrors()
}

// ParameterCoercionError reports a numeric parameter whose value did not parse.
type ParameterCoercionError struct {
	Name  string
	Value string
	Err   error
}

func (e *ParameterCoercionError) Error() string {
	return fmt.Sprintf("parameter %s: cannot coerce %q to a number: %v", e.Name, e.Value, e.Err)
}

func (e *ParameterCoercionError) Unwrap() error {
	return e.Err
}

// Config wires a Router to its stores.
type Config struct {
	Feeds      *store.FeedStore
	Parameters *store.ParameterState
	Bots       *store.BotStatusMap

	// NumericParameters defaults to DefaultNumericParameters when nil
	NumericParameters []string

	Notifier Notifier
	Recorder Recorder
}

// Router routes each event variant to the store it mutates.
type Router struct {
	feeds    *store.FeedStore
	params   *store.ParameterState
	bots     *store.BotStatusMap
	numeric  map[string]bool
	notifier Notifier
	recorder Recorder
}

// New creates a Router. Nil stores are created empty.
func New(cfg Config) *Router {
	r := &Router{
		feeds:    cfg.Feeds,
		params:   cfg.Parameters,
		bots:     cfg.Bots,
		numeric:  make(map[string]bool),
		notifier: cfg.Notifier,
		recorder: cfg.Recorder,
	}
	if r.feeds == nil {
		r.feeds = store.NewFeedStore(store.DefaultFeedCapacity)
	}
	if r.params == nil {
		r.params = store.NewParameterState()
	}
	if r.bots == nil {
		r.bots = store.NewBotStatusMap()
	}

	names := cfg.NumericParameters
	if names == nil {
		names = DefaultNumericParameters
	}
	for _, name := range names {
		r.numeric[strings.TrimSpace(name)] = true
	}
	return r
}

// IsNumeric reports whether name is coerced to a number.
func (r *Router) IsNumeric(name string) bool {
	return r.numeric[name]
}

// Dispatch applies event to the state. A *ParameterCoercionError leaves the
// prior parameter value in place.
func (r *Router) Dispatch(event store.Event) error {
	switch e := event.(type) {
	case *store.DexScanEvent:
		r.feeds.Push(store.FeedDex, e)

	case *store.LiquidationEvent:
		r.feeds.Push(store.FeedLiquidation, e)

	case *store.ParameterUpdateEvent:
		if err := r.applyParameter(e); err != nil {
			return err
		}

	case *store.BotStatusEvent:
		r.bots.Replace(e.BotName, store.BotStatus{
			Status:    e.Status,
			Message:   e.Message,
			UpdatedAt: e.Timestamp,
		})

	default:
		return fmt.Errorf("unsupported event type %T", event)
	}

	if r.recorder != nil {
		r.recorder.IncrementAccepted(string(event.Kind()))
	}
	if r.notifier != nil {
		r.notifier.Notify()
	}
	return nil
}

func (r *Router) applyParameter(e *store.ParameterUpdateEvent) error {
	value := store.ParameterValue{
		Name:      e.ParameterName,
		Raw:       e.NewValue,
		Source:    e.Source,
		UpdatedAt: e.Timestamp,
	}

	if r.numeric[e.ParameterName] {
		number, err := decimal.NewFromString(strings.TrimSpace(e.NewValue))
		if err != nil {
			if r.recorder != nil {
				r.recorder.IncrementCoercionErrors()
			}
			slog.Warn("parameter_coercion_failed",
				"parameter", e.ParameterName,
				"value", e.NewValue,
				"source", e.Source,
				"error", err,
			)
			return &ParameterCoercionError{Name: e.ParameterName, Value: e.NewValue, Err: err}
		}
		value.Number = number
		value.Numeric = true
	}

	r.params.Set(value)
	slog.Debug("parameter_updated", "parameter", e.ParameterName, "value", e.NewValue, "source", e.Source)
	return nil
}
