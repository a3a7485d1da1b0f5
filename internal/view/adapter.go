// Package view exposes a read-only snapshot of the dashboard state to renderers.
package view

import (
	"sort"
	"sync"
	"time"

	"github.com/fusion/dashboard/internal/ingest"
	"github.com/fusion/dashboard/internal/metrics"
	"github.com/fusion/dashboard/internal/store"
)

// ConnectionView is the connection status as renderers show it.
type ConnectionView struct {
	Indicator   string    `json:"indicator"`
	State       string    `json:"state"`
	Connected   bool      `json:"connected"`
	RetryCount  int       `json:"retry_count"`
	NextRetryMs int64     `json:"next_retry_ms"`
	LastError   string    `json:"last_error,omitempty"`
	ConnID      string    `json:"conn_id,omitempty"`
	Since       time.Time `json:"since"`
}

// FeedEntry is one feed row.
type FeedEntry struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Subject is the DEX name or the account address
	Subject string `json:"subject"`
	Status  string `json:"status"`
	Detail  string `json:"detail"`
}

// Parameter is one tunable parameter.
type Parameter struct {
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	Numeric   bool      `json:"numeric"`
	Number    float64   `json:"number,omitempty"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bot is one bot status row.
type Bot struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Message   *string   `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Diagnostics summarises stream health.
type Diagnostics struct {
	MessagesReceived  int64            `json:"messages_received"`
	Accepted          int64            `json:"accepted"`
	AcceptedByKind    map[string]int64 `json:"accepted_by_kind"`
	Rejected          int64            `json:"rejected"`
	RejectedByReason  map[string]int64 `json:"rejected_by_reason"`
	CoercionErrors    int64            `json:"coercion_errors"`
	ReconnectAttempts int64            `json:"reconnect_attempts"`
	BootstrapEvents   int64            `json:"bootstrap_events"`
	MessageRate       float64          `json:"message_rate"`
	LastMessage       time.Time        `json:"last_message"`
	UptimeSeconds     float64          `json:"uptime_seconds"`
}

// Snapshot is everything a renderer needs for one frame.
type Snapshot struct {
	Connection      ConnectionView       `json:"connection"`
	DexFeed         []FeedEntry          `json:"dex_feed"`
	LiquidationFeed []FeedEntry          `json:"liquidation_feed"`
	Gauges          Gauges               `json:"gauges"`
	Parameters      []Parameter          `json:"parameters"`
	Bots            []Bot                `json:"bots"`
	ProtocolStats   []store.ProtocolStat `json:"protocol_stats"`
	Diagnostics     Diagnostics          `json:"diagnostics"`
	GeneratedAt     time.Time            `json:"generated_at"`
}

// Adapter joins the stores, the connection status and the diagnostics into
// snapshots, and notifies subscribers when any of them change.
type Adapter struct {
	feeds     *store.FeedStore
	params    *store.ParameterState
	bots      *store.BotStatusMap
	protocols *store.ProtocolStats
	tracker   *metrics.MetricsTracker

	mu     sync.RWMutex
	status ingest.Status

	subsMu sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// NewAdapter creates an adapter over the given state.
func NewAdapter(feeds *store.FeedStore, params *store.ParameterState, bots *store.BotStatusMap,
	protocols *store.ProtocolStats, tracker *metrics.MetricsTracker) *Adapter {
	return &Adapter{
		feeds:     feeds,
		params:    params,
		bots:      bots,
		protocols: protocols,
		tracker:   tracker,
		subs:      make(map[int]chan struct{}),
	}
}

// SetConnection records the latest connection status and notifies.
func (a *Adapter) SetConnection(status ingest.Status) {
	a.mu.Lock()
	a.status = status
	a.mu.Unlock()

	a.tracker.SetConnectionStatus(status.Indicator())
	a.Notify()
}

// Connection returns the latest connection status.
func (a *Adapter) Connection() ingest.Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// Notify wakes every subscriber. It never blocks; pending wake-ups coalesce.
func (a *Adapter) Notify() {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()

	for _, ch := range a.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribe returns a channel that receives a value after each change, and
// a function that cancels the subscription.
func (a *Adapter) Subscribe() (<-chan struct{}, func()) {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()

	id := a.nextID
	a.nextID++
	ch := make(chan struct{}, 1)
	a.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.subsMu.Lock()
			delete(a.subs, id)
			a.subsMu.Unlock()
		})
	}
}

// Feed returns one feed as rows, newest first.
func (a *Adapter) Feed(id store.FeedID) []FeedEntry {
	events := a.feeds.Snapshot(id)
	rows := make([]FeedEntry, 0, len(events))
	for _, ev := range events {
		rows = append(rows, entryFor(ev))
	}
	return rows
}

// Parameters returns all parameters sorted by name.
func (a *Adapter) Parameters() []Parameter {
	values := a.params.Snapshot()
	out := make([]Parameter, 0, len(values))
	for _, v := range values {
		p := Parameter{
			Name:      v.Name,
			Value:     v.Raw,
			Numeric:   v.Numeric,
			Source:    v.Source,
			UpdatedAt: v.UpdatedAt,
		}
		if n, ok := v.Float(); ok {
			p.Number = n
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Bots returns all bot statuses sorted by name.
func (a *Adapter) Bots() []Bot {
	statuses := a.bots.Snapshot()
	out := make([]Bot, 0, len(statuses))
	for name, s := range statuses {
		out = append(out, Bot{Name: name, Status: s.Status, Message: s.Message, UpdatedAt: s.UpdatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Snapshot assembles the full renderer view.
func (a *Adapter) Snapshot() Snapshot {
	status := a.Connection()
	m := a.tracker.Snapshot()

	return Snapshot{
		Connection:      connectionView(status),
		DexFeed:         a.Feed(store.FeedDex),
		LiquidationFeed: a.Feed(store.FeedLiquidation),
		Gauges:          gaugesFor(a.params),
		Parameters:      a.Parameters(),
		Bots:            a.Bots(),
		ProtocolStats:   a.protocols.Snapshot(),
		Diagnostics: Diagnostics{
			MessagesReceived:  m.MessagesReceived,
			Accepted:          m.Accepted(),
			AcceptedByKind:    m.AcceptedByKind,
			Rejected:          m.Rejected(),
			RejectedByReason:  m.RejectedByReason,
			CoercionErrors:    m.CoercionErrors,
			ReconnectAttempts: m.ReconnectAttempts,
			BootstrapEvents:   m.BootstrapEvents,
			MessageRate:       m.MessageRate,
			LastMessage:       m.LastMessage,
			UptimeSeconds:     m.Uptime.Seconds(),
		},
		GeneratedAt: time.Now(),
	}
}

func connectionView(s ingest.Status) ConnectionView {
	return ConnectionView{
		Indicator:   s.Indicator(),
		State:       s.State.String(),
		Connected:   s.Connected,
		RetryCount:  s.RetryCount,
		NextRetryMs: s.NextRetryDelay.Milliseconds(),
		LastError:   s.LastErrorText(),
		ConnID:      s.ConnID,
		Since:       s.Since,
	}
}

func entryFor(ev store.Event) FeedEntry {
	row := FeedEntry{Kind: string(ev.Kind()), Timestamp: ev.OccurredAt()}
	switch e := ev.(type) {
	case *store.DexScanEvent:
		row.ID, row.Subject, row.Status, row.Detail = e.ID, e.Dex, e.Status, e.Message
	case *store.LiquidationEvent:
		row.ID, row.Subject, row.Status, row.Detail = e.ID, e.Account, e.Status, e.Details
	case *store.ParameterUpdateEvent:
		row.ID, row.Subject, row.Status, row.Detail = e.ID, e.ParameterName, e.Source, e.NewValue
	case *store.BotStatusEvent:
		row.ID, row.Subject, row.Status = e.ID, e.BotName, e.Status
		if e.Message != nil {
			row.Detail = *e.Message
		}
	}
	return row
}
