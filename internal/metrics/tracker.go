// Package metrics provides real-time diagnostics for the event stream.
package metrics

import (
	"sync"
	"time"
)

// RateWindow is how far back the message rate looks.
const RateWindow = 60 * time.Second

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	MessagesReceived  int64
	AcceptedByKind    map[string]int64
	RejectedByReason  map[string]int64
	CoercionErrors    int64
	ReconnectAttempts int64
	BootstrapEvents   int64
	MessageRate       float64 // messages per second over RateWindow
	LastMessage       time.Time
	Uptime            time.Duration
	ConnectionStatus  string
}

// Accepted returns the total number of accepted events.
func (s MetricsSnapshot) Accepted() int64 {
	var n int64
	for _, v := range s.AcceptedByKind {
		n += v
	}
	return n
}

// Rejected returns the total number of rejected messages.
func (s MetricsSnapshot) Rejected() int64 {
	var n int64
	for _, v := range s.RejectedByReason {
		n += v
	}
	return n
}

// MetricsTracker provides thread-safe diagnostics tracking. Every counter is
// mirrored to Prometheus.
type MetricsTracker struct {
	mu                sync.RWMutex
	messagesReceived  int64
	acceptedByKind    map[string]int64
	rejectedByReason  map[string]int64
	coercionErrors    int64
	reconnectAttempts int64
	bootstrapEvents   int64
	startTime         time.Time
	lastMessage       time.Time
	msgTimestamps     []time.Time // for rate calculation
	connStatus        string
	now               func() time.Time
}

// NewMetricsTracker creates a new MetricsTracker.
func NewMetricsTracker() *MetricsTracker {
	return newTracker(time.Now)
}

func newTracker(now func() time.Time) *MetricsTracker {
	return &MetricsTracker{
		acceptedByKind:   make(map[string]int64),
		rejectedByReason: make(map[string]int64),
		startTime:        now(),
		msgTimestamps:    make([]time.Time, 0, 1000),
		connStatus:       "stopped",
		now:              now,
	}
}

// IncrementMessages counts one raw frame received from the backend.
func (m *MetricsTracker) IncrementMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messagesReceived++
	m.lastMessage = m.now()
	m.msgTimestamps = append(m.msgTimestamps, m.lastMessage)
	m.trimWindow(m.lastMessage)

	messagesReceived.Inc()
}

// IncrementAccepted counts one event that passed validation.
func (m *MetricsTracker) IncrementAccepted(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acceptedByKind[kind]++

	eventsAccepted.WithLabelValues(kind).Inc()
}

// IncrementRejected counts one message dropped for the given reason.
func (m *MetricsTracker) IncrementRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectedByReason[reason]++

	eventsRejected.WithLabelValues(reason).Inc()
}

// IncrementCoercionErrors counts one parameter update that could not be coerced.
func (m *MetricsTracker) IncrementCoercionErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coercionErrors++

	coercionErrors.Inc()
}

// IncrementReconnects counts one scheduled reconnect.
func (m *MetricsTracker) IncrementReconnects() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnectAttempts++

	reconnectAttempts.Inc()
}

// AddBootstrapEvents counts events seeded from the bootstrap endpoint.
func (m *MetricsTracker) AddBootstrapEvents(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bootstrapEvents += int64(n)

	bootstrapEvents.Add(float64(n))
}

// SetConnectionStatus sets the connection indicator.
func (m *MetricsTracker) SetConnectionStatus(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connStatus = status

	for _, s := range connectionStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		connectionStatus.WithLabelValues(s).Set(v)
	}
}

// Snapshot returns a point-in-time snapshot of metrics.
func (m *MetricsTracker) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()

	// messages per second over the window
	rate := 0.0
	cutoff := now.Add(-RateWindow)
	count := 0
	var oldest time.Time
	for _, ts := range m.msgTimestamps {
		if ts.After(cutoff) {
			if count == 0 {
				oldest = ts
			}
			count++
		}
	}
	if count > 0 {
		duration := now.Sub(oldest).Seconds()
		if duration < 1 {
			duration = 1
		}
		rate = float64(count) / duration
	}

	accepted := make(map[string]int64, len(m.acceptedByKind))
	for k, v := range m.acceptedByKind {
		accepted[k] = v
	}
	rejected := make(map[string]int64, len(m.rejectedByReason))
	for k, v := range m.rejectedByReason {
		rejected[k] = v
	}

	return MetricsSnapshot{
		MessagesReceived:  m.messagesReceived,
		AcceptedByKind:    accepted,
		RejectedByReason:  rejected,
		CoercionErrors:    m.coercionErrors,
		ReconnectAttempts: m.reconnectAttempts,
		BootstrapEvents:   m.bootstrapEvents,
		MessageRate:       rate,
		LastMessage:       m.lastMessage,
		Uptime:            now.Sub(m.startTime),
		ConnectionStatus:  m.connStatus,
	}
}

// Cleanup drops rate samples older than the window.
func (m *MetricsTracker) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trimWindow(m.now())
}

// trimWindow keeps only timestamps inside RateWindow. Must be called with lock held.
func (m *MetricsTracker) trimWindow(now time.Time) {
	cutoff := now.Add(-RateWindow)
	validIdx := len(m.msgTimestamps)
	for i, ts := range m.msgTimestamps {
		if ts.After(cutoff) {
			validIdx = i
			break
		}
	}
	if validIdx > 0 {
		m.msgTimestamps = append(m.msgTimestamps[:0], m.msgTimestamps[validIdx:]...)
	}
}
