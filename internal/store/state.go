package store

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ParameterValue is the last known value of a tunable parameter.
type ParameterValue struct {
	Name string

	// Raw is the value exactly as received
	Raw string

	// Number is set when Numeric is true
	Number  decimal.Decimal
	Numeric bool

	Source    string
	UpdatedAt time.Time
}

// Float returns the numeric value, or false for verbatim string parameters.
func (v ParameterValue) Float() (float64, bool) {
	if !v.Numeric {
		return 0, false
	}
	return v.Number.InexactFloat64(), true
}

// ParameterState maps parameter names to their last known value.
type ParameterState struct {
	mu     sync.RWMutex
	values map[string]ParameterValue
}

// NewParameterState creates an empty parameter state.
func NewParameterState() *ParameterState {
	return &ParameterState{values: make(map[string]ParameterValue)}
}

// Set stores v under v.Name, replacing any previous value.
func (p *ParameterState) Set(v ParameterValue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[v.Name] = v
}

// Get returns the value stored for name.
func (p *ParameterState) Get(name string) (ParameterValue, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[name]
	return v, ok
}

// Snapshot returns a copy of all parameters.
func (p *ParameterState) Snapshot() map[string]ParameterValue {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]ParameterValue, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// BotStatus is the last status a bot reported.
type BotStatus struct {
	Status    string
	Message   *string
	UpdatedAt time.Time
}

// BotStatusMap maps bot names to their last reported status.
type BotStatusMap struct {
	mu       sync.RWMutex
	statuses map[string]BotStatus
}

// NewBotStatusMap creates an empty bot status map.
func NewBotStatusMap() *BotStatusMap {
	return &BotStatusMap{statuses: make(map[string]BotStatus)}
}

// Replace overwrites the entry for name. Nothing from the prior entry is kept.
func (b *BotStatusMap) Replace(name string, status BotStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses[name] = status
}

// Get returns the status stored for name.
func (b *BotStatusMap) Get(name string) (BotStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.statuses[name]
	return s, ok
}

// Snapshot returns a copy of all bot statuses.
func (b *BotStatusMap) Snapshot() map[string]BotStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]BotStatus, len(b.statuses))
	for k, v := range b.statuses {
		out[k] = v
	}
	return out
}

// ProtocolStats holds the protocol summaries loaded at startup.
type ProtocolStats struct {
	mu    sync.RWMutex
	stats []ProtocolStat
}

// NewProtocolStats creates an empty protocol stats holder.
func NewProtocolStats() *ProtocolStats {
	return &ProtocolStats{}
}

// Set replaces all protocol stats.
func (p *ProtocolStats) Set(stats []ProtocolStat) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = append([]ProtocolStat(nil), stats...)
}

// Snapshot returns a copy of the protocol stats.
func (p *ProtocolStats) Snapshot() []ProtocolStat {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]ProtocolStat{}, p.stats...)
}
