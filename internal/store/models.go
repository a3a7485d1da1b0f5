// Package store provides the event models and the in-memory state the dashboard renders from.
package store

import "time"

// Kind discriminates the event variants on the wire.
type Kind string

// Event kinds accepted from the backend.
const (
	KindDex             Kind = "dex"
	KindLiquidation     Kind = "liquidation"
	KindParameterUpdate Kind = "parameter_update"
	KindBotStatus       Kind = "bot_status"
)

// Kinds lists every known event kind.
var Kinds = []Kind{KindDex, KindLiquidation, KindParameterUpdate, KindBotStatus}

// Known reports whether k is one of the four event kinds.
func (k Kind) Known() bool {
	switch k {
	case KindDex, KindLiquidation, KindParameterUpdate, KindBotStatus:
		return true
	}
	return false
}

// Event is a validated backend event. The set of implementations is closed:
// DexScanEvent, LiquidationEvent, ParameterUpdateEvent and BotStatusEvent.
type Event interface {
	Kind() Kind
	OccurredAt() time.Time
	sealed()
}

// Header holds the fields shared by every event.
type Header struct {
	// ID is the optional backend-assigned identifier
	ID string

	// Timestamp is when the backend produced the event
	Timestamp time.Time
}

// OccurredAt returns the event timestamp.
func (h Header) OccurredAt() time.Time { return h.Timestamp }

func (Header) sealed() {}

// DEX scan statuses.
const (
	DexScanning = "scanning"
	DexSuccess  = "success"
	DexError    = "error"
)

// DexScanEvent reports progress of a scan against a single DEX.
type DexScanEvent struct {
	Header
	Dex     string
	Status  string
	Message string
}

// Kind implements Event.
func (*DexScanEvent) Kind() Kind { return KindDex }

// Liquidation statuses.
const (
	LiquidationFlagged    = "flagged"
	LiquidationLiquidated = "liquidated"
	LiquidationHealthy    = "healthy"
)

// LiquidationEvent reports the health of a monitored lending account.
type LiquidationEvent struct {
	Header

	// Account is a hex address, always prefixed with 0x
	Account string
	Status  string
	Details string
}

// Kind implements Event.
func (*LiquidationEvent) Kind() Kind { return KindLiquidation }

// ParameterUpdateEvent announces a new value for a tunable parameter.
type ParameterUpdateEvent struct {
	Header
	ParameterName string
	NewValue      string
	Source        string
}

// Kind implements Event.
func (*ParameterUpdateEvent) Kind() Kind { return KindParameterUpdate }

// BotStatusEvent replaces the reported status of one bot.
type BotStatusEvent struct {
	Header
	BotName string
	Status  string

	// Message is nil when the backend omitted it
	Message *string
}

// Kind implements Event.
func (*BotStatusEvent) Kind() Kind { return KindBotStatus }

// ProtocolStat is a per-protocol tuning summary served by the bootstrap endpoint.
type ProtocolStat struct {
	Name            string  `json:"name"`
	ProfitThreshold float64 `json:"profit_threshold"`
	ScanInterval    int     `json:"scan_interval"`
	Weight          float64 `json:"weight"`
	AITuned         bool    `json:"ai_tuned"`
}
