package ingest

import "time"

// State is the connection lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateRetrying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateRetrying:
		return "retrying"
	default:
		return "unknown"
	}
}

// Indicator values shown to the user.
const (
	IndicatorConnected    = "connected"
	IndicatorConnecting   = "connecting"
	IndicatorReconnecting = "reconnecting"
	IndicatorStopped      = "stopped"
)

// Status is a point-in-time view of the connection.
type Status struct {
	State State

	// Connected is true only while State is StateOpen
	Connected bool

	// Pending is true while a retry timer is armed
	Pending bool

	LastError      error
	RetryCount     int
	NextRetryDelay time.Duration

	// ConnID is the attempt ID of the current or most recent connection
	ConnID string

	// Since is when State was entered
	Since time.Time
}

// Indicator maps the state to the user-facing connection indicator.
func (s Status) Indicator() string {
	switch s.State {
	case StateOpen:
		return IndicatorConnected
	case StateConnecting:
		if s.RetryCount > 0 {
			return IndicatorReconnecting
		}
		return IndicatorConnecting
	case StateRetrying:
		return IndicatorReconnecting
	case StateClosed:
		if s.Pending {
			return IndicatorReconnecting
		}
		return IndicatorStopped
	default:
		return IndicatorStopped
	}
}

// LastErrorText returns the last error message, or "".
func (s Status) LastErrorText() string {
	if s.LastError == nil {
		return ""
	}
	return s.LastError.Error()
}
