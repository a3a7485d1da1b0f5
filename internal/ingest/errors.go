package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// Validation failure reasons. Use errors.Is against a *ValidationError.
var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownEventKind = errors.New("unknown event kind")
	ErrSchemaViolation  = errors.New("schema violation")
)

// ValidationError describes why a raw message was rejected.
type ValidationError struct {
	Reason error  // one of the Err* sentinels above
	Kind   string // discriminator as received, if any
	Field  string
	Detail string
	Cause  error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Reason.Error())
	if e.Kind != "" {
		fmt.Fprintf(&b, " (kind %q)", e.Kind)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %s", e.Field)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes both the reason sentinel and the underlying cause.
func (e *ValidationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Cause}
}

// ReasonLabel returns a short snake_case label for the rejection reason,
// used for counters and log fields.
func ReasonLabel(err error) string {
	switch {
	case errors.Is(err, ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, ErrUnknownEventKind):
		return "unknown_event_kind"
	case errors.Is(err, ErrSchemaViolation):
		return "schema_violation"
	default:
		return "other"
	}
}

// Transport phases reported in TransportError.
const (
	PhaseDial  = "dial"
	PhaseRead  = "read"
	PhaseClose = "close"
)

// TransportError reports a connection failure. It is always recovered by retry.
type TransportError struct {
	AttemptID string
	Phase     string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed (attempt %s): %v", e.Phase, e.AttemptID, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
