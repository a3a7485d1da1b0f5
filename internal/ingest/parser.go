// Package ingest handles the backend event stream: payload validation, the
// WebSocket transport and the reconnecting connection manager.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/fusion/dashboard/internal/store"
	"github.com/go-playground/validator/v10"
)

// eventValidate holds the field rules for the wire structs below.
var eventValidate *validator.Validate

func init() {
	eventValidate = validator.New()
	eventValidate.RegisterTagNameFunc(jsonFieldName)
	if err := eventValidate.RegisterValidation("rfc3339", validateRFC3339); err != nil {
		panic(fmt.Sprintf("ingest: register rfc3339 validation: %v", err))
	}
}

// Legacy envelope keys. The backend once serialised events externally tagged,
// e.g. {"Dex":{...}}.
var legacyEnvelopes = map[string]store.Kind{
	"Dex":         store.KindDex,
	"Liquidation": store.KindLiquidation,
}

// Wire formats. Pointer fields distinguish a missing field from an empty one.

type dexWire struct {
	ID        *string `json:"id"`
	Timestamp *string `json:"timestamp" validate:"required,rfc3339"`
	Dex       *string `json:"dex" validate:"required"`
	Status    *string `json:"status" validate:"required,oneof=scanning success error"`
	Message   *string `json:"message" validate:"required"`
}

type liquidationWire struct {
	ID        *string `json:"id"`
	Timestamp *string `json:"timestamp" validate:"required,rfc3339"`
	Account   *string `json:"account" validate:"required,startswith=0x"`
	Status    *string `json:"status" validate:"required,oneof=flagged liquidated healthy"`
	Details   *string `json:"details" validate:"required"`
}

type parameterUpdateWire struct {
	ID            *string `json:"id"`
	Timestamp     *string `json:"timestamp" validate:"required,rfc3339"`
	ParameterName *string `json:"parameter_name" validate:"required"`
	NewValue      *string `json:"new_value" validate:"required"`
	Source        *string `json:"source" validate:"required"`
}

type botStatusWire struct {
	ID        *string `json:"id"`
	Timestamp *string `json:"timestamp" validate:"required,rfc3339"`
	BotName   *string `json:"bot_name" validate:"required"`
	Status    *string `json:"status" validate:"required"`
	Message   *string `json:"message"`
}

// Validate parses one raw frame into a typed event. It never panics and never
// returns a partially populated event; on failure the error is a *ValidationError.
func Validate(raw []byte) (store.Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &ValidationError{Reason: ErrMalformedPayload, Detail: "not a JSON object", Cause: err}
	}
	if fields == nil {
		return nil, &ValidationError{Reason: ErrMalformedPayload, Detail: "not a JSON object"}
	}

	body := json.RawMessage(raw)
	kind, err := discriminator(fields)
	if err != nil {
		return nil, err
	}
	if kind == "" {
		if legacyKind, inner, ok := unwrapLegacy(fields); ok {
			kind, body = string(legacyKind), inner
		}
	}
	if kind == "" {
		return nil, &ValidationError{Reason: ErrSchemaViolation, Field: "kind", Detail: "missing"}
	}

	switch store.Kind(kind) {
	case store.KindDex:
		var w dexWire
		if err := decodeWire(kind, body, &w); err != nil {
			return nil, err
		}
		return &store.DexScanEvent{
			Header:  header(w.ID, *w.Timestamp),
			Dex:     *w.Dex,
			Status:  *w.Status,
			Message: *w.Message,
		}, nil

	case store.KindLiquidation:
		var w liquidationWire
		if err := decodeWire(kind, body, &w); err != nil {
			return nil, err
		}
		return &store.LiquidationEvent{
			Header:  header(w.ID, *w.Timestamp),
			Account: *w.Account,
			Status:  *w.Status,
			Details: *w.Details,
		}, nil

	case store.KindParameterUpdate:
		var w parameterUpdateWire
		if err := decodeWire(kind, body, &w); err != nil {
			return nil, err
		}
		return &store.ParameterUpdateEvent{
			Header:        header(w.ID, *w.Timestamp),
			ParameterName: *w.ParameterName,
			NewValue:      *w.NewValue,
			Source:        *w.Source,
		}, nil

	case store.KindBotStatus:
		var w botStatusWire
		if err := decodeWire(kind, body, &w); err != nil {
			return nil, err
		}
		return &store.BotStatusEvent{
			Header:  header(w.ID, *w.Timestamp),
			BotName: *w.BotName,
			Status:  *w.Status,
			Message: w.Message,
		}, nil
	}

	return nil, &ValidationError{Reason: ErrUnknownEventKind, Kind: kind}
}

// discriminator returns the event kind, preferring "kind" over "type".
// It returns "" when neither field is present.
func discriminator(fields map[string]json.RawMessage) (string, error) {
	for _, key := range []string{"kind", "type"} {
		value, ok := fields[key]
		if !ok {
			continue
		}
		var kind string
		if err := json.Unmarshal(value, &kind); err != nil {
			return "", &ValidationError{Reason: ErrSchemaViolation, Field: key, Detail: "must be a string", Cause: err}
		}
		return kind, nil
	}
	return "", nil
}

// unwrapLegacy recognises a single-key {"Dex":{...}} or {"Liquidation":{...}} envelope.
func unwrapLegacy(fields map[string]json.RawMessage) (store.Kind, json.RawMessage, bool) {
	if len(fields) != 1 {
		return "", nil, false
	}
	for key, inner := range fields {
		kind, ok := legacyEnvelopes[key]
		if !ok {
			return "", nil, false
		}
		trimmed := bytes.TrimSpace(inner)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return "", nil, false
		}
		return kind, trimmed, true
	}
	return "", nil, false
}

// decodeWire unmarshals body into w and applies its field rules.
func decodeWire(kind string, body json.RawMessage, w any) error {
	if err := json.Unmarshal(body, w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &ValidationError{
				Reason: ErrSchemaViolation,
				Kind:   kind,
				Field:  typeErr.Field,
				Detail: fmt.Sprintf("expected %s, got JSON %s", typeErr.Type, typeErr.Value),
			}
		}
		return &ValidationError{Reason: ErrMalformedPayload, Kind: kind, Cause: err}
	}

	if err := eventValidate.Struct(w); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ValidationError{
				Reason: ErrSchemaViolation,
				Kind:   kind,
				Field:  fe.Field(),
				Detail: ruleDetail(fe),
			}
		}
		return &ValidationError{Reason: ErrSchemaViolation, Kind: kind, Cause: err}
	}
	return nil
}

func ruleDetail(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "missing"
	case "rfc3339":
		return "not an RFC 3339 date-time"
	case "startswith":
		return fmt.Sprintf("must start with %q", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %s rule", fe.Tag())
	}
}

// header builds the shared event fields. ts has already passed the rfc3339 rule.
func header(id *string, ts string) store.Header {
	h := store.Header{}
	if id != nil {
		h.ID = *id
	}
	h.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
	return h
}

func validateRFC3339(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			return false
		}
		field = field.Elem()
	}
	if field.Kind() != reflect.String {
		return false
	}
	_, err := time.Parse(time.RFC3339Nano, field.String())
	return err == nil
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}
