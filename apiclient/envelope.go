package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Shape identifies which wire format a response body used.
type Shape int

const (
	// ShapeStandard is {status, data, message, timestamp, request_id}.
	ShapeStandard Shape = iota
	// ShapeLegacy is {success, data, error, detail}.
	ShapeLegacy
	// ShapeBare is an unwrapped payload.
	ShapeBare
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Envelope is the normalised form of every response body shape.
type Envelope struct {
	Shape      Shape
	OK         bool
	Data       json.RawMessage
	Message    string
	Code       string
	Details    json.RawMessage
	Timestamp  string
	RequestID  string
	StatusCode int
}

// Err returns the envelope-level failure, even on HTTP 200.
func (e *Envelope) Err() error {
	if e.OK {
		return nil
	}
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	return &APIError{
		Kind:       KindEnvelope,
		StatusCode: e.StatusCode,
		Message:    msg,
		Code:       e.Code,
		Details:    e.Details,
		RequestID:  e.RequestID,
	}
}

// Decode unmarshals the payload into v. An absent or null payload leaves v untouched.
func (e *Envelope) Decode(v any) error {
	if !e.HasData() {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("[Envelope.Decode] unmarshal payload: %w", err)
	}
	return nil
}

// HasData reports whether the envelope carries a non-null payload.
func (e *Envelope) HasData() bool {
	return len(e.Data) > 0 && !bytes.Equal(bytes.TrimSpace(e.Data), []byte("null"))
}

type standardEnvelope struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
	RequestID string          `json:"request_id"`
	Code      string          `json:"code"`
	ErrorCode string          `json:"error_code"`
	Details   json.RawMessage `json:"details"`
}

type legacyEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

// decodeEnvelope classifies body and normalises it in one step.
func decodeEnvelope(body []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &Envelope{Shape: ShapeBare, OK: true}, nil
	}
	if trimmed[0] != '{' {
		if !json.Valid(trimmed) {
			return nil, fmt.Errorf("[decodeEnvelope] response is not JSON")
		}
		return &Envelope{Shape: ShapeBare, OK: true, Data: json.RawMessage(trimmed)}, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("[decodeEnvelope] unmarshal: %w", err)
	}

	if raw, ok := probe["status"]; ok {
		var status string
		if json.Unmarshal(raw, &status) == nil && (status == statusSuccess || status == statusError) {
			var s standardEnvelope
			if err := json.Unmarshal(trimmed, &s); err != nil {
				return nil, fmt.Errorf("[decodeEnvelope] standard envelope: %w", err)
			}
			code := s.Code
			if code == "" {
				code = s.ErrorCode
			}
			return &Envelope{
				Shape:     ShapeStandard,
				OK:        status == statusSuccess,
				Data:      s.Data,
				Message:   s.Message,
				Code:      code,
				Details:   s.Details,
				Timestamp: s.Timestamp,
				RequestID: s.RequestID,
			}, nil
		}
	}

	if raw, ok := probe["success"]; ok {
		var success bool
		if json.Unmarshal(raw, &success) == nil {
			var l legacyEnvelope
			if err := json.Unmarshal(trimmed, &l); err != nil {
				return nil, fmt.Errorf("[decodeEnvelope] legacy envelope: %w", err)
			}
			env := &Envelope{Shape: ShapeLegacy, OK: l.Success, Data: l.Data, Message: l.Message}
			if !l.Success {
				if msg := jsonString(l.Error); msg != "" {
					env.Message = msg
				} else if msg := jsonString(l.Detail); msg != "" {
					env.Message = msg
				}
				if len(l.Detail) > 0 && jsonString(l.Detail) == "" {
					env.Details = l.Detail
				} else if len(l.Error) > 0 && jsonString(l.Error) == "" {
					env.Details = l.Error
				}
			}
			return env, nil
		}
	}

	return &Envelope{Shape: ShapeBare, OK: true, Data: json.RawMessage(trimmed)}, nil
}

// detailMessage pulls a message out of an unwrapped error body such as
// {"detail": "..."}.
func detailMessage(body []byte) string {
	var probe struct {
		Detail  json.RawMessage `json:"detail"`
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &probe) != nil {
		return ""
	}
	if msg := jsonString(probe.Detail); msg != "" {
		return msg
	}
	if msg := jsonString(probe.Error); msg != "" {
		return msg
	}
	return probe.Message
}

func jsonString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
