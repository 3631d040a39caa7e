package clients

import (
	"bytes"
	"encoding/json"
)

// Envelope is the backend's uniform response wrapper.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// HasData reports whether data is present and not null.
func (e Envelope) HasData() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// ParseEnvelope decodes body as an envelope. It fails with
// ErrMalformedResponse unless success is true and data is present.
func ParseEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, ErrMalformedResponse
	}
	if !env.Success || !env.HasData() {
		return Envelope{}, ErrMalformedResponse
	}
	return env, nil
}

// UnwrapData returns the envelope's data when body is a successful envelope
// and the whole body otherwise. Older backend builds answer with bare payloads.
func UnwrapData(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil || !env.Success {
		return trimmed
	}
	return env.Data
}

// ErrorMessage extracts the "message" field of an error body.
// ok is false when the body is not a JSON object.
func ErrorMessage(body []byte) (message string, ok bool) {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}
	if payload.Message != "" {
		return payload.Message, true
	}
	return payload.Error, true
}
