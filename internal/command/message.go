package command

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Well-known message headers.
const (
	HeaderRequestID    = "x-request-id"
	HeaderCommandID    = "x-command-id"
	HeaderErrorDetails = "x-error-details"
)

// Headers are message headers. Lookups ignore case.
type Headers map[string]string

// Get returns the first non-blank value whose key matches name case-insensitively.
func (h Headers) Get(name string) (string, bool) {
	if v, ok := h[name]; ok && strings.TrimSpace(v) != "" {
		return v, true
	}
	for k, v := range h {
		if strings.EqualFold(k, name) && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	return "", false
}

// Clone returns a copy of the headers.
func (h Headers) Clone() Headers {
	out := make(Headers, len(h)+1)
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Message is a command as delivered by the transport.
type Message struct {
	Type    string
	Version Version
	Body    []byte
	Headers Headers
}

// PeekTaskID extracts the target task id from a body without fully decoding it.
// It returns uuid.Nil when the body carries no parsable task id.
func PeekTaskID(body []byte) uuid.UUID {
	var probe struct {
		TaskID string `json:"taskId"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(probe.TaskID)
	if err != nil {
		return uuid.Nil
	}
	return id
}
