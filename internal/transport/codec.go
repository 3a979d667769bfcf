package transport

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/GruborIvan/taskmanager/internal/command"
	"github.com/GruborIvan/taskmanager/internal/domain"
)

// Stream entry fields.
const (
	fieldType    = "type"
	fieldVersion = "version"
	fieldBody    = "body"
	fieldHeaders = "headers"
	fieldAttempt = "attempt"
	fieldOrigin  = "origin_id"
)

// ErrorDetails is the JSON carried in the x-error-details header of a dead letter.
type ErrorDetails struct {
	Message  string `json:"message"`
	Code     string `json:"code"`
	Attempts int    `json:"attempts"`
}

func newErrorDetails(err error, attempts int) ErrorDetails {
	return ErrorDetails{Message: err.Error(), Code: domain.ErrorCode(err), Attempts: attempts}
}

func encode(msg command.Message, attempt int) (map[string]any, error) {
	headers, err := json.Marshal(msg.Headers)
	if err != nil {
		return nil, fmt.Errorf("marshal headers: %w", err)
	}
	return map[string]any{
		fieldType:    msg.Type,
		fieldVersion: strconv.Itoa(int(msg.Version)),
		fieldBody:    string(msg.Body),
		fieldHeaders: string(headers),
		fieldAttempt: strconv.Itoa(attempt),
	}, nil
}

func decode(values map[string]any) (command.Message, int, error) {
	str := func(key string) string {
		v, _ := values[key].(string)
		return v
	}

	msg := command.Message{Type: str(fieldType), Body: []byte(str(fieldBody))}
	if msg.Type == "" {
		return command.Message{}, 0, fmt.Errorf("entry has no %s field", fieldType)
	}

	version, err := strconv.Atoi(str(fieldVersion))
	if err != nil {
		return command.Message{}, 0, fmt.Errorf("parse %s: %w", fieldVersion, err)
	}
	msg.Version = command.Version(version)

	if raw := str(fieldHeaders); raw != "" {
		if err := json.Unmarshal([]byte(raw), &msg.Headers); err != nil {
			return command.Message{}, 0, fmt.Errorf("parse %s: %w", fieldHeaders, err)
		}
	}
	if msg.Headers == nil {
		msg.Headers = command.Headers{}
	}

	attempt := 1
	if raw := str(fieldAttempt); raw != "" {
		if attempt, err = strconv.Atoi(raw); err != nil {
			return command.Message{}, 0, fmt.Errorf("parse %s: %w", fieldAttempt, err)
		}
	}
	return msg, attempt, nil
}

// retryEntry is a scheduled redelivery, stored as a sorted-set member.
type retryEntry struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Version command.Version `json:"version"`
	Body    string          `json:"body"`
	Headers command.Headers `json:"headers"`
	Attempt int             `json:"attempt"`
}

func (e retryEntry) message() command.Message {
	return command.Message{Type: e.Type, Version: e.Version, Body: []byte(e.Body), Headers: e.Headers}
}
