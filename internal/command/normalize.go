package command

import (
	"encoding/json"
	"fmt"

	"github.com/GruborIvan/taskmanager/internal/domain"
)

type envelopeKey struct {
	typ     string
	version Version
}

var envelopes = map[envelopeKey]func() Envelope{
	{string(OpCreateTask), V1}:       func() Envelope { return new(CreateTaskV1) },
	{string(OpCreateTask), V2}:       func() Envelope { return new(CreateTaskV2) },
	{string(OpCreateTask), V3}:       func() Envelope { return new(CreateTaskV3) },
	{string(OpAssignTask), V1}:       func() Envelope { return new(AssignTaskToEntityV1) },
	{string(OpAssignTask), V2}:       func() Envelope { return new(AssignTaskToEntityV2) },
	{string(OpUnassignTask), V1}:     func() Envelope { return new(UnassignTaskV1) },
	{string(OpUnassignTask), V2}:     func() Envelope { return new(UnassignTaskV2) },
	{string(OpUpdateTask), V1}:       func() Envelope { return new(UpdateTaskV1) },
	{string(OpUpdateTask), V2}:       func() Envelope { return new(UpdateTaskV2) },
	{string(OpUpdateTaskV2), V2}:     func() Envelope { return new(UpdateTaskV2) },
	{string(OpUpdateTaskData), V1}:   func() Envelope { return new(UpdateTaskDataV1) },
	{string(OpUpdateTaskData), V2}:   func() Envelope { return new(UpdateTaskDataV2) },
	{string(OpUpdateTaskStatus), V1}: func() Envelope { return new(UpdateTaskStatusV1) },
	{string(OpUpdateTaskStatus), V2}: func() Envelope { return new(UpdateTaskStatusV2) },
	{string(OpFinalizeTask), V1}:     func() Envelope { return new(FinalizeTaskStatusV1) },
	{string(OpFinalizeTask), V2}:     func() Envelope { return new(FinalizeTaskStatusV2) },
	{string(OpRelateTask), V1}:       func() Envelope { return new(RelateTaskToEntityV1) },
	{string(OpRelateTask), V2}:       func() Envelope { return new(RelateTaskToEntityV2) },
	{string(OpStoreComment), V1}:     func() Envelope { return new(StoreCommentV1) },
	{string(OpStoreComment), V2}:     func() Envelope { return new(StoreCommentV2) },
}

// Supported reports whether a message type and version has a known envelope.
func Supported(typ string, version Version) bool {
	_, ok := envelopes[envelopeKey{typ: typ, version: version}]
	return ok
}

// RequireHeaders checks the identifying headers current wire versions must carry.
func RequireHeaders(h Headers) error {
	if _, ok := h.Get(HeaderRequestID); !ok {
		return domain.NewValidationError(HeaderRequestID, "Missing x-request-id in headers")
	}
	if _, ok := h.Get(HeaderCommandID); !ok {
		return domain.NewValidationError(HeaderCommandID, "Missing x-command-id in headers")
	}
	return nil
}

// Decode resolves the wire variant for msg and unmarshals its body.
// Header requirements of current versions are checked before the body is read.
func Decode(msg Message) (Envelope, error) {
	factory, ok := envelopes[envelopeKey{typ: msg.Type, version: msg.Version}]
	if !ok {
		return nil, domain.NewValidationError("type", fmt.Sprintf("Unsupported command %s v%d", msg.Type, msg.Version))
	}
	if msg.Version >= V2 {
		if err := RequireHeaders(msg.Headers); err != nil {
			return nil, err
		}
	}

	env := factory()
	if err := json.Unmarshal(msg.Body, env); err != nil {
		return nil, domain.NewValidationError("body", fmt.Sprintf("Invalid %s v%d payload: %v", msg.Type, msg.Version, err))
	}
	return env, nil
}

// Normalize turns any supported wire variant into its canonical command.
func Normalize(msg Message) (Command, error) {
	env, err := Decode(msg)
	if err != nil {
		return nil, err
	}

	meta, err := env.metadata(msg.Headers)
	if err != nil {
		return nil, err
	}
	meta.Version = msg.Version

	return env.normalize(meta), nil
}
