package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/GruborIvan/taskmanager/internal/event"
)

// Default destinations.
const (
	DefaultEventStream         = "tasks:events"
	DefaultNotificationChannel = "tasks:notifications"
)

// Stream appends events to a Redis stream, one entry per event.
type Stream struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewStream creates a Stream sink. A positive maxLen trims the stream approximately.
func NewStream(client redis.Cmdable, stream string, maxLen int64) *Stream {
	if stream == "" {
		stream = DefaultEventStream
	}
	return &Stream{client: client, stream: stream, maxLen: maxLen}
}

// Name identifies the sink in errors and logs.
func (s *Stream) Name() string { return "stream:" + s.stream }

// Publish writes the batch in one pipeline so entries keep their order.
func (s *Stream) Publish(ctx context.Context, events ...event.Event) error {
	pipe := s.client.TxPipeline()
	for _, e := range events {
		values, err := streamValues(e)
		if err != nil {
			return err
		}
		args := &redis.XAddArgs{Stream: s.stream, Values: values}
		if s.maxLen > 0 {
			args.MaxLen = s.maxLen
			args.Approx = true
		}
		pipe.XAdd(ctx, args)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

func streamValues(e event.Event) (map[string]any, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", e.Type(), err)
	}
	return map[string]any{
		"type":    e.Type(),
		"task_id": e.TaskID.String(),
		"body":    body,
	}, nil
}

// PubSub publishes each event as JSON on a Redis channel. Delivery is
// best-effort; subscribers that are not connected miss the message.
type PubSub struct {
	client  redis.Cmdable
	channel string
}

// NewPubSub creates a PubSub sink.
func NewPubSub(client redis.Cmdable, channel string) *PubSub {
	if channel == "" {
		channel = DefaultNotificationChannel
	}
	return &PubSub{client: client, channel: channel}
}

// Name identifies the sink in errors and logs.
func (p *PubSub) Name() string { return "pubsub:" + p.channel }

// Publish sends each event to the channel as JSON, stopping at the first error.
func (p *PubSub) Publish(ctx context.Context, events ...event.Event) error {
	for _, e := range events {
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", e.Type(), err)
		}
		if err := p.client.Publish(ctx, p.channel, raw).Err(); err != nil {
			return fmt.Errorf("publish %s: %w", p.channel, err)
		}
	}
	return nil
}
