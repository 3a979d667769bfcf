package transport

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/GruborIvan/taskmanager/internal/command"
)

// Producer appends command messages to the command stream.
type Producer struct {
	client redis.Cmdable
	stream string
}

// NewProducer creates a Producer for stream.
func NewProducer(client redis.Cmdable, stream string) *Producer {
	if stream == "" {
		stream = DefaultCommandStream
	}
	return &Producer{client: client, stream: stream}
}

// Send appends msg as a first attempt and returns the stream entry id.
func (p *Producer) Send(ctx context.Context, msg command.Message) (string, error) {
	if !command.Supported(msg.Type, msg.Version) {
		return "", fmt.Errorf("unsupported command %s v%d", msg.Type, msg.Version)
	}
	if msg.Headers == nil {
		msg.Headers = command.Headers{}
	}

	values, err := encode(msg, 1)
	if err != nil {
		return "", err
	}
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{Stream: p.stream, Values: values}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return id, nil
}
