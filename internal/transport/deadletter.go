package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/GruborIvan/taskmanager/internal/command"
)

// DeadLetter is a command that exhausted its attempts.
type DeadLetter struct {
	ID       string
	OriginID string
	Message  command.Message
	Details  ErrorDetails
}

// ListDeadLetters returns up to count dead letters, oldest first.
func ListDeadLetters(ctx context.Context, client redis.Cmdable, stream string, count int64) ([]DeadLetter, error) {
	if stream == "" {
		stream = DefaultDeadLetterStream
	}
	entries, err := client.XRangeN(ctx, stream, "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrange %s: %w", stream, err)
	}

	letters := make([]DeadLetter, 0, len(entries))
	for _, entry := range entries {
		letter := DeadLetter{ID: entry.ID}
		letter.OriginID, _ = entry.Values[fieldOrigin].(string)

		msg, _, err := decode(entry.Values)
		if err != nil {
			// Undecodable entries carry the details as a top-level field.
			raw, _ := entry.Values[command.HeaderErrorDetails].(string)
			_ = json.Unmarshal([]byte(raw), &letter.Details)
			letters = append(letters, letter)
			continue
		}
		letter.Message = msg
		if raw, ok := msg.Headers.Get(command.HeaderErrorDetails); ok {
			if err := json.Unmarshal([]byte(raw), &letter.Details); err != nil {
				return nil, fmt.Errorf("parse error details of %s: %w", entry.ID, err)
			}
		}
		letters = append(letters, letter)
	}
	return letters, nil
}
