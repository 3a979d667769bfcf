package transport

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultDedupPrefix = "tasks:handled:"
	DefaultDedupTTL    = 24 * time.Hour
)

// Deduplicator remembers handled command ids in Redis for a limited time.
type Deduplicator struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewDeduplicator creates a Deduplicator. A non-positive ttl takes the default.
func NewDeduplicator(client redis.Cmdable, ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &Deduplicator{client: client, prefix: DefaultDedupPrefix, ttl: ttl}
}

// Seen reports whether commandID was marked within the TTL.
func (d *Deduplicator) Seen(ctx context.Context, commandID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+commandID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records commandID. An existing mark keeps its original expiry.
func (d *Deduplicator) Mark(ctx context.Context, commandID string) error {
	return d.client.SetNX(ctx, d.prefix+commandID, time.Now().UTC().Format(time.RFC3339), d.ttl).Err()
}
