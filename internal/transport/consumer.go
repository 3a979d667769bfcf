// Package transport moves command messages over Redis Streams: a producer
// appends them, a consumer group delivers them to a bounded worker pool, and
// failures are rescheduled through a sorted set or dead-lettered.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/GruborIvan/taskmanager/internal/command"
	"github.com/GruborIvan/taskmanager/internal/logger"
)

// Default stream and key names.
const (
	DefaultCommandStream    = "tasks:commands"
	DefaultRetryKey         = "tasks:commands:retry"
	DefaultDeadLetterStream = "tasks:commands:dead"
	DefaultGroup            = "taskmanager"
	DefaultConsumerName     = "taskmanager-1"
)

const (
	defaultWorkers      = 4
	defaultBatchSize    = 16
	defaultBlock        = 2 * time.Second
	defaultPollInterval = time.Second
	defaultClaimIdle    = time.Minute
	defaultMaxAttempts  = 5
	defaultBackoff      = time.Second
	defaultMaxDelay     = 5 * time.Minute
)

// Handler processes one decoded message. A nil error acknowledges it.
type Handler interface {
	HandleMessage(ctx context.Context, msg command.Message) error
}

// Config controls the consumer loop.
type Config struct {
	Stream           string
	Group            string
	Name             string
	RetryKey         string
	DeadLetterStream string
	Workers          int
	BatchSize        int64
	Block            time.Duration
	PollInterval     time.Duration
	ClaimIdle        time.Duration
	Retry            RetryPolicy
}

func (c Config) normalized() Config {
	if strings.TrimSpace(c.Stream) == "" {
		c.Stream = DefaultCommandStream
	}
	if strings.TrimSpace(c.Group) == "" {
		c.Group = DefaultGroup
	}
	if strings.TrimSpace(c.Name) == "" {
		c.Name = DefaultConsumerName
	}
	if strings.TrimSpace(c.RetryKey) == "" {
		c.RetryKey = DefaultRetryKey
	}
	if strings.TrimSpace(c.DeadLetterStream) == "" {
		c.DeadLetterStream = DefaultDeadLetterStream
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.Block <= 0 {
		c.Block = defaultBlock
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.ClaimIdle <= 0 {
		c.ClaimIdle = defaultClaimIdle
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = defaultMaxAttempts
	}
	if c.Retry.Backoff <= 0 {
		c.Retry.Backoff = defaultBackoff
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = defaultMaxDelay
	}
	return c
}

type delivery struct {
	id      string
	msg     command.Message
	attempt int
}

// Consumer reads a stream through a consumer group.
type Consumer struct {
	client  redis.Cmdable
	handler Handler
	cfg     Config
	now     func() time.Time
}

// NewConsumer creates a Consumer. Zero config fields take defaults.
func NewConsumer(client redis.Cmdable, handler Handler, cfg Config) *Consumer {
	return &Consumer{
		client:  client,
		handler: handler,
		cfg:     cfg.normalized(),
		now:     time.Now,
	}
}

// Run consumes until ctx is cancelled. In-flight messages finish before it returns.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	log := logger.FromContext(ctx).With("stream", c.cfg.Stream, "consumer", c.cfg.Name)
	log.Info("consumer started", "workers", c.cfg.Workers)

	jobs := make(chan delivery, c.cfg.Workers)
	var wg sync.WaitGroup
	for range c.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range jobs {
				c.process(ctx, d)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.schedule(ctx)
	}()

	err := c.read(ctx, jobs)
	close(jobs)
	wg.Wait()

	log.Info("consumer stopped")
	return err
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", c.cfg.Group, err)
	}
	return nil
}

func (c *Consumer) read(ctx context.Context, jobs chan<- delivery) error {
	log := logger.FromContext(ctx)
	for {
		if ctx.Err() != nil {
			return nil
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Name,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    c.cfg.BatchSize,
			Block:    c.cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			log.Error("read commands", "error", err)
			if !sleep(ctx, c.cfg.PollInterval) {
				return nil
			}
			continue
		}

		for _, stream := range streams {
			for _, entry := range stream.Messages {
				d, ok := c.toDelivery(ctx, entry)
				if !ok {
					continue
				}
				select {
				case jobs <- d:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

// toDelivery decodes an entry. Undecodable entries are dead-lettered and acknowledged.
func (c *Consumer) toDelivery(ctx context.Context, entry redis.XMessage) (delivery, bool) {
	msg, attempt, err := decode(entry.Values)
	if err == nil {
		return delivery{id: entry.ID, msg: msg, attempt: attempt}, true
	}

	logger.FromContext(ctx).Warn("undecodable command entry", "message_id", entry.ID, "error", err)
	values := make(map[string]any, len(entry.Values)+2)
	for k, v := range entry.Values {
		values[k] = v
	}
	details, _ := json.Marshal(newErrorDetails(err, 1))
	values[command.HeaderErrorDetails] = string(details)
	values[fieldOrigin] = entry.ID
	if err := c.client.XAdd(ctx, &redis.XAddArgs{Stream: c.cfg.DeadLetterStream, Values: values}).Err(); err != nil {
		logger.FromContext(ctx).Error("dead-letter undecodable entry", "message_id", entry.ID, "error", err)
		return delivery{}, false
	}
	c.ack(ctx, entry.ID)
	return delivery{}, false
}

// process runs the handler and settles the entry. The entry is acknowledged
// only once it succeeded, was rescheduled, or was dead-lettered; otherwise it
// stays pending and is reclaimed later.
func (c *Consumer) process(ctx context.Context, d delivery) {
	if ctx.Err() != nil {
		return
	}

	log := logger.FromContext(ctx).With(
		"message_id", d.id,
		"command", d.msg.Type,
		"version", d.msg.Version,
		"attempt", d.attempt,
	)
	ctx = logger.WithContext(ctx, log)

	err := c.handler.HandleMessage(ctx, d.msg)
	if err == nil {
		c.ack(ctx, d.id)
		return
	}

	// Settlement must not be lost to a shutdown racing the handler.
	settleCtx := context.WithoutCancel(ctx)

	if Retryable(err) && !c.cfg.Retry.Exhausted(d.attempt) {
		delay := c.cfg.Retry.Next(d.attempt)
		if serr := c.scheduleRetry(settleCtx, d, delay); serr != nil {
			log.Error("schedule retry", "error", serr)
			return
		}
		log.Warn("command retry scheduled", "delay", delay, "error", err)
		c.ack(settleCtx, d.id)
		return
	}

	if derr := c.deadLetter(settleCtx, d, err); derr != nil {
		log.Error("dead-letter command", "error", derr)
		return
	}
	log.Error("command dead-lettered", "error", err)
	c.ack(settleCtx, d.id)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil {
		logger.FromContext(ctx).Error("ack command", "message_id", id, "error", err)
	}
}

func (c *Consumer) scheduleRetry(ctx context.Context, d delivery, delay time.Duration) error {
	member, err := json.Marshal(retryEntry{
		ID:      uuid.NewString(),
		Type:    d.msg.Type,
		Version: d.msg.Version,
		Body:    string(d.msg.Body),
		Headers: d.msg.Headers,
		Attempt: d.attempt + 1,
	})
	if err != nil {
		return fmt.Errorf("marshal retry entry: %w", err)
	}
	due := c.now().Add(delay).UnixMilli()
	return c.client.ZAdd(ctx, c.cfg.RetryKey, redis.Z{Score: float64(due), Member: string(member)}).Err()
}

func (c *Consumer) deadLetter(ctx context.Context, d delivery, cause error) error {
	msg := d.msg
	msg.Headers = msg.Headers.Clone()
	details, err := json.Marshal(newErrorDetails(cause, d.attempt))
	if err != nil {
		return fmt.Errorf("marshal error details: %w", err)
	}
	msg.Headers[command.HeaderErrorDetails] = string(details)

	values, err := encode(msg, d.attempt)
	if err != nil {
		return err
	}
	values[fieldOrigin] = d.id
	return c.client.XAdd(ctx, &redis.XAddArgs{Stream: c.cfg.DeadLetterStream, Values: values}).Err()
}

// schedule periodically re-enqueues due retries and reclaims stale pending entries.
func (c *Consumer) schedule(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.moveDueRetries(ctx); err != nil && ctx.Err() == nil {
				logger.FromContext(ctx).Error("move due retries", "error", err)
			}
			if err := c.reclaim(ctx); err != nil && ctx.Err() == nil {
				logger.FromContext(ctx).Error("reclaim pending commands", "error", err)
			}
		}
	}
}

// requeueScript moves one retry member onto the command stream. XADD runs
// before ZREM, so a failed append leaves the member in the retry set.
// KEYS[1] retry set, KEYS[2] command stream, ARGV[1] member, ARGV[2:] fields.
var requeueScript = redis.NewScript(`
if not redis.call('ZSCORE', KEYS[1], ARGV[1]) then
	return 0
end
redis.call('XADD', KEYS[2], '*', unpack(ARGV, 2))
redis.call('ZREM', KEYS[1], ARGV[1])
return 1
`)

// moveDueRetries appends due retry entries back onto the command stream.
// Each move is a single script, so concurrent consumers never move an entry
// twice and an entry leaves the retry set only once it is on the stream.
func (c *Consumer) moveDueRetries(ctx context.Context) (int, error) {
	members, err := c.client.ZRangeByScore(ctx, c.cfg.RetryKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(c.now().UnixMilli(), 10),
		Count: c.cfg.BatchSize,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("range retries: %w", err)
	}

	moved := 0
	for _, member := range members {
		var entry retryEntry
		if err := json.Unmarshal([]byte(member), &entry); err != nil {
			logger.FromContext(ctx).Error("drop malformed retry entry", "error", err)
			if err := c.client.ZRem(ctx, c.cfg.RetryKey, member).Err(); err != nil {
				return moved, fmt.Errorf("drop retry: %w", err)
			}
			continue
		}
		values, err := encode(entry.message(), entry.Attempt)
		if err != nil {
			return moved, err
		}

		args := make([]any, 0, 1+2*len(values))
		args = append(args, member)
		for field, value := range values {
			args = append(args, field, value)
		}
		n, err := requeueScript.Run(ctx, c.client, []string{c.cfg.RetryKey, c.cfg.Stream}, args...).Int()
		if err != nil {
			return moved, fmt.Errorf("requeue retry: %w", err)
		}
		moved += n
	}
	return moved, nil
}

// reclaim takes over entries another consumer left pending for longer than ClaimIdle.
func (c *Consumer) reclaim(ctx context.Context) error {
	entries, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Name,
		MinIdle:  c.cfg.ClaimIdle,
		Start:    "0-0",
		Count:    c.cfg.BatchSize,
	}).Result()
	if err != nil {
		return fmt.Errorf("autoclaim: %w", err)
	}
	for _, entry := range entries {
		if d, ok := c.toDelivery(ctx, entry); ok {
			c.process(ctx, d)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
