package sink_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GruborIvan/taskmanager/internal/event"
	"github.com/GruborIvan/taskmanager/internal/sink"
)

func sampleEvent() event.Event {
	return event.Event{
		Name:       event.TaskAssigned,
		Version:    2,
		Operation:  "AssignTaskToEntity",
		TaskID:     uuid.New(),
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Payload:    map[string]string{"assignedToEntityId": "bob"},
	}
}

func TestFanOut_AttemptsEverySink(t *testing.T) {
	broken := sink.NewMemory()
	broken.FailWith(errors.New("down"))
	healthy := sink.NewMemory()

	err := sink.NewFanOut(broken, healthy).Publish(context.Background(), sampleEvent())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink memory: down")
	assert.Len(t, healthy.Events(), 1)
	assert.Empty(t, broken.Events())
}

func TestFanOut_EmptyBatch(t *testing.T) {
	broken := sink.NewMemory()
	broken.FailWith(errors.New("down"))

	assert.NoError(t, sink.NewFanOut(broken).Publish(context.Background()))
}

func TestMemory_FailWithNilClears(t *testing.T) {
	m := sink.NewMemory()
	m.FailWith(errors.New("down"))
	m.FailWith(nil)

	require.NoError(t, m.Publish(context.Background(), sampleEvent()))
	assert.Len(t, m.Events(), 1)

	m.Reset()
	assert.Empty(t, m.Events())
}

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestStream_PublishKeepsOrder(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	stream := "test:events:" + uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, stream) })

	first, second := sampleEvent(), sampleEvent()
	second.Name = event.TaskUnassigned

	require.NoError(t, sink.NewStream(client, stream, 100).Publish(ctx, first, second))

	entries, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "TaskAssigned.v2", entries[0].Values["type"])
	assert.Equal(t, "TaskUnassigned.v2", entries[1].Values["type"])
	assert.Equal(t, first.TaskID.String(), entries[0].Values["task_id"])

	var decoded event.Event
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["body"].(string)), &decoded))
	assert.Equal(t, first.TaskID, decoded.TaskID)
}

func TestPubSub_Publish(t *testing.T) {
	client := redisClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	channel := "test:notifications:" + uuid.NewString()

	sub := client.Subscribe(ctx, channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	e := sampleEvent()
	require.NoError(t, sink.NewPubSub(client, channel).Publish(ctx, e))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Contains(t, msg.Payload, e.TaskID.String())
}
