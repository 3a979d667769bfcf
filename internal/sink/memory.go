package sink

import (
	"context"
	"sync"

	"github.com/GruborIvan/taskmanager/internal/event"
)

// Memory records published events in process.
type Memory struct {
	mu     sync.Mutex
	events []event.Event
	err    error
}

// NewMemory creates an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Name() string { return "memory" }

// Publish records events, or returns the error set by FailWith without recording.
func (m *Memory) Publish(ctx context.Context, events ...event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, events...)
	return nil
}

// FailWith makes subsequent publishes fail with err. A nil err clears it.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Events returns a copy of everything recorded so far.
func (m *Memory) Events() []event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]event.Event(nil), m.events...)
}

// Reset drops recorded events.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
