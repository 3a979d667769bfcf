// Package sink delivers published events to their destinations: a durable
// Redis stream for consumers and a pub/sub channel for live notification.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/GruborIvan/taskmanager/internal/event"
)

// Sink is one event destination.
type Sink interface {
	Name() string
	Publish(ctx context.Context, events ...event.Event) error
}

// FanOut publishes every batch to all of its sinks.
type FanOut struct {
	sinks []Sink
}

// NewFanOut creates a FanOut over sinks.
func NewFanOut(sinks ...Sink) *FanOut {
	return &FanOut{sinks: sinks}
}

// Publish hands events to every sink, even after one fails, and joins the errors.
func (f *FanOut) Publish(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}

	var errs []error
	for _, s := range f.sinks {
		if err := s.Publish(ctx, events...); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
