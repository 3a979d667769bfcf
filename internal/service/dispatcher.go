package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/GruborIvan/taskmanager/internal/command"
	"github.com/GruborIvan/taskmanager/internal/domain"
	"github.com/GruborIvan/taskmanager/internal/event"
	"github.com/GruborIvan/taskmanager/internal/logger"
	"github.com/GruborIvan/taskmanager/internal/telemetry"
)

// Publisher delivers events to the external sinks.
type Publisher interface {
	Publish(ctx context.Context, events ...event.Event) error
}

// Notifier invokes a task's callback without blocking the caller.
type Notifier interface {
	Notify(ctx context.Context, task *domain.Task)
}

// Deduplicator records handled command ids.
type Deduplicator interface {
	Seen(ctx context.Context, commandID string) (bool, error)
	Mark(ctx context.Context, commandID string) error
}

// Dispatcher routes messages to the task handlers and publishes their events.
type Dispatcher struct {
	service   *TaskService
	publisher Publisher
	notifier  Notifier
	dedup     Deduplicator
	tracer    trace.Tracer
	now       func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithNotifier sets the callback notifier.
func WithNotifier(n Notifier) DispatcherOption {
	return func(d *Dispatcher) { d.notifier = n }
}

// WithDeduplicator enables skipping of already handled command ids.
func WithDeduplicator(dd Deduplicator) DispatcherOption {
	return func(d *Dispatcher) { d.dedup = dd }
}

// WithClock overrides the clock used to stamp failure events.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(svc *TaskService, publisher Publisher, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		service:   svc,
		publisher: publisher,
		tracer:    telemetry.Tracer(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleMessage normalizes a transport message and dispatches it.
// A message rejected by the front door still produces a failure event.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg command.Message) error {
	cmd, err := command.Normalize(msg)
	if err != nil {
		meta := command.Metadata{Version: msg.Version}
		meta.RequestID, _ = msg.Headers.Get(command.HeaderRequestID)
		meta.CommandID, _ = msg.Headers.Get(command.HeaderCommandID)
		meta.CorrelationID = meta.RequestID
		taskID := command.PeekTaskID(msg.Body)

		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(
			"command", msg.Type,
			"version", msg.Version,
			"task_id", taskID,
		))
		d.fail(ctx, command.Operation(msg.Type), meta, taskID, err)
		return err
	}
	return d.Dispatch(ctx, cmd)
}

// Dispatch handles a canonical command.
//
// On success the command id is recorded, then the events are published and
// the callback is notified. On failure one TaskCommandFailed event is published first and
// the error is returned for the transport to retry or dead-letter.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd command.Command) error {
	meta := cmd.Meta()
	op := cmd.Operation()

	ctx, span := d.tracer.Start(ctx, "command "+string(op), trace.WithAttributes(
		attribute.String("task.command", string(op)),
		attribute.Int("task.command.version", int(meta.Version)),
		attribute.String("task.id", cmd.Target().String()),
		attribute.String("task.command_id", meta.CommandID),
	))
	defer span.End()

	log := logger.FromContext(ctx).With(
		"command", op,
		"version", meta.Version,
		"task_id", cmd.Target(),
		"correlation_id", meta.CorrelationID,
	)
	ctx = logger.WithContext(ctx, log)

	if d.dedup != nil && meta.CommandID != "" {
		seen, err := d.dedup.Seen(ctx, meta.CommandID)
		if err != nil {
			log.Warn("idempotency lookup failed", "command_id", meta.CommandID, "error", err)
		} else if seen {
			log.Info("duplicate command skipped", "command_id", meta.CommandID)
			return nil
		}
	}

	res, err := d.handle(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.fail(ctx, op, meta, cmd.Target(), err)
		return err
	}

	// The mutation is persisted; a redelivery must not apply it again even
	// when publishing below fails.
	if d.dedup != nil && meta.CommandID != "" {
		if err := d.dedup.Mark(ctx, meta.CommandID); err != nil {
			log.Warn("failed to record command id", "command_id", meta.CommandID, "error", err)
		}
	}

	if err := d.publisher.Publish(ctx, res.Events...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("publish events for task %s: %w", res.Task.ID, err)
	}

	if res.NotifyCallback && d.notifier != nil {
		d.notifier.Notify(ctx, res.Task)
	}

	log.Info("command handled", "task_id", res.Task.ID, "events", len(res.Events))
	return nil
}

func (d *Dispatcher) handle(ctx context.Context, cmd command.Command) (*Result, error) {
	switch c := cmd.(type) {
	case command.CreateTask:
		return d.service.CreateTask(ctx, c)
	case command.AssignTask:
		return d.service.AssignTask(ctx, c)
	case command.UnassignTask:
		return d.service.UnassignTask(ctx, c)
	case command.UpdateTask:
		return d.service.UpdateTask(ctx, c)
	case command.UpdateTaskData:
		return d.service.UpdateTaskData(ctx, c)
	case command.UpdateTaskStatus:
		return d.service.UpdateTaskStatus(ctx, c)
	case command.FinalizeTask:
		return d.service.FinalizeTask(ctx, c)
	case command.RelateTask:
		return d.service.RelateTask(ctx, c)
	case command.StoreComment:
		return d.service.StoreComment(ctx, c)
	default:
		return nil, fmt.Errorf("unsupported command %T", cmd)
	}
}

// fail publishes the failure event, even when ctx is already cancelled.
// A publish error is logged; the original error is what the caller propagates.
func (d *Dispatcher) fail(ctx context.Context, op command.Operation, meta command.Metadata, taskID uuid.UUID, cause error) {
	log := logger.FromContext(ctx)
	log.Warn("command failed", "code", domain.ErrorCode(cause), "error", cause)

	failed := event.Failed(op, meta, taskID, cause, d.now().UTC())
	if err := d.publisher.Publish(context.WithoutCancel(ctx), failed); err != nil {
		log.Error("failed to publish failure event", slog.String("command", string(op)), slog.Any("error", err))
	}
}
