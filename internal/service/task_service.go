package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/GruborIvan/taskmanager/internal/command"
	"github.com/GruborIvan/taskmanager/internal/domain"
	"github.com/GruborIvan/taskmanager/internal/event"
	"github.com/GruborIvan/taskmanager/internal/logger"
)

// TaskStore persists task aggregates.
//
// Save writes only the fields named by change plus the audit columns, appends
// the change's comment and relations, and bumps task.Version on success. The
// write is rejected when the stored task is already final, or when
// change.ExpectedVersion is set and no longer matches.
type TaskStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	Create(ctx context.Context, task *domain.Task) error
	Save(ctx context.Context, task *domain.Task, change domain.Change) error
}

// Result is what a handler returns on success: the updated task and the
// events to publish for it.
type Result struct {
	Task   *domain.Task
	Events []event.Event

	// NotifyCallback is set when the task's callback should be invoked.
	NotifyCallback bool
}

// TaskService handles canonical task commands.
// Every handler runs validate, load, guard, mutate, persist, emit.
type TaskService struct {
	store     TaskStore
	validator *Validator
	now       func() time.Time
}

// NewTaskService creates a new TaskService. A nil clock means time.Now.
func NewTaskService(store TaskStore, now func() time.Time) *TaskService {
	if now == nil {
		now = time.Now
	}
	return &TaskService{
		store:     store,
		validator: NewValidator(now),
		now:       now,
	}
}

// CreateTask creates a task with its initial comment, assignment and relations.
func (s *TaskService) CreateTask(ctx context.Context, c command.CreateTask) (*Result, error) {
	if err := s.validator.ValidateCreate(c); err != nil {
		return nil, err
	}

	task := domain.NewTask(domain.NewTaskParams{
		ID:               c.TaskID,
		TaskType:         c.TaskType,
		Callback:         c.Callback,
		FourEyeSubjectID: c.FourEyeSubjectID,
		Subject:          c.Subject,
		Source:           c.Source,
		Status:           c.Status,
		Data:             c.Data,
		Assignment:       c.Assignment,
		Comment:          c.Comment,
		Relations:        c.Relations,
		CreatedBy:        c.InitiatedBy,
	}, s.now().UTC())

	if err := s.store.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task %s: %w", task.ID, err)
	}

	change := domain.Change{Relations: task.Relations}
	if len(task.Comments) > 0 {
		change.Comment = &task.Comments[0]
	}

	logger.FromContext(ctx).Info("task created",
		"task_id", task.ID,
		"task_type", task.TaskType,
		"relations", len(task.Relations),
	)

	return s.result(c, task, change), nil
}

// AssignTask sets the task assignment.
func (s *TaskService) AssignTask(ctx context.Context, c command.AssignTask) (*Result, error) {
	if err := s.validator.ValidateAssign(c); err != nil {
		return nil, err
	}
	return s.mutate(ctx, c, func(t *domain.Task, at time.Time) (domain.Change, error) {
		return t.AssignTo(c.Assignment, c.InitiatedBy, at)
	})
}

// UnassignTask clears the task assignment.
func (s *TaskService) UnassignTask(ctx context.Context, c command.UnassignTask) (*Result, error) {
	if err := s.validator.ValidateUnassign(c); err != nil {
		return nil, err
	}
	return s.mutate(ctx, c, func(t *domain.Task, at time.Time) (domain.Change, error) {
		return t.Unassign(c.InitiatedBy, at)
	})
}

// UpdateTask applies a general update.
func (s *TaskService) UpdateTask(ctx context.Context, c command.UpdateTask) (*Result, error) {
	if err := s.validator.ValidateUpdate(c); err != nil {
		return nil, err
	}
	return s.mutate(ctx, c, func(t *domain.Task, at time.Time) (domain.Change, error) {
		return t.Update(domain.TaskUpdate{
			Data:       c.Data,
			Status:     c.Status,
			FinalState: c.FinalState,
			Subject:    c.Subject,
		}, c.InitiatedBy, at)
	})
}

// UpdateTaskData replaces the task data.
func (s *TaskService) UpdateTaskData(ctx context.Context, c command.UpdateTaskData) (*Result, error) {
	if err := s.validator.ValidateUpdateData(c); err != nil {
		return nil, err
	}
	return s.mutate(ctx, c, func(t *domain.Task, at time.Time) (domain.Change, error) {
		return t.UpdateData(c.Data, c.InitiatedBy, at)
	})
}

// UpdateTaskStatus sets the status and optionally finalizes.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, c command.UpdateTaskStatus) (*Result, error) {
	if err := s.validator.ValidateUpdateStatus(c); err != nil {
		return nil, err
	}
	return s.mutate(ctx, c, func(t *domain.Task, at time.Time) (domain.Change, error) {
		return t.UpdateStatus(c.Status, c.FinalState, c.InitiatedBy, at)
	})
}

// FinalizeTask performs the Active -> Final transition.
// The four-eye guard rejects self-approval before anything is written.
func (s *TaskService) FinalizeTask(ctx context.Context, c command.FinalizeTask) (*Result, error) {
	if err := s.validator.ValidateFinalize(c); err != nil {
		return nil, err
	}
	return s.mutate(ctx, c, func(t *domain.Task, at time.Time) (domain.Change, error) {
		return t.Finalize(c.Status, c.FourEyeReview, c.InitiatedBy, at)
	})
}

// RelateTask appends a relation.
func (s *TaskService) RelateTask(ctx context.Context, c command.RelateTask) (*Result, error) {
	if err := s.validator.ValidateRelate(c); err != nil {
		return nil, err
	}
	return s.mutate(ctx, c, func(t *domain.Task, at time.Time) (domain.Change, error) {
		return t.Relate(domain.NewRelation{EntityID: c.EntityID, EntityType: c.EntityType}, c.InitiatedBy, at)
	})
}

// StoreComment appends a comment.
func (s *TaskService) StoreComment(ctx context.Context, c command.StoreComment) (*Result, error) {
	if err := s.validator.ValidateStoreComment(c); err != nil {
		return nil, err
	}
	return s.mutate(ctx, c, func(t *domain.Task, at time.Time) (domain.Change, error) {
		return t.AddComment(domain.NewComment{Text: c.Text, CreatedDate: c.CreatedDate}, c.InitiatedBy, at)
	})
}

// mutate loads the target task, applies fn and persists the resulting patch.
// Guards inside fn run against the loaded task; nothing is written when fn fails.
func (s *TaskService) mutate(
	ctx context.Context,
	cmd command.Command,
	fn func(*domain.Task, time.Time) (domain.Change, error),
) (*Result, error) {
	task, err := s.store.GetByID(ctx, cmd.Target())
	if err != nil {
		return nil, err
	}

	change, err := fn(task, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, task, change); err != nil {
		return nil, fmt.Errorf("save task %s: %w", task.ID, err)
	}

	logger.FromContext(ctx).Info("task updated",
		"task_id", task.ID,
		"fields", change.Fields,
		"final_state", task.FinalState,
		"version", task.Version,
	)

	return s.result(cmd, task, change), nil
}

func (s *TaskService) result(cmd command.Command, task *domain.Task, change domain.Change) *Result {
	return &Result{
		Task: task,
		Events: event.Emit(event.Outcome{
			Operation: cmd.Operation(),
			Meta:      cmd.Meta(),
			Task:      task,
			Change:    change,
		}),
		NotifyCallback: task.Callback != nil && (change.Finalizes() || change.Has(domain.FieldStatus)),
	}
}
