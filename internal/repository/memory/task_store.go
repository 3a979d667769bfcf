// Package memory is an in-process task store with the same write semantics
// as the PostgreSQL repository. It backs tests and the memory store mode.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/GruborIvan/taskmanager/internal/domain"
)

// TaskStore keeps tasks in a map guarded by a RWMutex.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*domain.Task
	order []uuid.UUID
}

// New creates an empty TaskStore.
func New() *TaskStore {
	return &TaskStore{
		tasks: make(map[uuid.UUID]*domain.Task),
	}
}

// Create stores a new task at version 1.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; ok {
		return domain.TaskAlreadyExistsError(task.ID)
	}

	task.Version = 1
	s.tasks[task.ID] = task.Clone()
	s.order = append(s.order, task.ID)
	return nil
}

// GetByID returns a copy of the stored task.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, domain.TaskNotFoundError(id)
	}
	return task.Clone(), nil
}

// Save applies a field-scoped patch. Only the fields listed in change are
// copied from task; everything else keeps its stored value.
func (s *TaskStore) Save(ctx context.Context, task *domain.Task, change domain.Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[task.ID]
	if !ok {
		return domain.TaskNotFoundError(task.ID)
	}
	if stored.FinalState {
		return domain.TaskFinalizedError(task.ID)
	}
	if change.ExpectedVersion != nil && stored.Version != *change.ExpectedVersion {
		return domain.ConcurrentModificationError(task.ID)
	}

	patched := task.Clone()
	for _, f := range change.Fields {
		switch f {
		case domain.FieldData:
			stored.Data = patched.Data
		case domain.FieldStatus:
			stored.Status = patched.Status
		case domain.FieldFinalState:
			stored.FinalState = patched.FinalState
		case domain.FieldSubject:
			stored.Subject = patched.Subject
		case domain.FieldAssignment:
			stored.Assignment = patched.Assignment
		}
	}
	if change.Comment != nil {
		stored.Comments = append(stored.Comments, *change.Comment)
	}
	stored.Relations = append(stored.Relations, change.Relations...)
	stored.ChangedBy = task.ChangedBy
	stored.ChangedDate = task.ChangedDate
	stored.Version++

	task.Version = stored.Version
	return nil
}

// List returns tasks matching filter in creation order, with the total match count.
func (s *TaskStore) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Task
	for _, id := range s.order {
		task := s.tasks[id]
		if matches(task, filter) {
			matched = append(matched, task)
		}
	}

	total := len(matched)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}

	out := make([]*domain.Task, 0, end-start)
	for _, task := range matched[start:end] {
		out = append(out, task.Clone())
	}
	return out, total, nil
}

// RelationsByEntity returns every relation pointing at entityID.
func (s *TaskStore) RelationsByEntity(ctx context.Context, entityID string) ([]domain.Relation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	relations := []domain.Relation{}
	for _, id := range s.order {
		for _, r := range s.tasks[id].Relations {
			if r.EntityID == entityID {
				relations = append(relations, r)
			}
		}
	}
	return relations, nil
}

// TasksChangedIn returns tasks whose last change falls in period.
func (s *TaskStore) TasksChangedIn(ctx context.Context, period domain.Period) ([]*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := []*domain.Task{}
	for _, id := range s.order {
		if task := s.tasks[id]; period.Contains(task.ChangedDate) {
			tasks = append(tasks, task.Clone())
		}
	}
	return tasks, nil
}

// CommentsCreatedIn returns comments created in period.
func (s *TaskStore) CommentsCreatedIn(ctx context.Context, period domain.Period) ([]domain.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := []domain.Comment{}
	for _, id := range s.order {
		for _, c := range s.tasks[id].Comments {
			if period.Contains(c.CreatedDate) {
				comments = append(comments, c)
			}
		}
	}
	return comments, nil
}

// RelationsCreatedIn returns relations created in period.
func (s *TaskStore) RelationsCreatedIn(ctx context.Context, period domain.Period) ([]domain.Relation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	relations := []domain.Relation{}
	for _, id := range s.order {
		for _, r := range s.tasks[id].Relations {
			if period.Contains(r.CreatedDate) {
				relations = append(relations, r)
			}
		}
	}
	return relations, nil
}

func matches(task *domain.Task, f domain.TaskFilter) bool {
	if f.Status != nil && task.Status != *f.Status {
		return false
	}
	if f.Final != nil && task.FinalState != *f.Final {
		return false
	}
	if f.AssignedTo != nil {
		if task.Assignment == nil || task.Assignment.AssignedToEntityID != *f.AssignedTo {
			return false
		}
	}
	if f.SourceID != nil && task.Source.ID != *f.SourceID {
		return false
	}
	return true
}

