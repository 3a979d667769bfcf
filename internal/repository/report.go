package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/GruborIvan/taskmanager/internal/domain"
)

// TasksChangedIn retrieves tasks whose last change falls within period.
func (r *TaskRepository) TasksChangedIn(ctx context.Context, period domain.Period) ([]*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.GtOrEq{"changed_date": period.From}).
		Where(sq.Lt{"changed_date": period.To}).
		OrderBy("changed_date ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build TasksChangedIn query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query changed tasks: %w", err)
	}

	return scanTasks(rows)
}

// CommentsCreatedIn retrieves comments created within period.
func (r *TaskRepository) CommentsCreatedIn(ctx context.Context, period domain.Period) ([]domain.Comment, error) {
	return r.comments.CreatedIn(ctx, period)
}

// RelationsCreatedIn retrieves relations created within period.
func (r *TaskRepository) RelationsCreatedIn(ctx context.Context, period domain.Period) ([]domain.Relation, error) {
	return r.relations.CreatedIn(ctx, period)
}
