package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/GruborIvan/taskmanager/internal/domain"
)

// applyFilters adds the WHERE clauses of f to a tasks query.
func applyFilters(qb sq.SelectBuilder, f domain.TaskFilter) sq.SelectBuilder {
	if f.Status != nil {
		qb = qb.Where(sq.Eq{"status": *f.Status})
	}
	if f.Final != nil {
		qb = qb.Where(sq.Eq{"final_state": *f.Final})
	}
	if f.AssignedTo != nil {
		qb = qb.Where(sq.Eq{"assigned_to_entity_id": *f.AssignedTo})
	}
	if f.SourceID != nil {
		qb = qb.Where(sq.Eq{"source_id": *f.SourceID})
	}
	return qb
}

// List retrieves tasks with filters and pagination, oldest first, and the
// total number of matching tasks. Comments and relations are not loaded.
func (r *TaskRepository) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, int, error) {
	qb := applyFilters(psql.Select(taskColumns...).From("tasks"), filter).
		OrderBy("created_date ASC", "id ASC").
		Offset(uint64(max(filter.Offset, 0)))
	if filter.Limit > 0 {
		qb = qb.Limit(uint64(filter.Limit))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build List query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query tasks: %w", err)
	}

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, 0, err
	}

	countQuery, countArgs, err := applyFilters(psql.Select("COUNT(*)").From("tasks"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	return tasks, total, nil
}

// RelationsByEntity retrieves every relation pointing at entityID.
func (r *TaskRepository) RelationsByEntity(ctx context.Context, entityID string) ([]domain.Relation, error) {
	return r.relations.ByEntity(ctx, entityID)
}
