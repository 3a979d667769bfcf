package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GruborIvan/taskmanager/internal/domain"
)

var relationColumns = []string{"id", "task_id", "entity_id", "entity_type", "created_date"}

// RelationRepository handles database operations for task relations.
// Relations are append-only.
type RelationRepository struct {
	pool *pgxpool.Pool
}

// NewRelationRepository creates a new RelationRepository.
func NewRelationRepository(pool *pgxpool.Pool) *RelationRepository {
	return &RelationRepository{pool: pool}
}

// Create inserts relations within the caller's transaction.
func (r *RelationRepository) Create(ctx context.Context, q querier, relations []domain.Relation) error {
	if len(relations) == 0 {
		return nil
	}

	qb := psql.Insert("relations").Columns(relationColumns...)
	for _, rel := range relations {
		qb = qb.Values(rel.ID, rel.TaskID, rel.EntityID, rel.EntityType, rel.CreatedDate)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("create relations: %w", err)
	}
	return nil
}

// ByTask retrieves all relations of a task.
func (r *RelationRepository) ByTask(ctx context.Context, taskID uuid.UUID) ([]domain.Relation, error) {
	return r.list(ctx, psql.
		Select(relationColumns...).
		From("relations").
		Where(sq.Eq{"task_id": taskID.String()}).
		OrderBy("created_date ASC", "id ASC"))
}

// ByEntity retrieves all relations pointing at entityID.
func (r *RelationRepository) ByEntity(ctx context.Context, entityID string) ([]domain.Relation, error) {
	return r.list(ctx, psql.
		Select(relationColumns...).
		From("relations").
		Where(sq.Eq{"entity_id": entityID}).
		OrderBy("created_date ASC", "id ASC"))
}

// CreatedIn retrieves relations created within period.
func (r *RelationRepository) CreatedIn(ctx context.Context, period domain.Period) ([]domain.Relation, error) {
	return r.list(ctx, psql.
		Select(relationColumns...).
		From("relations").
		Where(sq.GtOrEq{"created_date": period.From}).
		Where(sq.Lt{"created_date": period.To}).
		OrderBy("created_date ASC", "id ASC"))
}

func (r *RelationRepository) list(ctx context.Context, qb sq.SelectBuilder) ([]domain.Relation, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query relations: %w", err)
	}

	relations, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Relation, error) {
		var rel domain.Relation
		err := row.Scan(&rel.ID, &rel.TaskID, &rel.EntityID, &rel.EntityType, &rel.CreatedDate)
		rel.CreatedDate = rel.CreatedDate.UTC()
		return rel, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan relations: %w", err)
	}
	return relations, nil
}
