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

var commentColumns = []string{"id", "task_id", "text", "created_by", "created_date"}

// CommentRepository handles database operations for task comments.
// Comments are append-only.
type CommentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository creates a new CommentRepository.
func NewCommentRepository(pool *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{pool: pool}
}

// Create inserts a comment within the caller's transaction.
func (r *CommentRepository) Create(ctx context.Context, q querier, c *domain.Comment) error {
	query, args, err := psql.
		Insert("comments").
		Columns(commentColumns...).
		Values(c.ID, c.TaskID, c.Text, c.CreatedBy, c.CreatedDate).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// ByTask retrieves all comments of a task, oldest first.
func (r *CommentRepository) ByTask(ctx context.Context, taskID uuid.UUID) ([]domain.Comment, error) {
	return r.list(ctx, psql.
		Select(commentColumns...).
		From("comments").
		Where(sq.Eq{"task_id": taskID.String()}).
		OrderBy("created_date ASC", "id ASC"))
}

// CreatedIn retrieves comments created within period.
func (r *CommentRepository) CreatedIn(ctx context.Context, period domain.Period) ([]domain.Comment, error) {
	return r.list(ctx, psql.
		Select(commentColumns...).
		From("comments").
		Where(sq.GtOrEq{"created_date": period.From}).
		Where(sq.Lt{"created_date": period.To}).
		OrderBy("created_date ASC", "id ASC"))
}

func (r *CommentRepository) list(ctx context.Context, qb sq.SelectBuilder) ([]domain.Comment, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}

	comments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Comment, error) {
		var c domain.Comment
		err := row.Scan(&c.ID, &c.TaskID, &c.Text, &c.CreatedBy, &c.CreatedDate)
		c.CreatedDate = c.CreatedDate.UTC()
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan comments: %w", err)
	}
	return comments, nil
}
