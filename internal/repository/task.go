package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GruborIvan/taskmanager/internal/domain"
)

const uniqueViolation = "23505"

// taskColumns is the shared list of columns for task queries.
var taskColumns = []string{
	"id", "task_type", "callback", "four_eye_subject_id", "subject",
	"source_id", "source_name", "status", "data",
	"assigned_to_entity_id", "assignment_type", "final_state",
	"created_by", "created_date", "changed_by", "changed_date", "version",
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TaskRepository handles database operations for tasks.
type TaskRepository struct {
	pool      *pgxpool.Pool
	comments  *CommentRepository
	relations *RelationRepository
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{
		pool:      pool,
		comments:  NewCommentRepository(pool),
		relations: NewRelationRepository(pool),
	}
}

// scanTask scans a single row into a Task struct.
func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		task           domain.Task
		assignedTo     *string
		assignmentType *string
	)
	err := row.Scan(
		&task.ID,
		&task.TaskType,
		&task.Callback,
		&task.FourEyeSubjectID,
		&task.Subject,
		&task.Source.ID,
		&task.Source.Name,
		&task.Status,
		&task.Data,
		&assignedTo,
		&assignmentType,
		&task.FinalState,
		&task.CreatedBy,
		&task.CreatedDate,
		&task.ChangedBy,
		&task.ChangedDate,
		&task.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	if assignedTo != nil && assignmentType != nil {
		task.Assignment = &domain.Assignment{AssignedToEntityID: *assignedTo, Type: *assignmentType}
	}
	task.Comments = []domain.Comment{}
	task.Relations = []domain.Relation{}
	task.CreatedDate = task.CreatedDate.UTC()
	task.ChangedDate = task.ChangedDate.UTC()
	return &task, nil
}

// scanTasks scans multiple rows into a slice of Task structs.
func scanTasks(rows pgx.Rows) ([]*domain.Task, error) {
	defer rows.Close()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tasks, nil
}

func assignmentColumns(a *domain.Assignment) (*string, *string) {
	if a == nil {
		return nil, nil
	}
	return &a.AssignedToEntityID, &a.Type
}

// GetByID retrieves a task by ID together with its comments and relations.
func (r *TaskRepository) GetByID(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByID query for task %s: %w", taskID, err)
	}

	task, err := scanTask(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, domain.TaskNotFoundError(taskID)
		}
		return nil, err
	}

	if task.Comments, err = r.comments.ByTask(ctx, taskID); err != nil {
		return nil, err
	}
	if task.Relations, err = r.relations.ByTask(ctx, taskID); err != nil {
		return nil, err
	}
	return task, nil
}

// Create inserts a task with its initial comments and relations in one transaction.
// Returns ErrTaskAlreadyExists when the id is taken.
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	assignedTo, assignmentType := assignmentColumns(task.Assignment)

	query, args, err := psql.
		Insert("tasks").
		Columns(
			"id", "task_type", "callback", "four_eye_subject_id", "subject",
			"source_id", "source_name", "status", "data",
			"assigned_to_entity_id", "assignment_type", "final_state",
			"created_by", "created_date", "changed_by", "changed_date", "version",
		).
		Values(
			task.ID,
			task.TaskType,
			task.Callback,
			task.FourEyeSubjectID,
			task.Subject,
			task.Source.ID,
			task.Source.Name,
			task.Status,
			task.Data,
			assignedTo,
			assignmentType,
			task.FinalState,
			task.CreatedBy,
			task.CreatedDate,
			task.ChangedBy,
			task.ChangedDate,
			1,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Create query for task %s: %w", task.ID, err)
	}

	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return domain.TaskAlreadyExistsError(task.ID)
			}
			return fmt.Errorf("insert task: %w", err)
		}
		for i := range task.Comments {
			if err := r.comments.Create(ctx, tx, &task.Comments[i]); err != nil {
				return err
			}
		}
		if err := r.relations.Create(ctx, tx, task.Relations); err != nil {
			return err
		}
		task.Version = 1
		return nil
	})
}

// Save persists a field-scoped patch.
//
// The UPDATE touches only the columns named by change plus the audit columns
// and bumps version. It is conditional on final_state = false and, for
// finalization, on the version the change was computed against. When the
// condition fails the row is re-read to report why.
func (r *TaskRepository) Save(ctx context.Context, task *domain.Task, change domain.Change) error {
	qb := psql.
		Update("tasks").
		Set("changed_by", task.ChangedBy).
		Set("changed_date", task.ChangedDate).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": task.ID.String(), "final_state": false})

	for _, f := range change.Fields {
		switch f {
		case domain.FieldData:
			qb = qb.Set("data", task.Data)
		case domain.FieldStatus:
			qb = qb.Set("status", task.Status)
		case domain.FieldFinalState:
			qb = qb.Set("final_state", task.FinalState)
		case domain.FieldSubject:
			qb = qb.Set("subject", task.Subject)
		case domain.FieldAssignment:
			assignedTo, assignmentType := assignmentColumns(task.Assignment)
			qb = qb.Set("assigned_to_entity_id", assignedTo).Set("assignment_type", assignmentType)
		}
	}
	if change.ExpectedVersion != nil {
		qb = qb.Where(sq.Eq{"version": *change.ExpectedVersion})
	}

	query, args, err := qb.Suffix("RETURNING version").ToSql()
	if err != nil {
		return fmt.Errorf("build Save query for task %s: %w", task.ID, err)
	}

	return r.inTx(ctx, func(tx pgx.Tx) error {
		var version int64
		if err := tx.QueryRow(ctx, query, args...).Scan(&version); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return r.diagnose(ctx, tx, task.ID)
			}
			return fmt.Errorf("update task: %w", err)
		}

		if change.Comment != nil {
			if err := r.comments.Create(ctx, tx, change.Comment); err != nil {
				return err
			}
		}
		if err := r.relations.Create(ctx, tx, change.Relations); err != nil {
			return err
		}

		task.Version = version
		return nil
	})
}

// diagnose explains why a conditional update matched no row.
func (r *TaskRepository) diagnose(ctx context.Context, q querier, taskID uuid.UUID) error {
	query, args, err := psql.
		Select("final_state").
		From("tasks").
		Where(sq.Eq{"id": taskID.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build diagnose query for task %s: %w", taskID, err)
	}

	var final bool
	if err := q.QueryRow(ctx, query, args...).Scan(&final); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TaskNotFoundError(taskID)
		}
		return fmt.Errorf("diagnose task %s: %w", taskID, err)
	}
	if final {
		return domain.TaskFinalizedError(taskID)
	}
	return domain.ConcurrentModificationError(taskID)
}

// inTx runs fn in a transaction, committing when it returns nil.
func (r *TaskRepository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
