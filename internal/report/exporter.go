// Package report exports task activity for a date range to blob storage as
// newline-delimited JSON.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/GruborIvan/taskmanager/internal/domain"
)

// Object names written under the report prefix.
const (
	TasksObject     = "tasks.jsonl"
	CommentsObject  = "comments.jsonl"
	RelationsObject = "relations.jsonl"
)

// keyTime formats period bounds in object names.
const keyTime = "20060102T150405Z"

// Source yields the rows that fall inside a period.
type Source interface {
	TasksChangedIn(ctx context.Context, period domain.Period) ([]*domain.Task, error)
	CommentsCreatedIn(ctx context.Context, period domain.Period) ([]domain.Comment, error)
	RelationsCreatedIn(ctx context.Context, period domain.Period) ([]domain.Relation, error)
}

// Bucket opens objects for writing. Closing a writer commits the object.
type Bucket interface {
	NewWriter(ctx context.Context, name string) (io.WriteCloser, error)
}

// aborter is implemented by writers that can discard a partial object.
type aborter interface {
	Abort()
}

// Summary describes a finished export.
type Summary struct {
	Prefix    string
	Tasks     int
	Comments  int
	Relations int
}

// Exporter writes one snapshot per run.
type Exporter struct {
	source Source
	bucket Bucket
}

// NewExporter creates an Exporter.
func NewExporter(source Source, bucket Bucket) *Exporter {
	return &Exporter{source: source, bucket: bucket}
}

// Prefix returns the object prefix for period.
func Prefix(period domain.Period) string {
	return path.Join("reports", period.From.UTC().Format(keyTime)+"_"+period.To.UTC().Format(keyTime))
}

// Export writes tasks changed, comments created and relations created in
// period. Each object is committed only after all of its rows were encoded.
func (e *Exporter) Export(ctx context.Context, period domain.Period) (Summary, error) {
	if !period.From.Before(period.To) {
		return Summary{}, fmt.Errorf("%w: from %s must be before to %s",
			domain.ErrValidation, period.From.Format(time.RFC3339), period.To.Format(time.RFC3339))
	}

	summary := Summary{Prefix: Prefix(period)}

	tasks, err := e.source.TasksChangedIn(ctx, period)
	if err != nil {
		return summary, fmt.Errorf("load tasks: %w", err)
	}
	taskRows := make([]any, len(tasks))
	for i, t := range tasks {
		taskRows[i] = toTaskRecord(t)
	}
	if summary.Tasks, err = e.write(ctx, path.Join(summary.Prefix, TasksObject), taskRows); err != nil {
		return summary, err
	}

	comments, err := e.source.CommentsCreatedIn(ctx, period)
	if err != nil {
		return summary, fmt.Errorf("load comments: %w", err)
	}
	commentRows := make([]any, len(comments))
	for i, c := range comments {
		commentRows[i] = toCommentRecord(c)
	}
	if summary.Comments, err = e.write(ctx, path.Join(summary.Prefix, CommentsObject), commentRows); err != nil {
		return summary, err
	}

	relations, err := e.source.RelationsCreatedIn(ctx, period)
	if err != nil {
		return summary, fmt.Errorf("load relations: %w", err)
	}
	relationRows := make([]any, len(relations))
	for i, r := range relations {
		relationRows[i] = toRelationRecord(r)
	}
	if summary.Relations, err = e.write(ctx, path.Join(summary.Prefix, RelationsObject), relationRows); err != nil {
		return summary, err
	}

	slog.Info("report exported",
		"prefix", summary.Prefix,
		"tasks", summary.Tasks,
		"comments", summary.Comments,
		"relations", summary.Relations,
	)
	return summary, nil
}

func (e *Exporter) write(ctx context.Context, name string, rows []any) (int, error) {
	w, err := e.bucket.NewWriter(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", name, err)
	}

	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			if a, ok := w.(aborter); ok {
				a.Abort()
			}
			_ = w.Close()
			return 0, fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("commit %s: %w", name, err)
	}
	return len(rows), nil
}
