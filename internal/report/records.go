package report

import (
	"time"

	"github.com/GruborIvan/taskmanager/internal/domain"
)

type taskRecord struct {
	ID                 string    `json:"id"`
	TaskType           string    `json:"taskType"`
	Subject            string    `json:"subject"`
	SourceID           string    `json:"sourceId"`
	SourceName         string    `json:"sourceName"`
	Status             string    `json:"status"`
	FinalState         bool      `json:"finalState"`
	Callback           *string   `json:"callback,omitempty"`
	FourEyeSubjectID   *string   `json:"fourEyeSubjectId,omitempty"`
	AssignedToEntityID *string   `json:"assignedToEntityId,omitempty"`
	AssignmentType     *string   `json:"assignmentType,omitempty"`
	Data               *string   `json:"data,omitempty"`
	Version            int64     `json:"version"`
	CreatedBy          string    `json:"createdBy"`
	CreatedDate        time.Time `json:"createdDate"`
	ChangedBy          string    `json:"changedBy"`
	ChangedDate        time.Time `json:"changedDate"`
}

type commentRecord struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"taskId"`
	Text        string    `json:"text"`
	CreatedBy   string    `json:"createdBy"`
	CreatedDate time.Time `json:"createdDate"`
}

type relationRecord struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"taskId"`
	EntityID    string    `json:"entityId"`
	EntityType  string    `json:"entityType"`
	CreatedDate time.Time `json:"createdDate"`
}

func toTaskRecord(t *domain.Task) taskRecord {
	rec := taskRecord{
		ID:               t.ID.String(),
		TaskType:         t.TaskType,
		Subject:          t.Subject,
		SourceID:         t.Source.ID,
		SourceName:       t.Source.Name,
		Status:           t.Status,
		FinalState:       t.FinalState,
		Callback:         t.Callback,
		FourEyeSubjectID: t.FourEyeSubjectID,
		Data:             t.Data,
		Version:          t.Version,
		CreatedBy:        t.CreatedBy,
		CreatedDate:      t.CreatedDate.UTC(),
		ChangedBy:        t.ChangedBy,
		ChangedDate:      t.ChangedDate.UTC(),
	}
	if t.Assignment != nil {
		rec.AssignedToEntityID = &t.Assignment.AssignedToEntityID
		rec.AssignmentType = &t.Assignment.Type
	}
	return rec
}

func toCommentRecord(c domain.Comment) commentRecord {
	return commentRecord{
		ID:          c.ID.String(),
		TaskID:      c.TaskID.String(),
		Text:        c.Text,
		CreatedBy:   c.CreatedBy,
		CreatedDate: c.CreatedDate.UTC(),
	}
}

func toRelationRecord(r domain.Relation) relationRecord {
	return relationRecord{
		ID:          r.ID.String(),
		TaskID:      r.TaskID.String(),
		EntityID:    r.EntityID,
		EntityType:  r.EntityType,
		CreatedDate: r.CreatedDate.UTC(),
	}
}
