package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/GruborIvan/taskmanager/internal/domain"
)

// TaskSnapshotV1 is the legacy flat task payload. Relations are entity UUIDs.
type TaskSnapshotV1 struct {
	TaskID      uuid.UUID   `json:"taskId"`
	TaskType    string      `json:"taskType"`
	Subject     string      `json:"subject"`
	SourceID    string      `json:"sourceId"`
	SourceName  string      `json:"sourceName"`
	Status      string      `json:"status"`
	Data        *string     `json:"data,omitempty"`
	AssignedTo  string      `json:"assignedTo,omitempty"`
	FinalState  bool        `json:"finalState"`
	Relations   []uuid.UUID `json:"relations"`
	ChangedBy   string      `json:"changedBy"`
	ChangedDate time.Time   `json:"changedDate"`
}

// SourceV2 is the nested source of current task payloads.
type SourceV2 struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AssignmentV2 is the nested assignment of current payloads.
type AssignmentV2 struct {
	AssignedToEntityID string `json:"assignedToEntityId"`
	Type               string `json:"type"`
}

// RelationV2 is a relation with a free-form entity identifier.
type RelationV2 struct {
	TaskID      uuid.UUID `json:"taskId"`
	RelationID  uuid.UUID `json:"relationId"`
	EntityID    string    `json:"entityId"`
	EntityType  string    `json:"entityType"`
	CreatedDate time.Time `json:"createdDate"`
}

// TaskSnapshotV2 is the structured task payload.
type TaskSnapshotV2 struct {
	TaskID      uuid.UUID       `json:"taskId"`
	TaskType    string          `json:"taskType"`
	Subject     string          `json:"subject"`
	Source      SourceV2        `json:"source"`
	Status      string          `json:"status"`
	Data        json.RawMessage `json:"data,omitempty"`
	Callback    *string         `json:"callback,omitempty"`
	Assignment  *AssignmentV2   `json:"assignment"`
	FinalState  bool            `json:"finalState"`
	Relations   []RelationV2    `json:"relations"`
	CreatedBy   string          `json:"createdBy"`
	CreatedDate time.Time       `json:"createdDate"`
	ChangedBy   string          `json:"changedBy"`
	ChangedDate time.Time       `json:"changedDate"`
	Version     int64           `json:"version"`
}

// TaskSnapshotV3 adds the four-eye subject and comments.
type TaskSnapshotV3 struct {
	TaskSnapshotV2
	FourEyeSubjectID *string     `json:"fourEyeSubjectId,omitempty"`
	Comments         []CommentV2 `json:"comments"`
}

// AssignmentChangedV1 is the legacy (un)assignment payload.
type AssignmentChangedV1 struct {
	TaskID     uuid.UUID `json:"taskId"`
	AssignedTo string    `json:"assignedTo"`
	ChangedBy  string    `json:"changedBy"`
}

// AssignmentChangedV2 is the current (un)assignment payload; Assignment is nil when cleared.
type AssignmentChangedV2 struct {
	TaskID      uuid.UUID     `json:"taskId"`
	Assignment  *AssignmentV2 `json:"assignment"`
	ChangedBy   string        `json:"changedBy"`
	ChangedDate time.Time     `json:"changedDate"`
}

// DataUpdatedV1 carries the data as an encoded string.
type DataUpdatedV1 struct {
	TaskID    uuid.UUID `json:"taskId"`
	Data      string    `json:"data"`
	ChangedBy string    `json:"changedBy"`
}

// DataUpdatedV2 embeds the data as raw JSON.
type DataUpdatedV2 struct {
	TaskID      uuid.UUID       `json:"taskId"`
	Data        json.RawMessage `json:"data"`
	ChangedBy   string          `json:"changedBy"`
	ChangedDate time.Time       `json:"changedDate"`
}

// StatusV1 is the legacy status payload shared by status and finalize events.
type StatusV1 struct {
	TaskID     uuid.UUID `json:"taskId"`
	Status     string    `json:"status"`
	FinalState bool      `json:"finalState"`
}

// StatusV2 adds audit fields.
type StatusV2 struct {
	TaskID      uuid.UUID `json:"taskId"`
	Status      string    `json:"status"`
	FinalState  bool      `json:"finalState"`
	ChangedBy   string    `json:"changedBy"`
	ChangedDate time.Time `json:"changedDate"`
}

// RelationV1 is the legacy relation payload; entity ids must be UUIDs.
type RelationV1 struct {
	TaskID     uuid.UUID `json:"taskId"`
	RelationID uuid.UUID `json:"relationId"`
	EntityID   uuid.UUID `json:"entityId"`
	EntityType string    `json:"entityType"`
}

// CommentV1 is the legacy comment payload.
type CommentV1 struct {
	TaskID    uuid.UUID `json:"taskId"`
	CommentID uuid.UUID `json:"commentId"`
	Text      string    `json:"text"`
	CreatedBy string    `json:"createdBy"`
}

// CommentV2 adds the creation date.
type CommentV2 struct {
	TaskID      uuid.UUID `json:"taskId"`
	CommentID   uuid.UUID `json:"commentId"`
	Text        string    `json:"text"`
	CreatedBy   string    `json:"createdBy"`
	CreatedDate time.Time `json:"createdDate"`
}

func legacyEntityID(r domain.Relation) uuid.UUID {
	id, err := uuid.Parse(r.EntityID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func rawData(data *string) json.RawMessage {
	if data == nil || *data == "" {
		return nil
	}
	return json.RawMessage(*data)
}

func assignmentV2(a *domain.Assignment) *AssignmentV2 {
	if a == nil {
		return nil
	}
	return &AssignmentV2{AssignedToEntityID: a.AssignedToEntityID, Type: a.Type}
}

func snapshotV1(t *domain.Task) TaskSnapshotV1 {
	p := TaskSnapshotV1{
		TaskID:      t.ID,
		TaskType:    t.TaskType,
		Subject:     t.Subject,
		SourceID:    t.Source.ID,
		SourceName:  t.Source.Name,
		Status:      t.Status,
		Data:        t.Data,
		FinalState:  t.FinalState,
		Relations:   make([]uuid.UUID, 0, len(t.Relations)),
		ChangedBy:   t.ChangedBy,
		ChangedDate: t.ChangedDate,
	}
	if t.Assignment != nil {
		p.AssignedTo = t.Assignment.AssignedToEntityID
	}
	for _, r := range t.Relations {
		p.Relations = append(p.Relations, legacyEntityID(r))
	}
	return p
}

func snapshotV2(t *domain.Task) TaskSnapshotV2 {
	p := TaskSnapshotV2{
		TaskID:      t.ID,
		TaskType:    t.TaskType,
		Subject:     t.Subject,
		Source:      SourceV2{ID: t.Source.ID, Name: t.Source.Name},
		Status:      t.Status,
		Data:        rawData(t.Data),
		Callback:    t.Callback,
		Assignment:  assignmentV2(t.Assignment),
		FinalState:  t.FinalState,
		Relations:   make([]RelationV2, 0, len(t.Relations)),
		CreatedBy:   t.CreatedBy,
		CreatedDate: t.CreatedDate,
		ChangedBy:   t.ChangedBy,
		ChangedDate: t.ChangedDate,
		Version:     t.Version,
	}
	for _, r := range t.Relations {
		p.Relations = append(p.Relations, relationV2(r))
	}
	return p
}

func snapshotV3(t *domain.Task) TaskSnapshotV3 {
	p := TaskSnapshotV3{
		TaskSnapshotV2:   snapshotV2(t),
		FourEyeSubjectID: t.FourEyeSubjectID,
		Comments:         make([]CommentV2, 0, len(t.Comments)),
	}
	for _, c := range t.Comments {
		p.Comments = append(p.Comments, commentV2(c))
	}
	return p
}

func relationV2(r domain.Relation) RelationV2 {
	return RelationV2{
		TaskID:      r.TaskID,
		RelationID:  r.ID,
		EntityID:    r.EntityID,
		EntityType:  r.EntityType,
		CreatedDate: r.CreatedDate,
	}
}

func commentV2(c domain.Comment) CommentV2 {
	return CommentV2{
		TaskID:      c.TaskID,
		CommentID:   c.ID,
		Text:        c.Text,
		CreatedBy:   c.CreatedBy,
		CreatedDate: c.CreatedDate,
	}
}
