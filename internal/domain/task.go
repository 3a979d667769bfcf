package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source identifies the system a task originates from.
type Source struct {
	ID   string
	Name string
}

// Assignment binds a task to the entity currently responsible for it.
type Assignment struct {
	AssignedToEntityID string
	Type               string
}

// Task is the aggregate root for a tracked business work-item.
// Fields are mutated only through the methods below; each returns the
// Change describing which columns must be persisted.
type Task struct {
	ID               uuid.UUID
	TaskType         string
	Callback         *string
	FourEyeSubjectID *string
	Subject          string
	Source           Source
	Status           string
	Data             *string
	Assignment       *Assignment // nil when unassigned
	Relations        []Relation
	Comments         []Comment
	FinalState       bool
	ChangedBy        string
	ChangedDate      time.Time
	CreatedBy        string
	CreatedDate      time.Time
	Version          int64
}

// NewTaskParams holds everything needed to create a task.
type NewTaskParams struct {
	ID               uuid.UUID
	TaskType         string
	Callback         *string
	FourEyeSubjectID *string
	Subject          string
	Source           Source
	Status           string
	Data             *string
	Assignment       *Assignment
	Comment          *NewComment
	Relations        []NewRelation
	CreatedBy        string
}

// NewComment describes a comment to append.
type NewComment struct {
	Text        string
	CreatedDate *time.Time // defaults to the mutation time
}

// NewRelation describes a relation to append.
type NewRelation struct {
	EntityID   string
	EntityType string
}

// NewTask builds a task in the Active state.
// A zero ID is replaced with a freshly generated one.
func NewTask(p NewTaskParams, at time.Time) *Task {
	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	task := &Task{
		ID:               id,
		TaskType:         p.TaskType,
		Callback:         p.Callback,
		FourEyeSubjectID: p.FourEyeSubjectID,
		Subject:          p.Subject,
		Source:           p.Source,
		Status:           p.Status,
		Data:             p.Data,
		Relations:        []Relation{},
		Comments:         []Comment{},
		CreatedBy:        p.CreatedBy,
		CreatedDate:      at,
		ChangedBy:        p.CreatedBy,
		ChangedDate:      at,
	}
	if p.Assignment != nil {
		a := *p.Assignment
		task.Assignment = &a
	}
	for _, r := range p.Relations {
		task.Relations = append(task.Relations, task.newRelation(r, at))
	}
	if p.Comment != nil {
		task.Comments = append(task.Comments, task.newComment(*p.Comment, p.CreatedBy, at))
	}

	return task
}

// IsAssigned reports whether the task currently has an assignee.
func (t *Task) IsAssigned() bool {
	return t.Assignment != nil
}

// RequiresFourEyeReview reports whether identity is barred from finalizing the task.
func (t *Task) RequiresFourEyeReview(identity string) bool {
	return t.FourEyeSubjectID != nil && *t.FourEyeSubjectID == identity
}

// ensureMutable rejects every mutation once the task is final.
func (t *Task) ensureMutable() error {
	if t.FinalState {
		return TaskFinalizedError(t.ID)
	}
	return nil
}

func (t *Task) stamp(by string, at time.Time) {
	t.ChangedBy = by
	t.ChangedDate = at
}

// AssignTo sets the assignment.
func (t *Task) AssignTo(a Assignment, by string, at time.Time) (Change, error) {
	if err := t.ensureMutable(); err != nil {
		return Change{}, err
	}
	t.Assignment = &a
	t.stamp(by, at)
	return Change{Fields: []Field{FieldAssignment}}, nil
}

// Unassign clears the assignment.
func (t *Task) Unassign(by string, at time.Time) (Change, error) {
	if err := t.ensureMutable(); err != nil {
		return Change{}, err
	}
	t.Assignment = nil
	t.stamp(by, at)
	return Change{Fields: []Field{FieldAssignment}}, nil
}

// UpdateData replaces the opaque data payload.
func (t *Task) UpdateData(data string, by string, at time.Time) (Change, error) {
	if err := t.ensureMutable(); err != nil {
		return Change{}, err
	}
	t.Data = &data
	t.stamp(by, at)
	return Change{Fields: []Field{FieldData}}, nil
}

// UpdateStatus sets the status and, when final is true, finalizes the task.
func (t *Task) UpdateStatus(status string, final bool, by string, at time.Time) (Change, error) {
	if err := t.ensureMutable(); err != nil {
		return Change{}, err
	}
	change := t.setStatus(status)
	if final {
		change = change.merge(t.finalize())
	}
	t.stamp(by, at)
	return change, nil
}

// TaskUpdate lists the optional fields a general update may carry.
type TaskUpdate struct {
	Data       *string
	Status     *string
	FinalState *bool
	Subject    *string
}

// Update applies a general update. Only the fields present are touched.
func (t *Task) Update(u TaskUpdate, by string, at time.Time) (Change, error) {
	if err := t.ensureMutable(); err != nil {
		return Change{}, err
	}

	var change Change
	if u.Data != nil {
		data := *u.Data
		t.Data = &data
		change.Fields = append(change.Fields, FieldData)
	}
	if u.Subject != nil {
		t.Subject = *u.Subject
		change.Fields = append(change.Fields, FieldSubject)
	}
	if u.Status != nil {
		change = change.merge(t.setStatus(*u.Status))
	}
	if u.FinalState != nil && *u.FinalState {
		change = change.merge(t.finalize())
	}
	t.stamp(by, at)
	return change, nil
}

// Finalize performs the one-way Active -> Final transition.
// Guards run in order: already final, then four-eye self-approval.
func (t *Task) Finalize(status string, fourEyeReview bool, by string, at time.Time) (Change, error) {
	if err := t.ensureMutable(); err != nil {
		return Change{}, err
	}
	if fourEyeReview && t.RequiresFourEyeReview(by) {
		return Change{}, fmt.Errorf("%w: %s may not finalize task %s", ErrFourEyeRequirementNotMet, by, t.ID)
	}

	change := t.setStatus(status).merge(t.finalize())
	t.stamp(by, at)
	return change, nil
}

// AddComment appends an immutable comment.
func (t *Task) AddComment(c NewComment, by string, at time.Time) (Change, error) {
	if err := t.ensureMutable(); err != nil {
		return Change{}, err
	}
	comment := t.newComment(c, by, at)
	t.Comments = append(t.Comments, comment)
	t.stamp(by, at)
	return Change{Comment: &comment}, nil
}

// Relate appends an immutable relation to an external entity.
func (t *Task) Relate(r NewRelation, by string, at time.Time) (Change, error) {
	if err := t.ensureMutable(); err != nil {
		return Change{}, err
	}
	relation := t.newRelation(r, at)
	t.Relations = append(t.Relations, relation)
	t.stamp(by, at)
	return Change{Relations: []Relation{relation}}, nil
}

// setStatus records a status change only when the value actually differs.
func (t *Task) setStatus(status string) Change {
	if t.Status == status {
		return Change{}
	}
	t.Status = status
	return Change{Fields: []Field{FieldStatus}}
}

// finalize flips FinalState and pins the write to the loaded version.
func (t *Task) finalize() Change {
	t.FinalState = true
	version := t.Version
	return Change{Fields: []Field{FieldFinalState}, ExpectedVersion: &version}
}

func (t *Task) newComment(c NewComment, by string, at time.Time) Comment {
	created := at
	if c.CreatedDate != nil {
		created = *c.CreatedDate
	}
	return Comment{
		ID:          uuid.New(),
		TaskID:      t.ID,
		Text:        c.Text,
		CreatedBy:   by,
		CreatedDate: created,
	}
}

func (t *Task) newRelation(r NewRelation, at time.Time) Relation {
	return Relation{
		ID:          uuid.New(),
		TaskID:      t.ID,
		EntityID:    r.EntityID,
		EntityType:  r.EntityType,
		CreatedDate: at,
	}
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	if t.Callback != nil {
		v := *t.Callback
		c.Callback = &v
	}
	if t.FourEyeSubjectID != nil {
		v := *t.FourEyeSubjectID
		c.FourEyeSubjectID = &v
	}
	if t.Data != nil {
		v := *t.Data
		c.Data = &v
	}
	if t.Assignment != nil {
		v := *t.Assignment
		c.Assignment = &v
	}
	c.Relations = append([]Relation{}, t.Relations...)
	c.Comments = append([]Comment{}, t.Comments...)
	return &c
}
