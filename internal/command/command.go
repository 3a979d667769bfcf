// Package command defines the canonical commands handled by the service and
// the wire envelopes they arrive in. Every wire version of an operation is
// normalized into exactly one canonical command, so handlers never branch on
// wire version.
package command

import (
	"time"

	"github.com/google/uuid"

	"github.com/GruborIvan/taskmanager/internal/domain"
)

// Operation is the logical command name carried in the message type.
type Operation string

const (
	OpCreateTask       Operation = "CreateTask"
	OpAssignTask       Operation = "AssignTaskToEntity"
	OpUnassignTask     Operation = "UnassignTask"
	OpUpdateTask       Operation = "UpdateTask"
	OpUpdateTaskV2     Operation = "UpdateTaskV2"
	OpUpdateTaskData   Operation = "UpdateTaskData"
	OpUpdateTaskStatus Operation = "UpdateTaskStatus"
	OpFinalizeTask     Operation = "FinalizeTaskStatus"
	OpRelateTask       Operation = "RelateTaskToEntity"
	OpStoreComment     Operation = "StoreComment"
)

// Version is the wire version of a message.
type Version int

const (
	V1 Version = 1
	V2 Version = 2
	V3 Version = 3
)

// Metadata is the correlation data every canonical command carries.
// Legacy messages fill CorrelationID from the payload; current messages fill
// RequestID and CommandID from headers and reuse RequestID as correlation.
type Metadata struct {
	Version       Version
	CorrelationID string
	RequestID     string
	CommandID     string
	InitiatedBy   string
}

// Meta returns the command metadata.
func (m Metadata) Meta() Metadata {
	return m
}

// Command is implemented by every canonical command.
type Command interface {
	Operation() Operation
	Target() uuid.UUID
	Meta() Metadata
}

// CreateTask creates a task with optional initial comment and relations.
type CreateTask struct {
	Metadata
	TaskID           uuid.UUID // zero means generate
	TaskType         string
	Subject          string
	Callback         *string
	FourEyeSubjectID *string
	Source           domain.Source
	Status           string
	Data             *string
	Assignment       *domain.Assignment
	Comment          *domain.NewComment
	Relations        []domain.NewRelation
}

func (CreateTask) Operation() Operation { return OpCreateTask }
func (c CreateTask) Target() uuid.UUID  { return c.TaskID }

// AssignTask sets the task assignment.
type AssignTask struct {
	Metadata
	TaskID     uuid.UUID
	Assignment domain.Assignment
}

func (AssignTask) Operation() Operation { return OpAssignTask }
func (c AssignTask) Target() uuid.UUID  { return c.TaskID }

// UnassignTask clears the task assignment.
type UnassignTask struct {
	Metadata
	TaskID uuid.UUID
}

func (UnassignTask) Operation() Operation { return OpUnassignTask }
func (c UnassignTask) Target() uuid.UUID  { return c.TaskID }

// UpdateTask is the canonical form of both UpdateTask (data, status, final
// state) and UpdateTaskV2 (data, subject). Absent fields are left untouched.
type UpdateTask struct {
	Metadata
	TaskID     uuid.UUID
	Data       *string
	Status     *string
	FinalState *bool
	Subject    *string
}

func (UpdateTask) Operation() Operation { return OpUpdateTask }
func (c UpdateTask) Target() uuid.UUID  { return c.TaskID }

// UpdateTaskData replaces the data payload.
type UpdateTaskData struct {
	Metadata
	TaskID uuid.UUID
	Data   string
}

func (UpdateTaskData) Operation() Operation { return OpUpdateTaskData }
func (c UpdateTaskData) Target() uuid.UUID  { return c.TaskID }

// UpdateTaskStatus sets status and optionally finalizes.
type UpdateTaskStatus struct {
	Metadata
	TaskID     uuid.UUID
	Status     string
	FinalState bool
}

func (UpdateTaskStatus) Operation() Operation { return OpUpdateTaskStatus }
func (c UpdateTaskStatus) Target() uuid.UUID  { return c.TaskID }

// FinalizeTask transitions the task to its final state.
type FinalizeTask struct {
	Metadata
	TaskID        uuid.UUID
	Status        string
	FourEyeReview bool
}

func (FinalizeTask) Operation() Operation { return OpFinalizeTask }
func (c FinalizeTask) Target() uuid.UUID  { return c.TaskID }

// RelateTask appends a relation to an external entity.
type RelateTask struct {
	Metadata
	TaskID     uuid.UUID
	EntityID   string
	EntityType string
}

func (RelateTask) Operation() Operation { return OpRelateTask }
func (c RelateTask) Target() uuid.UUID  { return c.TaskID }

// StoreComment appends a comment.
type StoreComment struct {
	Metadata
	TaskID      uuid.UUID
	Text        string
	CreatedDate *time.Time
}

func (StoreComment) Operation() Operation { return OpStoreComment }
func (c StoreComment) Target() uuid.UUID  { return c.TaskID }
