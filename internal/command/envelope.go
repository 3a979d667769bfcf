package command

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GruborIvan/taskmanager/internal/domain"
)

// Envelope is one wire variant of a command. Each variant adapts itself into
// the canonical command; the set of variants is closed to this package.
type Envelope interface {
	metadata(h Headers) (Metadata, error)
	normalize(meta Metadata) Command
}

// legacyEnvelope carries correlation and initiator inside the payload (v1).
type legacyEnvelope struct {
	CorrelationID string `json:"correlationId"`
	InitiatedBy   string `json:"initiatedBy"`
}

func (e legacyEnvelope) metadata(Headers) (Metadata, error) {
	if strings.TrimSpace(e.CorrelationID) == "" {
		return Metadata{}, domain.NewValidationError("CorrelationId", "Missing correlationId in payload")
	}
	return Metadata{CorrelationID: e.CorrelationID, InitiatedBy: e.InitiatedBy}, nil
}

// currentEnvelope relies on request and command id headers (v2 and later).
type currentEnvelope struct {
	InitiatedBy string `json:"initiatedBy"`
}

func (e currentEnvelope) metadata(h Headers) (Metadata, error) {
	if err := RequireHeaders(h); err != nil {
		return Metadata{}, err
	}
	requestID, _ := h.Get(HeaderRequestID)
	commandID, _ := h.Get(HeaderCommandID)
	return Metadata{
		CorrelationID: requestID,
		RequestID:     requestID,
		CommandID:     commandID,
		InitiatedBy:   e.InitiatedBy,
	}, nil
}

type taskFields struct {
	TaskID           uuid.UUID `json:"taskId"`
	TaskType         string    `json:"taskType"`
	Subject          string    `json:"subject"`
	Callback         *string   `json:"callback"`
	FourEyeSubjectID *string   `json:"fourEyeSubjectId"`
	SourceID         string    `json:"sourceId"`
	SourceName       string    `json:"sourceName"`
	Status           string    `json:"status"`
	Data             *string   `json:"data"`
}

func (f taskFields) command(meta Metadata) CreateTask {
	return CreateTask{
		Metadata:         meta,
		TaskID:           f.TaskID,
		TaskType:         f.TaskType,
		Subject:          f.Subject,
		Callback:         f.Callback,
		FourEyeSubjectID: f.FourEyeSubjectID,
		Source:           domain.Source{ID: f.SourceID, Name: f.SourceName},
		Status:           f.Status,
		Data:             f.Data,
	}
}

type relationFields struct {
	EntityID   string `json:"entityId"`
	EntityType string `json:"entityType"`
}

func newRelations(in []relationFields) []domain.NewRelation {
	out := make([]domain.NewRelation, 0, len(in))
	for _, r := range in {
		out = append(out, domain.NewRelation{EntityID: r.EntityID, EntityType: r.EntityType})
	}
	return out
}

type commentFields struct {
	Text        string     `json:"text"`
	CreatedDate *time.Time `json:"createdDate"`
}

type assignmentFields struct {
	AssignedToEntityID string `json:"assignedToEntityId"`
	AssignmentType     string `json:"assignmentType"`
}

// CreateTaskV1 is the legacy create payload.
type CreateTaskV1 struct {
	legacyEnvelope
	taskFields
	Relations []relationFields `json:"relations"`
}

func (e CreateTaskV1) normalize(meta Metadata) Command {
	c := e.command(meta)
	c.Relations = newRelations(e.Relations)
	return c
}

// CreateTaskV2 moves correlation into headers.
type CreateTaskV2 struct {
	currentEnvelope
	taskFields
	Relations []relationFields `json:"relations"`
}

func (e CreateTaskV2) normalize(meta Metadata) Command {
	c := e.command(meta)
	c.Relations = newRelations(e.Relations)
	return c
}

// CreateTaskV3 adds an initial comment and assignment.
type CreateTaskV3 struct {
	currentEnvelope
	taskFields
	Relations  []relationFields  `json:"relations"`
	Comment    *commentFields    `json:"comment"`
	Assignment *assignmentFields `json:"assignment"`
}

func (e CreateTaskV3) normalize(meta Metadata) Command {
	c := e.command(meta)
	c.Relations = newRelations(e.Relations)
	if e.Comment != nil {
		c.Comment = &domain.NewComment{Text: e.Comment.Text, CreatedDate: e.Comment.CreatedDate}
	}
	if e.Assignment != nil {
		c.Assignment = &domain.Assignment{
			AssignedToEntityID: e.Assignment.AssignedToEntityID,
			Type:               e.Assignment.AssignmentType,
		}
	}
	return c
}

type assignFields struct {
	TaskID uuid.UUID `json:"taskId"`
	assignmentFields
}

func (f assignFields) command(meta Metadata) Command {
	return AssignTask{
		Metadata: meta,
		TaskID:   f.TaskID,
		Assignment: domain.Assignment{
			AssignedToEntityID: f.AssignedToEntityID,
			Type:               f.AssignmentType,
		},
	}
}

// AssignTaskToEntityV1 is the legacy assignment payload.
type AssignTaskToEntityV1 struct {
	legacyEnvelope
	assignFields
}

func (e AssignTaskToEntityV1) normalize(meta Metadata) Command { return e.command(meta) }

// AssignTaskToEntityV2 is the current assignment payload.
type AssignTaskToEntityV2 struct {
	currentEnvelope
	assignFields
}

func (e AssignTaskToEntityV2) normalize(meta Metadata) Command { return e.command(meta) }

type targetFields struct {
	TaskID uuid.UUID `json:"taskId"`
}

// UnassignTaskV1 is the legacy unassign payload.
type UnassignTaskV1 struct {
	legacyEnvelope
	targetFields
}

func (e UnassignTaskV1) normalize(meta Metadata) Command {
	return UnassignTask{Metadata: meta, TaskID: e.TaskID}
}

// UnassignTaskV2 is the current unassign payload.
type UnassignTaskV2 struct {
	currentEnvelope
	targetFields
}

func (e UnassignTaskV2) normalize(meta Metadata) Command {
	return UnassignTask{Metadata: meta, TaskID: e.TaskID}
}

// UpdateTaskV1 updates data, status and final state.
type UpdateTaskV1 struct {
	legacyEnvelope
	targetFields
	Data       *string `json:"data"`
	Status     *string `json:"status"`
	FinalState *bool   `json:"finalState"`
}

func (e UpdateTaskV1) normalize(meta Metadata) Command {
	return UpdateTask{Metadata: meta, TaskID: e.TaskID, Data: e.Data, Status: e.Status, FinalState: e.FinalState}
}

// UpdateTaskV2 updates data and subject.
type UpdateTaskV2 struct {
	currentEnvelope
	targetFields
	Data    *string `json:"data"`
	Subject *string `json:"subject"`
}

func (e UpdateTaskV2) normalize(meta Metadata) Command {
	return UpdateTask{Metadata: meta, TaskID: e.TaskID, Data: e.Data, Subject: e.Subject}
}

type dataFields struct {
	TaskID uuid.UUID `json:"taskId"`
	Data   string    `json:"data"`
}

// UpdateTaskDataV1 is the legacy data update payload.
type UpdateTaskDataV1 struct {
	legacyEnvelope
	dataFields
}

func (e UpdateTaskDataV1) normalize(meta Metadata) Command {
	return UpdateTaskData{Metadata: meta, TaskID: e.TaskID, Data: e.Data}
}

// UpdateTaskDataV2 is the current data update payload.
type UpdateTaskDataV2 struct {
	currentEnvelope
	dataFields
}

func (e UpdateTaskDataV2) normalize(meta Metadata) Command {
	return UpdateTaskData{Metadata: meta, TaskID: e.TaskID, Data: e.Data}
}

type statusFields struct {
	TaskID     uuid.UUID `json:"taskId"`
	Status     string    `json:"status"`
	FinalState bool      `json:"finalState"`
}

// UpdateTaskStatusV1 is the legacy status update payload.
type UpdateTaskStatusV1 struct {
	legacyEnvelope
	statusFields
}

func (e UpdateTaskStatusV1) normalize(meta Metadata) Command {
	return UpdateTaskStatus{Metadata: meta, TaskID: e.TaskID, Status: e.Status, FinalState: e.FinalState}
}

// UpdateTaskStatusV2 is the current status update payload.
type UpdateTaskStatusV2 struct {
	currentEnvelope
	statusFields
}

func (e UpdateTaskStatusV2) normalize(meta Metadata) Command {
	return UpdateTaskStatus{Metadata: meta, TaskID: e.TaskID, Status: e.Status, FinalState: e.FinalState}
}

type finalizeFields struct {
	TaskID        uuid.UUID `json:"taskId"`
	Status        string    `json:"status"`
	FourEyeReview bool      `json:"fourEyeReview"`
}

func (f finalizeFields) command(meta Metadata) Command {
	return FinalizeTask{Metadata: meta, TaskID: f.TaskID, Status: f.Status, FourEyeReview: f.FourEyeReview}
}

// FinalizeTaskStatusV1 is the legacy finalize payload.
type FinalizeTaskStatusV1 struct {
	legacyEnvelope
	finalizeFields
}

func (e FinalizeTaskStatusV1) normalize(meta Metadata) Command { return e.command(meta) }

// FinalizeTaskStatusV2 is the current finalize payload.
type FinalizeTaskStatusV2 struct {
	currentEnvelope
	finalizeFields
}

func (e FinalizeTaskStatusV2) normalize(meta Metadata) Command { return e.command(meta) }

type relateFields struct {
	TaskID uuid.UUID `json:"taskId"`
	relationFields
}

func (f relateFields) command(meta Metadata) Command {
	return RelateTask{Metadata: meta, TaskID: f.TaskID, EntityID: f.EntityID, EntityType: f.EntityType}
}

// RelateTaskToEntityV1 is the legacy relate payload.
type RelateTaskToEntityV1 struct {
	legacyEnvelope
	relateFields
}

func (e RelateTaskToEntityV1) normalize(meta Metadata) Command { return e.command(meta) }

// RelateTaskToEntityV2 is the current relate payload.
type RelateTaskToEntityV2 struct {
	currentEnvelope
	relateFields
}

func (e RelateTaskToEntityV2) normalize(meta Metadata) Command { return e.command(meta) }

type storeCommentFields struct {
	TaskID uuid.UUID `json:"taskId"`
	commentFields
}

func (f storeCommentFields) command(meta Metadata) Command {
	return StoreComment{Metadata: meta, TaskID: f.TaskID, Text: f.Text, CreatedDate: f.CreatedDate}
}

// StoreCommentV1 is the legacy comment payload.
type StoreCommentV1 struct {
	legacyEnvelope
	storeCommentFields
}

func (e StoreCommentV1) normalize(meta Metadata) Command { return e.command(meta) }

// StoreCommentV2 is the current comment payload.
type StoreCommentV2 struct {
	currentEnvelope
	storeCommentFields
}

func (e StoreCommentV2) normalize(meta Metadata) Command { return e.command(meta) }
