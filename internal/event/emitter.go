package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/GruborIvan/taskmanager/internal/command"
	"github.com/GruborIvan/taskmanager/internal/domain"
)

// Outcome is the result of a successfully handled command.
// Task is the state after the mutation; Change is the patch that produced it.
type Outcome struct {
	Operation command.Operation
	Meta      command.Metadata
	Task      *domain.Task
	Change    domain.Change
}

var primaryEvent = map[command.Operation]Name{
	command.OpCreateTask:       TaskCreated,
	command.OpAssignTask:       TaskAssigned,
	command.OpUnassignTask:     TaskUnassigned,
	command.OpUpdateTask:       TaskUpdated,
	command.OpUpdateTaskV2:     TaskUpdated,
	command.OpUpdateTaskData:   TaskDataUpdated,
	command.OpUpdateTaskStatus: TaskStatusUpdated,
	command.OpFinalizeTask:     TaskFinalized,
	command.OpRelateTask:       TaskRelatedToEntity,
	command.OpStoreComment:     CommentStored,
}

// Emit maps an outcome to the events it publishes, in publication order.
//
// Each event is emitted at the command's own wire version and, when that is
// older, again at the latest version. Events whose legacy shape cannot carry
// the outcome (relations to non-UUID entities) are emitted at the latest
// version only. An outcome that finalizes the task is followed by
// TaskFinalized and TaskStatusUpdated unless already the primary event.
func Emit(o Outcome) []Event {
	name, ok := primaryEvent[o.Operation]
	if !ok || o.Task == nil {
		return nil
	}

	names := []Name{name}
	if o.Change.Finalizes() {
		for _, n := range []Name{TaskFinalized, TaskStatusUpdated} {
			if n != name {
				names = append(names, n)
			}
		}
	}

	var events []Event
	for _, n := range names {
		for _, v := range versions(n, o) {
			events = append(events, newEvent(n, v, o))
		}
	}
	return events
}

// Failed builds the failure event for a command that was rejected or errored.
func Failed(op command.Operation, meta command.Metadata, taskID uuid.UUID, err error, at time.Time) Event {
	return Event{
		Name:          TaskCommandFailed,
		Version:       LatestVersion(TaskCommandFailed),
		Operation:     op,
		TaskID:        taskID,
		CorrelationID: meta.CorrelationID,
		RequestID:     meta.RequestID,
		CommandID:     meta.CommandID,
		OccurredAt:    at,
		Payload: FailedPayload{
			TaskID:  taskID,
			Message: err.Error(),
			Code:    domain.ErrorCode(err),
		},
	}
}

func versions(name Name, o Outcome) []int {
	latest := LatestVersion(name)
	own := min(max(int(o.Meta.Version), 1), latest)
	if own == latest || !legacyShapeFits(name, o) {
		return []int{latest}
	}
	return []int{own, latest}
}

// legacyShapeFits reports whether the v1 payload of name can represent the
// outcome without loss.
func legacyShapeFits(name Name, o Outcome) bool {
	var relations []domain.Relation
	switch name {
	case TaskCreated, TaskUpdated:
		relations = o.Task.Relations
	case TaskRelatedToEntity:
		relations = o.Change.Relations
	default:
		return true
	}
	for _, r := range relations {
		if !r.IsLegacyCompatible() {
			return false
		}
	}
	return true
}

func newEvent(name Name, version int, o Outcome) Event {
	return Event{
		Name:          name,
		Version:       version,
		Operation:     o.Operation,
		TaskID:        o.Task.ID,
		CorrelationID: o.Meta.CorrelationID,
		RequestID:     o.Meta.RequestID,
		CommandID:     o.Meta.CommandID,
		OccurredAt:    o.Task.ChangedDate,
		Payload:       payload(name, version, o),
	}
}

func payload(name Name, version int, o Outcome) any {
	t := o.Task
	switch name {
	case TaskCreated:
		switch version {
		case 1:
			return snapshotV1(t)
		case 2:
			return snapshotV2(t)
		default:
			return snapshotV3(t)
		}

	case TaskUpdated:
		if version == 1 {
			return snapshotV1(t)
		}
		return snapshotV2(t)

	case TaskAssigned, TaskUnassigned:
		if version == 1 {
			p := AssignmentChangedV1{TaskID: t.ID, ChangedBy: t.ChangedBy}
			if t.Assignment != nil {
				p.AssignedTo = t.Assignment.AssignedToEntityID
			}
			return p
		}
		return AssignmentChangedV2{
			TaskID:      t.ID,
			Assignment:  assignmentV2(t.Assignment),
			ChangedBy:   t.ChangedBy,
			ChangedDate: t.ChangedDate,
		}

	case TaskDataUpdated:
		if version == 1 {
			p := DataUpdatedV1{TaskID: t.ID, ChangedBy: t.ChangedBy}
			if t.Data != nil {
				p.Data = *t.Data
			}
			return p
		}
		return DataUpdatedV2{TaskID: t.ID, Data: rawData(t.Data), ChangedBy: t.ChangedBy, ChangedDate: t.ChangedDate}

	case TaskStatusUpdated, TaskFinalized:
		if version == 1 {
			return StatusV1{TaskID: t.ID, Status: t.Status, FinalState: t.FinalState}
		}
		return StatusV2{
			TaskID:      t.ID,
			Status:      t.Status,
			FinalState:  t.FinalState,
			ChangedBy:   t.ChangedBy,
			ChangedDate: t.ChangedDate,
		}

	case TaskRelatedToEntity:
		if len(o.Change.Relations) == 0 {
			return nil
		}
		r := o.Change.Relations[len(o.Change.Relations)-1]
		if version == 1 {
			return RelationV1{TaskID: t.ID, RelationID: r.ID, EntityID: legacyEntityID(r), EntityType: r.EntityType}
		}
		return relationV2(r)

	case CommentStored:
		if o.Change.Comment == nil {
			return nil
		}
		c := *o.Change.Comment
		if version == 1 {
			return CommentV1{TaskID: t.ID, CommentID: c.ID, Text: c.Text, CreatedBy: c.CreatedBy}
		}
		return commentV2(c)
	}
	return nil
}
