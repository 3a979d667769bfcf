package event_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GruborIvan/taskmanager/internal/command"
	"github.com/GruborIvan/taskmanager/internal/domain"
	"github.com/GruborIvan/taskmanager/internal/event"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTask(relations ...domain.NewRelation) *domain.Task {
	data := `{"amount":10}`
	return domain.NewTask(domain.NewTaskParams{
		TaskType:  "Approval",
		Subject:   "Invoice 42",
		Source:    domain.Source{ID: "erp", Name: "ERP"},
		Status:    "Open",
		Data:      &data,
		Relations: relations,
		CreatedBy: "alice",
	}, now)
}

func types(events []event.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type())
	}
	return out
}

func TestEmit_DualEmissionForLegacyCommand(t *testing.T) {
	task := newTask()
	change, err := task.AssignTo(domain.Assignment{AssignedToEntityID: "bob", Type: "User"}, "alice", now)
	require.NoError(t, err)

	events := event.Emit(event.Outcome{
		Operation: command.OpAssignTask,
		Meta:      command.Metadata{Version: command.V1, CorrelationID: "corr-1"},
		Task:      task,
		Change:    change,
	})

	assert.Equal(t, []string{"TaskAssigned.v1", "TaskAssigned.v2"}, types(events))
	for _, e := range events {
		assert.Equal(t, "corr-1", e.CorrelationID)
		assert.Equal(t, task.ID, e.TaskID)
		assert.Equal(t, now, e.OccurredAt)
	}

	legacy, ok := events[0].Payload.(event.AssignmentChangedV1)
	require.True(t, ok)
	assert.Equal(t, "bob", legacy.AssignedTo)
}

func TestEmit_CurrentCommandEmitsLatestOnly(t *testing.T) {
	task := newTask()
	change, err := task.UpdateData(`{"a":1}`, "alice", now)
	require.NoError(t, err)

	events := event.Emit(event.Outcome{
		Operation: command.OpUpdateTaskData,
		Meta:      command.Metadata{Version: command.V2, RequestID: "req", CommandID: "cmd"},
		Task:      task,
		Change:    change,
	})

	require.Len(t, events, 1)
	assert.Equal(t, "TaskDataUpdated.v2", events[0].Type())
	assert.Equal(t, "cmd", events[0].CommandID)

	p, ok := events[0].Payload.(event.DataUpdatedV2)
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(p.Data))
}

func TestEmit_CreateVersions(t *testing.T) {
	tests := []struct {
		name    string
		version command.Version
		want    []string
	}{
		{"v1", command.V1, []string{"TaskCreated.v1", "TaskCreated.v3"}},
		{"v2", command.V2, []string{"TaskCreated.v2", "TaskCreated.v3"}},
		{"v3", command.V3, []string{"TaskCreated.v3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := newTask(domain.NewRelation{EntityID: uuid.NewString(), EntityType: "Invoice"})
			events := event.Emit(event.Outcome{
				Operation: command.OpCreateTask,
				Meta:      command.Metadata{Version: tt.version},
				Task:      task,
				Change:    domain.Change{Relations: task.Relations},
			})
			assert.Equal(t, tt.want, types(events))
		})
	}
}

func TestEmit_NonUUIDRelationSuppressesLegacyShape(t *testing.T) {
	task := newTask()
	change, err := task.Relate(domain.NewRelation{EntityID: "INV-2024-001", EntityType: "Invoice"}, "alice", now)
	require.NoError(t, err)

	events := event.Emit(event.Outcome{
		Operation: command.OpRelateTask,
		Meta:      command.Metadata{Version: command.V1, CorrelationID: "c"},
		Task:      task,
		Change:    change,
	})

	require.Len(t, events, 1)
	assert.Equal(t, "TaskRelatedToEntity.v2", events[0].Type())

	want := event.RelationV2{
		TaskID:      task.ID,
		RelationID:  change.Relations[0].ID,
		EntityID:    "INV-2024-001",
		EntityType:  "Invoice",
		CreatedDate: now,
	}
	if diff := cmp.Diff(want, events[0].Payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestEmit_UUIDRelationKeepsLegacyShape(t *testing.T) {
	entity := uuid.New()
	task := newTask()
	change, err := task.Relate(domain.NewRelation{EntityID: entity.String(), EntityType: "Invoice"}, "alice", now)
	require.NoError(t, err)

	events := event.Emit(event.Outcome{
		Operation: command.OpRelateTask,
		Meta:      command.Metadata{Version: command.V1},
		Task:      task,
		Change:    change,
	})

	require.Equal(t, []string{"TaskRelatedToEntity.v1", "TaskRelatedToEntity.v2"}, types(events))
	legacy, ok := events[0].Payload.(event.RelationV1)
	require.True(t, ok)
	assert.Equal(t, entity, legacy.EntityID)
}

func TestEmit_LegacySnapshotGateUsesAllTaskRelations(t *testing.T) {
	task := newTask(domain.NewRelation{EntityID: "case-7", EntityType: "Case"})
	status := "Review"
	change, err := task.Update(domain.TaskUpdate{Status: &status}, "alice", now)
	require.NoError(t, err)

	events := event.Emit(event.Outcome{
		Operation: command.OpUpdateTask,
		Meta:      command.Metadata{Version: command.V1},
		Task:      task,
		Change:    change,
	})

	assert.Equal(t, []string{"TaskUpdated.v2"}, types(events))
}

func TestEmit_FinalizeEmitsStatusSuccessor(t *testing.T) {
	task := newTask()
	change, err := task.Finalize("Done", false, "alice", now)
	require.NoError(t, err)

	events := event.Emit(event.Outcome{
		Operation: command.OpFinalizeTask,
		Meta:      command.Metadata{Version: command.V2},
		Task:      task,
		Change:    change,
	})

	assert.Equal(t, []string{"TaskFinalized.v2", "TaskStatusUpdated.v2"}, types(events))
}

func TestEmit_StatusUpdateWithFinalStateEmitsFinalized(t *testing.T) {
	task := newTask()
	change, err := task.UpdateStatus("Done", true, "alice", now)
	require.NoError(t, err)

	events := event.Emit(event.Outcome{
		Operation: command.OpUpdateTaskStatus,
		Meta:      command.Metadata{Version: command.V1},
		Task:      task,
		Change:    change,
	})

	assert.Equal(t, []string{
		"TaskStatusUpdated.v1", "TaskStatusUpdated.v2",
		"TaskFinalized.v1", "TaskFinalized.v2",
	}, types(events))

	p, ok := events[3].Payload.(event.StatusV2)
	require.True(t, ok)
	assert.True(t, p.FinalState)
	assert.Equal(t, "Done", p.Status)
}

func TestEmit_UpdateWithFinalStateEmitsBothSuccessors(t *testing.T) {
	task := newTask()
	final := true
	change, err := task.Update(domain.TaskUpdate{FinalState: &final}, "alice", now)
	require.NoError(t, err)

	events := event.Emit(event.Outcome{
		Operation: command.OpUpdateTask,
		Meta:      command.Metadata{Version: command.V2},
		Task:      task,
		Change:    change,
	})

	assert.Equal(t, []string{"TaskUpdated.v2", "TaskFinalized.v2", "TaskStatusUpdated.v2"}, types(events))
}

func TestEmit_CommentStored(t *testing.T) {
	task := newTask()
	change, err := task.AddComment(domain.NewComment{Text: "looks good"}, "bob", now)
	require.NoError(t, err)

	events := event.Emit(event.Outcome{
		Operation: command.OpStoreComment,
		Meta:      command.Metadata{Version: command.V1},
		Task:      task,
		Change:    change,
	})

	require.Equal(t, []string{"CommentStored.v1", "CommentStored.v2"}, types(events))
	want := event.CommentV1{TaskID: task.ID, CommentID: change.Comment.ID, Text: "looks good", CreatedBy: "bob"}
	if diff := cmp.Diff(want, events[0].Payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestEmit_IsDeterministic(t *testing.T) {
	task := newTask()
	change, err := task.UpdateStatus("Done", true, "alice", now)
	require.NoError(t, err)
	o := event.Outcome{Operation: command.OpUpdateTaskStatus, Meta: command.Metadata{Version: command.V1}, Task: task, Change: change}

	if diff := cmp.Diff(event.Emit(o), event.Emit(o)); diff != "" {
		t.Errorf("emission not deterministic:\n%s", diff)
	}
}

func TestFailed(t *testing.T) {
	id := uuid.New()
	meta := command.Metadata{Version: command.V2, RequestID: "req", CommandID: "cmd", CorrelationID: "req"}

	e := event.Failed(command.OpFinalizeTask, meta, id, domain.TaskFinalizedError(id), now)

	assert.Equal(t, "TaskCommandFailed.v1", e.Type())
	assert.Equal(t, command.OpFinalizeTask, e.Operation)
	assert.Equal(t, "cmd", e.CommandID)

	p, ok := e.Payload.(event.FailedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.CodeTaskFinalized, p.Code)
	assert.Contains(t, p.Message, "finalized and cannot be modified")
}

func TestFailed_InternalErrorCode(t *testing.T) {
	e := event.Failed(command.OpCreateTask, command.Metadata{}, uuid.Nil, errors.New("boom"), now)

	p := e.Payload.(event.FailedPayload)
	assert.Equal(t, domain.CodeInternal, p.Code)
	assert.Equal(t, "boom", p.Message)
}
