package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GruborIvan/taskmanager/internal/command"
	"github.com/GruborIvan/taskmanager/internal/domain"
	"github.com/GruborIvan/taskmanager/internal/service"
)

var validatorNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func newValidator() *service.Validator {
	return service.NewValidator(func() time.Time { return validatorNow })
}

func strPtr(s string) *string { return &s }

func validCreate() command.CreateTask {
	return command.CreateTask{
		Metadata: command.Metadata{InitiatedBy: "alice"},
		TaskType: "Approval",
		Source:   domain.Source{ID: "erp"},
		Status:   "Open",
	}
}

func TestValidateCreate(t *testing.T) {
	future := validatorNow.Add(service.CommentFutureTolerance + time.Minute)
	withinTolerance := validatorNow.Add(time.Hour)

	tests := []struct {
		name    string
		mutate  func(*command.CreateTask)
		message string
	}{
		{name: "valid", mutate: func(*command.CreateTask) {}},
		{
			name:    "missing initiator",
			mutate:  func(c *command.CreateTask) { c.InitiatedBy = " " },
			message: "InitiatedBy is required",
		},
		{
			name:    "missing source",
			mutate:  func(c *command.CreateTask) { c.Source.ID = "" },
			message: "SourceId is required",
		},
		{
			name:    "missing task type",
			mutate:  func(c *command.CreateTask) { c.TaskType = "" },
			message: "TaskType is required",
		},
		{
			name:    "first violation wins",
			mutate:  func(c *command.CreateTask) { c.TaskType = ""; c.Status = "" },
			message: "TaskType is required",
		},
		{
			name:    "relative callback",
			mutate:  func(c *command.CreateTask) { c.Callback = strPtr("/hooks") },
			message: `Callback "/hooks" is not an absolute http or https URI`,
		},
		{
			name:    "non http callback",
			mutate:  func(c *command.CreateTask) { c.Callback = strPtr("ftp://example.com/x") },
			message: `Callback "ftp://example.com/x" is not an absolute http or https URI`,
		},
		{
			name:   "https callback",
			mutate: func(c *command.CreateTask) { c.Callback = strPtr("https://example.com/x") },
		},
		{
			name:    "scalar data",
			mutate:  func(c *command.CreateTask) { c.Data = strPtr(`"text"`) },
			message: "Data not in JSON format",
		},
		{
			name:   "array data",
			mutate: func(c *command.CreateTask) { c.Data = strPtr(` [1,2] `) },
		},
		{
			name:    "incomplete assignment",
			mutate:  func(c *command.CreateTask) { c.Assignment = &domain.Assignment{AssignedToEntityID: "bob"} },
			message: "AssignmentType is required",
		},
		{
			name: "relation without type",
			mutate: func(c *command.CreateTask) {
				c.Relations = []domain.NewRelation{{EntityID: "E"}}
			},
			message: "EntityType is required",
		},
		{
			name:    "blank comment",
			mutate:  func(c *command.CreateTask) { c.Comment = &domain.NewComment{} },
			message: "Text is required",
		},
		{
			name: "comment too far ahead",
			mutate: func(c *command.CreateTask) {
				c.Comment = &domain.NewComment{Text: "x", CreatedDate: &future}
			},
			message: "CreatedDate must not be in the future",
		},
		{
			name: "comment within tolerance",
			mutate: func(c *command.CreateTask) {
				c.Comment = &domain.NewComment{Text: "x", CreatedDate: &withinTolerance}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCreate()
			tt.mutate(&c)

			err := newValidator().ValidateCreate(c)
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestValidateTargetedCommands(t *testing.T) {
	v := newValidator()
	id := uuid.New()
	by := command.Metadata{InitiatedBy: "bob"}

	tests := []struct {
		name    string
		err     error
		message string
	}{
		{
			name:    "nil task id",
			err:     v.ValidateUnassign(command.UnassignTask{Metadata: by}),
			message: "TaskId is required",
		},
		{
			name:    "task id checked before initiator",
			err:     v.ValidateUnassign(command.UnassignTask{}),
			message: "TaskId is required",
		},
		{
			name:    "missing initiator",
			err:     v.ValidateUnassign(command.UnassignTask{TaskID: id}),
			message: "InitiatedBy is required",
		},
		{
			name:    "assign without assignee",
			err:     v.ValidateAssign(command.AssignTask{Metadata: by, TaskID: id}),
			message: "AssignedToEntityId is required",
		},
		{
			name:    "empty data",
			err:     v.ValidateUpdateData(command.UpdateTaskData{Metadata: by, TaskID: id}),
			message: "Data is required",
		},
		{
			name:    "broken data",
			err:     v.ValidateUpdateData(command.UpdateTaskData{Metadata: by, TaskID: id, Data: "{"}),
			message: "Data not in JSON format",
		},
		{
			name:    "blank status",
			err:     v.ValidateUpdateStatus(command.UpdateTaskStatus{Metadata: by, TaskID: id}),
			message: "Status is required",
		},
		{
			name:    "finalize without status",
			err:     v.ValidateFinalize(command.FinalizeTask{Metadata: by, TaskID: id}),
			message: "Status is required",
		},
		{
			name:    "relate without entity",
			err:     v.ValidateRelate(command.RelateTask{Metadata: by, TaskID: id, EntityType: "Order"}),
			message: "EntityId is required",
		},
		{
			name:    "blank comment",
			err:     v.ValidateStoreComment(command.StoreComment{Metadata: by, TaskID: id, Text: "  "}),
			message: "Text is required",
		},
		{
			name:    "update with blank subject",
			err:     v.ValidateUpdate(command.UpdateTask{Metadata: by, TaskID: id, Subject: strPtr("")}),
			message: "Subject is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.Equal(t, tt.message, tt.err.Error())
		})
	}
}

func TestValidateUpdate_AbsentFieldsSkipped(t *testing.T) {
	err := newValidator().ValidateUpdate(command.UpdateTask{
		Metadata: command.Metadata{InitiatedBy: "bob"},
		TaskID:   uuid.New(),
	})
	assert.NoError(t, err)
}
