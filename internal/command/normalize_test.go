package command_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GruborIvan/taskmanager/internal/command"
	"github.com/GruborIvan/taskmanager/internal/domain"
)

func currentHeaders() command.Headers {
	return command.Headers{"X-Request-Id": "req-1", "x-command-id": "cmd-1"}
}

func TestNormalize_CreateTaskVersionsShareCanonicalShape(t *testing.T) {
	id := uuid.New()
	entity := uuid.New()

	v1 := command.Message{
		Type:    "CreateTask",
		Version: command.V1,
		Body: []byte(`{"correlationId":"corr","initiatedBy":"alice","taskId":"` + id.String() + `",
			"taskType":"Approval","subject":"S","sourceId":"erp","sourceName":"ERP","status":"Open",
			"relations":[{"entityId":"` + entity.String() + `","entityType":"Invoice"}]}`),
	}
	v3 := command.Message{
		Type:    "CreateTask",
		Version: command.V3,
		Headers: currentHeaders(),
		Body: []byte(`{"initiatedBy":"alice","taskId":"` + id.String() + `",
			"taskType":"Approval","subject":"S","sourceId":"erp","sourceName":"ERP","status":"Open",
			"relations":[{"entityId":"INV-1","entityType":"Invoice"}],
			"comment":{"text":"hello"},
			"assignment":{"assignedToEntityId":"bob","assignmentType":"User"}}`),
	}

	cmd1, err := command.Normalize(v1)
	require.NoError(t, err)
	create1, ok := cmd1.(command.CreateTask)
	require.True(t, ok)
	assert.Equal(t, "corr", create1.CorrelationID)
	assert.Equal(t, command.V1, create1.Version)
	assert.Equal(t, "alice", create1.InitiatedBy)
	assert.Equal(t, id, create1.Target())
	assert.Equal(t, []domain.NewRelation{{EntityID: entity.String(), EntityType: "Invoice"}}, create1.Relations)
	assert.Nil(t, create1.Comment)

	cmd3, err := command.Normalize(v3)
	require.NoError(t, err)
	create3 := cmd3.(command.CreateTask)
	assert.Equal(t, "req-1", create3.RequestID)
	assert.Equal(t, "req-1", create3.CorrelationID)
	assert.Equal(t, "cmd-1", create3.CommandID)
	require.NotNil(t, create3.Comment)
	assert.Equal(t, "hello", create3.Comment.Text)
	require.NotNil(t, create3.Assignment)
	assert.Equal(t, domain.Assignment{AssignedToEntityID: "bob", Type: "User"}, *create3.Assignment)
	assert.Equal(t, "INV-1", create3.Relations[0].EntityID)
}

func TestNormalize_LegacyRequiresCorrelationID(t *testing.T) {
	_, err := command.Normalize(command.Message{
		Type:    "UnassignTask",
		Version: command.V1,
		Body:    []byte(`{"taskId":"` + uuid.NewString() + `","initiatedBy":"a"}`),
	})

	require.ErrorIs(t, err, domain.ErrValidation)
	assert.EqualError(t, err, "Missing correlationId in payload")
}

func TestNormalize_CurrentRequiresHeaders(t *testing.T) {
	body := []byte(`{"taskId":"` + uuid.NewString() + `","initiatedBy":"a"}`)

	_, err := command.Normalize(command.Message{Type: "UnassignTask", Version: command.V2, Body: body})
	assert.EqualError(t, err, "Missing x-request-id in headers")

	_, err = command.Normalize(command.Message{
		Type:    "UnassignTask",
		Version: command.V2,
		Body:    body,
		Headers: command.Headers{"x-request-id": "r", "x-command-id": "  "},
	})
	assert.EqualError(t, err, "Missing x-command-id in headers")
}

func TestNormalize_HeaderCheckPrecedesBodyDecoding(t *testing.T) {
	_, err := command.Normalize(command.Message{Type: "StoreComment", Version: command.V2, Body: []byte(`not json`)})
	assert.EqualError(t, err, "Missing x-request-id in headers")
}

func TestNormalize_Unsupported(t *testing.T) {
	_, err := command.Normalize(command.Message{Type: "DeleteTask", Version: command.V1, Body: []byte(`{}`)})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "Unsupported command DeleteTask v1")

	assert.False(t, command.Supported("UpdateTaskV2", command.V1))
	assert.True(t, command.Supported("UpdateTaskV2", command.V2))
	assert.True(t, command.Supported("UpdateTask", command.V2))
}

func TestNormalize_InvalidBody(t *testing.T) {
	_, err := command.Normalize(command.Message{Type: "UpdateTaskData", Version: command.V1, Body: []byte(`{"taskId":"nope"}`)})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "Invalid UpdateTaskData v1 payload")
}

func TestNormalize_UpdateTaskVariants(t *testing.T) {
	id := uuid.New()

	cmd, err := command.Normalize(command.Message{
		Type:    "UpdateTask",
		Version: command.V1,
		Body:    []byte(`{"correlationId":"c","taskId":"` + id.String() + `","status":"Done","finalState":true}`),
	})
	require.NoError(t, err)
	u := cmd.(command.UpdateTask)
	require.NotNil(t, u.Status)
	require.NotNil(t, u.FinalState)
	assert.True(t, *u.FinalState)
	assert.Nil(t, u.Data)
	assert.Nil(t, u.Subject)

	cmd, err = command.Normalize(command.Message{
		Type:    "UpdateTaskV2",
		Version: command.V2,
		Headers: currentHeaders(),
		Body:    []byte(`{"taskId":"` + id.String() + `","subject":"renamed"}`),
	})
	require.NoError(t, err)
	u = cmd.(command.UpdateTask)
	assert.Equal(t, command.OpUpdateTask, u.Operation())
	require.NotNil(t, u.Subject)
	assert.Equal(t, "renamed", *u.Subject)
	assert.Nil(t, u.Status)
}

func TestNormalize_FinalizeAndRelate(t *testing.T) {
	id := uuid.New()

	cmd, err := command.Normalize(command.Message{
		Type:    "FinalizeTaskStatus",
		Version: command.V2,
		Headers: currentHeaders(),
		Body:    []byte(`{"taskId":"` + id.String() + `","status":"Approved","fourEyeReview":true,"initiatedBy":"bob"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, command.FinalizeTask{
		Metadata:      command.Metadata{Version: command.V2, CorrelationID: "req-1", RequestID: "req-1", CommandID: "cmd-1", InitiatedBy: "bob"},
		TaskID:        id,
		Status:        "Approved",
		FourEyeReview: true,
	}, cmd)

	cmd, err = command.Normalize(command.Message{
		Type:    "RelateTaskToEntity",
		Version: command.V1,
		Body:    []byte(`{"correlationId":"c","taskId":"` + id.String() + `","entityId":"E-9","entityType":"Order"}`),
	})
	require.NoError(t, err)
	r := cmd.(command.RelateTask)
	assert.Equal(t, "E-9", r.EntityID)
	assert.Equal(t, "Order", r.EntityType)
}

func TestPeekTaskID(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id, command.PeekTaskID([]byte(`{"taskId":"`+id.String()+`"}`)))
	assert.Equal(t, uuid.Nil, command.PeekTaskID([]byte(`{"taskId":"x"}`)))
	assert.Equal(t, uuid.Nil, command.PeekTaskID([]byte(`garbage`)))
}

func TestHeaders_Get(t *testing.T) {
	h := command.Headers{"X-Command-ID": "abc", "blank": " "}

	v, ok := h.Get("x-command-id")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	_, ok = h.Get("blank")
	assert.False(t, ok)
}
