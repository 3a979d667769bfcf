package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GruborIvan/taskmanager/internal/domain"
)

var at = time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)

func activeTask() *domain.Task {
	four := "reviewer"
	return domain.NewTask(domain.NewTaskParams{
		TaskType:         "Approval",
		Subject:          "Contract",
		Source:           domain.Source{ID: "crm", Name: "CRM"},
		Status:           "Open",
		FourEyeSubjectID: &four,
		Comment:          &domain.NewComment{Text: "initial"},
		Relations:        []domain.NewRelation{{EntityID: "C-1", EntityType: "Contract"}},
		CreatedBy:        "creator",
	}, at)
}

func TestNewTask(t *testing.T) {
	task := activeTask()

	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.False(t, task.FinalState)
	assert.Equal(t, "creator", task.CreatedBy)
	assert.Equal(t, "creator", task.ChangedBy)
	assert.Equal(t, at, task.CreatedDate)
	require.Len(t, task.Comments, 1)
	assert.Equal(t, task.ID, task.Comments[0].TaskID)
	assert.Equal(t, at, task.Comments[0].CreatedDate)
	require.Len(t, task.Relations, 1)
	assert.False(t, task.Relations[0].IsLegacyCompatible())
}

func TestNewTask_KeepsSuppliedID(t *testing.T) {
	id := uuid.New()
	task := domain.NewTask(domain.NewTaskParams{ID: id, CreatedBy: "x"}, at)
	assert.Equal(t, id, task.ID)
}

func TestMutations_StampAudit(t *testing.T) {
	task := activeTask()
	later := at.Add(time.Hour)

	change, err := task.AssignTo(domain.Assignment{AssignedToEntityID: "u1", Type: "User"}, "bob", later)
	require.NoError(t, err)
	assert.True(t, change.Has(domain.FieldAssignment))
	assert.True(t, task.IsAssigned())
	assert.Equal(t, "bob", task.ChangedBy)
	assert.Equal(t, later, task.ChangedDate)

	change, err = task.Unassign("carol", later)
	require.NoError(t, err)
	assert.True(t, change.Has(domain.FieldAssignment))
	assert.False(t, task.IsAssigned())
}

func TestUpdateStatus_SameStatusDoesNotWriteStatus(t *testing.T) {
	task := activeTask()

	change, err := task.UpdateStatus("Open", false, "bob", at)
	require.NoError(t, err)
	assert.False(t, change.Has(domain.FieldStatus))
	assert.False(t, change.Finalizes())
}

func TestUpdateStatus_Final(t *testing.T) {
	task := activeTask()
	task.Version = 4

	change, err := task.UpdateStatus("Closed", true, "bob", at)
	require.NoError(t, err)
	assert.True(t, change.Has(domain.FieldStatus))
	assert.True(t, change.Finalizes())
	require.NotNil(t, change.ExpectedVersion)
	assert.Equal(t, int64(4), *change.ExpectedVersion)
	assert.True(t, task.FinalState)
}

func TestFinalize_FourEye(t *testing.T) {
	t.Run("subject may not finalize with review", func(t *testing.T) {
		task := activeTask()
		_, err := task.Finalize("Approved", true, "reviewer", at)
		assert.ErrorIs(t, err, domain.ErrFourEyeRequirementNotMet)
		assert.False(t, task.FinalState)
	})

	t.Run("subject may finalize without review", func(t *testing.T) {
		task := activeTask()
		_, err := task.Finalize("Approved", false, "reviewer", at)
		assert.NoError(t, err)
	})

	t.Run("other identity may finalize", func(t *testing.T) {
		task := activeTask()
		_, err := task.Finalize("Approved", true, "boss", at)
		assert.NoError(t, err)
		assert.Equal(t, "Approved", task.Status)
	})
}

func TestFinalTaskRejectsEveryMutation(t *testing.T) {
	mutations := map[string]func(*domain.Task) error{
		"assign": func(task *domain.Task) error {
			_, err := task.AssignTo(domain.Assignment{AssignedToEntityID: "u", Type: "User"}, "x", at)
			return err
		},
		"unassign": func(task *domain.Task) error {
			_, err := task.Unassign("x", at)
			return err
		},
		"data": func(task *domain.Task) error {
			_, err := task.UpdateData(`{}`, "x", at)
			return err
		},
		"status": func(task *domain.Task) error {
			_, err := task.UpdateStatus("Reopened", false, "x", at)
			return err
		},
		"update": func(task *domain.Task) error {
			s := "new"
			_, err := task.Update(domain.TaskUpdate{Subject: &s}, "x", at)
			return err
		},
		"finalize": func(task *domain.Task) error {
			_, err := task.Finalize("Again", false, "x", at)
			return err
		},
		"comment": func(task *domain.Task) error {
			_, err := task.AddComment(domain.NewComment{Text: "late"}, "x", at)
			return err
		},
		"relate": func(task *domain.Task) error {
			_, err := task.Relate(domain.NewRelation{EntityID: "e", EntityType: "t"}, "x", at)
			return err
		},
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			task := activeTask()
			_, err := task.Finalize("Done", false, "boss", at)
			require.NoError(t, err)
			before := task.Clone()

			err = mutate(task)
			assert.ErrorIs(t, err, domain.ErrTaskFinalized)
			assert.Equal(t, before, task)
		})
	}
}

func TestFinalize_AlreadyFinalCheckedBeforeFourEye(t *testing.T) {
	task := activeTask()
	_, err := task.Finalize("Done", false, "boss", at)
	require.NoError(t, err)

	_, err = task.Finalize("Done", true, "reviewer", at)
	assert.ErrorIs(t, err, domain.ErrTaskFinalized)
	assert.False(t, errors.Is(err, domain.ErrFourEyeRequirementNotMet))
}

func TestAddComment_KeepsSuppliedDate(t *testing.T) {
	task := activeTask()
	written := at.Add(-48 * time.Hour)

	change, err := task.AddComment(domain.NewComment{Text: "backdated", CreatedDate: &written}, "bob", at)
	require.NoError(t, err)
	require.NotNil(t, change.Comment)
	assert.Equal(t, written, change.Comment.CreatedDate)
	assert.Equal(t, at, task.ChangedDate)
	assert.Len(t, task.Comments, 2)
}

func TestClone_IsDeep(t *testing.T) {
	task := activeTask()
	c := task.Clone()

	c.Relations[0].EntityID = "changed"
	*c.FourEyeSubjectID = "other"

	assert.Equal(t, "C-1", task.Relations[0].EntityID)
	assert.Equal(t, "reviewer", *task.FourEyeSubjectID)
}

func TestErrorCode(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, domain.CodeValidation, domain.ErrorCode(domain.NewValidationError("x", "bad")))
	assert.Equal(t, domain.CodeTaskNotFound, domain.ErrorCode(domain.TaskNotFoundError(id)))
	assert.Equal(t, domain.CodeConcurrentModified, domain.ErrorCode(domain.ConcurrentModificationError(id)))
	assert.Equal(t, domain.CodeInternal, domain.ErrorCode(errors.New("db down")))
	assert.True(t, domain.IsConflict(domain.TaskAlreadyExistsError(id)))
	assert.Equal(t, "task "+id.String()+" not found", domain.TaskNotFoundError(id).Error())
}
