package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GruborIvan/taskmanager/internal/command"
	"github.com/GruborIvan/taskmanager/internal/domain"
)

// CommentFutureTolerance is how far ahead of now a comment may be dated.
const CommentFutureTolerance = 30 * 24 * time.Hour

// Validator checks commands before any task is loaded.
// Each method fails on the first violated rule.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a new Validator using now as the clock.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

// ValidateCreate checks a CreateTask command.
func (v *Validator) ValidateCreate(c command.CreateTask) error {
	if err := initiator(c.Metadata); err != nil {
		return err
	}
	if err := required("SourceId", c.Source.ID); err != nil {
		return err
	}
	if err := required("TaskType", c.TaskType); err != nil {
		return err
	}
	if err := required("Status", c.Status); err != nil {
		return err
	}
	if c.Callback != nil {
		if err := callbackURI(*c.Callback); err != nil {
			return err
		}
	}
	if c.Data != nil {
		if err := jsonData(*c.Data); err != nil {
			return err
		}
	}
	if c.Assignment != nil {
		if err := assignment(*c.Assignment); err != nil {
			return err
		}
	}
	for _, r := range c.Relations {
		if err := relation(r.EntityID, r.EntityType); err != nil {
			return err
		}
	}
	if c.Comment != nil {
		if err := v.comment(c.Comment.Text, c.Comment.CreatedDate); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAssign checks an AssignTask command.
func (v *Validator) ValidateAssign(c command.AssignTask) error {
	if err := target(c.Metadata, c.TaskID); err != nil {
		return err
	}
	return assignment(c.Assignment)
}

// ValidateUnassign checks an UnassignTask command.
func (v *Validator) ValidateUnassign(c command.UnassignTask) error {
	return target(c.Metadata, c.TaskID)
}

// ValidateUpdate checks an UpdateTask command. Absent fields are not checked.
func (v *Validator) ValidateUpdate(c command.UpdateTask) error {
	if err := target(c.Metadata, c.TaskID); err != nil {
		return err
	}
	if c.Data != nil {
		if err := jsonData(*c.Data); err != nil {
			return err
		}
	}
	if c.Status != nil {
		if err := required("Status", *c.Status); err != nil {
			return err
		}
	}
	if c.Subject != nil {
		if err := required("Subject", *c.Subject); err != nil {
			return err
		}
	}
	return nil
}

// ValidateUpdateData checks an UpdateTaskData command.
func (v *Validator) ValidateUpdateData(c command.UpdateTaskData) error {
	if err := target(c.Metadata, c.TaskID); err != nil {
		return err
	}
	if err := required("Data", c.Data); err != nil {
		return err
	}
	return jsonData(c.Data)
}

// ValidateUpdateStatus checks an UpdateTaskStatus command.
func (v *Validator) ValidateUpdateStatus(c command.UpdateTaskStatus) error {
	if err := target(c.Metadata, c.TaskID); err != nil {
		return err
	}
	return required("Status", c.Status)
}

// ValidateFinalize checks a FinalizeTask command.
func (v *Validator) ValidateFinalize(c command.FinalizeTask) error {
	if err := target(c.Metadata, c.TaskID); err != nil {
		return err
	}
	return required("Status", c.Status)
}

// ValidateRelate checks a RelateTask command.
func (v *Validator) ValidateRelate(c command.RelateTask) error {
	if err := target(c.Metadata, c.TaskID); err != nil {
		return err
	}
	return relation(c.EntityID, c.EntityType)
}

// ValidateStoreComment checks a StoreComment command.
func (v *Validator) ValidateStoreComment(c command.StoreComment) error {
	if err := target(c.Metadata, c.TaskID); err != nil {
		return err
	}
	return v.comment(c.Text, c.CreatedDate)
}

func (v *Validator) comment(text string, created *time.Time) error {
	if err := required("Text", text); err != nil {
		return err
	}
	if created != nil && created.After(v.now().Add(CommentFutureTolerance)) {
		return domain.NewValidationError("CreatedDate", "CreatedDate must not be in the future")
	}
	return nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return domain.NewValidationError(field, field+" is required")
	}
	return nil
}

func initiator(meta command.Metadata) error {
	return required("InitiatedBy", meta.InitiatedBy)
}

func target(meta command.Metadata, id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.NewValidationError("TaskId", "TaskId is required")
	}
	return initiator(meta)
}

func assignment(a domain.Assignment) error {
	if err := required("AssignedToEntityId", a.AssignedToEntityID); err != nil {
		return err
	}
	return required("AssignmentType", a.Type)
}

func relation(entityID, entityType string) error {
	if err := required("EntityId", entityID); err != nil {
		return err
	}
	return required("EntityType", entityType)
}

// jsonData accepts a JSON object or array.
func jsonData(data string) error {
	trimmed := bytes.TrimSpace([]byte(data))
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') || !json.Valid(trimmed) {
		return domain.NewValidationError("Data", "Data not in JSON format")
	}
	return nil
}

func callbackURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return domain.NewValidationError("Callback", fmt.Sprintf("Callback %q is not an absolute http or https URI", raw))
	}
	return nil
}
