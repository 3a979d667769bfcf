package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Domain-specific errors for command handling.
var (
	// Validation errors
	ErrValidation = errors.New("validation failed")

	// Task errors
	ErrTaskNotFound           = errors.New("task not found")
	ErrTaskAlreadyExists      = errors.New("task already exists")
	ErrTaskFinalized          = errors.New("finalized and cannot be modified")
	ErrConcurrentModification = errors.New("task was modified concurrently")

	// Finalization errors
	ErrFourEyeRequirementNotMet = errors.New("four-eye requirement not met")
)

// Error codes carried by failure events and API error responses.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeTaskNotFound       = "TASK_NOT_FOUND"
	CodeTaskAlreadyExists  = "TASK_ALREADY_EXISTS"
	CodeTaskFinalized      = "TASK_FINALIZED"
	CodeFourEyeNotMet      = "FOUR_EYE_REQUIREMENT_NOT_MET"
	CodeConcurrentModified = "CONCURRENT_MODIFICATION"
	CodeInternal           = "INTERNAL_ERROR"
)

// ValidationError reports the first rule a command violated.
// Its message is surfaced verbatim in failure events.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TaskNotFoundError returns ErrTaskNotFound naming the missing task.
func TaskNotFoundError(id uuid.UUID) error {
	return &taskError{id: id, err: ErrTaskNotFound, format: "task %s not found"}
}

// TaskFinalizedError returns ErrTaskFinalized naming the locked task.
func TaskFinalizedError(id uuid.UUID) error {
	return &taskError{id: id, err: ErrTaskFinalized, format: "task %s is finalized and cannot be modified"}
}

// TaskAlreadyExistsError returns ErrTaskAlreadyExists naming the duplicate task.
func TaskAlreadyExistsError(id uuid.UUID) error {
	return &taskError{id: id, err: ErrTaskAlreadyExists, format: "task %s already exists"}
}

// ConcurrentModificationError returns ErrConcurrentModification naming the task.
func ConcurrentModificationError(id uuid.UUID) error {
	return &taskError{id: id, err: ErrConcurrentModification, format: "task %s was modified concurrently"}
}

// IsConflict reports whether err is a conflict with the task's current state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrTaskFinalized) ||
		errors.Is(err, ErrFourEyeRequirementNotMet) ||
		errors.Is(err, ErrTaskAlreadyExists)
}

// ErrorCode maps an error to the code published with failure events.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrTaskNotFound):
		return CodeTaskNotFound
	case errors.Is(err, ErrTaskAlreadyExists):
		return CodeTaskAlreadyExists
	case errors.Is(err, ErrTaskFinalized):
		return CodeTaskFinalized
	case errors.Is(err, ErrFourEyeRequirementNotMet):
		return CodeFourEyeNotMet
	case errors.Is(err, ErrConcurrentModification):
		return CodeConcurrentModified
	default:
		return CodeInternal
	}
}

type taskError struct {
	id     uuid.UUID
	err    error
	format string
}

func (e *taskError) Error() string {
	return fmt.Sprintf(e.format, e.id)
}

func (e *taskError) Unwrap() error {
	return e.err
}
