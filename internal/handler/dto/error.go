package dto

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/GruborIvan/taskmanager/internal/domain"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorResponse creates a new error response.
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
}

// MapDomainError maps domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code string, message string) {
	message = err.Error()

	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		return http.StatusNotFound, domain.CodeTaskNotFound, message
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, domain.CodeValidation, message
	case domain.IsConflict(err):
		return http.StatusConflict, domain.ErrorCode(err), message
	case errors.Is(err, domain.ErrConcurrentModification):
		return http.StatusConflict, domain.CodeConcurrentModified, message

	default:
		slog.Error("unmapped domain error returned to client",
			"error", err,
			"error_type", fmt.Sprintf("%T", err),
		)
		return http.StatusInternalServerError, domain.CodeInternal, "Internal server error"
	}
}
