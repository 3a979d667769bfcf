package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/GruborIvan/taskmanager/internal/domain"
	"github.com/GruborIvan/taskmanager/internal/handler/dto"
	"github.com/GruborIvan/taskmanager/internal/middleware"
	"github.com/GruborIvan/taskmanager/internal/static"
)

// TaskReader is the read side of the task store.
type TaskReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, int, error)
	RelationsByEntity(ctx context.Context, entityID string) ([]domain.Relation, error)
	TasksChangedIn(ctx context.Context, period domain.Period) ([]*domain.Task, error)
	CommentsCreatedIn(ctx context.Context, period domain.Period) ([]domain.Comment, error)
	RelationsCreatedIn(ctx context.Context, period domain.Period) ([]domain.Relation, error)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the read-only query API.
type Handler struct {
	reader         TaskReader
	pingers        []Pinger
	authMiddleware *middleware.AuthMiddleware
	now            func() time.Time
}

// New creates a Handler. Every pinger must succeed for /healthz to report healthy.
func New(reader TaskReader, auth *middleware.AuthMiddleware, pingers ...Pinger) *Handler {
	if auth == nil {
		auth = middleware.NewAuthMiddleware(nil)
	}
	return &Handler{
		reader:         reader,
		pingers:        pingers,
		authMiddleware: auth,
		now:            time.Now,
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /api.md", h.handleAPIMd)

	mux.Handle("GET /api/v1/tasks", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleListTasks)))
	mux.Handle("GET /api/v1/tasks/{id}", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleGetTask)))
	mux.Handle("GET /api/v1/tasks/{id}/comments", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleTaskComments)))
	mux.Handle("GET /api/v1/tasks/{id}/relations", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleTaskRelations)))
	mux.Handle("GET /api/v1/relations", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleRelationsByEntity)))
	mux.Handle("GET /api/v1/activity", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleGetActivity)))
}

// handleHealthz returns 200 OK if every backing service is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	for _, p := range h.pingers {
		if err := p.Ping(ctx); err != nil {
			slog.Error("health check failed", "error", err)
			http.Error(w, "dependency unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

// handleAPIMd serves the embedded API reference.
func (h *Handler) handleAPIMd(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(static.APIMd))
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a standard error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message))
}

// respondDomainError maps err through dto.MapDomainError.
func respondDomainError(w http.ResponseWriter, err error) {
	status, code, message := dto.MapDomainError(err)
	respondError(w, status, code, message)
}

// extractTaskID extracts and validates task ID from path parameter.
// Returns (taskID, true) if valid, (uuid.Nil, false) if invalid (error already sent to client).
func extractTaskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.PathValue("id")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "task id is required")
		return uuid.Nil, false
	}

	taskID, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "task_id must be a valid UUID")
		return uuid.Nil, false
	}

	return taskID, true
}
