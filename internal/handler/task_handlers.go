package handler

import (
	"net/http"
	"strings"

	"github.com/GruborIvan/taskmanager/internal/handler/dto"
)

// handleListTasks lists tasks matching the query filters.
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := dto.ParseTaskFilter(r.URL.Query())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	tasks, total, err := h.reader.List(r.Context(), filter)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := dto.TasksListResponse{
		Tasks:  make([]dto.TaskResponse, len(tasks)),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for i, task := range tasks {
		resp.Tasks[i] = dto.ToTaskResponse(task)
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleGetTask returns a task with its comments and relations.
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.reader.GetByID(r.Context(), taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskDetailResponse(task))
}

func (h *Handler) handleTaskComments(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.reader.GetByID(r.Context(), taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToCommentResponses(task.Comments))
}

func (h *Handler) handleTaskRelations(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.reader.GetByID(r.Context(), taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToRelationResponses(task.Relations))
}

// handleRelationsByEntity finds relations pointing at ?entity_id=.
func (h *Handler) handleRelationsByEntity(w http.ResponseWriter, r *http.Request) {
	entityID := strings.TrimSpace(r.URL.Query().Get("entity_id"))
	if entityID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "entity_id is required")
		return
	}

	relations, err := h.reader.RelationsByEntity(r.Context(), entityID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToRelationResponses(relations))
}
