package handler

import (
	"net/http"
	"time"

	"github.com/GruborIvan/taskmanager/internal/domain"
	"github.com/GruborIvan/taskmanager/internal/handler/dto"
)

// handleGetActivity summarizes changes for ?period=day|week|month|all (default week).
func (h *Handler) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "week"
	}

	now := h.now().UTC()
	var periodStart time.Time
	switch period {
	case "day":
		periodStart = now.AddDate(0, 0, -1)
	case "week":
		periodStart = now.AddDate(0, 0, -7)
	case "month":
		periodStart = now.AddDate(0, -1, 0)
	case "all":
		periodStart = time.Time{}
	default:
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid period, must be: day, week, month, all")
		return
	}
	// The upper bound is exclusive; nudge it so rows stamped at now count.
	window := domain.Period{From: periodStart, To: now.Add(time.Nanosecond)}

	tasks, err := h.reader.TasksChangedIn(ctx, window)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch changed tasks")
		return
	}
	comments, err := h.reader.CommentsCreatedIn(ctx, window)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch comments")
		return
	}
	relations, err := h.reader.RelationsCreatedIn(ctx, window)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch relations")
		return
	}

	byStatus := make(map[string]int)
	finalized := 0
	for _, task := range tasks {
		byStatus[task.Status]++
		if task.FinalState {
			finalized++
		}
	}

	respondJSON(w, http.StatusOK, dto.ActivityResponse{
		Period:           period,
		PeriodStart:      periodStart,
		PeriodEnd:        now,
		TasksChanged:     len(tasks),
		TasksFinalized:   finalized,
		TasksByStatus:    byStatus,
		CommentsStored:   len(comments),
		RelationsCreated: len(relations),
	})
}
