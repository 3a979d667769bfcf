package dto

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/GruborIvan/taskmanager/internal/domain"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ParseTaskFilter reads GET /tasks query parameters:
// ?status=Open&final=false&assigned_to=bob&source_id=erp&limit=50&offset=0
func ParseTaskFilter(query url.Values) (domain.TaskFilter, error) {
	filter := domain.TaskFilter{Limit: DefaultLimit}

	if v := strings.TrimSpace(query.Get("status")); v != "" {
		filter.Status = &v
	}
	if v := strings.TrimSpace(query.Get("assigned_to")); v != "" {
		filter.AssignedTo = &v
	}
	if v := strings.TrimSpace(query.Get("source_id")); v != "" {
		filter.SourceID = &v
	}
	if v := query.Get("final"); v != "" {
		final, err := strconv.ParseBool(v)
		if err != nil {
			return domain.TaskFilter{}, domain.NewValidationError("final", "final must be true or false")
		}
		filter.Final = &final
	}

	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > MaxLimit {
			return domain.TaskFilter{}, domain.NewValidationError("limit", "limit must be between 1 and 200")
		}
		filter.Limit = n
	}
	if v := query.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return domain.TaskFilter{}, domain.NewValidationError("offset", "offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	return filter, nil
}
