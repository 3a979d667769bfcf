package dto

import (
	"encoding/json"
	"time"

	"github.com/GruborIvan/taskmanager/internal/domain"
)

// TaskResponse is a task without its comments and relations.
type TaskResponse struct {
	ID               string          `json:"id"`
	TaskType         string          `json:"task_type"`
	Subject          string          `json:"subject"`
	Status           string          `json:"status"`
	FinalState       bool            `json:"final_state"`
	SourceID         string          `json:"source_id"`
	SourceName       string          `json:"source_name"`
	Callback         *string         `json:"callback"`
	FourEyeSubjectID *string         `json:"four_eye_subject_id"`
	Assignment       *Assignment     `json:"assignment"`
	Data             json.RawMessage `json:"data"`
	Version          int64           `json:"version"`
	CreatedBy        string          `json:"created_by"`
	CreatedDate      time.Time       `json:"created_date"`
	ChangedBy        string          `json:"changed_by"`
	ChangedDate      time.Time       `json:"changed_date"`
}

// Assignment is the current assignee of a task.
type Assignment struct {
	AssignedToEntityID string `json:"assigned_to_entity_id"`
	Type               string `json:"type"`
}

// TasksListResponse represents the response for GET /tasks.
type TasksListResponse struct {
	Tasks  []TaskResponse `json:"tasks"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// TaskDetailResponse is a task with its comments and relations.
type TaskDetailResponse struct {
	Task      TaskResponse       `json:"task"`
	Comments  []CommentResponse  `json:"comments"`
	Relations []RelationResponse `json:"relations"`
}

// CommentResponse represents a stored comment.
type CommentResponse struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Text        string    `json:"text"`
	CreatedBy   string    `json:"created_by"`
	CreatedDate time.Time `json:"created_date"`
}

// RelationResponse represents a task relation.
type RelationResponse struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	EntityID    string    `json:"entity_id"`
	EntityType  string    `json:"entity_type"`
	CreatedDate time.Time `json:"created_date"`
}

// ActivityResponse summarizes what changed in a period.
type ActivityResponse struct {
	Period           string         `json:"period"`
	PeriodStart      time.Time      `json:"period_start"`
	PeriodEnd        time.Time      `json:"period_end"`
	TasksChanged     int            `json:"tasks_changed"`
	TasksFinalized   int            `json:"tasks_finalized"`
	TasksByStatus    map[string]int `json:"tasks_by_status"`
	CommentsStored   int            `json:"comments_stored"`
	RelationsCreated int            `json:"relations_created"`
}

// ToTaskResponse converts domain.Task to TaskResponse.
func ToTaskResponse(task *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:               task.ID.String(),
		TaskType:         task.TaskType,
		Subject:          task.Subject,
		Status:           task.Status,
		FinalState:       task.FinalState,
		SourceID:         task.Source.ID,
		SourceName:       task.Source.Name,
		Callback:         task.Callback,
		FourEyeSubjectID: task.FourEyeSubjectID,
		Version:          task.Version,
		CreatedBy:        task.CreatedBy,
		CreatedDate:      task.CreatedDate,
		ChangedBy:        task.ChangedBy,
		ChangedDate:      task.ChangedDate,
	}
	if task.Assignment != nil {
		resp.Assignment = &Assignment{
			AssignedToEntityID: task.Assignment.AssignedToEntityID,
			Type:               task.Assignment.Type,
		}
	}
	// Data is validated JSON on write; anything else is served as a string.
	if task.Data != nil {
		if json.Valid([]byte(*task.Data)) {
			resp.Data = json.RawMessage(*task.Data)
		} else {
			resp.Data, _ = json.Marshal(*task.Data)
		}
	}
	return resp
}

// ToTaskDetailResponse converts a task with its children.
func ToTaskDetailResponse(task *domain.Task) TaskDetailResponse {
	return TaskDetailResponse{
		Task:      ToTaskResponse(task),
		Comments:  ToCommentResponses(task.Comments),
		Relations: ToRelationResponses(task.Relations),
	}
}

// ToCommentResponses converts comments, never returning nil.
func ToCommentResponses(comments []domain.Comment) []CommentResponse {
	out := make([]CommentResponse, len(comments))
	for i, c := range comments {
		out[i] = CommentResponse{
			ID:          c.ID.String(),
			TaskID:      c.TaskID.String(),
			Text:        c.Text,
			CreatedBy:   c.CreatedBy,
			CreatedDate: c.CreatedDate,
		}
	}
	return out
}

// ToRelationResponses converts relations, never returning nil.
func ToRelationResponses(relations []domain.Relation) []RelationResponse {
	out := make([]RelationResponse, len(relations))
	for i, r := range relations {
		out[i] = RelationResponse{
			ID:          r.ID.String(),
			TaskID:      r.TaskID.String(),
			EntityID:    r.EntityID,
			EntityType:  r.EntityType,
			CreatedDate: r.CreatedDate,
		}
	}
	return out
}
