// Package event defines the integration events published after every command
// and the pure mapping from a command outcome to the versioned events it emits.
package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/GruborIvan/taskmanager/internal/command"
)

// Name identifies an integration event independent of its version.
type Name string

const (
	TaskCreated         Name = "TaskCreated"
	TaskAssigned        Name = "TaskAssigned"
	TaskUnassigned      Name = "TaskUnassigned"
	TaskUpdated         Name = "TaskUpdated"
	TaskDataUpdated     Name = "TaskDataUpdated"
	TaskStatusUpdated   Name = "TaskStatusUpdated"
	TaskFinalized       Name = "TaskFinalized"
	TaskRelatedToEntity Name = "TaskRelatedToEntity"
	CommentStored       Name = "CommentStored"
	TaskCommandFailed   Name = "TaskCommandFailed"
)

// latestVersion is the newest payload version of each event.
var latestVersion = map[Name]int{
	TaskCreated:         3,
	TaskAssigned:        2,
	TaskUnassigned:      2,
	TaskUpdated:         2,
	TaskDataUpdated:     2,
	TaskStatusUpdated:   2,
	TaskFinalized:       2,
	TaskRelatedToEntity: 2,
	CommentStored:       2,
	TaskCommandFailed:   1,
}

// LatestVersion returns the newest payload version of the named event.
func LatestVersion(name Name) int {
	if v, ok := latestVersion[name]; ok {
		return v
	}
	return 1
}

// Event is a versioned integration event.
type Event struct {
	Name          Name              `json:"name"`
	Version       int               `json:"version"`
	Operation     command.Operation `json:"operation"`
	TaskID        uuid.UUID         `json:"taskId"`
	CorrelationID string            `json:"correlationId,omitempty"`
	RequestID     string            `json:"requestId,omitempty"`
	CommandID     string            `json:"commandId,omitempty"`
	OccurredAt    time.Time         `json:"occurredAt"`
	Payload       any               `json:"payload"`
}

// Type returns the versioned event type, e.g. "TaskAssigned.v2".
func (e Event) Type() string {
	return fmt.Sprintf("%s.v%d", e.Name, e.Version)
}

// FailedPayload is carried by TaskCommandFailed.
type FailedPayload struct {
	TaskID  uuid.UUID `json:"taskId"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`
}
