package domain

import (
	"time"

	"github.com/google/uuid"
)

// Comment is an immutable note appended to a task.
type Comment struct {
	ID          uuid.UUID
	TaskID      uuid.UUID
	Text        string
	CreatedBy   string
	CreatedDate time.Time
}
