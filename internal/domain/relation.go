package domain

import (
	"time"

	"github.com/google/uuid"
)

// Relation associates a task with an external business entity.
type Relation struct {
	ID          uuid.UUID
	TaskID      uuid.UUID
	EntityID    string
	EntityType  string
	CreatedDate time.Time
}

// IsLegacyCompatible reports whether the relation's entity identifier can be
// carried by legacy event payloads, which only understand UUIDs.
func (r Relation) IsLegacyCompatible() bool {
	_, err := uuid.Parse(r.EntityID)
	return err == nil
}
