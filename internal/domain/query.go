package domain

import "time"

// TaskFilter narrows task listings. Nil fields are not applied.
type TaskFilter struct {
	Status     *string
	Final      *bool
	AssignedTo *string
	SourceID   *string
	Limit      int
	Offset     int
}

// Period is a half-open time range [From, To).
type Period struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.From) && t.Before(p.To)
}
