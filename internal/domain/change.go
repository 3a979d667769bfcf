package domain

import "slices"

// Field names a task column owned by a single kind of mutation.
type Field string

const (
	FieldData       Field = "data"
	FieldStatus     Field = "status"
	FieldFinalState Field = "final_state"
	FieldSubject    Field = "subject"
	FieldAssignment Field = "assignment"
)

// Change is a field-scoped patch produced by a task mutation.
// Persistence writes only the listed fields plus the audit columns,
// so concurrent mutations of disjoint fields do not overwrite each other.
type Change struct {
	Fields    []Field
	Comment   *Comment
	Relations []Relation

	// ExpectedVersion, when set, makes the write conditional on the
	// version the mutation was computed against.
	ExpectedVersion *int64
}

// Has reports whether the change writes field f.
func (c Change) Has(f Field) bool {
	return slices.Contains(c.Fields, f)
}

// Finalizes reports whether the change performs the Active -> Final transition.
func (c Change) Finalizes() bool {
	return c.Has(FieldFinalState)
}

func (c Change) merge(other Change) Change {
	for _, f := range other.Fields {
		if !c.Has(f) {
			c.Fields = append(c.Fields, f)
		}
	}
	if other.Comment != nil {
		c.Comment = other.Comment
	}
	c.Relations = append(c.Relations, other.Relations...)
	if other.ExpectedVersion != nil {
		c.ExpectedVersion = other.ExpectedVersion
	}
	return c
}
