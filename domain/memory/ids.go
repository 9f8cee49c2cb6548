package memory

import (
	"github.com/google/uuid"

	elefanteerr "github.com/elefante-ai/elefante/internal/errors"
)

// MemoryID uniquely identifies a Memory.
type MemoryID struct {
	value string
}

// NewMemoryID generates a fresh, random memory id.
func NewMemoryID() MemoryID {
	return MemoryID{value: uuid.NewString()}
}

// NewMemoryIDFromString parses an existing id, validating its shape.
func NewMemoryIDFromString(s string) (MemoryID, error) {
	if s == "" {
		return MemoryID{}, elefanteerr.NewValidation("memory id cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return MemoryID{}, elefanteerr.NewValidationf("invalid memory id %q: %v", s, err)
	}
	return MemoryID{value: s}, nil
}

func (id MemoryID) String() string   { return id.value }
func (id MemoryID) IsZero() bool     { return id.value == "" }
func (id MemoryID) Equals(o MemoryID) bool { return id.value == o.value }

// EntityID uniquely identifies an Entity in the structured store.
type EntityID struct{ value string }

func NewEntityID() EntityID { return EntityID{value: uuid.NewString()} }

func NewEntityIDFromString(s string) (EntityID, error) {
	if s == "" {
		return EntityID{}, elefanteerr.NewValidation("entity id cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return EntityID{}, elefanteerr.NewValidationf("invalid entity id %q: %v", s, err)
	}
	return EntityID{value: s}, nil
}

func (id EntityID) String() string     { return id.value }
func (id EntityID) IsZero() bool       { return id.value == "" }
func (id EntityID) Equals(o EntityID) bool { return id.value == o.value }

// RelationshipID uniquely identifies a Relationship edge.
type RelationshipID struct{ value string }

func NewRelationshipID() RelationshipID { return RelationshipID{value: uuid.NewString()} }

func (id RelationshipID) String() string { return id.value }
func (id RelationshipID) IsZero() bool   { return id.value == "" }
