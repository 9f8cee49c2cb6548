// Package graph holds the structured-store's domain objects: entities and
// the typed relationships between them (spec §3's Entity / Relationship).
package graph

import (
	"strings"
	"time"

	"github.com/elefante-ai/elefante/domain/memory"
	elefanteerr "github.com/elefante-ai/elefante/internal/errors"
)

// EntityType is the kind of proper noun / concept an Entity represents.
type EntityType string

const (
	EntityTypePerson     EntityType = "person"
	EntityTypeTechnology EntityType = "technology"
	EntityTypeConcept    EntityType = "concept"
	EntityTypeProject    EntityType = "project"
	EntityTypeLocation   EntityType = "location"
)

func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypePerson, EntityTypeTechnology, EntityTypeConcept, EntityTypeProject, EntityTypeLocation:
		return true
	}
	return false
}

// Entity is a node in the structured store. Uniqueness is by (normalized
// name, type): a second upsert_entity with the same pair must return the
// existing id rather than create a duplicate.
type Entity struct {
	id         memory.EntityID
	name       string
	entityType EntityType
	description string
	properties map[string]string
	createdAt  time.Time
}

// NewEntity validates and constructs a new Entity. Callers pass the
// structured store's NormalizeEntityName output so uniqueness checks and
// storage agree on the same normalized form.
func NewEntity(name string, entityType EntityType, description string, properties map[string]string) (*Entity, error) {
	if strings.TrimSpace(name) == "" {
		return nil, elefanteerr.NewValidation("entity name cannot be empty")
	}
	if !entityType.IsValid() {
		return nil, elefanteerr.NewValidationf("invalid entity type %q", entityType)
	}
	if properties == nil {
		properties = make(map[string]string)
	}
	return &Entity{
		id:          memory.NewEntityID(),
		name:        name,
		entityType:  entityType,
		description: description,
		properties:  properties,
		createdAt:   time.Now(),
	}, nil
}

// ReconstructEntity rebuilds an Entity from persisted fields.
func ReconstructEntity(id memory.EntityID, name string, entityType EntityType, description string, properties map[string]string, createdAt time.Time) *Entity {
	if properties == nil {
		properties = make(map[string]string)
	}
	return &Entity{id: id, name: name, entityType: entityType, description: description, properties: properties, createdAt: createdAt}
}

func (e *Entity) ID() memory.EntityID      { return e.id }
func (e *Entity) Name() string             { return e.name }
func (e *Entity) Type() EntityType         { return e.entityType }
func (e *Entity) Description() string      { return e.description }
func (e *Entity) CreatedAt() time.Time     { return e.createdAt }
func (e *Entity) Property(key string) (string, bool) {
	v, ok := e.properties[key]
	return v, ok
}
func (e *Entity) Properties() map[string]string {
	out := make(map[string]string, len(e.properties))
	for k, v := range e.properties {
		out[k] = v
	}
	return out
}

// NormalizeEntityName produces the canonical form used for uniqueness
// comparisons: casefold and collapse internal whitespace.
func NormalizeEntityName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), " ")
}
