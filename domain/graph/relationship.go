package graph

import (
	"time"

	"github.com/elefante-ai/elefante/domain/memory"
	elefanteerr "github.com/elefante-ai/elefante/internal/errors"
)

// RelationType names the kind of directed edge between two entities, or
// between a memory and an entity (the fixed RelationRelatesTo type the
// write coordinator uses to connect a memory to its supplied entities).
type RelationType string

const RelationRelatesTo RelationType = "RELATES_TO"

// Relationship is a directed typed edge with a strength in (0,1].
type Relationship struct {
	id       memory.RelationshipID
	fromID   string // either a MemoryID or EntityID, store-opaque
	toID     string
	relType  RelationType
	strength float64
	createdAt time.Time
}

// NewRelationship validates and constructs a Relationship.
func NewRelationship(fromID, toID string, relType RelationType, strength float64) (*Relationship, error) {
	if fromID == "" || toID == "" {
		return nil, elefanteerr.NewValidation("relationship endpoints cannot be empty")
	}
	if relType == "" {
		return nil, elefanteerr.NewValidation("relationship type cannot be empty")
	}
	if strength <= 0 || strength > 1 {
		return nil, elefanteerr.NewValidationf("relationship strength %v outside (0,1]", strength)
	}
	return &Relationship{
		id:        memory.NewRelationshipID(),
		fromID:    fromID,
		toID:      toID,
		relType:   relType,
		strength:  strength,
		createdAt: time.Now(),
	}, nil
}

func (r *Relationship) ID() memory.RelationshipID { return r.id }
func (r *Relationship) FromID() string             { return r.fromID }
func (r *Relationship) ToID() string               { return r.toID }
func (r *Relationship) Type() RelationType          { return r.relType }
func (r *Relationship) Strength() float64           { return r.strength }
func (r *Relationship) CreatedAt() time.Time        { return r.createdAt }
