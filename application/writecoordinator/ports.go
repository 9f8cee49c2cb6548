// Package writecoordinator implements C5: the single public entry point
// for adding memories, guaranteeing cross-store consistency and
// deduplication (spec.md §4.2). Its step shape — validate, check
// duplicates, enrich, persist, connect side-effects — generalizes the
// teacher's application/sagas.CreateNodeSaga. The domain events a Memory
// records are not published by the coordinator.
package writecoordinator

import (
	"context"

	"github.com/elefante-ai/elefante/infrastructure/persistence/sqlite"
)

// SemanticStore is the narrow slice of C2 the coordinator depends on.
type SemanticStore interface {
	Upsert(ctx context.Context, row sqlite.SemanticRow) error
	FindByNormalizedContent(ctx context.Context, normalized string) (sqlite.SemanticRow, bool, error)
	KNN(ctx context.Context, query []float32, k int, filter sqlite.KNNFilter) ([]sqlite.KNNResult, error)
}

// StructuredStore is the narrow slice of C3 the coordinator depends on.
type StructuredStore interface {
	UpsertEntity(ctx context.Context, candidateID, name, nameNorm, entityType, description string, properties map[string]string) (id string, created bool, err error)
	UpsertEdge(ctx context.Context, id, fromID, toID, relType string, strength float64) error
	UpsertMemoryNode(ctx context.Context, id, domain string) error
}

// EmbeddingProvider is C1, the external embedding collaborator.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
