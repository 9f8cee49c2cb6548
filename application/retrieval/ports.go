package retrieval

import (
	"context"

	"github.com/elefante-ai/elefante/infrastructure/persistence/sqlite"
)

// SemanticStore is the narrow slice of C2 the retrieval engine depends on.
type SemanticStore interface {
	KNN(ctx context.Context, query []float32, k int, filter sqlite.KNNFilter) ([]sqlite.KNNResult, error)
	Get(ctx context.Context, id string) (sqlite.SemanticRow, bool, error)
	UpdateMetadata(ctx context.Context, id string, patch map[string]string) error
}

// StructuredStore is the narrow slice of C3 the retrieval engine depends on.
type StructuredStore interface {
	FindEntitiesByNameSubstring(ctx context.Context, concepts []string, limit int) ([]sqlite.EntityRow, error)
	MemoriesRelatedTo(ctx context.Context, entityIDs []string) ([]string, error)
}

// EmbeddingProvider is C1.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
