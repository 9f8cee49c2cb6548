package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStructuredStore(t *testing.T) *StructuredStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.db")
	s, err := OpenStructuredStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertEntity_SecondCallWithSamePairReturnsExistingID(t *testing.T) {
	s := openTestStructuredStore(t)
	ctx := context.Background()

	id1, created1, err := s.UpsertEntity(ctx, "candidate-1", "Python", "python", "language", "", nil)
	require.NoError(t, err)
	assert.True(t, created1)

	id2, created2, err := s.UpsertEntity(ctx, "candidate-2", "Python", "python", "language", "", nil)
	require.NoError(t, err)
	assert.False(t, created2)
	assert.Equal(t, id1, id2)
}

func TestUpsertEntity_DistinctTypeIsDistinctEntity(t *testing.T) {
	s := openTestStructuredStore(t)
	ctx := context.Background()

	langID, _, err := s.UpsertEntity(ctx, "candidate-lang", "Python", "python", "language", "", nil)
	require.NoError(t, err)
	techID, _, err := s.UpsertEntity(ctx, "candidate-tech", "Python", "python", "technology", "", nil)
	require.NoError(t, err)

	assert.NotEqual(t, langID, techID)
}

func TestUpsertEdge_AndNeighbors(t *testing.T) {
	s := openTestStructuredStore(t)
	ctx := context.Background()

	a, _, err := s.UpsertEntity(ctx, "a", "Alpha", "alpha", "concept", "", nil)
	require.NoError(t, err)
	b, _, err := s.UpsertEntity(ctx, "b", "Beta", "beta", "concept", "", nil)
	require.NoError(t, err)

	require.NoError(t, s.UpsertEdge(ctx, "edge-1", a, b, "RELATES_TO", 0.8))

	neighbors, err := s.Neighbors(ctx, a, 1)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, b, neighbors[0].ID)
}

func TestUpsertMemoryNode_HasMemoryNode(t *testing.T) {
	s := openTestStructuredStore(t)
	ctx := context.Background()

	found, err := s.HasMemoryNode(ctx, "mem-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.UpsertMemoryNode(ctx, "mem-1", "work"))

	found, err = s.HasMemoryNode(ctx, "mem-1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestFindEntitiesByNameSubstring_MatchesConceptLabels(t *testing.T) {
	s := openTestStructuredStore(t)
	ctx := context.Background()

	_, _, err := s.UpsertEntity(ctx, "e1", "PythonScript", "pythonscript", "technology", "", nil)
	require.NoError(t, err)
	_, _, err = s.UpsertEntity(ctx, "e2", "Rust", "rust", "technology", "", nil)
	require.NoError(t, err)

	found, err := s.FindEntitiesByNameSubstring(ctx, []string{"python"}, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "pythonscript", found[0].NameNorm)
}

func TestMemoriesRelatedTo_FollowsRelatesToEdges(t *testing.T) {
	s := openTestStructuredStore(t)
	ctx := context.Background()

	entity, _, err := s.UpsertEntity(ctx, "e1", "Kubernetes", "kubernetes", "technology", "", nil)
	require.NoError(t, err)
	require.NoError(t, s.UpsertEdge(ctx, "edge-1", "mem-1", entity, "RELATES_TO", 1.0))

	memIDs, err := s.MemoriesRelatedTo(ctx, []string{entity})
	require.NoError(t, err)
	assert.Equal(t, []string{"mem-1"}, memIDs)
}

func TestConnectionCount_CountsEdgesInEitherDirection(t *testing.T) {
	s := openTestStructuredStore(t)
	ctx := context.Background()

	a, _, err := s.UpsertEntity(ctx, "a", "Alpha", "alpha", "concept", "", nil)
	require.NoError(t, err)
	b, _, err := s.UpsertEntity(ctx, "b", "Beta", "beta", "concept", "", nil)
	require.NoError(t, err)
	require.NoError(t, s.UpsertEdge(ctx, "edge-1", a, b, "RELATES_TO", 0.5))

	count, err := s.ConnectionCount(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = s.ConnectionCount(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDeleteEntity_CascadesEdges(t *testing.T) {
	s := openTestStructuredStore(t)
	ctx := context.Background()

	a, _, err := s.UpsertEntity(ctx, "a", "Alpha", "alpha", "concept", "", nil)
	require.NoError(t, err)
	b, _, err := s.UpsertEntity(ctx, "b", "Beta", "beta", "concept", "", nil)
	require.NoError(t, err)
	require.NoError(t, s.UpsertEdge(ctx, "edge-1", a, b, "RELATES_TO", 0.5))

	require.NoError(t, s.DeleteEntity(ctx, a))

	_, found, err := s.GetEntity(ctx, a)
	require.NoError(t, err)
	assert.False(t, found)

	count, err := s.ConnectionCount(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
