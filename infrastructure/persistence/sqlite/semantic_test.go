package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elefante-ai/elefante/domain/memory"
)

func openTestSemanticStore(t *testing.T) *SemanticStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "semantic.db")
	s, err := OpenSemanticStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsert_GetRoundTrip(t *testing.T) {
	s := openTestSemanticStore(t)
	ctx := context.Background()

	row := SemanticRow{
		ID:       "mem-1",
		Content:  "User prefers 4 spaces for Python indentation",
		Vector:   []float32{0.1, 0.2, 0.3},
		Metadata: map[string]string{"domain": "work"},
	}
	require.NoError(t, s.Upsert(ctx, row))

	got, found, err := s.Get(ctx, "mem-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, row.Content, got.Content)
	assert.Equal(t, row.Vector, got.Vector)
	assert.Equal(t, "work", got.Metadata["domain"])
}

func TestFindByNormalizedContent_IgnoresTrailingPunctuationAndCase(t *testing.T) {
	s := openTestSemanticStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, SemanticRow{
		ID: "mem-1", Content: "User prefers 4 spaces for Python indentation",
		Vector: []float32{0.1}, Metadata: map[string]string{},
	}))

	normalized := memory.NormalizeContent("User prefers 4 spaces for Python indentation.")
	got, found, err := s.FindByNormalizedContent(ctx, normalized)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "mem-1", got.ID)
}

func TestKNN_ReturnsTopKByCosineSimilarity(t *testing.T) {
	s := openTestSemanticStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, SemanticRow{ID: "close", Content: "a", Vector: []float32{1, 0, 0}, Metadata: map[string]string{}}))
	require.NoError(t, s.Upsert(ctx, SemanticRow{ID: "far", Content: "b", Vector: []float32{0, 1, 0}, Metadata: map[string]string{}}))
	require.NoError(t, s.Upsert(ctx, SemanticRow{ID: "mid", Content: "c", Vector: []float32{0.7, 0.7, 0}, Metadata: map[string]string{}}))

	results, err := s.KNN(ctx, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "close", results[0].ID)
}

func TestKNN_RespectsMetadataFilter(t *testing.T) {
	s := openTestSemanticStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, SemanticRow{ID: "work-1", Content: "a", Vector: []float32{1, 0}, Metadata: map[string]string{"domain": "work"}}))
	require.NoError(t, s.Upsert(ctx, SemanticRow{ID: "personal-1", Content: "b", Vector: []float32{1, 0}, Metadata: map[string]string{"domain": "personal"}}))

	results, err := s.KNN(ctx, []float32{1, 0}, 10, KNNFilter{"domain": "work"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "work-1", results[0].ID)
}

func TestUpdateMetadata_MergesPatchIntoExisting(t *testing.T) {
	s := openTestSemanticStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, SemanticRow{ID: "mem-1", Content: "a", Vector: []float32{1}, Metadata: map[string]string{"domain": "work"}}))
	require.NoError(t, s.UpdateMetadata(ctx, "mem-1", map[string]string{"access_count": "1"}))

	got, found, err := s.Get(ctx, "mem-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "work", got.Metadata["domain"])
	assert.Equal(t, "1", got.Metadata["access_count"])
}

func TestCount_ReflectsUpsertsAndDeletes(t *testing.T) {
	s := openTestSemanticStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, SemanticRow{ID: "mem-1", Content: "a", Vector: []float32{1}, Metadata: map[string]string{}}))
	require.NoError(t, s.Upsert(ctx, SemanticRow{ID: "mem-2", Content: "b", Vector: []float32{1}, Metadata: map[string]string{}}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Delete(ctx, "mem-1"))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
