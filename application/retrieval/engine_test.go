package retrieval

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elefante-ai/elefante/domain/memory"
	"github.com/elefante-ai/elefante/infrastructure/embedding"
	"github.com/elefante-ai/elefante/infrastructure/persistence/sqlite"
)

func newTestEngine(t *testing.T) (*Engine, *sqlite.SemanticStore, *embedding.HashEmbedder) {
	t.Helper()
	semantic, err := sqlite.OpenSemanticStore(filepath.Join(t.TempDir(), "semantic.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = semantic.Close() })

	structured, err := sqlite.OpenStructuredStore(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = structured.Close() })

	embedder := embedding.NewHashEmbedder(64)
	weights := defaultWeights()
	engine := NewEngine(semantic, structured, embedder, NewCoactivationMatrix(), NewConversationBuffer(), weights, zap.NewNop(), nil)
	return engine, semantic, embedder
}

// seedMemory persists a memory row under a fresh, valid memory id (the
// engine rejects non-UUID ids when reconstructing candidates) and returns
// the id string so callers can assert against it.
func seedMemory(t *testing.T, semantic *sqlite.SemanticStore, embedder *embedding.HashEmbedder, content, domain string) string {
	t.Helper()
	id := memory.NewMemoryID().String()
	vec, err := embedder.Embed(context.Background(), content)
	require.NoError(t, err)
	require.NoError(t, semantic.Upsert(context.Background(), sqlite.SemanticRow{
		ID: id, Content: content, Vector: vec,
		Metadata: map[string]string{
			"domain": domain, "importance": "5", "access_count": "0",
			"created_at": "2020-01-01T00:00:00Z", "last_accessed": "2020-01-01T00:00:00Z",
		},
	}))
	return id
}

func TestSearch_EmptyQueryReturnsValidationError(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	_, err := engine.Search(context.Background(), "", ModeHybrid, Options{})
	require.Error(t, err)
}

func TestSearch_ReturnsExplanationWithSixSignalsWhenRequested(t *testing.T) {
	engine, semantic, embedder := newTestEngine(t)
	seedMemory(t, semantic, embedder, "python testing best practices", "work")

	results, err := engine.Search(context.Background(), "python testing", ModeSemantic, Options{IncludeExplanation: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Explanation)
	assert.Len(t, results[0].Explanation.Signals, 6)
}

func TestSearch_RecordsCoactivationAcrossTopK(t *testing.T) {
	engine, semantic, embedder := newTestEngine(t)
	id1 := seedMemory(t, semantic, embedder, "python indentation style guide", "work")
	id2 := seedMemory(t, semantic, embedder, "python testing style conventions", "work")

	_, err := engine.Search(context.Background(), "python style", ModeSemantic, Options{Limit: 5})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, engine.coact.Count(id1, id2), 1)
}

func TestSearch_TracksAccessCountOnReturnedResults(t *testing.T) {
	engine, semantic, embedder := newTestEngine(t)
	id := seedMemory(t, semantic, embedder, "deployment pipeline runs nightly", "work")

	_, err := engine.Search(context.Background(), "deployment pipeline", ModeSemantic, Options{})
	require.NoError(t, err)

	row, found, err := semantic.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1", row.Metadata["access_count"])
}

func TestSearch_ExcludesArchivedByDefault(t *testing.T) {
	engine, semantic, embedder := newTestEngine(t)
	id := memory.NewMemoryID().String()
	vec, err := embedder.Embed(context.Background(), "archived memory about python")
	require.NoError(t, err)
	require.NoError(t, semantic.Upsert(context.Background(), sqlite.SemanticRow{
		ID: id, Content: "archived memory about python", Vector: vec,
		Metadata: map[string]string{"archived": "true", "importance": "5", "access_count": "0"},
	}))

	results, err := engine.Search(context.Background(), "python", ModeSemantic, Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}
