package reconciler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elefante-ai/elefante/infrastructure/persistence/sqlite"
)

func openTestStores(t *testing.T) (*sqlite.SemanticStore, *sqlite.StructuredStore) {
	t.Helper()
	semantic, err := sqlite.OpenSemanticStore(filepath.Join(t.TempDir(), "semantic.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = semantic.Close() })

	structured, err := sqlite.OpenStructuredStore(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = structured.Close() })

	return semantic, structured
}

func TestRun_HealsMissingStructuredMirror(t *testing.T) {
	semantic, structured := openTestStores(t)
	ctx := context.Background()

	require.NoError(t, semantic.Upsert(ctx, sqlite.SemanticRow{
		ID: "00000000-0000-0000-0000-000000000001", Content: "orphaned row", Vector: []float32{0.1, 0.2},
		Metadata: map[string]string{"domain": "work"},
	}))

	r := NewReconciler(semantic, structured, zap.NewNop())
	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Healed)

	has, err := structured.HasMemoryNode(ctx, "00000000-0000-0000-0000-000000000001")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestRun_IsIdempotentOnSecondRun(t *testing.T) {
	semantic, structured := openTestStores(t)
	ctx := context.Background()

	require.NoError(t, semantic.Upsert(ctx, sqlite.SemanticRow{
		ID: "00000000-0000-0000-0000-000000000002", Content: "row", Vector: []float32{0.1},
		Metadata: map[string]string{"domain": "personal"},
	}))

	r := NewReconciler(semantic, structured, zap.NewNop())
	_, err := r.Run(ctx)
	require.NoError(t, err)

	second, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Healed)
}

func TestRun_SkipsRowsAlreadyMirrored(t *testing.T) {
	semantic, structured := openTestStores(t)
	ctx := context.Background()

	require.NoError(t, semantic.Upsert(ctx, sqlite.SemanticRow{
		ID: "00000000-0000-0000-0000-000000000003", Content: "row", Vector: []float32{0.1},
		Metadata: map[string]string{"domain": "work"},
	}))
	require.NoError(t, structured.UpsertMemoryNode(ctx, "00000000-0000-0000-0000-000000000003", "work"))

	r := NewReconciler(semantic, structured, zap.NewNop())
	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Healed)
}

func TestRun_EmptySemanticStoreScansNothing(t *testing.T) {
	semantic, structured := openTestStores(t)
	r := NewReconciler(semantic, structured, zap.NewNop())
	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Scanned)
	assert.Equal(t, 0, report.Healed)
}
