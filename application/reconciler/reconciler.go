// Package reconciler implements the idempotent, re-entrant background scan
// spec.md §9 calls out ("Cross-store transactions are not supported... A
// background reconciler... may rebuild missing graph rows from the semantic
// store"): it walks the semantic store and re-upserts a structured-store
// mirror for any id that is missing one.
package reconciler

import (
	"context"

	"go.uber.org/zap"

	"github.com/elefante-ai/elefante/infrastructure/persistence/sqlite"
)

// SemanticStore is the narrow read port the reconciler needs from the
// semantic store.
type SemanticStore interface {
	AllIDs(ctx context.Context) ([]sqlite.IDDomain, error)
}

// StructuredStore is the narrow port the reconciler needs from the
// structured store.
type StructuredStore interface {
	HasMemoryNode(ctx context.Context, id string) (bool, error)
	UpsertMemoryNode(ctx context.Context, id, domain string) error
}

// Reconciler repairs the structured-store mirror described in spec.md §3's
// invariant ("every memory has a corresponding node in the structured
// store"), healing partial writes left behind by cancellation or a crash
// mid-ingest (spec.md §9's "partial write" scenario).
type Reconciler struct {
	semantic   SemanticStore
	structured StructuredStore
	logger     *zap.Logger
}

func NewReconciler(semantic SemanticStore, structured StructuredStore, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{semantic: semantic, structured: structured, logger: logger}
}

// Report summarizes one Run.
type Report struct {
	Scanned int
	Healed  int
}

// Run scans every semantic-store id and re-upserts the structured mirror for
// any id missing one. Re-entrant: running it twice in a row with no
// intervening writes heals nothing the second time.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	ids, err := r.semantic.AllIDs(ctx)
	if err != nil {
		return Report{}, err
	}

	report := Report{Scanned: len(ids)}
	for _, row := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		has, err := r.structured.HasMemoryNode(ctx, row.ID)
		if err != nil {
			return report, err
		}
		if has {
			continue
		}
		if err := r.structured.UpsertMemoryNode(ctx, row.ID, row.Domain); err != nil {
			return report, err
		}
		report.Healed++
		r.logger.Info("reconciler healed missing structured mirror", zap.String("memory_id", row.ID))
	}
	return report, nil
}
