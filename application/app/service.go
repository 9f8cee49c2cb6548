// Package app is the public API surface spec.md §6.1 names: the single
// facade a CLI, dashboard, or MCP adapter (all out of scope, specified only
// by interface here) calls into. It owns no algorithms of its own — it
// sequences C4 through C9 and the two store adapters the way the teacher's
// command/query handlers sequence aggregates and repositories, without
// reintroducing the CQRS bus machinery those handlers rode on (the mediator
// pipeline survives in application/mediator for the behaviors it models,
// not as a hard dependency of this facade).
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/elefante-ai/elefante/application/constellation"
	"github.com/elefante-ai/elefante/application/curator"
	"github.com/elefante-ai/elefante/application/health"
	"github.com/elefante-ai/elefante/application/proactive"
	"github.com/elefante-ai/elefante/application/reconciler"
	"github.com/elefante-ai/elefante/application/retrieval"
	"github.com/elefante-ai/elefante/application/writecoordinator"
	"github.com/elefante-ai/elefante/domain/graph"
	"github.com/elefante-ai/elefante/domain/memory"
	elefanteerr "github.com/elefante-ai/elefante/internal/errors"
	"github.com/elefante-ai/elefante/infrastructure/config"
	"github.com/elefante-ai/elefante/infrastructure/observability"
	"github.com/elefante-ai/elefante/infrastructure/persistence/sqlite"
)

// Service wires C4 (inside the coordinator and engine already), C5, C6,
// C7, C8, and C9 into the operation table spec.md §6.1 specifies.
type Service struct {
	semantic    *sqlite.SemanticStore
	structured  *sqlite.StructuredStore
	coordinator *writecoordinator.Coordinator
	engine      *retrieval.Engine
	reconciler  *reconciler.Reconciler
	cfg         *config.Config
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// New assembles a Service from already-opened stores and collaborators.
// Building the collaborators themselves is infrastructure/di's job.
func New(
	semantic *sqlite.SemanticStore,
	structured *sqlite.StructuredStore,
	coordinator *writecoordinator.Coordinator,
	engine *retrieval.Engine,
	rec *reconciler.Reconciler,
	cfg *config.Config,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		semantic: semantic, structured: structured,
		coordinator: coordinator, engine: engine, reconciler: rec,
		cfg: cfg, logger: logger, metrics: metrics,
	}
}

// AddMemory is spec.md §6.1's add_memory operation.
func (s *Service) AddMemory(ctx context.Context, req writecoordinator.AddMemoryRequest) (writecoordinator.AddMemoryResult, error) {
	return s.coordinator.AddMemory(ctx, req)
}

// Search is spec.md §6.1's search operation.
func (s *Service) Search(ctx context.Context, query string, mode retrieval.Mode, opts retrieval.Options) ([]retrieval.Result, error) {
	return s.engine.Search(ctx, query, mode, opts)
}

// Constellation is spec.md §6.1's constellation operation: run the same
// search §4.3 describes, then group the results into roles via C7. The
// contradiction map comes from C8's pairwise conflict detector restricted
// to the memories this search actually returned — cheaper than scanning
// the whole corpus on every query, and sufficient because Assemble only
// ever looks at ids present in the result set.
func (s *Service) Constellation(ctx context.Context, query string, mode retrieval.Mode, opts retrieval.Options) (constellation.Constellation, error) {
	opts.IncludeExplanation = true
	results, err := s.engine.Search(ctx, query, mode, opts)
	if err != nil {
		return constellation.Constellation{}, err
	}
	if len(results) == 0 {
		return constellation.Constellation{}, nil
	}

	memories := make([]*memory.Memory, 0, len(results))
	for _, r := range results {
		memories = append(memories, r.Memory)
	}
	threshold := 0.0
	if s.cfg != nil {
		threshold = s.cfg.Health.ConflictThreshold
	}
	conflicts := health.DetectConflicts(memories, threshold)

	primaryID := results[0].Memory.ID().String()
	contradictions := make(map[string]bool)
	for _, c := range conflicts {
		if c.MemoryA == primaryID {
			contradictions[c.MemoryB] = true
		}
		if c.MemoryB == primaryID {
			contradictions[c.MemoryA] = true
		}
	}

	return constellation.Assemble(results, contradictions, nil), nil
}

// Stats is spec.md §6.1's get_stats output: counts per store plus schema
// status.
type Stats struct {
	MemoryCount       int
	EntityCount       int
	RelationshipCount int
	MemoryNodeCount   int
	// SchemaConsistent is false when the structured-store mirror is
	// missing rows for memories the semantic store has (spec.md §3's
	// invariant, checked here rather than fully repaired — Reconcile does
	// the repair).
	SchemaConsistent bool
}

// GetStats is spec.md §6.1's get_stats operation.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	memCount, err := s.semantic.Count(ctx)
	if err != nil {
		return Stats{}, elefanteerr.NewStoreUnavailable("semantic_store", err)
	}
	entityCount, err := s.structured.CountEntities(ctx)
	if err != nil {
		return Stats{}, elefanteerr.NewStoreUnavailable("structured_store", err)
	}
	relCount, err := s.structured.CountRelationships(ctx)
	if err != nil {
		return Stats{}, elefanteerr.NewStoreUnavailable("structured_store", err)
	}
	nodeCount, err := s.structured.CountMemoryNodes(ctx)
	if err != nil {
		return Stats{}, elefanteerr.NewStoreUnavailable("structured_store", err)
	}
	return Stats{
		MemoryCount: memCount, EntityCount: entityCount,
		RelationshipCount: relCount, MemoryNodeCount: nodeCount,
		SchemaConsistent: nodeCount >= memCount,
	}, nil
}

// CreateEntity is spec.md §6.1's create_entity operation: create-or-get by
// (normalized name, type), per §3's Entity uniqueness invariant.
func (s *Service) CreateEntity(ctx context.Context, name string, entityType graph.EntityType, properties map[string]string) (memory.EntityID, error) {
	if !entityType.IsValid() {
		return memory.EntityID{}, elefanteerr.NewValidationf("invalid entity type %q", entityType)
	}
	candidate := memory.NewEntityID()
	nameNorm := graph.NormalizeEntityName(name)
	id, _, err := s.structured.UpsertEntity(ctx, candidate.String(), name, nameNorm, string(entityType), "", properties)
	if err != nil {
		return memory.EntityID{}, elefanteerr.NewStoreUnavailable("structured_store", err)
	}
	return memory.NewEntityIDFromString(id)
}

// CreateRelationship is spec.md §6.1's create_relationship operation.
func (s *Service) CreateRelationship(ctx context.Context, fromID, toID memory.EntityID, relType graph.RelationType, strength float64) (memory.RelationshipID, error) {
	rel, err := graph.NewRelationship(fromID.String(), toID.String(), relType, strength)
	if err != nil {
		return memory.RelationshipID{}, err
	}
	if err := s.structured.UpsertEdge(ctx, rel.ID().String(), rel.FromID(), rel.ToID(), string(rel.Type()), rel.Strength()); err != nil {
		return memory.RelationshipID{}, elefanteerr.NewStoreUnavailable("structured_store", err)
	}
	return rel.ID(), nil
}

// QueryGraph is spec.md §6.1's query_graph operation: a parameterized SQL
// join query over entities/edges/memory_nodes (no Cypher engine, per
// spec.md's Non-goal on a full graph query language).
func (s *Service) QueryGraph(ctx context.Context, query string, params ...interface{}) ([]sqlite.PatternRow, error) {
	rows, err := s.structured.RunPattern(ctx, query, params...)
	if err != nil {
		return nil, elefanteerr.NewStoreUnavailable("structured_store", err)
	}
	return rows, nil
}

// HealthReport is spec.md §6.1's health_report operation: per-memory
// status plus the corpus's pairwise conflict list (spec.md §4.5).
type HealthReport struct {
	Statuses  map[string]health.Assessment
	Conflicts []health.Conflict
}

func (s *Service) HealthReport(ctx context.Context) (HealthReport, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.HealthScanLatency.Observe(time.Since(start).Seconds())
		}
	}()

	rows, err := s.semantic.All(ctx)
	if err != nil {
		return HealthReport{}, elefanteerr.NewStoreUnavailable("semantic_store", err)
	}

	memories := make([]*memory.Memory, 0, len(rows))
	connectionCounts := make(map[string]int, len(rows))
	for _, row := range rows {
		id, err := memory.NewMemoryIDFromString(row.ID)
		if err != nil {
			continue
		}
		m, err := memory.FromMetadata(id, row.Content, row.Metadata)
		if err != nil {
			continue
		}
		if m.IsArchived() {
			continue
		}
		memories = append(memories, m)
		count, err := s.structured.ConnectionCount(ctx, row.ID)
		if err != nil {
			s.logger.Warn("health_report: connection count failed", zap.String("memory_id", row.ID), zap.Error(err))
			count = 0
		}
		connectionCounts[row.ID] = count
	}

	staleDays := 0
	conflictThreshold := 0.0
	if s.cfg != nil {
		staleDays = s.cfg.Health.StaleDays
		conflictThreshold = s.cfg.Health.ConflictThreshold
	}

	statuses := health.AssessAll(memories, connectionCounts, staleDays)
	conflicts := health.DetectConflicts(memories, conflictThreshold)

	if s.metrics != nil {
		counts := map[memory.HealthStatus]int{}
		for _, a := range statuses {
			counts[a.Status]++
		}
		for status, n := range counts {
			s.metrics.HealthStatusGauge.WithLabelValues(string(status)).Set(float64(n))
		}
	}

	return HealthReport{Statuses: statuses, Conflicts: conflicts}, nil
}

// ProactiveSurfaces is spec.md §6.1's proactive_surfaces operation. It
// scans the live (non-archived) corpus for trigger matches against
// current_context and the caller-supplied conversation domain and recent
// concepts (spec.md §4.6).
func (s *Service) ProactiveSurfaces(ctx context.Context, currentContext, conversationDomain string, recentConcepts []string) ([]proactive.Suggestion, error) {
	rows, err := s.semantic.All(ctx)
	if err != nil {
		return nil, elefanteerr.NewStoreUnavailable("semantic_store", err)
	}

	memories := make([]*memory.Memory, 0, len(rows))
	for _, row := range rows {
		id, err := memory.NewMemoryIDFromString(row.ID)
		if err != nil {
			continue
		}
		m, err := memory.FromMetadata(id, row.Content, row.Metadata)
		if err != nil || m.IsArchived() {
			continue
		}
		memories = append(memories, m)
	}

	cfg := proactive.Config{}
	if s.cfg != nil {
		cfg = proactive.Config{
			TemporalConfidence: s.cfg.Proactive.TemporalConfidence,
			DomainConfidence:   s.cfg.Proactive.DomainConfidence,
			ConceptConfidence:  s.cfg.Proactive.ConceptConfidence,
		}
	}
	return proactive.Surface(memories, currentContext, conversationDomain, recentConcepts, cfg), nil
}

// Reconcile runs the background reconciler sweep spec.md §9 describes:
// idempotent, re-entrant re-upsert of any structured-store mirror missing
// for a semantic-store memory.
func (s *Service) Reconcile(ctx context.Context) (reconciler.Report, error) {
	return s.reconciler.Run(ctx)
}

// NewCurator exposes C4 directly for callers (batch import tools, tests)
// that want curation without a full add_memory round trip.
func NewCurator() *curator.Curator { return curator.NewCurator() }

// Close releases both store handles. Teardown closes both store clients
// explicitly, per spec.md §5's process-wide-singleton lifecycle.
func (s *Service) Close() error {
	var firstErr error
	if err := s.semantic.Close(); err != nil {
		firstErr = fmt.Errorf("close semantic store: %w", err)
	}
	if err := s.structured.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close structured store: %w", err)
	}
	return firstErr
}
