package writecoordinator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/elefante-ai/elefante/application/curator"
	"github.com/elefante-ai/elefante/domain/graph"
	"github.com/elefante-ai/elefante/domain/memory"
	elefanteerr "github.com/elefante-ai/elefante/internal/errors"
	"github.com/elefante-ai/elefante/infrastructure/observability"
	"github.com/elefante-ai/elefante/infrastructure/persistence/sqlite"
	"github.com/elefante-ai/elefante/infrastructure/resilience"
)

// nearDuplicateThreshold is spec.md §3/§4.2's cosine similarity threshold
// for classifying CONTRADICTORY, confirmed by
// original_source/src/core/deduplication.py's default 0.95 for
// ResultDeduplicator, but spec.md §3 states 0.90 for this specific check;
// the two thresholds serve different purposes (dedup merge vs. conflict
// flagging) and are kept distinct — see DESIGN.md.
const nearDuplicateThreshold = 0.90

// EntityInput names one entity the caller wants the new memory connected
// to, created-or-fetched by (normalized name, type).
type EntityInput struct {
	Name string
	Type graph.EntityType
}

// IngestMetadata is the optional metadata bag spec.md §6.1's add_memory
// table names: domain, category, intent, confidence, source, session_id.
type IngestMetadata struct {
	Domain    string
	Category  string
	Intent    string
	Confidence string
	Source    string
	SessionID string
}

// AddMemoryRequest is the coordinator's single public operation's input.
type AddMemoryRequest struct {
	Content    string
	Type       *memory.Type
	Importance *int
	Tags       []string
	Entities   []EntityInput
	Metadata   IngestMetadata
}

// AddMemoryResult is the coordinator's single public operation's output.
type AddMemoryResult struct {
	MemoryID       memory.MemoryID
	Classification memory.Classification
	ExistingID     memory.MemoryID // populated for REDUNDANT/CONTRADICTORY
}

// Coordinator is C5. Every memory mutation other than access tracking
// passes through it (domain invariant, spec.md §3).
type Coordinator struct {
	semantic   SemanticStore
	structured StructuredStore
	embedder   EmbeddingProvider
	curator    *curator.Curator
	logger     *zap.Logger
	metrics    *observability.Metrics

	semanticBreaker   *resilience.StoreBreaker
	structuredBreaker *resilience.StoreBreaker
}

func NewCoordinator(semantic SemanticStore, structured StructuredStore, embedder EmbeddingProvider, c *curator.Curator, logger *zap.Logger, metrics *observability.Metrics) *Coordinator {
	return &Coordinator{
		semantic: semantic, structured: structured, embedder: embedder, curator: c,
		logger: logger, metrics: metrics,
		semanticBreaker:   resilience.NewStoreBreaker("semantic_store"),
		structuredBreaker: resilience.NewStoreBreaker("structured_store"),
	}
}

// AddMemory implements spec.md §4.2's 7-step algorithm.
func (c *Coordinator) AddMemory(ctx context.Context, req AddMemoryRequest) (AddMemoryResult, error) {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.IngestLatency.Observe(time.Since(start).Seconds())
		}
	}()

	// Step 1: normalize content.
	if req.Content == "" {
		return AddMemoryResult{}, elefanteerr.NewValidation("memory content cannot be empty")
	}
	normalized := memory.NormalizeContent(req.Content)

	// Step 2: exact-duplicate check.
	var existing sqlite.SemanticRow
	var found bool
	err := c.semanticBreaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		existing, found, callErr = c.semantic.FindByNormalizedContent(ctx, normalized)
		return callErr
	})
	if err != nil {
		return AddMemoryResult{}, err
	}
	if found {
		existingID, _ := memory.NewMemoryIDFromString(existing.ID)
		c.logger.Debug("add_memory: exact duplicate", zap.String("existing_id", existing.ID))
		return AddMemoryResult{Classification: memory.ClassificationRedundant, ExistingID: existingID}, nil
	}

	// Step 3: near-duplicate check via embedding + top-1 cosine.
	vector, err := c.embedder.Embed(ctx, req.Content)
	if err != nil {
		return AddMemoryResult{}, elefanteerr.NewStoreUnavailable("embedding_provider", err)
	}

	var topMatches []sqlite.KNNResult
	err = c.semanticBreaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		topMatches, callErr = c.semantic.KNN(ctx, vector, 1, nil)
		return callErr
	})
	if err != nil {
		return AddMemoryResult{}, err
	}
	if len(topMatches) > 0 && topMatches[0].Similarity >= nearDuplicateThreshold {
		top := topMatches[0]
		if memory.NormalizeContent(top.Content) != normalized {
			conflictingID, _ := memory.NewMemoryIDFromString(top.ID)
			c.logger.Debug("add_memory: near-duplicate flagged contradictory",
				zap.String("conflicting_id", top.ID), zap.Float64("similarity", top.Similarity))
			return AddMemoryResult{Classification: memory.ClassificationContradictory, ExistingID: conflictingID}, nil
		}
	}

	// Step 4: curate.
	curation := c.curator.Curate(req.Content)
	memType := curation.MemoryType
	if req.Type != nil {
		memType = *req.Type
	}
	importance := curation.Importance
	if req.Importance != nil {
		importance = *req.Importance
	}
	domain := curation.Domain
	if req.Metadata.Domain != "" {
		domain = req.Metadata.Domain
	}
	authority := memory.ComputeAuthority(importance, 0, 0, 0)

	m, err := memory.NewMemory(req.Content)
	if err != nil {
		return AddMemoryResult{}, err
	}
	if err := m.Curate(curation.Title, curation.Summary, curation.Concepts, curation.SurfacesWhen,
		curation.Layer, curation.Sublayer, memType, domain, importance, authority); err != nil {
		return AddMemoryResult{}, err
	}
	m.AttachTags(req.Tags)
	if req.Metadata.Category != "" {
		m.SetCustomValue("category", req.Metadata.Category)
	}
	if req.Metadata.Intent != "" {
		m.SetCustomValue("intent", req.Metadata.Intent)
	}
	if req.Metadata.Confidence != "" {
		m.SetCustomValue("confidence", req.Metadata.Confidence)
	}
	if req.Metadata.Source != "" {
		m.SetCustomValue("source", req.Metadata.Source)
	}
	if req.Metadata.SessionID != "" {
		m.SetCustomValue("session_id", req.Metadata.SessionID)
	}

	// Step 6 (entities) is resolved before persist so the memory's entity
	// list is complete in the first semantic-store write.
	entityIDs, err := c.upsertEntities(ctx, req.Entities)
	if err != nil {
		// Structured-store failure during entity resolution is logged, not
		// surfaced — spec.md §4.2's failure semantics: the semantic store
		// remains the source of truth for existence.
		c.logger.Warn("add_memory: entity resolution failed, continuing without entities", zap.Error(err))
		entityIDs = nil
	}
	m.AttachEntities(entityIDs)

	// Step 5: persist semantic row.
	row := sqlite.SemanticRow{
		ID:       m.ID().String(),
		Content:  m.Content(),
		Vector:   vector,
		Metadata: m.ToMetadata(),
	}
	err = c.semanticBreaker.Call(ctx, func(ctx context.Context) error {
		return c.semantic.Upsert(ctx, row)
	})
	if err != nil {
		return AddMemoryResult{}, err
	}

	// Step 6: structured-store mirror + RELATES_TO edges. A failure here is
	// a partial write: logged, not surfaced — the reconciler heals it.
	err = c.structuredBreaker.Call(ctx, func(ctx context.Context) error {
		return c.structured.UpsertMemoryNode(ctx, m.ID().String(), m.Domain())
	})
	if err != nil {
		c.logger.Warn("add_memory: structured-store memory-node mirror failed (partial write)",
			zap.String("memory_id", m.ID().String()), zap.Error(err))
	} else {
		for _, eid := range entityIDs {
			relID := memory.NewRelationshipID()
			edgeErr := c.structuredBreaker.Call(ctx, func(ctx context.Context) error {
				return c.structured.UpsertEdge(ctx, relID.String(), m.ID().String(), eid.String(), string(graph.RelationRelatesTo), 1.0)
			})
			if edgeErr != nil {
				c.logger.Warn("add_memory: failed to connect memory to entity (partial write)",
					zap.String("memory_id", m.ID().String()), zap.String("entity_id", eid.String()), zap.Error(edgeErr))
			}
		}
	}

	// Step 7: return.
	c.logger.Info("add_memory: ingested",
		zap.String("memory_id", m.ID().String()), zap.String("layer", string(m.Layer())),
		zap.String("sublayer", string(m.Sublayer())), zap.Int("importance", m.Importance()))
	return AddMemoryResult{MemoryID: m.ID(), Classification: memory.ClassificationNew}, nil
}

// upsertEntities resolves each requested entity to an id via the
// structured store's create-or-get, returning the resolved EntityIDs.
func (c *Coordinator) upsertEntities(ctx context.Context, inputs []EntityInput) ([]memory.EntityID, error) {
	ids := make([]memory.EntityID, 0, len(inputs))
	for _, in := range inputs {
		if in.Name == "" {
			continue
		}
		if !in.Type.IsValid() {
			in.Type = graph.EntityTypeConcept
		}
		candidate := memory.NewEntityID()
		nameNorm := graph.NormalizeEntityName(in.Name)
		var resolved string
		err := c.structuredBreaker.Call(ctx, func(ctx context.Context) error {
			id, _, callErr := c.structured.UpsertEntity(ctx, candidate.String(), in.Name, nameNorm, string(in.Type), "", nil)
			resolved = id
			return callErr
		})
		if err != nil {
			return ids, err
		}
		entityID, err := memory.NewEntityIDFromString(resolved)
		if err != nil {
			return ids, fmt.Errorf("resolved entity id %q invalid: %w", resolved, err)
		}
		ids = append(ids, entityID)
	}
	return ids, nil
}
