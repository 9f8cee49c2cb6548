// Package retrieval implements C6: analyze the query, gather candidates
// from the semantic store, the structured store, and (optionally) a
// short-term conversation buffer, score every candidate on six weighted
// signals, and return an explained, deduplicated, access-tracked result
// list (spec.md §4.3). Candidate ranking is grounded on
// domain/services/edge_discovery.go's threshold/rank/filter shape; the
// weighted-linear-combination scoring is grounded on
// original_source/src/core/scoring.py.
package retrieval

import (
	"context"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/elefante-ai/elefante/domain/memory"
	elefanteerr "github.com/elefante-ai/elefante/internal/errors"
	"github.com/elefante-ai/elefante/infrastructure/embedding"
	"github.com/elefante-ai/elefante/infrastructure/observability"
	"github.com/elefante-ai/elefante/infrastructure/persistence/sqlite"
	"github.com/elefante-ai/elefante/infrastructure/resilience"
)

// Mode selects which stores the engine draws candidates from.
type Mode string

const (
	ModeSemantic   Mode = "semantic"
	ModeStructured Mode = "structured"
	ModeHybrid     Mode = "hybrid"
)

const (
	defaultLimit        = 10
	maxLimit            = 100
	nearIdenticalCosine = 0.95
)

// Options tunes one Search call.
type Options struct {
	Limit              int
	Filters            map[string]string
	IncludeExplanation bool
	SessionID          string
}

// Result is one scored, sourced, optionally explained candidate — spec.md
// §6.1's SearchResult.
type Result struct {
	Memory        *memory.Memory
	Score         float64
	Source        string
	VectorScore   *float64
	GraphScore    *float64
	Explanation   *Explanation
}

// Engine is C6.
type Engine struct {
	semantic    SemanticStore
	structured  StructuredStore
	embedder    EmbeddingProvider
	coact       *CoactivationMatrix
	conv        *ConversationBuffer
	weights     Weights
	logger      *zap.Logger
	metrics     *observability.Metrics
	breaker     *resilience.StoreBreaker
}

func NewEngine(semantic SemanticStore, structured StructuredStore, embedder EmbeddingProvider, coact *CoactivationMatrix, conv *ConversationBuffer, weights Weights, logger *zap.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		semantic: semantic, structured: structured, embedder: embedder,
		coact: coact, conv: conv, weights: weights, logger: logger, metrics: metrics,
		breaker: resilience.NewStoreBreaker("semantic_store"),
	}
}

type candidate struct {
	row       sqlite.SemanticRow
	mem       *memory.Memory
	vectorSim float64
	sources   map[string]bool
}

// scoredCandidate pairs a candidate with its composite score and full
// explanation, carried through sorting and deduplication together so the
// two never drift apart.
type scoredCandidate struct {
	id  string
	cp  *candidate
	sc  float64
	exp Explanation
}

// Search implements §4.3's full algorithm for the given mode.
func (e *Engine) Search(ctx context.Context, query string, mode Mode, opts Options) ([]Result, error) {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.SearchLatency.Observe(time.Since(start).Seconds())
		}
	}()

	if query == "" {
		return nil, elefanteerr.NewValidation("query cannot be empty")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	analysis, err := Analyze(ctx, query, e.embedder)
	if err != nil {
		return nil, elefanteerr.NewStoreUnavailable("embedding_provider", err)
	}

	candidates, err := e.gatherCandidates(ctx, analysis, mode, limit, opts)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	peerIDs := make([]string, 0, len(candidates))
	for id := range candidates {
		peerIDs = append(peerIDs, id)
	}

	results := make([]scoredCandidate, 0, len(candidates))
	for id, c := range candidates {
		daysCreated, daysAccessed := memoryDaysSince(c.mem)
		in := signalInputs{
			VectorSimilarity: c.vectorSim,
			QueryConcepts:    analysis.Concepts,
			MemoryConcepts:   c.mem.Concepts(),
			QueryDomain:      analysis.InferredDomain,
			MemoryDomain:     c.mem.Domain(),
			CoactivationSum:  e.coact.SumWith(id, peerIDs),
			Importance:       c.mem.Importance(),
			AccessCount:      c.mem.AccessCount(),
			DaysSinceAccessed: daysAccessed,
			DaysSinceCreated:  daysCreated,
		}
		composite, exp := ScoreCandidate(in, e.weights)
		results = append(results, scoredCandidate{id: id, cp: c, sc: composite, exp: exp})
	}

	results = dedupeNearIdentical(results)

	sort.Slice(results, func(i, j int) bool { return results[i].sc > results[j].sc })
	if len(results) > limit {
		results = results[:limit]
	}

	topIDs := make([]string, 0, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		topIDs = append(topIDs, r.id)
		res := Result{
			Memory: r.cp.mem,
			Score:  r.sc,
			Source: sourceLabel(r.cp.sources),
		}
		if v, ok := r.cp.sources["semantic"]; ok && v {
			vs := r.cp.vectorSim
			res.VectorScore = &vs
		}
		if g, ok := r.cp.sources["graph"]; ok && g {
			gs := graphScoreOf(r.exp)
			res.GraphScore = &gs
		}
		if opts.IncludeExplanation {
			exp := r.exp
			res.Explanation = &exp
		}
		out = append(out, res)
	}

	e.coact.RecordTopK(topIDs)
	e.trackAccess(ctx, topIDs)
	e.conv.Record(opts.SessionID, topIDs)

	e.logger.Debug("search completed",
		zap.String("query", query), zap.String("mode", string(mode)), zap.Int("results", len(out)))
	return out, nil
}

func graphScoreOf(exp Explanation) float64 {
	for _, s := range exp.Signals {
		if s.Name == "concept_overlap" {
			return s.Score
		}
	}
	return 0
}

func sourceLabel(sources map[string]bool) string {
	count := 0
	var last string
	for name, present := range sources {
		if present {
			count++
			last = name
		}
	}
	if count == 1 {
		return last
	}
	return "hybrid"
}

// gatherCandidates implements §4.3 step 2: k-NN from C2 (k=2*limit in
// semantic mode; in hybrid mode k is sized from the adaptive source
// weights, never below limit), neighborhood expansion from C3 keyed on concept-name matches, and an
// optional conversation buffer pull — then merges them into one map keyed
// by memory id, recording every source each candidate arrived through.
func (e *Engine) gatherCandidates(ctx context.Context, analysis QueryAnalysis, mode Mode, limit int, opts Options) (map[string]*candidate, error) {
	out := make(map[string]*candidate)
	includeArchived := opts.Filters["include_archived"] == "true"

	// §4.3 step 4: adaptive source weights only resize each source's
	// candidate-pool quota (P3); they never multiply into the composite
	// score computed later, which stays a pure function of the six fixed
	// signal weights (P1).
	sw := AdaptiveSourceWeights(analysis.Raw, opts.SessionID != "")
	semanticK := int(float64(2*limit) * (sw.Semantic / (sw.Semantic + sw.Graph)))
	if semanticK < limit {
		semanticK = limit
	}
	graphLimit := int(float64(limit) * (sw.Graph / (sw.Semantic + sw.Graph) * 2))
	if graphLimit < 1 {
		graphLimit = 1
	}
	conversationQuota := int(sw.Conversation * float64(conversationBufferCap))
	if conversationQuota < 1 {
		conversationQuota = 1
	}

	addRow := func(row sqlite.SemanticRow, vectorSim float64, source string) {
		if !includeArchived && row.Metadata["archived"] == "true" {
			return
		}
		if c, ok := out[row.ID]; ok {
			c.sources[source] = true
			return
		}
		id, err := memory.NewMemoryIDFromString(row.ID)
		if err != nil {
			return
		}
		m, err := memory.FromMetadata(id, row.Content, row.Metadata)
		if err != nil {
			return
		}
		out[row.ID] = &candidate{row: row, mem: m, vectorSim: vectorSim, sources: map[string]bool{source: true}}
	}

	if mode == ModeSemantic || mode == ModeHybrid {
		k := 2 * limit
		if mode == ModeHybrid {
			k = semanticK
		}
		filter := sqlite.KNNFilter{}
		for key, v := range opts.Filters {
			if key == "include_archived" {
				continue
			}
			filter[key] = v
		}
		var knnResults []sqlite.KNNResult
		err := e.breaker.Call(ctx, func(ctx context.Context) error {
			var callErr error
			knnResults, callErr = e.semantic.KNN(ctx, analysis.Embedding, k, filter)
			return callErr
		})
		if err != nil {
			return nil, err
		}
		for _, r := range knnResults {
			row := sqlite.SemanticRow{ID: r.ID, Content: r.Content, Metadata: r.Metadata}
			// KNNResult carries no vector; dedupeNearIdentical needs it.
			if full, found, err := e.semantic.Get(ctx, r.ID); err == nil && found {
				row.Vector = full.Vector
			}
			addRow(row, r.Similarity, "semantic")
		}
	}

	if mode == ModeStructured || mode == ModeHybrid {
		entityLimit := limit
		if mode == ModeHybrid {
			entityLimit = graphLimit
		}
		entities, err := e.structured.FindEntitiesByNameSubstring(ctx, analysis.Concepts, entityLimit)
		if err != nil {
			e.logger.Warn("structured candidate gathering failed", zap.Error(err))
		} else if len(entities) > 0 {
			entityIDs := make([]string, 0, len(entities))
			for _, ent := range entities {
				entityIDs = append(entityIDs, ent.ID)
			}
			memIDs, err := e.structured.MemoriesRelatedTo(ctx, entityIDs)
			if err != nil {
				e.logger.Warn("structured neighborhood expansion failed", zap.Error(err))
			}
			for _, id := range memIDs {
				row, found, err := e.semantic.Get(ctx, id)
				if err != nil || !found {
					continue
				}
				sim := embedding.CosineSimilarity(analysis.Embedding, row.Vector)
				addRow(row, sim, "graph")
			}
		}
	}

	if mode == ModeHybrid && opts.SessionID != "" {
		recent := e.conv.Recent(opts.SessionID)
		if len(recent) > conversationQuota {
			recent = recent[len(recent)-conversationQuota:]
		}
		for _, id := range recent {
			row, found, err := e.semantic.Get(ctx, id)
			if err != nil || !found {
				continue
			}
			sim := embedding.CosineSimilarity(analysis.Embedding, row.Vector)
			addRow(row, sim, "conversation")
		}
	}

	return out, nil
}

// trackAccess implements §4.3 step 8: increment access_count and set
// last_accessed for every returned memory, as one batched logical write.
func (e *Engine) trackAccess(ctx context.Context, ids []string) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, id := range ids {
		row, found, err := e.semantic.Get(ctx, id)
		if err != nil || !found {
			continue
		}
		accessCount := 0
		if v, ok := row.Metadata["access_count"]; ok {
			accessCount, _ = strconv.Atoi(v)
		}
		patch := map[string]string{
			"access_count":  strconv.Itoa(accessCount + 1),
			"last_accessed": now,
		}
		if err := e.semantic.UpdateMetadata(ctx, id, patch); err != nil {
			e.logger.Warn("access tracking write failed", zap.String("memory_id", id), zap.Error(err))
		}
	}
}

// dedupeNearIdentical implements §4.3 step 5: group candidates whose
// memory vectors are cosine >= 0.95 similar, keep the highest-scored, and
// merge the union of sources into the survivor.
func dedupeNearIdentical(results []scoredCandidate) []scoredCandidate {
	kept := make([]scoredCandidate, 0, len(results))
	consumed := make([]bool, len(results))

	for i := range results {
		if consumed[i] {
			continue
		}
		best := results[i]
		for j := i + 1; j < len(results); j++ {
			if consumed[j] {
				continue
			}
			sim := embedding.CosineSimilarity(results[i].cp.row.Vector, results[j].cp.row.Vector)
			if sim < nearIdenticalCosine {
				continue
			}
			consumed[j] = true
			for src := range results[j].cp.sources {
				best.cp.sources[src] = true
			}
			if results[j].sc > best.sc {
				survivorSources := best.cp.sources
				best = results[j]
				for src := range survivorSources {
					best.cp.sources[src] = true
				}
			}
		}
		kept = append(kept, best)
	}
	return kept
}
