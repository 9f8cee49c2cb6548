package retrieval

import (
	"math"

	"github.com/elefante-ai/elefante/application/curator"
	"github.com/elefante-ai/elefante/domain/memory"
)

// Signal is one weighted contribution to a composite score, carrying
// enough detail to make the explanation provably faithful to the score
// (spec.md §4.3 step 6).
type Signal struct {
	Name     string
	Score    float64
	Weight   float64
	Weighted float64
	Reason   string
	Details  SignalDetails
}

// SignalDetails is signal-specific supporting evidence. Only Matched is
// populated today (concept_overlap, per §8 property P2); it is a struct
// rather than interface{} so every signal's explanation has a uniform
// shape regardless of which fields it fills in.
type SignalDetails struct {
	Matched []string
}

// Explanation is the full, six-signal breakdown of one candidate's
// composite score (spec.md §4.3 step 6 / §8 property P1).
type Explanation struct {
	Composite float64
	Signals   []Signal
}

// Weights are the six composite-score weights, normalized to sum to 1.0.
type Weights struct {
	Vector       float64
	Concept      float64
	Domain       float64
	Coactivation float64
	Authority    float64
	Temporal     float64
}

// signalInputs bundles everything ScoreCandidate needs to compute and
// explain all six signals for one candidate, kept in one struct so the
// weighted contributions used for the final score and for the explanation
// are computed from the exact same raw signal values (spec.md §9: "compute
// weighted contributions inside the scoring function, not re-derive them
// for the explanation").
type signalInputs struct {
	VectorSimilarity float64
	QueryConcepts    []string
	MemoryConcepts   []string
	QueryDomain      string
	MemoryDomain     string
	CoactivationSum  int // Σ coact(m, r) over recent/peer candidates
	Importance       int
	AccessCount      int
	DaysSinceAccessed float64
	DaysSinceCreated  float64
}

// ScoreCandidate computes §4.3 step 3's six signals and their weighted
// composite for one candidate, plus the faithful explanation of it.
func ScoreCandidate(in signalInputs, w Weights) (float64, Explanation) {
	vectorScore := clamp01(in.VectorSimilarity)

	conceptScore := curator.JaccardOverlap(in.QueryConcepts, in.MemoryConcepts)
	matched := curator.SharedItems(in.QueryConcepts, in.MemoryConcepts)

	domainScore := scoreDomainMatch(in.QueryDomain, in.MemoryDomain)

	coactScore := clamp01(float64(in.CoactivationSum) / 10.0)

	authorityScore := clamp01(0.6*(float64(in.Importance)/10.0) + 0.4*math.Min(1, safeLog(float64(in.AccessCount)+1)/safeLog(50)))

	temporalScore := clamp01(0.6*math.Exp(-0.05*in.DaysSinceAccessed) + 0.4*math.Exp(-0.007*in.DaysSinceCreated))

	signals := []Signal{
		{
			Name: "vector_similarity", Score: vectorScore, Weight: w.Vector, Weighted: w.Vector * vectorScore,
			Reason: "cosine similarity between query and memory embeddings",
		},
		{
			Name: "concept_overlap", Score: conceptScore, Weight: w.Concept, Weighted: w.Concept * conceptScore,
			Reason:  "Jaccard overlap of canonicalized concept sets",
			Details: SignalDetails{Matched: matched},
		},
		{
			Name: "domain_match", Score: domainScore, Weight: w.Domain, Weighted: w.Domain * domainScore,
			Reason: domainReason(in.QueryDomain, in.MemoryDomain, domainScore),
		},
		{
			Name: "coactivation", Score: coactScore, Weight: w.Coactivation, Weighted: w.Coactivation * coactScore,
			Reason: "frequency this memory has co-occurred with other results",
		},
		{
			Name: "authority", Score: authorityScore, Weight: w.Authority, Weighted: w.Authority * authorityScore,
			Reason: "importance and usage-derived standing",
		},
		{
			Name: "temporal", Score: temporalScore, Weight: w.Temporal, Weighted: w.Temporal * temporalScore,
			Reason: "recency of access and creation",
		},
	}

	composite := 0.0
	for _, s := range signals {
		composite += s.Weighted
	}
	composite = clamp01(composite)

	return composite, Explanation{Composite: composite, Signals: signals}
}

// scoreDomainMatch implements §4.3's domain_match table: 1 if equal, 0.3
// if both project:*, 0 otherwise, 0.5 if the query's domain is unknown.
func scoreDomainMatch(queryDomain, memoryDomain string) float64 {
	if queryDomain == "" {
		return 0.5
	}
	if queryDomain == memoryDomain {
		return 1.0
	}
	if isProjectDomain(queryDomain) && isProjectDomain(memoryDomain) {
		return 0.3
	}
	return 0.0
}

func domainReason(queryDomain, memoryDomain string, score float64) string {
	switch {
	case queryDomain == "":
		return "query domain unknown"
	case score == 1.0:
		return "domains match exactly"
	case score == 0.3:
		return "both domains are project-scoped"
	default:
		return "domains differ"
	}
}

func isProjectDomain(d string) bool {
	return len(d) > 8 && d[:8] == "project:"
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func safeLog(v float64) float64 {
	if v <= 0 {
		return 1e-9
	}
	return math.Log(v)
}

// memoryDaysSince exposes domain/memory.DaysSince for package callers that
// already depend on *memory.Memory.
func memoryDaysSince(m *memory.Memory) (daysCreated, daysAccessed float64) {
	return memory.DaysSince(m.CreatedAt()), memory.DaysSince(m.LastAccessed())
}
