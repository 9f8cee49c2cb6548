package curator

import (
	"math"
	"strings"
)

// SimilarityAlgorithm selects how two keyword/concept sets are compared.
type SimilarityAlgorithm string

const (
	AlgorithmJaccard SimilarityAlgorithm = "jaccard"
	AlgorithmCosine  SimilarityAlgorithm = "cosine"
	AlgorithmHybrid  SimilarityAlgorithm = "hybrid"
)

// SimilarityConfig configures SetSimilarity's set-overlap scoring. Neither
// the write coordinator's duplicate check nor the retrieval engine's
// concept_overlap signal goes through it.
type SimilarityConfig struct {
	Algorithm SimilarityAlgorithm
}

func DefaultSimilarityConfig() *SimilarityConfig {
	return &SimilarityConfig{Algorithm: AlgorithmHybrid}
}

// SetSimilarity scores the overlap of two normalized string sets.
func SetSimilarity(config *SimilarityConfig, set1, set2 []string) float64 {
	if config == nil {
		config = DefaultSimilarityConfig()
	}
	a := toSet(set1)
	b := toSet(set2)
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}
	switch config.Algorithm {
	case AlgorithmJaccard:
		return jaccard(a, b)
	case AlgorithmCosine:
		return cosine(a, b)
	default:
		return (jaccard(a, b) + cosine(a, b)) / 2.0
	}
}

// JaccardOverlap computes |A∩B| / |A∪B| directly — the exact form spec.md
// names for concept_overlap (§4.3) and conflict detection (§4.5).
func JaccardOverlap(set1, set2 []string) float64 {
	return jaccard(toSet(set1), toSet(set2))
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		normalized := strings.ToLower(strings.TrimSpace(it))
		if normalized != "" {
			set[normalized] = true
		}
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}
	intersection := 0
	union := make(map[string]bool, len(a)+len(b))
	for k := range a {
		union[k] = true
		if b[k] {
			intersection++
		}
	}
	for k := range b {
		union[k] = true
	}
	if len(union) == 0 {
		return 0.0
	}
	return float64(intersection) / float64(len(union))
}

func cosine(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	dot := 0
	for k := range a {
		if b[k] {
			dot++
		}
	}
	magA := math.Sqrt(float64(len(a)))
	magB := math.Sqrt(float64(len(b)))
	if magA == 0 || magB == 0 {
		return 0.0
	}
	return float64(dot) / (magA * magB)
}

// SharedItems returns the elements two sets have in common, for conflict
// detection's shared_concepts field and the curator's keyword matching.
func SharedItems(set1, set2 []string) []string {
	a := toSet(set1)
	b := toSet(set2)
	var shared []string
	for k := range a {
		if b[k] {
			shared = append(shared, k)
		}
	}
	return shared
}
