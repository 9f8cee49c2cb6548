package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func defaultWeights() Weights {
	return Weights{Vector: 0.30, Concept: 0.20, Domain: 0.15, Coactivation: 0.15, Authority: 0.10, Temporal: 0.10}
}

func TestScoreCandidate_ExactlySixSignalsWeightedSumEqualsComposite(t *testing.T) {
	in := signalInputs{
		VectorSimilarity: 0.8,
		QueryConcepts:    []string{"python", "testing"},
		MemoryConcepts:   []string{"python", "testing", "api"},
		QueryDomain:      "work",
		MemoryDomain:     "work",
		CoactivationSum:  4,
		Importance:       7,
		AccessCount:      10,
		DaysSinceAccessed: 2,
		DaysSinceCreated:  10,
	}
	composite, exp := ScoreCandidate(in, defaultWeights())

	assert.Len(t, exp.Signals, 6)

	sum := 0.0
	for _, s := range exp.Signals {
		sum += s.Weighted
	}
	assert.InDelta(t, composite, sum, 0.001)
	assert.GreaterOrEqual(t, composite, 0.0)
	assert.LessOrEqual(t, composite, 1.0)
}

func TestScoreCandidate_ConceptOverlapDetailsMatchedIsPopulatedWhenPositive(t *testing.T) {
	in := signalInputs{
		QueryConcepts:  []string{"python", "testing"},
		MemoryConcepts: []string{"python", "api"},
		QueryDomain:    "",
	}
	_, exp := ScoreCandidate(in, defaultWeights())

	for _, s := range exp.Signals {
		if s.Name == "concept_overlap" {
			if s.Score > 0 {
				assert.NotEmpty(t, s.Details.Matched)
				for _, m := range s.Details.Matched {
					assert.Contains(t, in.QueryConcepts, m)
					assert.Contains(t, in.MemoryConcepts, m)
				}
			}
		}
	}
}

func TestScoreDomainMatch_Table(t *testing.T) {
	assert.Equal(t, 0.5, scoreDomainMatch("", "work"))
	assert.Equal(t, 1.0, scoreDomainMatch("work", "work"))
	assert.Equal(t, 0.3, scoreDomainMatch("project:alpha", "project:beta"))
	assert.Equal(t, 0.0, scoreDomainMatch("work", "personal"))
}

func TestComputeAuthoritySignal_MatchesDomainFormula(t *testing.T) {
	in := signalInputs{Importance: 10, AccessCount: 100}
	_, exp := ScoreCandidate(in, defaultWeights())
	for _, s := range exp.Signals {
		if s.Name == "authority" {
			assert.GreaterOrEqual(t, s.Score, 0.0)
			assert.LessOrEqual(t, s.Score, 1.0)
		}
	}
}

func TestClamp01_ClampsOutOfRangeValues(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-1))
	assert.Equal(t, 1.0, clamp01(2))
	assert.Equal(t, 0.5, clamp01(0.5))
}
