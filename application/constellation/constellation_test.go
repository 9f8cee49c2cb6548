package constellation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elefante-ai/elefante/application/retrieval"
	"github.com/elefante-ai/elefante/domain/memory"
)

func newResult(t *testing.T, title string, score float64, conceptScore float64) retrieval.Result {
	t.Helper()
	m, err := memory.NewMemory("content for " + title)
	require.NoError(t, err)
	require.NoError(t, m.Curate(title, "summary", []string{"a"}, nil,
		memory.LayerWorld, memory.SublayerFact, memory.TypeFact, "work", 5, 0.5))

	return retrieval.Result{
		Memory: m,
		Score:  score,
		Source: "semantic",
		Explanation: &retrieval.Explanation{
			Composite: score,
			Signals: []retrieval.Signal{
				{Name: "concept_overlap", Score: conceptScore},
			},
		},
	}
}

func TestAssemble_EmptyResultsReturnsZeroValue(t *testing.T) {
	c := Assemble(nil, nil, nil)
	assert.Empty(t, c.Synthesis)
}

func TestAssemble_FirstResultIsAlwaysPrimary(t *testing.T) {
	primary := newResult(t, "primary.fact: x", 0.9, 0.1)
	other := newResult(t, "other.fact: y", 0.6, 0.1)
	c := Assemble([]retrieval.Result{primary, other}, nil, nil)
	assert.Equal(t, primary.Memory.ID(), c.Primary.Memory.ID())
}

func TestAssemble_ContradictionsTakePrecedenceOverSupports(t *testing.T) {
	primary := newResult(t, "primary.fact: x", 0.9, 0.1)
	conflicting := newResult(t, "conflicting.fact: y", 0.8, 0.1)

	contradictions := map[string]bool{conflicting.Memory.ID().String(): true}
	supports := map[string]bool{conflicting.Memory.ID().String(): true}

	c := Assemble([]retrieval.Result{primary, conflicting}, contradictions, supports)
	require.Len(t, c.Contradicting, 1)
	assert.Empty(t, c.Supporting)
}

func TestAssemble_HighConceptOverlapBecomesContext(t *testing.T) {
	primary := newResult(t, "primary.fact: x", 0.9, 0.1)
	related := newResult(t, "related.fact: y", 0.4, 0.6)

	c := Assemble([]retrieval.Result{primary, related}, nil, nil)
	require.Len(t, c.Context, 1)
	assert.Empty(t, c.Supporting)
}

func TestAssemble_HighCompositeWithLowOverlapBecomesSupporting(t *testing.T) {
	primary := newResult(t, "primary.fact: x", 0.9, 0.1)
	strong := newResult(t, "strong.fact: y", 0.7, 0.1)

	c := Assemble([]retrieval.Result{primary, strong}, nil, nil)
	require.Len(t, c.Supporting, 1)
}

func TestAssemble_LowCompositeLowOverlapIsDropped(t *testing.T) {
	primary := newResult(t, "primary.fact: x", 0.9, 0.1)
	weak := newResult(t, "weak.fact: y", 0.2, 0.1)

	c := Assemble([]retrieval.Result{primary, weak}, nil, nil)
	assert.Empty(t, c.Supporting)
	assert.Empty(t, c.Context)
	assert.Empty(t, c.Contradicting)
}

func TestAssemble_CapsSupportingAtThree(t *testing.T) {
	primary := newResult(t, "primary.fact: x", 0.9, 0.1)
	results := []retrieval.Result{primary}
	for i := 0; i < 5; i++ {
		results = append(results, newResult(t, "support.fact: y", 0.6, 0.1))
	}

	c := Assemble(results, nil, nil)
	assert.Len(t, c.Supporting, maxSupporting)
}

func TestAssemble_SynthesisIncludesPrimaryAndSections(t *testing.T) {
	primary := newResult(t, "primary.fact: x", 0.87, 0.1)
	strong := newResult(t, "strong.fact: y", 0.7, 0.1)

	c := Assemble([]retrieval.Result{primary, strong}, nil, nil)
	assert.Contains(t, c.Synthesis, "Primary: primary.fact: x (confidence: 0.87)")
	assert.Contains(t, c.Synthesis, "Supported by: strong.fact: y")
}
