package proactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elefante-ai/elefante/domain/memory"
)

func newMemory(t *testing.T, title, domain string, concepts, surfacesWhen []string) *memory.Memory {
	t.Helper()
	m, err := memory.NewMemory("content for " + title)
	require.NoError(t, err)
	require.NoError(t, m.Curate(title, "summary", concepts, surfacesWhen,
		memory.LayerWorld, memory.SublayerFact, memory.TypeFact, domain, 5, 0.5))
	return m
}

func TestSurface_TemporalMatchWinsOverOtherTriggers(t *testing.T) {
	m := newMemory(t, "deploy.fact: x", "work", []string{"python", "testing"}, []string{"deploy failing"})
	out := Surface([]*memory.Memory{m}, "the deploy is failing again", "work", []string{"python", "testing"}, Config{})
	require.Len(t, out, 1)
	assert.Equal(t, TriggerTemporal, out[0].Trigger)
	assert.Equal(t, 0.7, out[0].Confidence)
}

func TestSurface_DomainMatchWhenNoTemporalHit(t *testing.T) {
	m := newMemory(t, "pref.fact: x", "work", []string{"meetings"}, []string{"standup"})
	out := Surface([]*memory.Memory{m}, "totally unrelated context", "work", nil, Config{})
	require.Len(t, out, 1)
	assert.Equal(t, TriggerDomain, out[0].Trigger)
	assert.Equal(t, 0.6, out[0].Confidence)
}

func TestSurface_RecurringConceptRequiresAtLeastTwoSharedConcepts(t *testing.T) {
	m := newMemory(t, "rec.fact: x", "personal", []string{"python", "testing", "ci"}, nil)
	none := Surface([]*memory.Memory{m}, "unrelated", "work", []string{"python"}, Config{})
	assert.Empty(t, none)

	two := Surface([]*memory.Memory{m}, "unrelated", "work", []string{"python", "testing"}, Config{})
	require.Len(t, two, 1)
	assert.Equal(t, TriggerRecurringConcept, two[0].Trigger)
	assert.Equal(t, 0.5, two[0].Confidence)
}

func TestSurface_NoMatchProducesNoSuggestion(t *testing.T) {
	m := newMemory(t, "quiet.fact: x", "personal", []string{"gardening"}, []string{"watering"})
	out := Surface([]*memory.Memory{m}, "unrelated context entirely", "work", []string{"cooking"}, Config{})
	assert.Empty(t, out)
}

func TestSurface_OrderedByConfidenceDescending(t *testing.T) {
	domainOnly := newMemory(t, "domain.fact: x", "work", nil, nil)
	temporal := newMemory(t, "temporal.fact: y", "personal", nil, []string{"deploy failing"})

	out := Surface([]*memory.Memory{domainOnly, temporal}, "the deploy is failing", "work", nil, Config{})
	require.Len(t, out, 2)
	assert.Equal(t, TriggerTemporal, out[0].Trigger)
	assert.Equal(t, TriggerDomain, out[1].Trigger)
}

func TestSurface_CapsAtFiveSuggestions(t *testing.T) {
	var memories []*memory.Memory
	for i := 0; i < 8; i++ {
		memories = append(memories, newMemory(t, "dup.fact: x", "work", nil, nil))
	}
	out := Surface(memories, "anything", "work", nil, Config{})
	assert.Len(t, out, maxSuggestions)
}

func TestSurface_EachMemoryAppearsAtMostOnce(t *testing.T) {
	m := newMemory(t, "both.fact: x", "work", []string{"python", "testing"}, []string{"deploy failing"})
	out := Surface([]*memory.Memory{m}, "the deploy is failing", "work", []string{"python", "testing"}, Config{})
	require.Len(t, out, 1)
}
