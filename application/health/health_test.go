package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elefante-ai/elefante/domain/memory"
)

func newMemory(t *testing.T, title, domain string, concepts []string) *memory.Memory {
	t.Helper()
	m, err := memory.NewMemory("content for " + title)
	require.NoError(t, err)
	require.NoError(t, m.Curate(title, "summary", concepts, nil,
		memory.LayerWorld, memory.SublayerFact, memory.TypeFact, domain, 5, 0.5))
	return m
}

func TestAssess_FreshConnectedMemoryIsHealthy(t *testing.T) {
	m := newMemory(t, "fresh.fact: x", "work", []string{"a"})
	a := Assess(m, 2, 90)
	assert.Equal(t, memory.HealthHealthy, a.Status)
}

func TestAssess_ZeroConnectionsIsOrphan(t *testing.T) {
	m := newMemory(t, "orphan.fact: x", "work", []string{"a"})
	a := Assess(m, 0, 90)
	assert.Equal(t, memory.HealthOrphan, a.Status)
}

func TestAssess_OldLastAccessedIsStale(t *testing.T) {
	m := newMemory(t, "stale.fact: x", "work", []string{"a"})
	m.RecordAccess(time.Now().AddDate(0, 0, -200))
	a := Assess(m, 1, 90)
	assert.Equal(t, memory.HealthStale, a.Status)
}

func TestAssess_SupersededTakesPriorityOverStaleAndOrphan(t *testing.T) {
	m := newMemory(t, "superseded.fact: x", "work", []string{"a"})
	m.RecordAccess(time.Now().AddDate(0, 0, -200))
	m.MarkSuperseded(memory.NewMemoryID())
	a := Assess(m, 0, 90)
	assert.Equal(t, memory.HealthAtRisk, a.Status)
	assert.Contains(t, a.Reasons, "superseded_by_id is set")
}

func TestAssess_FlaggedConflictIsAtRisk(t *testing.T) {
	m := newMemory(t, "conflicted.fact: x", "work", []string{"a"})
	m.FlagConflict(memory.NewMemoryID())
	a := Assess(m, 3, 90)
	assert.Equal(t, memory.HealthAtRisk, a.Status)
}

func TestAssess_ZeroStaleDaysFallsBackToDefault(t *testing.T) {
	m := newMemory(t, "recent.fact: x", "work", []string{"a"})
	a := Assess(m, 1, 0)
	assert.Equal(t, memory.HealthHealthy, a.Status)
}

func TestAssessAll_KeysResultByMemoryID(t *testing.T) {
	m := newMemory(t, "batch.fact: x", "work", []string{"a"})
	counts := map[string]int{m.ID().String(): 0}
	out := AssessAll([]*memory.Memory{m}, counts, 90)
	require.Contains(t, out, m.ID().String())
	assert.Equal(t, memory.HealthOrphan, out[m.ID().String()].Status)
}

func TestDetectConflicts_RequiresSameDomain(t *testing.T) {
	a := newMemory(t, "a.fact: x", "work", []string{"python", "testing", "ci"})
	b := newMemory(t, "b.fact: y", "personal", []string{"python", "testing", "ci"})

	conflicts := DetectConflicts([]*memory.Memory{a, b}, 0.5)
	assert.Empty(t, conflicts)
}

func TestDetectConflicts_HighOverlapSameDomainConflicts(t *testing.T) {
	a := newMemory(t, "a.fact: x", "work", []string{"python", "testing", "ci"})
	b := newMemory(t, "b.fact: y", "work", []string{"python", "testing", "cd"})

	conflicts := DetectConflicts([]*memory.Memory{a, b}, 0.5)
	require.Len(t, conflicts, 1)
	assert.Equal(t, a.ID().String(), conflicts[0].MemoryA)
	assert.Equal(t, b.ID().String(), conflicts[0].MemoryB)
	assert.True(t, conflicts[0].Overlap >= 0.5)
}

func TestDetectConflicts_LowOverlapIsNotAConflict(t *testing.T) {
	a := newMemory(t, "a.fact: x", "work", []string{"python"})
	b := newMemory(t, "b.fact: y", "work", []string{"golang"})

	conflicts := DetectConflicts([]*memory.Memory{a, b}, 0.5)
	assert.Empty(t, conflicts)
}

func TestDetectConflicts_RaisingThresholdNeverIncreasesConflictSet(t *testing.T) {
	a := newMemory(t, "a.fact: x", "work", []string{"python", "testing", "ci"})
	b := newMemory(t, "b.fact: y", "work", []string{"python", "testing", "cd"})
	c := newMemory(t, "c.fact: z", "work", []string{"python", "deploy", "infra"})

	low := DetectConflicts([]*memory.Memory{a, b, c}, 0.2)
	high := DetectConflicts([]*memory.Memory{a, b, c}, 0.8)
	assert.GreaterOrEqual(t, len(low), len(high))
}

func TestDetectConflicts_SharedConceptsCappedAtThree(t *testing.T) {
	a := newMemory(t, "a.fact: x", "work", []string{"python", "testing", "ci", "cd", "infra"})
	b := newMemory(t, "b.fact: y", "work", []string{"python", "testing", "ci", "cd", "infra"})

	conflicts := DetectConflicts([]*memory.Memory{a, b}, 0.5)
	require.Len(t, conflicts, 1)
	assert.LessOrEqual(t, len(conflicts[0].SharedConcepts), 3)
}
