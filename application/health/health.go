// Package health implements C8: per-memory health status and pairwise
// conflict detection over the current corpus (spec.md §4.5). Status rule
// composition reuses domain/specifications.Specification[T]'s
// composable-predicate pattern.
package health

import (
	"sort"

	"github.com/elefante-ai/elefante/application/curator"
	"github.com/elefante-ai/elefante/domain/memory"
	"github.com/elefante-ai/elefante/domain/specifications"
)

const defaultStaleDays = 90
const defaultConflictThreshold = 0.60
const maxSharedConceptsInReason = 3

// Assessment is one memory's health status plus the reasons it was
// assigned, for the §6.1 `health_report` operation.
type Assessment struct {
	MemoryID string
	Status   memory.HealthStatus
	Reasons  []string
}

// assessmentContext bundles everything the specifications below evaluate,
// so a memory's raw fields and its externally-supplied connection count
// travel together through the rule chain.
type assessmentContext struct {
	m               *memory.Memory
	connectionCount int
	staleDays       int
}

func atRiskSpec() specifications.Specification[assessmentContext] {
	return specifications.NewBaseSpecification(func(c assessmentContext) bool {
		return c.m.SupersededByID() != nil || len(c.m.PotentialConflicts()) > 0
	})
}

func staleSpec() specifications.Specification[assessmentContext] {
	return specifications.NewBaseSpecification(func(c assessmentContext) bool {
		return memory.DaysSince(c.m.LastAccessed()) > float64(c.staleDays)
	})
}

func orphanSpec() specifications.Specification[assessmentContext] {
	return specifications.NewBaseSpecification(func(c assessmentContext) bool {
		return c.connectionCount == 0
	})
}

// Assess implements §4.5's priority-ordered status determination:
// at_risk > stale > orphan > healthy. Status is a pure function of its
// inputs (determinism property, spec.md §8).
func Assess(m *memory.Memory, connectionCount, staleDays int) Assessment {
	if staleDays <= 0 {
		staleDays = defaultStaleDays
	}
	ctx := assessmentContext{m: m, connectionCount: connectionCount, staleDays: staleDays}

	switch {
	case atRiskSpec().IsSatisfiedBy(ctx):
		var reasons []string
		if m.SupersededByID() != nil {
			reasons = append(reasons, "superseded_by_id is set")
		}
		if len(m.PotentialConflicts()) > 0 {
			reasons = append(reasons, "has unresolved potential conflicts")
		}
		return Assessment{MemoryID: m.ID().String(), Status: memory.HealthAtRisk, Reasons: reasons}
	case staleSpec().IsSatisfiedBy(ctx):
		return Assessment{MemoryID: m.ID().String(), Status: memory.HealthStale, Reasons: []string{"not accessed in over the configured stale window"}}
	case orphanSpec().IsSatisfiedBy(ctx):
		return Assessment{MemoryID: m.ID().String(), Status: memory.HealthOrphan, Reasons: []string{"no structured-store connections"}}
	default:
		return Assessment{MemoryID: m.ID().String(), Status: memory.HealthHealthy}
	}
}

// AssessAll runs Assess over a batch, keyed by memory id, for the
// `health_report` operation's `{memory_id → status}` shape.
func AssessAll(memories []*memory.Memory, connectionCounts map[string]int, staleDays int) map[string]Assessment {
	out := make(map[string]Assessment, len(memories))
	for _, m := range memories {
		out[m.ID().String()] = Assess(m, connectionCounts[m.ID().String()], staleDays)
	}
	return out
}

// Conflict is one flagged pair — a signal for human review, never an
// auto-assertion of truth (spec.md §4.5).
type Conflict struct {
	MemoryA        string
	MemoryB        string
	Overlap        float64
	SharedConcepts []string
	Reason         string
}

// DetectConflicts implements §4.5's pairwise, symmetric conflict detection:
// same domain only, Jaccard concept overlap >= threshold. Pair order in the
// input never changes the result set (P5 conflict symmetry): for any pair
// (a,b) that conflicts, (b,a) is the same conflict, just reported once.
func DetectConflicts(memories []*memory.Memory, threshold float64) []Conflict {
	if threshold <= 0 {
		threshold = defaultConflictThreshold
	}
	var conflicts []Conflict
	for i := 0; i < len(memories); i++ {
		for j := i + 1; j < len(memories); j++ {
			a, b := memories[i], memories[j]
			if a.Domain() != b.Domain() {
				continue
			}
			overlap := curator.JaccardOverlap(a.Concepts(), b.Concepts())
			if overlap < threshold {
				continue
			}
			shared := curator.SharedItems(a.Concepts(), b.Concepts())
			sort.Strings(shared)
			if len(shared) > maxSharedConceptsInReason {
				shared = shared[:maxSharedConceptsInReason]
			}
			conflicts = append(conflicts, Conflict{
				MemoryA: a.ID().String(), MemoryB: b.ID().String(),
				Overlap: overlap, SharedConcepts: shared,
				Reason: "concept overlap meets the conflict threshold within the same domain",
			})
		}
	}
	return conflicts
}
