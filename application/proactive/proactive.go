// Package proactive implements C9: scans a candidate set of memories for
// ones whose triggers match the current conversational context and returns
// soft suggestions for the caller to surface (spec.md §4.6).
package proactive

import (
	"sort"
	"strings"

	"github.com/elefante-ai/elefante/domain/memory"
)

const (
	maxSuggestions = 5

	defaultTemporalConfidence  = 0.7
	defaultDomainConfidence    = 0.6
	defaultRecurringConfidence = 0.5
	recurringMinOverlap        = 2
)

// Config tunes the three trigger confidences (spec.md §6.3's `proactive`
// section: temporal_confidence, domain_confidence, concept_confidence). A
// zero value for any field falls back to its spec.md §4.6 default.
type Config struct {
	TemporalConfidence float64
	DomainConfidence   float64
	ConceptConfidence  float64
}

func (c Config) withDefaults() Config {
	if c.TemporalConfidence <= 0 {
		c.TemporalConfidence = defaultTemporalConfidence
	}
	if c.DomainConfidence <= 0 {
		c.DomainConfidence = defaultDomainConfidence
	}
	if c.ConceptConfidence <= 0 {
		c.ConceptConfidence = defaultRecurringConfidence
	}
	return c
}

// Trigger names the rule that produced a Suggestion.
type Trigger string

const (
	TriggerTemporal         Trigger = "temporal"
	TriggerDomain           Trigger = "domain"
	TriggerRecurringConcept Trigger = "recurring_concept"
)

// Suggestion is one proactively surfaced memory.
type Suggestion struct {
	MemoryID   string
	Trigger    Trigger
	Confidence float64
	Reason     string
}

// Surface implements §4.6's trigger precedence: temporal, then domain, then
// recurring_concept, first match wins per memory. Results are ordered by
// confidence descending and capped at 5. cfg's zero value uses spec.md
// §4.6's default confidences.
func Surface(memories []*memory.Memory, context, conversationDomain string, recentConcepts []string, cfg Config) []Suggestion {
	cfg = cfg.withDefaults()
	ctx := strings.ToLower(context)
	recentSet := toLowerSet(recentConcepts)

	suggestions := make([]Suggestion, 0, len(memories))
	for _, m := range memories {
		if s, ok := matchTemporal(m, ctx, cfg.TemporalConfidence); ok {
			suggestions = append(suggestions, s)
			continue
		}
		if s, ok := matchDomain(m, conversationDomain, cfg.DomainConfidence); ok {
			suggestions = append(suggestions, s)
			continue
		}
		if s, ok := matchRecurringConcept(m, recentSet, cfg.ConceptConfidence); ok {
			suggestions = append(suggestions, s)
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}

func matchTemporal(m *memory.Memory, ctx string, confidence float64) (Suggestion, bool) {
	for _, pattern := range m.SurfacesWhen() {
		p := strings.ToLower(strings.TrimSpace(pattern))
		if p == "" {
			continue
		}
		for _, token := range strings.Fields(p) {
			if strings.Contains(ctx, token) {
				return Suggestion{
					MemoryID:   m.ID().String(),
					Trigger:    TriggerTemporal,
					Confidence: confidence,
					Reason:     "context matches surfaces_when pattern \"" + pattern + "\"",
				}, true
			}
		}
	}
	return Suggestion{}, false
}

func matchDomain(m *memory.Memory, conversationDomain string, confidence float64) (Suggestion, bool) {
	if conversationDomain == "" || m.Domain() != conversationDomain {
		return Suggestion{}, false
	}
	return Suggestion{
		MemoryID:   m.ID().String(),
		Trigger:    TriggerDomain,
		Confidence: confidence,
		Reason:     "memory belongs to the active conversation domain \"" + conversationDomain + "\"",
	}, true
}

func matchRecurringConcept(m *memory.Memory, recentSet map[string]bool, confidence float64) (Suggestion, bool) {
	if len(recentSet) == 0 {
		return Suggestion{}, false
	}
	overlap := 0
	for _, c := range m.Concepts() {
		if recentSet[strings.ToLower(c)] {
			overlap++
		}
	}
	if overlap < recurringMinOverlap {
		return Suggestion{}, false
	}
	return Suggestion{
		MemoryID:   m.ID().String(),
		Trigger:    TriggerRecurringConcept,
		Confidence: confidence,
		Reason:     "shares recently discussed concepts with the current conversation",
	}, true
}

func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, i := range items {
		set[strings.ToLower(i)] = true
	}
	return set
}
