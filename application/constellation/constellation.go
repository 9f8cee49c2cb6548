// Package constellation implements C7: groups a retrieval result set into
// roles (primary / supporting / contradicting / context) instead of
// returning a flat ranked list (spec.md §4.4). Role assignment is spec.md's
// own algorithm; its builder shape follows the teacher's aggregate-builder
// methods (read for constructor/accumulation idiom only, not copied).
package constellation

import (
	"fmt"
	"strings"

	"github.com/elefante-ai/elefante/application/retrieval"
)

const (
	maxSupporting    = 3
	maxContradicting = 2
	maxContext       = 2

	conceptContextThreshold = 0.3
	supportingScoreFloor    = 0.5

	// candidatePoolSize bounds how many of the ranked results past the
	// primary are considered for role assignment (spec.md §4.4: "for
	// candidates 1..9").
	candidatePoolSize = 10
)

// Role is the position a candidate plays relative to the primary result.
type Role string

const (
	RolePrimary       Role = "primary"
	RoleSupporting    Role = "supporting"
	RoleContradicting Role = "contradicting"
	RoleContext       Role = "context"
)

// Constellation is the structured retrieval result spec.md §6.1's
// `constellation` operation returns.
type Constellation struct {
	Primary       retrieval.Result
	Supporting    []retrieval.Result
	Contradicting []retrieval.Result
	Context       []retrieval.Result
	Synthesis     string
}

// Assemble implements §4.4. results must already be sorted by composite
// score descending (retrieval.Engine.Search's contract). contradictions and
// supports are sets keyed by the memory ids of the other results: an id
// present in the set marks that result as conflicting with, or supporting,
// the primary — typically supplied from the health analyzer (C8)'s conflict
// list and left nil when unknown.
func Assemble(results []retrieval.Result, contradictions, supports map[string]bool) Constellation {
	if len(results) == 0 {
		return Constellation{}
	}

	primary := results[0]
	out := Constellation{Primary: primary}

	pool := results[1:]
	if len(pool) > candidatePoolSize-1 {
		pool = pool[:candidatePoolSize-1]
	}

	for _, r := range pool {
		id := r.Memory.ID().String()
		switch {
		case contradictions[id]:
			if len(out.Contradicting) < maxContradicting {
				out.Contradicting = append(out.Contradicting, r)
			}
		case supports[id]:
			if len(out.Supporting) < maxSupporting {
				out.Supporting = append(out.Supporting, r)
			}
		case conceptScore(r) > conceptContextThreshold:
			if len(out.Context) < maxContext {
				out.Context = append(out.Context, r)
			}
		case r.Score > supportingScoreFloor:
			if len(out.Supporting) < maxSupporting {
				out.Supporting = append(out.Supporting, r)
			}
		}
	}

	out.Synthesis = synthesize(out)
	return out
}

// conceptScore reads the concept_overlap signal score out of a result's
// explanation, defaulting to 0 when no explanation was requested (the
// candidate then falls through to the composite-score branch below).
func conceptScore(r retrieval.Result) float64 {
	if r.Explanation == nil {
		return 0
	}
	for _, s := range r.Explanation.Signals {
		if s.Name == "concept_overlap" {
			return s.Score
		}
	}
	return 0
}

func synthesize(c Constellation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Primary: %s (confidence: %.2f)", c.Primary.Memory.Title(), c.Primary.Score)
	if titles := titlesOf(c.Supporting); len(titles) > 0 {
		fmt.Fprintf(&b, " | Supported by: %s", strings.Join(titles, ", "))
	}
	if titles := titlesOf(c.Contradicting); len(titles) > 0 {
		fmt.Fprintf(&b, " | Note: Conflicting info in: %s", strings.Join(titles, ", "))
	}
	if titles := titlesOf(c.Context); len(titles) > 0 {
		fmt.Fprintf(&b, " | Related: %s", strings.Join(titles, ", "))
	}
	return b.String()
}

func titlesOf(results []retrieval.Result) []string {
	titles := make([]string, 0, len(results))
	for _, r := range results {
		titles = append(titles, r.Memory.Title())
	}
	return titles
}
