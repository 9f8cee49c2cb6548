package curator

import (
	"regexp"
	"strings"

	"github.com/elefante-ai/elefante/domain/memory"
)

var (
	imperativeRe = regexp.MustCompile(`\b(NEVER|ALWAYS|MUST|RULE|LAW)\b`)

	selfIdentityRe   = regexp.MustCompile(`(?i)\b(i am|i'm|my name is|i work as|i'm a)\b`)
	selfPreferenceRe = regexp.MustCompile(`(?i)\b(i prefer|i like|i don't like|i hate|i love|favorite)\b`)
	selfConstraintRe = regexp.MustCompile(`(?i)\b(i can't|i cannot|i'm unable|allergic to|i don't have access)\b`)

	intentGoalRe        = regexp.MustCompile(`(?i)\b(i want to|i'm trying to|goal is|plan to|i need to)\b`)
	intentAntiPatternRe = regexp.MustCompile(`(?i)\b(avoid|don't do|never do|anti[- ]pattern)\b`)

	worldFailureRe = regexp.MustCompile(`(?i)\b(failed|error|broke|bug|crash|didn't work)\b`)
	worldMethodRe  = regexp.MustCompile(`(?i)\b(how to|steps to|process for|method for)\b`)

	decisionVerbRe   = regexp.MustCompile(`(?i)\b(decided|chose|will use|switched to|adopted)\b`)
	credentialLikeRe = regexp.MustCompile(`(?i)\b(token|password|secret|api[_ ]?key|credential)\b`)
)

// Classify implements §4.1's classify(content) → (layer, sublayer, importance).
// Rule precedence: upper-case imperatives first, then SELF patterns, then
// INTENT patterns, then WORLD patterns, defaulting to world.fact.
func Classify(content string) (memory.Layer, memory.Sublayer, int) {
	var layer memory.Layer
	var sublayer memory.Sublayer

	switch {
	case imperativeRe.MatchString(content):
		layer, sublayer = memory.LayerIntent, memory.SublayerRule
	case selfIdentityRe.MatchString(content):
		layer, sublayer = memory.LayerSelf, memory.SublayerIdentity
	case selfPreferenceRe.MatchString(content):
		layer, sublayer = memory.LayerSelf, memory.SublayerPreference
	case selfConstraintRe.MatchString(content):
		layer, sublayer = memory.LayerSelf, memory.SublayerConstraint
	case intentGoalRe.MatchString(content):
		layer, sublayer = memory.LayerIntent, memory.SublayerGoal
	case intentAntiPatternRe.MatchString(content):
		layer, sublayer = memory.LayerIntent, memory.SublayerAntiPattern
	case worldFailureRe.MatchString(content):
		layer, sublayer = memory.LayerWorld, memory.SublayerFailure
	case worldMethodRe.MatchString(content):
		layer, sublayer = memory.LayerWorld, memory.SublayerMethod
	default:
		layer, sublayer = memory.LayerWorld, memory.SublayerFact
	}

	importance := scoreImportance(content, layer, sublayer)
	return layer, sublayer, importance
}

// InferMemoryType maps a (layer, sublayer) classification onto the coarser
// memory_type the public API exposes.
func InferMemoryType(layer memory.Layer, sublayer memory.Sublayer) memory.Type {
	switch sublayer {
	case memory.SublayerRule:
		return memory.TypeRule
	case memory.SublayerPreference:
		return memory.TypePreference
	}
	if decisionVerbRe.MatchString(string(sublayer)) {
		return memory.TypeDecision
	}
	return memory.TypeFact
}

// scoreImportance is the small rule table over classification plus content
// signals: length, decision verbs, credential-like tokens.
func scoreImportance(content string, layer memory.Layer, sublayer memory.Sublayer) int {
	score := 4

	switch sublayer {
	case memory.SublayerRule:
		score = 9
	case memory.SublayerConstraint, memory.SublayerIdentity:
		score = 7
	case memory.SublayerGoal, memory.SublayerFailure:
		score = 6
	case memory.SublayerPreference, memory.SublayerMethod:
		score = 5
	}

	if imperativeRe.MatchString(content) {
		score = max(score, 9)
	}
	if decisionVerbRe.MatchString(content) {
		score++
	}
	if credentialLikeRe.MatchString(content) {
		score++
	}
	if len(content) > 500 {
		score++
	}

	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return score
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// InferDomain maps content onto a domain by plain keyword substrings
// ("work"/"job"/"office" → work, "personal"/"family"/"home" → personal,
// otherwise general). Aliases are not resolved: the canonicalizer's alias
// table is not consulted. The retrieval engine's query analysis calls this
// same function, so a memory's domain and a query's inferred domain agree.
func InferDomain(content string) string {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "work") || strings.Contains(lower, "job") || strings.Contains(lower, "office"):
		return "work"
	case strings.Contains(lower, "personal") || strings.Contains(lower, "family") || strings.Contains(lower, "home"):
		return "personal"
	default:
		return "general"
	}
}
