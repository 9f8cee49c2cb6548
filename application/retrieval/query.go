package retrieval

import (
	"context"
	"regexp"
	"strings"

	"github.com/elefante-ai/elefante/application/curator"
)

// Intent is the query's inferred purpose (§4.3 step 1).
type Intent string

const (
	IntentTroubleshoot Intent = "troubleshoot"
	IntentLearn        Intent = "learn"
	IntentDecide       Intent = "decide"
	IntentRemember     Intent = "remember"
	IntentUnknown      Intent = ""
)

// QueryAnalysis is the output of analyzing the raw query text, consumed by
// every downstream scoring signal.
type QueryAnalysis struct {
	Raw             string
	Concepts        []string
	InferredDomain  string
	InferredIntent  Intent
	Embedding       []float32
}

var (
	troubleshootRe = regexp.MustCompile(`(?i)\b(error|bug|crash|broken|fail|failing|failed|fix|debug)\b`)
	learnRe        = regexp.MustCompile(`(?i)\b(how|what|why|explain|understand|learn)\b`)
	decideRe       = regexp.MustCompile(`(?i)\b(should i|which|choose|decide|versus|vs\.?|better)\b`)
	rememberRe     = regexp.MustCompile(`(?i)\b(remember|recall|what did i|last time|previously)\b`)
)

// InferIntent classifies a query into one of §4.3's four intents from
// keyword sets, first match wins.
func InferIntent(query string) Intent {
	switch {
	case rememberRe.MatchString(query):
		return IntentRemember
	case troubleshootRe.MatchString(query):
		return IntentTroubleshoot
	case decideRe.MatchString(query):
		return IntentDecide
	case learnRe.MatchString(query):
		return IntentLearn
	default:
		return IntentUnknown
	}
}

// analyzer is the package-level curator used only for its stateless
// concept-extraction helper; domain inference calls curator.InferDomain,
// the same keyword matching the curator applies to a memory's domain.
var analyzer = curator.NewCurator()

// Analyze implements §4.3 step 1: analyze query -> QueryAnalysis.
func Analyze(ctx context.Context, query string, embedder EmbeddingProvider) (QueryAnalysis, error) {
	concepts := analyzer.ExtractConcepts(query, 5)
	domain := curator.InferDomain(query)
	intent := InferIntent(query)

	vec, err := embedder.Embed(ctx, query)
	if err != nil {
		return QueryAnalysis{}, err
	}

	return QueryAnalysis{
		Raw: query, Concepts: concepts, InferredDomain: domain,
		InferredIntent: intent, Embedding: vec,
	}, nil
}

// SourceWeights are the adaptive per-source blending weights of §4.3 step
// 4 for merging heterogeneous candidate lists (conversation/semantic/
// graph); they always sum to 1.0 (P3).
type SourceWeights struct {
	Conversation float64
	Semantic     float64
	Graph        float64
}

var (
	pronounRe    = regexp.MustCompile(`(?i)\b(it|that|this|they|them|those|these)\b`)
	identifierRe = regexp.MustCompile(`(?i)\b(id|uuid|named|name is|called)\b`)
	questionRe   = regexp.MustCompile(`(?i)^\s*(what|how|why|when|where|who|which)\b`)
)

// AdaptiveSourceWeights implements §4.3 step 4's heuristic precedence:
// pronouns boost conversation, specific identifiers boost graph, question
// words boost semantic, else a modest conversation boost if a session is
// present, else the 0.3/0.4/0.3 default.
func AdaptiveSourceWeights(query string, hasSession bool) SourceWeights {
	lower := strings.TrimSpace(query)
	switch {
	case pronounRe.MatchString(lower):
		return SourceWeights{Conversation: 0.5, Semantic: 0.3, Graph: 0.2}
	case identifierRe.MatchString(lower):
		return SourceWeights{Conversation: 0.2, Semantic: 0.3, Graph: 0.5}
	case questionRe.MatchString(lower):
		return SourceWeights{Conversation: 0.2, Semantic: 0.6, Graph: 0.2}
	case hasSession:
		return SourceWeights{Conversation: 0.4, Semantic: 0.35, Graph: 0.25}
	default:
		return SourceWeights{Conversation: 0.3, Semantic: 0.4, Graph: 0.3}
	}
}
