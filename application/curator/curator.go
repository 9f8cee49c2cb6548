// Package curator implements C4: deterministic, pure, no-external-call
// enrichment of a memory's content at ingestion time (spec.md §4.1).
package curator

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/elefante-ai/elefante/domain/memory"
)

const (
	maxConcepts     = 5
	maxSurfacesWhen = 8
	maxTitleLen     = 90
	maxSummaryLen   = 200
)

// Curation is everything the curator attaches to a Memory at ingestion.
type Curation struct {
	Layer        memory.Layer
	Sublayer     memory.Sublayer
	MemoryType   memory.Type
	Domain       string
	Importance   int
	Concepts     []string
	SurfacesWhen []string
	Title        string
	Summary      string
}

// Curator is stateless and safe for concurrent use; every method is a pure
// function of its input.
type Curator struct {
	analyzer TextAnalyzer
	aliases  map[string]string
}

func NewCurator() *Curator {
	return &Curator{
		analyzer: NewDefaultTextAnalyzer(),
		aliases:  defaultAliasMap(),
	}
}

// Curate runs the full §4.1 pipeline over freshly normalized content.
func (c *Curator) Curate(content string) Curation {
	layer, sublayer, importance := Classify(content)
	memType := InferMemoryType(layer, sublayer)
	domain := InferDomain(content)
	concepts := c.ExtractConcepts(content, maxConcepts)
	surfaces := c.InferSurfacesWhen(content, concepts)
	title := c.GenerateTitle(content, layer, sublayer)
	summary := c.GenerateSummary(content)

	return Curation{
		Layer: layer, Sublayer: sublayer, MemoryType: memType, Domain: domain,
		Importance: importance, Concepts: concepts, SurfacesWhen: surfaces,
		Title: title, Summary: summary,
	}
}

// Canonicalize implements §4.1's canonicalize(labels): casefold →
// accent-strip → keep [a-z0-9_\- ] → collapse whitespace → alias map →
// drop stop-words → dedupe preserving order. It is idempotent:
// Canonicalize(Canonicalize(x)) == Canonicalize(x) (§8 invariant).
func (c *Curator) Canonicalize(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		canon := c.canonOne(label)
		if canon == "" || seen[canon] {
			continue
		}
		seen[canon] = true
		out = append(out, canon)
	}
	return out
}

var keepCharsRe = regexp.MustCompile(`[^a-z0-9_\- ]`)
var whitespaceRe = regexp.MustCompile(`\s+`)

func (c *Curator) canonOne(label string) string {
	folded := strings.ToLower(label)
	stripped := stripAccents(folded)
	kept := keepCharsRe.ReplaceAllString(stripped, "")
	collapsed := strings.TrimSpace(whitespaceRe.ReplaceAllString(kept, " "))
	if collapsed == "" {
		return ""
	}
	if alias, ok := c.aliases[collapsed]; ok {
		collapsed = alias
	}
	if isStopword(collapsed) {
		return ""
	}
	return collapsed
}

// stripAccents transliterates diacritics to their base rune via Unicode
// NFD decomposition followed by dropping combining marks.
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func defaultAliasMap() map[string]string {
	return map[string]string{
		"js":         "javascript",
		"ts":         "typescript",
		"py":         "python",
		"db":         "database",
		"k8s":        "kubernetes",
		"ml":         "machine learning",
		"ai":         "artificial intelligence",
		"repo":       "repository",
		"config":     "configuration",
		"auth":       "authentication",
		"infra":      "infrastructure",
		"creds":      "credentials",
		"env":        "environment",
		"prod":       "production",
		"ci":         "continuous integration",
		"cd":         "continuous deployment",
	}
}

var stopwordSet = getDefaultStopWords()

func isStopword(s string) bool {
	return stopwordSet[s]
}

var techTerms = map[string]bool{
	"python": true, "javascript": true, "typescript": true, "golang": true,
	"go": true, "rust": true, "java": true, "sql": true, "database": true,
	"api": true, "kubernetes": true, "docker": true, "repository": true,
	"authentication": true, "configuration": true, "testing": true,
	"deployment": true, "microservice": true, "kafka": true, "redis": true,
	"postgres": true, "mongodb": true, "graphql": true, "react": true,
	"vector": true, "embedding": true, "secrets": true, "credentials": true,
}

// ExtractConcepts implements §4.1's extract_concepts: tokenize, strip
// stop-words, score by frequency + 0.3*(1-relative_position) +
// 2.0*tech_term_bonus, take top-k, canonicalized and deduplicated.
func (c *Curator) ExtractConcepts(content string, k int) []string {
	tokens := tokenize(content)
	if len(tokens) == 0 {
		return nil
	}

	type stat struct {
		count       int
		firstIdx    int
		techBonus   float64
	}
	stats := make(map[string]*stat)
	for i, tok := range tokens {
		lower := strings.ToLower(tok)
		if isStopword(lower) || len(lower) <= 2 {
			continue
		}
		s, ok := stats[lower]
		if !ok {
			bonus := 0.0
			if techTerms[lower] {
				bonus = 1.0
			}
			s = &stat{firstIdx: i, techBonus: bonus}
			stats[lower] = s
		}
		s.count++
	}

	type scored struct {
		word  string
		score float64
	}
	n := len(tokens)
	scoredList := make([]scored, 0, len(stats))
	for word, s := range stats {
		relativePos := float64(s.firstIdx) / float64(n)
		score := float64(s.count) + 0.3*(1-relativePos) + 2.0*s.techBonus
		scoredList = append(scoredList, scored{word, score})
	}
	sort.Slice(scoredList, func(i, j int) bool {
		if scoredList[i].score != scoredList[j].score {
			return scoredList[i].score > scoredList[j].score
		}
		return scoredList[i].word < scoredList[j].word
	})

	if k <= 0 || k > len(scoredList) {
		k = len(scoredList)
	}
	raw := make([]string, 0, k)
	for i := 0; i < k && i < len(scoredList); i++ {
		raw = append(raw, scoredList[i].word)
	}
	return c.Canonicalize(raw)
}

func tokenize(content string) []string {
	var tokens []string
	var cur strings.Builder
	for _, r := range content {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur.WriteRune(r)
		} else if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

var (
	questionRe   = regexp.MustCompile(`(?i)^(what|how|why|when|where|who|which)\b`)
	errorTokenRe = regexp.MustCompile(`(?i)\b(error|exception|failed|failure|traceback|panic|crash)\b`)
	directiveRe  = regexp.MustCompile(`(?i)\b(use|run|call|invoke|execute|avoid|never|always)\b`)
	configureRe  = regexp.MustCompile(`(?i)\b(configure|set up|setup|install|enable|disable)\b`)
)

// InferSurfacesWhen implements §4.1's infer_surfaces_when: pattern library
// keyed on question starters, error tokens, directive verbs, configuration
// verbs; emits ≤8 short phrases, canonicalized.
func (c *Curator) InferSurfacesWhen(content string, concepts []string) []string {
	var phrases []string

	firstSentence := firstSentenceOf(content)
	lower := strings.ToLower(firstSentence)

	switch {
	case questionRe.MatchString(lower):
		phrases = append(phrases, lower)
	case errorTokenRe.MatchString(lower):
		phrases = append(phrases, "error: "+lower)
	case directiveRe.MatchString(lower):
		phrases = append(phrases, lower)
	case configureRe.MatchString(lower):
		phrases = append(phrases, "configuring "+lower)
	}

	for _, concept := range concepts {
		phrases = append(phrases, "about "+concept)
		phrases = append(phrases, concept)
	}

	if errorTokenRe.MatchString(content) {
		for _, m := range errorTokenRe.FindAllString(content, -1) {
			phrases = append(phrases, strings.ToLower(m))
		}
	}

	seen := make(map[string]bool)
	out := make([]string, 0, maxSurfacesWhen)
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
		if len(out) >= maxSurfacesWhen {
			break
		}
	}
	return out
}

var codeFenceRe = regexp.MustCompile("(?s)```.*?```")

// GenerateTitle implements §4.1's generate_title: strip code fences,
// collapse whitespace, format "<layer>.<sublayer>: <core>", truncated
// with ellipsis to ≤90 chars.
func (c *Curator) GenerateTitle(content string, layer memory.Layer, sublayer memory.Sublayer) string {
	core := collapseWhitespace(codeFenceRe.ReplaceAllString(content, " "))
	core = firstSentenceOf(core)
	prefix := string(layer) + "." + string(sublayer) + ": "
	budget := maxTitleLen - len(prefix)
	return prefix + truncateWithEllipsis(core, budget)
}

// GenerateSummary implements §4.1's generate_summary: strip code fences,
// collapse whitespace, first-sentence split, truncate with ellipsis to
// ≤200 chars.
func (c *Curator) GenerateSummary(content string) string {
	stripped := collapseWhitespace(codeFenceRe.ReplaceAllString(content, " "))
	sentence := firstSentenceOf(stripped)
	return truncateWithEllipsis(sentence, maxSummaryLen)
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

var sentenceEndRe = regexp.MustCompile(`[.!?](\s|$)`)

func firstSentenceOf(s string) string {
	s = collapseWhitespace(s)
	loc := sentenceEndRe.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return strings.TrimSpace(s[:loc[0]+1])
}

func truncateWithEllipsis(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
