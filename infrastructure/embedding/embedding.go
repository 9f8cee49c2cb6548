// Package embedding defines C1, the embedding provider, as an external
// collaborator interface (spec.md §1/§6) plus one deterministic local
// fallback implementation so the retrieval path functions without a real
// model ("embedding model loading" is explicitly out of scope).
package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Provider produces a fixed-dimension dense vector for a text input.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// HashEmbedder is a deterministic, dependency-free fallback: it hashes
// overlapping word shingles into a fixed-size vector and L2-normalizes it,
// so cosine similarity behaves sensibly for lexical overlap even without a
// trained model. It implements Provider directly; a real model-backed
// provider would satisfy the same interface.
type HashEmbedder struct {
	dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashEmbedder{dim: dim}
}

func (h *HashEmbedder) Dimension() int { return h.dim }

func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return vec, nil
	}

	addToken := func(tok string, weight float32) {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(tok))
		idx := int(hasher.Sum32()) % h.dim
		if idx < 0 {
			idx += h.dim
		}
		vec[idx] += weight
	}

	for _, w := range words {
		addToken(w, 1.0)
	}
	for i := 0; i < len(words)-1; i++ {
		addToken(words[i]+"_"+words[i+1], 0.5)
	}

	normalize(vec)
	return vec, nil
}

func normalize(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range vec {
		vec[i] /= norm
	}
}

// CosineSimilarity computes cosine similarity between two equal-length
// vectors, clamped to [0,1] the way spec.md §4.7's similarity mapping is
// always clamped before use.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
