package ai

import (
	"context"
	"hash/fnv"
	"math"
)

// HashEmbedder is a deterministic, offline embedding stand-in for tests and
// dev mode. Identical input text always yields the identical vector, and
// vectors are L2-normalized so cosine similarity reduces to a dot product.
// It is not semantically meaningful; the Ollama provider is the production
// contract.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates a hash embedder with the given dimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 64
	}
	return &HashEmbedder{dimension: dimension}
}

// Dimension returns the fixed vector dimension.
func (e *HashEmbedder) Dimension() int { return e.dimension }

// ModelName identifies the stand-in model.
func (e *HashEmbedder) ModelName() string { return "hash-v1" }

// EmbedTexts generates one deterministic unit vector per input text.
func (e *HashEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

// EmbedQuery generates a deterministic unit vector for one text.
func (e *HashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

// vector feature-hashes the text's tokens into the fixed dimension and
// L2-normalizes the result. Texts sharing tokens land near each other, which
// keeps cosine ranking meaningful in tests without a real model.
func (e *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dimension)

	for _, tok := range tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dimension))
		sign := float32(1)
		if (sum>>63)&1 == 1 {
			sign = -1
		}
		v[bucket] += sign
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= inv
	}
	return v
}

// tokenize lowercases and splits on non-identifier runes.
func tokenize(text string) []string {
	var tokens []string
	var cur []rune
	for _, r := range text {
		switch {
		case r >= 'A' && r <= 'Z':
			cur = append(cur, r+'a'-'A')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			cur = append(cur, r)
		default:
			if len(cur) > 0 {
				tokens = append(tokens, string(cur))
				cur = cur[:0]
			}
		}
	}
	if len(cur) > 0 {
		tokens = append(tokens, string(cur))
	}
	return tokens
}
