// Package search implements the local suggestion engine: a hashed
// bag-of-words embedding over visited links, cosine ranking, and a keyword
// fallback. No trained model is involved; the embedding is a deterministic
// hashing trick, so it is reproducible across runs and machines.
package search

import (
	"math"
	"regexp"
	"strings"
)

// Dim is the fixed embedding dimension.
const Dim = 128

// FNV-1a 32-bit parameters.
const (
	fnvOffset uint32 = 2166136261
	fnvPrime  uint32 = 16777619
)

var nonTokenChars = regexp.MustCompile(`[^a-z0-9\s:/._-]+`)

// Tokenize lowercases input, strips characters outside [a-z0-9:/._-], and
// splits on whitespace.
func Tokenize(input string) []string {
	cleaned := nonTokenChars.ReplaceAllString(strings.ToLower(input), " ")
	return strings.Fields(cleaned)
}

// HashToken computes the FNV-1a 32-bit hash of token.
func HashToken(token string) uint32 {
	h := fnvOffset
	for i := 0; i < len(token); i++ {
		h ^= uint32(token[i])
		h *= fnvPrime
	}
	return h
}

// Embed maps text to a Dim-length L2-normalized vector. Each token lands in
// slot hash%Dim with sign chosen by the hash's low bit, which spreads
// collision bias. Empty or token-free text yields the zero vector.
func Embed(text string) []float32 {
	vector := make([]float32, Dim)
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return vector
	}

	for _, token := range tokens {
		h := HashToken(token)
		idx := h % Dim
		if h&1 == 0 {
			vector[idx]++
		} else {
			vector[idx]--
		}
	}

	return normalize(vector)
}

// normalize divides by the Euclidean norm, leaving zero vectors untouched.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

// Cosine returns the dot product of two vectors. Inputs produced by Embed
// are already unit-length (or zero), so the dot product is the cosine
// similarity. Mismatched or empty vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
