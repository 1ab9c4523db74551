package tracking

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// EmbeddingAlpha weights the existing embedding in the EMA blend; 0.7 favours
// history over the newest observation so a single bad crop cannot hijack an
// identity.
const EmbeddingAlpha = 0.7

// UpdateEmbedding blends a new appearance observation into the current
// embedding with an EMA and renormalises to unit length. A zero-norm blend is
// a numerical degeneracy: the current embedding is kept unchanged rather than
// propagating a zero vector.
func UpdateEmbedding(current, observed []float64, alpha float64) []float64 {
	if len(current) == 0 {
		out := make([]float64, len(observed))
		copy(out, observed)
		return out
	}
	if len(observed) != len(current) {
		return current
	}

	updated := make([]float64, len(current))
	for i := range current {
		updated[i] = alpha*current[i] + (1-alpha)*observed[i]
	}

	norm := floats.Norm(updated, 2)
	if norm == 0 {
		return current
	}
	floats.Scale(1/norm, updated)
	return updated
}

// CosineDistance returns 1 − cosine similarity between two embeddings:
// 0 means identical direction, 1 orthogonal, 2 opposite. Degenerate inputs
// (mismatched lengths, zero norm) return the maximally uncertain distance 1.
func CosineDistance(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1
	}
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - floats.Dot(a, b)/(na*nb)
}

// EmbeddingStability maps the similarity between the previous and newly
// observed embedding to a confidence in [0,1]. A stable appearance across
// frames supports the track's identity.
func EmbeddingStability(current, observed []float64) float64 {
	if len(current) == 0 || len(observed) == 0 || len(current) != len(observed) {
		return 0.5
	}
	na := floats.Norm(current, 2)
	nb := floats.Norm(observed, 2)
	if na*nb == 0 {
		return 0.5
	}
	sim := floats.Dot(current, observed) / (na * nb)
	conf := (sim + 1) / 2
	return math.Max(0, math.Min(1, conf))
}
