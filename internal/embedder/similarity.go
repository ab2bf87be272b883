package embedder

import "math"

// Cosine returns the cosine similarity of two vectors in [-1, 1].
// Mismatched lengths and zero vectors yield 0, treating unusable input
// as "no similarity" rather than an error.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize scales a vector to unit length. Zero vectors are returned
// unchanged.
func Normalize(v []float64) []float64 {
	var sum float64
	for _, val := range v {
		sum += val * val
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float64, len(v))
	for i, val := range v {
		out[i] = val / norm
	}
	return out
}
