package search

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidVector is returned when either vector is missing or empty
	ErrInvalidVector = errors.New("invalid vector: nil or empty")
	// ErrMismatchedDimension is returned when vectors have different lengths
	ErrMismatchedDimension = errors.New("vectors have different dimensions")
)

// CosineSimilarity calculates the cosine similarity between two vectors.
// Products are accumulated in float64. If either vector has zero magnitude
// the similarity is 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrInvalidVector
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrMismatchedDimension, len(a), len(b))
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
