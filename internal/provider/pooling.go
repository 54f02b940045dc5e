package provider

import (
	"errors"
	"fmt"
	"math"
)

// MeanPool averages token-level vectors into a single vector
func MeanPool(tokens [][]float32) ([]float32, error) {
	if len(tokens) == 0 || len(tokens[0]) == 0 {
		return nil, errors.New("no token vectors to pool")
	}

	dim := len(tokens[0])
	sums := make([]float64, dim)
	for i, tok := range tokens {
		if len(tok) != dim {
			return nil, fmt.Errorf("token %d has %d dimensions, want %d", i, len(tok), dim)
		}
		for j, v := range tok {
			sums[j] += float64(v)
		}
	}

	pooled := make([]float32, dim)
	n := float64(len(tokens))
	for j, s := range sums {
		pooled[j] = float32(s / n)
	}
	return pooled, nil
}

// Normalize scales v in place to unit L2 length. A zero vector is left unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		v[i] = float32(float64(x) / norm)
	}
	return v
}

// Truncate cuts text to at most maxChars characters (runes). This is a
// character budget, not a token budget, so it only approximates the model's
// real input limit.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	n := 0
	for i := range text {
		if n == maxChars {
			return text[:i]
		}
		n++
	}
	return text
}
