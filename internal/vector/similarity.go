// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

package vector

import (
	"fmt"
	"math"
)

// Cosine computes the cosine similarity of two vectors, clamped to [0,1].
// The embedding space is not expected to produce negative cosines, but
// clamping preserves the score invariant when it does.
//
// Errors on dimension mismatch or a zero vector (cosine undefined);
// callers must treat this as "no score" and exclude the candidate.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("empty vectors")
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero vector: cosine undefined")
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0, nil
	}
	if sim > 1 {
		return 1, nil
	}
	return sim, nil
}

// Mean computes the elementwise arithmetic mean of the given vectors.
// Errors on empty input or ragged dimensions.
func Mean(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors to average")
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("dimension mismatch: %d vs %d", len(v), dim)
		}
		for i, f := range v {
			sum[i] += float64(f)
		}
	}
	mean := make([]float32, dim)
	n := float64(len(vectors))
	for i, s := range sum {
		mean[i] = float32(s / n)
	}
	return mean, nil
}
