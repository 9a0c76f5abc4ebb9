package diarize

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrDegenerate reports a candidate partition that cannot be scored.
var ErrDegenerate = errors.New("degenerate clustering")

// Silhouette returns the mean silhouette coefficient of labels over vectors
// using Euclidean distance. It fails with ErrDegenerate unless the number of
// distinct labels is between 2 and len(vectors)-1.
func Silhouette(vectors [][]float64, labels []int) (float64, error) {
	n := len(vectors)
	if len(labels) != n {
		return 0, fmt.Errorf("diarize: silhouette: %d labels for %d vectors", len(labels), n)
	}

	sizes := make(map[int]int)
	for _, l := range labels {
		sizes[l]++
	}
	if len(sizes) < 2 || len(sizes) > n-1 {
		return 0, fmt.Errorf("diarize: silhouette: %d clusters over %d points: %w", len(sizes), n, ErrDegenerate)
	}

	var total float64
	sums := make(map[int]float64, len(sizes))
	for i := range vectors {
		clear(sums)
		for j := range vectors {
			if i == j {
				continue
			}
			sums[labels[j]] += floats.Distance(vectors[i], vectors[j], 2)
		}

		own := sizes[labels[i]]
		if own == 1 {
			// Singleton clusters score 0.
			continue
		}
		a := sums[labels[i]] / float64(own-1)

		b := math.Inf(1)
		for l, size := range sizes {
			if l == labels[i] {
				continue
			}
			b = math.Min(b, sums[l]/float64(size))
		}

		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}

	score := total / float64(n)
	if math.IsNaN(score) {
		return 0, fmt.Errorf("diarize: silhouette: NaN score: %w", ErrDegenerate)
	}
	return score, nil
}
