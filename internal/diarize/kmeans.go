package diarize

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// Clusterer partitions vectors into k groups. Labels are in [0, k) and aligned
// with the input. The same input and k must always produce the same labels.
type Clusterer interface {
	Cluster(vectors [][]float64, k int) ([]int, error)
}

// KMeans is a seeded k-means++ clusterer with Lloyd iterations.
//
// Every call reseeds its generator, so results depend only on the input.
// Distance ties resolve to the lowest-index center. A cluster that loses all
// its points keeps its previous center.
type KMeans struct {
	Seed    uint64
	MaxIter int
}

// NewKMeans creates a KMeans clusterer from Params.
func NewKMeans(p Params) *KMeans {
	return &KMeans{Seed: p.Seed, MaxIter: p.MaxIter}
}

// Cluster implements Clusterer.
func (km *KMeans) Cluster(vectors [][]float64, k int) ([]int, error) {
	n := len(vectors)
	switch {
	case n == 0:
		return nil, fmt.Errorf("diarize: kmeans: no vectors")
	case k < 1:
		return nil, fmt.Errorf("diarize: kmeans: k=%d", k)
	case k > n:
		return nil, fmt.Errorf("diarize: kmeans: k=%d exceeds %d vectors", k, n)
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("diarize: kmeans: vector %d has dim %d, want %d", i, len(v), dim)
		}
	}

	rng := rand.New(rand.NewPCG(km.Seed, km.Seed))
	centers := km.seed(rng, vectors, k)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	maxIter := km.MaxIter
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	counts := make([]int, k)
	for range maxIter {
		changed := false
		for i, v := range vectors {
			if c := nearest(centers, v); c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		clear(counts)
		for i, v := range vectors {
			c := labels[i]
			if sums[c] == nil {
				sums[c] = make([]float64, dim)
			}
			floats.Add(sums[c], v)
			counts[c]++
		}
		for c := range centers {
			if counts[c] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centers[c] = sums[c]
		}
	}
	return labels, nil
}

// seed picks k initial centers with k-means++ D² sampling. When every
// remaining point coincides with a chosen center the first point is reused,
// which yields duplicate centers rather than an error.
func (km *KMeans) seed(rng *rand.Rand, vectors [][]float64, k int) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(vectors[rng.IntN(len(vectors))]))

	d2 := make([]float64, len(vectors))
	for len(centers) < k {
		var total float64
		for i, v := range vectors {
			d := floats.Distance(v, centers[nearest(centers, v)], 2)
			d2[i] = d * d
			total += d2[i]
		}

		next := 0
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range d2 {
				target -= d
				if target < 0 {
					next = i
					break
				}
				next = i
			}
		}
		centers = append(centers, clone(vectors[next]))
	}
	return centers
}

// nearest returns the index of the closest center, lowest index on ties.
func nearest(centers [][]float64, v []float64) int {
	best, bestDist := 0, floats.Distance(v, centers[0], 2)
	for c := 1; c < len(centers); c++ {
		if d := floats.Distance(v, centers[c], 2); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
