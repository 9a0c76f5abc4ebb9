package diarize

import (
	"fmt"
	"math"
)

// Candidate is the outcome of scoring one speaker count. Err is non-nil when
// the candidate could not be scored; such candidates never win.
type Candidate struct {
	K     int
	Score float64
	Err   error
}

// Usable reports whether the candidate produced a score.
func (c Candidate) Usable() bool { return c.Err == nil }

func (c Candidate) String() string {
	if c.Err != nil {
		return fmt.Sprintf("k=%d unusable (%v)", c.K, c.Err)
	}
	return fmt.Sprintf("k=%d score=%.4f", c.K, c.Score)
}

// Selector picks a speaker count from a range by silhouette score.
type Selector struct {
	Clusterer Clusterer
	// Sentinel is the score given to k=1 and the floor a candidate must
	// strictly exceed to be chosen.
	Sentinel float64
}

// NewSelector creates a Selector using c for trial clusterings.
func NewSelector(c Clusterer, p Params) *Selector {
	return &Selector{Clusterer: c, Sentinel: p.SilhouetteSentinel}
}

// SelectK chooses the speaker count for vectors within r.
//
// A fixed range returns immediately without clustering. When there are fewer
// vectors than r.Min the count falls back to min(r.Max, len(vectors)) or 1.
// Otherwise each k in the range is scored and the strictly highest score wins,
// ties keeping the lower k. When nothing beats the sentinel r.Min is returned.
// The scored candidates are returned in k order for logging.
func (s *Selector) SelectK(vectors [][]float64, r SpeakerRange) (int, []Candidate) {
	r = r.Clamped()
	if r.Min == r.Max {
		return r.Min, nil
	}

	n := len(vectors)
	if n < r.Min {
		if n >= 2 {
			return min(r.Max, n), nil
		}
		return 1, nil
	}

	candidates := make([]Candidate, 0, r.Max-r.Min+1)
	best, bestScore := r.Min, s.Sentinel
	for k := r.Min; k <= r.Max; k++ {
		c := s.score(vectors, k)
		candidates = append(candidates, c)
		if c.Usable() && c.Score > bestScore {
			best, bestScore = k, c.Score
		}
	}
	return best, candidates
}

func (s *Selector) score(vectors [][]float64, k int) Candidate {
	c := Candidate{K: k}
	switch {
	case k == 1:
		c.Score = s.Sentinel
		return c
	case k > len(vectors):
		c.Err = fmt.Errorf("k=%d with %d vectors: %w", k, len(vectors), ErrDegenerate)
		return c
	}

	labels, err := s.Clusterer.Cluster(vectors, k)
	if err != nil {
		c.Err = err
		return c
	}
	score, err := Silhouette(vectors, labels)
	if err != nil {
		c.Err = err
		return c
	}
	if math.IsNaN(score) {
		c.Err = ErrDegenerate
		return c
	}
	c.Score = score
	return c
}
