package diarize

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/chaz8081/meetscribe/internal/audio"
	"github.com/chaz8081/meetscribe/internal/embed"
)

// Result is the outcome of diarizing one waveform.
type Result struct {
	Segments   []Segment   `json:"segments"`
	K          int         `json:"k"`       // chosen speaker count
	Windows    int         `json:"windows"` // number of embedded windows
	Candidates []Candidate `json:"-"`
	Cached     bool        `json:"-"` // embeddings came from the cache
}

// Speakers returns the distinct speaker labels in order of first appearance.
func (r *Result) Speakers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range r.Segments {
		if !seen[s.Speaker] {
			seen[s.Speaker] = true
			out = append(out, s.Speaker)
		}
	}
	return out
}

// SingleSpeaker returns one S1 segment spanning [0, duration].
func SingleSpeaker(duration float64) []Segment {
	return []Segment{{Start: 0, End: max(0, duration), Speaker: SpeakerLabel(0)}}
}

// Option configures a Diarizer.
type Option func(*Diarizer)

// WithClusterer replaces the default seeded KMeans.
func WithClusterer(c Clusterer) Option {
	return func(d *Diarizer) { d.clusterer = c }
}

// WithCache enables the on-disk embedding cache.
func WithCache(c *Cache) Option {
	return func(d *Diarizer) { d.cache = c }
}

// Diarizer turns a waveform into speaker segments.
type Diarizer struct {
	embedder  embed.Embedder
	params    Params
	clusterer Clusterer
	cache     *Cache
}

// New creates a Diarizer using e for window embeddings.
func New(e embed.Embedder, p Params, opts ...Option) *Diarizer {
	d := &Diarizer{
		embedder:  e,
		params:    p,
		clusterer: NewKMeans(p),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Diarize partitions w into contiguous speaker segments covering
// [0, w.Duration()]. Clips shorter than MinAudioS, or that produce no
// windows, return a single S1 segment. An embedding failure is returned as an
// error and leaves the fallback to the caller.
func (d *Diarizer) Diarize(w audio.Waveform, r SpeakerRange) (*Result, error) {
	duration := w.Duration()
	if duration < d.params.MinAudioS {
		slog.Debug("Audio too short to diarize", "duration", duration, "min", d.params.MinAudioS)
		return &Result{Segments: SingleSpeaker(duration), K: 1}, nil
	}

	windows, cached, err := d.windows(w)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return &Result{Segments: SingleSpeaker(duration), K: 1}, nil
	}

	vectors := make([][]float64, len(windows))
	centers := make([]float64, len(windows))
	for i, win := range windows {
		vectors[i] = win.Vector
		centers[i] = win.Center
	}

	k, candidates := NewSelector(d.clusterer, d.params).SelectK(vectors, r)
	for _, c := range candidates {
		slog.Debug("Speaker count candidate", "candidate", c.String())
	}
	k = min(k, len(vectors))

	labels := make([]int, len(vectors))
	if k > 1 {
		labels, err = d.clusterer.Cluster(vectors, k)
		if err != nil {
			return nil, fmt.Errorf("diarize: cluster k=%d: %w", k, err)
		}
	}

	segments := cover(MergeWindows(centers, labels, d.params), duration)
	slog.Info("Diarized",
		"windows", len(windows),
		"speakers", k,
		"segments", len(segments),
		"cached", cached,
	)
	return &Result{
		Segments:   segments,
		K:          k,
		Windows:    len(windows),
		Candidates: candidates,
		Cached:     cached,
	}, nil
}

// windows embeds w, consulting the cache when one is configured. Cache
// failures are logged and otherwise ignored.
func (d *Diarizer) windows(w audio.Waveform) ([]Window, bool, error) {
	var key string
	if d.cache != nil {
		key = d.cache.Key(w, d.embedder.Name(), d.params)
		windows, ok, err := d.cache.Load(key)
		if err != nil {
			slog.Warn("Embedding cache unreadable", "error", err)
		}
		if ok {
			return windows, true, nil
		}
	}

	start := time.Now()
	windows, err := Windows(w, d.embedder, d.params)
	if err != nil {
		return nil, false, err
	}
	slog.Debug("Embedded windows", "count", len(windows), "embedder", d.embedder.Name(), "elapsed", time.Since(start))

	if d.cache != nil && len(windows) > 0 {
		if err := d.cache.Store(key, d.embedder.Name(), windows); err != nil {
			slog.Warn("Embedding cache not written", "error", err)
		}
	}
	return windows, false, nil
}
