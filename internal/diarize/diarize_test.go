package diarize

import (
	"errors"
	"reflect"
	"testing"

	"github.com/chaz8081/meetscribe/internal/audio"
	"github.com/chaz8081/meetscribe/internal/config"
)

// meanEmbedder embeds a window as its mean sample value.
type meanEmbedder struct {
	rate    int
	calls   int
	lengths []int
	err     error
}

func (m *meanEmbedder) Name() string    { return "mean" }
func (m *meanEmbedder) SampleRate() int { return m.rate }

func (m *meanEmbedder) Embed(window []float32) ([]float64, error) {
	m.calls++
	m.lengths = append(m.lengths, len(window))
	if m.err != nil {
		return nil, m.err
	}
	var sum float64
	for _, s := range window {
		sum += float64(s)
	}
	return []float64{sum / float64(len(window))}, nil
}

// constant returns secs seconds of value v at rate.
func constant(v float32, secs float64, rate int) []float32 {
	out := make([]float32, int(secs*float64(rate)))
	for i := range out {
		out[i] = v
	}
	return out
}

// twoSpeakers is 3s at 0.2 followed by 3s at 0.8, at 16 kHz.
func twoSpeakers() audio.Waveform {
	samples := append(constant(0.2, 3, 16000), constant(0.8, 3, 16000)...)
	return audio.Waveform{Samples: samples, SampleRate: 16000}
}

func TestParseSpeakerRange(t *testing.T) {
	tests := []struct {
		in      string
		want    SpeakerRange
		wantErr bool
	}{
		{"2", SpeakerRange{2, 2}, false},
		{"2-4", SpeakerRange{2, 4}, false},
		{" 1 - 3 ", SpeakerRange{1, 3}, false},
		{"4-2", SpeakerRange{}, true},
		{"two", SpeakerRange{}, true},
		{"2-", SpeakerRange{}, true},
		{"", SpeakerRange{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSpeakerRange(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSpeakerRange(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSpeakerRange(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSpeakerRangeClamped(t *testing.T) {
	got := SpeakerRange{Min: 0, Max: -1}.Clamped()
	if got != (SpeakerRange{1, 1}) {
		t.Errorf("Clamped() = %v, want {1 1}", got)
	}
	if s := (SpeakerRange{2, 4}).String(); s != "2-4" {
		t.Errorf("String() = %q", s)
	}
}

func TestParamsFromConfig(t *testing.T) {
	cfg := config.Default().Diarize
	cfg.Seed = 7
	cfg.StepS = 0
	p := ParamsFromConfig(&cfg)
	if p.Seed != 7 || p.StepS != DefaultStepS || p.WindowS != DefaultWindowS {
		t.Errorf("ParamsFromConfig() = %+v", p)
	}
}

func TestWindows(t *testing.T) {
	tests := []struct {
		name        string
		secs        float64
		rate        int
		wantCenters []float64
	}{
		{"too short", 0.3, 16000, nil},
		{"shorter than a window", 1.0, 16000, []float64{0.75}},
		{"exact window", 1.5, 16000, []float64{0.75}},
		{"two windows", 2.0, 16000, []float64{0.75, 1.25}},
		{"padded tail", 2.2, 16000, []float64{0.75, 1.25, 1.75}},
		{"resampled", 2.0, 8000, []float64{0.75, 1.25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &meanEmbedder{rate: 16000}
			w := audio.Waveform{Samples: constant(0.5, tt.secs, tt.rate), SampleRate: tt.rate}

			windows, err := Windows(w, e, DefaultParams())
			if err != nil {
				t.Fatalf("Windows() error = %v", err)
			}
			var centers []float64
			for _, win := range windows {
				centers = append(centers, win.Center)
			}
			if !reflect.DeepEqual(centers, tt.wantCenters) {
				t.Errorf("centers = %v, want %v", centers, tt.wantCenters)
			}
			for _, n := range e.lengths {
				if n != 24000 {
					t.Errorf("window length = %d, want 24000", n)
				}
			}
		})
	}
}

func TestDiarizeShortAudio(t *testing.T) {
	e := &meanEmbedder{rate: 16000}
	w := audio.Waveform{Samples: constant(0.1, 0.3, 16000), SampleRate: 16000}

	res, err := New(e, DefaultParams()).Diarize(w, SpeakerRange{2, 5})
	if err != nil {
		t.Fatalf("Diarize() error = %v", err)
	}
	want := []Segment{{0, w.Duration(), "S1"}}
	if !reflect.DeepEqual(res.Segments, want) {
		t.Errorf("Segments = %v, want %v", res.Segments, want)
	}
	if e.calls != 0 {
		t.Errorf("embedder called %d times", e.calls)
	}
}

func TestDiarizeTwoSpeakers(t *testing.T) {
	w := twoSpeakers()
	res, err := New(&meanEmbedder{rate: 16000}, DefaultParams()).Diarize(w, SpeakerRange{1, 2})
	if err != nil {
		t.Fatalf("Diarize() error = %v", err)
	}

	if res.K != 2 || res.Windows != 10 {
		t.Errorf("K = %d, Windows = %d, want 2 and 10", res.K, res.Windows)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("Segments = %v, want 2", res.Segments)
	}
	first, second := res.Segments[0], res.Segments[1]
	if first.Start != 0 || first.End != 3.0 || second.Start != 3.0 || second.End != w.Duration() {
		t.Errorf("Segments = %v, want [0,3] and [3,6]", res.Segments)
	}
	if first.Speaker == second.Speaker {
		t.Errorf("both segments labeled %s", first.Speaker)
	}
	if got := res.Speakers(); len(got) != 2 {
		t.Errorf("Speakers() = %v", got)
	}
}

func TestDiarizeIdempotent(t *testing.T) {
	w := twoSpeakers()
	a, err := New(&meanEmbedder{rate: 16000}, DefaultParams()).Diarize(w, SpeakerRange{1, 4})
	if err != nil {
		t.Fatalf("Diarize() error = %v", err)
	}
	b, err := New(&meanEmbedder{rate: 16000}, DefaultParams()).Diarize(w, SpeakerRange{1, 4})
	if err != nil {
		t.Fatalf("Diarize() error = %v", err)
	}
	if !reflect.DeepEqual(a.Segments, b.Segments) {
		t.Errorf("runs differ: %v vs %v", a.Segments, b.Segments)
	}
}

func TestDiarizeSingleSpeakerRangeSkipsClustering(t *testing.T) {
	fake := &countingClusterer{labels: func(n, k int) []int { return make([]int, n) }}
	d := New(&meanEmbedder{rate: 16000}, DefaultParams(), WithClusterer(fake))

	res, err := d.Diarize(twoSpeakers(), SpeakerRange{1, 1})
	if err != nil {
		t.Fatalf("Diarize() error = %v", err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("clusterer called with %v", fake.calls)
	}
	want := []Segment{{0, 6.0, "S1"}}
	if !reflect.DeepEqual(res.Segments, want) {
		t.Errorf("Segments = %v, want %v", res.Segments, want)
	}
}

func TestDiarizeFixedCountClampedToWindows(t *testing.T) {
	fake := &countingClusterer{labels: func(n, k int) []int {
		labels := make([]int, n)
		for i := range labels {
			labels[i] = i % k
		}
		return labels
	}}
	w := audio.Waveform{Samples: constant(0.3, 2.0, 16000), SampleRate: 16000}

	res, err := New(&meanEmbedder{rate: 16000}, DefaultParams(), WithClusterer(fake)).Diarize(w, SpeakerRange{5, 5})
	if err != nil {
		t.Fatalf("Diarize() error = %v", err)
	}
	if res.K != 2 || !reflect.DeepEqual(fake.calls, []int{2}) {
		t.Errorf("K = %d, calls = %v, want 2 and [2]", res.K, fake.calls)
	}
}

func TestDiarizeEmbedderError(t *testing.T) {
	e := &meanEmbedder{rate: 16000, err: errors.New("sidecar down")}
	if _, err := New(e, DefaultParams()).Diarize(twoSpeakers(), SpeakerRange{1, 2}); err == nil {
		t.Error("Diarize() should return the embedding error")
	}
}

func TestDiarizeCache(t *testing.T) {
	cache := NewCache(t.TempDir())
	e := &meanEmbedder{rate: 16000}
	d := New(e, DefaultParams(), WithCache(cache))
	w := twoSpeakers()

	first, err := d.Diarize(w, SpeakerRange{1, 2})
	if err != nil {
		t.Fatalf("Diarize() error = %v", err)
	}
	calls := e.calls

	second, err := d.Diarize(w, SpeakerRange{1, 2})
	if err != nil {
		t.Fatalf("Diarize() error = %v", err)
	}
	if e.calls != calls {
		t.Errorf("embedder called again: %d -> %d", calls, e.calls)
	}
	if first.Cached || !second.Cached {
		t.Errorf("Cached = %v, %v, want false, true", first.Cached, second.Cached)
	}
	if !reflect.DeepEqual(first.Segments, second.Segments) {
		t.Errorf("cached run differs: %v vs %v", first.Segments, second.Segments)
	}
}

func TestCacheKey(t *testing.T) {
	c := NewCache(t.TempDir())
	w := twoSpeakers()
	p := DefaultParams()

	key := c.Key(w, "mean", p)
	if key != c.Key(w, "mean", p) {
		t.Error("Key() is not stable")
	}
	if key == c.Key(w, "other", p) {
		t.Error("Key() ignores the embedder name")
	}
	p.StepS = 0.25
	if key == c.Key(w, "mean", p) {
		t.Error("Key() ignores the window geometry")
	}
	other := audio.Waveform{Samples: append([]float32{0.9}, w.Samples[1:]...), SampleRate: w.SampleRate}
	if key == c.Key(other, "mean", DefaultParams()) {
		t.Error("Key() ignores the samples")
	}
}

func TestCacheLoadMissing(t *testing.T) {
	windows, ok, err := NewCache(t.TempDir()).Load("absent")
	if err != nil || ok || windows != nil {
		t.Errorf("Load() = %v, %v, %v, want nil, false, nil", windows, ok, err)
	}
}
