package diarize

import (
	"math/rand/v2"
	"reflect"
	"testing"
)

// centersFor returns the window centers of the default geometry.
func centersFor(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.75 + 0.5*float64(i)
	}
	return out
}

func TestMergeWindows(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		name   string
		labels []int
		want   []Segment
	}{
		{
			name:   "single window",
			labels: []int{0},
			want:   []Segment{{0, 1.5, "S1"}},
		},
		{
			name:   "one speaker",
			labels: []int{1, 1, 1, 1},
			want:   []Segment{{0, 3.0, "S2"}},
		},
		{
			name:   "speaker change",
			labels: []int{0, 0, 1, 1},
			want:   []Segment{{0, 1.5, "S1"}, {1.5, 3.0, "S2"}},
		},
		{
			name:   "alternating",
			labels: []int{0, 1, 0},
			want:   []Segment{{0, 1.0, "S1"}, {1.0, 1.5, "S2"}, {1.5, 2.5, "S1"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeWindows(centersFor(len(tt.labels)), tt.labels, p)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MergeWindows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeWindowsSplitsOverlapAtChange(t *testing.T) {
	// Windows 1 and 2 span [0.5, 2.0] and [1.0, 2.5]. Left as window spans the
	// two speakers would share [1.0, 2.0].
	got := MergeWindows(centersFor(4), []int{0, 0, 1, 1}, DefaultParams())
	if len(got) != 2 {
		t.Fatalf("MergeWindows() = %v, want 2 segments", got)
	}
	if got[0].End != 1.5 || got[1].Start != 1.5 {
		t.Errorf("boundary = %v / %v, want the center midpoint 1.5", got[0].End, got[1].Start)
	}
	if got[0].End > got[1].Start {
		t.Errorf("segments overlap: %v", got)
	}
}

func TestMergeWindowsEmpty(t *testing.T) {
	if got := MergeWindows(nil, nil, DefaultParams()); got != nil {
		t.Errorf("MergeWindows(nil) = %v, want nil", got)
	}
}

func TestMergeWindowsClampsStart(t *testing.T) {
	got := MergeWindows([]float64{0.25}, []int{0}, DefaultParams())
	if got[0].Start != 0 || got[0].End != 1.0 {
		t.Errorf("MergeWindows() = %v, want [{0 1 S1}]", got)
	}
}

func TestMergeWindowsGapStartsNewSegment(t *testing.T) {
	// Same speaker, but the second window starts well past the first's end.
	got := MergeWindows([]float64{0.75, 5.0}, []int{0, 0}, DefaultParams())
	if len(got) != 2 {
		t.Fatalf("MergeWindows() = %v, want 2 segments", got)
	}
	if got[0].End != got[1].Start {
		t.Errorf("segments do not meet: %v", got)
	}
}

func TestMergeWindowsContiguous(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	p := DefaultParams()
	for trial := range 50 {
		n := 1 + rng.IntN(40)
		labels := make([]int, n)
		for i := range labels {
			labels[i] = rng.IntN(3)
		}
		centers := centersFor(n)
		segs := MergeWindows(centers, labels, p)

		if segs[0].Start != 0 {
			t.Fatalf("trial %d: first start = %f", trial, segs[0].Start)
		}
		if want := centers[n-1] + p.WindowS/2; segs[len(segs)-1].End != want {
			t.Fatalf("trial %d: last end = %f, want %f", trial, segs[len(segs)-1].End, want)
		}
		for i, s := range segs {
			if s.End < s.Start {
				t.Fatalf("trial %d: segment %d inverted: %v", trial, i, s)
			}
			if i > 0 && segs[i-1].End != s.Start {
				t.Fatalf("trial %d: gap or overlap between %v and %v", trial, segs[i-1], s)
			}
			if i > 0 && segs[i-1].Speaker == s.Speaker {
				t.Fatalf("trial %d: adjacent segments share speaker %s", trial, s.Speaker)
			}
		}
	}
}

func TestCover(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		duration float64
		want     []Segment
	}{
		{"none", nil, 2.0, []Segment{{0, 2.0, "S1"}}},
		{"stretch end", []Segment{{0, 1.5, "S1"}}, 2.2, []Segment{{0, 2.2, "S1"}}},
		{"trim padded end", []Segment{{0, 1.5, "S1"}}, 0.8, []Segment{{0, 0.8, "S1"}}},
		{
			"drop segment past end",
			[]Segment{{0, 1.0, "S1"}, {1.0, 3.0, "S2"}},
			0.9,
			[]Segment{{0, 0.9, "S1"}},
		},
		{
			"zero start",
			[]Segment{{0.2, 1.0, "S1"}, {1.0, 3.0, "S2"}},
			3.1,
			[]Segment{{0, 1.0, "S1"}, {1.0, 3.1, "S2"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cover(tt.segments, tt.duration); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("cover() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpeakerLabel(t *testing.T) {
	for label, want := range []string{"S1", "S2", "S3"} {
		if got := SpeakerLabel(label); got != want {
			t.Errorf("SpeakerLabel(%d) = %q, want %q", label, got, want)
		}
	}
}
