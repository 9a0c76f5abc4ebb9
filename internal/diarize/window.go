package diarize

import (
	"fmt"
	"math"

	"github.com/chaz8081/meetscribe/internal/audio"
	"github.com/chaz8081/meetscribe/internal/embed"
)

// Window is one embedded slice of the waveform.
type Window struct {
	Center float64   `json:"center"` // seconds from the start of the waveform
	Vector []float64 `json:"vector"`
}

// geometry is the window layout in samples for a given rate.
type geometry struct {
	rate   int
	size   int
	step   int
	starts []int
}

func newGeometry(samples, rate int, p Params) geometry {
	g := geometry{
		rate: rate,
		size: max(1, int(math.Round(p.WindowS*float64(rate)))),
		step: max(1, int(math.Round(p.StepS*float64(rate)))),
	}
	if samples == 0 {
		return g
	}

	count := 1
	if samples > g.size {
		count = (samples-g.size+g.step-1)/g.step + 1
	}
	g.starts = make([]int, count)
	for i := range g.starts {
		g.starts[i] = i * g.step
	}
	return g
}

// center returns the window center in seconds.
func (g geometry) center(start int) float64 {
	return (float64(start) + float64(g.size)/2) / float64(g.rate)
}

// Windows resamples w to the embedder's rate, slides a fixed-size window over
// it and embeds each slice. The final window is zero-padded when it runs past
// the end, so clips shorter than one window yield exactly one window. Clips
// shorter than p.MinAudioS yield none.
func Windows(w audio.Waveform, e embed.Embedder, p Params) ([]Window, error) {
	if w.Duration() < p.MinAudioS {
		return nil, nil
	}

	w = w.Resampled(e.SampleRate())
	g := newGeometry(len(w.Samples), w.SampleRate, p)

	windows := make([]Window, 0, len(g.starts))
	buf := make([]float32, g.size)
	for _, start := range g.starts {
		n := copy(buf, w.Samples[start:min(start+g.size, len(w.Samples))])
		clear(buf[n:])

		vec, err := e.Embed(buf)
		if err != nil {
			return nil, fmt.Errorf("diarize: embed window at %.2fs: %w", g.center(start), err)
		}
		windows = append(windows, Window{Center: g.center(start), Vector: vec})
	}
	return windows, nil
}
