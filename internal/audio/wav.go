package audio

import (
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Waveform is mono float32 audio at a fixed sample rate. Samples are
// normalized to [-1.0, 1.0] and must not be mutated once loaded.
type Waveform struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the length of the waveform in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Resampled returns w converted to rate. The receiver is returned unchanged
// when it is already at that rate.
func (w Waveform) Resampled(rate int) Waveform {
	if rate == w.SampleRate || rate <= 0 {
		return w
	}
	return Waveform{Samples: Resample(w.Samples, w.SampleRate, rate), SampleRate: rate}
}

// LoadWAV decodes a PCM WAV file, downmixes it to mono and resamples it to
// sampleRate (the source rate is kept when sampleRate is 0).
func LoadWAV(path string, sampleRate int) (Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return Waveform{}, fmt.Errorf("audio: open %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Waveform{}, fmt.Errorf("audio: %q is not a valid WAV file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Waveform{}, fmt.Errorf("audio: decode %q: %w", path, err)
	}

	channels := 1
	rate := int(dec.SampleRate)
	if buf.Format != nil {
		if buf.Format.NumChannels > 0 {
			channels = buf.Format.NumChannels
		}
		if buf.Format.SampleRate > 0 {
			rate = buf.Format.SampleRate
		}
	}

	samples := Downmix(intToFloat32(buf.Data, int(dec.BitDepth)), channels)
	w := Waveform{Samples: samples, SampleRate: rate}
	if sampleRate > 0 {
		w = w.Resampled(sampleRate)
	}
	return w, nil
}

// SaveWAV writes w as a 16-bit mono PCM WAV file.
func SaveWAV(path string, w Waveform) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create %q: %w", path, err)
	}

	enc := wav.NewEncoder(f, w.SampleRate, 16, 1, 1)
	data := make([]int, len(w.Samples))
	for i, s := range w.Samples {
		v := math.Round(float64(s) * 32767)
		data[i] = int(max(-32768, min(32767, v)))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: w.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("audio: encode %q: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("audio: finalize %q: %w", path, err)
	}
	return f.Close()
}

// intToFloat32 converts integer PCM samples to float32 normalized to
// [-1.0, 1.0]. 8-bit WAV data is unsigned.
func intToFloat32(data []int, bitDepth int) []float32 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	out := make([]float32, len(data))
	if bitDepth == 8 {
		for i, s := range data {
			out[i] = float32(s-128) / 128.0
		}
		return out
	}
	scale := float32(int64(1) << (bitDepth - 1))
	for i, s := range data {
		out[i] = float32(s) / scale
	}
	return out
}

// Downmix averages interleaved frames into a mono signal.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float32, frames)
	for i := range frames {
		var sum float32
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// Resample converts samples from one rate to another by linear interpolation.
func Resample(samples []float32, from, to int) []float32 {
	if from == to || from <= 0 || to <= 0 || len(samples) == 0 {
		return samples
	}

	n := int(math.Round(float64(len(samples)) * float64(to) / float64(from)))
	out := make([]float32, n)
	ratio := float64(from) / float64(to)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= last {
			out[i] = samples[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = samples[j] + (samples[j+1]-samples[j])*frac
	}
	return out
}
