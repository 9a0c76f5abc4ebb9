package embed

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// SpectralOptions configures the in-process spectral embedder.
type SpectralOptions struct {
	SampleRate int
	FrameSize  int // samples per analysis frame, also the FFT size
	HopSize    int
	Bands      int // mel bands
	MinHz      float64
	MaxHz      float64
}

// DefaultSpectralOptions returns 32ms frames with a 10ms hop and 40 mel bands
// at 16 kHz.
func DefaultSpectralOptions() SpectralOptions {
	return SpectralOptions{
		SampleRate: 16000,
		FrameSize:  512,
		HopSize:    160,
		Bands:      40,
		MinHz:      80,
		MaxHz:      7600,
	}
}

// Spectral embeds a window as the per-band mean and standard deviation of its
// log-mel spectrogram, band means centered and the whole L2-normalized. Vectors have
// 2*Bands dimensions: band means first, then band deviations.
type Spectral struct {
	opts    SpectralOptions
	hann    []float64
	filters [][]float64 // Bands x (FrameSize/2+1)

	mu     sync.Mutex
	fft    *fourier.FFT
	frame  []float64
	coeffs []complex128
}

// NewSpectral creates a spectral embedder. Zero option fields take their
// defaults.
func NewSpectral(opts SpectralOptions) *Spectral {
	def := DefaultSpectralOptions()
	if opts.SampleRate <= 0 {
		opts.SampleRate = def.SampleRate
	}
	if opts.FrameSize <= 0 {
		opts.FrameSize = def.FrameSize
	}
	if opts.HopSize <= 0 {
		opts.HopSize = def.HopSize
	}
	if opts.Bands <= 0 {
		opts.Bands = def.Bands
	}
	if opts.MaxHz <= 0 || opts.MaxHz > float64(opts.SampleRate)/2 {
		opts.MaxHz = float64(opts.SampleRate) / 2
	}
	if opts.MinHz < 0 || opts.MinHz >= opts.MaxHz {
		opts.MinHz = 0
	}

	hann := make([]float64, opts.FrameSize)
	for i := range hann {
		hann[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(opts.FrameSize-1))
	}

	return &Spectral{
		opts:    opts,
		hann:    hann,
		filters: melFilterbank(opts),
		fft:     fourier.NewFFT(opts.FrameSize),
		frame:   make([]float64, opts.FrameSize),
		coeffs:  make([]complex128, opts.FrameSize/2+1),
	}
}

// Name implements Embedder.
func (s *Spectral) Name() string {
	return fmt.Sprintf("spectral-%d-%d-%d-%d", s.opts.SampleRate, s.opts.FrameSize, s.opts.HopSize, s.opts.Bands)
}

// SampleRate implements Embedder.
func (s *Spectral) SampleRate() int { return s.opts.SampleRate }

// Dim returns the embedding dimensionality.
func (s *Spectral) Dim() int { return 2 * s.opts.Bands }

// Embed implements Embedder. Windows shorter than one frame are zero-padded.
func (s *Spectral) Embed(window []float32) ([]float64, error) {
	if len(window) == 0 {
		return nil, fmt.Errorf("embed: empty window")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bands := s.opts.Bands
	sum := make([]float64, bands)
	sumSq := make([]float64, bands)
	logMel := make([]float64, bands)

	frames := 0
	for start := 0; frames == 0 || start+s.opts.FrameSize <= len(window); start += s.opts.HopSize {
		for i := range s.frame {
			var v float64
			if start+i < len(window) {
				v = float64(window[start+i])
			}
			s.frame[i] = v * s.hann[i]
		}
		s.coeffs = s.fft.Coefficients(s.coeffs, s.frame)

		for b, filter := range s.filters {
			var energy float64
			for k, weight := range filter {
				if weight == 0 {
					continue
				}
				c := s.coeffs[k]
				energy += weight * (real(c)*real(c) + imag(c)*imag(c))
			}
			logMel[b] = math.Log(energy + 1e-10)
		}
		floats.Add(sum, logMel)
		for b, v := range logMel {
			sumSq[b] += v * v
		}
		frames++
	}

	n := float64(frames)
	vec := make([]float64, 2*bands)
	for b := range bands {
		mean := sum[b] / n
		variance := sumSq[b]/n - mean*mean
		vec[b] = mean
		vec[bands+b] = math.Sqrt(math.Max(variance, 0))
	}

	// Removing the average log energy makes the vector loudness invariant.
	means := vec[:bands]
	floats.AddConst(-floats.Sum(means)/float64(bands), means)
	if norm := floats.Norm(vec, 2); norm > 1e-12 {
		floats.Scale(1/norm, vec)
	} else {
		// Constant spectra (digital silence) collapse to the zero vector.
		for i := range vec {
			vec[i] = 0
		}
	}
	return vec, nil
}

// melFilterbank builds triangular filters evenly spaced on the mel scale.
func melFilterbank(opts SpectralOptions) [][]float64 {
	bins := opts.FrameSize/2 + 1
	lo, hi := hzToMel(opts.MinHz), hzToMel(opts.MaxHz)

	// Bands+2 edge frequencies expressed as fractional FFT bins.
	edges := make([]float64, opts.Bands+2)
	for i := range edges {
		mel := lo + (hi-lo)*float64(i)/float64(opts.Bands+1)
		edges[i] = melToHz(mel) * float64(opts.FrameSize) / float64(opts.SampleRate)
	}

	filters := make([][]float64, opts.Bands)
	for b := range filters {
		left, center, right := edges[b], edges[b+1], edges[b+2]
		f := make([]float64, bins)
		for k := range f {
			x := float64(k)
			switch {
			case x > left && x <= center && center > left:
				f[k] = (x - left) / (center - left)
			case x > center && x < right && right > center:
				f[k] = (right - x) / (right - center)
			}
		}
		filters[b] = f
	}
	return filters
}

func hzToMel(hz float64) float64 { return 2595 * math.Log10(1+hz/700) }

func melToHz(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }
