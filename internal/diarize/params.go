// Package diarize partitions a waveform into who-spoke-when segments.
//
// The waveform is cut into overlapping windows, each window is embedded,
// the embeddings are clustered with a speaker count chosen by silhouette
// score, and the per-window labels are collapsed into contiguous segments
// labeled "S1".."Sk". Speakers are session-local labels, not identities.
package diarize

import "github.com/chaz8081/meetscribe/internal/config"

// Defaults for Params.
const (
	DefaultWindowS            = 1.5
	DefaultStepS              = 0.5
	DefaultMinAudioS          = 0.5
	DefaultSilhouetteSentinel = -1.0
	DefaultSeed               = 42
	DefaultMaxIter            = 300
)

// Params holds the tunable diarization constants.
type Params struct {
	WindowS float64 // embedding window length in seconds
	StepS   float64 // hop between window starts in seconds
	// MinAudioS is the shortest clip that is windowed at all; shorter clips
	// become a single S1 segment.
	MinAudioS float64
	// SilhouetteSentinel scores the single-speaker candidate and is the floor
	// a candidate must beat to be selected.
	SilhouetteSentinel float64
	Seed               uint64
	MaxIter            int
}

// DefaultParams returns the standard 1.5s/0.5s geometry with seed 42.
func DefaultParams() Params {
	return Params{
		WindowS:            DefaultWindowS,
		StepS:              DefaultStepS,
		MinAudioS:          DefaultMinAudioS,
		SilhouetteSentinel: DefaultSilhouetteSentinel,
		Seed:               DefaultSeed,
		MaxIter:            DefaultMaxIter,
	}
}

// ParamsFromConfig maps the diarize config section to Params.
func ParamsFromConfig(cfg *config.DiarizeConfig) Params {
	p := Params{
		WindowS:            cfg.WindowS,
		StepS:              cfg.StepS,
		MinAudioS:          cfg.MinAudioS,
		SilhouetteSentinel: cfg.SilhouetteSentinel,
		Seed:               cfg.Seed,
		MaxIter:            cfg.MaxIter,
	}
	def := DefaultParams()
	if p.WindowS <= 0 {
		p.WindowS = def.WindowS
	}
	if p.StepS <= 0 {
		p.StepS = def.StepS
	}
	if p.MaxIter <= 0 {
		p.MaxIter = def.MaxIter
	}
	return p
}
