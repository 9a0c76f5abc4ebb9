// Package embed provides speaker-embedding backends.
//
// Supported backends:
//   - spectral: log-mel band statistics computed in-process (default)
//   - sidecar: an HTTP embedding service (e.g. resemblyzer or wespeaker)
package embed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chaz8081/meetscribe/internal/config"
)

// Embedder maps a window of mono audio to a fixed-length voice vector.
// Implementations must be deterministic for identical input.
type Embedder interface {
	// Name identifies the backend and its model; it is part of cache keys.
	Name() string
	// SampleRate is the rate windows must be resampled to before Embed.
	SampleRate() int
	// Embed returns the embedding of one window of samples.
	Embed(window []float32) ([]float64, error)
}

// New creates an Embedder based on the diarize.embedder config setting.
func New(cfg *config.DiarizeConfig) (Embedder, error) {
	switch cfg.Embedder {
	case "spectral", "":
		return NewSpectral(DefaultSpectralOptions()), nil
	case "sidecar":
		s := NewSidecar(SidecarConfig{URL: cfg.EmbedderURL})
		ctx, cancel := context.WithTimeout(context.Background(), sidecarHealthTimeout)
		defer cancel()
		if !s.IsAvailable(ctx) {
			slog.Warn("Embedding sidecar not reachable, diarization will fall back to one speaker", "url", cfg.EmbedderURL)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("embed: unknown backend %q (supported: spectral, sidecar)", cfg.Embedder)
	}
}
