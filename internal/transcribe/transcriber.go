// Package transcribe provides speech-to-text backends producing timed
// segments and words.
//
// Supported backends:
//   - whisper: whisper.cpp via Go bindings (default)
//   - sidecar: an HTTP transcription service
//   - file: replay of a previously saved transcript JSON
package transcribe

import (
	"fmt"

	"github.com/chaz8081/meetscribe/internal/config"
)

// Transcriber converts audio samples to a timed transcript.
type Transcriber interface {
	// Process transcribes mono 16kHz float32 audio samples.
	Process(samples []float32) (*Transcript, error)
	// Close releases backend resources.
	Close() error
}

// New creates a Transcriber based on the config backend setting.
func New(cfg *config.TranscribeConfig) (Transcriber, error) {
	switch cfg.Backend {
	case "whisper", "":
		return NewWhisperTranscriber(cfg.ModelPath, WhisperOptions{
			Language:       cfg.Language,
			WordTimestamps: cfg.WordTimestamps,
		})
	case "sidecar":
		t := NewSidecarTranscriber(SidecarConfig{
			URL:            cfg.SidecarURL,
			Language:       cfg.Language,
			WordTimestamps: cfg.WordTimestamps,
		})
		t.checkHealth()
		return t, nil
	case "file":
		return NewFileTranscriber(cfg.TranscriptPath), nil
	default:
		return nil, fmt.Errorf("transcribe: unknown backend %q (supported: whisper, sidecar, file)", cfg.Backend)
	}
}
