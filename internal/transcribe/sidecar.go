package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/chaz8081/meetscribe/internal/audio"
)

const (
	defaultSidecarTimeout = 10 * time.Minute
	sidecarHealthTimeout  = 3 * time.Second
	sidecarSampleRate     = 16000
)

// SidecarConfig holds configuration for the HTTP transcription sidecar.
type SidecarConfig struct {
	URL            string
	Language       string
	WordTimestamps bool
	Timeout        time.Duration
}

// SidecarTranscriber uploads audio as a WAV file to a transcription service.
//
// Request:  POST {url}/transcribe multipart form with "file", "language" and
// "word_timestamps" fields.
// Response: a Transcript JSON document.
type SidecarTranscriber struct {
	cfg    SidecarConfig
	client *http.Client
}

// NewSidecarTranscriber creates a sidecar transcriber.
func NewSidecarTranscriber(cfg SidecarConfig) *SidecarTranscriber {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultSidecarTimeout
	}
	return &SidecarTranscriber{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// IsAvailable checks if the sidecar is reachable.
func (t *SidecarTranscriber) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.URL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// checkHealth warns when the sidecar does not answer its health check.
func (t *SidecarTranscriber) checkHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), sidecarHealthTimeout)
	defer cancel()
	if !t.IsAvailable(ctx) {
		slog.Warn("Transcription sidecar not reachable", "url", t.cfg.URL)
	}
}

// Process implements Transcriber.
func (t *SidecarTranscriber) Process(samples []float32) (*Transcript, error) {
	// go-audio/wav needs a seekable writer, so the upload is staged on disk.
	tmp, err := os.CreateTemp("", "meetscribe-*.wav")
	if err != nil {
		return nil, fmt.Errorf("transcribe: stage audio: %w", err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := audio.SaveWAV(tmp.Name(), audio.Waveform{Samples: samples, SampleRate: sidecarSampleRate}); err != nil {
		return nil, fmt.Errorf("transcribe: stage audio: %w", err)
	}
	wavData, err := os.ReadFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("transcribe: stage audio: %w", err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("transcribe: build request: %w", err)
	}
	if _, err := fw.Write(wavData); err != nil {
		return nil, fmt.Errorf("transcribe: build request: %w", err)
	}
	if t.cfg.Language != "" {
		_ = w.WriteField("language", t.cfg.Language)
	}
	_ = w.WriteField("word_timestamps", strconv.FormatBool(t.cfg.WordTimestamps))
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("transcribe: build request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, t.cfg.URL+"/transcribe", &body)
	if err != nil {
		return nil, fmt.Errorf("transcribe: create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcribe: sidecar request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transcribe: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(data) > 4096 {
			data = data[:4096]
		}
		return nil, fmt.Errorf("transcribe: sidecar error (status %d): %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	out, err := decodeTranscript(data)
	if err != nil {
		return nil, err
	}
	slog.Debug("Sidecar transcription complete", "segments", len(out.Segments), "elapsed", time.Since(start))
	return out, nil
}

// Close implements Transcriber.
func (t *SidecarTranscriber) Close() error { return nil }
