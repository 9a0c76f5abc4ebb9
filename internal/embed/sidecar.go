package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultSidecarTimeout    = 30 * time.Second
	defaultSidecarSampleRate = 16000
	sidecarHealthTimeout     = 3 * time.Second
)

// SidecarConfig holds configuration for the HTTP embedding sidecar.
type SidecarConfig struct {
	URL        string
	SampleRate int
	Timeout    time.Duration
}

// Sidecar implements Embedder by POSTing each window to an embedding service.
//
// Request:  POST {url}/embed {"sample_rate": 16000, "samples": [...]}
// Response: {"embedding": [...]} or {"error": "..."}
type Sidecar struct {
	cfg    SidecarConfig
	client *http.Client
}

// NewSidecar creates a sidecar embedder.
func NewSidecar(cfg SidecarConfig) *Sidecar {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSidecarSampleRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultSidecarTimeout
	}
	return &Sidecar{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name implements Embedder.
func (s *Sidecar) Name() string { return "sidecar:" + s.cfg.URL }

// SampleRate implements Embedder.
func (s *Sidecar) SampleRate() int { return s.cfg.SampleRate }

// IsAvailable checks if the sidecar is reachable.
func (s *Sidecar) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type embedRequest struct {
	SampleRate int       `json:"sample_rate"`
	Samples    []float32 `json:"samples"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// Embed implements Embedder.
func (s *Sidecar) Embed(window []float32) ([]float64, error) {
	body, err := json.Marshal(embedRequest{SampleRate: s.cfg.SampleRate, Samples: window})
	if err != nil {
		return nil, fmt.Errorf("embed: encode request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.cfg.URL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: sidecar request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embed: sidecar error (status %d): %s", resp.StatusCode, bytes.TrimSpace(b))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embed: decode response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("embed: sidecar error: %s", out.Error)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embed: sidecar returned an empty embedding")
	}
	return out.Embedding, nil
}
