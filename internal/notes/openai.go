package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chaz8081/meetscribe/internal/turns"
)

const (
	defaultOpenAIURL     = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultOpenAITimeout = 2 * time.Minute
)

const systemPrompt = "You are a concise meeting-notes assistant. " +
	"Given a multi-speaker transcript, produce crisp, actionable notes."

const userPrompt = `Transcript (speaker-tagged):

%s

Return strict JSON with these fields:
- summary: array of 5-10 short bullets capturing key points.
- decisions: array of bullets with any decisions made (or empty).
- actions: array of objects with fields:
  - owner (string like S1/S2 based on who should act),
  - task (imperative verb phrase),
  - suggested_due_date (YYYY-MM-DD, default %s).

Rules:
- Be specific and non-repetitive.
- Infer owners from context; if unclear, pick the most relevant speaker.
- If no clear decisions/actions, return empty arrays.
`

// OpenAIConfig configures the chat completions structurer.
type OpenAIConfig struct {
	APIKey   string
	Model    string
	BaseURL  string
	MaxChars int
	Timeout  time.Duration
}

// OpenAI structures notes with a chat completions call in JSON mode.
type OpenAI struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAI creates an OpenAI structurer.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultOpenAITimeout
	}
	return &OpenAI{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// Name implements Structurer.
func (o *OpenAI) Name() string { return "openai:" + o.cfg.Model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Structure implements Structurer.
func (o *OpenAI) Structure(ctx context.Context, ts []turns.Turn, due string) (*Notes, error) {
	body, err := json.Marshal(chatRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(userPrompt, BuildTranscript(ts, o.cfg.MaxChars), due)},
		},
		Temperature:    0.2,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("notes: encode request: %w", err)
	}

	url := strings.TrimRight(o.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("notes: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notes: openai request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("notes: read response: %w", err)
	}

	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("notes: decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(data))
		if out.Error != nil {
			msg = out.Error.Message
		}
		return nil, fmt.Errorf("notes: openai error (status %d): %s", resp.StatusCode, msg)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("notes: openai returned no choices")
	}

	var n Notes
	if err := json.Unmarshal([]byte(out.Choices[0].Message.Content), &n); err != nil {
		return nil, fmt.Errorf("notes: parse notes JSON: %w", err)
	}
	return &n, nil
}
