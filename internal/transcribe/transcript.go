package transcribe

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoSegments is returned when a transcript carries no segments.
var ErrNoSegments = errors.New("transcript has no segments")

// Word is a single timed word. Text is trimmed of surrounding whitespace.
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// Segment is a timed span of recognized speech with optional word timing.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Transcript is the full ASR output for one recording. Times are seconds.
type Transcript struct {
	Language string    `json:"language"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// HasWords reports whether any segment carries word-level timing.
func (t *Transcript) HasWords() bool {
	for _, s := range t.Segments {
		if len(s.Words) > 0 {
			return true
		}
	}
	return false
}

// Validate checks that segments and words have ordered, non-negative times.
// A transcript without segments returns ErrNoSegments.
func (t *Transcript) Validate() error {
	if len(t.Segments) == 0 {
		return ErrNoSegments
	}
	for i, s := range t.Segments {
		if s.Start < 0 || s.End < s.Start {
			return fmt.Errorf("transcribe: segment %d has invalid span [%g, %g]", i, s.Start, s.End)
		}
		for j, w := range s.Words {
			if w.Start < 0 || w.End < w.Start {
				return fmt.Errorf("transcribe: segment %d word %d has invalid span [%g, %g]", i, j, w.Start, w.End)
			}
		}
	}
	return nil
}

// JoinText rebuilds Text from the segment texts.
func (t *Transcript) JoinText() {
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		if text := strings.TrimSpace(s.Text); text != "" {
			parts = append(parts, text)
		}
	}
	t.Text = strings.Join(parts, " ")
}

// ReadTranscript loads a transcript JSON file. A missing top-level text is
// rebuilt from the segments.
func ReadTranscript(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("transcribe: read transcript: %w", err)
	}
	return decodeTranscript(data)
}

func decodeTranscript(data []byte) (*Transcript, error) {
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("transcribe: parse transcript: %w", err)
	}
	for i := range t.Segments {
		for j := range t.Segments[i].Words {
			w := &t.Segments[i].Words[j]
			w.Word = strings.TrimSpace(w.Word)
		}
	}
	if t.Text == "" {
		t.JoinText()
	}
	return &t, nil
}
