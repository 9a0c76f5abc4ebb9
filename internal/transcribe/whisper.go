package transcribe

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperOptions configures decoding.
type WhisperOptions struct {
	Language       string // "auto" or empty enables language detection
	WordTimestamps bool
}

// WhisperTranscriber wraps a whisper.cpp model for speech-to-text.
type WhisperTranscriber struct {
	model whisper.Model
	opts  WhisperOptions
}

// NewWhisperTranscriber loads a whisper model from the given path.
// The caller must call Close() when done.
func NewWhisperTranscriber(modelPath string, opts WhisperOptions) (*WhisperTranscriber, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: %w", modelPath, err)
	}
	return &WhisperTranscriber{model: model, opts: opts}, nil
}

// Close releases the whisper model resources.
func (t *WhisperTranscriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// Process transcribes mono 16kHz float32 audio samples.
func (t *WhisperTranscriber) Process(samples []float32) (*Transcript, error) {
	ctx, err := t.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("transcribe: create context: %w", err)
	}

	lang := t.opts.Language
	if lang == "" {
		lang = "auto"
	}
	if err := ctx.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("transcribe: set language %q: %w", lang, err)
	}
	ctx.SetTokenTimestamps(t.opts.WordTimestamps)

	start := time.Now()
	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("transcribe: process: %w", err)
	}

	out := &Transcript{Language: ctx.DetectedLanguage()}
	if out.Language == "" {
		out.Language = lang
	}
	for {
		seg, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("transcribe: next segment: %w", err)
		}

		s := Segment{
			Start: seg.Start.Seconds(),
			End:   seg.End.Seconds(),
			Text:  strings.TrimSpace(seg.Text),
		}
		if t.opts.WordTimestamps {
			toks := make([]token, 0, len(seg.Tokens))
			for _, tok := range seg.Tokens {
				toks = append(toks, token{text: tok.Text, start: tok.Start, end: tok.End})
			}
			s.Words = groupWords(toks)
		}
		out.Segments = append(out.Segments, s)
	}
	out.JoinText()

	slog.Debug("Whisper transcription complete",
		"segments", len(out.Segments),
		"language", out.Language,
		"elapsed", time.Since(start),
	)
	return out, nil
}

// token is the subset of a whisper token needed to build words.
type token struct {
	text       string
	start, end time.Duration
}

// groupWords joins sub-word tokens into words. A token with a leading space
// starts a new word. Control tokens such as "[_BEG_]" and "<|en|>" are
// dropped.
func groupWords(tokens []token) []Word {
	var words []Word
	var cur *Word
	for _, tok := range tokens {
		if isSpecialToken(tok.text) || tok.text == "" {
			continue
		}
		if cur == nil || strings.HasPrefix(tok.text, " ") {
			if cur != nil && cur.Word != "" {
				words = append(words, *cur)
			}
			cur = &Word{Start: tok.start.Seconds(), End: tok.end.Seconds()}
		}
		cur.Word = strings.TrimSpace(cur.Word + tok.text)
		cur.End = max(cur.End, tok.end.Seconds())
	}
	if cur != nil && cur.Word != "" {
		words = append(words, *cur)
	}
	return words
}

func isSpecialToken(text string) bool {
	return strings.HasPrefix(text, "[_") || strings.HasPrefix(text, "<|")
}
