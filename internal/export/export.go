// Package export writes transcripts, speaker turns and notes to disk.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chaz8081/meetscribe/internal/notes"
	"github.com/chaz8081/meetscribe/internal/transcribe"
	"github.com/chaz8081/meetscribe/internal/turns"
)

// Output file names.
const (
	TranscriptText    = "transcript.txt"
	TranscriptJSON    = "transcript.json"
	TranscriptSRT     = "transcript.srt"
	DiarizationJSON   = "diarization.json"
	SpeakerTurnsJSON  = "speaker_turns.json"
	SpeakerTranscript = "speaker_transcript.md"
	NotesMarkdown     = "notes.md"
	NotesJSON         = "notes.json"
)

// WriteText writes text to path, creating parent directories.
func WriteText(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("export: create dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("export: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteJSON writes v as indented JSON without HTML escaping.
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("export: encode %s: %w", filepath.Base(path), err)
	}
	return WriteText(path, buf.String())
}

// Timestamp formats seconds as HH:MM:SS,mmm rounded to the nearest
// millisecond. Negative values format as zero.
func Timestamp(seconds float64) string {
	ms := int64(math.Round(max(0, seconds) * 1000))
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

// SegmentsToSRT renders ASR segments as SubRip cues.
func SegmentsToSRT(segments []transcribe.Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s --> %s\n", Timestamp(seg.Start), Timestamp(seg.End))
		b.WriteString(strings.TrimSpace(seg.Text))
		b.WriteString("\n")
	}
	return b.String()
}

// SpeakerMarkdown renders turns as a speaker-attributed Markdown transcript.
func SpeakerMarkdown(ts []turns.Turn) string {
	var b strings.Builder
	b.WriteString("# Speaker Transcript\n\n")
	for _, t := range ts {
		fmt.Fprintf(&b, "**%s** [%s–%s]: %s\n", t.Speaker, Timestamp(t.Start), Timestamp(t.End), t.Text)
	}
	return b.String()
}

// NotesToMarkdown renders notes as Markdown sections.
func NotesToMarkdown(n *notes.Notes) string {
	var b strings.Builder
	b.WriteString("# Notes\n\n## Summary\n\n")
	writeBullets(&b, n.Summary)

	b.WriteString("\n## Decisions\n\n")
	writeBullets(&b, n.Decisions)

	b.WriteString("\n## Actions\n\n")
	if len(n.Actions) == 0 {
		b.WriteString("_None_\n")
	}
	for _, a := range n.Actions {
		fmt.Fprintf(&b, "- [ ] **%s**: %s (due %s)\n", a.Owner, a.Task, a.SuggestedDueDate)
	}
	return b.String()
}

func writeBullets(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("_None_\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
