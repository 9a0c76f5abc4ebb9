// Package turns fuses ASR timing with diarization segments into speaker
// turns.
package turns

import (
	"strings"

	"github.com/chaz8081/meetscribe/internal/diarize"
	"github.com/chaz8081/meetscribe/internal/transcribe"
)

// DefaultBridgeGap is the longest pause, in seconds, bridged within one
// speaker's turn.
const DefaultBridgeGap = 0.6

// DefaultSpeaker is assigned to units that overlap no segment.
const DefaultSpeaker = "S1"

// Unit is one timed piece of ASR output: a word, or a whole segment when word
// timing is unavailable.
type Unit struct {
	Start float64
	End   float64
	Text  string
}

// Labeled is a Unit attributed to a speaker.
type Labeled struct {
	Unit
	Speaker string
}

// Turn is a maximal run of one speaker's units.
type Turn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// Units flattens a transcript into attachable units. Segments that carry
// words contribute one unit per word; the rest contribute themselves.
func Units(t *transcribe.Transcript) []Unit {
	var units []Unit
	for _, seg := range t.Segments {
		if len(seg.Words) > 0 {
			for _, w := range seg.Words {
				units = append(units, Unit{Start: w.Start, End: w.End, Text: strings.TrimSpace(w.Word)})
			}
			continue
		}
		units = append(units, Unit{Start: seg.Start, End: seg.End, Text: strings.TrimSpace(seg.Text)})
	}
	return units
}

func overlap(start, end float64, seg diarize.Segment) float64 {
	return max(0, min(end, seg.End)-max(start, seg.Start))
}

// Attach assigns each unit the speaker of the segment it overlaps most. The
// earliest segment wins an exact tie. Units overlapping nothing get
// DefaultSpeaker. Order is preserved.
func Attach(units []Unit, segments []diarize.Segment) []Labeled {
	out := make([]Labeled, len(units))
	for i, u := range units {
		speaker, best := DefaultSpeaker, 0.0
		for _, seg := range segments {
			if ov := overlap(u.Start, u.End, seg); ov > best {
				speaker, best = seg.Speaker, ov
			}
		}
		out[i] = Labeled{Unit: u, Speaker: speaker}
	}
	return out
}

// Merge coalesces consecutive same-speaker units into turns. A unit joins the
// open turn when its speaker matches and it starts no more than gap seconds
// after the turn ends.
func Merge(units []Labeled, gap float64) []Turn {
	turns := []Turn{}
	if len(units) == 0 {
		return turns
	}

	var tokens []string
	cur := Turn{Speaker: units[0].Speaker, Start: units[0].Start, End: units[0].End}
	tokens = append(tokens, units[0].Text)

	flush := func() {
		cur.Text = strings.TrimSpace(strings.Join(tokens, " "))
		turns = append(turns, cur)
	}

	for _, u := range units[1:] {
		if u.Speaker == cur.Speaker && u.Start <= cur.End+gap {
			tokens = append(tokens, u.Text)
			cur.End = max(cur.End, u.End)
			continue
		}
		flush()
		cur = Turn{Speaker: u.Speaker, Start: u.Start, End: u.End}
		tokens = append(tokens[:0], u.Text)
	}
	flush()
	return turns
}

// Build attaches speakers to the transcript units and merges them into turns.
func Build(t *transcribe.Transcript, segments []diarize.Segment, gap float64) []Turn {
	return Merge(Attach(Units(t), segments), gap)
}
