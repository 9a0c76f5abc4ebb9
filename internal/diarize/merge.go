package diarize

import "strconv"

// Segment is a contiguous interval attributed to one speaker.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Duration returns End-Start.
func (s Segment) Duration() float64 { return s.End - s.Start }

// SpeakerLabel maps a zero-based cluster label to "S1", "S2", ...
func SpeakerLabel(label int) string {
	return "S" + strconv.Itoa(label+1)
}

// MergeWindows collapses per-window labels into speaker segments.
//
// Window i spans [centers[i]-WindowS/2, centers[i]+WindowS/2]. A window
// extends the open segment when it carries the same label and starts no later
// than half a step past the segment end. When the label changes, the open
// segment is closed and the next one opened at the midpoint between the last
// window center of the old segment and the first center of the new one, so
// consecutive segments always meet. Starts are clamped to 0.
//
// Overlapping windows at a change are split, not shared: the old segment does
// not run on to its last window end and the new one does not reach back to its
// first window start. A word inside that overlap is attributed to the speaker
// on its side of the midpoint.
func MergeWindows(centers []float64, labels []int, p Params) []Segment {
	n := min(len(centers), len(labels))
	if n == 0 {
		return nil
	}

	half := p.WindowS / 2
	segments := make([]Segment, 0, 4)
	open := Segment{
		Start:   max(0, centers[0]-half),
		End:     centers[0] + half,
		Speaker: SpeakerLabel(labels[0]),
	}
	lastCenter := centers[0]

	for i := 1; i < n; i++ {
		start, end := max(0, centers[i]-half), centers[i]+half
		speaker := SpeakerLabel(labels[i])

		if speaker == open.Speaker && start <= open.End+p.StepS/2 {
			open.End = max(open.End, end)
			lastCenter = centers[i]
			continue
		}

		boundary := max(open.Start, (lastCenter+centers[i])/2)
		open.End = boundary
		segments = append(segments, open)

		open = Segment{Start: boundary, End: max(boundary, end), Speaker: speaker}
		lastCenter = centers[i]
	}
	return append(segments, open)
}

// cover stretches segments to span [0, duration] exactly. Segments starting at
// or past duration are dropped, keeping at least one.
func cover(segments []Segment, duration float64) []Segment {
	if len(segments) == 0 {
		return []Segment{{Start: 0, End: max(0, duration), Speaker: SpeakerLabel(0)}}
	}

	for len(segments) > 1 && segments[len(segments)-1].Start >= duration {
		segments = segments[:len(segments)-1]
	}
	segments[0].Start = 0
	last := &segments[len(segments)-1]
	last.End = max(last.Start, duration)
	return segments
}
