package diarize

import (
	"fmt"
	"strconv"
	"strings"
)

// SpeakerRange is the inclusive range of speaker counts to consider.
type SpeakerRange struct {
	Min int
	Max int
}

// ParseSpeakerRange parses "N" (exactly N speakers) or "MIN-MAX". The string
// is split on the first "-".
func ParseSpeakerRange(s string) (SpeakerRange, error) {
	lo, hi, found := strings.Cut(strings.TrimSpace(s), "-")

	minK, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return SpeakerRange{}, fmt.Errorf("diarize: speaker range %q: %w", s, err)
	}
	if !found {
		return SpeakerRange{Min: minK, Max: minK}, nil
	}

	maxK, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return SpeakerRange{}, fmt.Errorf("diarize: speaker range %q: %w", s, err)
	}
	if maxK < minK {
		return SpeakerRange{}, fmt.Errorf("diarize: speaker range %q: max below min", s)
	}
	return SpeakerRange{Min: minK, Max: maxK}, nil
}

// Clamped returns the range with both bounds raised to at least 1 and Max
// raised to at least Min.
func (r SpeakerRange) Clamped() SpeakerRange {
	r.Min = max(1, r.Min)
	r.Max = max(1, r.Max, r.Min)
	return r
}

func (r SpeakerRange) String() string {
	if r.Min == r.Max {
		return strconv.Itoa(r.Min)
	}
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}
