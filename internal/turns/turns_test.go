package turns

import (
	"reflect"
	"testing"

	"github.com/chaz8081/meetscribe/internal/diarize"
	"github.com/chaz8081/meetscribe/internal/transcribe"
)

func labeled(speaker string, start, end float64, text string) Labeled {
	return Labeled{Unit: Unit{Start: start, End: end, Text: text}, Speaker: speaker}
}

func TestMergeBridgesPauseNotSpeakerChange(t *testing.T) {
	units := []Labeled{
		labeled("S1", 0, 1, "hi"),
		labeled("S1", 1.3, 2, "there"),
		labeled("S2", 2.1, 3, "bye"),
	}
	want := []Turn{
		{Speaker: "S1", Start: 0, End: 2, Text: "hi there"},
		{Speaker: "S2", Start: 2.1, End: 3, Text: "bye"},
	}
	if got := Merge(units, DefaultBridgeGap); !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %+v, want %+v", got, want)
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name  string
		units []Labeled
		want  []Turn
	}{
		{
			name:  "empty",
			units: nil,
			want:  []Turn{},
		},
		{
			name:  "gap too long",
			units: []Labeled{labeled("S1", 0, 1, "a"), labeled("S1", 1.7, 2, "b")},
			want:  []Turn{{"S1", 0, 1, "a"}, {"S1", 1.7, 2, "b"}},
		},
		{
			name:  "gap within bridge",
			units: []Labeled{labeled("S1", 0, 1, "a"), labeled("S1", 1.5, 2, "b")},
			want:  []Turn{{"S1", 0, 2, "a b"}},
		},
		{
			name:  "contained unit keeps end",
			units: []Labeled{labeled("S1", 0, 3, "long"), labeled("S1", 1, 2, "inner")},
			want:  []Turn{{"S1", 0, 3, "long inner"}},
		},
		{
			name:  "trims",
			units: []Labeled{labeled("S2", 0, 1, " "), labeled("S2", 1, 2, "ok ")},
			want:  []Turn{{"S2", 0, 2, "ok"}},
		},
		{
			name: "back and forth",
			units: []Labeled{
				labeled("S1", 0, 1, "one"),
				labeled("S2", 1, 2, "two"),
				labeled("S1", 2, 3, "three"),
			},
			want: []Turn{{"S1", 0, 1, "one"}, {"S2", 1, 2, "two"}, {"S1", 2, 3, "three"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Merge(tt.units, DefaultBridgeGap); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Merge() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAttachContainedUnit(t *testing.T) {
	segments := []diarize.Segment{
		{Start: 0, End: 2, Speaker: "S1"},
		{Start: 2, End: 5, Speaker: "S2"},
		{Start: 5, End: 9, Speaker: "S3"},
	}
	got := Attach([]Unit{{Start: 2.5, End: 4.5, Text: "x"}}, segments)
	if got[0].Speaker != "S2" {
		t.Errorf("Speaker = %q, want S2", got[0].Speaker)
	}
}

func TestAttach(t *testing.T) {
	segments := []diarize.Segment{
		{Start: 0, End: 2, Speaker: "S1"},
		{Start: 2, End: 4, Speaker: "S2"},
	}
	tests := []struct {
		name string
		unit Unit
		want string
	}{
		{"mostly second", Unit{Start: 1.5, End: 3.5}, "S2"},
		{"exact tie keeps first", Unit{Start: 1, End: 3}, "S1"},
		{"no overlap defaults", Unit{Start: 10, End: 11}, DefaultSpeaker},
		{"zero length defaults", Unit{Start: 3, End: 3}, DefaultSpeaker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Attach([]Unit{tt.unit}, segments)[0].Speaker; got != tt.want {
				t.Errorf("Speaker = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAttachNoSegments(t *testing.T) {
	got := Attach([]Unit{{Start: 0, End: 1, Text: "a"}}, nil)
	if len(got) != 1 || got[0].Speaker != DefaultSpeaker || got[0].Text != "a" {
		t.Errorf("Attach() = %+v", got)
	}
}

func TestUnits(t *testing.T) {
	tr := &transcribe.Transcript{Segments: []transcribe.Segment{
		{Start: 0, End: 2, Text: "hi there", Words: []transcribe.Word{
			{Start: 0, End: 1, Word: "hi"},
			{Start: 1.3, End: 2, Word: " there"},
		}},
		{Start: 2.1, End: 3, Text: " bye "},
	}}
	want := []Unit{
		{Start: 0, End: 1, Text: "hi"},
		{Start: 1.3, End: 2, Text: "there"},
		{Start: 2.1, End: 3, Text: "bye"},
	}
	if got := Units(tr); !reflect.DeepEqual(got, want) {
		t.Errorf("Units() = %+v, want %+v", got, want)
	}
}

func TestBuild(t *testing.T) {
	tr := &transcribe.Transcript{Segments: []transcribe.Segment{
		{Start: 0, End: 2, Text: "hi there", Words: []transcribe.Word{
			{Start: 0, End: 1, Word: "hi"},
			{Start: 1.3, End: 2, Word: "there"},
		}},
		{Start: 2.1, End: 3, Text: "bye"},
	}}
	segments := []diarize.Segment{{Start: 0, End: 2.05, Speaker: "S1"}, {Start: 2.05, End: 3, Speaker: "S2"}}

	want := []Turn{
		{Speaker: "S1", Start: 0, End: 2, Text: "hi there"},
		{Speaker: "S2", Start: 2.1, End: 3, Text: "bye"},
	}
	if got := Build(tr, segments, DefaultBridgeGap); !reflect.DeepEqual(got, want) {
		t.Errorf("Build() = %+v, want %+v", got, want)
	}
}
