// Package notes turns speaker turns into a summary, decisions and action
// items.
package notes

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chaz8081/meetscribe/internal/config"
	"github.com/chaz8081/meetscribe/internal/turns"
)

// DateLayout is the due date format.
const DateLayout = "2006-01-02"

// DefaultMaxChars bounds the transcript handed to a structurer.
const DefaultMaxChars = 12000

const truncatedMarker = "\n...[truncated]..."

// Action is a follow-up owned by a speaker.
type Action struct {
	Owner            string `json:"owner"`
	Task             string `json:"task"`
	SuggestedDueDate string `json:"suggested_due_date"`
}

// Notes is the structured meeting summary.
type Notes struct {
	Summary   []string `json:"summary"`
	Decisions []string `json:"decisions"`
	Actions   []Action `json:"actions"`
}

// Structurer produces Notes from speaker turns. due is the default due date
// for actions, formatted with DateLayout.
type Structurer interface {
	Name() string
	Structure(ctx context.Context, ts []turns.Turn, due string) (*Notes, error)
}

// New selects a Structurer for cfg. The openai backend needs OPENAI_API_KEY;
// without it the offline placeholder is used. OPENAI_MODEL overrides the
// configured model.
func New(cfg *config.NotesConfig) (Structurer, error) {
	switch cfg.Backend {
	case "offline", "":
		return Offline{}, nil
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			slog.Info("OPENAI_API_KEY not set, using offline notes")
			return Offline{}, nil
		}
		model := cfg.Model
		if m := os.Getenv("OPENAI_MODEL"); m != "" {
			model = m
		}
		return NewOpenAI(OpenAIConfig{APIKey: key, Model: model, MaxChars: cfg.MaxChars}), nil
	default:
		return nil, fmt.Errorf("notes: unknown backend %q (supported: offline, openai)", cfg.Backend)
	}
}

// Generate runs s and substitutes an error placeholder when it fails, so a
// notes failure never aborts a run.
func Generate(ctx context.Context, s Structurer, ts []turns.Turn, today time.Time) *Notes {
	due := NextFriday(today).Format(DateLayout)
	n, err := s.Structure(ctx, ts, due)
	if err != nil {
		slog.Warn("Notes generation failed", "structurer", s.Name(), "error", err)
		return errorNotes(err, due)
	}
	n.fillDefaults(due)
	return n
}

func (n *Notes) fillDefaults(due string) {
	if n.Summary == nil {
		n.Summary = []string{}
	}
	if n.Decisions == nil {
		n.Decisions = []string{}
	}
	if n.Actions == nil {
		n.Actions = []Action{}
	}
	for i := range n.Actions {
		if n.Actions[i].Owner == "" {
			n.Actions[i].Owner = turns.DefaultSpeaker
		}
		if n.Actions[i].SuggestedDueDate == "" {
			n.Actions[i].SuggestedDueDate = due
		}
	}
}

func errorNotes(err error, due string) *Notes {
	return &Notes{
		Summary:   []string{"(LLM error) Could not generate notes.", "Reason: " + err.Error()},
		Decisions: []string{},
		Actions:   []Action{{Owner: turns.DefaultSpeaker, Task: "Retry LLM summarization", SuggestedDueDate: due}},
	}
}

// NextFriday returns the next Friday after today. A Friday rolls over to the
// following week.
func NextFriday(today time.Time) time.Time {
	days := (int(time.Friday) - int(today.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return today.AddDate(0, 0, days)
}

// BuildTranscript renders turns as "speaker: text" lines, stopping with a
// truncation marker once maxChars would be exceeded.
func BuildTranscript(ts []turns.Turn, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	var parts []string
	total := 0
	for _, t := range ts {
		line := strings.TrimSpace(t.Speaker + ": " + t.Text)
		if line == "" {
			continue
		}
		if total+len(line)+1 > maxChars {
			parts = append(parts, truncatedMarker)
			break
		}
		parts = append(parts, line)
		total += len(line) + 1
	}
	return strings.Join(parts, "\n")
}

// Offline produces placeholder notes without contacting any service.
type Offline struct{}

// Name implements Structurer.
func (Offline) Name() string { return "offline" }

// Structure implements Structurer. The first speaker gets a single review
// action.
func (Offline) Structure(_ context.Context, ts []turns.Turn, due string) (*Notes, error) {
	n := &Notes{
		Summary:   []string{"(Offline placeholder) Set OPENAI_API_KEY to enable LLM summarization."},
		Decisions: []string{},
		Actions:   []Action{},
	}
	if len(ts) > 0 {
		n.Actions = append(n.Actions, Action{
			Owner:            ts[0].Speaker,
			Task:             "Review transcript and confirm action items",
			SuggestedDueDate: due,
		})
	}
	return n, nil
}
