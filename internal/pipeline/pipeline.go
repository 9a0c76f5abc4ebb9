// Package pipeline runs a recording through transcription, diarization, turn
// building, notes and export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/chaz8081/meetscribe/internal/audio"
	"github.com/chaz8081/meetscribe/internal/diarize"
	"github.com/chaz8081/meetscribe/internal/export"
	"github.com/chaz8081/meetscribe/internal/notes"
	"github.com/chaz8081/meetscribe/internal/transcribe"
	"github.com/chaz8081/meetscribe/internal/turns"
)

// ASRSampleRate is the rate transcribers expect.
const ASRSampleRate = 16000

// Options controls a run.
type Options struct {
	Speakers  diarize.SpeakerRange
	BridgeGap float64
	OutDir    string // empty skips export
	SRT       bool
	// Now supplies the date notes due dates are computed from.
	Now func() time.Time
}

// Result holds every artifact of a run.
type Result struct {
	Transcript  *transcribe.Transcript
	Diarization *diarize.Result
	Turns       []turns.Turn
	Notes       *notes.Notes
	Files       []string // exported file names, in write order
}

// Pipeline wires the stages together. It holds no per-run state and may be
// reused.
type Pipeline struct {
	transcriber transcribe.Transcriber
	diarizer    *diarize.Diarizer
	structurer  notes.Structurer
	opts        Options
}

// New creates a Pipeline.
func New(t transcribe.Transcriber, d *diarize.Diarizer, s notes.Structurer, opts Options) *Pipeline {
	if opts.BridgeGap <= 0 {
		opts.BridgeGap = turns.DefaultBridgeGap
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{transcriber: t, diarizer: d, structurer: s, opts: opts}
}

// ProcessFile loads a WAV file and runs it.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*Result, error) {
	w, err := audio.LoadWAV(path, 0)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	slog.Info("Loaded audio", "path", path, "duration", w.Duration(), "sample_rate", w.SampleRate)
	return p.Run(ctx, w)
}

// Run processes one waveform. Diarization and notes failures fall back to a
// single speaker and placeholder notes; transcription and export failures are
// returned.
func (p *Pipeline) Run(ctx context.Context, w audio.Waveform) (*Result, error) {
	res := &Result{}

	start := time.Now()
	tr, err := p.transcriber.Process(w.Resampled(ASRSampleRate).Samples)
	if err != nil {
		return nil, fmt.Errorf("pipeline: transcribe: %w", err)
	}
	if err := tr.Validate(); errors.Is(err, transcribe.ErrNoSegments) {
		slog.Warn("No speech recognized", "duration", w.Duration())
	} else if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	res.Transcript = tr
	slog.Info("Transcribed", "segments", len(tr.Segments), "language", tr.Language, "elapsed", time.Since(start))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Diarization = p.diarize(w)
	res.Turns = turns.Build(tr, res.Diarization.Segments, p.opts.BridgeGap)
	slog.Info("Built speaker turns", "turns", len(res.Turns), "speakers", len(res.Diarization.Speakers()))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Notes = notes.Generate(ctx, p.structurer, res.Turns, p.opts.Now())

	if p.opts.OutDir != "" {
		files, err := p.export(res)
		res.Files = files
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func (p *Pipeline) diarize(w audio.Waveform) *diarize.Result {
	dr, err := p.diarizer.Diarize(w, p.opts.Speakers)
	if err != nil {
		slog.Warn("Diarization failed, using a single speaker", "error", err)
		return &diarize.Result{Segments: diarize.SingleSpeaker(w.Duration()), K: 1}
	}
	return dr
}

func (p *Pipeline) export(res *Result) ([]string, error) {
	type job struct {
		name  string
		write func(path string) error
	}
	jobs := []job{
		{export.TranscriptText, func(path string) error { return export.WriteText(path, res.Transcript.Text) }},
		{export.TranscriptJSON, func(path string) error { return export.WriteJSON(path, res.Transcript) }},
	}
	if p.opts.SRT {
		jobs = append(jobs, job{export.TranscriptSRT, func(path string) error {
			return export.WriteText(path, export.SegmentsToSRT(res.Transcript.Segments))
		}})
	}
	jobs = append(jobs,
		job{export.DiarizationJSON, func(path string) error { return export.WriteJSON(path, res.Diarization) }},
		job{export.SpeakerTurnsJSON, func(path string) error { return export.WriteJSON(path, res.Turns) }},
		job{export.SpeakerTranscript, func(path string) error { return export.WriteText(path, export.SpeakerMarkdown(res.Turns)) }},
		job{export.NotesMarkdown, func(path string) error { return export.WriteText(path, export.NotesToMarkdown(res.Notes)) }},
		job{export.NotesJSON, func(path string) error { return export.WriteJSON(path, res.Notes) }},
	)

	var written []string
	for _, j := range jobs {
		if err := j.write(filepath.Join(p.opts.OutDir, j.name)); err != nil {
			return written, fmt.Errorf("pipeline: %w", err)
		}
		written = append(written, j.name)
	}
	slog.Debug("Exported", "dir", p.opts.OutDir, "files", len(written))
	return written, nil
}
