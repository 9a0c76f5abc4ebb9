// Command test-diarize is a manual test for speaker segmentation.
// It diarizes a WAV file and prints the candidate scores and segments.
//
// Usage:
//
//	go run ./cmd/test-diarize [--speakers 2-4] [--embedder spectral|sidecar] meeting.wav
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chaz8081/meetscribe/internal/audio"
	"github.com/chaz8081/meetscribe/internal/config"
	"github.com/chaz8081/meetscribe/internal/diarize"
	"github.com/chaz8081/meetscribe/internal/embed"
)

func main() {
	speakers := flag.String("speakers", "2-4", `speaker count "2" or range "2-4"`)
	embedder := flag.String("embedder", "spectral", "embedder: spectral or sidecar")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Usage: test-diarize [--speakers 2-4] [--embedder spectral|sidecar] meeting.wav")
		os.Exit(2)
	}

	cfg := config.Default().Diarize
	cfg.Embedder = *embedder

	r, err := diarize.ParseSpeakerRange(*speakers)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	w, err := audio.LoadWAV(flag.Arg(0), 0)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %.1fs at %d Hz\n", w.Duration(), w.SampleRate)

	e, err := embed.New(&cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	res, err := diarize.New(e, diarize.ParamsFromConfig(&cfg)).Diarize(w, r)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Embedded %d windows with %s in %s\n\n", res.Windows, e.Name(), time.Since(start).Round(time.Millisecond))
	for _, c := range res.Candidates {
		fmt.Printf("  %s\n", c)
	}
	fmt.Printf("\nChose k=%d\n\n", res.K)
	for _, s := range res.Segments {
		fmt.Printf("  %-4s %8.2f -> %8.2f  (%.2fs)\n", s.Speaker, s.Start, s.End, s.Duration())
	}
}
