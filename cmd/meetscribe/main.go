package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/chaz8081/meetscribe/internal/audio"
	"github.com/chaz8081/meetscribe/internal/config"
	"github.com/chaz8081/meetscribe/internal/diarize"
	"github.com/chaz8081/meetscribe/internal/embed"
	"github.com/chaz8081/meetscribe/internal/models"
	"github.com/chaz8081/meetscribe/internal/notes"
	"github.com/chaz8081/meetscribe/internal/pipeline"
	"github.com/chaz8081/meetscribe/internal/transcribe"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: meetscribe [flags] <meeting.wav>\n")
	fmt.Fprintf(os.Stderr, "       meetscribe [flags] -record <meeting.wav>\n\n")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/meetscribe/config.yaml)")
	outDir := flag.String("out", "", "output directory (overrides output.dir)")
	speakers := flag.String("speakers", "", `speaker count "2" or range "2-4" (overrides diarize.speakers)`)
	model := flag.String("model", "", "whisper model size or ggml file path (overrides transcribe.model_path)")
	srt := flag.Bool("srt", true, "also write transcript.srt (overrides output.srt)")
	record := flag.String("record", "", "record the default microphone to this WAV file until Ctrl+C, then process it")
	downloadModel := flag.String("download-model", "", `download a whisper model ("tiny", "base", ...) or "ask" to choose`)
	initConfig := flag.Bool("init-config", false, "write the default config file and exit")
	flag.Usage = usage
	flag.Parse()

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		if path == "" {
			fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
			return
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return
	}

	cfg := loadConfig(*configPath)
	overrides(cfg, *outDir, *speakers, *model, *srt)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	if *downloadModel != "" {
		path, err := fetchModel(*downloadModel)
		if err != nil {
			log.Fatalf("Model download failed: %v", err)
		}
		cfg.Transcribe.ModelPath = path
		if *record == "" && flag.NArg() == 0 {
			return
		}
	}

	input := flag.Arg(0)
	var capture func() error
	if *record != "" {
		capture = func() error { return recordMeeting(cfg, *record) }
		input = *record
	}
	if input == "" {
		usage()
		os.Exit(2)
	}

	ctx, stop, err := processingContext(capture)
	if err != nil {
		log.Fatalf("Recording failed: %v", err)
	}
	defer stop()

	printBanner(cfg, input)

	p, cleanup, err := buildPipeline(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer cleanup()

	start := time.Now()
	res, err := p.ProcessFile(ctx, input)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Println("Interrupted")
			return
		}
		log.Fatalf("Processing failed: %v", err)
	}

	log.Printf("Done in %s: %d speaker(s), %d turn(s)", time.Since(start).Round(time.Millisecond),
		len(res.Diarization.Speakers()), len(res.Turns))
	for _, name := range res.Files {
		fmt.Printf("  %s\n", filepath.Join(cfg.Output.Dir, name))
	}
}

// loadConfig loads config from the given path, or the default path, or uses defaults.
func loadConfig(path string) *config.Config {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			log.Fatalf("Failed to load config from %s: %v", path, err)
		}
		log.Printf("Config loaded from %s", path)
		return cfg
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			log.Fatalf("Failed to load config from %s: %v", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg
	}

	log.Println("No config file found, using defaults")
	return config.Default()
}

// overrides applies the flags the user actually set on top of the config.
func overrides(cfg *config.Config, outDir, speakers, model string, srt bool) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			cfg.Output.Dir = outDir
		case "speakers":
			cfg.Diarize.Speakers = speakers
		case "model":
			cfg.Transcribe.ModelPath = modelPath(model)
		case "srt":
			cfg.Output.SRT = srt
		}
	})
}

// modelPath resolves a model size to its file in the models directory and
// passes anything else through as a path.
func modelPath(v string) string {
	if slices.Contains(models.Sizes, v) {
		return filepath.Join(config.DefaultModelsDir(), models.FileName(v))
	}
	return v
}

func fetchModel(size string) (string, error) {
	if size == "ask" {
		return models.RunInteractiveDownload(config.DefaultModelsDir())
	}
	return models.DownloadWhisper(size, config.DefaultModelsDir())
}

// processingContext runs capture, if any, to completion and only then returns
// a context canceled by SIGINT/SIGTERM. The interrupt that ends a recording
// never reaches the processing context.
func processingContext(capture func() error) (context.Context, context.CancelFunc, error) {
	if capture != nil {
		if err := capture(); err != nil {
			return nil, nil, err
		}
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx, stop, nil
}

// recordMeeting captures the microphone until SIGINT/SIGTERM and saves it.
func recordMeeting(cfg *config.Config, path string) error {
	rec, err := audio.NewRecorder(cfg.Audio.SampleRate, cfg.Audio.Channels)
	if err != nil {
		return err
	}
	defer rec.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := rec.Start(); err != nil {
		return err
	}
	log.Printf("Recording to %s, press Ctrl+C to stop", path)
	<-sigCh

	log.Printf("Stopping after %s", rec.Elapsed().Round(time.Second))
	w, ok := rec.Stop()
	if !ok {
		return fmt.Errorf("no audio captured")
	}
	log.Printf("Recorded %.1fs", w.Duration())
	return audio.SaveWAV(path, w)
}

// buildPipeline constructs every stage from config. The returned cleanup
// releases the transcriber.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, func(), error) {
	r, err := diarize.ParseSpeakerRange(cfg.Diarize.Speakers)
	if err != nil {
		return nil, nil, fmt.Errorf("diarize.speakers: %w", err)
	}

	log.Printf("Loading %s transcriber...", cfg.Transcribe.Backend)
	start := time.Now()
	tr, err := transcribe.New(&cfg.Transcribe)
	if err != nil {
		return nil, nil, fmt.Errorf("creating transcriber: %w", err)
	}
	log.Printf("Transcriber ready in %s", time.Since(start).Round(time.Millisecond))

	emb, err := embed.New(&cfg.Diarize)
	if err != nil {
		tr.Close()
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	var opts []diarize.Option
	if cfg.Diarize.CacheDir != "" {
		opts = append(opts, diarize.WithCache(diarize.NewCache(cfg.Diarize.CacheDir)))
	}
	d := diarize.New(emb, diarize.ParamsFromConfig(&cfg.Diarize), opts...)

	s, err := notes.New(&cfg.Notes)
	if err != nil {
		tr.Close()
		return nil, nil, fmt.Errorf("creating notes backend: %w", err)
	}

	p := pipeline.New(tr, d, s, pipeline.Options{
		Speakers:  r,
		BridgeGap: cfg.Turns.BridgeGapS,
		OutDir:    cfg.Output.Dir,
		SRT:       cfg.Output.SRT,
	})
	return p, func() { tr.Close() }, nil
}

func printBanner(cfg *config.Config, input string) {
	fmt.Println("=== meetscribe ===")
	fmt.Printf("  Input:       %s\n", input)
	switch cfg.Transcribe.Backend {
	case "whisper":
		fmt.Printf("  Transcribe:  whisper (%s)\n", cfg.Transcribe.ModelPath)
	case "sidecar":
		fmt.Printf("  Transcribe:  sidecar (%s)\n", cfg.Transcribe.SidecarURL)
	default:
		fmt.Printf("  Transcribe:  file (%s)\n", cfg.Transcribe.TranscriptPath)
	}
	fmt.Printf("  Speakers:    %s\n", cfg.Diarize.Speakers)
	fmt.Printf("  Embedder:    %s\n", cfg.Diarize.Embedder)
	fmt.Printf("  Notes:       %s\n", cfg.Notes.Backend)
	fmt.Printf("  Output:      %s\n", cfg.Output.Dir)
	fmt.Println()
}
