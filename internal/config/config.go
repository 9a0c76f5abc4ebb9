package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Diarize    DiarizeConfig    `yaml:"diarize"`
	Turns      TurnsConfig      `yaml:"turns"`
	Audio      AudioConfig      `yaml:"audio"`
	Output     OutputConfig     `yaml:"output"`
	Notes      NotesConfig      `yaml:"notes"`
	LogLevel   string           `yaml:"log_level"`
}

// TranscribeConfig selects and configures the speech-to-text backend.
type TranscribeConfig struct {
	Backend        string `yaml:"backend"` // "whisper", "sidecar" or "file"
	ModelPath      string `yaml:"model_path"`
	Language       string `yaml:"language"`
	WordTimestamps bool   `yaml:"word_timestamps"`
	SidecarURL     string `yaml:"sidecar_url"`
	TranscriptPath string `yaml:"transcript_path"` // ASR JSON replayed by the "file" backend
}

// DiarizeConfig holds the speaker segmentation settings.
type DiarizeConfig struct {
	Speakers           string  `yaml:"speakers"` // "2" or "2-4"
	WindowS            float64 `yaml:"window_s"`
	StepS              float64 `yaml:"step_s"`
	MinAudioS          float64 `yaml:"min_audio_s"`
	SilhouetteSentinel float64 `yaml:"silhouette_sentinel"`
	Seed               uint64  `yaml:"seed"`
	MaxIter            int     `yaml:"max_iter"`
	Embedder           string  `yaml:"embedder"` // "spectral" or "sidecar"
	EmbedderURL        string  `yaml:"embedder_url"`
	CacheDir           string  `yaml:"cache_dir"` // empty disables the embedding cache
}

// TurnsConfig holds turn merging settings.
type TurnsConfig struct {
	BridgeGapS float64 `yaml:"bridge_gap_s"`
}

// AudioConfig holds decoding and capture settings.
type AudioConfig struct {
	SampleRate uint32 `yaml:"sample_rate"`
	Channels   uint32 `yaml:"channels"`
}

// OutputConfig controls where and what is exported.
type OutputConfig struct {
	Dir string `yaml:"dir"`
	SRT bool   `yaml:"srt"`
}

// NotesConfig selects the meeting notes backend.
type NotesConfig struct {
	Backend  string `yaml:"backend"` // "offline" or "openai"
	Model    string `yaml:"model"`
	MaxChars int    `yaml:"max_chars"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "meetscribe")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultModelsDir returns the directory downloaded models are stored in.
func DefaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "models"
	}
	return filepath.Join(home, ".local", "share", "meetscribe", "models")
}

// DefaultCacheDir returns the default embedding cache directory.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "meetscribe")
}

// Default returns a Config with sensible default values.
// WHISPER_MODEL, when set, picks the ggml model size (e.g. "small").
func Default() *Config {
	size := os.Getenv("WHISPER_MODEL")
	if size == "" {
		size = "base"
	}

	return &Config{
		Transcribe: TranscribeConfig{
			Backend:        "whisper",
			ModelPath:      filepath.Join(DefaultModelsDir(), "ggml-"+size+".bin"),
			WordTimestamps: true,
			SidecarURL:     "http://localhost:8387",
		},
		Diarize: DiarizeConfig{
			Speakers:           "2-4",
			WindowS:            1.5,
			StepS:              0.5,
			MinAudioS:          0.5,
			SilhouetteSentinel: -1.0,
			Seed:               42,
			MaxIter:            300,
			Embedder:           "spectral",
			EmbedderURL:        "http://localhost:8389",
			CacheDir:           DefaultCacheDir(),
		},
		Turns: TurnsConfig{
			BridgeGapS: 0.6,
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
		},
		Output: OutputConfig{
			Dir: "out",
			SRT: true,
		},
		Notes: NotesConfig{
			Backend:  "offline",
			Model:    "gpt-4o-mini",
			MaxChars: 12000,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in path fields is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Transcribe.ModelPath = expandTilde(cfg.Transcribe.ModelPath)
	cfg.Transcribe.TranscriptPath = expandTilde(cfg.Transcribe.TranscriptPath)
	cfg.Diarize.CacheDir = expandTilde(cfg.Diarize.CacheDir)
	cfg.Output.Dir = expandTilde(cfg.Output.Dir)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Transcribe.Backend {
	case "whisper":
		if c.Transcribe.ModelPath == "" {
			return fmt.Errorf("transcribe.model_path must not be empty for the whisper backend")
		}
	case "sidecar":
		if c.Transcribe.SidecarURL == "" {
			return fmt.Errorf("transcribe.sidecar_url must not be empty for the sidecar backend")
		}
	case "file":
		if c.Transcribe.TranscriptPath == "" {
			return fmt.Errorf("transcribe.transcript_path must not be empty for the file backend")
		}
	default:
		return fmt.Errorf("transcribe.backend must be whisper, sidecar, or file, got %q", c.Transcribe.Backend)
	}

	if err := validateSpeakers(c.Diarize.Speakers); err != nil {
		return err
	}
	if c.Diarize.WindowS <= 0 {
		return fmt.Errorf("diarize.window_s must be > 0")
	}
	if c.Diarize.StepS <= 0 || c.Diarize.StepS > c.Diarize.WindowS {
		return fmt.Errorf("diarize.step_s must be > 0 and <= window_s")
	}
	if c.Diarize.MinAudioS < 0 {
		return fmt.Errorf("diarize.min_audio_s must be >= 0")
	}
	if c.Diarize.MaxIter <= 0 {
		return fmt.Errorf("diarize.max_iter must be > 0")
	}
	switch c.Diarize.Embedder {
	case "spectral":
	case "sidecar":
		if c.Diarize.EmbedderURL == "" {
			return fmt.Errorf("diarize.embedder_url must not be empty for the sidecar embedder")
		}
	default:
		return fmt.Errorf("diarize.embedder must be \"spectral\" or \"sidecar\", got %q", c.Diarize.Embedder)
	}

	if c.Turns.BridgeGapS < 0 {
		return fmt.Errorf("turns.bridge_gap_s must be >= 0")
	}

	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}
	if c.Audio.Channels == 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must not be empty")
	}

	switch c.Notes.Backend {
	case "offline", "openai":
	default:
		return fmt.Errorf("notes.backend must be \"offline\" or \"openai\", got %q", c.Notes.Backend)
	}
	if c.Notes.MaxChars <= 0 {
		return fmt.Errorf("notes.max_chars must be > 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// validateSpeakers checks the "N" / "MIN-MAX" shape. Parsing proper lives in
// the diarize package; this only reports malformed config early.
func validateSpeakers(s string) error {
	lo, hi, found := strings.Cut(s, "-")
	if _, err := strconv.Atoi(strings.TrimSpace(lo)); err != nil {
		return fmt.Errorf("diarize.speakers must be \"N\" or \"MIN-MAX\", got %q", s)
	}
	if found {
		if _, err := strconv.Atoi(strings.TrimSpace(hi)); err != nil {
			return fmt.Errorf("diarize.speakers must be \"N\" or \"MIN-MAX\", got %q", s)
		}
	}
	return nil
}

// ParseLogLevel maps a log_level string to a slog.Level. Unknown values map
// to info.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultHeader = `# meetscribe configuration
# Generated with built-in defaults. Edit and re-run meetscribe.
#
# transcribe.backend: whisper | sidecar | file
# diarize.speakers:   fixed count ("2") or inclusive range ("2-4")
# diarize.embedder:   spectral | sidecar
# notes.backend:      offline | openai (reads OPENAI_API_KEY)

`

// WriteDefault writes the default config to DefaultConfigPath. If a config
// file already exists it is left untouched and ("", nil) is returned.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
