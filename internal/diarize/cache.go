package diarize

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/chaz8081/meetscribe/internal/audio"
	"golang.org/x/crypto/blake2b"
)

// Cache stores window embeddings on disk keyed by a BLAKE2b digest of the
// waveform, the embedder name and the window geometry.
type Cache struct {
	dir string
}

// NewCache returns a cache rooted at dir. The directory is created on first
// store.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

type cacheEntry struct {
	Embedder string   `json:"embedder"`
	Windows  []Window `json:"windows"`
}

// Key returns the hex digest identifying the embeddings of w under embedder
// and p.
func (c *Cache) Key(w audio.Waveform, embedder string, p Params) string {
	h, _ := blake2b.New256(nil) // only fails for oversized keys

	var buf [8]byte
	putFloat := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}

	h.Write([]byte(embedder))
	h.Write([]byte{0})
	putFloat(float64(w.SampleRate))
	putFloat(p.WindowS)
	putFloat(p.StepS)
	putFloat(p.MinAudioS)

	samples := make([]byte, 4*len(w.Samples))
	for i, s := range w.Samples {
		binary.LittleEndian.PutUint32(samples[4*i:], math.Float32bits(s))
	}
	h.Write(samples)

	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Load returns cached windows for key. A missing entry returns ok=false and
// no error.
func (c *Cache) Load(key string) (windows []Window, ok bool, err error) {
	data, err := os.ReadFile(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("diarize: read cache: %w", err)
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("diarize: parse cache %s: %w", key, err)
	}
	return entry.Windows, true, nil
}

// Store writes windows for key, replacing any previous entry.
func (c *Cache) Store(key, embedder string, windows []Window) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("diarize: create cache dir: %w", err)
	}

	data, err := json.Marshal(cacheEntry{Embedder: embedder, Windows: windows})
	if err != nil {
		return fmt.Errorf("diarize: encode cache: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("diarize: write cache: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("diarize: write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("diarize: write cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("diarize: write cache: %w", err)
	}
	return nil
}
