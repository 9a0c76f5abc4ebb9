// Package audio loads, saves and captures mono waveforms.
package audio

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// Recorder captures a meeting from the default microphone into a float32
// buffer. Multi-channel input is downmixed when the recording is stopped.
type Recorder struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	sampleRate uint32
	channels   uint32

	mu        sync.Mutex
	buf       []float32
	recording bool
	started   time.Time
}

// NewRecorder creates a new audio recorder. Call Close() when done.
func NewRecorder(sampleRate, channels uint32) (*Recorder, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}

	r := &Recorder{
		ctx:        ctx,
		sampleRate: sampleRate,
		channels:   channels,
	}

	return r, nil
}

// Start begins capturing audio from the default microphone.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return fmt.Errorf("already recording")
	}
	r.buf = r.buf[:0]
	r.recording = true
	r.started = time.Now()
	r.mu.Unlock()

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = r.channels
	deviceCfg.SampleRate = r.sampleRate

	callbacks := malgo.DeviceCallbacks{
		Data: r.onData,
	}

	device, err := malgo.InitDevice(r.ctx.Context, deviceCfg, callbacks)
	if err != nil {
		r.mu.Lock()
		r.recording = false
		r.mu.Unlock()
		return fmt.Errorf("initializing capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		r.mu.Lock()
		r.recording = false
		r.mu.Unlock()
		return fmt.Errorf("starting capture device: %w", err)
	}

	r.mu.Lock()
	r.device = device
	r.mu.Unlock()

	slog.Debug("recording started", "sample_rate", r.sampleRate, "channels", r.channels)
	return nil
}

// Stop ends the capture and returns the recording as a mono Waveform.
// ok is false when no recording was in progress.
func (r *Recorder) Stop() (w Waveform, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return Waveform{}, false
	}

	if r.device != nil {
		r.device.Uninit()
		r.device = nil
	}
	r.recording = false

	samples := make([]float32, len(r.buf))
	copy(samples, r.buf)

	w = Waveform{
		Samples:    Downmix(samples, int(r.channels)),
		SampleRate: int(r.sampleRate),
	}
	slog.Debug("recording stopped", "seconds", w.Duration())
	return w, true
}

// Elapsed returns how long the current recording has been running.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return 0
	}
	return time.Since(r.started)
}

// Close releases all audio resources.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.device != nil {
		r.device.Uninit()
		r.device = nil
	}
	r.recording = false
	r.mu.Unlock()

	if r.ctx != nil {
		if err := r.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninitializing audio context: %w", err)
		}
		r.ctx.Free()
	}

	return nil
}

// onData is the malgo callback invoked when audio data is available.
// pSample contains the captured frames as little-endian float32 bytes.
func (r *Recorder) onData(_, pSample []byte, frameCount uint32) {
	samples := bytesToFloat32(pSample, frameCount*r.channels)

	r.mu.Lock()
	r.buf = append(r.buf, samples...)
	r.mu.Unlock()
}

// bytesToFloat32 converts raw bytes (little-endian float32) to a float32 slice.
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}
