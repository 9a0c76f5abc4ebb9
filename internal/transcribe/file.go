package transcribe

import "fmt"

// FileTranscriber replays a saved transcript instead of running ASR. The
// samples passed to Process are ignored.
type FileTranscriber struct {
	path string
}

// NewFileTranscriber creates a transcriber that reads path on each Process.
func NewFileTranscriber(path string) *FileTranscriber {
	return &FileTranscriber{path: path}
}

// Process implements Transcriber.
func (t *FileTranscriber) Process(_ []float32) (*Transcript, error) {
	if t.path == "" {
		return nil, fmt.Errorf("transcribe: file backend needs transcribe.transcript_path")
	}
	return ReadTranscript(t.path)
}

// Close implements Transcriber.
func (t *FileTranscriber) Close() error { return nil }
