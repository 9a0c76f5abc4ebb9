// Package models downloads whisper ggml model files.
package models

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// baseURL is the HuggingFace mirror of the whisper.cpp ggml models.
var baseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// Sizes lists the downloadable whisper model sizes.
var Sizes = []string{"tiny", "base", "small", "medium", "large-v3"}

// FileName returns the ggml file name for a model size.
func FileName(size string) string {
	return "ggml-" + size + ".bin"
}

// URL returns the download URL for a model size.
func URL(size string) string {
	return baseURL + "/" + FileName(size)
}

// DownloadWhisper downloads the ggml model of the given size into modelsDir
// and returns its path. Existing non-empty files are kept. Progress is written
// to stdout.
func DownloadWhisper(size, modelsDir string) (string, error) {
	return download(size, modelsDir, os.Stdout)
}

func download(size, modelsDir string, out io.Writer) (string, error) {
	if !slices.Contains(Sizes, size) {
		return "", fmt.Errorf("unknown model size %q (supported: %s)", size, strings.Join(Sizes, ", "))
	}
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return "", fmt.Errorf("creating models dir: %w", err)
	}

	name := FileName(size)
	destPath := filepath.Join(modelsDir, name)

	// Check if already downloaded
	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		fmt.Fprintf(out, "  Whisper model already exists: %s (%.0f MB)\n", destPath, float64(info.Size())/(1024*1024))
		return destPath, nil
	}

	url := URL(size)
	fmt.Fprintf(out, "  Downloading whisper %s model from HuggingFace...\n", size)
	fmt.Fprintf(out, "  URL: %s\n", url)
	fmt.Fprintf(out, "  Destination: %s\n", destPath)

	resp, err := http.Get(url) //nolint:gosec // URL is built from a fixed base and an allow-listed size
	if err != nil {
		return "", fmt.Errorf("downloading whisper model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	// Write to temp file first, then rename (atomic)
	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	pw := &progressWriter{
		writer: f,
		out:    out,
		total:  resp.ContentLength,
		label:  name,
	}

	written, err := io.Copy(pw, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing model file: %w", err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing model file: got %d of %d bytes", written, resp.ContentLength)
	}

	fmt.Fprintf(out, "\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("moving model file: %w", err)
	}
	return destPath, nil
}

// progressWriter wraps an io.Writer and prints download progress.
type progressWriter struct {
	writer  io.Writer
	out     io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}

// RunInteractiveDownload prompts for a model size on stdin and downloads it.
func RunInteractiveDownload(modelsDir string) (string, error) {
	fmt.Println("=== Model Download ===")
	fmt.Println()
	fmt.Printf("Models will be downloaded to: %s\n", modelsDir)
	fmt.Println()
	fmt.Println("Which whisper model would you like to download?")
	fmt.Println("  [1] tiny     (~75 MB)  - fastest, lowest accuracy")
	fmt.Println("  [2] base     (~142 MB) - default")
	fmt.Println("  [3] small    (~466 MB)")
	fmt.Println("  [4] medium   (~1.5 GB)")
	fmt.Println("  [5] large-v3 (~3.1 GB) - slowest, best accuracy")
	fmt.Println()
	fmt.Print("Choice [1-5]: ")

	var choice string
	fmt.Scanln(&choice)
	fmt.Println()

	size, err := sizeForChoice(choice)
	if err != nil {
		return "", err
	}
	return DownloadWhisper(size, modelsDir)
}

// sizeForChoice maps a menu number or a size name to a model size.
func sizeForChoice(choice string) (string, error) {
	choice = strings.TrimSpace(choice)
	if slices.Contains(Sizes, choice) {
		return choice, nil
	}
	var n int
	if _, err := fmt.Sscanf(choice, "%d", &n); err == nil && n >= 1 && n <= len(Sizes) {
		return Sizes[n-1], nil
	}
	return "", fmt.Errorf("invalid choice: %q (expected 1-%d or a model size)", choice, len(Sizes))
}
