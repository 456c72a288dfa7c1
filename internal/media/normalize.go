// Package media converts arbitrary uploaded audio/video into the canonical
// form required by the transcription engines: mono 16kHz PCM WAV.
package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dixon2004/audio-transcriber/internal/logging"
)

// ProcessingError wraps a decode/transcode failure with its underlying cause.
type ProcessingError struct {
	Filename string
	Cause    error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("failed to process media file %s: %v", e.Filename, e.Cause)
}

func (e *ProcessingError) Unwrap() error { return e.Cause }

// formatHint returns the ffmpeg demuxer hint for a recognized extension,
// or "" to let ffmpeg auto-detect the container.
func formatHint(filename string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "wav":
		return "wav"
	case "mp3":
		return "mp3"
	case "mp4":
		return "mp4"
	default:
		return ""
	}
}

// convertArgs builds the ffmpeg argument list for the canonical conversion:
// drop video, downmix to one channel, resample to 16kHz, encode PCM WAV.
func convertArgs(srcPath, dstPath, hint string) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
	}
	if hint != "" {
		args = append(args, "-f", hint)
	}
	args = append(args,
		"-i", srcPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		dstPath,
	)
	return args
}

// runner executes ffmpeg and returns its combined output. Tests stub this
// to exercise the cleanup paths without an ffmpeg binary.
type runner func(ctx context.Context, args []string) ([]byte, error)

func runFFmpeg(ctx context.Context, args []string) ([]byte, error) {
	return exec.CommandContext(ctx, "ffmpeg", args...).CombinedOutput()
}

// Normalizer converts uploads into canonical WAV files under workDir.
type Normalizer struct {
	workDir string
	run     runner
}

func NewNormalizer(workDir string) *Normalizer {
	return &Normalizer{workDir: workDir, run: runFFmpeg}
}

// Normalize writes the upload to a temporary file, converts it to mono
// 16kHz PCM WAV and returns the path of the converted file. Ownership of
// the returned file transfers to the caller, who must remove it after use.
// The intermediate temp file is removed on every exit path.
func (n *Normalizer) Normalize(ctx context.Context, upload io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}

	src, err := os.CreateTemp(n.workDir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create upload temp: %w", err)
	}
	defer os.Remove(src.Name())

	if _, err := io.Copy(src, upload); err != nil {
		src.Close()
		return "", fmt.Errorf("spool upload: %w", err)
	}
	src.Close()

	dst, err := os.CreateTemp(n.workDir, "canonical-*.wav")
	if err != nil {
		return "", fmt.Errorf("create canonical temp: %w", err)
	}
	dst.Close()

	hint := formatHint(filename)
	output, err := n.run(ctx, convertArgs(src.Name(), dst.Name(), hint))
	if err != nil {
		os.Remove(dst.Name())
		cause := fmt.Errorf("ffmpeg: %s: %w", strings.TrimSpace(string(output)), err)
		return "", &ProcessingError{Filename: filename, Cause: cause}
	}

	logger := logging.WithComponent("media")
	logger.Debug().
		Str("filename", filename).
		Str("hint", hint).
		Str("canonical", dst.Name()).
		Msg("normalized upload to mono 16kHz WAV")

	return dst.Name(), nil
}
