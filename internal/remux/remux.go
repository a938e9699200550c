// Package remux shells out to ffmpeg to repackage a concatenated MPEG-TS
// stream into an MP4 container without touching the encoded content.
package remux

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// FFmpeg wraps the external ffmpeg binary
type FFmpeg struct {
	ffmpegPath string
}

// NewFFmpeg creates a new FFmpeg instance
func NewFFmpeg(ffmpegPath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpeg{ffmpegPath: ffmpegPath}
}

// Remux losslessly repackages inputPath into outputPath (stream copy, no
// re-encode). A stale output file from an earlier aborted run is removed
// first so ffmpeg does not stop to ask about overwriting.
func (f *FFmpeg) Remux(ctx context.Context, inputPath, outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		if err := os.Remove(outputPath); err != nil {
			return fmt.Errorf("failed to remove stale output: %w", err)
		}
	}

	args := []string{
		"-i", inputPath,
		"-c", "copy",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}

	return nil
}
