package internal

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// Audio splits oversized recordings with ffmpeg so each part fits the Whisper upload limit
type Audio struct {
	cmdRunner CommandRunner
	tempDir   string
}

// NewAudio creates a new audio processor
func NewAudio(cmdRunner CommandRunner, tempDir string) *Audio {
	return &Audio{
		cmdRunner: cmdRunner,
		tempDir:   tempDir,
	}
}

// Duration returns the audio file duration in seconds
func (a *Audio) Duration(ctx context.Context, audioFile string) (float64, error) {
	output, err := a.cmdRunner.Run(ctx, "ffprobe",
		"-i", audioFile,
		"-show_entries", "format=duration",
		"-v", "quiet",
		"-of", "csv=p=0")
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w\nOutput: %s", err, string(output))
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration: %w", err)
	}

	return duration, nil
}

// Split cuts audioFile into numParts equal-duration mp3 parts in the temp dir.
// Parts are named after the source file so concurrent jobs do not collide.
func (a *Audio) Split(ctx context.Context, audioFile string, numParts int) ([]string, error) {
	if err := EnsureDirs(a.tempDir); err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}

	duration, err := a.Duration(ctx, audioFile)
	if err != nil {
		return nil, fmt.Errorf("getting audio duration: %w", err)
	}

	partDuration := int(math.Ceil(duration / float64(numParts)))
	base := strings.TrimSuffix(filepath.Base(audioFile), filepath.Ext(audioFile))
	parts := make([]string, 0, numParts)

	for i := range numParts {
		output := filepath.Join(a.tempDir, fmt.Sprintf("%s_part_%d.mp3", base, i))
		if err := a.Cut(ctx, audioFile, i*partDuration, partDuration, output); err != nil {
			cleanupFiles(parts...)
			return nil, fmt.Errorf("creating part %d: %w", i, err)
		}
		parts = append(parts, output)
	}

	return parts, nil
}

// Cut re-encodes one segment of audioFile to mp3
func (a *Audio) Cut(ctx context.Context, audioFile string, start, duration int, output string) error {
	cmdOutput, err := a.cmdRunner.Run(ctx, "ffmpeg",
		"-v", "quiet",
		"-i", audioFile,
		"-ss", strconv.Itoa(start),
		"-t", strconv.Itoa(duration),
		"-vn",
		"-acodec", "libmp3lame",
		"-y", output)
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, string(cmdOutput))
	}
	return nil
}
