package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// FFmpeg wraps ffmpeg and ffprobe functionality
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
}

// New creates a new FFmpeg instance
func New(ffmpegPath, ffprobePath string, timeout time.Duration) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		timeout:     timeout,
	}
}

// ValidateBinaries checks if ffmpeg and ffprobe are available
func (f *FFmpeg) ValidateBinaries() error {
	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, f.ffmpegPath)
	}

	if _, err := exec.LookPath(f.ffprobePath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFprobeNotFound, f.ffprobePath)
	}

	return nil
}

// ExtractChunk cuts one planned segment out of inputPath into outputDir and
// returns the chunk file path. If the extracted file still exceeds the size
// ceiling (variable-bitrate audio can overshoot the byte-rate estimate), the
// segment duration is reduced by ChunkDecay and re-extracted, up to
// MaxChunkAttempts times before giving up with ErrChunkInfeasible.
func (f *FFmpeg) ExtractChunk(ctx context.Context, inputPath, outputDir string, spec ChunkSpec, opts PlannerOptions) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", NewProcessingError("chunk_extraction", inputPath, err, "")
	}

	ext := filepath.Ext(inputPath)
	if ext == "" {
		ext = ".mp3"
	}
	outputPath := filepath.Join(outputDir, fmt.Sprintf("chunk_%03d%s", spec.Index, ext))

	duration := spec.DurationSeconds
	attempts := opts.MaxChunkAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := f.runExtract(ctx, inputPath, outputPath, spec.StartSeconds, duration); err != nil {
			return "", err
		}

		info, err := os.Stat(outputPath)
		if err != nil {
			return "", NewProcessingError("chunk_extraction", inputPath, err, "")
		}

		if info.Size() <= opts.MaxFileBytes {
			return outputPath, nil
		}

		log.Printf("[WARN] Chunk %d of %s is %d bytes, over the %d byte ceiling (attempt %d/%d), reducing duration",
			spec.Index, filepath.Base(inputPath), info.Size(), opts.MaxFileBytes, attempt, attempts)
		duration *= opts.ChunkDecay
	}

	// Remove the oversized leftover so a retry of the stage starts clean
	if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] Failed to remove oversized chunk %s: %v", outputPath, err)
	}

	return "", NewProcessingError("chunk_extraction", inputPath, ErrChunkInfeasible, "")
}

// runExtract invokes ffmpeg to copy one segment without re-encoding
func (f *FFmpeg) runExtract(ctx context.Context, inputPath, outputPath string, start, duration float64) error {
	extractCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	args := []string{
		"-y",
		"-v", "error",
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", duration),
		"-i", inputPath,
		"-acodec", "copy",
		"-vn",
		outputPath,
	}

	cmd := exec.CommandContext(extractCtx, f.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if extractCtx.Err() == context.DeadlineExceeded {
			return NewProcessingError("chunk_extraction", inputPath, ErrProcessingTimeout, stderr.String())
		}
		return NewProcessingError("chunk_extraction", inputPath, err, stderr.String())
	}

	return nil
}
