package ffmpeg

import (
	"fmt"
)

// PlanChunks splits an audio file into contiguous segments sized so each
// extracted chunk should land near TargetChunkBytes. Chunk duration is
// derived from the file's average byte rate and clamped to the configured
// bounds; the final chunk carries whatever remainder is left, even if
// shorter than the minimum. A file already under the ceiling yields a
// single chunk covering the whole duration.
func PlanChunks(durationSeconds float64, sizeBytes int64, opts PlannerOptions) ([]ChunkSpec, error) {
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("cannot plan chunks for non-positive duration %.2f", durationSeconds)
	}
	if sizeBytes <= 0 {
		return nil, fmt.Errorf("cannot plan chunks for non-positive size %d", sizeBytes)
	}

	if sizeBytes <= opts.MaxFileBytes {
		return []ChunkSpec{{Index: 0, StartSeconds: 0, DurationSeconds: durationSeconds}}, nil
	}

	bytesPerSecond := float64(sizeBytes) / durationSeconds
	chunkSeconds := float64(opts.TargetChunkBytes) / bytesPerSecond

	// Clamp to the configured window so chunks stay long enough to carry
	// context but short enough to extract and upload quickly
	if chunkSeconds < float64(opts.MinChunkSeconds) {
		chunkSeconds = float64(opts.MinChunkSeconds)
	}
	if chunkSeconds > float64(opts.MaxChunkSeconds) {
		chunkSeconds = float64(opts.MaxChunkSeconds)
	}

	var chunks []ChunkSpec
	for start := 0.0; start < durationSeconds; start += chunkSeconds {
		remaining := durationSeconds - start
		d := chunkSeconds
		if remaining < d {
			d = remaining
		}
		chunks = append(chunks, ChunkSpec{
			Index:           len(chunks),
			StartSeconds:    start,
			DurationSeconds: d,
		})
	}

	return chunks, nil
}
