package ffmpeg

// AudioMetadata represents metadata extracted from an audio file
type AudioMetadata struct {
	Duration   float64 `json:"duration"`    // Duration in seconds
	SampleRate int     `json:"sample_rate"` // Sample rate in Hz
	Channels   int     `json:"channels"`    // Number of audio channels
	Bitrate    int     `json:"bitrate"`     // Bitrate in bits per second
	Format     string  `json:"format"`      // Container format (mp3, m4a, etc.)
	Codec      string  `json:"codec"`       // Audio codec
	Size       int64   `json:"size"`        // File size in bytes
}

// ChunkSpec is one planned segment of an audio file
type ChunkSpec struct {
	Index           int     `json:"index"`
	StartSeconds    float64 `json:"start_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// PlannerOptions controls how an audio file is split into chunks.
// MaxFileBytes is the hard ceiling the transcription API enforces;
// TargetChunkBytes leaves headroom below it for container overhead
// and bitrate variance.
type PlannerOptions struct {
	MaxFileBytes     int64
	TargetChunkBytes int64
	MinChunkSeconds  int
	MaxChunkSeconds  int
	MaxChunkAttempts int
	ChunkDecay       float64
}

// DefaultPlannerOptions returns the standard chunking parameters:
// a 25MB ceiling with an 80% target, chunks clamped to 5-20 minutes,
// and up to five 0.7x duration reductions for oversized outputs.
func DefaultPlannerOptions() PlannerOptions {
	return PlannerOptions{
		MaxFileBytes:     25 * 1024 * 1024,
		TargetChunkBytes: 20 * 1024 * 1024,
		MinChunkSeconds:  5 * 60,
		MaxChunkSeconds:  20 * 60,
		MaxChunkAttempts: 5,
		ChunkDecay:       0.7,
	}
}
