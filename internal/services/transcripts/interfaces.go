package transcripts

import (
	"context"

	"github.com/podscribe/podscribe-api/internal/models"
	"github.com/podscribe/podscribe-api/pkg/ffmpeg"
)

// Service provides transcript persistence
type Service interface {
	GetByEpisodeID(ctx context.Context, episodeID uint) (*models.Transcript, error)
	Create(ctx context.Context, transcript *models.Transcript) error
	DeleteByEpisodeID(ctx context.Context, episodeID uint) error
}

// Repository provides transcript data access
type Repository interface {
	GetByEpisodeID(ctx context.Context, episodeID uint) (*models.Transcript, error)
	Create(ctx context.Context, transcript *models.Transcript) error
	DeleteByEpisodeID(ctx context.Context, episodeID uint) error
}

// audioToolkit is the ffmpeg surface the transcriber needs, satisfied by
// *ffmpeg.FFmpeg and by fakes in tests
type audioToolkit interface {
	GetMetadata(ctx context.Context, filePath string) (*ffmpeg.AudioMetadata, error)
	ExtractChunk(ctx context.Context, inputPath, outputDir string, spec ffmpeg.ChunkSpec, opts ffmpeg.PlannerOptions) (string, error)
}
