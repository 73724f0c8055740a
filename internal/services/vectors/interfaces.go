package vectors

import (
	"context"

	"github.com/podscribe/podscribe-api/internal/models"
)

// Service provides vector slice persistence and similarity search
type Service interface {
	CountByEpisodeID(ctx context.Context, episodeID uint) (int64, error)
	ListByEpisodeID(ctx context.Context, episodeID uint) ([]models.VectorSlice, error)
	CreateBatch(ctx context.Context, slices []models.VectorSlice) error
	DeleteByEpisodeID(ctx context.Context, episodeID uint) error
	Search(ctx context.Context, query []float32, podcastID uint, limit int) ([]SearchResult, error)
}

// Repository provides vector slice data access
type Repository interface {
	CountByEpisodeID(ctx context.Context, episodeID uint) (int64, error)
	ListByEpisodeID(ctx context.Context, episodeID uint) ([]models.VectorSlice, error)
	ListByPodcastID(ctx context.Context, podcastID uint) ([]models.VectorSlice, error)
	ListAll(ctx context.Context) ([]models.VectorSlice, error)
	CreateBatch(ctx context.Context, slices []models.VectorSlice) error
	DeleteByEpisodeID(ctx context.Context, episodeID uint) error
}

// SearchResult is one similarity match
type SearchResult struct {
	Slice models.VectorSlice `json:"slice"`
	Score float32            `json:"score"`
}
