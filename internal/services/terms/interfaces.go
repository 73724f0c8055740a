package terms

import (
	"context"

	"github.com/podscribe/podscribe-api/internal/models"
)

// Service provides term persistence and queries
type Service interface {
	ListByEpisodeID(ctx context.Context, episodeID uint) ([]models.Term, error)
	ListAllByEpisodeID(ctx context.Context, episodeID uint) ([]models.Term, error)
	KnownTermNames(ctx context.Context, podcastID uint) ([]string, error)
	CreateBatch(ctx context.Context, terms []models.Term) error
	DeleteByEpisodeID(ctx context.Context, episodeID uint) error
	CountByEpisodeID(ctx context.Context, episodeID uint) (int64, error)
}

// Repository provides term data access
type Repository interface {
	ListByEpisodeID(ctx context.Context, episodeID uint) ([]models.Term, error)
	ListAllByEpisodeID(ctx context.Context, episodeID uint) ([]models.Term, error)
	KnownTermNames(ctx context.Context, podcastID uint) ([]string, error)
	CreateBatch(ctx context.Context, terms []models.Term) error
	DeleteByEpisodeID(ctx context.Context, episodeID uint) error
	CountByEpisodeID(ctx context.Context, episodeID uint) (int64, error)
}
