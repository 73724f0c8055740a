package summaries

import (
	"context"

	"github.com/podscribe/podscribe-api/internal/models"
)

// Service provides summary persistence
type Service interface {
	GetByEpisodeID(ctx context.Context, episodeID uint) (*models.Summary, error)
	Create(ctx context.Context, summary *models.Summary) error
	DeleteByEpisodeID(ctx context.Context, episodeID uint) error
}

// Repository provides summary data access
type Repository interface {
	GetByEpisodeID(ctx context.Context, episodeID uint) (*models.Summary, error)
	Create(ctx context.Context, summary *models.Summary) error
	DeleteByEpisodeID(ctx context.Context, episodeID uint) error
}
