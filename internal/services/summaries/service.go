package summaries

import (
	"context"

	"github.com/podscribe/podscribe-api/internal/models"
)

type service struct {
	repo Repository
}

// NewService creates a new summary service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByEpisodeID(ctx context.Context, episodeID uint) (*models.Summary, error) {
	return s.repo.GetByEpisodeID(ctx, episodeID)
}

func (s *service) Create(ctx context.Context, summary *models.Summary) error {
	return s.repo.Create(ctx, summary)
}

func (s *service) DeleteByEpisodeID(ctx context.Context, episodeID uint) error {
	return s.repo.DeleteByEpisodeID(ctx, episodeID)
}
