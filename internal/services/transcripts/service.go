package transcripts

import (
	"context"

	"github.com/podscribe/podscribe-api/internal/models"
)

type service struct {
	repo Repository
}

// NewService creates a new transcript service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByEpisodeID(ctx context.Context, episodeID uint) (*models.Transcript, error) {
	return s.repo.GetByEpisodeID(ctx, episodeID)
}

func (s *service) Create(ctx context.Context, transcript *models.Transcript) error {
	return s.repo.Create(ctx, transcript)
}

func (s *service) DeleteByEpisodeID(ctx context.Context, episodeID uint) error {
	return s.repo.DeleteByEpisodeID(ctx, episodeID)
}
