package terms

import (
	"context"

	"github.com/podscribe/podscribe-api/internal/models"
)

type service struct {
	repo Repository
}

// NewService creates a new term service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListByEpisodeID(ctx context.Context, episodeID uint) ([]models.Term, error) {
	return s.repo.ListByEpisodeID(ctx, episodeID)
}

func (s *service) ListAllByEpisodeID(ctx context.Context, episodeID uint) ([]models.Term, error) {
	return s.repo.ListAllByEpisodeID(ctx, episodeID)
}

func (s *service) KnownTermNames(ctx context.Context, podcastID uint) ([]string, error) {
	return s.repo.KnownTermNames(ctx, podcastID)
}

func (s *service) CreateBatch(ctx context.Context, terms []models.Term) error {
	return s.repo.CreateBatch(ctx, terms)
}

func (s *service) DeleteByEpisodeID(ctx context.Context, episodeID uint) error {
	return s.repo.DeleteByEpisodeID(ctx, episodeID)
}

func (s *service) CountByEpisodeID(ctx context.Context, episodeID uint) (int64, error) {
	return s.repo.CountByEpisodeID(ctx, episodeID)
}
