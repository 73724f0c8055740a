package episodes

import (
	"context"
	"errors"

	"github.com/podscribe/podscribe-api/internal/models"
)

type service struct {
	repo Repository
}

// NewService creates a new episode service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id uint) (*models.Episode, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByPodcastID(ctx context.Context, podcastID uint, limit, offset int) ([]models.Episode, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByPodcastID(ctx, podcastID, limit, offset)
}

func (s *service) Create(ctx context.Context, episode *models.Episode) error {
	return s.repo.Create(ctx, episode)
}

// UpsertByGUID creates the episode if its GUID is unknown. Returns true
// when a new row was created. Existing episodes are left untouched so
// manual edits survive feed refreshes.
func (s *service) UpsertByGUID(ctx context.Context, episode *models.Episode) (bool, error) {
	_, err := s.repo.GetByGUID(ctx, episode.GUID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrEpisodeNotFound) {
		return false, err
	}
	if err := s.repo.Create(ctx, episode); err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) SetLocalAudioPath(ctx context.Context, id uint, path string) error {
	return s.repo.Updates(ctx, id, map[string]interface{}{"local_audio_path": path})
}

func (s *service) ClearLocalAudioPath(ctx context.Context, id uint) error {
	return s.repo.Updates(ctx, id, map[string]interface{}{"local_audio_path": ""})
}

func (s *service) SetDuration(ctx context.Context, id uint, seconds float64) error {
	return s.repo.Updates(ctx, id, map[string]interface{}{"duration": seconds})
}

func (s *service) SiblingsByAudioURL(ctx context.Context, audioURL string, excludeID uint) ([]models.Episode, error) {
	return s.repo.SiblingsByAudioURL(ctx, audioURL, excludeID)
}

func (s *service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}
