package episodes

import (
	"context"

	"github.com/podscribe/podscribe-api/internal/models"
)

// Service provides episode queries and updates
type Service interface {
	GetByID(ctx context.Context, id uint) (*models.Episode, error)
	ListByPodcastID(ctx context.Context, podcastID uint, limit, offset int) ([]models.Episode, error)
	Create(ctx context.Context, episode *models.Episode) error
	UpsertByGUID(ctx context.Context, episode *models.Episode) (bool, error)
	SetLocalAudioPath(ctx context.Context, id uint, path string) error
	ClearLocalAudioPath(ctx context.Context, id uint) error
	SetDuration(ctx context.Context, id uint, seconds float64) error
	// SiblingsByAudioURL returns other episodes sharing the same audio
	// source, used by deduplication
	SiblingsByAudioURL(ctx context.Context, audioURL string, excludeID uint) ([]models.Episode, error)
	Delete(ctx context.Context, id uint) error
}

// Repository provides episode data access
type Repository interface {
	GetByID(ctx context.Context, id uint) (*models.Episode, error)
	GetByGUID(ctx context.Context, guid string) (*models.Episode, error)
	ListByPodcastID(ctx context.Context, podcastID uint, limit, offset int) ([]models.Episode, error)
	Create(ctx context.Context, episode *models.Episode) error
	Updates(ctx context.Context, id uint, updates map[string]interface{}) error
	SiblingsByAudioURL(ctx context.Context, audioURL string, excludeID uint) ([]models.Episode, error)
	Delete(ctx context.Context, id uint) error
}
