package episodes

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/podscribe/podscribe-api/internal/models"
)

// ErrEpisodeNotFound indicates the requested episode does not exist
var ErrEpisodeNotFound = errors.New("episode not found")

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new episode repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uint) (*models.Episode, error) {
	var episode models.Episode
	err := r.db.WithContext(ctx).First(&episode, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEpisodeNotFound
		}
		return nil, fmt.Errorf("getting episode %d: %w", id, err)
	}
	return &episode, nil
}

func (r *repository) GetByGUID(ctx context.Context, guid string) (*models.Episode, error) {
	var episode models.Episode
	err := r.db.WithContext(ctx).Where("guid = ?", guid).First(&episode).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEpisodeNotFound
		}
		return nil, fmt.Errorf("getting episode by guid %s: %w", guid, err)
	}
	return &episode, nil
}

func (r *repository) ListByPodcastID(ctx context.Context, podcastID uint, limit, offset int) ([]models.Episode, error) {
	var list []models.Episode
	err := r.db.WithContext(ctx).
		Where("podcast_id = ?", podcastID).
		Order("published_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("listing episodes for podcast %d: %w", podcastID, err)
	}
	return list, nil
}

func (r *repository) Create(ctx context.Context, episode *models.Episode) error {
	if err := r.db.WithContext(ctx).Create(episode).Error; err != nil {
		return fmt.Errorf("creating episode: %w", err)
	}
	return nil
}

func (r *repository) Updates(ctx context.Context, id uint, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Episode{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("updating episode %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrEpisodeNotFound
	}
	return nil
}

func (r *repository) SiblingsByAudioURL(ctx context.Context, audioURL string, excludeID uint) ([]models.Episode, error) {
	var list []models.Episode
	err := r.db.WithContext(ctx).
		Where("audio_url = ? AND id != ?", audioURL, excludeID).
		Order("created_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("finding episodes sharing audio url: %w", err)
	}
	return list, nil
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Episode{}, id).Error; err != nil {
		return fmt.Errorf("deleting episode %d: %w", id, err)
	}
	return nil
}
