package podcasts

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/podscribe/podscribe-api/internal/models"
)

// ErrPodcastNotFound indicates the requested podcast does not exist
var ErrPodcastNotFound = errors.New("podcast not found")

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new podcast repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, podcast *models.Podcast) error {
	if err := r.db.WithContext(ctx).Create(podcast).Error; err != nil {
		return fmt.Errorf("creating podcast: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uint) (*models.Podcast, error) {
	var podcast models.Podcast
	err := r.db.WithContext(ctx).First(&podcast, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPodcastNotFound
		}
		return nil, fmt.Errorf("getting podcast %d: %w", id, err)
	}
	return &podcast, nil
}

func (r *repository) GetByFeedURL(ctx context.Context, feedURL string) (*models.Podcast, error) {
	var podcast models.Podcast
	err := r.db.WithContext(ctx).Where("feed_url = ?", feedURL).First(&podcast).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPodcastNotFound
		}
		return nil, fmt.Errorf("getting podcast by feed url: %w", err)
	}
	return &podcast, nil
}

func (r *repository) List(ctx context.Context) ([]models.Podcast, error) {
	var list []models.Podcast
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("listing podcasts: %w", err)
	}
	return list, nil
}

func (r *repository) Updates(ctx context.Context, id uint, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Podcast{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("updating podcast %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPodcastNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Podcast{}, id).Error; err != nil {
		return fmt.Errorf("deleting podcast %d: %w", id, err)
	}
	return nil
}
