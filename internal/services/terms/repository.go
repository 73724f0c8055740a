package terms

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/podscribe/podscribe-api/internal/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new term repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListByEpisodeID(ctx context.Context, episodeID uint) ([]models.Term, error) {
	var list []models.Term
	err := r.db.WithContext(ctx).
		Where("episode_id = ? AND hidden = ?", episodeID, false).
		Order("term ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("listing terms for episode %d: %w", episodeID, err)
	}
	return list, nil
}

// ListAllByEpisodeID returns every term for the episode, hidden included,
// which is what artifact copying needs
func (r *repository) ListAllByEpisodeID(ctx context.Context, episodeID uint) ([]models.Term, error) {
	var list []models.Term
	err := r.db.WithContext(ctx).
		Where("episode_id = ?", episodeID).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("listing all terms for episode %d: %w", episodeID, err)
	}
	return list, nil
}

// KnownTermNames returns every term name already stored for any episode of
// the podcast. Uniqueness is per show, so extraction must dedup against
// sibling episodes, not just the target one.
func (r *repository) KnownTermNames(ctx context.Context, podcastID uint) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&models.Term{}).
		Joins("JOIN episodes ON episodes.id = terms.episode_id").
		Where("episodes.podcast_id = ?", podcastID).
		Distinct().
		Pluck("terms.term", &names).Error
	if err != nil {
		return nil, fmt.Errorf("listing known terms for podcast %d: %w", podcastID, err)
	}
	return names, nil
}

func (r *repository) CreateBatch(ctx context.Context, terms []models.Term) error {
	if len(terms) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&terms).Error; err != nil {
		return fmt.Errorf("creating %d terms: %w", len(terms), err)
	}
	return nil
}

func (r *repository) DeleteByEpisodeID(ctx context.Context, episodeID uint) error {
	if err := r.db.WithContext(ctx).Where("episode_id = ?", episodeID).Delete(&models.Term{}).Error; err != nil {
		return fmt.Errorf("deleting terms for episode %d: %w", episodeID, err)
	}
	return nil
}

func (r *repository) CountByEpisodeID(ctx context.Context, episodeID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Term{}).
		Where("episode_id = ?", episodeID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting terms for episode %d: %w", episodeID, err)
	}
	return count, nil
}
