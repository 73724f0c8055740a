package vectors

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/podscribe/podscribe-api/internal/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new vector slice repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CountByEpisodeID(ctx context.Context, episodeID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.VectorSlice{}).
		Where("episode_id = ?", episodeID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting vector slices for episode %d: %w", episodeID, err)
	}
	return count, nil
}

func (r *repository) ListByEpisodeID(ctx context.Context, episodeID uint) ([]models.VectorSlice, error) {
	var list []models.VectorSlice
	err := r.db.WithContext(ctx).
		Where("episode_id = ?", episodeID).
		Order("chunk_index ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("listing vector slices for episode %d: %w", episodeID, err)
	}
	return list, nil
}

func (r *repository) ListByPodcastID(ctx context.Context, podcastID uint) ([]models.VectorSlice, error) {
	var list []models.VectorSlice
	err := r.db.WithContext(ctx).
		Where("podcast_id = ?", podcastID).
		Order("episode_id ASC, chunk_index ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("listing vector slices for podcast %d: %w", podcastID, err)
	}
	return list, nil
}

func (r *repository) ListAll(ctx context.Context) ([]models.VectorSlice, error) {
	var list []models.VectorSlice
	err := r.db.WithContext(ctx).
		Order("episode_id ASC, chunk_index ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("listing vector slices: %w", err)
	}
	return list, nil
}

func (r *repository) CreateBatch(ctx context.Context, slices []models.VectorSlice) error {
	if len(slices) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&slices, 100).Error; err != nil {
		return fmt.Errorf("creating %d vector slices: %w", len(slices), err)
	}
	return nil
}

func (r *repository) DeleteByEpisodeID(ctx context.Context, episodeID uint) error {
	if err := r.db.WithContext(ctx).Where("episode_id = ?", episodeID).Delete(&models.VectorSlice{}).Error; err != nil {
		return fmt.Errorf("deleting vector slices for episode %d: %w", episodeID, err)
	}
	return nil
}
