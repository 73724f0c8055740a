package summaries

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/podscribe/podscribe-api/internal/models"
)

// ErrSummaryNotFound indicates no summary exists for the episode
var ErrSummaryNotFound = errors.New("summary not found")

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new summary repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByEpisodeID(ctx context.Context, episodeID uint) (*models.Summary, error) {
	var summary models.Summary
	err := r.db.WithContext(ctx).Where("episode_id = ?", episodeID).First(&summary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSummaryNotFound
		}
		return nil, fmt.Errorf("getting summary for episode %d: %w", episodeID, err)
	}
	return &summary, nil
}

func (r *repository) Create(ctx context.Context, summary *models.Summary) error {
	if err := r.db.WithContext(ctx).Create(summary).Error; err != nil {
		return fmt.Errorf("creating summary for episode %d: %w", summary.EpisodeID, err)
	}
	return nil
}

func (r *repository) DeleteByEpisodeID(ctx context.Context, episodeID uint) error {
	if err := r.db.WithContext(ctx).Where("episode_id = ?", episodeID).Delete(&models.Summary{}).Error; err != nil {
		return fmt.Errorf("deleting summary for episode %d: %w", episodeID, err)
	}
	return nil
}
