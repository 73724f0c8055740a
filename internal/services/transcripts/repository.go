package transcripts

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/podscribe/podscribe-api/internal/models"
)

// ErrTranscriptNotFound indicates no transcript exists for the episode
var ErrTranscriptNotFound = errors.New("transcript not found")

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new transcript repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByEpisodeID(ctx context.Context, episodeID uint) (*models.Transcript, error) {
	var transcript models.Transcript
	err := r.db.WithContext(ctx).Where("episode_id = ?", episodeID).First(&transcript).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTranscriptNotFound
		}
		return nil, fmt.Errorf("getting transcript for episode %d: %w", episodeID, err)
	}
	return &transcript, nil
}

func (r *repository) Create(ctx context.Context, transcript *models.Transcript) error {
	if err := r.db.WithContext(ctx).Create(transcript).Error; err != nil {
		return fmt.Errorf("creating transcript for episode %d: %w", transcript.EpisodeID, err)
	}
	return nil
}

func (r *repository) DeleteByEpisodeID(ctx context.Context, episodeID uint) error {
	if err := r.db.WithContext(ctx).Where("episode_id = ?", episodeID).Delete(&models.Transcript{}).Error; err != nil {
		return fmt.Errorf("deleting transcript for episode %d: %w", episodeID, err)
	}
	return nil
}
