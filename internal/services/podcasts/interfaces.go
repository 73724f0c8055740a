package podcasts

import (
	"context"

	"github.com/podscribe/podscribe-api/internal/models"
)

// Service provides podcast subscription and feed synchronization
type Service interface {
	Subscribe(ctx context.Context, feedURL string) (*models.Podcast, error)
	RefreshFeed(ctx context.Context, podcastID uint) (int, error)
	GetByID(ctx context.Context, id uint) (*models.Podcast, error)
	List(ctx context.Context) ([]models.Podcast, error)
	Delete(ctx context.Context, id uint) error
}

// Repository provides podcast data access
type Repository interface {
	Create(ctx context.Context, podcast *models.Podcast) error
	GetByID(ctx context.Context, id uint) (*models.Podcast, error)
	GetByFeedURL(ctx context.Context, feedURL string) (*models.Podcast, error)
	List(ctx context.Context) ([]models.Podcast, error)
	Updates(ctx context.Context, id uint, updates map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
}
