// Package notifications records lifecycle events emitted by background
// processing so the UI can show what happened while the user was away.
package notifications

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/podscribe/podscribe-api/internal/models"
)

// Notification levels
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Service provides notification persistence
type Service interface {
	Notify(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, limit int, unreadOnly bool) ([]models.Notification, error)
	UnreadCount(ctx context.Context) (int64, error)
	MarkRead(ctx context.Context, id uint) error
	MarkAllRead(ctx context.Context) error
}

type service struct {
	db *gorm.DB
}

// NewService creates a notification service
func NewService(db *gorm.DB) Service {
	return &service{db: db}
}

func (s *service) Notify(ctx context.Context, n *models.Notification) error {
	if n.Level == "" {
		n.Level = LevelInfo
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		// Notification bookkeeping must never fail the pipeline
		log.Printf("[WARN] Failed to store notification %q: %v", n.Title, err)
		return nil
	}
	return nil
}

func (s *service) List(ctx context.Context, limit int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}

	var list []models.Notification
	if err := query.Find(&list).Error; err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return list, nil
}

func (s *service) UnreadCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("read = ?", false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

func (s *service) MarkRead(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("read", true)
	if result.Error != nil {
		return fmt.Errorf("marking notification %d read: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context) error {
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("read = ?", false).
		Update("read", true).Error
	if err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}
