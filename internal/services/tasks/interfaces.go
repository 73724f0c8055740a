package tasks

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/podscribe/podscribe-api/internal/models"
)

// Service provides task lifecycle management for background processing
type Service interface {
	// Enqueue creates a new PENDING task. If an active task of the same
	// type already exists for the episode, that task is returned instead
	// of creating a duplicate.
	Enqueue(ctx context.Context, taskType models.TaskType, episodeID, podcastID *uint) (*models.Task, error)

	// GetByTaskID returns the task with the given external UUID
	GetByTaskID(ctx context.Context, taskID string) (*models.Task, error)

	// List returns recent tasks, newest first
	List(ctx context.Context, limit int) ([]models.Task, error)

	// RequestCancel flags a task for cooperative cancellation. The running
	// worker observes the flag between stages. cleanup requests removal of
	// artifacts the cancelled run created.
	RequestCancel(ctx context.Context, taskID string, cleanup bool) error

	// Worker-side lifecycle
	ClaimNext(ctx context.Context, workerID string, types []models.TaskType) (*models.Task, error)
	UpdateProgress(ctx context.Context, id uint, progress models.ProgressSnapshot) error
	Heartbeat(ctx context.Context, id uint) error
	IsCancelRequested(ctx context.Context, id uint) (bool, bool, error)
	Complete(ctx context.Context, id uint, result datatypes.JSON) error
	Fail(ctx context.Context, id uint, stage models.Stage, errorMsg string) error
	MarkCancelled(ctx context.Context, id uint) error

	// SweepOrphans fails PROGRESS tasks whose worker heartbeat went stale,
	// returning how many were swept
	SweepOrphans(ctx context.Context, staleAfter time.Duration) (int64, error)
}

// Repository provides task persistence
type Repository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uint) (*models.Task, error)
	GetByTaskID(ctx context.Context, taskID string) (*models.Task, error)
	List(ctx context.Context, limit int) ([]models.Task, error)
	FindActive(ctx context.Context, taskType models.TaskType, episodeID uint) (*models.Task, error)

	ClaimNext(ctx context.Context, workerID string, types []models.TaskType) (*models.Task, error)
	UpdateProgress(ctx context.Context, id uint, progress models.ProgressSnapshot) error
	Heartbeat(ctx context.Context, id uint) error
	SetCancelRequested(ctx context.Context, id uint, cleanup bool) error
	Transition(ctx context.Context, id uint, status models.TaskStatus, updates map[string]interface{}) error

	FindOrphans(ctx context.Context, cutoff time.Time) ([]models.Task, error)
	DeleteOldTasks(ctx context.Context, olderThan time.Time) (int64, error)
}
