package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/podscribe/podscribe-api/internal/models"
)

// Common errors
var (
	ErrNoTasksAvailable    = errors.New("no tasks available")
	ErrTaskNotFound        = errors.New("task not found")
	ErrInvalidTransition   = errors.New("invalid task status transition")
	ErrTaskAlreadyTerminal = errors.New("task already in a terminal status")
)

// repository implements Repository interface
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new task repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{
		db: db,
	}
}

// Create creates a new task
func (r *repository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// GetByID retrieves a task by database ID
func (r *repository) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).First(&task, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("getting task %d: %w", id, err)
	}
	return &task, nil
}

// GetByTaskID retrieves a task by its external UUID
func (r *repository) GetByTaskID(ctx context.Context, taskID string) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("getting task %s: %w", taskID, err)
	}
	return &task, nil
}

// List returns recent tasks, newest first
func (r *repository) List(ctx context.Context, limit int) ([]models.Task, error) {
	var list []models.Task
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return list, nil
}

// FindActive returns the non-terminal task of the given type for an episode
func (r *repository) FindActive(ctx context.Context, taskType models.TaskType, episodeID uint) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Where("type = ? AND episode_id = ?", taskType, episodeID).
		Where("status IN ?", []models.TaskStatus{models.TaskStatusPending, models.TaskStatusProgress}).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("finding active task: %w", err)
	}
	return &task, nil
}

// ClaimNext atomically claims the oldest PENDING task for a worker
func (r *repository) ClaimNext(ctx context.Context, workerID string, types []models.TaskType) (*models.Task, error) {
	var task models.Task

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status = ?", models.TaskStatusPending)

		if len(types) > 0 {
			query = query.Where("type IN ?", types)
		}

		if err := query.Order("created_at ASC").First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoTasksAvailable
			}
			return fmt.Errorf("finding task to claim: %w", err)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":       models.TaskStatusProgress,
			"worker_id":    workerID,
			"started_at":   &now,
			"heartbeat_at": &now,
		}

		if err := tx.Model(&task).Updates(updates).Error; err != nil {
			return fmt.Errorf("claiming task %d: %w", task.ID, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &task, nil
}

// UpdateProgress writes a progress snapshot and refreshes the worker heartbeat.
// Progress on a terminal task is silently dropped so a worker finishing a
// stage can never resurrect a task that was cancelled or failed underneath it.
func (r *repository) UpdateProgress(ctx context.Context, id uint, progress models.ProgressSnapshot) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND status = ?", id, models.TaskStatusProgress).
		Updates(map[string]interface{}{
			"progress":     progress,
			"heartbeat_at": &now,
		})
	if result.Error != nil {
		return fmt.Errorf("updating progress for task %d: %w", id, result.Error)
	}
	return nil
}

// Heartbeat refreshes the worker liveness timestamp without touching
// progress. Like UpdateProgress it is a no-op on terminal tasks.
func (r *repository) Heartbeat(ctx context.Context, id uint) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND status = ?", id, models.TaskStatusProgress).
		Update("heartbeat_at", &now)
	if result.Error != nil {
		return fmt.Errorf("heartbeat for task %d: %w", id, result.Error)
	}
	return nil
}

// SetCancelRequested flags a task for cooperative cancellation
func (r *repository) SetCancelRequested(ctx context.Context, id uint, cleanup bool) error {
	result := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ?", id).
		Where("status IN ?", []models.TaskStatus{models.TaskStatusPending, models.TaskStatusProgress}).
		Updates(map[string]interface{}{
			"cancel_requested":  true,
			"cleanup_on_cancel": cleanup,
		})
	if result.Error != nil {
		return fmt.Errorf("requesting cancel for task %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskAlreadyTerminal
	}
	return nil
}

// Transition moves a task to a new status, enforcing the monotonic
// lifecycle inside a transaction
func (r *repository) Transition(ctx context.Context, id uint, status models.TaskStatus, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return fmt.Errorf("loading task %d: %w", id, err)
		}

		if !task.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, status)
		}

		if updates == nil {
			updates = map[string]interface{}{}
		}
		updates["status"] = status
		if status.IsTerminal() {
			now := time.Now()
			updates["completed_at"] = &now
		}

		if err := tx.Model(&task).Updates(updates).Error; err != nil {
			return fmt.Errorf("transitioning task %d to %s: %w", id, status, err)
		}
		return nil
	})
}

// FindOrphans returns PROGRESS tasks whose heartbeat predates the cutoff
func (r *repository) FindOrphans(ctx context.Context, cutoff time.Time) ([]models.Task, error) {
	var orphans []models.Task
	err := r.db.WithContext(ctx).
		Where("status = ?", models.TaskStatusProgress).
		Where("heartbeat_at IS NULL OR heartbeat_at < ?", cutoff).
		Find(&orphans).Error
	if err != nil {
		return nil, fmt.Errorf("finding orphaned tasks: %w", err)
	}
	return orphans, nil
}

// DeleteOldTasks removes terminal tasks older than the given time
func (r *repository) DeleteOldTasks(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Where("status IN ?", []models.TaskStatus{
			models.TaskStatusSuccess,
			models.TaskStatusFailure,
			models.TaskStatusCancelled,
		}).
		Delete(&models.Task{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting old tasks: %w", result.Error)
	}
	return result.RowsAffected, nil
}
