package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/podscribe/podscribe-api/internal/models"
)

// OrphanMessage is recorded on tasks failed by the orphan sweeper
const OrphanMessage = "task was interrupted or orphaned (worker restart/crash)"

type service struct {
	repo Repository
}

// NewService creates a new task service
func NewService(repo Repository) Service {
	return &service{
		repo: repo,
	}
}

func (s *service) Enqueue(ctx context.Context, taskType models.TaskType, episodeID, podcastID *uint) (*models.Task, error) {
	// One active pipeline run per episode: return the existing task so a
	// double-click on "process" cannot start concurrent runs
	if episodeID != nil {
		existing, err := s.repo.FindActive(ctx, taskType, *episodeID)
		if err == nil {
			log.Printf("[DEBUG] Episode %d already has active %s task %s", *episodeID, taskType, existing.TaskID)
			return existing, nil
		}
		if !errors.Is(err, ErrTaskNotFound) {
			return nil, err
		}
	}

	task := &models.Task{
		TaskID:    uuid.NewString(),
		Type:      taskType,
		Status:    models.TaskStatusPending,
		EpisodeID: episodeID,
		PodcastID: podcastID,
		Progress:  models.ProgressSnapshot{Stage: models.StagePending},
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	log.Printf("[DEBUG] Enqueued %s task %s", taskType, task.TaskID)
	return task, nil
}

func (s *service) GetByTaskID(ctx context.Context, taskID string) (*models.Task, error) {
	return s.repo.GetByTaskID(ctx, taskID)
}

func (s *service) List(ctx context.Context, limit int) ([]models.Task, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, limit)
}

func (s *service) RequestCancel(ctx context.Context, taskID string, cleanup bool) error {
	task, err := s.repo.GetByTaskID(ctx, taskID)
	if err != nil {
		return err
	}

	if task.IsTerminal() {
		return ErrTaskAlreadyTerminal
	}

	// A PENDING task has no worker to observe the flag, cancel it directly
	if task.Status == models.TaskStatusPending {
		if err := s.repo.Transition(ctx, task.ID, models.TaskStatusCancelled, map[string]interface{}{
			"progress": models.ProgressSnapshot{Stage: models.StageCancelled},
		}); err != nil {
			return err
		}
		log.Printf("[DEBUG] Cancelled pending task %s", taskID)
		return nil
	}

	if err := s.repo.SetCancelRequested(ctx, task.ID, cleanup); err != nil {
		return err
	}
	log.Printf("[DEBUG] Cancellation requested for task %s (cleanup=%v)", taskID, cleanup)
	return nil
}

func (s *service) ClaimNext(ctx context.Context, workerID string, types []models.TaskType) (*models.Task, error) {
	return s.repo.ClaimNext(ctx, workerID, types)
}

func (s *service) UpdateProgress(ctx context.Context, id uint, progress models.ProgressSnapshot) error {
	return s.repo.UpdateProgress(ctx, id, progress)
}

func (s *service) Heartbeat(ctx context.Context, id uint) error {
	return s.repo.Heartbeat(ctx, id)
}

// IsCancelRequested reports whether cancellation was requested for the task
// and whether artifact cleanup was asked for
func (s *service) IsCancelRequested(ctx context.Context, id uint) (bool, bool, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, false, err
	}
	return task.CancelRequested, task.CleanupOnCancel, nil
}

func (s *service) Complete(ctx context.Context, id uint, result datatypes.JSON) error {
	return s.repo.Transition(ctx, id, models.TaskStatusSuccess, map[string]interface{}{
		"result":   result,
		"progress": models.ProgressSnapshot{Stage: models.StageSucceeded},
	})
}

func (s *service) Fail(ctx context.Context, id uint, stage models.Stage, errorMsg string) error {
	return s.repo.Transition(ctx, id, models.TaskStatusFailure, map[string]interface{}{
		"error_message": errorMsg,
		"progress":      models.ProgressSnapshot{Stage: models.StageFailed, Message: errorMsg},
	})
}

func (s *service) MarkCancelled(ctx context.Context, id uint) error {
	return s.repo.Transition(ctx, id, models.TaskStatusCancelled, map[string]interface{}{
		"progress": models.ProgressSnapshot{Stage: models.StageCancelled},
	})
}

// SweepOrphans fails PROGRESS tasks whose heartbeat went stale. A crashed
// worker leaves its task in PROGRESS forever; pollers need the record to
// reach a terminal status.
func (s *service) SweepOrphans(ctx context.Context, staleAfter time.Duration) (int64, error) {
	cutoff := time.Now().Add(-staleAfter)
	orphans, err := s.repo.FindOrphans(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	var swept int64
	for _, task := range orphans {
		if err := s.repo.Transition(ctx, task.ID, models.TaskStatusFailure, map[string]interface{}{
			"error_message": OrphanMessage,
			"progress":      models.ProgressSnapshot{Stage: models.StageFailed, Message: OrphanMessage},
		}); err != nil {
			log.Printf("[WARN] Failed to sweep orphaned task %s: %v", task.TaskID, err)
			continue
		}
		log.Printf("[WARN] Swept orphaned task %s (last heartbeat before %s)", task.TaskID, cutoff.Format(time.RFC3339))
		swept++
	}

	return swept, nil
}
