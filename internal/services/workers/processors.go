package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/datatypes"

	"github.com/podscribe/podscribe-api/internal/models"
	"github.com/podscribe/podscribe-api/internal/services/episodes"
	"github.com/podscribe/podscribe-api/internal/services/podcasts"
	"github.com/podscribe/podscribe-api/internal/services/tasks"
	"github.com/podscribe/podscribe-api/internal/services/terms"
	"github.com/podscribe/podscribe-api/internal/services/transcripts"
)

// episodePipeline is the orchestrator surface the processor needs
type episodePipeline interface {
	ProcessEpisode(ctx context.Context, task *models.Task) error
}

// EpisodeProcessor runs the full processing pipeline for one episode.
// The orchestrator owns the task lifecycle end to end.
type EpisodeProcessor struct {
	pipeline episodePipeline
}

// NewEpisodeProcessor creates an episode processing processor
func NewEpisodeProcessor(pipeline episodePipeline) *EpisodeProcessor {
	return &EpisodeProcessor{pipeline: pipeline}
}

func (p *EpisodeProcessor) CanProcess(taskType models.TaskType) bool {
	return taskType == models.TaskTypeEpisodeProcessing
}

func (p *EpisodeProcessor) ProcessTask(ctx context.Context, task *models.Task) error {
	return p.pipeline.ProcessEpisode(ctx, task)
}

// termExtractor is the extraction surface the re-extraction processor needs
type termExtractor interface {
	ExtractIncremental(ctx context.Context, episode *models.Episode, podcastTitle, transcript string, onProgress terms.WindowProgressFunc) ([]models.Term, error)
}

// TermExtractionProcessor re-runs term extraction for an episode that
// already has a transcript, replacing the previous term set
type TermExtractionProcessor struct {
	episodes    episodes.Service
	podcasts    podcasts.Service
	transcripts transcripts.Service
	terms       terms.Service
	tasks       tasks.Service
	extractor   termExtractor
}

// NewTermExtractionProcessor creates a term re-extraction processor
func NewTermExtractionProcessor(
	episodeSvc episodes.Service,
	podcastSvc podcasts.Service,
	transcriptSvc transcripts.Service,
	termSvc terms.Service,
	taskSvc tasks.Service,
	extractor termExtractor,
) *TermExtractionProcessor {
	return &TermExtractionProcessor{
		episodes:    episodeSvc,
		podcasts:    podcastSvc,
		transcripts: transcriptSvc,
		terms:       termSvc,
		tasks:       taskSvc,
		extractor:   extractor,
	}
}

func (p *TermExtractionProcessor) CanProcess(taskType models.TaskType) bool {
	return taskType == models.TaskTypeTermExtraction
}

func (p *TermExtractionProcessor) ProcessTask(ctx context.Context, task *models.Task) error {
	if task.EpisodeID == nil {
		return p.fail(ctx, task, "task has no episode reference", nil)
	}

	episode, err := p.episodes.GetByID(ctx, *task.EpisodeID)
	if err != nil {
		return p.fail(ctx, task, fmt.Sprintf("episode %d not found", *task.EpisodeID), err)
	}

	transcript, err := p.transcripts.GetByEpisodeID(ctx, episode.ID)
	if err != nil {
		return p.fail(ctx, task, "episode has no transcript to extract terms from", err)
	}

	podcast, err := p.podcasts.GetByID(ctx, episode.PodcastID)
	if err != nil {
		return p.fail(ctx, task, "loading podcast failed", err)
	}

	// Replace, not append: the previous term set is superseded
	if err := p.terms.DeleteByEpisodeID(ctx, episode.ID); err != nil {
		return p.fail(ctx, task, "clearing previous terms failed", err)
	}

	extracted, err := p.extractor.ExtractIncremental(ctx, episode, podcast.Title, transcript.Text, func(window, total int) {
		snapshot := models.ProgressSnapshot{
			Stage:        models.StageExtractingTerms,
			ChunkCurrent: window,
			ChunkTotal:   total,
			EpisodeTitle: episode.Title,
			PodcastTitle: podcast.Title,
		}
		if perr := p.tasks.UpdateProgress(ctx, task.ID, snapshot); perr != nil {
			log.Printf("[WARN] Failed to update progress for task %s: %v", task.TaskID, perr)
		}
	})
	if err != nil {
		return p.fail(ctx, task, "term extraction failed", err)
	}

	result, _ := json.Marshal(map[string]any{"episode_id": episode.ID, "terms": len(extracted)})
	return p.tasks.Complete(ctx, task.ID, datatypes.JSON(result))
}

func (p *TermExtractionProcessor) fail(ctx context.Context, task *models.Task, message string, err error) error {
	log.Printf("[WARN] Term extraction task %s failed: %s: %v", task.TaskID, message, err)
	if ferr := p.tasks.Fail(ctx, task.ID, models.StageExtractingTerms, message); ferr != nil {
		log.Printf("[WARN] Failed to record failure on task %s: %v", task.TaskID, ferr)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", message, err)
	}
	return fmt.Errorf("%s", message)
}

// FeedRefreshProcessor re-fetches a podcast feed and ingests new episodes
type FeedRefreshProcessor struct {
	podcasts podcasts.Service
	tasks    tasks.Service
}

// NewFeedRefreshProcessor creates a feed refresh processor
func NewFeedRefreshProcessor(podcastSvc podcasts.Service, taskSvc tasks.Service) *FeedRefreshProcessor {
	return &FeedRefreshProcessor{podcasts: podcastSvc, tasks: taskSvc}
}

func (p *FeedRefreshProcessor) CanProcess(taskType models.TaskType) bool {
	return taskType == models.TaskTypeFeedRefresh
}

func (p *FeedRefreshProcessor) ProcessTask(ctx context.Context, task *models.Task) error {
	if task.PodcastID == nil {
		return p.fail(ctx, task, "task has no podcast reference", nil)
	}

	added, err := p.podcasts.RefreshFeed(ctx, *task.PodcastID)
	if err != nil {
		return p.fail(ctx, task, "feed refresh failed", err)
	}

	log.Printf("[DEBUG] Feed refresh for podcast %d added %d episodes", *task.PodcastID, added)
	result, _ := json.Marshal(map[string]any{"podcast_id": *task.PodcastID, "new_episodes": added})
	return p.tasks.Complete(ctx, task.ID, datatypes.JSON(result))
}

func (p *FeedRefreshProcessor) fail(ctx context.Context, task *models.Task, message string, err error) error {
	log.Printf("[WARN] Feed refresh task %s failed: %s: %v", task.TaskID, message, err)
	if ferr := p.tasks.Fail(ctx, task.ID, models.StagePending, message); ferr != nil {
		log.Printf("[WARN] Failed to record failure on task %s: %v", task.TaskID, ferr)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", message, err)
	}
	return fmt.Errorf("%s", message)
}
