// Package pipeline sequences the episode-processing stages: deduplicate,
// download, transcribe, index, extract terms, summarize. Every stage
// persists its artifact before the next begins and skips itself when the
// artifact already exists, which makes runs idempotent and resumable.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"gorm.io/datatypes"

	"github.com/podscribe/podscribe-api/internal/models"
	"github.com/podscribe/podscribe-api/internal/services/dedup"
	"github.com/podscribe/podscribe-api/internal/services/episodes"
	"github.com/podscribe/podscribe-api/internal/services/notifications"
	"github.com/podscribe/podscribe-api/internal/services/podcasts"
	"github.com/podscribe/podscribe-api/internal/services/summaries"
	"github.com/podscribe/podscribe-api/internal/services/tasks"
	"github.com/podscribe/podscribe-api/internal/services/terms"
	"github.com/podscribe/podscribe-api/internal/services/transcripts"
	"github.com/podscribe/podscribe-api/internal/services/vectors"
	"github.com/podscribe/podscribe-api/pkg/download"
)

// ErrCancelled is returned when a run stops because cancellation was
// requested; the worker must not count it as a failure
var ErrCancelled = errors.New("pipeline run cancelled")

// Collaborator surfaces, narrowed to what the orchestrator calls so tests
// can substitute fakes

type audioDownloader interface {
	DownloadEpisode(ctx context.Context, url string, episodeID uint) (*download.Result, error)
	RemoveEpisodeAudio(episodeID uint) error
}

type audioTranscriber interface {
	TranscribeFile(ctx context.Context, path string, onProgress transcripts.ProgressFunc) (string, error)
}

type termExtractor interface {
	ExtractIncremental(ctx context.Context, episode *models.Episode, podcastTitle, transcript string, onProgress terms.WindowProgressFunc) ([]models.Term, error)
}

type episodeSummarizer interface {
	Summarize(ctx context.Context, episodeTitle, transcript string) (string, error)
	SynthesizeAudio(ctx context.Context, episodeID uint, summaryText string) (string, error)
}

type transcriptIndexer interface {
	IndexTranscript(ctx context.Context, episodeID, podcastID uint, transcript string) (int, error)
}

type artifactResolver interface {
	Resolve(ctx context.Context, episode *models.Episode) error
}

// Orchestrator runs the full processing pipeline for one episode per call
type Orchestrator struct {
	episodes      episodes.Service
	podcasts      podcasts.Service
	transcripts   transcripts.Service
	summaries     summaries.Service
	terms         terms.Service
	vectors       vectors.Service
	tasks         tasks.Service
	notifications notifications.Service

	resolver    artifactResolver
	downloader  audioDownloader
	transcriber audioTranscriber
	extractor   termExtractor
	summarizer  episodeSummarizer
	indexer     transcriptIndexer

	locks *episodeLocks
}

// Deps bundles the orchestrator's collaborators
type Deps struct {
	Episodes      episodes.Service
	Podcasts      podcasts.Service
	Transcripts   transcripts.Service
	Summaries     summaries.Service
	Terms         terms.Service
	Vectors       vectors.Service
	Tasks         tasks.Service
	Notifications notifications.Service

	Resolver    artifactResolver
	Downloader  audioDownloader
	Transcriber audioTranscriber
	Extractor   termExtractor
	Summarizer  episodeSummarizer
	Indexer     transcriptIndexer
}

// NewOrchestrator creates a pipeline orchestrator
func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{
		episodes:      deps.Episodes,
		podcasts:      deps.Podcasts,
		transcripts:   deps.Transcripts,
		summaries:     deps.Summaries,
		terms:         deps.Terms,
		vectors:       deps.Vectors,
		tasks:         deps.Tasks,
		notifications: deps.Notifications,
		resolver:      deps.Resolver,
		downloader:    deps.Downloader,
		transcriber:   deps.Transcriber,
		extractor:     deps.Extractor,
		summarizer:    deps.Summarizer,
		indexer:       deps.Indexer,
		locks:         newEpisodeLocks(),
	}
}

// stage couples a pipeline step with its skip-if-artifact-exists guard
type stage struct {
	name           models.Stage
	artifactExists func(ctx context.Context, episode *models.Episode) (bool, error)
	run            func(ctx context.Context, run *runState) error
}

// runState is the mutable context threaded through one pipeline run
type runState struct {
	task         *models.Task
	episode      *models.Episode
	podcastTitle string
	transcript   string // loaded or produced text, cached across stages
	ledger       runLedger
}

// ProcessEpisode executes the pipeline for the episode referenced by the
// claimed task. Returns ErrCancelled when the run was cancelled; any other
// error has already been recorded on the task as a failure.
func (o *Orchestrator) ProcessEpisode(ctx context.Context, task *models.Task) error {
	if task.EpisodeID == nil {
		return o.failRun(ctx, task, models.NewPipelineError(models.ErrorKindPrecondition, models.StagePending,
			"task has no episode reference", nil))
	}

	unlock := o.locks.Lock(*task.EpisodeID)
	defer unlock()

	episode, err := o.episodes.GetByID(ctx, *task.EpisodeID)
	if err != nil {
		return o.failRun(ctx, task, models.NewPipelineError(models.ErrorKindPrecondition, models.StagePending,
			fmt.Sprintf("episode %d not found", *task.EpisodeID), err))
	}

	podcast, err := o.podcasts.GetByID(ctx, episode.PodcastID)
	if err != nil {
		return o.failRun(ctx, task, models.NewPipelineError(models.ErrorKindSystem, models.StagePending,
			"loading podcast failed", err))
	}

	run := &runState{task: task, episode: episode, podcastTitle: podcast.Title}

	o.notify(ctx, task, episode, "processing_started", notifications.LevelInfo,
		fmt.Sprintf("Processing started for %q", episode.Title))

	for _, st := range o.stages() {
		if cancelled, err := o.checkCancellation(ctx, run); err != nil {
			return o.failRun(ctx, task, err)
		} else if cancelled {
			return ErrCancelled
		}

		exists, err := st.artifactExists(ctx, episode)
		if err != nil {
			return o.failRun(ctx, task, models.NewPipelineError(models.ErrorKindSystem, st.name,
				"artifact check failed", err))
		}
		if exists {
			log.Printf("[DEBUG] Stage %s already satisfied for episode %d, skipping", st.name, episode.ID)
			continue
		}

		o.reportStage(ctx, run, st.name, 0, 0)

		if err := st.run(ctx, run); err != nil {
			if errors.Is(err, errDedupShortCircuit) {
				break
			}
			return o.failRun(ctx, task, wrapStageError(st.name, err))
		}
	}

	result, _ := json.Marshal(map[string]any{"episode_id": episode.ID})
	if err := o.tasks.Complete(ctx, task.ID, datatypes.JSON(result)); err != nil {
		return fmt.Errorf("completing task %s: %w", task.TaskID, err)
	}

	o.notify(ctx, task, episode, "processing_succeeded", notifications.LevelInfo,
		fmt.Sprintf("Finished processing %q", episode.Title))
	log.Printf("[DEBUG] Pipeline succeeded for episode %d (task %s)", episode.ID, task.TaskID)
	return nil
}

// errDedupShortCircuit signals that deduplication satisfied the whole run
var errDedupShortCircuit = errors.New("deduplication short-circuit")

func (o *Orchestrator) stages() []stage {
	return []stage{
		{
			name: models.StageDeduplicating,
			artifactExists: func(ctx context.Context, ep *models.Episode) (bool, error) {
				// A transcript means the episode is already (partially)
				// processed; dedup would only overwrite real work
				return o.hasTranscript(ctx, ep.ID)
			},
			run: o.runDedup,
		},
		{
			name: models.StageDownloading,
			artifactExists: func(ctx context.Context, ep *models.Episode) (bool, error) {
				// Audio only feeds transcription; a finished transcript
				// makes the download unnecessary
				if has, err := o.hasTranscript(ctx, ep.ID); err != nil || has {
					return has, err
				}
				return o.hasLocalAudio(ctx, ep)
			},
			run: o.runDownload,
		},
		{
			name: models.StageTranscribing,
			artifactExists: func(ctx context.Context, ep *models.Episode) (bool, error) {
				return o.hasTranscript(ctx, ep.ID)
			},
			run: o.runTranscribe,
		},
		{
			name: models.StageIndexing,
			artifactExists: func(ctx context.Context, ep *models.Episode) (bool, error) {
				count, err := o.vectors.CountByEpisodeID(ctx, ep.ID)
				return count > 0, err
			},
			run: o.runIndex,
		},
		{
			name: models.StageExtractingTerms,
			artifactExists: func(ctx context.Context, ep *models.Episode) (bool, error) {
				count, err := o.terms.CountByEpisodeID(ctx, ep.ID)
				return count > 0, err
			},
			run: o.runExtractTerms,
		},
		{
			name: models.StageSummarizing,
			artifactExists: func(ctx context.Context, ep *models.Episode) (bool, error) {
				_, err := o.summaries.GetByEpisodeID(ctx, ep.ID)
				if err == nil {
					return true, nil
				}
				if errors.Is(err, summaries.ErrSummaryNotFound) {
					return false, nil
				}
				return false, err
			},
			run: o.runSummarize,
		},
	}
}

func (o *Orchestrator) hasTranscript(ctx context.Context, episodeID uint) (bool, error) {
	_, err := o.transcripts.GetByEpisodeID(ctx, episodeID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, transcripts.ErrTranscriptNotFound) {
		return false, nil
	}
	return false, err
}

func (o *Orchestrator) hasLocalAudio(ctx context.Context, ep *models.Episode) (bool, error) {
	if ep.LocalAudioPath == "" {
		return false, nil
	}
	if _, err := os.Stat(ep.LocalAudioPath); err != nil {
		// Recorded path with no file behind it: re-download
		return false, nil
	}
	return true, nil
}

func (o *Orchestrator) runDedup(ctx context.Context, run *runState) error {
	err := o.resolver.Resolve(ctx, run.episode)
	if err == nil {
		log.Printf("[DEBUG] Episode %d satisfied by deduplication", run.episode.ID)
		return errDedupShortCircuit
	}
	if errors.Is(err, dedup.ErrNoDonor) {
		return nil
	}
	return err
}

func (o *Orchestrator) runDownload(ctx context.Context, run *runState) error {
	result, err := o.downloader.DownloadEpisode(ctx, run.episode.AudioURL, run.episode.ID)
	if err != nil {
		return models.NewPipelineError(models.ErrorKindDownload, models.StageDownloading,
			"audio download failed", err)
	}

	if err := o.episodes.SetLocalAudioPath(ctx, run.episode.ID, result.FilePath); err != nil {
		return err
	}
	run.episode.LocalAudioPath = result.FilePath
	if !result.AlreadyExists {
		run.ledger.downloadedAudio = true
	}
	return nil
}

func (o *Orchestrator) runTranscribe(ctx context.Context, run *runState) error {
	text, err := o.transcriber.TranscribeFile(ctx, run.episode.LocalAudioPath, func(current, total int) {
		o.reportStage(ctx, run, models.StageTranscribing, current, total)
	})
	if err != nil {
		return models.NewPipelineError(models.ErrorKindExternal, models.StageTranscribing,
			"transcription failed", err)
	}

	if err := o.transcripts.Create(ctx, &models.Transcript{
		EpisodeID: run.episode.ID,
		Text:      text,
	}); err != nil {
		return err
	}
	run.transcript = text
	run.ledger.createdTranscript = true
	return nil
}

func (o *Orchestrator) runIndex(ctx context.Context, run *runState) error {
	text, err := o.loadTranscript(ctx, run)
	if err != nil {
		return err
	}

	if _, err := o.indexer.IndexTranscript(ctx, run.episode.ID, run.episode.PodcastID, text); err != nil {
		return models.NewPipelineError(models.ErrorKindExternal, models.StageIndexing,
			"vector indexing failed", err)
	}
	run.ledger.createdVectors = true
	return nil
}

func (o *Orchestrator) runExtractTerms(ctx context.Context, run *runState) error {
	text, err := o.loadTranscript(ctx, run)
	if err != nil {
		return err
	}

	stored, err := o.extractor.ExtractIncremental(ctx, run.episode, run.podcastTitle, text, func(window, total int) {
		o.reportStage(ctx, run, models.StageExtractingTerms, window, total)
	})
	if len(stored) > 0 {
		run.ledger.createdTerms = true
	}
	if err != nil {
		return models.NewPipelineError(models.ErrorKindExternal, models.StageExtractingTerms,
			"term extraction failed", err)
	}
	return nil
}

func (o *Orchestrator) runSummarize(ctx context.Context, run *runState) error {
	text, err := o.loadTranscript(ctx, run)
	if err != nil {
		return err
	}

	summaryText, err := o.summarizer.Summarize(ctx, run.episode.Title, text)
	if err != nil {
		return models.NewPipelineError(models.ErrorKindExternal, models.StageSummarizing,
			"summarization failed", err)
	}

	audioPath, err := o.summarizer.SynthesizeAudio(ctx, run.episode.ID, summaryText)
	if err != nil {
		// Summary audio is best-effort: keep the text
		log.Printf("[WARN] Summary audio synthesis failed for episode %d: %v", run.episode.ID, err)
		audioPath = ""
	}

	if err := o.summaries.Create(ctx, &models.Summary{
		EpisodeID: run.episode.ID,
		Text:      summaryText,
		AudioPath: audioPath,
	}); err != nil {
		return err
	}
	run.ledger.createdSummary = true
	return nil
}

// loadTranscript returns the run's transcript text, fetching it from
// storage when an earlier run produced it
func (o *Orchestrator) loadTranscript(ctx context.Context, run *runState) (string, error) {
	if run.transcript != "" {
		return run.transcript, nil
	}

	transcript, err := o.transcripts.GetByEpisodeID(ctx, run.episode.ID)
	if err != nil {
		return "", models.NewPipelineError(models.ErrorKindPrecondition, models.StagePending,
			"transcript missing for downstream stage", err)
	}
	run.transcript = transcript.Text
	return run.transcript, nil
}

// checkCancellation polls the task's cancellation flag and, when set,
// performs cleanup and marks the task cancelled
func (o *Orchestrator) checkCancellation(ctx context.Context, run *runState) (bool, error) {
	requested, cleanup, err := o.tasks.IsCancelRequested(ctx, run.task.ID)
	if err != nil {
		return false, models.NewPipelineError(models.ErrorKindSystem, models.StagePending,
			"checking cancellation failed", err)
	}
	if !requested {
		return false, nil
	}

	log.Printf("[DEBUG] Cancellation observed for task %s (cleanup=%t)", run.task.TaskID, cleanup)
	if cleanup {
		o.cleanupRun(ctx, run)
	}

	if err := o.tasks.MarkCancelled(ctx, run.task.ID); err != nil {
		log.Printf("[WARN] Failed to mark task %s cancelled: %v", run.task.TaskID, err)
	}
	o.notify(ctx, run.task, run.episode, "processing_cancelled", notifications.LevelWarning,
		fmt.Sprintf("Processing cancelled for %q", run.episode.Title))
	return true, nil
}

// cleanupRun removes artifacts the current run created. Pre-existing
// artifacts are never touched; cleanup failures are logged, not fatal.
func (o *Orchestrator) cleanupRun(ctx context.Context, run *runState) {
	if !run.ledger.anything() {
		return
	}

	id := run.episode.ID
	if run.ledger.createdVectors {
		if err := o.vectors.DeleteByEpisodeID(ctx, id); err != nil {
			log.Printf("[WARN] Cleanup: deleting vectors for episode %d: %v", id, err)
		}
	}
	if run.ledger.createdTerms {
		if err := o.terms.DeleteByEpisodeID(ctx, id); err != nil {
			log.Printf("[WARN] Cleanup: deleting terms for episode %d: %v", id, err)
		}
	}
	if run.ledger.createdSummary {
		if err := o.summaries.DeleteByEpisodeID(ctx, id); err != nil {
			log.Printf("[WARN] Cleanup: deleting summary for episode %d: %v", id, err)
		}
	}
	if run.ledger.createdTranscript {
		if err := o.transcripts.DeleteByEpisodeID(ctx, id); err != nil {
			log.Printf("[WARN] Cleanup: deleting transcript for episode %d: %v", id, err)
		}
	}
	if run.ledger.downloadedAudio {
		if err := o.downloader.RemoveEpisodeAudio(id); err != nil {
			log.Printf("[WARN] Cleanup: removing audio for episode %d: %v", id, err)
		}
		if err := o.episodes.ClearLocalAudioPath(ctx, id); err != nil {
			log.Printf("[WARN] Cleanup: clearing audio path for episode %d: %v", id, err)
		}
	}
}

// failRun records a failure on the task and returns the original error
func (o *Orchestrator) failRun(ctx context.Context, task *models.Task, err error) error {
	stage := models.StagePending
	message := err.Error()
	var perr *models.PipelineError
	if errors.As(err, &perr) {
		stage = perr.Stage
		message = perr.Message
		log.Printf("[WARN] Pipeline failed at stage %s (task %s): %s: %v", stage, task.TaskID, perr.Message, perr.Err)
	} else {
		log.Printf("[WARN] Pipeline failed (task %s): %v", task.TaskID, err)
	}

	if ferr := o.tasks.Fail(ctx, task.ID, stage, message); ferr != nil {
		log.Printf("[WARN] Failed to record failure on task %s: %v", task.TaskID, ferr)
	}

	n := &models.Notification{
		Type:      "processing_failed",
		Title:     "Episode processing failed",
		Message:   message,
		Level:     notifications.LevelError,
		TaskID:    task.TaskID,
		EpisodeID: task.EpisodeID,
		PodcastID: task.PodcastID,
	}
	if nerr := o.notifications.Notify(ctx, n); nerr != nil {
		log.Printf("[WARN] Failed to store failure notification: %v", nerr)
	}
	return err
}

func (o *Orchestrator) reportStage(ctx context.Context, run *runState, stage models.Stage, current, total int) {
	snapshot := models.ProgressSnapshot{
		Stage:        stage,
		ChunkCurrent: current,
		ChunkTotal:   total,
		EpisodeTitle: run.episode.Title,
		PodcastTitle: run.podcastTitle,
	}
	if err := o.tasks.UpdateProgress(ctx, run.task.ID, snapshot); err != nil {
		log.Printf("[WARN] Failed to update progress for task %s: %v", run.task.TaskID, err)
	}
}

func (o *Orchestrator) notify(ctx context.Context, task *models.Task, episode *models.Episode, kind, level, message string) {
	n := &models.Notification{
		Type:      kind,
		Title:     episode.Title,
		Message:   message,
		Level:     level,
		TaskID:    task.TaskID,
		EpisodeID: &episode.ID,
		PodcastID: &episode.PodcastID,
	}
	if err := o.notifications.Notify(ctx, n); err != nil {
		log.Printf("[WARN] Failed to store notification: %v", err)
	}
}

// wrapStageError ensures every stage failure carries its stage name
func wrapStageError(stage models.Stage, err error) error {
	var perr *models.PipelineError
	if errors.As(err, &perr) {
		return err
	}
	return models.NewPipelineError(models.ErrorKindSystem, stage, err.Error(), err)
}
