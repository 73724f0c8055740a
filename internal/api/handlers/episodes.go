package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/podscribe/podscribe-api/internal/models"
	"github.com/podscribe/podscribe-api/internal/services/episodes"
	"github.com/podscribe/podscribe-api/internal/services/summaries"
	"github.com/podscribe/podscribe-api/internal/services/tasks"
	"github.com/podscribe/podscribe-api/internal/services/terms"
	"github.com/podscribe/podscribe-api/internal/services/transcripts"
)

// EpisodeHandler handles episode and per-episode artifact endpoints
type EpisodeHandler struct {
	episodes    episodes.Service
	transcripts transcripts.Service
	summaries   summaries.Service
	terms       terms.Service
	tasks       tasks.Service
}

// NewEpisodeHandler creates an episode handler
func NewEpisodeHandler(
	episodeSvc episodes.Service,
	transcriptSvc transcripts.Service,
	summarySvc summaries.Service,
	termSvc terms.Service,
	taskSvc tasks.Service,
) *EpisodeHandler {
	return &EpisodeHandler{
		episodes:    episodeSvc,
		transcripts: transcriptSvc,
		summaries:   summarySvc,
		terms:       termSvc,
		tasks:       taskSvc,
	}
}

// Get returns one episode
func (h *EpisodeHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	episode, err := h.episodes.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, episodes.ErrEpisodeNotFound) {
			errorResponse(c, http.StatusNotFound, "episode not found")
			return
		}
		errorResponse(c, http.StatusInternalServerError, "failed to load episode")
		return
	}
	c.JSON(http.StatusOK, episode)
}

// Process enqueues the processing pipeline for an episode. Enqueueing is
// idempotent: an episode with an active task gets that task back.
func (h *EpisodeHandler) Process(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	episode, err := h.episodes.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, episodes.ErrEpisodeNotFound) {
			errorResponse(c, http.StatusNotFound, "episode not found")
			return
		}
		errorResponse(c, http.StatusInternalServerError, "failed to load episode")
		return
	}

	task, err := h.tasks.Enqueue(c.Request.Context(), models.TaskTypeEpisodeProcessing, &episode.ID, &episode.PodcastID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to enqueue processing")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"task_id": task.TaskID, "status": task.Status})
}

// ExtractTerms enqueues incremental term re-extraction for an episode
// that already has a transcript
func (h *EpisodeHandler) ExtractTerms(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	episode, err := h.episodes.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, episodes.ErrEpisodeNotFound) {
			errorResponse(c, http.StatusNotFound, "episode not found")
			return
		}
		errorResponse(c, http.StatusInternalServerError, "failed to load episode")
		return
	}

	if _, err := h.transcripts.GetByEpisodeID(c.Request.Context(), episode.ID); err != nil {
		if errors.Is(err, transcripts.ErrTranscriptNotFound) {
			errorResponse(c, http.StatusConflict, "episode has no transcript yet")
			return
		}
		errorResponse(c, http.StatusInternalServerError, "failed to check transcript")
		return
	}

	task, err := h.tasks.Enqueue(c.Request.Context(), models.TaskTypeTermExtraction, &episode.ID, &episode.PodcastID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to enqueue extraction")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"task_id": task.TaskID, "status": task.Status})
}

// Transcript returns the episode's transcript
func (h *EpisodeHandler) Transcript(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	transcript, err := h.transcripts.GetByEpisodeID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, transcripts.ErrTranscriptNotFound) {
			errorResponse(c, http.StatusNotFound, "transcript not found")
			return
		}
		errorResponse(c, http.StatusInternalServerError, "failed to load transcript")
		return
	}
	c.JSON(http.StatusOK, transcript)
}

// Summary returns the episode's summary
func (h *EpisodeHandler) Summary(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	summary, err := h.summaries.GetByEpisodeID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, summaries.ErrSummaryNotFound) {
			errorResponse(c, http.StatusNotFound, "summary not found")
			return
		}
		errorResponse(c, http.StatusInternalServerError, "failed to load summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Terms returns the episode's visible terms
func (h *EpisodeHandler) Terms(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	list, err := h.terms.ListByEpisodeID(c.Request.Context(), id)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to list terms")
		return
	}
	c.JSON(http.StatusOK, gin.H{"terms": list, "count": len(list)})
}
