package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/podscribe/podscribe-api/internal/models"
	"github.com/podscribe/podscribe-api/internal/services/episodes"
	"github.com/podscribe/podscribe-api/internal/services/podcasts"
	"github.com/podscribe/podscribe-api/internal/services/tasks"
)

// PodcastHandler handles podcast subscription and feed endpoints
type PodcastHandler struct {
	podcasts podcasts.Service
	episodes episodes.Service
	tasks    tasks.Service
}

// NewPodcastHandler creates a podcast handler
func NewPodcastHandler(podcastSvc podcasts.Service, episodeSvc episodes.Service, taskSvc tasks.Service) *PodcastHandler {
	return &PodcastHandler{
		podcasts: podcastSvc,
		episodes: episodeSvc,
		tasks:    taskSvc,
	}
}

type subscribeRequest struct {
	FeedURL string `json:"feed_url" binding:"required"`
}

// Subscribe adds a podcast by RSS feed URL and ingests its episodes
func (h *PodcastHandler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "feed_url is required")
		return
	}

	podcast, err := h.podcasts.Subscribe(c.Request.Context(), req.FeedURL)
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "failed to fetch or parse feed")
		return
	}

	c.JSON(http.StatusCreated, podcast)
}

// List returns all subscribed podcasts
func (h *PodcastHandler) List(c *gin.Context) {
	list, err := h.podcasts.List(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to list podcasts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"podcasts": list, "count": len(list)})
}

// Get returns one podcast
func (h *PodcastHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	podcast, err := h.podcasts.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, podcasts.ErrPodcastNotFound) {
			errorResponse(c, http.StatusNotFound, "podcast not found")
			return
		}
		errorResponse(c, http.StatusInternalServerError, "failed to load podcast")
		return
	}
	c.JSON(http.StatusOK, podcast)
}

// Delete removes a podcast subscription
func (h *PodcastHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.podcasts.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, podcasts.ErrPodcastNotFound) {
			errorResponse(c, http.StatusNotFound, "podcast not found")
			return
		}
		errorResponse(c, http.StatusInternalServerError, "failed to delete podcast")
		return
	}
	c.Status(http.StatusNoContent)
}

// Refresh enqueues a feed refresh task for the podcast
func (h *PodcastHandler) Refresh(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if _, err := h.podcasts.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, podcasts.ErrPodcastNotFound) {
			errorResponse(c, http.StatusNotFound, "podcast not found")
			return
		}
		errorResponse(c, http.StatusInternalServerError, "failed to load podcast")
		return
	}

	task, err := h.tasks.Enqueue(c.Request.Context(), models.TaskTypeFeedRefresh, nil, &id)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to enqueue refresh")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"task_id": task.TaskID, "status": task.Status})
}

// Episodes lists a podcast's episodes, newest first
func (h *PodcastHandler) Episodes(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.episodes.ListByPodcastID(c.Request.Context(), id, limit, offset)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to list episodes")
		return
	}
	c.JSON(http.StatusOK, gin.H{"episodes": list, "count": len(list)})
}

// parseID reads a uint path parameter, writing a 400 on failure
func parseID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// errorResponse writes the standard error envelope
func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"status": "error", "message": message})
}
