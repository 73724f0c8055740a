package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/podscribe/podscribe-api/internal/services/tasks"
)

// TaskHandler exposes task polling and cancellation
type TaskHandler struct {
	tasks tasks.Service
}

// NewTaskHandler creates a task handler
func NewTaskHandler(taskSvc tasks.Service) *TaskHandler {
	return &TaskHandler{tasks: taskSvc}
}

// List returns recent tasks, newest first
func (h *TaskHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	list, err := h.tasks.List(c.Request.Context(), limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": list, "count": len(list)})
}

// Get returns one task by its external UUID, the polling endpoint
func (h *TaskHandler) Get(c *gin.Context) {
	taskID := c.Param("task_id")

	task, err := h.tasks.GetByTaskID(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			errorResponse(c, http.StatusNotFound, "task not found")
			return
		}
		errorResponse(c, http.StatusInternalServerError, "failed to load task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// Cancel requests cooperative cancellation of a task. cleanup=true also
// removes artifacts the cancelled run created.
func (h *TaskHandler) Cancel(c *gin.Context) {
	taskID := c.Param("task_id")
	cleanup := c.Query("cleanup") == "true"

	err := h.tasks.RequestCancel(c.Request.Context(), taskID, cleanup)
	if err != nil {
		switch {
		case errors.Is(err, tasks.ErrTaskNotFound):
			errorResponse(c, http.StatusNotFound, "task not found")
		case errors.Is(err, tasks.ErrTaskAlreadyTerminal):
			errorResponse(c, http.StatusConflict, "task already finished")
		default:
			errorResponse(c, http.StatusInternalServerError, "failed to request cancellation")
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"task_id": taskID, "cancel_requested": true, "cleanup": cleanup})
}
