package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/podscribe/podscribe-api/internal/services/notifications"
)

// NotificationHandler exposes pipeline lifecycle notifications
type NotificationHandler struct {
	notifications notifications.Service
}

// NewNotificationHandler creates a notification handler
func NewNotificationHandler(notificationSvc notifications.Service) *NotificationHandler {
	return &NotificationHandler{notifications: notificationSvc}
}

// List returns recent notifications, optionally unread only
func (h *NotificationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	unreadOnly := c.Query("unread") == "true"

	list, err := h.notifications.List(c.Request.Context(), limit, unreadOnly)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	unread, err := h.notifications.UnreadCount(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to count notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": list, "count": len(list), "unread": unread})
}

// MarkRead marks one notification as read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			errorResponse(c, http.StatusNotFound, "notification not found")
			return
		}
		errorResponse(c, http.StatusInternalServerError, "failed to mark notification read")
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllRead marks every notification as read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.notifications.MarkAllRead(c.Request.Context()); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}
	c.Status(http.StatusNoContent)
}
