package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foshrdd/grievance/pkg/apiserver/middleware"
	"github.com/foshrdd/grievance/pkg/store/postgres"
)

type NotificationHandler struct {
	db     *postgres.Store
	logger *zap.Logger
}

func NewNotificationHandler(db *postgres.Store, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{db: db, logger: logger}
}

type notificationResponse struct {
	ID        uint   `json:"id"`
	Message   string `json:"message"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	limit := parseLimit(c.Query("limit"), 50)
	repo := postgres.NewNotificationRepository(h.db.DB())
	notifications, err := repo.ListForUser(c.Request.Context(), principal.AccessID, limit)
	if err != nil {
		h.logger.Error("failed to list notifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}

	response := make([]notificationResponse, 0, len(notifications))
	unread := 0
	for _, n := range notifications {
		if !n.IsRead {
			unread++
		}
		response = append(response, notificationResponse{
			ID:        n.ID,
			Message:   n.Message,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": response,
		"unread":        unread,
	})
}

// MarkAllRead flips every unread notification of the caller.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	repo := postgres.NewNotificationRepository(h.db.DB())
	if err := repo.MarkAllRead(c.Request.Context(), principal.AccessID); err != nil {
		h.logger.Error("failed to mark notifications read", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark notifications read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
