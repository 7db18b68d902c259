package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailnight/internal/model"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

type NotificationLog interface {
	ListByUser(ctx context.Context, userID, limit int) ([]model.NotificationLog, error)
}

type NotificationHandler struct {
	logs   NotificationLog
	logger *zap.Logger
}

func NewNotificationHandler(logs NotificationLog, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{logs: logs, logger: orNop(logger)}
}

// List handles GET /api/notifications?limit=
func (h *NotificationHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultNotificationLimit)))
	if err != nil || limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	items, err := h.logs.ListByUser(c.Request.Context(), currentUserID(c), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
