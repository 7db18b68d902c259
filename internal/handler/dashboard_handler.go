package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailnight/internal/model"
)

type DashboardService interface {
	Overview(ctx context.Context, userID int) (*model.Dashboard, error)
}

type DashboardHandler struct {
	dashboardService DashboardService
	logger           *zap.Logger
}

func NewDashboardHandler(dashboardService DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, logger: orNop(logger)}
}

// Overview handles GET /api/dashboard
func (h *DashboardHandler) Overview(c *gin.Context) {
	d, err := h.dashboardService.Overview(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
