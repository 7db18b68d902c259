package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailnight/internal/model"
)

type AdminService interface {
	Overview(ctx context.Context) (*model.AdminOverview, error)
	Users(ctx context.Context, page int) (*model.AdminUserPage, error)
	UserDetail(ctx context.Context, id int) (*model.AdminUserDetail, error)
	ToggleRole(ctx context.Context, actorID, id int, role string) ([]string, error)
	DeleteUser(ctx context.Context, actorID, id int) error
	Emails(ctx context.Context, page int, search string) (*model.EmailPage, error)
	Statistics(ctx context.Context) (*model.AdminStatistics, error)
}

type AdminHandler struct {
	adminService AdminService
	logger       *zap.Logger
}

func NewAdminHandler(adminService AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{adminService: adminService, logger: orNop(logger)}
}

// Overview handles GET /api/admin
func (h *AdminHandler) Overview(c *gin.Context) {
	o, err := h.adminService.Overview(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// Users handles GET /api/admin/users?page=
func (h *AdminHandler) Users(c *gin.Context) {
	page, err := h.adminService.Users(c.Request.Context(), pageParam(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// UserDetail handles GET /api/admin/users/:id
func (h *AdminHandler) UserDetail(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	d, err := h.adminService.UserDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ToggleRole handles POST /api/admin/users/:id/roles
func (h *AdminHandler) ToggleRole(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role is required"})
		return
	}

	roles, err := h.adminService.ToggleRole(c.Request.Context(), currentUserID(c), id, req.Role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

// DeleteUser handles DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.adminService.DeleteUser(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Emails handles GET /api/admin/emails?page=&q=
func (h *AdminHandler) Emails(c *gin.Context) {
	page, err := h.adminService.Emails(c.Request.Context(), pageParam(c), c.Query("q"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pageResponse(page))
}

// Statistics handles GET /api/admin/statistics
func (h *AdminHandler) Statistics(c *gin.Context) {
	s, err := h.adminService.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
