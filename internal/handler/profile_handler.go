package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailnight/internal/model"
	"mailnight/internal/service/profile"
)

type ProfileService interface {
	Get(ctx context.Context, userID int) (*model.Profile, error)
	Update(ctx context.Context, userID int, in profile.UpdateInput) (*model.User, error)
	ChangePassword(ctx context.Context, userID int, current, next, confirm string) error
}

type ProfileHandler struct {
	profileService ProfileService
	logger         *zap.Logger
}

func NewProfileHandler(profileService ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, logger: orNop(logger)}
}

// Get handles GET /api/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	p, err := h.profileService.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Update handles PUT /api/profile. JSON or multipart; a multipart request
// may carry a new picture under "image".
func (h *ProfileHandler) Update(c *gin.Context) {
	var req struct {
		Name    string `json:"name" form:"name"`
		Surname string `json:"surname" form:"surname"`
		About   string `json:"about" form:"about"`
	}
	in := profile.UpdateInput{}

	if isMultipart(c) {
		if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
			return
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		files, err := openUploads(c.Request.MultipartForm, "image")
		defer closeAll(files)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image"})
			return
		}
		if uploads := uploadsOf(files); len(uploads) > 0 {
			img := uploads[0]
			in.Image = &img
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	in.Name, in.Surname, in.About = req.Name, req.Surname, req.About
	user, err := h.profileService.Update(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ChangePassword handles POST /api/profile/password
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := h.profileService.ChangePassword(c.Request.Context(), currentUserID(c),
		req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
