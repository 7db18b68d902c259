// Package handler adapts HTTP requests onto the application services.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailnight/internal/service/admin"
	"mailnight/internal/service/auth"
	"mailnight/internal/service/mail"
	"mailnight/internal/service/profile"
	"mailnight/pkg/logger"
	"mailnight/pkg/rbac"
)

// ContextUserID is the gin context key carrying the authenticated user.
const ContextUserID = "user_id"

var statusByError = []struct {
	err    error
	status int
}{
	{mail.ErrReceiverRequired, http.StatusBadRequest},
	{mail.ErrSubjectRequired, http.StatusBadRequest},
	{mail.ErrSubjectTooLong, http.StatusBadRequest},
	{mail.ErrReceiverNotFound, http.StatusBadRequest},
	{mail.ErrDraftNotFound, http.StatusNotFound},
	{mail.ErrNotFound, http.StatusNotFound},
	{mail.ErrForbidden, http.StatusForbidden},

	{auth.ErrMissingFields, http.StatusBadRequest},
	{auth.ErrInvalidEmail, http.StatusBadRequest},
	{auth.ErrInvalidUsername, http.StatusBadRequest},
	{auth.ErrWeakPassword, http.StatusBadRequest},
	{auth.ErrPasswordMismatch, http.StatusBadRequest},
	{auth.ErrEmailExists, http.StatusConflict},
	{auth.ErrUsernameExists, http.StatusConflict},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized},

	{profile.ErrNameRequired, http.StatusBadRequest},
	{profile.ErrFieldTooLong, http.StatusBadRequest},
	{profile.ErrInvalidImage, http.StatusBadRequest},
	{profile.ErrImageTooLarge, http.StatusBadRequest},
	{profile.ErrWrongPassword, http.StatusBadRequest},

	{admin.ErrUserNotFound, http.StatusNotFound},
	{admin.ErrInvalidRole, http.StatusBadRequest},
	{admin.ErrSelfDemote, http.StatusBadRequest},
	{admin.ErrSelfDelete, http.StatusBadRequest},
}

// StatusFor maps a service error onto an HTTP status. Unknown errors are 500.
func StatusFor(err error) int {
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	var denied *rbac.PermissionDeniedError
	if errors.As(err, &denied) {
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// respondError writes err as JSON. Internal failures are logged and hidden
// behind a generic message.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithTrace(c.Request.Context(), log).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func currentUserID(c *gin.Context) int {
	return c.GetInt(ContextUserID)
}

// pageParam reads ?page=, defaulting to 1.
func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// idParam parses a positive path id, answering 400 when it is malformed.
func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
