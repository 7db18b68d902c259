package httpserver

import (
	"context"
	"net/http"
	"path"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mailnight/internal/handler"
	"mailnight/internal/storage"
	"mailnight/pkg/rbac"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Connected reports whether a long-lived connection is still open.
type Connected interface {
	IsConnected() bool
}

type Handlers struct {
	Auth      *handler.AuthHandler
	Mail      *handler.MailHandler
	Dashboard *handler.DashboardHandler
	Profile   *handler.ProfileHandler
	Admin     *handler.AdminHandler
	Notices   *handler.NotificationHandler
	// WS serves /ws; nil disables realtime push.
	WS http.Handler
}

type Options struct {
	JWTSecret string
	// The profiles directory of UploadDir is served read-only under UploadPrefix.
	UploadDir    string
	UploadPrefix string
	Roles        RoleLookup
	DB           Pinger
	// Broker is checked by /readyz when set.
	Broker Connected
	Logger *zap.Logger
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(h Handlers, opts Options) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), MetricsMiddleware())
	if opts.Logger != nil {
		r.Use(AccessLogMiddleware(opts.Logger))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if opts.DB != nil {
			if err := opts.DB.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
				return
			}
		}

		if opts.Broker != nil && !opts.Broker.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Attachments stay behind /api/attachments/:id; only avatars are public.
	if opts.UploadDir != "" && opts.UploadPrefix != "" {
		r.Static(path.Join(opts.UploadPrefix, storage.DirProfiles), filepath.Join(opts.UploadDir, storage.DirProfiles))
	}
	if h.WS != nil {
		r.GET("/ws", gin.WrapH(h.WS))
	}

	api := r.Group("/api")

	// Public
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)

	// Protected
	auth := api.Group("/")
	auth.Use(AuthMiddleware(opts.JWTSecret))
	{
		auth.GET("/dashboard", h.Dashboard.Overview)

		auth.POST("/mail", h.Mail.Send)
		auth.GET("/mail/inbox", h.Mail.Inbox)
		auth.GET("/mail/sent", h.Mail.Sent)
		auth.GET("/mail/starred", h.Mail.Starred)
		auth.GET("/mail/drafts", h.Mail.Drafts)
		auth.POST("/mail/drafts", h.Mail.SaveDraft)
		auth.GET("/mail/category/:id", h.Mail.Category)
		auth.GET("/mail/search", h.Mail.Search)
		auth.GET("/mail/counts", h.Mail.Counts)
		auth.GET("/mail/:id", h.Mail.Detail)
		auth.DELETE("/mail/:id", h.Mail.Delete)
		auth.POST("/mail/:id/star", h.Mail.ToggleStar)
		auth.POST("/mail/:id/read", h.Mail.MarkAsRead)
		auth.POST("/mail/:id/reply", h.Mail.GenerateReply)
		auth.POST("/mail/:id/analyze", h.Mail.RegenerateAnalysis)
		auth.GET("/attachments/:id", h.Mail.Attachment)

		auth.GET("/profile", h.Profile.Get)
		auth.PUT("/profile", h.Profile.Update)
		auth.POST("/profile/password", h.Profile.ChangePassword)

		auth.GET("/notifications", h.Notices.List)
	}

	admin := api.Group("/admin")
	admin.Use(AuthMiddleware(opts.JWTSecret), RequirePermission(opts.Roles, rbac.PermissionViewAdmin))
	{
		admin.GET("", h.Admin.Overview)
		admin.GET("/users", h.Admin.Users)
		admin.GET("/users/:id", h.Admin.UserDetail)
		admin.GET("/emails", h.Admin.Emails)
		admin.GET("/statistics", h.Admin.Statistics)
	}
	manage := admin.Group("/")
	manage.Use(RequirePermission(opts.Roles, rbac.PermissionManageUsers))
	{
		manage.POST("/users/:id/roles", h.Admin.ToggleRole)
		manage.DELETE("/users/:id", h.Admin.DeleteUser)
	}

	return &Router{Engine: r}
}

// Server wraps the engine in an http.Server so callers can shut it down.
func (r *Router) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
