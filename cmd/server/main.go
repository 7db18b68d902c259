package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mqcontracts "mailnight/contracts/mq"
	"mailnight/internal/analysis"
	"mailnight/internal/config"
	"mailnight/internal/handler"
	"mailnight/internal/httpserver"
	"mailnight/internal/notify"
	"mailnight/internal/repository"
	"mailnight/internal/service/admin"
	"mailnight/internal/service/auth"
	"mailnight/internal/service/dashboard"
	"mailnight/internal/service/mail"
	"mailnight/internal/service/profile"
	"mailnight/internal/storage"
	"mailnight/pkg/db"
	"mailnight/pkg/logger"
	"mailnight/pkg/mq"
	redisclient "mailnight/pkg/redis"
	"mailnight/pkg/util"
)

func main() {
	// Load config
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	logger := logger.NewLogger(cfg.Server.Mode == gin.DebugMode)
	defer logger.Sync()

	gin.SetMode(cfg.Server.Mode)

	if cfg.JWT.Secret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init DB
	dbConn, err := db.NewConnection(ctx, cfg.DB, logger)
	if err != nil {
		logger.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// Init Repositories
	userRepo := repository.NewUserRepository(dbConn)
	emailRepo := repository.NewEmailRepository(dbConn)
	categoryRepo := repository.NewCategoryRepository(dbConn)
	attachmentRepo := repository.NewAttachmentRepository(dbConn)
	statsRepo := repository.NewStatsRepository(dbConn)
	notiLogRepo := repository.NewNotificationLogRepository(dbConn)

	files := storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.PublicPrefix)

	// AI collaborator; without a key every call takes the fallback path
	var gen analysis.Generator
	if cfg.AI.IsConfigured() {
		gen = analysis.NewOpenAIGenerator(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
	} else {
		logger.Warn("AI API key not configured, using fallback analysis")
	}
	analyzer := analysis.NewAnalyzer(cfg.AI, gen, logger)

	// Realtime push
	var notifier mail.Notifier = notify.Nop{}
	var wsHandler http.Handler
	var broker httpserver.Connected
	if cfg.Notify.Enabled {
		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			logger.Fatal("Failed to init MQ publisher", zap.Error(err))
		}
		defer publisher.Close()
		notifier = notify.NewMQNotifier(publisher)
		broker = publisher

		rdb := redisclient.NewRedisClient(cfg.Redis)
		defer rdb.Close()

		hub := notify.NewHub(cfg.Notify.MaxConnsPerUser, logger)
		push := notify.NewPushHandler(hub, util.NewDeduper(rdb, cfg.Notify.DedupTTL, logger), logger)
		retries := util.NewRetryCounter(rdb, cfg.Worker.RetryTTL)

		startPushConsumer(ctx, cfg, logger, mqcontracts.RoutingKeyEmailSent, push.HandleEmailSent, retries)
		startPushConsumer(ctx, cfg, logger, mqcontracts.RoutingKeyMailboxUnread, push.HandleUnreadCount, retries)

		wsHandler = notify.NewWSHandler(hub, cfg.JWT.Secret, logger)
	}

	// Init Services
	authService := auth.NewService(userRepo, cfg.JWT.Secret, cfg.TokenTTL(), logger)
	mailService := mail.NewService(mail.Deps{
		Emails:             emailRepo,
		Users:              userRepo,
		Categories:         categoryRepo,
		Attachments:        attachmentRepo,
		Files:              files,
		Analyzer:           analyzer,
		Notifier:           notifier,
		MaxAttachmentBytes: cfg.Storage.MaxAttachmentBytes,
		Logger:             logger,
	})
	dashboardService := dashboard.NewService(statsRepo, emailRepo)
	profileService := profile.NewService(userRepo, statsRepo, emailRepo, files, cfg.Storage.MaxImageBytes, logger)
	adminService := admin.NewService(userRepo, statsRepo, emailRepo, attachmentRepo, files, logger)

	// Router
	router := httpserver.NewRouter(httpserver.Handlers{
		Auth:      handler.NewAuthHandler(authService, logger),
		Mail:      handler.NewMailHandler(mailService, logger),
		Dashboard: handler.NewDashboardHandler(dashboardService, logger),
		Profile:   handler.NewProfileHandler(profileService, logger),
		Admin:     handler.NewAdminHandler(adminService, logger),
		Notices:   handler.NewNotificationHandler(notiLogRepo, logger),
		WS:        wsHandler,
	}, httpserver.Options{
		JWTSecret:    cfg.JWT.Secret,
		UploadDir:    files.Root(),
		UploadPrefix: files.Prefix(),
		Roles:        userRepo,
		DB:           dbConn,
		Broker:       broker,
		Logger:       logger,
	})

	srv := router.Server(cfg.Server.Port)
	go func() {
		logger.Info("Starting mailnight server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server start failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}

// startPushConsumer binds a per-process queue to routingKey so every server
// instance sees every event and can reach its own websocket clients.
func startPushConsumer(ctx context.Context, cfg *config.Config, logger *zap.Logger, routingKey string, h mq.MessageHandler, retries mq.RetryCounter) {
	consumer, err := mq.NewConsumer(cfg.MQ.URL, "", routingKey, logger)
	if err != nil {
		logger.Fatal("failed to init push consumer", zap.String("routing_key", routingKey), zap.Error(err))
	}
	if err := consumer.EnableDeadLetter(retries, cfg.Worker.MaxRetries); err != nil {
		logger.Fatal("failed to enable dead letter", zap.String("routing_key", routingKey), zap.Error(err))
	}
	consumer.SetHandler(h)

	go func() {
		defer consumer.Close()
		if err := consumer.StartConsuming(ctx); err != nil {
			logger.Error("push consumer stopped", zap.String("routing_key", routingKey), zap.Error(err))
		}
	}()
}
