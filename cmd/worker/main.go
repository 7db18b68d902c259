package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	mqcontracts "mailnight/contracts/mq"
	"mailnight/internal/config"
	"mailnight/internal/mqhandler"
	"mailnight/internal/repository"
	"mailnight/pkg/db"
	"mailnight/pkg/logger"
	"mailnight/pkg/mq"
	redisclient "mailnight/pkg/redis"
	"mailnight/pkg/util"
)

const notificationLogQueue = "email.sent.log.q"

func main() {
	// Load config
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	logger := logger.NewLogger(cfg.Server.Mode == "debug")
	defer logger.Sync()

	logger.Info("Starting worker service...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init Redis
	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	// Init DB
	dbConn, err := db.NewConnection(ctx, cfg.DB, logger)
	if err != nil {
		logger.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	logger.Info("Database connection established")

	// Init Repositories
	notiLogRepo := repository.NewNotificationLogRepository(dbConn)

	// Init Handlers
	notiLogHandler := mqhandler.NewEmailSentLogHandler(notiLogRepo, logger)

	// Consumer for notification-log
	logger.Info("Initializing notification-log consumer", zap.String("queue", notificationLogQueue))
	consumer, err := mq.NewConsumer(cfg.MQ.URL, notificationLogQueue, mqcontracts.RoutingKeyEmailSent, logger)
	if err != nil {
		logger.Fatal("failed to init notification-log consumer", zap.Error(err))
	}
	defer consumer.Close()

	if err := consumer.EnableDeadLetter(util.NewRetryCounter(rdb, cfg.Worker.RetryTTL), cfg.Worker.MaxRetries); err != nil {
		logger.Fatal("failed to enable dead letter", zap.Error(err))
	}
	consumer.SetHandler(notiLogHandler.Handle)

	logger.Info("Starting notification-log consumer")
	if err := consumer.StartConsuming(ctx); err != nil {
		logger.Error("notification-log consumer failed", zap.Error(err))
	}
	logger.Info("Worker stopped")
}
