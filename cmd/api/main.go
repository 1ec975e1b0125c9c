package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/coltonheil/email-automation/config"
	"github.com/coltonheil/email-automation/internal/api"
	"github.com/coltonheil/email-automation/internal/db"
	"github.com/coltonheil/email-automation/internal/filter"
	"github.com/coltonheil/email-automation/internal/generation"
	"github.com/coltonheil/email-automation/internal/ratelimit"
	"github.com/coltonheil/email-automation/internal/repository"
	"github.com/coltonheil/email-automation/internal/service"
	pkgdb "github.com/coltonheil/email-automation/pkg/db"
	"github.com/coltonheil/email-automation/pkg/logger"
	"github.com/coltonheil/email-automation/pkg/mq"
	"github.com/coltonheil/email-automation/pkg/outbox"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	ctx := context.Background()

	log.Info("Starting review API...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("port", cfg.Server.Port),
	)

	pool, err := pkgdb.NewPool(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatal("Failed to ensure schema", zap.Error(err))
	}

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	emailRepo := repository.NewEmailRepository(pool)
	profileRepo := repository.NewSenderProfileRepository(pool)
	draftRepo := repository.NewDraftRepository(pool)
	usageRepo := repository.NewUsageRepository(pool)
	syncRepo := repository.NewSyncLogRepository(pool)
	jobRepo := repository.NewEditJobRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	// Outbox：API 写入的事件由这里的 dispatcher 投递
	outboxStore := outbox.NewStore(pool)
	dispatcher := outbox.NewDispatcher(outboxStore, publisher, log)
	go dispatcher.Start(ctx)

	replayService := outbox.NewReplayService(outboxStore, publisher)

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret)
	editService := service.NewEditService(pool, draftRepo, jobRepo, log)

	generator := generation.NewClient(cfg.Generation, log)
	limiter := ratelimit.New(ratelimit.Config{
		MaxPerRun:       cfg.Pipeline.MaxDraftsPerRun,
		MinDelay:        cfg.Pipeline.MinDelay,
		DuplicateWindow: cfg.Pipeline.DuplicateWindow,
		MaxHourlyCalls:  cfg.Pipeline.MaxHourlyCalls,
		MaxDailyCalls:   cfg.Pipeline.MaxDailyCalls,
	}, usageRepo)
	autodraft := service.NewAutoDraftService(
		emailRepo, profileRepo, draftRepo, usageRepo,
		filter.New(nil), limiter, generator, log,
	)

	// Handlers
	authHandler := api.NewAuthHandler(authService, log)
	emailHandler := api.NewEmailHandler(emailRepo, profileRepo, log)
	draftHandler := api.NewDraftHandler(draftRepo, autodraft, editService, log)
	usageHandler := api.NewUsageHandler(usageRepo, syncRepo, log)
	adminHandler := api.NewAdminHandler(replayService, log)

	router := api.NewRouter(
		authHandler, emailHandler, draftHandler, usageHandler, adminHandler,
		cfg.JWT.Secret, pool,
	)

	log.Info("Review API listening", zap.String("port", cfg.Server.Port))
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal("HTTP server failed", zap.Error(err))
	}
}
