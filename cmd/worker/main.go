package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/coltonheil/email-automation/config"
	mqcontracts "github.com/coltonheil/email-automation/contracts/mq"
	"github.com/coltonheil/email-automation/internal/db"
	"github.com/coltonheil/email-automation/internal/generation"
	"github.com/coltonheil/email-automation/internal/mqhandler"
	internalredis "github.com/coltonheil/email-automation/internal/redis"
	"github.com/coltonheil/email-automation/internal/repository"
	"github.com/coltonheil/email-automation/internal/util"
	pkgdb "github.com/coltonheil/email-automation/pkg/db"
	"github.com/coltonheil/email-automation/pkg/logger"
	"github.com/coltonheil/email-automation/pkg/mq"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	ctx := context.Background()

	log.Info("Starting worker...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
	)

	pool, err := pkgdb.NewPool(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatal("Failed to ensure schema", zap.Error(err))
	}

	rdb := internalredis.NewClient(cfg.Redis)
	defer rdb.Close()
	deduper := util.NewDeduper(rdb, 30*time.Minute)

	// Repositories
	emailRepo := repository.NewEmailRepository(pool)
	profileRepo := repository.NewSenderProfileRepository(pool)
	draftRepo := repository.NewDraftRepository(pool)
	usageRepo := repository.NewUsageRepository(pool)
	jobRepo := repository.NewEditJobRepository(pool)

	generator := generation.NewClient(cfg.Generation, log)

	// MQ Handlers
	editHandler := mqhandler.NewDraftEditRequestedHandler(
		jobRepo, draftRepo, usageRepo, generator, deduper, log,
	)
	profileHandler := mqhandler.NewEmailReceivedProfileHandler(
		emailRepo, profileRepo, deduper, log,
	)

	// Consumers
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	editConsumer, err := mq.NewConsumer(cfg.MQ.URL,
		mqcontracts.RouteDraftEditRequested+".q", mqcontracts.RouteDraftEditRequested,
		editHandler.Handle, log)
	if err != nil {
		log.Fatal("Failed to init edit consumer", zap.Error(err))
	}
	defer editConsumer.Close()

	profileConsumer, err := mq.NewConsumer(cfg.MQ.URL,
		mqcontracts.RouteEmailReceived+".profile.q", mqcontracts.RouteEmailReceived,
		profileHandler.Handle, log)
	if err != nil {
		log.Fatal("Failed to init profile consumer", zap.Error(err))
	}
	defer profileConsumer.Close()

	go func() {
		if err := editConsumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal("Edit consumer failed", zap.Error(err))
		}
	}()
	go func() {
		if err := profileConsumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal("Profile consumer failed", zap.Error(err))
		}
	}()

	log.Info("Worker is fully initialized and running")

	<-runCtx.Done()
	log.Info("Shutting down worker gracefully...")
	editConsumer.Close()
	profileConsumer.Close()
	log.Info("Worker stopped")
}
