package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/coltonheil/email-automation/config"
	"github.com/coltonheil/email-automation/internal/db"
	"github.com/coltonheil/email-automation/internal/fetcher"
	"github.com/coltonheil/email-automation/internal/filter"
	"github.com/coltonheil/email-automation/internal/generation"
	"github.com/coltonheil/email-automation/internal/ratelimit"
	"github.com/coltonheil/email-automation/internal/repository"
	"github.com/coltonheil/email-automation/internal/scorer"
	"github.com/coltonheil/email-automation/internal/service"
	pkgdb "github.com/coltonheil/email-automation/pkg/db"
	"github.com/coltonheil/email-automation/pkg/logger"
	"github.com/coltonheil/email-automation/pkg/mq"
)

func main() {
	mode := flag.String("mode", fetcher.ModeUnread, "fetch mode: unread, recent or all")
	flag.Parse()

	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl-C 中断时尽量收尾
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info("Interrupt received, stopping pipeline...")
		cancel()
	}()

	pool, err := pkgdb.NewPool(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatal("Failed to ensure schema", zap.Error(err))
	}

	emailRepo := repository.NewEmailRepository(pool)
	profileRepo := repository.NewSenderProfileRepository(pool)
	draftRepo := repository.NewDraftRepository(pool)
	usageRepo := repository.NewUsageRepository(pool)
	syncRepo := repository.NewSyncLogRepository(pool)

	sc := scorer.New(scorer.Config{
		VIPSenders: cfg.Scoring.VIPSenders,
		VIPDomains: cfg.Scoring.VIPDomains,
	})

	maintenance := service.NewMaintenanceService(emailRepo, profileRepo, sc, log)

	// 子命令：离线维护操作，不跑完整管道
	switch flag.Arg(0) {
	case "recalc":
		changed, err := maintenance.RecalculatePriorities(ctx, 10000)
		if err != nil {
			log.Fatal("Recalculation failed", zap.Error(err))
		}
		fmt.Printf("recalculated priorities, %d changed\n", changed)
		return
	case "rebuild-profiles":
		rebuilt, err := maintenance.RebuildSenderProfiles(ctx, cfg.Pipeline.SenderHistoryLimit)
		if err != nil {
			log.Fatal("Profile rebuild failed", zap.Error(err))
		}
		fmt.Printf("rebuilt %d sender profiles\n", rebuilt)
		return
	case "cleanup":
		removed, err := maintenance.CleanupOldEmails(ctx, cfg.Pipeline.RetentionDays)
		if err != nil {
			log.Fatal("Cleanup failed", zap.Error(err))
		}
		fmt.Printf("removed %d old read emails\n", removed)
		return
	case "":
		// 默认：完整管道
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q (want recalc, rebuild-profiles or cleanup)\n", flag.Arg(0))
		os.Exit(2)
	}

	rules, err := filter.LoadRules(cfg.FilterRulesPath)
	if err != nil {
		log.Fatal("Failed to load filter rules", zap.Error(err))
	}
	f := filter.New(rules)
	go func() {
		if err := f.Watch(ctx, cfg.FilterRulesPath, log); err != nil {
			log.Warn("Filter rules watcher stopped", zap.Error(err))
		}
	}()

	limiter := ratelimit.New(ratelimit.Config{
		MaxPerRun:       cfg.Pipeline.MaxDraftsPerRun,
		MinDelay:        cfg.Pipeline.MinDelay,
		DuplicateWindow: cfg.Pipeline.DuplicateWindow,
		MaxHourlyCalls:  cfg.Pipeline.MaxHourlyCalls,
		MaxDailyCalls:   cfg.Pipeline.MaxDailyCalls,
	}, usageRepo)

	generator := generation.NewClient(cfg.Generation, log)

	// MQ 挂了管道照样能跑，只是 worker 收不到 profile 更新
	var publisher *mq.Publisher
	publisher, err = mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Warn("MQ unavailable, running without event publishing", zap.Error(err))
		publisher = nil
	} else {
		defer publisher.Close()
	}

	autodraft := service.NewAutoDraftService(
		emailRepo, profileRepo, draftRepo, usageRepo,
		f, limiter, generator, log,
	)

	pipeline := service.NewPipelineService(
		fetcher.NewHTTPFetcher(cfg.Provider),
		sc, emailRepo, syncRepo, autodraft, publisher,
		cfg.Accounts, cfg.Pipeline, log,
	)

	summary, err := pipeline.Run(ctx, *mode)
	if err != nil {
		log.Fatal("Pipeline run failed", zap.Error(err))
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
}
