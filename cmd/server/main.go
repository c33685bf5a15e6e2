// Package main is the entry point for the foliotrack portfolio
// valuation service. It wires storage, the valuation service, the
// scheduler, and the HTTP API, then runs until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foliotrack/foliotrack/internal/config"
	"github.com/foliotrack/foliotrack/internal/database"
	"github.com/foliotrack/foliotrack/internal/modules/accounts"
	"github.com/foliotrack/foliotrack/internal/modules/cashflows"
	"github.com/foliotrack/foliotrack/internal/modules/marketdata"
	"github.com/foliotrack/foliotrack/internal/modules/snapshots"
	snapshotjobs "github.com/foliotrack/foliotrack/internal/modules/snapshots/jobs"
	"github.com/foliotrack/foliotrack/internal/modules/trades"
	"github.com/foliotrack/foliotrack/internal/reliability"
	"github.com/foliotrack/foliotrack/internal/scheduler"
	"github.com/foliotrack/foliotrack/internal/server"
	"github.com/foliotrack/foliotrack/internal/valuation"
	"github.com/foliotrack/foliotrack/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Msg("Starting foliotrack")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create data directory")
	}

	db, err := database.New(database.Config{
		Name:    "folio",
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileLedger,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// Repositories
	tradesRepo := trades.NewRepository(db.Conn(), log)
	flowsRepo := cashflows.NewRepository(db.Conn(), log)
	accountsRepo := accounts.NewRepository(db.Conn(), log)
	snapshotsRepo := snapshots.NewRepository(db.Conn(), log)
	symPricesRepo := marketdata.NewRepository(db.Conn(), log)

	priceCache := marketdata.NewCache(cfg.PriceCachePath(), log)

	policy := valuation.Policy{IncludeUnclassifiedInOverall: cfg.IncludeUnclassifiedInOverall}
	snapshotSvc := snapshots.NewService(
		tradesRepo, flowsRepo, accountsRepo, snapshotsRepo, symPricesRepo,
		priceCache, policy, log,
	)

	// Scheduler and jobs
	sched := scheduler.New(log)

	snapshotJob := snapshotjobs.NewSnapshotJob(snapshotSvc, log)
	if err := sched.AddJob(cfg.SnapshotSchedule, snapshotJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule snapshot job")
	}

	priceFlushJob := marketdata.NewFlushJob(priceCache, log)
	if err := sched.AddJob(cfg.PriceFlushSchedule, priceFlushJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule price flush job")
	}

	var backupJob scheduler.Job
	if cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(context.Background(), cfg.Backup, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup client")
		}
		backupSvc := reliability.NewBackupService(
			db, s3Client, cfg.DataDir, cfg.Backup.Prefix, cfg.Backup.RetentionDays, log,
		)
		job := reliability.NewBackupJob(backupSvc, log)
		if err := sched.AddJob(cfg.BackupSchedule, job); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule backup job")
		}
		backupJob = job
	} else {
		log.Info().Msg("Offsite backup disabled")
	}

	// HTTP server
	srv := server.New(server.Config{
		Log:           log,
		Cfg:           cfg,
		DB:            db,
		Scheduler:     sched,
		TradesRepo:    tradesRepo,
		FlowsRepo:     flowsRepo,
		AccountsRepo:  accountsRepo,
		SnapshotsRepo: snapshotsRepo,
		SnapshotSvc:   snapshotSvc,
		PriceCache:    priceCache,
	})
	srv.SetJobs(snapshotJob, backupJob, priceFlushJob)
	snapshotJob.SetPublisher(srv.Stream())

	sched.Start()

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	sched.Stop()

	if err := priceCache.Flush(); err != nil {
		log.Error().Err(err).Msg("Final price cache flush failed")
	}

	log.Info().Msg("Shutdown complete")
}
