package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MaikoCheng/parelpracht-server/internal/config"
	"github.com/MaikoCheng/parelpracht-server/internal/database"
	"github.com/MaikoCheng/parelpracht-server/internal/jobs"
	"github.com/MaikoCheng/parelpracht-server/internal/logger"
	"github.com/MaikoCheng/parelpracht-server/internal/repository"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run starts the ledger auditor. With "once" it audits a single time and exits,
// otherwise it audits on the configured schedule until interrupted.
func run(args []string) error {
	ctx := context.Background()

	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting ledger auditor",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
	)

	// In staging/production the database credentials come from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	store := repository.NewStore(db)

	if len(args) > 0 && args[0] == "once" {
		jobs.NewInvariantAuditJob(store, log, cfg.Audit.TimeoutDuration()).Run()
		return nil
	}

	if !cfg.Audit.Enabled {
		log.Info("Invariant audit disabled", zap.Bool("enabled", cfg.Audit.Enabled))
		return nil
	}

	scheduler := jobs.NewScheduler(log)
	if err := jobs.RegisterInvariantAuditJob(
		scheduler,
		store,
		log,
		cfg.Audit.Cron,
		cfg.Audit.TimeoutDuration(),
		false,
	); err != nil {
		return fmt.Errorf("failed to register audit job: %w", err)
	}
	scheduler.Start()
	log.Info("Scheduler started with invariant audit job",
		zap.String("cron_expr", cfg.Audit.Cron),
		zap.Duration("timeout", cfg.Audit.TimeoutDuration()),
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	log.Info("Shutdown signal received", zap.String("signal", sig.String()))

	<-scheduler.Stop().Done()
	log.Info("Scheduler stopped")

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
