package main

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkravets/txn-webhooks/internal/app"
	"github.com/mkravets/txn-webhooks/internal/config"
	"github.com/mkravets/txn-webhooks/internal/di"
	"github.com/mkravets/txn-webhooks/internal/domain/repositories"
	"github.com/mkravets/txn-webhooks/internal/errors"
	"github.com/mkravets/txn-webhooks/internal/infrastructure/api/routers"
	"github.com/mkravets/txn-webhooks/internal/infrastructure/database"
	"github.com/mkravets/txn-webhooks/internal/infrastructure/database/boltstore"
	"github.com/mkravets/txn-webhooks/internal/infrastructure/database/db_client"
	"github.com/mkravets/txn-webhooks/internal/infrastructure/database/memstore"
	pgrepo "github.com/mkravets/txn-webhooks/internal/infrastructure/database/repositories"
	"github.com/mkravets/txn-webhooks/internal/infrastructure/queue"
	"github.com/mkravets/txn-webhooks/pkg/log"
)

const (
	appName = "txn-webhooks"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	logOpts := []log.LoggerOption{log.WithConsoleLogger()}
	if cfg.Logging.File != "" {
		logOpts = append(logOpts, log.WithFileLogger(cfg.Logging.File))
	}
	log.Init(appName, logOpts...)
	logger := log.GetLogger()

	switch cfg.Store.Backend {
	case "bolt", "memory":
	default:
		if err := database.RunMigrations(cfg.PostgreSQL.DSN(), cfg.PostgreSQL.MigrationsPath); err != nil {
			logger.Fatal().Err(err).Msg(errors.ErrorFailedToRunMigrations)
		}
	}

	repo, closeStore, err := buildStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg(errors.ErrorFailedToConnectToTheDatabase)
	}
	defer closeStore()

	workers := atoi(&logger, "FINALIZER_WORKERS", cfg.Process.Workers)
	delay := time.Duration(atoi(&logger, "PROCESSING_DELAY_SECONDS", cfg.Process.ProcessingDelaySec)) * time.Second
	queueSize := atoi(&logger, "DISPATCH_QUEUE_SIZE", cfg.Process.QueueSize)
	visibility := time.Duration(atoi(&logger, "DISPATCH_VISIBILITY_SECONDS", cfg.Process.VisibilitySec)) * time.Second
	reconcileEvery := time.Duration(atoi(&logger, "RECONCILE_INTERVAL_MINUTES", cfg.Process.ReconcileEveryMin)) * time.Minute
	reconcileAge := time.Duration(atoi(&logger, "RECONCILE_AGE_MINUTES", cfg.Process.ReconcileAgeMin)) * time.Minute
	reconcileBatch := atoi(&logger, "RECONCILE_BATCH", cfg.Process.ReconcileBatch)

	dispatcher := queue.NewMemoryDispatcher(queueSize, visibility)
	defer dispatcher.Close()

	container := di.NewContainer(repo, dispatcher, delay, reconcileAge, reconcileBatch)

	finalizer := app.NewFinalizerProcess(dispatcher, container.FinalizeInteractor, workers)
	go finalizer.Run(ctx)

	reconciler := app.NewReconcilerProcess(container.ReconcileInteractor, reconcileEvery)
	go reconciler.Run(ctx)

	router := routers.NewRouter(container)
	service := app.NewService(cfg)
	service.Run(ctx, router)
}

// buildStore constructs the record store selected by STORE_BACKEND.
func buildStore(cfg *config.Config) (repositories.TransactionRepository, func(), error) {
	switch cfg.Store.Backend {
	case "bolt":
		store, err := boltstore.New(cfg.Bolt.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "memory":
		return memstore.New(), func() {}, nil
	default:
		pgClient := db_client.NewPGClient(cfg.PostgreSQL)
		db, err := pgClient.Connect()
		if err != nil {
			return nil, nil, err
		}
		return pgrepo.NewTransactionRepositoryImpl(db), db.Close, nil
	}
}

func atoi(logger *zerolog.Logger, name, value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		logger.Fatal().Err(err).Str("variable", name).Msg("Invalid configuration value")
	}
	return n
}
