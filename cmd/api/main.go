package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docstore/internal/audit"
	"docstore/internal/config"
	"docstore/internal/database"
	"docstore/internal/database/migration"
	"docstore/internal/entities"
	handlers "docstore/internal/http/handler"
	"docstore/internal/http/middleware"
	"docstore/internal/jsonstore"
	"docstore/internal/logging"
	"docstore/internal/otel"
	"docstore/internal/repository"
	badgerrepo "docstore/internal/repository/badger"
	"docstore/internal/repository/jsonfile"
	"docstore/internal/repository/postgres"
	"docstore/internal/service"
	"docstore/internal/storage"
	"docstore/internal/sweep"
)

func main() {
	// Configuration comes from environment variables; a .env file is
	// auto-loaded when present.
	cfg, err := config.Load()
	if err != nil {
		logging.New("auto").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogFormat)

	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	// The locked JSON store backs the default metadata backend, the audit
	// trail, and entity resolution.
	store, err := jsonstore.New(cfg.Store, log)
	if err != nil {
		log.Error("failed to open json store", "error", err)
		os.Exit(1)
	}

	var blob storage.Storage
	switch cfg.BlobBackend {
	case "minio":
		blob, err = storage.NewMinIO(cfg.MinIO)
	default:
		blob, err = storage.NewLocal(cfg.StorageRoot)
	}
	if err != nil {
		log.Error("failed to initialize blob storage", "backend", cfg.BlobBackend, "error", err)
		os.Exit(1)
	}

	var (
		repo        repository.DocumentRepository
		resolver    entities.Resolver = entities.AllowAll{}
		db          *sql.DB
		healthCheck func(ctx context.Context) error
	)
	switch cfg.DocsBackend {
	case "postgres":
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := migration.EnsureMigrated(ctx, db, log); err != nil {
			log.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		repo = postgres.NewDocumentPostgres(db)
		healthCheck = db.PingContext
	case "badger":
		badgerRepo, err := badgerrepo.NewDocumentBadger(cfg.BadgerDir)
		if err != nil {
			log.Error("failed to open badger store", "error", err)
			os.Exit(1)
		}
		defer badgerRepo.Close()
		repo = badgerRepo
		healthCheck = func(context.Context) error { return nil }
	default:
		repo = jsonfile.NewDocumentJSONFile(store)
		resolver = entities.NewJSONResolver(store)
		healthCheck = func(context.Context) error {
			_, err := os.Stat(cfg.Store.DataDir)
			return err
		}
	}

	recorder := audit.NewLogger(store, log)
	docSvc := service.NewDocumentService(blob, repo, resolver, recorder, log, cfg)

	sweeper := sweep.New(repo, blob, recorder, log, cfg.Sweep)
	stopSweeper, err := sweeper.Schedule(cfg.Sweep.Schedule)
	if err != nil {
		log.Error("failed to schedule cleanup sweeps", "error", err)
		os.Exit(1)
	}
	defer stopSweeper()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		log.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    int(cfg.Upload.MaxSizeBytes) + 1<<20,
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 5 * time.Minute,
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(otelfiber.Middleware())
	app.Use(prom.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, docSvc, sweeper, healthCheck, middleware.RateLimit(cfg.Upload.RatePerMinute))

	log.Info("starting server",
		"port", cfg.Port,
		"docs_backend", cfg.DocsBackend,
		"blob_backend", cfg.BlobBackend)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
