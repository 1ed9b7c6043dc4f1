// Package common provides shared dependency construction for command
// implementations.
package common

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/gomirror/internal/assets"
	"github.com/jonesrussell/gomirror/internal/batch"
	"github.com/jonesrussell/gomirror/internal/config"
	"github.com/jonesrussell/gomirror/internal/fetch"
	"github.com/jonesrussell/gomirror/internal/logger"
	"github.com/jonesrussell/gomirror/internal/metrics"
	"github.com/jonesrussell/gomirror/internal/storage"
)

// Deps holds the fully wired application dependencies.
// Use this instead of context.Value for type-safe dependency injection.
type Deps struct {
	Config    Configuration
	Logger    logger.Interface
	DB        *sqlx.DB
	Documents *storage.DocumentRepository
	Resources *storage.ResourceRepository
	Quota     *storage.QuotaRepository
	Blobs     *storage.BlobStore
	Fetcher   *fetch.ArticleFetcher
	Batches   *batch.Scheduler
	Stats     *metrics.Collector
}

// Configuration re-exports the loaded config for commands.
type Configuration = config.Config

// NewDeps loads configuration and constructs the full dependency graph:
// Config -> Logger -> DB -> Repositories -> Fetcher -> Scheduler.
func NewDeps(cfgFile string) (*Deps, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := storage.NewPostgresConnection(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	documents := storage.NewDocumentRepository(db)
	resources := storage.NewResourceRepository(db)
	quota := storage.NewQuotaRepository(db, cfg.Mirror.DefaultQuotaBytes)
	blobs := storage.NewOsBlobStore(cfg.Mirror.StorageRoot)

	stats := metrics.NewCollector()

	classifier := assets.NewClassifier(cfg.Mirror.AllowedHosts)
	extractor := assets.NewExtractor(classifier)

	client := fetch.NewClient(fetch.ClientConfig{
		UserAgent:      cfg.Mirror.UserAgent,
		AcceptLanguage: cfg.Mirror.AcceptLanguage,
		RetryAttempts:  cfg.Mirror.RetryAttempts,
		RetryDelay:     cfg.Mirror.RetryDelay,
		RequestTimeout: cfg.Mirror.RequestTimeout,
	})

	fetcher := fetch.NewArticleFetcher(
		&contentStore{documents: documents, resources: resources},
		quota,
		blobs,
		client,
		extractor,
		stats,
		log,
		fetch.Config{
			QuotaEstimateBytes:    cfg.Mirror.QuotaEstimateBytes,
			SessionExpiredMarkers: cfg.Mirror.SessionExpiredMarkers,
		},
	)

	batches := batch.NewScheduler(fetcher, documents, stats, log, cfg.Mirror.PacingDelay)

	return &Deps{
		Config:    *cfg,
		Logger:    log,
		DB:        db,
		Documents: documents,
		Resources: resources,
		Quota:     quota,
		Blobs:     blobs,
		Fetcher:   fetcher,
		Batches:   batches,
		Stats:     stats,
	}, nil
}

// Close releases held resources.
func (d *Deps) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
