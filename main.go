package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"silvereye/config"
	"silvereye/mapping"
	"silvereye/providers/gsheet"
	"silvereye/services"
	"silvereye/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	conversionsCounter     *prometheus.CounterVec
	coverageReportsCounter *prometheus.CounterVec
	failuresCounter        *prometheus.CounterVec
	mappingReloadsCounter  *prometheus.CounterVec
)

func init() {
	conversionsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "silvereye_conversions_total",
			Help: "Total number of simple CSV files converted to OCDS paths.",
		},
		[]string{"notice_type"},
	)
	coverageReportsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "silvereye_coverage_reports_total",
			Help: "Total number of field coverage reports computed.",
		},
		[]string{"notice_type"},
	)
	failuresCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "silvereye_failures_total",
			Help: "Total number of failed requests by error kind.",
		},
		[]string{"kind"},
	)
	mappingReloadsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "silvereye_mapping_reloads_total",
			Help: "Total number of mapping table reloads by result.",
		},
		[]string{"result"},
	)
	prometheus.MustRegister(conversionsCounter, coverageReportsCounter, failuresCounter, mappingReloadsCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}
	ctx := context.Background()

	// S3 ist optional: Quelle der Mapping-Tabelle und Ablage der Artefakte
	var artifacts artifactStore
	var s3Source *storage.S3Source
	if cfg.S3Enabled() {
		s3Client, err := storage.NewS3Client(ctx, cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		s3Source = storage.NewS3Source(s3Client, cfg, logging)
		artifacts = s3Source
		logging.Info("S3 storage enabled", zap.String("bucket", cfg.S3Bucket))
	}

	// Mapping-Tabelle
	var mappings *mapping.Store
	if cfg.MappingsS3Key != "" && s3Source != nil {
		mappings, err = mapping.NewFetcherStore(ctx, s3Source, cfg.MappingsS3Key, logging)
	} else {
		mappings, err = mapping.NewFileStore(ctx, cfg.MappingsPath, logging)
	}
	if err != nil {
		logging.Fatal("Failed to load mapping table", zap.Error(err))
	}

	// Datenbank ist optional
	var coverageRepo *storage.CoverageRepository
	if cfg.DatabaseEnabled() {
		db, err := storage.OpenDB(cfg)
		if err != nil {
			logging.Fatal("Failed to connect to database", zap.Error(err))
		}
		coverageRepo = storage.NewCoverageRepository(db, logging)
		logging.Info("Running database auto-migration...")
		if err := coverageRepo.AutoMigrate(); err != nil {
			logging.Fatal("Auto-migration failed", zap.Error(err))
		}
	}

	// Setup Services
	var unflattener services.Unflattener
	if cfg.UnflattenCommand != "" {
		unflattener = services.NewCommandUnflattener(cfg.UnflattenCommand, logging)
	}
	converter := services.NewConverter(cfg, mappings, unflattener, logging)

	router := setupRouter(routerDeps{
		Config:    cfg,
		Converter: converter,
		Mappings:  mappings,
		Coverage:  coverageRepo,
		Sheets:    gsheet.NewFetcher(logging),
		Artifacts: artifacts,
		Logger:    logging,
	})

	// Setup Cron
	cronScheduler := cron.New()
	_, err = cronScheduler.AddFunc(cfg.MappingsReloadSchedule, func() {
		logging.Info("Running scheduled mapping reload...")
		reloadMappings(context.Background(), mappings, logging)
	})
	if err != nil {
		logging.Fatal("Invalid mapping reload schedule", zap.String("schedule", cfg.MappingsReloadSchedule), zap.Error(err))
	}
	cronScheduler.Start()
	defer cronScheduler.Stop()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// reloadMappings lädt die Mapping-Tabelle neu; bei Fehlern bleibt die alte aktiv.
func reloadMappings(ctx context.Context, mappings *mapping.Store, log *zap.Logger) error {
	if err := mappings.Reload(ctx); err != nil {
		mappingReloadsCounter.WithLabelValues("error").Inc()
		log.Error("Mapping reload failed, keeping previous table", zap.Error(err))
		return err
	}
	mappingReloadsCounter.WithLabelValues("ok").Inc()
	return nil
}
