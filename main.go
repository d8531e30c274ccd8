package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"scholar-sweep/config"
	"scholar-sweep/importers/activityinsight"
	"scholar-sweep/importers/pure"
	"scholar-sweep/models"
	"scholar-sweep/services"
	"scholar-sweep/storage"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	importedCounter prometheus.Counter
	mergedCounter   prometheus.Counter
	groupedCounter  prometheus.Counter
)

func init() {
	importedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "publications_imported_total",
		Help: "Total number of publications created by the import funnel.",
	})
	mergedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_groups_merged_total",
		Help: "Total number of duplicate groups merged into a canonical record.",
	})
	groupedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "publications_swept_total",
		Help: "Total number of publications processed by the dedup sweep.",
	})
	prometheus.MustRegister(importedCounter, mergedCounter, groupedCounter)
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

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to publications database.")

	logging.Info("Running database auto-migration...")
	db.AutoMigrate(
		&models.User{},
		&models.Journal{},
		&models.DuplicateGroup{},
		&models.NonDuplicateGroup{},
		&models.Publication{},
		&models.PublicationImport{},
		&models.ContributorName{},
		&models.Authorship{},
		&models.OpenAccessLocation{},
	)

	// Setup Services
	matcher := services.NewSimilarityMatcher(cfg.SimilarityThreshold)
	grouper := services.NewGroupingService(db, logging, matcher)
	merger := services.NewMergeService(db, logging)
	sweeper := services.NewSweepService(db, logging, grouper, merger, cfg.SweepProgressEvery)

	importService := services.NewImportService(cfg, db, logging, grouper, setupS3Client(cfg, logging))

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupPublicationRoutes(router, db, logging)
	setupGroupRoutes(router, db, grouper, logging)
	setupSweepRoutes(router, sweeper, logging)
	setupImportRoutes(router, cfg, importService, logging)

	// Setup Cron: periodischer Dedup-Sweep
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled dedup sweep...")
		stats, err := sweeper.Sweep(context.Background())
		if err != nil {
			logging.Error("Scheduled sweep failed", zap.Error(err))
			return
		}
		groupedCounter.Add(float64(stats.PublicationsProcessed))
		mergedCounter.Add(float64(stats.GroupsMerged))
		logging.Info("Scheduled sweep completed",
			zap.Int("publications_processed", stats.PublicationsProcessed),
			zap.Int("groups_merged", stats.GroupsMerged))
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// setupS3Client baut den S3-Client für Export-Downloads; optional, weil
// lokale Export-Pfade keinen brauchen.
func setupS3Client(cfg *config.Config, logging *zap.Logger) *s3.Client {
	if cfg.S3Disabled || cfg.S3URL == "" {
		return nil
	}
	client, err := storage.NewS3Client(cfg)
	if err != nil {
		logging.Warn("S3 client creation failed, s3:// export paths unavailable", zap.Error(err))
		return nil
	}
	return client
}

func setupPublicationRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/publications")

	rg.GET("/", func(c *gin.Context) {
		var pubs []models.Publication
		query := db.Model(&models.Publication{})
		if c.Query("visible") != "" {
			visible := c.Query("visible") == "true"
			query = query.Where("visible = ?", visible)
		}
		if doi := c.Query("doi"); doi != "" {
			query = query.Where("doi = ?", doi)
		}
		if err := query.Order("id").Find(&pubs).Error; err != nil {
			log.Error("Database query for publications failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, pubs)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id := c.Param("id")
		var pub models.Publication
		if err := db.Preload("Imports").Preload("ContributorNames").
			Preload("Authorships").Preload("OpenAccessLocations").
			First(&pub, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "publication not found"})
				return
			}
			log.Error("DB error fetching publication", zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, pub)
	})

	// PUT markiert den Datensatz als von Menschen bearbeitet: Importe dürfen
	// ihn danach nicht mehr überschreiben.
	rg.PUT("/:id", func(c *gin.Context) {
		id := c.Param("id")
		var pub models.Publication
		if err := db.First(&pub, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "publication not found"})
				return
			}
			log.Error("DB error checking for publication on PUT", zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		var updateData map[string]interface{}
		if err := c.ShouldBindJSON(&updateData); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		updateData["updated_by_user_at"] = time.Now()

		if err := db.Model(&pub).Updates(updateData).Error; err != nil {
			log.Error("DB error updating publication", zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update publication"})
			return
		}
		c.JSON(http.StatusOK, pub)
	})
}

func setupGroupRoutes(router *gin.Engine, db *gorm.DB, grouper *services.GroupingService, log *zap.Logger) {
	rg := router.Group("/duplicate-groups")

	rg.GET("/", func(c *gin.Context) {
		var groups []models.DuplicateGroup
		if err := db.Preload("Publications").Find(&groups).Error; err != nil {
			log.Error("Database query for duplicate groups failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, groups)
	})

	// Markiert einen False-Positive: die genannten Publikationen sind NICHT
	// dieselbe Arbeit und werden nie wieder automatisch zusammengeführt.
	router.POST("/non-duplicate-groups", func(c *gin.Context) {
		var req struct {
			PublicationIDs []uint `json:"publication_ids" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "publication_ids required"})
			return
		}
		group, err := grouper.DeclareNonDuplicates(req.PublicationIDs)
		if err != nil {
			log.Error("Failed to declare non-duplicates", zap.Error(err))
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, group)
	})
}

func setupSweepRoutes(router *gin.Engine, sweeper *services.SweepService, log *zap.Logger) {
	rg := router.Group("/sweep")

	rg.POST("/run", func(c *gin.Context) {
		go func() {
			stats, err := sweeper.Sweep(context.Background())
			if err != nil {
				log.Error("Async sweep failed", zap.Error(err))
				return
			}
			groupedCounter.Add(float64(stats.PublicationsProcessed))
			mergedCounter.Add(float64(stats.GroupsMerged))
			log.Info("Async sweep completed",
				zap.Int("publications_processed", stats.PublicationsProcessed),
				zap.Int("groups_merged", stats.GroupsMerged))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Dedup sweep triggered."})
	})
}

func setupImportRoutes(router *gin.Engine, cfg *config.Config, importService *services.ImportService, log *zap.Logger) {
	rg := router.Group("/imports")

	rg.POST("/run", func(c *gin.Context) {
		sources := configuredSources(cfg, log)
		if len(sources) == 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no import sources configured"})
			return
		}
		go func() {
			allStats := importService.RunAll(context.Background(), sources)
			for _, stats := range allStats {
				importedCounter.Add(float64(stats.Created))
			}
			log.Info("Async import completed", zap.Int("sources", len(allStats)))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Import triggered.", "sources": len(sources)})
	})

}

// configuredSources baut die Importer-Liste aus der Konfiguration.
func configuredSources(cfg *config.Config, log *zap.Logger) []services.ImporterSource {
	var sources []services.ImporterSource
	if cfg.ActivityInsightExport != "" {
		sources = append(sources, services.ImporterSource{
			Importer: activityinsight.NewImporter(log),
			Path:     cfg.ActivityInsightExport,
		})
	}
	if cfg.PureExport != "" {
		sources = append(sources, services.ImporterSource{
			Importer: pure.NewImporter(log),
			Path:     cfg.PureExport,
		})
	}
	return sources
}
