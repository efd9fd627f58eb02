package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"med-watch/config"
	"med-watch/models"
	"med-watch/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// medicationStore ist der vom HTTP-Layer benötigte Teil des Repositories.
type medicationStore interface {
	List(ctx context.Context) ([]models.MedicationRecord, error)
	Create(ctx context.Context, rec models.MedicationRecord) (models.MedicationRecord, error)
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.LoadAPI()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := storage.OpenPostgres(cfg.DSN())
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to medications database.")

	repo := storage.NewMedicationRepository(db, logging)
	logging.Info("Running database auto-migration...")
	if err := repo.Migrate(); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}
	if cfg.SeedDefaults {
		repo.SeedDefaults(context.Background())
	}

	router := gin.Default()
	setupMedicationRoutes(router, repo, logging)

	logging.Info("Starting medication API", zap.String("port", cfg.HTTPPort))
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

func setupMedicationRoutes(router *gin.Engine, store medicationStore, log *zap.Logger) {
	rg := router.Group("/api/medications")

	rg.GET("", func(c *gin.Context) {
		meds, err := store.List(c.Request.Context())
		if err != nil {
			log.Error("Database query for medications failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, meds)
	})

	rg.POST("", func(c *gin.Context) {
		var rec models.MedicationRecord
		if err := c.ShouldBindJSON(&rec); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if rec.Name == "" || rec.Category == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and category are required"})
			return
		}
		created, err := store.Create(c.Request.Context(), rec)
		if err != nil {
			log.Error("Failed to create medication", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create medication"})
			return
		}
		log.Info("Medication created", zap.String("id", created.ID), zap.String("name", created.Name))
		c.JSON(http.StatusCreated, created)
	})
}
