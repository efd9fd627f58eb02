package storage

import (
	"context"
	"fmt"

	"med-watch/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenPostgres öffnet die Datenbank des Referenz-Backends.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// MedicationRepository kapselt den Zugriff auf die Tabelle medications.
type MedicationRepository struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewMedicationRepository erstellt ein neues Repository.
func NewMedicationRepository(db *gorm.DB, logger *zap.Logger) *MedicationRepository {
	return &MedicationRepository{DB: db, Logger: logger}
}

// Migrate legt die Tabelle an bzw. passt sie an.
func (r *MedicationRepository) Migrate() error {
	return r.DB.AutoMigrate(&models.Medication{})
}

// List gibt alle Medikamente zurück, neueste zuerst.
func (r *MedicationRepository) List(ctx context.Context) ([]models.MedicationRecord, error) {
	var rows []models.Medication
	if err := r.DB.WithContext(ctx).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	out := make([]models.MedicationRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToRecord())
	}
	return out, nil
}

// Create speichert einen Datensatz und vergibt eine UUID, falls keine ID gesetzt ist.
func (r *MedicationRepository) Create(ctx context.Context, rec models.MedicationRecord) (models.MedicationRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := models.MedicationFromRecord(rec)
	if err := r.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return models.MedicationRecord{}, fmt.Errorf("create medication: %w", err)
	}
	return row.ToRecord(), nil
}

// SeedDefaults befüllt eine leere Tabelle mit Beispieldaten.
func (r *MedicationRepository) SeedDefaults(ctx context.Context) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Medication{}).Count(&count).Error; err != nil {
		r.Logger.Warn("Failed to count medications, skipping seed", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}
	if err := r.DB.WithContext(ctx).Create(DefaultMedications()).Error; err != nil {
		r.Logger.Warn("Failed to seed default medications", zap.Error(err))
	} else {
		r.Logger.Info("Default medications seeded.")
	}
}

// DefaultMedications liefert die Startdaten des Referenz-Backends.
func DefaultMedications() []models.Medication {
	flags := func(orgs ...string) []models.OrganizationFlag {
		out := make([]models.OrganizationFlag, 0, len(orgs))
		for _, o := range orgs {
			out = append(out, models.OrganizationFlag{Organization: o})
		}
		return out
	}
	return []models.Medication{
		{ID: uuid.NewString(), Name: "Rofecoxib", Category: "Pain", Organizations: flags("FDA", "WHO"), BadEffectScore: models.Float(92)},
		{ID: uuid.NewString(), Name: "Sibutramine", Category: "Weight Loss", Organizations: flags("FDA", "ICMR"), BadEffectScore: models.Float(85)},
		{ID: uuid.NewString(), Name: "Nimesulide", Category: "Pain", Organizations: flags("ICMR"), BadEffectScore: models.Float(78)},
		{ID: uuid.NewString(), Name: "Cisapride", Category: "Gastrointestinal", Organizations: flags("FDA", "WHO"), BadEffectScore: models.Float(81)},
	}
}
