package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestDefaultMedications(t *testing.T) {
	meds := DefaultMedications()
	is := assert.New(t)
	is.NotEmpty(meds)

	seen := map[string]bool{}
	for _, m := range meds {
		is.NotEmpty(m.ID)
		is.False(seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
		is.NotEmpty(m.Name)
		is.NotEmpty(m.Category)
		is.NotNil(m.BadEffectScore)

		rec := m.ToRecord()
		is.Equal(m.Name, rec.Name)
		is.NotEmpty(rec.Organizations)
	}
}

func TestSeedDefaultsSkipsWhenCountFails(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 port=1 user=med dbname=medwatch sslmode=disable connect_timeout=1",
	}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	core, logs := observer.New(zap.WarnLevel)
	repo := NewMedicationRepository(db, zap.New(core))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	repo.SeedDefaults(ctx)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Failed to count medications, skipping seed", entry.Message)
	assert.Contains(t, entry.ContextMap(), "error")
	assert.Zero(t, logs.FilterMessage("Failed to seed default medications").Len())
}
