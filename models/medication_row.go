package models

import (
	"time"
)

// Medication ist die Tabellenrepräsentation eines Medikaments im Referenz-Backend.
type Medication struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	Name           string             `json:"name" gorm:"not null"`
	Category       string             `json:"category" gorm:"index"`
	Organizations  []OrganizationFlag `json:"organizations" gorm:"type:jsonb;serializer:json"`
	BadEffectScore *float64           `json:"badEffectScore,omitempty"`
	Metrics        map[string]float64 `json:"metrics,omitempty" gorm:"type:jsonb;serializer:json"`
}

// TableName gibt explizit den Tabellennamen an.
func (Medication) TableName() string {
	return "medications"
}

// ToRecord konvertiert die Tabellenzeile in das Austauschformat der API.
func (m Medication) ToRecord() MedicationRecord {
	orgs := m.Organizations
	if orgs == nil {
		orgs = []OrganizationFlag{}
	}
	return MedicationRecord{
		ID:             m.ID,
		Name:           m.Name,
		Category:       m.Category,
		Organizations:  orgs,
		BadEffectScore: m.BadEffectScore,
		Metrics:        m.Metrics,
	}
}

// MedicationFromRecord erstellt eine Tabellenzeile aus einem Datensatz.
func MedicationFromRecord(r MedicationRecord) Medication {
	return Medication{
		ID:             r.ID,
		Name:           r.Name,
		Category:       r.Category,
		Organizations:  r.Organizations,
		BadEffectScore: r.BadEffectScore,
		Metrics:        r.Metrics,
	}
}
