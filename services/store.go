package services

import (
	"sync"

	"med-watch/models"
)

// RecordStore hält die geladenen Medikamente in Server-Reihenfolge.
// Neue Datensätze werden vorne eingefügt; Löschen oder Ändern gibt es nicht.
type RecordStore struct {
	mu      sync.RWMutex
	records []models.MedicationRecord
	version uint64
}

// NewRecordStore erstellt einen leeren Store.
func NewRecordStore() *RecordStore {
	return &RecordStore{}
}

// Load ersetzt die gesamte Sammlung.
func (s *RecordStore) Load(records []models.MedicationRecord) {
	next := make([]models.MedicationRecord, len(records))
	for i, r := range records {
		next[i] = normalizeRecord(r)
	}

	s.mu.Lock()
	s.records = next
	s.version++
	s.mu.Unlock()
}

// Prepend fügt einen Datensatz an Index 0 ein.
func (s *RecordStore) Prepend(record models.MedicationRecord) {
	record = normalizeRecord(record)

	s.mu.Lock()
	next := make([]models.MedicationRecord, 0, len(s.records)+1)
	next = append(next, record)
	s.records = append(next, s.records...)
	s.version++
	s.mu.Unlock()
}

// Records gibt eine Kopie der Sammlung zurück.
func (s *RecordStore) Records() []models.MedicationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.MedicationRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len gibt die Anzahl der Datensätze zurück.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Version wird bei jeder Änderung erhöht.
func (s *RecordStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot liefert Kopie und Version atomar.
func (s *RecordStore) Snapshot() ([]models.MedicationRecord, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.MedicationRecord, len(s.records))
	copy(out, s.records)
	return out, s.version
}

func normalizeRecord(r models.MedicationRecord) models.MedicationRecord {
	if r.Organizations == nil {
		r.Organizations = []models.OrganizationFlag{}
	}
	return r
}
