package providers

import (
	"context"
	"errors"

	"med-watch/models"
)

// ErrFetchFailed ist die einzige Fehlerart beim Laden der Medikamentenliste.
// Netzwerkfehler und Nicht-2xx-Antworten werden nicht unterschieden.
var ErrFetchFailed = errors.New("fetch medications failed")

// Source ist das Interface, das jede Datenquelle für Medikamente implementieren muss.
type Source interface {
	// FetchMedications lädt die vollständige Liste in Server-Reihenfolge.
	FetchMedications(ctx context.Context) ([]models.MedicationRecord, error)

	// Name gibt den eindeutigen Namen der Quelle zurück (z.B. "medapi").
	Name() string
}
