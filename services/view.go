package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"med-watch/models"
	"med-watch/providers"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Phase ist der Ladezustand der Ansicht: loading -> ready | failed.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

// FetchErrorMessage ist die einzige Fehlermeldung, die der Nutzer sieht.
const FetchErrorMessage = "Error fetching medications. Please try again later."

var (
	// ErrNotReady wird zurückgegeben, wenn die Liste noch nicht geladen oder das Laden fehlgeschlagen ist.
	ErrNotReady = errors.New("medication list is not ready")
	// ErrInvalidMedication wird bei fehlendem Namen, fehlender Kategorie oder
	// nicht endlichem Score zurückgegeben.
	ErrInvalidMedication = errors.New("invalid medication")
)

// NewMedication ist die Eingabe des Hinzufügen-Formulars. Ein nil-Score gilt als fehlend.
type NewMedication struct {
	Name           string   `json:"name" binding:"required"`
	Category       string   `json:"category" binding:"required"`
	Organizations  []string `json:"organizations"`
	BadEffectScore *float64 `json:"badEffectScore"`
}

// FiltersPatch ändert nur die gesetzten Felder der Filter.
type FiltersPatch struct {
	Search       *string `json:"search" form:"search"`
	Category     *string `json:"category" form:"category"`
	Organization *string `json:"organization" form:"organization"`
	SortKey      *string `json:"sortBy" form:"sort"`
}

// ViewState ist eine Momentaufnahme der Ansicht für das Rendering.
type ViewState struct {
	Phase       Phase                     `json:"phase"`
	Error       string                    `json:"error,omitempty"`
	Filters     Filters                   `json:"filters"`
	DarkMode    bool                      `json:"darkMode"`
	FormOpen    bool                      `json:"formOpen"`
	Facets      Facets                    `json:"facets"`
	Overview    []OrganizationCount       `json:"overview"`
	Medications []models.MedicationRecord `json:"medications"`
	Total       int                       `json:"total"`
}

// View hält den UI-Zustand der Medikamenten-Übersicht und steuert Laden,
// Filtern und Hinzufügen. Alle Methoden sind nebenläufig aufrufbar.
type View struct {
	source  providers.Source
	store   *RecordStore
	logger  *zap.Logger
	metrics *Metrics

	mu        sync.Mutex
	phase     Phase
	errMsg    string
	filters   Filters
	darkMode  bool
	formOpen  bool
	cache     facetCache
	mounted   bool
	unmounted bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewView erstellt eine neue Ansicht im Zustand loading.
func NewView(source providers.Source, logger *zap.Logger, metrics *Metrics) *View {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &View{
		source:  source,
		store:   NewRecordStore(),
		logger:  logger.With(zap.String("source", source.Name())),
		metrics: metrics,
		phase:   PhaseLoading,
		filters: DefaultFilters(),
		done:    make(chan struct{}),
	}
}

// Mount startet den einmaligen Abruf der Medikamentenliste im Hintergrund.
// Weitere Aufrufe sind wirkungslos.
func (v *View) Mount(ctx context.Context) {
	v.mu.Lock()
	if v.mounted || v.unmounted {
		v.mu.Unlock()
		return
	}
	v.mounted = true
	ctx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.mu.Unlock()

	go v.fetch(ctx)
}

func (v *View) fetch(ctx context.Context) {
	defer close(v.done)

	v.logger.Info("Lade Medikamentenliste.")
	records, err := v.source.FetchMedications(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.unmounted {
		v.logger.Debug("Ansicht bereits geschlossen, Ergebnis wird verworfen.")
		return
	}
	if err != nil {
		v.logger.Error("Error fetching medications", zap.Error(err))
		v.metrics.FetchTotal.WithLabelValues("error").Inc()
		v.errMsg = FetchErrorMessage
		v.phase = PhaseFailed
		return
	}

	if dups := duplicateIDs(records); len(dups) > 0 {
		v.logger.Warn("Backend lieferte doppelte IDs", zap.Strings("ids", dups))
	}
	v.store.Load(records)
	v.metrics.FetchTotal.WithLabelValues("success").Inc()
	v.metrics.RecordsLoaded.Set(float64(len(records)))
	v.phase = PhaseReady
	v.logger.Info("Medikamentenliste geladen", zap.Int("count", len(records)))
}

// Unmount bricht einen laufenden Abruf ab und wartet auf dessen Ende.
// Danach eintreffende Ergebnisse werden verworfen.
func (v *View) Unmount() {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return
	}
	v.unmounted = true
	cancel, mounted := v.cancel, v.mounted
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if mounted {
		<-v.done
	}
}

// Ready wird geschlossen, sobald der Abruf beendet ist (Erfolg, Fehler oder Abbruch).
func (v *View) Ready() <-chan struct{} {
	return v.done
}

// SetSearch setzt den Suchbegriff.
func (v *View) SetSearch(s string) {
	v.mu.Lock()
	v.filters.Search = s
	v.mu.Unlock()
}

// SetCategory setzt den Kategorie-Filter ("all" für alle).
func (v *View) SetCategory(c string) {
	v.mu.Lock()
	v.filters.Category = orAll(c)
	v.mu.Unlock()
}

// SetOrganization setzt den Organisations-Filter ("all" für alle).
func (v *View) SetOrganization(o string) {
	v.mu.Lock()
	v.filters.Organization = orAll(o)
	v.mu.Unlock()
}

// SetSortKey setzt das Sortierfeld; leer bedeutet badEffectScore.
func (v *View) SetSortKey(k string) {
	v.mu.Lock()
	v.filters.SortKey = orDefaultSort(k)
	v.mu.Unlock()
}

// SetFilters übernimmt alle gesetzten Felder des Patches.
func (v *View) SetFilters(p FiltersPatch) Filters {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filters = p.applyTo(v.filters)
	return v.filters
}

// applyTo gibt f mit den gesetzten Feldern des Patches zurück.
func (p FiltersPatch) applyTo(f Filters) Filters {
	if p.Search != nil {
		f.Search = *p.Search
	}
	if p.Category != nil {
		f.Category = orAll(*p.Category)
	}
	if p.Organization != nil {
		f.Organization = orAll(*p.Organization)
	}
	if p.SortKey != nil {
		f.SortKey = orDefaultSort(*p.SortKey)
	}
	return f
}

// ToggleDarkMode schaltet den Dark-Mode um und gibt den neuen Wert zurück.
func (v *View) ToggleDarkMode() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.darkMode = !v.darkMode
	return v.darkMode
}

// OpenForm öffnet das Hinzufügen-Formular.
func (v *View) OpenForm() {
	v.mu.Lock()
	v.formOpen = true
	v.mu.Unlock()
}

// CloseForm schließt das Hinzufügen-Formular.
func (v *View) CloseForm() {
	v.mu.Lock()
	v.formOpen = false
	v.mu.Unlock()
}

// AddMedication fügt ein neues Medikament vorne in den Store ein und schließt das Formular.
// Der Datensatz erhält eine neue UUID als ID.
func (v *View) AddMedication(in NewMedication) (models.MedicationRecord, error) {
	name := strings.TrimSpace(in.Name)
	category := strings.TrimSpace(in.Category)
	if name == "" || category == "" {
		return models.MedicationRecord{}, fmt.Errorf("%w: name and category are required", ErrInvalidMedication)
	}
	if s := in.BadEffectScore; s != nil && (math.IsNaN(*s) || math.IsInf(*s, 0)) {
		return models.MedicationRecord{}, fmt.Errorf("%w: badEffectScore must be a finite number", ErrInvalidMedication)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.phase != PhaseReady {
		return models.MedicationRecord{}, ErrNotReady
	}

	orgs := make([]models.OrganizationFlag, 0, len(in.Organizations))
	for _, o := range in.Organizations {
		if o = strings.TrimSpace(o); o != "" {
			orgs = append(orgs, models.OrganizationFlag{Organization: o})
		}
	}
	rec := models.MedicationRecord{
		ID:             uuid.NewString(),
		Name:           name,
		Category:       category,
		Organizations:  orgs,
		BadEffectScore: in.BadEffectScore,
	}
	v.store.Prepend(rec)
	v.formOpen = false
	v.metrics.MedicationsAdded.Inc()
	v.metrics.RecordsLoaded.Set(float64(v.store.Len()))
	v.logger.Info("Medikament hinzugefügt", zap.String("id", rec.ID), zap.String("name", rec.Name))
	return rec, nil
}

// Snapshot berechnet Facetten, Übersicht und die gefilterte Liste für den aktuellen Zustand.
func (v *View) Snapshot() ViewState {
	return v.SnapshotWith(FiltersPatch{})
}

// SnapshotWith wie Snapshot, aber mit den Feldern des Patches über den
// gespeicherten Filtern. Der gespeicherte Zustand bleibt unverändert.
func (v *View) SnapshotWith(p FiltersPatch) ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()

	filters := p.applyTo(v.filters)

	records, version := v.store.Snapshot()
	facets, overview := v.cache.get(records, version)

	state := ViewState{
		Phase:    v.phase,
		Error:    v.errMsg,
		Filters:  filters,
		DarkMode: v.darkMode,
		FormOpen: v.formOpen,
		Facets: Facets{
			Categories:        slices.Clone(facets.Categories),
			OrganizationNames: slices.Clone(facets.OrganizationNames),
		},
		Overview:    slices.Clone(overview),
		Medications: []models.MedicationRecord{},
		Total:       len(records),
	}
	if v.phase == PhaseReady {
		state.Medications = Apply(records, filters)
		v.metrics.PipelineRunsTotal.Inc()
	}
	return state
}

func orAll(v string) string {
	if v == "" {
		return AllFilter
	}
	return v
}

func orDefaultSort(k string) string {
	if k == "" {
		return models.DefaultSortKey
	}
	return k
}

func duplicateIDs(records []models.MedicationRecord) []string {
	seen := make(map[string]bool, len(records))
	var dups []string
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if seen[r.ID] {
			dups = append(dups, r.ID)
		}
		seen[r.ID] = true
	}
	return dups
}
