package services

import (
	"sort"

	"med-watch/models"
)

// AllFilter ist der Sentinel-Wert für "kein Filter" bei Kategorie und Organisation.
const AllFilter = "all"

// Filters sind die Eingaben der Filter-Sort-Pipeline.
type Filters struct {
	Search       string `json:"search"`
	Category     string `json:"category"`
	Organization string `json:"organization"`
	SortKey      string `json:"sortBy"`
}

// DefaultFilters gibt die Startwerte der Ansicht zurück.
func DefaultFilters() Filters {
	return Filters{
		Category:     AllFilter,
		Organization: AllFilter,
		SortKey:      models.DefaultSortKey,
	}
}

func isAll(v string) bool {
	return v == "" || v == AllFilter
}

// Apply filtert und sortiert die Datensätze. Die Eingabe wird nicht verändert.
//
// Sortiert wird absteigend nach f.SortKey und stabil. Datensätze ohne Wert für
// den Schlüssel (oder mit NaN) stehen hinter allen anderen.
func Apply(records []models.MedicationRecord, f Filters) []models.MedicationRecord {
	matcher := newTextMatcher()
	needle := matcher.normalize(f.Search)

	out := make([]models.MedicationRecord, 0, len(records))
	for _, r := range records {
		if !matcher.contains(r.Name, needle) && !matcher.contains(r.Category, needle) {
			continue
		}
		if !isAll(f.Category) && r.Category != f.Category {
			continue
		}
		if !isAll(f.Organization) && !r.FlaggedBy(f.Organization) {
			continue
		}
		out = append(out, r)
	}

	key := f.SortKey
	if key == "" {
		key = models.DefaultSortKey
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, okA := out[i].Score(key)
		b, okB := out[j].Score(key)
		switch {
		case okA && okB:
			return a > b
		case okA:
			return true
		default:
			return false
		}
	})
	return out
}
