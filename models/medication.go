package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// DefaultSortKey ist das Standard-Sortierfeld der Medikamentenliste.
const DefaultSortKey = "badEffectScore"

// OrganizationFlag markiert, dass eine Organisation ein Medikament gelistet hat.
type OrganizationFlag struct {
	Organization string `json:"organization"`
}

// MedicationRecord repräsentiert ein von Gesundheitsorganisationen gelistetes Medikament.
//
// Neben den bekannten Feldern werden alle weiteren numerischen Top-Level-Felder
// der Backend-Antwort in Metrics übernommen und sind als Sortierschlüssel wählbar.
type MedicationRecord struct {
	ID             string
	Name           string
	Category       string
	Organizations  []OrganizationFlag
	BadEffectScore *float64
	Metrics        map[string]float64
}

// Score liefert den numerischen Wert für einen Sortierschlüssel.
// Fehlende Felder und NaN gelten als nicht vorhanden.
func (m MedicationRecord) Score(key string) (float64, bool) {
	if key == DefaultSortKey {
		if m.BadEffectScore == nil || math.IsNaN(*m.BadEffectScore) {
			return 0, false
		}
		return *m.BadEffectScore, true
	}
	v, ok := m.Metrics[key]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// FlaggedBy prüft, ob die Organisation das Medikament gelistet hat.
func (m MedicationRecord) FlaggedBy(organization string) bool {
	for _, o := range m.Organizations {
		if o.Organization == organization {
			return true
		}
	}
	return false
}

// OrganizationNames gibt die Namen der listenden Organisationen zurück.
func (m MedicationRecord) OrganizationNames() []string {
	names := make([]string, 0, len(m.Organizations))
	for _, o := range m.Organizations {
		names = append(names, o.Organization)
	}
	return names
}

// knownFields werden nicht als Metriken interpretiert.
var knownFields = map[string]bool{
	"_id":            true,
	"id":             true,
	"name":           true,
	"category":       true,
	"organizations":  true,
	"badEffectScore": true,
}

// UnmarshalJSON akzeptiert "_id" oder "id" (String oder Zahl) als Identifier.
func (m *MedicationRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var rec MedicationRecord
	for _, key := range []string{"_id", "id"} {
		if v, ok := raw[key]; ok {
			id, err := decodeID(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			if id != "" {
				rec.ID = id
				break
			}
		}
	}
	if v, ok := raw["name"]; ok {
		if err := decodeOptional(v, &rec.Name); err != nil {
			return fmt.Errorf("invalid name: %w", err)
		}
	}
	if v, ok := raw["category"]; ok {
		if err := decodeOptional(v, &rec.Category); err != nil {
			return fmt.Errorf("invalid category: %w", err)
		}
	}
	if v, ok := raw["organizations"]; ok {
		if err := decodeOptional(v, &rec.Organizations); err != nil {
			return fmt.Errorf("invalid organizations: %w", err)
		}
	}
	if rec.Organizations == nil {
		rec.Organizations = []OrganizationFlag{}
	}
	if v, ok := raw["badEffectScore"]; ok {
		var score *float64
		if err := json.Unmarshal(v, &score); err != nil {
			return fmt.Errorf("invalid badEffectScore: %w", err)
		}
		rec.BadEffectScore = score
	}

	for key, v := range raw {
		if knownFields[key] {
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			// Nicht-numerische Zusatzfelder sind für die Ansicht irrelevant.
			continue
		}
		if rec.Metrics == nil {
			rec.Metrics = make(map[string]float64)
		}
		rec.Metrics[key] = f
	}

	*m = rec
	return nil
}

// MarshalJSON gibt Metriken als Top-Level-Felder aus.
func (m MedicationRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Metrics)+5)
	for k, v := range m.Metrics {
		if knownFields[k] || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[k] = v
	}
	out["id"] = m.ID
	out["name"] = m.Name
	out["category"] = m.Category
	orgs := m.Organizations
	if orgs == nil {
		orgs = []OrganizationFlag{}
	}
	out["organizations"] = orgs
	if s := m.BadEffectScore; s != nil && !math.IsNaN(*s) && !math.IsInf(*s, 0) {
		out["badEffectScore"] = *s
	}
	return json.Marshal(out)
}

func decodeID(v json.RawMessage) (string, error) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", nil
	}
	if v[0] == '"' {
		var s string
		err := json.Unmarshal(v, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return "", err
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}

// decodeOptional behandelt null wie ein fehlendes Feld.
func decodeOptional(v json.RawMessage, dst any) error {
	if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil
	}
	return json.Unmarshal(v, dst)
}

// Float gibt einen Pointer auf f zurück.
func Float(f float64) *float64 {
	return &f
}
