package services

import (
	"med-watch/models"
)

// Facets enthält die unterschiedlichen Werte der filterbaren Felder.
type Facets struct {
	Categories        []string `json:"categories"`
	OrganizationNames []string `json:"organizations"`
}

// OrganizationCount ist ein Eintrag der Organisations-Übersicht.
type OrganizationCount struct {
	models.Organization
	Flagged int `json:"flagged"`
}

// ExtractFacets ermittelt Kategorien und Organisationen in Reihenfolge des ersten Auftretens.
func ExtractFacets(records []models.MedicationRecord) Facets {
	facets := Facets{
		Categories:        []string{},
		OrganizationNames: []string{},
	}
	seenCat := make(map[string]bool)
	seenOrg := make(map[string]bool)

	for _, r := range records {
		if !seenCat[r.Category] {
			seenCat[r.Category] = true
			facets.Categories = append(facets.Categories, r.Category)
		}
		for _, o := range r.Organizations {
			if !seenOrg[o.Organization] {
				seenOrg[o.Organization] = true
				facets.OrganizationNames = append(facets.OrganizationNames, o.Organization)
			}
		}
	}
	return facets
}

// OrganizationOverview zählt pro Organisation die gelisteten Medikamente.
func OrganizationOverview(records []models.MedicationRecord, orgs []models.Organization) []OrganizationCount {
	out := make([]OrganizationCount, 0, len(orgs))
	for _, org := range orgs {
		count := 0
		for _, r := range records {
			if r.FlaggedBy(org.Name) {
				count++
			}
		}
		out = append(out, OrganizationCount{Organization: org, Flagged: count})
	}
	return out
}

// facetCache berechnet Facetten nur neu, wenn sich die Store-Version ändert.
type facetCache struct {
	version  uint64
	valid    bool
	facets   Facets
	overview []OrganizationCount
}

func (c *facetCache) get(records []models.MedicationRecord, version uint64) (Facets, []OrganizationCount) {
	if !c.valid || c.version != version {
		c.facets = ExtractFacets(records)
		c.overview = OrganizationOverview(records, models.KnownOrganizations)
		c.version = version
		c.valid = true
	}
	return c.facets, c.overview
}
