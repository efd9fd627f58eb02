package models

// Organization beschreibt eine Gesundheitsorganisation in der Übersicht.
type Organization struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// KnownOrganizations sind die in der Übersicht dargestellten Organisationen.
var KnownOrganizations = []Organization{
	{Name: "WHO", Description: "World Health Organization"},
	{Name: "FDA", Description: "Food and Drug Administration"},
	{Name: "ICMR", Description: "Indian Council of Medical Research"},
}
