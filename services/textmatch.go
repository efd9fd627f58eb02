package services

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// textMatcher vergleicht Suchbegriffe unabhängig von Groß-/Kleinschreibung.
// Ein Caser ist zustandsbehaftet, daher pro Pipeline-Lauf eine eigene Instanz.
type textMatcher struct {
	fold cases.Caser
}

func newTextMatcher() *textMatcher {
	return &textMatcher{fold: cases.Fold()}
}

// normalize führt NFC-Normalisierung und Case-Folding durch.
func (m *textMatcher) normalize(s string) string {
	normalized, _, err := transform.String(norm.NFC, s)
	if err != nil {
		normalized = s
	}
	return m.fold.String(normalized)
}

// contains prüft, ob needle (bereits normalisiert) in haystack vorkommt.
func (m *textMatcher) contains(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(m.normalize(haystack), needle)
}
