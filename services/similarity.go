package services

import (
	"strings"
	"unicode"

	"scholar-sweep/models"
)

// DefaultSimilarityThreshold ist die Mindest-Trigram-Ähnlichkeit zweier
// normalisierter Titel, ab der zwei Publikationen als Duplikat-Kandidaten gelten.
const DefaultSimilarityThreshold = 0.6

// SimilarityMatcher entscheidet, ob zwei Publikationen ähnlich genug sind,
// um als Duplikat-Kandidaten betrachtet zu werden. Das Prädikat ist bewusst
// großzügig: fehlende Jahre oder DOIs verhindern keinen Match, weil dünn
// befüllte Quellen den Merge nicht blockieren sollen.
type SimilarityMatcher struct {
	Threshold float64
}

// NewSimilarityMatcher erstellt einen Matcher; threshold <= 0 fällt auf den Default zurück.
func NewSimilarityMatcher(threshold float64) *SimilarityMatcher {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &SimilarityMatcher{Threshold: threshold}
}

// Similar prüft die Kandidaten-Konjunktion: Titel-Trigram-Ähnlichkeit über dem
// Schwellwert UND Jahr gleich-oder-unbekannt UND DOI gleich-oder-unbekannt.
func (m *SimilarityMatcher) Similar(p, q *models.Publication) bool {
	if m.TitleSimilarity(p.Title, q.Title) < m.Threshold {
		return false
	}
	if !yearsCompatible(p, q) {
		return false
	}
	return doisCompatible(p, q)
}

// TitleSimilarity berechnet die Jaccard-Ähnlichkeit der Buchstaben-Trigramme
// beider normalisierter Titel. Sehr kurze Titel (< 3 Zeichen nach der
// Normalisierung) werden auf exakte Gleichheit verglichen.
func (m *SimilarityMatcher) TitleSimilarity(a, b string) float64 {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if len(na) < 3 || len(nb) < 3 {
		if na == nb && na != "" {
			return 1.0
		}
		return 0.0
	}

	ta, tb := trigrams(na), trigrams(nb)
	intersection := 0
	for t := range ta {
		if tb[t] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// NormalizeTitle senkt den Titel auf Kleinbuchstaben ab und entfernt alle
// Zeichen außer Buchstaben und Ziffern.
func NormalizeTitle(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// trigrams liefert die Menge aller 3-Gramme eines Strings.
func trigrams(s string) map[string]bool {
	runes := []rune(s)
	set := make(map[string]bool, len(runes))
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = true
	}
	return set
}

// yearsCompatible: Jahre gleich, oder mindestens eine Seite ohne Datum.
func yearsCompatible(p, q *models.Publication) bool {
	py, qy := p.PublishedYear(), q.PublishedYear()
	if py == nil || qy == nil {
		return true
	}
	return *py == *qy
}

// doisCompatible: DOIs gleich, oder mindestens eine Seite ohne DOI.
func doisCompatible(p, q *models.Publication) bool {
	if p.HasBlankDOI() || q.HasBlankDOI() {
		return true
	}
	return strings.TrimSpace(p.DOI) == strings.TrimSpace(q.DOI)
}
