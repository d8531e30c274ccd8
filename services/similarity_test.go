package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"scholar-sweep/models"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "deeplearninginclimatemodels", NormalizeTitle("Deep Learning in Climate Models"))
	assert.Equal(t, "covid19update", NormalizeTitle("  COVID-19: Update!  "))
	assert.Equal(t, "", NormalizeTitle("--- ***"))
}

func TestTitleSimilarityExactValues(t *testing.T) {
	m := NewSimilarityMatcher(0)

	// Identische Titel unabhängig von Interpunktion und Groß-/Kleinschreibung
	assert.InDelta(t, 1.0, m.TitleSimilarity("Deep Learning in Climate Models", "deep learning, in climate models."), 1e-9)

	// Trigramme: {abc bcd cde def} vs {abc bcd cde deg} → 3 gemeinsam, 5 gesamt
	assert.InDelta(t, 0.6, m.TitleSimilarity("abcdef", "abcdeg"), 1e-9)

	// {abc bcd cde def efg fgh} vs {abc bcd cde def efi fij} → 4 gemeinsam, 8 gesamt
	assert.InDelta(t, 0.5, m.TitleSimilarity("abcdefgh", "abcdefij"), 1e-9)

	// Kurztitel: exakte Gleichheit oder nichts
	assert.InDelta(t, 1.0, m.TitleSimilarity("Go", "GO"), 1e-9)
	assert.InDelta(t, 0.0, m.TitleSimilarity("Go", "C"), 1e-9)
}

func TestSimilarThresholdBoundary(t *testing.T) {
	m := NewSimilarityMatcher(0.6)

	at := &models.Publication{Title: "abcdef"}
	just := &models.Publication{Title: "abcdeg"}
	below := &models.Publication{Title: "abcdefij"}
	ref := &models.Publication{Title: "abcdefgh"}

	// Genau auf dem Schwellwert (0.6) ist noch ein Kandidat
	assert.True(t, m.Similar(at, just))
	// Darunter (0.5) nicht mehr
	assert.False(t, m.Similar(ref, below))
}

func TestSimilarYearAndDOIRules(t *testing.T) {
	m := NewSimilarityMatcher(0.6)

	base := &models.Publication{Title: "Deep Learning in Climate Models", PublishedOn: datePtr(2021, 3, 1)}
	sameYear := &models.Publication{Title: "Deep Learning in Climate Models", PublishedOn: datePtr(2021, 11, 30)}
	otherYear := &models.Publication{Title: "Deep Learning in Climate Models", PublishedOn: datePtr(2019, 1, 1)}
	noYear := &models.Publication{Title: "Deep Learning in Climate Models"}

	assert.True(t, m.Similar(base, sameYear))
	assert.False(t, m.Similar(base, otherYear))
	// Fehlendes Jahr verhindert den Match nicht
	assert.True(t, m.Similar(base, noYear))

	withDOI := &models.Publication{Title: "Deep Learning in Climate Models", DOI: "10.1000/abc"}
	sameDOI := &models.Publication{Title: "Deep Learning in Climate Models", DOI: "10.1000/abc"}
	otherDOI := &models.Publication{Title: "Deep Learning in Climate Models", DOI: "10.1000/xyz"}
	noDOI := &models.Publication{Title: "Deep Learning in Climate Models"}

	assert.True(t, m.Similar(withDOI, sameDOI))
	assert.False(t, m.Similar(withDOI, otherDOI))
	// Fehlender DOI verhindert den Match nicht
	assert.True(t, m.Similar(withDOI, noDOI))
}

func TestNewSimilarityMatcherDefault(t *testing.T) {
	assert.Equal(t, DefaultSimilarityThreshold, NewSimilarityMatcher(0).Threshold)
	assert.Equal(t, 0.8, NewSimilarityMatcher(0.8).Threshold)
}
