package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scholar-sweep/models"
)

func uintPtr(v uint) *uint { return &v }

func TestDOIMatchPolicy(t *testing.T) {
	base := func() *models.Publication {
		return &models.Publication{
			Title:  "Quantum Computing Advances",
			DOI:    "10.1000/qc.2021",
			Volume: "12",
			Issue:  "3",
		}
	}

	t.Run("gleicher doi und konsistente felder", func(t *testing.T) {
		p, q := base(), base()
		q.Issue = "" // eine Seite leer ist konsistent
		q.Title = "Quantum Computing Advances!"
		assert.True(t, DOIMatchPolicy(p, q))
	})

	t.Run("gleicher doi, fremder titel", func(t *testing.T) {
		// DOI-Gleichheit allein genügt nicht
		p, q := base(), base()
		q.Title = "Unrelated Title About Birds"
		assert.False(t, DOIMatchPolicy(p, q))
	})

	t.Run("abweichendes sekundärfeld", func(t *testing.T) {
		p, q := base(), base()
		q.Volume = "13"
		assert.False(t, DOIMatchPolicy(p, q))
	})

	t.Run("leerer doi", func(t *testing.T) {
		p, q := base(), base()
		q.DOI = "  "
		assert.False(t, DOIMatchPolicy(p, q))
	})

	t.Run("verschiedene dois", func(t *testing.T) {
		p, q := base(), base()
		q.DOI = "10.1000/other"
		assert.False(t, DOIMatchPolicy(p, q))
	})

	t.Run("journal fk und freitext", func(t *testing.T) {
		p, q := base(), base()
		p.JournalID = uintPtr(7)
		q.JournalTitle = "Journal of Quantum Things"
		assert.True(t, DOIMatchPolicy(p, q))

		q.JournalID = uintPtr(8)
		assert.False(t, DOIMatchPolicy(p, q))
	})
}

func TestGroupMatchPolicy(t *testing.T) {
	p := &models.Publication{DuplicateGroupID: uintPtr(4)}
	q := &models.Publication{DuplicateGroupID: uintPtr(4)}
	r := &models.Publication{DuplicateGroupID: uintPtr(5)}
	s := &models.Publication{}

	assert.True(t, GroupMatchPolicy(p, q))
	assert.False(t, GroupMatchPolicy(p, r))
	assert.False(t, GroupMatchPolicy(p, s))
	assert.False(t, GroupMatchPolicy(s, s))
}

func TestFieldConsistent(t *testing.T) {
	assert.True(t, fieldConsistent("", "irgendwas"))
	assert.True(t, fieldConsistent(" Vol. 1 ", "vol. 1"))
	assert.False(t, fieldConsistent("Vol. 1", "Vol. 2"))
	assert.True(t, titleConsistent("Deep Learning!", "deep learning"))
	assert.False(t, titleConsistent("Deep Learning", "Shallow Learning"))
}
