package services

import (
	"strings"

	"scholar-sweep/models"
)

// DOIMatchPolicy ist das strenge Match-Prädikat über der rohen Ähnlichkeit:
// beide Seiten tragen denselben nicht-leeren DOI UND alle Sekundärfelder sind
// konsistent. DOI-Gleichheit allein reicht nicht, weil Präfix- und
// Erfassungsfehler fremde Datensätze unter denselben DOI legen können.
func DOIMatchPolicy(p, q *models.Publication) bool {
	if p.HasBlankDOI() || q.HasBlankDOI() {
		return false
	}
	if strings.TrimSpace(p.DOI) != strings.TrimSpace(q.DOI) {
		return false
	}

	if !titleConsistent(p.Title, q.Title) {
		return false
	}
	if !titleConsistent(p.SecondaryTitle, q.SecondaryTitle) {
		return false
	}
	if !journalConsistent(p, q) {
		return false
	}
	for _, pair := range [][2]string{
		{p.Volume, q.Volume},
		{p.Issue, q.Issue},
		{p.Edition, q.Edition},
		{p.PageRange, q.PageRange},
		{p.ISSN, q.ISSN},
		{p.PublicationType, q.PublicationType},
	} {
		if !fieldConsistent(pair[0], pair[1]) {
			return false
		}
	}
	return true
}

// GroupMatchPolicy: Mitgliedschaft in derselben DuplicateGroup ist selbst die
// Autorisierung zum Merge; es wird nichts erneut validiert.
func GroupMatchPolicy(p, q *models.Publication) bool {
	return p.DuplicateGroupID != nil && q.DuplicateGroupID != nil &&
		*p.DuplicateGroupID == *q.DuplicateGroupID
}

// fieldConsistent: genau eine Seite leer, oder beide nach Lowercase/Trim gleich.
func fieldConsistent(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return true
	}
	return a == b
}

// titleConsistent vergleicht wie fieldConsistent, entfernt bei Titeln aber
// zusätzlich alle Nicht-Alphanumerik-Zeichen.
func titleConsistent(a, b string) bool {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == "" || nb == "" {
		return true
	}
	return na == nb
}

// journalConsistent prüft FK-Journale auf Gleichheit und fällt sonst auf den
// Freitext-Journaltitel zurück.
func journalConsistent(p, q *models.Publication) bool {
	if p.JournalID != nil && q.JournalID != nil {
		return *p.JournalID == *q.JournalID
	}
	if p.JournalID == nil && q.JournalID == nil {
		return fieldConsistent(p.JournalTitle, q.JournalTitle)
	}
	// Eine Seite per FK, die andere per Freitext: als "eine Seite leer" werten.
	return true
}
