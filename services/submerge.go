package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"scholar-sweep/models"
)

// ContributorNameMergePolicy faltet die zusammengelegten Autorenlisten aller
// Merge-Quellen in die Liste, die der kanonische Datensatz behalten soll.
// Erster Durchlauf: pro verknüpftem User bleibt nur der Eintrag aus der am
// stärksten bevorzugten Quelle. Zweiter Durchlauf: verbleibende Zeilen werden
// über (Initial, Nachname, Position) gruppiert; pro Gruppe gewinnt verknüpfter
// User vor gesetzter Rolle vor längstem Namen. Gleichstand entscheidet die
// ursprüngliche Reihenfolge.
func ContributorNameMergePolicy(names []models.ContributorName) []models.ContributorName {
	type entry = contributorEntry

	// Durchlauf 1: Dedupe über verknüpfte User
	bestByUser := map[uint]entry{}
	for i, n := range names {
		if n.UserID == nil {
			continue
		}
		cur, ok := bestByUser[*n.UserID]
		if !ok || models.SourceRank(n.Source) < models.SourceRank(cur.name.Source) {
			bestByUser[*n.UserID] = entry{n, i}
		}
	}
	var pass1 []entry
	for i, n := range names {
		if n.UserID != nil && bestByUser[*n.UserID].idx != i {
			continue
		}
		pass1 = append(pass1, entry{n, i})
	}

	// Durchlauf 2: Gruppierung über (Initial, Nachname, Position)
	bestByKey := map[string]entry{}
	var keyOrder []string
	for _, e := range pass1 {
		key := contributorKey(e.name)
		cur, ok := bestByKey[key]
		if !ok {
			keyOrder = append(keyOrder, key)
			bestByKey[key] = e
			continue
		}
		if betterContributor(e, cur) {
			bestByKey[key] = e
		}
	}

	result := make([]models.ContributorName, 0, len(keyOrder))
	entries := make([]entry, 0, len(keyOrder))
	for _, k := range keyOrder {
		entries = append(entries, bestByKey[k])
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].name.Position != entries[j].name.Position {
			return entries[i].name.Position < entries[j].name.Position
		}
		return entries[i].idx < entries[j].idx
	})
	for _, e := range entries {
		result = append(result, e.name)
	}
	return result
}

type contributorEntry struct {
	name models.ContributorName
	idx  int
}

// betterContributor: verknüpfter User schlägt gesetzte Rolle schlägt längeren
// Namen; sonst bleibt der frühere Eintrag.
func betterContributor(a, b contributorEntry) bool {
	aUser, bUser := a.name.UserID != nil, b.name.UserID != nil
	if aUser != bUser {
		return aUser
	}
	aRole, bRole := a.name.Role != nil, b.name.Role != nil
	if aRole != bRole {
		return aRole
	}
	return len(a.name.FullName()) > len(b.name.FullName())
}

// contributorKey bildet den Gruppierungsschlüssel (Initial, Nachname, Position).
func contributorKey(n models.ContributorName) string {
	initial := ""
	if first := strings.TrimSpace(n.FirstName); first != "" {
		initial = strings.ToLower(first[:1])
	}
	return fmt.Sprintf("%s|%s|%d", initial, strings.ToLower(strings.TrimSpace(n.LastName)), n.Position)
}

// AuthorshipMergePolicy konsolidiert Authorships desselben Users über alle
// Merge-Quellen: ORCID-Kennung von der zuletzt vom Besitzer bearbeiteten
// Zeile, Bestätigung als ODER, erste gesetzte Rolle, jüngste Zeitstempel.
func AuthorshipMergePolicy(auths []models.Authorship) models.Authorship {
	merged := auths[0]
	for _, a := range auths[1:] {
		if ownerUpdatedAfter(a.UpdatedByOwnerAt, merged.UpdatedByOwnerAt) {
			merged.OrcidResourceIdentifier = a.OrcidResourceIdentifier
		}
		merged.Confirmed = merged.Confirmed || a.Confirmed
		if merged.Role == nil {
			merged.Role = a.Role
		}
		merged.UpdatedByOwnerAt = laterTime(merged.UpdatedByOwnerAt, a.UpdatedByOwnerAt)
		merged.OpenAccessNotificationSentAt = laterTime(merged.OpenAccessNotificationSentAt, a.OpenAccessNotificationSentAt)
	}
	return merged
}

// OpenAccessLocationMergePolicy vereinigt die Fundorte aller Merge-Quellen,
// dedupliziert über (Quelle, URL); der erste Eintrag gewinnt.
func OpenAccessLocationMergePolicy(locs []models.OpenAccessLocation) []models.OpenAccessLocation {
	seen := map[string]bool{}
	var kept []models.OpenAccessLocation
	for _, l := range locs {
		key := l.Source + "|" + l.URL
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, l)
	}
	return kept
}

// DoiVerificationMergePolicy: verifiziert, sobald eine Seite verifiziert ist;
// sonst explizit unverifiziert, wenn eine Seite das ist; sonst unbekannt.
func DoiVerificationMergePolicy(values []*bool) *bool {
	sawFalse := false
	for _, v := range values {
		if v == nil {
			continue
		}
		if *v {
			t := true
			return &t
		}
		sawFalse = true
	}
	if sawFalse {
		f := false
		return &f
	}
	return nil
}

// ownerUpdatedAfter: a ist strikt jünger als b (nil zählt als ältester Wert).
func ownerUpdatedAfter(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

func laterTime(a, b *time.Time) *time.Time {
	if ownerUpdatedAfter(b, a) {
		return b
	}
	return a
}
