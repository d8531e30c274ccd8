package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholar-sweep/models"
)

func strPtr(s string) *string { return &s }

func name(first, last string, pos int, opts ...func(*models.ContributorName)) models.ContributorName {
	n := models.ContributorName{FirstName: first, LastName: last, Position: pos}
	for _, opt := range opts {
		opt(&n)
	}
	return n
}

func withUser(id uint) func(*models.ContributorName) {
	return func(n *models.ContributorName) { n.UserID = &id }
}

func withSource(src string) func(*models.ContributorName) {
	return func(n *models.ContributorName) { n.Source = src }
}

func withRole(role string) func(*models.ContributorName) {
	return func(n *models.ContributorName) { n.Role = strPtr(role) }
}

func TestContributorNameMergePolicySharedUser(t *testing.T) {
	// Zwei Publikationen mit je drei Autoren, ein Paar teilt sich einen
	// verknüpften User: fünf Einträge bleiben, die bevorzugte Quelle gewinnt.
	names := []models.ContributorName{
		name("Anna", "Alvarez", 1, withUser(7), withSource(models.SourceActivityInsight)),
		name("Bert", "Brown", 2),
		name("Carla", "Chen", 3),
		name("A.", "Alvarez", 1, withUser(7), withSource(models.SourcePure)),
		name("Dora", "Dietrich", 2),
		name("Emil", "Eriksen", 3),
	}

	merged := ContributorNameMergePolicy(names)
	require.Len(t, merged, 5)

	// Der Pure-Eintrag des geteilten Users überlebt
	found := false
	for _, n := range merged {
		if n.UserID != nil && *n.UserID == 7 {
			assert.Equal(t, models.SourcePure, n.Source)
			assert.Equal(t, "A.", n.FirstName)
			found = true
		}
	}
	assert.True(t, found, "eintrag des geteilten users fehlt")

	// Positionsreihenfolge bleibt erhalten
	for i := 1; i < len(merged); i++ {
		assert.LessOrEqual(t, merged[i-1].Position, merged[i].Position)
	}
}

func TestContributorNameMergePolicyKeyGrouping(t *testing.T) {
	// Gleiches Initial, gleicher Nachname, gleiche Position → eine Zeile;
	// verknüpfter User schlägt Rolle schlägt Namenslänge.
	names := []models.ContributorName{
		name("Maria", "Silva", 1, withRole("author")),
		name("M", "Silva", 1, withUser(3)),
		name("Marianne", "Silva", 1),
	}
	merged := ContributorNameMergePolicy(names)
	require.Len(t, merged, 1)
	require.NotNil(t, merged[0].UserID)
	assert.EqualValues(t, 3, *merged[0].UserID)

	// Ohne User gewinnt die gesetzte Rolle
	names = []models.ContributorName{
		name("Marianne", "Silva", 1),
		name("Maria", "Silva", 1, withRole("author")),
	}
	merged = ContributorNameMergePolicy(names)
	require.Len(t, merged, 1)
	require.NotNil(t, merged[0].Role)

	// Ohne User und Rolle gewinnt der längste Name
	names = []models.ContributorName{
		name("M", "Silva", 1),
		name("Marianne", "Silva", 1),
	}
	merged = ContributorNameMergePolicy(names)
	require.Len(t, merged, 1)
	assert.Equal(t, "Marianne", merged[0].FirstName)
}

func TestContributorNameMergePolicyDistinctPositions(t *testing.T) {
	// Gleicher Name auf verschiedenen Positionen bleibt getrennt
	names := []models.ContributorName{
		name("Maria", "Silva", 1),
		name("Maria", "Silva", 4),
	}
	assert.Len(t, ContributorNameMergePolicy(names), 2)
}

func TestAuthorshipMergePolicy(t *testing.T) {
	older := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	auths := []models.Authorship{
		{
			UserID: 1, PublicationID: 10, AuthorNumber: 2,
			OrcidResourceIdentifier: strPtr("orcid-old"),
			UpdatedByOwnerAt:        &older,
		},
		{
			UserID: 1, PublicationID: 11, AuthorNumber: 2,
			OrcidResourceIdentifier:      strPtr("orcid-new"),
			UpdatedByOwnerAt:             &newer,
			Confirmed:                    true,
			Role:                         strPtr("Primary Author"),
			OpenAccessNotificationSentAt: &older,
		},
	}

	merged := AuthorshipMergePolicy(auths)
	require.NotNil(t, merged.OrcidResourceIdentifier)
	assert.Equal(t, "orcid-new", *merged.OrcidResourceIdentifier)
	assert.True(t, merged.Confirmed)
	require.NotNil(t, merged.Role)
	assert.Equal(t, "Primary Author", *merged.Role)
	assert.Equal(t, newer, *merged.UpdatedByOwnerAt)
	assert.Equal(t, older, *merged.OpenAccessNotificationSentAt)
}

func TestOpenAccessLocationMergePolicy(t *testing.T) {
	locs := []models.OpenAccessLocation{
		{PublicationID: 1, Source: "unpaywall", URL: "https://oa/1"},
		{PublicationID: 2, Source: "unpaywall", URL: "https://oa/1"},
		{PublicationID: 2, Source: "scholarsphere", URL: "https://oa/1"},
		{PublicationID: 2, Source: "unpaywall", URL: "https://oa/2"},
	}
	kept := OpenAccessLocationMergePolicy(locs)
	require.Len(t, kept, 3)
	assert.EqualValues(t, 1, kept[0].PublicationID)
}

func TestDoiVerificationMergePolicy(t *testing.T) {
	yes, no := true, false

	result := DoiVerificationMergePolicy([]*bool{nil, &no, &yes})
	require.NotNil(t, result)
	assert.True(t, *result)

	result = DoiVerificationMergePolicy([]*bool{nil, &no})
	require.NotNil(t, result)
	assert.False(t, *result)

	assert.Nil(t, DoiVerificationMergePolicy([]*bool{nil, nil}))
	assert.Nil(t, DoiVerificationMergePolicy(nil))
}
