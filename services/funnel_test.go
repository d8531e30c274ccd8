package services

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholar-sweep/config"
	"scholar-sweep/importers"
	"scholar-sweep/models"
)

// stubImporter liefert vorgefertigte Zeilen, damit der Funnel ohne echtes
// Export-Format getestet werden kann.
type stubImporter struct {
	name    string
	rows    []importers.Row
	rowErrs []importers.RowError
	err     error
}

func (s *stubImporter) Name() string { return s.name }

func (s *stubImporter) Rows(r io.Reader) ([]importers.Row, []importers.RowError, error) {
	io.Copy(io.Discard, r)
	return s.rows, s.rowErrs, s.err
}

func newTestImportService(t *testing.T, imp *stubImporter) (*ImportService, string) {
	t.Helper()
	db := openTestDB(t)
	grouper := NewGroupingService(db, testLogger(), NewSimilarityMatcher(0.6))
	cfg := &config.Config{ImportChunkSize: 2}
	svc := NewImportService(cfg, db, testLogger(), grouper, nil)

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"items":[]}`), 0o644))
	return svc, path
}

func stubRow(id, title string) importers.Row {
	return importers.Row{
		SourceIdentifier: id,
		Title:            title,
		Status:           models.StatusPublished,
		Raw:              json.RawMessage(`{"id":"` + id + `"}`),
	}
}

func TestRunCreatesPublicationsWithLedger(t *testing.T) {
	role := "author"
	row := stubRow("ai-1", "Tidal Energy Conversion in Shallow Estuaries")
	row.DOI = "10.1000/tidal.1"
	row.Contributors = []importers.Contributor{
		{FirstName: "Nina", LastName: "Novak", Position: 1, Role: &role},
		{FirstName: "Omar", LastName: "Osei", Position: 2},
	}

	imp := &stubImporter{name: models.SourceActivityInsight, rows: []importers.Row{row}}
	svc, path := newTestImportService(t, imp)

	stats, err := svc.Run(context.Background(), imp, path)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 0, stats.Failed)

	var pub models.Publication
	require.NoError(t, svc.DB.Preload("Imports").Preload("ContributorNames").First(&pub).Error)
	assert.Equal(t, "Tidal Energy Conversion in Shallow Estuaries", pub.Title)
	assert.True(t, pub.Visible)
	require.Len(t, pub.Imports, 1)
	assert.Equal(t, models.SourceActivityInsight, pub.Imports[0].Source)
	assert.Equal(t, "ai-1", pub.Imports[0].SourceIdentifier)
	require.Len(t, pub.ContributorNames, 2)
	assert.Equal(t, models.SourceActivityInsight, pub.ContributorNames[0].Source)
}

func TestRunUpdatesExistingImport(t *testing.T) {
	imp := &stubImporter{
		name: models.SourcePure,
		rows: []importers.Row{stubRow("pure-1", "Old Working Title")},
	}
	svc, path := newTestImportService(t, imp)

	_, err := svc.Run(context.Background(), imp, path)
	require.NoError(t, err)

	imp.rows = []importers.Row{stubRow("pure-1", "Final Published Title")}
	stats, err := svc.Run(context.Background(), imp, path)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Created)
	assert.Equal(t, 1, stats.Updated)

	var pubs []models.Publication
	require.NoError(t, svc.DB.Find(&pubs).Error)
	require.Len(t, pubs, 1)
	assert.Equal(t, "Final Published Title", pubs[0].Title)
}

func TestRunSkipsUserEditedPublication(t *testing.T) {
	// Der Datensatz wurde von Hand bearbeitet, der nächste Import-Lauf darf
	// ihn nicht mehr anfassen.
	imp := &stubImporter{
		name: models.SourcePure,
		rows: []importers.Row{stubRow("pure-7", "Curated Title From Source")},
	}
	svc, path := newTestImportService(t, imp)

	_, err := svc.Run(context.Background(), imp, path)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, svc.DB.Model(&models.Publication{}).
		Where("1 = 1").
		Updates(map[string]interface{}{
			"title":              "Hand-Edited Title",
			"updated_by_user_at": now,
		}).Error)

	imp.rows = []importers.Row{stubRow("pure-7", "Newer Title From Source")}
	stats, err := svc.Run(context.Background(), imp, path)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 1, stats.SkippedLocked)

	var pub models.Publication
	require.NoError(t, svc.DB.First(&pub).Error)
	assert.Equal(t, "Hand-Edited Title", pub.Title)
}

func TestRunCollectsRowErrors(t *testing.T) {
	imp := &stubImporter{
		name: models.SourceActivityInsight,
		rows: []importers.Row{stubRow("ai-2", "Valid Row")},
		rowErrs: []importers.RowError{
			{SourceIdentifier: "ai-3", Reason: "titel fehlt"},
		},
	}
	svc, path := newTestImportService(t, imp)

	stats, err := svc.Run(context.Background(), imp, path)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.RowErrors, 1)
	assert.Equal(t, "ai-3", stats.RowErrors[0].SourceIdentifier)
}

func TestRunGroupsNewPublications(t *testing.T) {
	imp := &stubImporter{
		name: models.SourcePure,
		rows: []importers.Row{
			stubRow("pure-10", "Distributed Consensus Under Partial Synchrony"),
			stubRow("pure-11", "Distributed Consensus Under Partial Synchrony"),
		},
	}
	svc, path := newTestImportService(t, imp)

	stats, err := svc.Run(context.Background(), imp, path)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Created)

	var pubs []models.Publication
	require.NoError(t, svc.DB.Order("id").Find(&pubs).Error)
	require.Len(t, pubs, 2)
	require.NotNil(t, pubs[0].DuplicateGroupID)
	require.NotNil(t, pubs[1].DuplicateGroupID)
	assert.Equal(t, *pubs[0].DuplicateGroupID, *pubs[1].DuplicateGroupID)
}

func TestRunProcessesChunksIndependently(t *testing.T) {
	// Chunk-Größe 2: drei Zeilen ergeben zwei Transaktionen.
	imp := &stubImporter{
		name: models.SourcePure,
		rows: []importers.Row{
			stubRow("pure-20", "Soil Microbiome Dynamics After Wildfire"),
			stubRow("pure-21", "Urban Heat Islands in Coastal Cities"),
			stubRow("pure-22", "Gene Flow in Fragmented Forest Habitats"),
		},
	}
	svc, path := newTestImportService(t, imp)

	stats, err := svc.Run(context.Background(), imp, path)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Created)
	assert.Equal(t, 0, stats.Failed)
}

func TestRunFailsOnMissingExport(t *testing.T) {
	imp := &stubImporter{name: models.SourcePure}
	svc, _ := newTestImportService(t, imp)

	_, err := svc.Run(context.Background(), imp, filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestRunFailsOnEmptyExport(t *testing.T) {
	imp := &stubImporter{name: models.SourcePure}
	svc, _ := newTestImportService(t, imp)

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	_, err := svc.Run(context.Background(), imp, empty)
	assert.Error(t, err)
}

func TestRunAllContinuesAfterImporterFailure(t *testing.T) {
	broken := &stubImporter{name: models.SourceActivityInsight}
	working := &stubImporter{
		name: models.SourcePure,
		rows: []importers.Row{stubRow("pure-30", "Low-Power Sensor Networks in Permafrost")},
	}
	svc, path := newTestImportService(t, working)

	all := svc.RunAll(context.Background(), []ImporterSource{
		{Importer: broken, Path: filepath.Join(t.TempDir(), "missing.csv")},
		{Importer: working, Path: path},
	})
	require.Len(t, all, 2)
	assert.Equal(t, models.SourceActivityInsight, all[0].Source)
	assert.Equal(t, 0, all[0].Created)
	assert.Equal(t, 1, all[1].Created)
}
