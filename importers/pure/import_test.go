package pure

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scholar-sweep/models"
)

const sampleExport = `{
  "items": [
    {
      "uuid": "a1b2-c3",
      "title": " Ice Sheet Dynamics in West Antarctica ",
      "subTitle": "A Decadal Survey",
      "journalTitle": "Polar Science",
      "publisher": "Polar Press",
      "publicationStatus": "published",
      "volume": "8",
      "issue": "2",
      "pages": "44-61",
      "issn": "2345-6789",
      "doi": "10.1000/ICE.8",
      "portalUrl": "https://pure.example.edu/a1b2-c3",
      "type": "Journal Article",
      "publicationDate": "2022-03-01",
      "totalScopusCitations": 17,
      "personAssociations": [
        {"firstName": "Rita", "lastName": "Reyes", "role": "Author"},
        {"firstName": "", "lastName": ""},
        {"firstName": "Sven", "lastName": "Sørensen"}
      ]
    },
    {
      "uuid": "",
      "title": "Item Without Identifier"
    },
    {
      "uuid": "d4e5-f6",
      "title": ""
    }
  ]
}`

func TestRowsParsesExport(t *testing.T) {
	imp := NewImporter(zap.NewNop())
	rows, rowErrs, err := imp.Rows(strings.NewReader(sampleExport))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rowErrs, 2)

	row := rows[0]
	assert.Equal(t, "a1b2-c3", row.SourceIdentifier)
	assert.Equal(t, "Ice Sheet Dynamics in West Antarctica", row.Title)
	assert.Equal(t, "A Decadal Survey", row.SecondaryTitle)
	assert.Equal(t, models.StatusPublished, row.Status)
	assert.Equal(t, "10.1000/ice.8", row.DOI)
	assert.Equal(t, 17, row.TotalScopusCitations)
	require.NotNil(t, row.PublishedOn)
	assert.Equal(t, time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC), *row.PublishedOn)

	// Leere Namenseinträge werden übersprungen, Positionen bleiben stabil
	require.Len(t, row.Contributors, 2)
	assert.Equal(t, 1, row.Contributors[0].Position)
	require.NotNil(t, row.Contributors[0].Role)
	assert.Equal(t, "Author", *row.Contributors[0].Role)
	assert.Equal(t, 3, row.Contributors[1].Position)
	assert.Nil(t, row.Contributors[1].Role)

	assert.Equal(t, "item 1", rowErrs[0].SourceIdentifier)
	assert.Equal(t, "d4e5-f6", rowErrs[1].SourceIdentifier)
}

func TestRowsFailsOnBrokenJSON(t *testing.T) {
	imp := NewImporter(zap.NewNop())
	_, _, err := imp.Rows(strings.NewReader(`{"items": [`))
	assert.Error(t, err)
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]string{
		"published":            models.StatusPublished,
		"Published":            models.StatusPublished,
		"in press":             models.StatusInPress,
		"Epub ahead of print":  models.StatusInPress,
		"  Accepted/In press ": "Accepted/In press",
		"":                     "",
	}
	for input, expected := range cases {
		assert.Equal(t, expected, normalizeStatus(input), input)
	}
}

func TestParseDateLayouts(t *testing.T) {
	full := parseDate("2021-07-09")
	require.NotNil(t, full)
	assert.Equal(t, time.Date(2021, 7, 9, 0, 0, 0, 0, time.UTC), *full)

	month := parseDate("2021-07")
	require.NotNil(t, month)
	assert.Equal(t, time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC), *month)

	year := parseDate("2021")
	require.NotNil(t, year)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), *year)

	assert.Nil(t, parseDate("09.07.2021"))
	assert.Nil(t, parseDate(""))
}
