package pure

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"scholar-sweep/importers"
	"scholar-sweep/models"
)

// export bildet die relevanten Teile des Pure-JSON-Exports ab.
type export struct {
	Items []item `json:"items"`
}

type item struct {
	UUID           string   `json:"uuid"`
	Title          string   `json:"title"`
	SubTitle       string   `json:"subTitle"`
	JournalTitle   string   `json:"journalTitle"`
	Publisher      string   `json:"publisher"`
	Status         string   `json:"publicationStatus"`
	Volume         string   `json:"volume"`
	Issue          string   `json:"issue"`
	Edition        string   `json:"edition"`
	Pages          string   `json:"pages"`
	ISSN           string   `json:"issn"`
	ISBN           string   `json:"isbn"`
	DOI            string   `json:"doi"`
	URL            string   `json:"portalUrl"`
	Abstract       string   `json:"abstract"`
	Type           string   `json:"type"`
	PublishedOn    string   `json:"publicationDate"`
	CitationsTotal int      `json:"totalScopusCitations"`
	Authors        []author `json:"personAssociations"`
}

type author struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// Importer parst den JSON-Export des Research-Information-Systems (Pure).
type Importer struct {
	Logger *zap.Logger
}

// NewImporter erstellt eine neue Instanz des Pure-Importers.
func NewImporter(logger *zap.Logger) *Importer {
	return &Importer{Logger: logger}
}

// Name gibt den Namen der Quelle zurück.
func (i *Importer) Name() string {
	return models.SourcePure
}

// Rows liest den JSON-Export. Items ohne UUID oder Titel landen als RowError
// in der Fehlerliste; ein unparsbarer Export ist fatal.
func (i *Importer) Rows(r io.Reader) ([]importers.Row, []importers.RowError, error) {
	var exp export
	if err := json.NewDecoder(r).Decode(&exp); err != nil {
		return nil, nil, fmt.Errorf("pure-export dekodieren: %w", err)
	}

	var rows []importers.Row
	var rowErrs []importers.RowError
	for idx, it := range exp.Items {
		if strings.TrimSpace(it.UUID) == "" {
			rowErrs = append(rowErrs, importers.RowError{
				SourceIdentifier: fmt.Sprintf("item %d", idx),
				Reason:           "leere uuid",
			})
			continue
		}
		if strings.TrimSpace(it.Title) == "" {
			rowErrs = append(rowErrs, importers.RowError{
				SourceIdentifier: it.UUID,
				Reason:           "leerer titel",
			})
			continue
		}

		row := importers.Row{
			SourceIdentifier:     it.UUID,
			Title:                strings.TrimSpace(it.Title),
			SecondaryTitle:       strings.TrimSpace(it.SubTitle),
			JournalTitle:         strings.TrimSpace(it.JournalTitle),
			PublisherName:        strings.TrimSpace(it.Publisher),
			Status:               normalizeStatus(it.Status),
			Volume:               it.Volume,
			Issue:                it.Issue,
			Edition:              it.Edition,
			PageRange:            it.Pages,
			ISSN:                 it.ISSN,
			ISBN:                 it.ISBN,
			DOI:                  strings.TrimSpace(strings.ToLower(it.DOI)),
			URL:                  it.URL,
			Abstract:             it.Abstract,
			PublicationType:      it.Type,
			TotalScopusCitations: it.CitationsTotal,
			PublishedOn:          parseDate(it.PublishedOn),
		}

		for pos, a := range it.Authors {
			c := importers.Contributor{
				FirstName: strings.TrimSpace(a.FirstName),
				LastName:  strings.TrimSpace(a.LastName),
				Position:  pos + 1,
			}
			if strings.TrimSpace(a.Role) != "" {
				role := strings.TrimSpace(a.Role)
				c.Role = &role
			}
			if c.FirstName == "" && c.LastName == "" {
				continue
			}
			row.Contributors = append(row.Contributors, c)
		}

		raw, _ := json.Marshal(it)
		row.Raw = raw
		rows = append(rows, row)
	}

	i.Logger.Info("Pure-Export geparst",
		zap.Int("rows", len(rows)), zap.Int("row_errors", len(rowErrs)))
	return rows, rowErrs, nil
}

// normalizeStatus mappt Pure-Status auf die kanonischen Werte.
func normalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "published":
		return models.StatusPublished
	case "in press", "inpress", "epub ahead of print":
		return models.StatusInPress
	default:
		return strings.TrimSpace(s)
	}
}

// parseDate akzeptiert volle Daten und reine Jahresangaben.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
