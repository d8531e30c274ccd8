package activityinsight

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"scholar-sweep/importers"
	"scholar-sweep/models"
)

// Spalten-Familien im Activity-Insight-Export sind durchnummeriert
// (CONTYPE1..CONTYPEn, AUTHOR1_FNAME..). Die Regexe zerlegen die Header.
var (
	contypeRegex = regexp.MustCompile(`^CONTYPE(\d+)$`)
	authorRegex  = regexp.MustCompile(`^AUTHOR(\d+)_(FNAME|MNAME|LNAME|ROLE)$`)
)

// Importer parst den CSV-Export des Faculty-Activity-Systems in normalisierte
// Kandidaten-Zeilen.
type Importer struct {
	Logger *zap.Logger
}

// NewImporter erstellt eine neue Instanz des Activity-Insight-Importers.
func NewImporter(logger *zap.Logger) *Importer {
	return &Importer{Logger: logger}
}

// Name gibt den Namen der Quelle zurück.
func (i *Importer) Name() string {
	return models.SourceActivityInsight
}

// Rows liest den CSV-Export. Zeilen ohne ID oder Titel werden als RowError
// gesammelt und übersprungen; ein kaputter Header ist fatal.
func (i *Importer) Rows(r io.Reader) ([]importers.Row, []importers.RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("csv-header lesen: %w", err)
	}
	col := map[string]int{}
	for idx, name := range header {
		col[strings.ToUpper(strings.TrimSpace(name))] = idx
	}
	if _, ok := col["ID"]; !ok {
		return nil, nil, fmt.Errorf("csv-export ohne ID-spalte")
	}

	var rows []importers.Row
	var rowErrs []importers.RowError
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, importers.RowError{
				SourceIdentifier: fmt.Sprintf("zeile %d", line),
				Reason:           err.Error(),
			})
			continue
		}

		row, err := i.parseRecord(header, col, record)
		if err != nil {
			id := cell(record, col, "ID")
			if id == "" {
				id = fmt.Sprintf("zeile %d", line)
			}
			rowErrs = append(rowErrs, importers.RowError{SourceIdentifier: id, Reason: err.Error()})
			continue
		}
		rows = append(rows, row)
	}

	i.Logger.Info("Activity-Insight-Export geparst",
		zap.Int("rows", len(rows)), zap.Int("row_errors", len(rowErrs)))
	return rows, rowErrs, nil
}

func (i *Importer) parseRecord(header []string, col map[string]int, record []string) (importers.Row, error) {
	id := cell(record, col, "ID")
	if id == "" {
		return importers.Row{}, fmt.Errorf("leere ID")
	}
	title := cell(record, col, "TITLE")
	if title == "" {
		return importers.Row{}, fmt.Errorf("leerer titel")
	}

	row := importers.Row{
		SourceIdentifier: id,
		Title:            title,
		SecondaryTitle:   cell(record, col, "TITLE_SECONDARY"),
		JournalTitle:     cell(record, col, "JOURNAL_NAME"),
		PublisherName:    cell(record, col, "PUBLISHER"),
		Status:           cell(record, col, "STATUS"),
		Volume:           cell(record, col, "VOLUME"),
		Issue:            cell(record, col, "ISSUE"),
		Edition:          cell(record, col, "EDITION"),
		PageRange:        cell(record, col, "PAGENUM"),
		ISSN:             cell(record, col, "ISBNISSN"),
		DOI:              normalizeDOI(cell(record, col, "WEB_ADDRESS")),
		Abstract:         cell(record, col, "ABSTRACT"),
	}

	// Publikationstyp: letzte belegte, nicht-"Other" CONTYPE-Spalte gewinnt;
	// die explizite CONTYPEOTHER-Spalte schlägt den Sentinel.
	row.PublicationType = i.publicationType(header, record, col)

	row.PublishedOn = parseDate(
		cell(record, col, "DTY_PUB"),
		cell(record, col, "DTM_PUB"),
		cell(record, col, "DTD_PUB"),
	)

	row.Contributors = parseAuthors(header, record)

	payload := map[string]string{}
	for idx, name := range header {
		if idx < len(record) && strings.TrimSpace(record[idx]) != "" {
			payload[name] = record[idx]
		}
	}
	raw, _ := json.Marshal(payload)
	row.Raw = raw

	return row, nil
}

// publicationType sammelt alle CONTYPE-Spalten in Nummernreihenfolge ein und
// wendet die Last-Non-Blank-Regel an.
func (i *Importer) publicationType(header []string, record []string, col map[string]int) string {
	type numbered struct {
		n     int
		value string
	}
	var values []numbered
	for idx, name := range header {
		m := contypeRegex.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(name)))
		if m == nil || idx >= len(record) {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		values = append(values, numbered{n, record[idx]})
	}
	sort.Slice(values, func(a, b int) bool { return values[a].n < values[b].n })

	ordered := make([]string, 0, len(values))
	for _, v := range values {
		ordered = append(ordered, v.value)
	}
	picked := importers.LastNonBlank(ordered, models.PublicationTypeOther)
	if strings.EqualFold(picked, models.PublicationTypeOther) {
		if other := cell(record, col, "CONTYPEOTHER"); other != "" {
			return other
		}
		return models.PublicationTypeOther
	}
	return picked
}

// parseAuthors sammelt AUTHORn_*-Spalten zu Contributor-Einträgen.
func parseAuthors(header []string, record []string) []importers.Contributor {
	byNumber := map[int]*importers.Contributor{}
	for idx, name := range header {
		m := authorRegex.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(name)))
		if m == nil || idx >= len(record) {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		c, ok := byNumber[n]
		if !ok {
			c = &importers.Contributor{Position: n}
			byNumber[n] = c
		}
		value := strings.TrimSpace(record[idx])
		switch m[2] {
		case "FNAME":
			c.FirstName = value
		case "MNAME":
			c.MiddleName = value
		case "LNAME":
			c.LastName = value
		case "ROLE":
			if value != "" {
				role := value
				c.Role = &role
			}
		}
	}

	numbers := make([]int, 0, len(byNumber))
	for n := range byNumber {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	var contributors []importers.Contributor
	for _, n := range numbers {
		c := byNumber[n]
		if c.FirstName == "" && c.LastName == "" {
			continue
		}
		contributors = append(contributors, *c)
	}
	return contributors
}

// parseDate baut aus Jahr/Monat/Tag-Spalten ein Datum; fehlende Teile fallen
// auf Januar bzw. den Ersten zurück, ohne Jahr gibt es kein Datum.
func parseDate(year, month, day string) *time.Time {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y == 0 {
		return nil
	}
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil || m < 1 || m > 12 {
		m = 1
	}
	d, err := strconv.Atoi(strings.TrimSpace(day))
	if err != nil || d < 1 || d > 31 {
		d = 1
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return &t
}

// normalizeDOI entfernt URL-Präfixe, Nicht-DOI-Adressen ergeben einen leeren DOI.
func normalizeDOI(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimPrefix(s, "https://doi.org/")
	s = strings.TrimPrefix(s, "http://doi.org/")
	s = strings.TrimPrefix(s, "doi:")
	if !strings.HasPrefix(s, "10.") {
		return ""
	}
	return s
}

func cell(record []string, col map[string]int, name string) string {
	idx, ok := col[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
