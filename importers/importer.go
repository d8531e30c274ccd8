package importers

import (
	"encoding/json"
	"io"
	"strings"
	"time"
)

// Contributor ist ein Autorenname, wie ihn eine Quelle liefert.
type Contributor struct {
	FirstName  string
	MiddleName string
	LastName   string
	Position   int
	Role       *string
}

// Row ist die normalisierte Kandidaten-Publikation, die jeder Importer an den
// Import-Funnel übergibt: die Publikationsfelder plus Quell-Identifikator und
// Roh-Payload für den Herkunftsnachweis.
type Row struct {
	SourceIdentifier string

	Title          string
	SecondaryTitle string
	JournalTitle   string
	PublisherName  string

	PublishedOn     *time.Time
	Status          string
	Volume          string
	Issue           string
	Edition         string
	PageRange       string
	ISSN            string
	ISBN            string
	DOI             string
	URL             string
	Abstract        string
	PublicationType string

	AuthorsEtAl          bool
	TotalScopusCitations int

	Contributors []Contributor

	Raw json.RawMessage
}

// RowError hält einen nicht-fatalen Zeilenfehler fest: Quell-Identifikator
// plus Grund, damit der Fehler später manuell nachvollziehbar ist.
type RowError struct {
	SourceIdentifier string `json:"source_identifier"`
	Reason           string `json:"reason"`
}

// Importer ist das Interface, das jeder Quell-Importer (z.B. Activity Insight,
// Pure) implementieren muss.
type Importer interface {
	// Name gibt den eindeutigen Quellnamen zurück (z.B. "activity_insight").
	Name() string

	// Rows parst eine Export-Datei in normalisierte Zeilen. Zeilenfehler werden
	// gesammelt zurückgegeben und brechen das Parsen nicht ab; nur strukturelle
	// Fehler (unlesbares Format) sind fatal.
	Rows(r io.Reader) ([]Row, []RowError, error)
}

// LastNonBlank liefert aus einer geordneten Liste gleichbedeutender Felder den
// letzten Wert, der weder leer noch der Sentinel ist (Vergleich ohne
// Groß-/Kleinschreibung). Fällt auf den letzten nicht-leeren Wert zurück, wenn
// alle belegten Werte dem Sentinel entsprechen.
func LastNonBlank(values []string, sentinel string) string {
	lastBlankFallback := ""
	for i := len(values) - 1; i >= 0; i-- {
		v := strings.TrimSpace(values[i])
		if v == "" {
			continue
		}
		if strings.EqualFold(v, sentinel) {
			if lastBlankFallback == "" {
				lastBlankFallback = v
			}
			continue
		}
		return v
	}
	return lastBlankFallback
}
