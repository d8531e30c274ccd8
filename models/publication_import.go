package models

import (
	"time"

	"gorm.io/datatypes"
)

// Bekannte Import-Quellen. Die Reihenfolge der Bevorzugung beim Merge ist
// Pure vor Activity Insight vor allen übrigen Quellen.
const (
	SourcePure            = "pure"
	SourceActivityInsight = "activity_insight"
	SourceRepositoryOAI   = "repository_oai"
	SourceBibExport       = "bib_export"
)

// PublicationImport ist der Herkunftsnachweis: eine Zeile pro (Quelle, Quell-ID),
// die auf eine Publikation zeigt. Eine Publikation kann mehrere Imports haben,
// einen pro Quelle, aus der sie eingelesen wurde.
type PublicationImport struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PublicationID uint `json:"publication_id" gorm:"index;not null"`

	Source           string `json:"source" gorm:"index:idx_publication_imports_source_identifier,unique;not null"`
	SourceIdentifier string `json:"source_identifier" gorm:"index:idx_publication_imports_source_identifier,unique;not null"`

	// Roh-Payload der Quelle, für Nachvollziehbarkeit und manuelle Prüfung
	RawRecord datatypes.JSON `json:"raw_record,omitempty" gorm:"type:jsonb"`
}

// TableName gibt explizit den Tabellennamen an.
func (PublicationImport) TableName() string {
	return "publication_imports"
}

// SourceRank liefert den Bevorzugungsrang einer Quelle (kleiner ist besser).
func SourceRank(source string) int {
	switch source {
	case SourcePure:
		return 0
	case SourceActivityInsight:
		return 1
	default:
		return 2
	}
}
