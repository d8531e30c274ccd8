package models

import (
	"strings"
	"time"
)

// PublicationStatus-Werte, wie sie von den Quellsystemen geliefert werden.
const (
	StatusInPress   = "In Press"
	StatusPublished = "Published"
)

// PublicationTypeOther ist der Sentinel-Wert für untypisierte Publikationen.
const PublicationTypeOther = "Other"

// Publication repräsentiert den kanonischen Datensatz einer wissenschaftlichen Arbeit.
// Ein Datensatz mit gesetztem UpdatedByUserAt wurde von einem Menschen bearbeitet
// und darf von automatischen Importen nicht mehr überschrieben werden.
type Publication struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title          string `json:"title" gorm:"type:text;not null"`
	SecondaryTitle string `json:"secondary_title,omitempty" gorm:"type:text"`

	// Journal entweder als FK oder als Freitext aus der Quelle
	JournalID     *uint    `json:"journal_id,omitempty" gorm:"index"`
	Journal       *Journal `json:"journal,omitempty"`
	JournalTitle  string   `json:"journal_title,omitempty"`
	PublisherName string   `json:"publisher_name,omitempty"`

	PublishedOn     *time.Time `json:"published_on,omitempty"`
	Status          string     `json:"status,omitempty" gorm:"index"`
	Volume          string     `json:"volume,omitempty"`
	Issue           string     `json:"issue,omitempty"`
	Edition         string     `json:"edition,omitempty"`
	PageRange       string     `json:"page_range,omitempty"`
	ISSN            string     `json:"issn,omitempty" gorm:"column:issn"`
	ISBN            string     `json:"isbn,omitempty" gorm:"column:isbn"`
	DOI             string     `json:"doi,omitempty" gorm:"column:doi;index"`
	URL             string     `json:"url,omitempty"`
	Abstract        string     `json:"abstract,omitempty" gorm:"type:text"`
	PublicationType string     `json:"publication_type,omitempty" gorm:"index"`

	AuthorsEtAl          bool `json:"authors_et_al"`
	TotalScopusCitations int  `json:"total_scopus_citations" gorm:"default:0"`

	// Sichtbarkeit: Verlierer eines Merges werden ausgeblendet, nie hart gelöscht.
	Visible bool `json:"visible" gorm:"default:true"`

	DuplicateGroupID *uint           `json:"duplicate_group_id,omitempty" gorm:"index"`
	DuplicateGroup   *DuplicateGroup `json:"-"`

	NonDuplicateGroups []NonDuplicateGroup `json:"-" gorm:"many2many:non_duplicate_group_memberships"`

	// Gesetzt, sobald ein Mensch den Datensatz bearbeitet hat (Überschreibsperre).
	UpdatedByUserAt *time.Time `json:"updated_by_user_at,omitempty"`

	DOIVerified *bool `json:"doi_verified,omitempty" gorm:"column:doi_verified"`

	Imports             []PublicationImport  `json:"imports,omitempty"`
	ContributorNames    []ContributorName    `json:"contributor_names,omitempty"`
	Authorships         []Authorship         `json:"authorships,omitempty"`
	OpenAccessLocations []OpenAccessLocation `json:"open_access_locations,omitempty"`
}

// TableName gibt explizit den Tabellennamen an.
func (Publication) TableName() string {
	return "publications"
}

// PublishedYear liefert das Erscheinungsjahr oder nil, falls kein Datum bekannt ist.
func (p *Publication) PublishedYear() *int {
	if p.PublishedOn == nil {
		return nil
	}
	y := p.PublishedOn.Year()
	return &y
}

// HasBlankDOI meldet, ob der DOI fehlt oder nur aus Whitespace besteht.
func (p *Publication) HasBlankDOI() bool {
	return strings.TrimSpace(p.DOI) == ""
}

// EditedByUser meldet, ob der Datensatz unter der Überschreibsperre steht.
func (p *Publication) EditedByUser() bool {
	return p.UpdatedByUserAt != nil
}
