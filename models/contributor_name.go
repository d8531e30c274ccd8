package models

import (
	"strings"
	"time"
)

// ContributorName ist ein Autorenname, wie er an einer einzelnen Publikation
// hängt, geordnet über Position und optional mit einem bekannten User verknüpft.
// Nicht eindeutig: nach einem Merge bringt jede Quellpublikation ihre eigenen
// Zeilen mit, die der ContributorNameMergePolicy zusammenfaltet.
type ContributorName struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PublicationID uint `json:"publication_id" gorm:"index;not null"`

	UserID *uint `json:"user_id,omitempty" gorm:"index"`
	User   *User `json:"-"`

	FirstName  string  `json:"first_name,omitempty"`
	MiddleName string  `json:"middle_name,omitempty"`
	LastName   string  `json:"last_name,omitempty"`
	Position   int     `json:"position" gorm:"index"`
	Role       *string `json:"role,omitempty"`

	// Quelle, aus der dieser Name stammt (leer bei manueller Erfassung)
	Source string `json:"source,omitempty"`
}

// TableName gibt explizit den Tabellennamen an.
func (ContributorName) TableName() string {
	return "contributor_names"
}

// FullName setzt den vollständigen Namen aus den Einzelteilen zusammen.
func (c *ContributorName) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.FirstName, c.MiddleName, c.LastName} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, " ")
}
