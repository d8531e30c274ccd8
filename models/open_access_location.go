package models

import "time"

// OpenAccessLocation ist ein bekannter frei zugänglicher Volltext-Fundort
// einer Publikation. Beim Merge wird über (source, url) dedupliziert.
type OpenAccessLocation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PublicationID uint   `json:"publication_id" gorm:"index;not null"`
	Source        string `json:"source" gorm:"index"`
	URL           string `json:"url" gorm:"type:text;not null"`
}

// TableName gibt explizit den Tabellennamen an.
func (OpenAccessLocation) TableName() string {
	return "open_access_locations"
}
