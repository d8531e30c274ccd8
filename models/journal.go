package models

import "time"

// Journal ist eine bekannte Zeitschrift, auf die Publikationen per FK zeigen.
type Journal struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title         string `json:"title" gorm:"index;not null"`
	PublisherName string `json:"publisher_name,omitempty"`
}

// TableName gibt explizit den Tabellennamen an.
func (Journal) TableName() string {
	return "journals"
}
