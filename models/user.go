package models

import "time"

// User ist eine bekannte Person der Einrichtung, mit der Autorennamen und
// Authorships verknüpft werden können.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WebaccessID string `json:"webaccess_id" gorm:"uniqueIndex;not null"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	ORCID       string `json:"orcid,omitempty" gorm:"column:orcid"`
}

// TableName gibt explizit den Tabellennamen an.
func (User) TableName() string {
	return "users"
}
