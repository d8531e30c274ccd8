package models

import "time"

// DuplicateGroup ist eine Menge von Publikationen, die mutmaßlich dieselbe
// Arbeit beschreiben. Jede Publikation gehört zu höchstens einer Gruppe;
// Gruppen mit nur einem Mitglied werden gelöscht.
type DuplicateGroup struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Publications []Publication `json:"publications,omitempty"`
}

// TableName gibt explizit den Tabellennamen an.
func (DuplicateGroup) TableName() string {
	return "duplicate_groups"
}
