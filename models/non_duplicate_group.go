package models

import "time"

// NonDuplicateGroup ist eine von Nutzern gepflegte Ausnahme: die enthaltenen
// Publikationen sind ausdrücklich NICHT dieselbe Arbeit. Der Sweep darf
// Paare aus derselben NonDuplicateGroup nie wieder zusammenführen.
type NonDuplicateGroup struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Publications []Publication `json:"publications,omitempty" gorm:"many2many:non_duplicate_group_memberships"`
}

// TableName gibt explizit den Tabellennamen an.
func (NonDuplicateGroup) TableName() string {
	return "non_duplicate_groups"
}
