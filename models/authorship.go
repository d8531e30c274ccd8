package models

import "time"

// Authorship ist die bestätigte Verbindung User↔Publikation, eindeutig pro
// (user_id, publication_id), inklusive ORCID-Push-Buchhaltung.
type Authorship struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID        uint `json:"user_id" gorm:"index:idx_authorships_user_publication,unique;not null"`
	PublicationID uint `json:"publication_id" gorm:"index:idx_authorships_user_publication,unique;not null"`

	AuthorNumber int     `json:"author_number"`
	Role         *string `json:"role,omitempty"`
	Confirmed    bool    `json:"confirmed" gorm:"default:false"`

	OrcidResourceIdentifier *string `json:"orcid_resource_identifier,omitempty"`

	// Letzte Bearbeitung durch den besitzenden Autor selbst
	UpdatedByOwnerAt             *time.Time `json:"updated_by_owner_at,omitempty"`
	OpenAccessNotificationSentAt *time.Time `json:"open_access_notification_sent_at,omitempty"`
}

// TableName gibt explizit den Tabellennamen an.
func (Authorship) TableName() string {
	return "authorships"
}
