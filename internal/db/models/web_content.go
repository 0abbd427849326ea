package models

import "time"

// WebContent is a slugged content record. Language-independent asset paths
// live directly on the record; translated text lives in web_content_translations.
type WebContent struct {
	ID   uint64 `gorm:"primaryKey"`
	Slug string `gorm:"unique;size:100;not null"`

	// Relative storage paths of the record level images (empty if not set).
	HeaderImage  string `gorm:"size:255"`
	SecTwoImage  string `gorm:"size:255"`
	SecFourImage string `gorm:"size:255"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the database table name for the WebContent model.
func (WebContent) TableName() string {
	return "web_contents"
}
