package models

import "time"

// WebContentTranslation holds the serialized field map of a content record
// for one language. At most one row exists per (content, language) pair,
// enforced by upsert-by-key semantics and a composite unique index.
type WebContentTranslation struct {
	ID uint64 `gorm:"primaryKey"`
	// WebContentID is the owning content record.
	WebContentID uint64 `gorm:"not null;uniqueIndex:idx_translations_content_language"`
	// Language is the language code of this translation (e.g. "en").
	Language string `gorm:"size:10;not null;uniqueIndex:idx_translations_content_language"`
	// TranslatedValue is the JSON-serialized field map.
	TranslatedValue string `gorm:"type:text"`
	// WebContent is the owning record; translations are removed with it (CASCADE).
	WebContent WebContent `gorm:"foreignKey:WebContentID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the database table name for the WebContentTranslation model.
func (WebContentTranslation) TableName() string {
	return "web_content_translations"
}
