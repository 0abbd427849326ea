package models

import "time"

// AccessToken represents an issued bearer token owned by a user.
// Only the SHA-256 hash of the token secret is stored; the plaintext is
// shown once at issue time.
type AccessToken struct {
	// ID is the unique identifier for the token.
	ID uint64 `gorm:"primaryKey"`
	// UserID is the ID of the owning user.
	UserID uint64 `gorm:"not null;index"`
	// Name labels the token (e.g. "authToken").
	Name string `gorm:"size:100"`
	// TokenHash is the SHA-256 hex digest of the token secret.
	TokenHash string `gorm:"size:64;uniqueIndex;not null"`
	// LastUsedAt is the time the token last authenticated a request (nil if never).
	LastUsedAt *time.Time
	// User is the owning user (loaded via foreign key).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the token was issued (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the AccessToken model.
func (AccessToken) TableName() string {
	return "access_tokens"
}
