package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/silkcms/silk-admin/internal/db/models"
	"github.com/silkcms/silk-admin/internal/uniuri"
)

// tokenSecretLen is the length of the random token secret.
const tokenSecretLen = 48

// hashTokenSecret returns the SHA-256 hex digest of a token secret.
func hashTokenSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// IssueToken creates a new access token for the user and returns its
// plaintext in the form "<id>|<secret>". The plaintext is not stored and
// cannot be recovered later.
func (s *Service) IssueToken(userID uint64, name string) (string, error) {
	secret := uniuri.NewLen(tokenSecretLen)

	token := models.AccessToken{
		UserID:    userID,
		Name:      name,
		TokenHash: hashTokenSecret(secret),
	}

	if err := s.db.Create(&token).Error; err != nil {
		return "", fmt.Errorf("failed to create access token: %w", err)
	}

	return fmt.Sprintf("%d|%s", token.ID, secret), nil
}

// AuthenticateToken resolves a bearer token plaintext to its user.
// The stored hash is compared in constant time. The token's LastUsedAt
// is updated best effort.
func (s *Service) AuthenticateToken(bearer string) (*models.User, *models.AccessToken, error) {
	id, secret, ok := splitToken(bearer)
	if !ok {
		return nil, nil, ErrInvalidToken
	}

	var token models.AccessToken

	err := s.db.First(&token, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrInvalidToken
	}

	if err != nil {
		return nil, nil, fmt.Errorf("failed to query access token: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(token.TokenHash), []byte(hashTokenSecret(secret))) != 1 {
		return nil, nil, ErrInvalidToken
	}

	var user models.User
	if err := s.db.First(&user, token.UserID).Error; err != nil {
		return nil, nil, ErrInvalidToken
	}

	if !user.Enabled {
		return nil, nil, ErrUserAccountDisabled
	}

	now := time.Now()
	s.db.Model(&token).Update("last_used_at", &now)

	return &user, &token, nil
}

// RevokeToken deletes a single access token.
func (s *Service) RevokeToken(tokenID uint64) error {
	return s.db.Delete(&models.AccessToken{}, tokenID).Error
}

// RevokeUserTokens deletes every access token owned by a user.
func (s *Service) RevokeUserTokens(userID uint64) error {
	return s.db.Where("user_id = ?", userID).Delete(&models.AccessToken{}).Error
}

// splitToken parses the "<id>|<secret>" plaintext form.
func splitToken(bearer string) (uint64, string, bool) {
	idPart, secret, found := strings.Cut(bearer, "|")
	if !found || secret == "" {
		return 0, "", false
	}

	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil || id == 0 {
		return 0, "", false
	}

	return id, secret, true
}
