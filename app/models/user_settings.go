package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// UserSettings stores per-member preferences plus the API key material for
// the JSON API. Only the SHA-256 hash of a key is persisted; the raw secret
// is shown once at creation.
type UserSettings struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UserID           uint           `gorm:"uniqueIndex" json:"user_id"`
	Newsletter       bool           `gorm:"default:true" json:"newsletter"`
	ProfileVisible   bool           `gorm:"default:true" json:"profile_visible"`
	APIKeyHash       string         `gorm:"type:char(64);default:''" json:"-"`
	APIKeyPrefix     string         `gorm:"type:varchar(20);default:''" json:"api_key_prefix"`
	APIKeyCreatedAt  *time.Time     `json:"api_key_created_at"`
	APIKeyLastUsedAt *time.Time     `json:"api_key_last_used_at"`
	APIKeyRevokedAt  *time.Time     `json:"api_key_revoked_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

const (
	apiKeyPrefix = "mfx_"
	// leading characters kept in clear for identifying a key in the UI
	apiKeyDisplayChars = 16
)

var apiKeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GetOrCreateUserSettings returns the member's settings row, creating it
// with defaults on first access.
func GetOrCreateUserSettings(db *gorm.DB, userID uint) (*UserSettings, error) {
	var settings UserSettings
	err := db.Where("user_id = ?", userID).First(&settings).Error
	switch {
	case err == nil:
		return &settings, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		settings = UserSettings{UserID: userID, Newsletter: true, ProfileVisible: true}
		if err := db.Create(&settings).Error; err != nil {
			return nil, err
		}
		return &settings, nil
	default:
		return nil, err
	}
}

// HasActiveAPIKey reports whether the member holds a usable API key.
func (us *UserSettings) HasActiveAPIKey() bool {
	return us != nil && us.APIKeyHash != "" && us.APIKeyRevokedAt == nil
}

// IssueAPIKey replaces the member's API key and returns the raw secret.
// The caller persists the struct afterwards.
func (us *UserSettings) IssueAPIKey() (string, error) {
	raw, err := newRawAPIKey()
	if err != nil {
		return "", err
	}

	now := time.Now()
	us.APIKeyHash = HashAPIKey(raw)
	us.APIKeyPrefix = raw[:apiKeyDisplayChars]
	us.APIKeyCreatedAt = &now
	us.APIKeyLastUsedAt = nil
	us.APIKeyRevokedAt = nil
	return raw, nil
}

// RevokeAPIKey invalidates the stored key without deleting the row.
func (us *UserSettings) RevokeAPIKey() {
	now := time.Now()
	us.APIKeyHash = ""
	us.APIKeyPrefix = ""
	us.APIKeyRevokedAt = &now
	us.APIKeyLastUsedAt = nil
}

// TouchAPIKeyUsage records that the key was just used.
func (us *UserSettings) TouchAPIKeyUsage() {
	now := time.Now()
	us.APIKeyLastUsedAt = &now
}

// HashAPIKey returns the hex SHA-256 of a raw key, the form stored in and
// matched against the database.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

// newRawAPIKey builds a fresh key: the mfx_ marker plus 32 random bytes in
// lowercase base32, 56 characters total.
func newRawAPIKey() (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}
	return apiKeyPrefix + strings.ToLower(apiKeyEncoding.EncodeToString(secret)), nil
}
