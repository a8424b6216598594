package models

import "time"

// SecretRecord stores the credential material and metadata for one
// configured identity of one provider. The material is either a static
// key (AccessToken only) or an OAuth triple (AccessToken + RefreshToken
// + client reference).
type SecretRecord struct {
	ID           string `gorm:"primaryKey"` // UUID
	Provider     string `gorm:"uniqueIndex:idx_provider_identity"`
	IdentityKey  string `gorm:"uniqueIndex:idx_provider_identity"` // e.g. an email, or "default"
	AccessToken  string
	RefreshToken string
	ClientID     string
	ClientSecret string    // literal value or an env:// reference
	ExpiresAt    time.Time // zero for static keys
	Capabilities string    // JSON object of capability name -> bool
	Metadata     string    // JSON blob for provider-specific extras
	LastUsedAt   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsStatic reports whether the record is a plain key that never needs
// refreshing (no refresh token and no expiry).
func (r *SecretRecord) IsStatic() bool {
	return r.RefreshToken == "" && r.ExpiresAt.IsZero()
}

// Refreshable reports whether a refresh mechanism exists for this record.
// A record with a refresh token but no expiry is treated as non-expiring
// until the provider's first 401.
func (r *SecretRecord) Refreshable() bool {
	return r.RefreshToken != ""
}
