package models

import (
	"time"
)

// APIToken is a long-lived tenant credential. Only the fingerprint (for
// lookup) and the bcrypt hash (for confirmation) are persisted.
type APIToken struct {
	ID          string     `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID    string     `json:"tenant_id" gorm:"type:uuid;index;not null"`
	Prefix      string     `json:"prefix" gorm:"not null"`
	Fingerprint string     `json:"-" gorm:"uniqueIndex;not null"`
	SecretHash  string     `json:"-" gorm:"not null"`
	Revoked     bool       `json:"revoked" gorm:"not null;default:false"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// IssuedAPIToken is returned once, at creation. Plaintext is never stored.
type IssuedAPIToken struct {
	Token     *APIToken `json:"token"`
	Plaintext string    `json:"api_token"`
}

// HMACKey signs webhook payloads for one tenant. The secret is stored
// encrypted; only one version per tenant is active at a time.
type HMACKey struct {
	ID              string     `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID        string     `json:"tenant_id" gorm:"type:uuid;index;not null"`
	Version         int        `json:"version" gorm:"not null"`
	EncryptedSecret string     `json:"-" gorm:"not null"`
	Active          bool       `json:"active" gorm:"not null;default:true"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
	RetiredAt       *time.Time `json:"retired_at,omitempty"`
}

type IssuedHMACKey struct {
	Key       *HMACKey `json:"key"`
	Plaintext string   `json:"hmac_key"`
}

type TokenExchangeRequest struct {
	APIToken string `json:"api_token" validate:"required"`
}

type TokenExchangeResponse struct {
	JWTToken  string `json:"jwt_token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// SessionToken is the result of a token exchange. It is never persisted.
type SessionToken struct {
	Token     string
	TenantID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
