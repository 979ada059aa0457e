package domain

import "time"

// User represents an identity in the system
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Credential represents an issued bearer token record. Only a one-way
// fingerprint of the token is stored, never the token itself.
type Credential struct {
	ID               string    `json:"id" db:"id"`
	UserID           string    `json:"user_id" db:"user_id"`
	TokenFingerprint string    `json:"-" db:"token_fingerprint"`
	ExpiresAt        time.Time `json:"expires_at" db:"expires_at"`
	Revoked          bool      `json:"revoked" db:"revoked"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// Valid reports whether the credential can still authenticate requests.
// Revocation takes effect before natural expiry.
func (c Credential) Valid(now time.Time) bool {
	return !c.Revoked && now.Before(c.ExpiresAt)
}
