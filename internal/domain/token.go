package domain

import "time"

// TokenClaims represents the claims embedded in an issued bearer token.
// Premium is an advisory cache of the subscription state at issue time;
// entitlement decisions always re-read the subscription store.
type TokenClaims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Premium bool   `json:"premium"`
	Exp     int64  `json:"exp"`
	Iat     int64  `json:"iat"`
}

// IsExpired checks if the token is expired
func (tc TokenClaims) IsExpired() bool {
	return time.Now().Unix() > tc.Exp
}
