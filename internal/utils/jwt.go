package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pagebrief/entitlement-service/internal/domain"
)

// JWTManager manages bearer-token operations. Tokens are self-describing
// but not self-sufficient: a parsed token still has to pass a credential
// store lookup before it authenticates anything.
type JWTManager struct {
	secret        []byte
	credentialTTL time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, credentialTTL time.Duration) *JWTManager {
	return &JWTManager{
		secret:        []byte(secret),
		credentialTTL: credentialTTL,
	}
}

// GenerateCredential signs a new bearer token for the given identity. The
// premium claim is an advisory cache of subscription state at issue time.
func (j *JWTManager) GenerateCredential(userID, email string, premium bool) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(j.credentialTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"premium": premium,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
		"jti":     uuid.New().String(),
	})

	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ParseCredential validates a token's structure and signature and returns
// its claims. Expired tokens surface jwt.ErrTokenExpired via errors.Is.
func (j *JWTManager) ParseCredential(tokenString string) (*domain.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid user_id in token")
	}

	email, ok := claims["email"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid email in token")
	}

	premium, _ := claims["premium"].(bool)

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid exp in token")
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid iat in token")
	}

	return &domain.TokenClaims{
		UserID:  userID,
		Email:   email,
		Premium: premium,
		Exp:     int64(exp),
		Iat:     int64(iat),
	}, nil
}

// GetCredentialTTL returns the credential lifetime in seconds
func (j *JWTManager) GetCredentialTTL() int {
	return int(j.credentialTTL.Seconds())
}
