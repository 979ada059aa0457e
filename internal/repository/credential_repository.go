package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pagebrief/entitlement-service/internal/domain"
	"github.com/pagebrief/entitlement-service/pkg/database"
)

// credentialRepository implements CredentialRepository interface
type credentialRepository struct {
	db *database.Postgres
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *database.Postgres) CredentialRepository {
	return &credentialRepository{db: db}
}

// Create stores a new credential row for an issued token
func (r *credentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	query := `
		INSERT INTO credentials (id, user_id, token_fingerprint, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if cred.ID == "" {
		cred.ID = uuid.New().String()
	}
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		cred.ID,
		cred.UserID,
		cred.TokenFingerprint,
		cred.ExpiresAt,
		cred.Revoked,
		cred.CreatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				return fmt.Errorf("credential fingerprint already exists: %w", ErrDuplicateFingerprint)
			}
		}
		return fmt.Errorf("failed to create credential: %w", err)
	}

	return nil
}

// GetByFingerprint retrieves a credential by its token fingerprint
func (r *credentialRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Credential, error) {
	query := `
		SELECT id, user_id, token_fingerprint, expires_at, revoked, created_at
		FROM credentials
		WHERE token_fingerprint = $1
	`

	cred := &domain.Credential{}

	err := r.db.DB.QueryRowContext(ctx, query, fingerprint).Scan(
		&cred.ID,
		&cred.UserID,
		&cred.TokenFingerprint,
		&cred.ExpiresAt,
		&cred.Revoked,
		&cred.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credential not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get credential by fingerprint: %w", err)
	}

	return cred, nil
}

// RevokeByFingerprint flips the revoked flag for the matching credential.
// Revoking an unknown or already-revoked credential is not an error;
// logout is not an assertion of prior state.
func (r *credentialRepository) RevokeByFingerprint(ctx context.Context, fingerprint string) error {
	query := `UPDATE credentials SET revoked = true WHERE token_fingerprint = $1`

	_, err := r.db.DB.ExecContext(ctx, query, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to revoke credential: %w", err)
	}

	return nil
}

// DeleteExpired deletes credential rows already past their expiry. Safe to
// run concurrently with normal traffic; it only removes rows that can no
// longer authenticate anything.
func (r *credentialRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM credentials WHERE expires_at < $1`

	result, err := r.db.DB.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired credentials: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
