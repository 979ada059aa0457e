package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pagebrief/entitlement-service/internal/domain"
	"github.com/pagebrief/entitlement-service/pkg/database"
)

// usageRepository implements UsageRepository interface
type usageRepository struct {
	db *database.Postgres
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *database.Postgres) UsageRepository {
	return &usageRepository{db: db}
}

// Record inserts a usage record if none exists for (user, domain). The
// ON CONFLICT DO NOTHING on the composite unique key makes concurrent
// first-use of the same domain race-safe: exactly one insert wins and the
// loser observes inserted=false, which is a success, not an error.
func (r *usageRepository) Record(ctx context.Context, rec *domain.UsageRecord) (bool, error) {
	query := `
		INSERT INTO usage_records (id, user_id, domain, resource_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, domain) DO NOTHING
	`

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	var resourceURL sql.NullString
	if rec.ResourceURL != nil {
		resourceURL = sql.NullString{String: *rec.ResourceURL, Valid: true}
	}

	result, err := r.db.DB.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Domain,
		resourceURL,
		rec.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record usage: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return inserted > 0, nil
}

// Exists reports whether a usage record exists for (user, domain)
func (r *usageRepository) Exists(ctx context.Context, userID, dom string) (bool, error) {
	query := `SELECT 1 FROM usage_records WHERE user_id = $1 AND domain = $2`

	var one int
	err := r.db.DB.QueryRowContext(ctx, query, userID, dom).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check usage record: %w", err)
	}

	return true, nil
}

// CountByUser returns the number of distinct domains charged to a user
func (r *usageRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM usage_records WHERE user_id = $1`

	var count int
	err := r.db.DB.QueryRowContext(ctx, query, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage records: %w", err)
	}

	return count, nil
}
