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

// subscriptionRepository implements SubscriptionRepository interface
type subscriptionRepository struct {
	db *database.Postgres
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *database.Postgres) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Upsert inserts or fully replaces the subscription row for a user. Each
// provider event carries a complete snapshot, so replacing every column
// keeps repeated or out-of-order deliveries convergent.
func (r *subscriptionRepository) Upsert(ctx context.Context, sub *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, user_id, provider_customer_id, provider_subscription_id,
			status, plan, current_period_start, current_period_end,
			cancel_at_period_end, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			provider_customer_id = EXCLUDED.provider_customer_id,
			provider_subscription_id = EXCLUDED.provider_subscription_id,
			status = EXCLUDED.status,
			plan = EXCLUDED.plan,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			updated_at = EXCLUDED.updated_at
	`

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	sub.UpdatedAt = time.Now()

	_, err := r.db.DB.ExecContext(ctx, query,
		sub.ID,
		sub.UserID,
		sub.ProviderCustomerID,
		sub.ProviderSubscriptionID,
		string(sub.Status),
		string(sub.Plan),
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return nil
}

func (r *subscriptionRepository) scanOne(row *sql.Row, wrap string) (*domain.Subscription, error) {
	sub := &domain.Subscription{}
	var status, plan string

	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.ProviderCustomerID,
		&sub.ProviderSubscriptionID,
		&status,
		&plan,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.CancelAtPeriodEnd,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", wrap, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", wrap, err)
	}

	sub.Status = domain.SubscriptionStatus(status)
	sub.Plan = domain.Plan(plan)
	return sub, nil
}

const subscriptionColumns = `id, user_id, provider_customer_id, provider_subscription_id,
		status, plan, current_period_start, current_period_end, cancel_at_period_end, updated_at`

// GetByUserID retrieves the subscription mirror for a user
func (r *subscriptionRepository) GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`

	row := r.db.DB.QueryRowContext(ctx, query, userID)
	return r.scanOne(row, "subscription for user "+userID+" not found")
}

// GetByProviderSubscriptionID retrieves a subscription by the provider's id
func (r *subscriptionRepository) GetByProviderSubscriptionID(ctx context.Context, providerSubID string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE provider_subscription_id = $1`

	row := r.db.DB.QueryRowContext(ctx, query, providerSubID)
	return r.scanOne(row, "subscription "+providerSubID+" not found")
}
