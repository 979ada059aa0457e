package repository

import (
	"context"

	"github.com/pagebrief/entitlement-service/internal/domain"
)

// UserRepository defines methods for identity operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// CredentialRepository defines methods for bearer-credential operations.
// Credentials are never updated except to flip the revoked flag, and are
// hard-deleted only by the expiry sweep.
type CredentialRepository interface {
	Create(ctx context.Context, cred *domain.Credential) error
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Credential, error)
	RevokeByFingerprint(ctx context.Context, fingerprint string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// UsageRepository defines methods for the usage ledger. The unique
// constraint on (user_id, domain) is the correctness mechanism for
// concurrent first-use of a domain; Record must be a single atomic
// insert-if-absent.
type UsageRepository interface {
	Record(ctx context.Context, rec *domain.UsageRecord) (inserted bool, err error)
	Exists(ctx context.Context, userID, domain string) (bool, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

// SubscriptionRepository defines methods for the subscription mirror.
// Upsert replaces the whole record keyed by user id so that at-least-once,
// out-of-order webhook deliveries converge.
type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *domain.Subscription) error
	GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error)
	GetByProviderSubscriptionID(ctx context.Context, providerSubID string) (*domain.Subscription, error)
}
