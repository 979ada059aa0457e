package service

import (
	"context"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/pagebrief/entitlement-service/internal/domain"
	"github.com/pagebrief/entitlement-service/internal/dto"
)

// EntitlementService issues, verifies and revokes credentials and decides
// whether a metered action is allowed for an identity.
type EntitlementService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	VerifyCredential(ctx context.Context, token string) (*domain.TokenClaims, error)
	Logout(ctx context.Context, token string) error
	GetIdentity(ctx context.Context, userID string) (*dto.UserResponse, error)
	CheckEntitlement(ctx context.Context, userID, domain string) (*domain.UsageSnapshot, error)
	RecordUsage(ctx context.Context, userID, domain, resourceURL string) (*domain.UsageSnapshot, error)
}

// BillingService owns the checkout bootstrap path and the asynchronous
// reconciliation of subscription state from provider webhook events.
type BillingService interface {
	CreateCheckoutSession(ctx context.Context, userID, plan string) (string, error)
	CreatePortalSession(ctx context.Context, userID string) (string, error)
	GetSubscription(ctx context.Context, userID string) (*domain.Subscription, error)
	ProcessWebhookEvent(ctx context.Context, payload []byte, sigHeader string) error
}

// RevocationStore is the fast-path lookup for revoked credential
// fingerprints. Implemented by RevocationCache.
type RevocationStore interface {
	Add(ctx context.Context, fingerprint string, ttl time.Duration) error
	IsRevoked(ctx context.Context, fingerprint string) (bool, error)
}

// PaymentProvider abstracts the outbound payment-provider surface consumed
// by the billing service. Implemented by payments.Client; faked in tests.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, priceID, userID string) (string, error)
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	PriceIDForPlan(plan string) string
	PlanForPriceID(priceID string) string
	ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error)
}
