package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/pagebrief/entitlement-service/internal/domain"
	"github.com/pagebrief/entitlement-service/internal/repository"
)

// In-memory repository fakes. They honor the same contracts as the
// Postgres implementations, including the insert-if-absent semantics of
// the usage ledger and the full-record replace of the subscription mirror.

type fakeUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
	nextID  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]*domain.User),
	}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	if user.ID == "" {
		r.nextID++
		user.ID = fmt.Sprintf("user-%d", r.nextID)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	cp := *user
	r.byID[user.ID] = &cp
	r.byEmail[user.Email] = &cp
	return nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

type fakeCredentialRepo struct {
	mu            sync.Mutex
	byFingerprint map[string]*domain.Credential
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{byFingerprint: make(map[string]*domain.Credential)}
}

func (r *fakeCredentialRepo) Create(ctx context.Context, cred *domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byFingerprint[cred.TokenFingerprint]; ok {
		return repository.ErrDuplicateFingerprint
	}
	cp := *cred
	r.byFingerprint[cred.TokenFingerprint] = &cp
	return nil
}

func (r *fakeCredentialRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.byFingerprint[fingerprint]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *cred
	return &cp, nil
}

func (r *fakeCredentialRepo) RevokeByFingerprint(ctx context.Context, fingerprint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cred, ok := r.byFingerprint[fingerprint]; ok {
		cred.Revoked = true
	}
	return nil
}

func (r *fakeCredentialRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	now := time.Now()
	for fp, cred := range r.byFingerprint {
		if cred.ExpiresAt.Before(now) {
			delete(r.byFingerprint, fp)
			deleted++
		}
	}
	return deleted, nil
}

type fakeUsageRepo struct {
	mu      sync.Mutex
	records map[string]map[string]*domain.UsageRecord
	failing bool
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{records: make(map[string]map[string]*domain.UsageRecord)}
}

func (r *fakeUsageRepo) Record(ctx context.Context, rec *domain.UsageRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return false, fmt.Errorf("storage unavailable")
	}
	byDomain, ok := r.records[rec.UserID]
	if !ok {
		byDomain = make(map[string]*domain.UsageRecord)
		r.records[rec.UserID] = byDomain
	}
	if _, ok := byDomain[rec.Domain]; ok {
		return false, nil
	}
	cp := *rec
	byDomain[rec.Domain] = &cp
	return true, nil
}

func (r *fakeUsageRepo) Exists(ctx context.Context, userID, dom string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[userID][dom]
	return ok, nil
}

func (r *fakeUsageRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records[userID]), nil
}

type fakeSubscriptionRepo struct {
	mu       sync.Mutex
	byUserID map[string]*domain.Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{byUserID: make(map[string]*domain.Subscription)}
}

func (r *fakeSubscriptionRepo) Upsert(ctx context.Context, sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub.UpdatedAt = time.Now()
	cp := *sub
	r.byUserID[sub.UserID] = &cp
	return nil
}

func (r *fakeSubscriptionRepo) GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.byUserID[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *fakeSubscriptionRepo) GetByProviderSubscriptionID(ctx context.Context, providerSubID string) (*domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.byUserID {
		if sub.ProviderSubscriptionID == providerSubID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]bool
	failing bool
}

func newFakeRevocationStore() *fakeRevocationStore {
	return &fakeRevocationStore{revoked: make(map[string]bool)}
}

func (r *fakeRevocationStore) Add(ctx context.Context, fingerprint string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return fmt.Errorf("cache unavailable")
	}
	if ttl <= 0 {
		return nil
	}
	r.revoked[fingerprint] = true
	return nil
}

func (r *fakeRevocationStore) IsRevoked(ctx context.Context, fingerprint string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return false, fmt.Errorf("cache unavailable")
	}
	return r.revoked[fingerprint], nil
}

type fakePaymentProvider struct {
	mu              sync.Mutex
	subscriptions   map[string]*stripe.Subscription
	event           stripe.Event
	eventErr        error
	createdCustomer string
	checkoutCalls   []string
	getErr          error
}

func newFakePaymentProvider() *fakePaymentProvider {
	return &fakePaymentProvider{subscriptions: make(map[string]*stripe.Subscription)}
}

func (p *fakePaymentProvider) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createdCustomer = "cus_fake_" + userID
	return p.createdCustomer, nil
}

func (p *fakePaymentProvider) CreateCheckoutSession(ctx context.Context, customerID, priceID, userID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkoutCalls = append(p.checkoutCalls, customerID)
	return "https://checkout.example/session", nil
}

func (p *fakePaymentProvider) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	return "https://portal.example/session", nil
}

func (p *fakePaymentProvider) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getErr != nil {
		return nil, p.getErr
	}
	sub, ok := p.subscriptions[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("no such subscription %s", subscriptionID)
	}
	return sub, nil
}

func (p *fakePaymentProvider) PriceIDForPlan(plan string) string {
	switch plan {
	case "monthly":
		return "price_monthly"
	case "annual":
		return "price_annual"
	}
	return ""
}

func (p *fakePaymentProvider) PlanForPriceID(priceID string) string {
	if priceID == "price_annual" {
		return "annual"
	}
	return "monthly"
}

func (p *fakePaymentProvider) ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	if p.eventErr != nil {
		return stripe.Event{}, p.eventErr
	}
	return p.event, nil
}
