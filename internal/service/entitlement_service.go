package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/pagebrief/entitlement-service/internal/domain"
	"github.com/pagebrief/entitlement-service/internal/dto"
	"github.com/pagebrief/entitlement-service/internal/repository"
	"github.com/pagebrief/entitlement-service/internal/utils"
)

// entitlementService implements EntitlementService interface
type entitlementService struct {
	userRepo         repository.UserRepository
	credentialRepo   repository.CredentialRepository
	usageRepo        repository.UsageRepository
	subscriptionRepo repository.SubscriptionRepository
	jwtManager       *utils.JWTManager
	revocationCache  RevocationStore
	logger           *zap.Logger
	metrics          serviceMetrics
	bcryptCost       int
	freeDomainLimit  int
}

// NewEntitlementService creates a new entitlement service
func NewEntitlementService(
	userRepo repository.UserRepository,
	credentialRepo repository.CredentialRepository,
	usageRepo repository.UsageRepository,
	subscriptionRepo repository.SubscriptionRepository,
	jwtManager *utils.JWTManager,
	revocationCache RevocationStore,
	logger *zap.Logger,
	bcryptCost int,
	freeDomainLimit int,
) EntitlementService {
	return &entitlementService{
		userRepo:         userRepo,
		credentialRepo:   credentialRepo,
		usageRepo:        usageRepo,
		subscriptionRepo: subscriptionRepo,
		jwtManager:       jwtManager,
		revocationCache:  revocationCache,
		logger:           logger,
		metrics:          newServiceMetrics(),
		bcryptCost:       bcryptCost,
		freeDomainLimit:  freeDomainLimit,
	}
}

// Register creates a new identity and immediately issues a credential.
// New accounts are never premium at creation, so no subscription lookup.
func (s *entitlementService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	if !utils.ValidateEmail(req.Email) {
		return nil, fmt.Errorf("invalid email format: %w", ErrInvalidInput)
	}

	if !utils.ValidatePassword(req.Password) {
		return nil, fmt.Errorf("password must be at least 8 characters long: %w", ErrInvalidInput)
	}

	email := utils.SanitizeEmail(req.Email)

	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, fmt.Errorf("user with email %s already exists: %w", email, ErrConflict)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check user existence: %w", ErrUnavailable)
	}

	passwordHash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: passwordHash,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, fmt.Errorf("user with email %s already exists: %w", email, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", ErrUnavailable)
	}

	return s.issueCredential(ctx, user, false)
}

// Login authenticates an identity and issues a new credential. Existing
// credentials for the identity stay valid; sessions are per device.
func (s *entitlementService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, utils.SanitizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Same error for unknown email and wrong password
			return nil, fmt.Errorf("invalid email or password: %w", ErrUnauthenticated)
		}
		return nil, fmt.Errorf("failed to get user: %w", ErrUnavailable)
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, fmt.Errorf("invalid email or password: %w", ErrUnauthenticated)
	}

	premium, err := s.premiumStatus(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return s.issueCredential(ctx, user, premium)
}

// issueCredential signs a token, stores its fingerprint and builds the
// response. The premium claim is advisory; entitlement checks re-read the
// subscription store.
func (s *entitlementService) issueCredential(ctx context.Context, user *domain.User, premium bool) (*dto.AuthResponse, error) {
	token, expiresAt, err := s.jwtManager.GenerateCredential(user.ID, user.Email, premium)
	if err != nil {
		return nil, fmt.Errorf("failed to generate credential: %w", err)
	}

	cred := &domain.Credential{
		UserID:           user.ID,
		TokenFingerprint: fingerprint(token),
		ExpiresAt:        expiresAt,
	}

	if err := s.credentialRepo.Create(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", ErrUnavailable)
	}

	s.metrics.credentialsIssued.Add(ctx, 1)

	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   s.jwtManager.GetCredentialTTL(),
		IsPremium:   premium,
		User: dto.UserInfo{
			ID:    user.ID,
			Email: user.Email,
		},
	}, nil
}

// VerifyCredential checks a bearer token structurally and against the
// credential store. Both checks are mandatory: a well-formed signed token
// that has been revoked or swept must fail.
func (s *entitlementService) VerifyCredential(ctx context.Context, token string) (*domain.TokenClaims, error) {
	claims, err := s.jwtManager.ParseCredential(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("credential expired: %w", ErrUnauthenticated)
		}
		return nil, fmt.Errorf("malformed credential: %w", ErrUnauthenticated)
	}

	fp := fingerprint(token)

	// Fast path; a cache error falls through to the authoritative store read
	revoked, err := s.revocationCache.IsRevoked(ctx, fp)
	if err != nil {
		s.logger.Warn("revocation cache check failed", zap.Error(err))
	} else if revoked {
		return nil, fmt.Errorf("credential revoked: %w", ErrUnauthenticated)
	}

	cred, err := s.credentialRepo.GetByFingerprint(ctx, fp)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("credential not recognized: %w", ErrUnauthenticated)
		}
		return nil, fmt.Errorf("failed to look up credential: %w", ErrUnavailable)
	}

	if cred.Revoked {
		return nil, fmt.Errorf("credential revoked: %w", ErrUnauthenticated)
	}
	if !time.Now().Before(cred.ExpiresAt) {
		return nil, fmt.Errorf("credential expired: %w", ErrUnauthenticated)
	}

	return claims, nil
}

// Logout revokes the credential matching the presented token. Idempotent:
// revoking an unknown or already-revoked credential succeeds.
func (s *entitlementService) Logout(ctx context.Context, token string) error {
	fp := fingerprint(token)

	if err := s.credentialRepo.RevokeByFingerprint(ctx, fp); err != nil {
		return fmt.Errorf("failed to revoke credential: %w", ErrUnavailable)
	}

	// Seed the cache so the revocation is visible without a store read.
	// TTL bounded by the token's own expiry when it still parses.
	ttl := time.Duration(0)
	if claims, err := s.jwtManager.ParseCredential(token); err == nil {
		ttl = time.Until(time.Unix(claims.Exp, 0))
	}
	if err := s.revocationCache.Add(ctx, fp, ttl); err != nil {
		s.logger.Warn("failed to cache credential revocation", zap.Error(err))
	}

	return nil
}

// GetIdentity returns the identity profile with current premium status
func (s *entitlementService) GetIdentity(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("identity %s not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", ErrUnavailable)
	}

	premium, err := s.premiumStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		IsPremium: premium,
	}, nil
}

// CheckEntitlement decides whether a metered action may proceed. Premium
// short-circuits the ledger entirely; an already-charged domain is always
// allowed, even at or over the cap.
func (s *entitlementService) CheckEntitlement(ctx context.Context, userID, rawDomain string) (*domain.UsageSnapshot, error) {
	premium, err := s.premiumStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	if premium {
		return premiumSnapshot(s.freeDomainLimit), nil
	}

	used, err := s.usageRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count usage: %w", ErrUnavailable)
	}

	snapshot := &domain.UsageSnapshot{
		Used:      used,
		Limit:     s.freeDomainLimit,
		Remaining: remaining(used, s.freeDomainLimit),
		Allowed:   used < s.freeDomainLimit,
	}

	if dom := utils.NormalizeDomain(rawDomain); dom != "" {
		exists, err := s.usageRepo.Exists(ctx, userID, dom)
		if err != nil {
			return nil, fmt.Errorf("failed to check usage record: %w", ErrUnavailable)
		}
		if exists {
			// Revisiting an already-charged domain is free
			snapshot.Allowed = true
		}
	}

	return snapshot, nil
}

// RecordUsage charges a domain against the free tier. A no-op for premium
// identities and for already-charged domains. Once the cap check passes,
// a store failure on the insert is logged and swallowed: the metered
// action already happened, so the recording side effect fails open.
func (s *entitlementService) RecordUsage(ctx context.Context, userID, rawDomain, resourceURL string) (*domain.UsageSnapshot, error) {
	dom := utils.NormalizeDomain(rawDomain)
	if dom == "" {
		return nil, fmt.Errorf("domain is required: %w", ErrInvalidInput)
	}

	premium, err := s.premiumStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	if premium {
		return premiumSnapshot(s.freeDomainLimit), nil
	}

	used, err := s.usageRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count usage: %w", ErrUnavailable)
	}

	exists, err := s.usageRepo.Exists(ctx, userID, dom)
	if err != nil {
		return nil, fmt.Errorf("failed to check usage record: %w", ErrUnavailable)
	}

	if !exists && used >= s.freeDomainLimit {
		snapshot := &domain.UsageSnapshot{
			Used:      used,
			Limit:     s.freeDomainLimit,
			Remaining: 0,
		}
		return snapshot, fmt.Errorf("free tier limit of %d domains reached: %w", s.freeDomainLimit, ErrForbidden)
	}

	rec := &domain.UsageRecord{
		UserID: userID,
		Domain: dom,
	}
	if resourceURL != "" {
		rec.ResourceURL = &resourceURL
	}

	// The unique constraint on (user_id, domain) is the real guard here;
	// the exists/cap checks above are advisory pre-filtering. Concurrent
	// first-use of the same domain leaves one row and both callers succeed.
	inserted, err := s.usageRepo.Record(ctx, rec)
	if err != nil {
		s.logger.Warn("failed to record usage, continuing",
			zap.String("user_id", userID),
			zap.String("domain", dom),
			zap.Error(err),
		)
	} else if inserted {
		used++
		s.metrics.usageRecorded.Add(ctx, 1)
	}

	return &domain.UsageSnapshot{
		Allowed:   true,
		Used:      used,
		Limit:     s.freeDomainLimit,
		Remaining: remaining(used, s.freeDomainLimit),
	}, nil
}

// premiumStatus resolves entitlement from the subscription store. Only the
// status field participates in the decision.
func (s *entitlementService) premiumStatus(ctx context.Context, userID string) (bool, error) {
	sub, err := s.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get subscription: %w", ErrUnavailable)
	}
	return sub.Status.Entitled(), nil
}

func premiumSnapshot(limit int) *domain.UsageSnapshot {
	return &domain.UsageSnapshot{
		Allowed:   true,
		IsPremium: true,
		Unlimited: true,
		Remaining: -1,
		Limit:     limit,
	}
}

func remaining(used, limit int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}

// fingerprint hashes a token with SHA-256 for storage and lookup
func fingerprint(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
