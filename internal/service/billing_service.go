package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/pagebrief/entitlement-service/internal/domain"
	"github.com/pagebrief/entitlement-service/internal/payments"
	"github.com/pagebrief/entitlement-service/internal/repository"
)

// billingService implements BillingService interface
type billingService struct {
	provider         PaymentProvider
	userRepo         repository.UserRepository
	subscriptionRepo repository.SubscriptionRepository
	logger           *zap.Logger
	metrics          serviceMetrics
}

// NewBillingService creates a new billing service
func NewBillingService(
	provider PaymentProvider,
	userRepo repository.UserRepository,
	subscriptionRepo repository.SubscriptionRepository,
	logger *zap.Logger,
) BillingService {
	return &billingService{
		provider:         provider,
		userRepo:         userRepo,
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
		metrics:          newServiceMetrics(),
	}
}

// CreateCheckoutSession starts the checkout handoff for a plan. The
// identity id travels as metadata on the session and the subscription it
// creates, so the webhook reconciler can resolve it later.
func (s *billingService) CreateCheckoutSession(ctx context.Context, userID, plan string) (string, error) {
	priceID := s.provider.PriceIDForPlan(plan)
	if priceID == "" {
		return "", fmt.Errorf("unknown plan %q: %w", plan, ErrInvalidInput)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("identity %s not found: %w", userID, ErrNotFound)
		}
		return "", fmt.Errorf("failed to get user: %w", ErrUnavailable)
	}

	// Reuse the provider customer from an earlier subscription if we have one
	customerID := ""
	sub, err := s.subscriptionRepo.GetByUserID(ctx, userID)
	if err == nil {
		customerID = sub.ProviderCustomerID
	} else if !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("failed to get subscription: %w", ErrUnavailable)
	}

	if customerID == "" {
		customerID, err = s.provider.CreateCustomer(ctx, user.Email, userID)
		if err != nil {
			return "", fmt.Errorf("failed to create provider customer: %w", ErrUnavailable)
		}
	}

	url, err := s.provider.CreateCheckoutSession(ctx, customerID, priceID, userID)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", ErrUnavailable)
	}

	return url, nil
}

// CreatePortalSession returns a customer-portal URL for an identity that
// already has a subscription record.
func (s *billingService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	sub, err := s.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("no billing account for identity %s: %w", userID, ErrNotFound)
		}
		return "", fmt.Errorf("failed to get subscription: %w", ErrUnavailable)
	}

	url, err := s.provider.CreatePortalSession(ctx, sub.ProviderCustomerID)
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", ErrUnavailable)
	}

	return url, nil
}

// GetSubscription returns the current subscription mirror for an identity
func (s *billingService) GetSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	sub, err := s.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("no subscription for identity %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get subscription: %w", ErrUnavailable)
	}
	return sub, nil
}

// ProcessWebhookEvent verifies and applies one provider event. Delivery is
// at-least-once and unordered, so every handled event reduces to the same
// idempotent full-record upsert; unrecognized event types are accepted and
// ignored so new provider events never cause retry storms.
func (s *billingService) ProcessWebhookEvent(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.provider.ConstructEvent(payload, sigHeader)
	if err != nil {
		s.countEvent(ctx, "unverified", "rejected")
		return fmt.Errorf("webhook signature verification failed: %w", ErrInvalidSignature)
	}

	switch event.Type {
	case "checkout.session.completed":
		err = s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.created", "customer.subscription.updated":
		err = s.handleSubscriptionEvent(ctx, event, false)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionEvent(ctx, event, true)
	default:
		s.logger.Debug("ignoring webhook event", zap.String("type", string(event.Type)))
		s.countEvent(ctx, string(event.Type), "ignored")
		return nil
	}

	if err != nil {
		s.countEvent(ctx, string(event.Type), "failed")
		return err
	}

	s.countEvent(ctx, string(event.Type), "applied")
	return nil
}

// handleCheckoutCompleted fetches the freshly created subscription from
// the provider before upserting; the checkout notification itself does not
// carry full subscription detail.
func (s *billingService) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		s.logger.Error("failed to decode checkout session, dropping event", zap.Error(err))
		return nil
	}

	if sess.Subscription == nil || sess.Subscription.ID == "" {
		s.logger.Warn("checkout session without subscription, dropping event",
			zap.String("session_id", sess.ID))
		return nil
	}

	sub, err := s.provider.GetSubscription(ctx, sess.Subscription.ID)
	if err != nil {
		// Transient: surface so the provider re-delivers
		return fmt.Errorf("failed to fetch subscription after checkout: %w", ErrUnavailable)
	}

	return s.applySubscription(ctx, sub, false)
}

func (s *billingService) handleSubscriptionEvent(ctx context.Context, event stripe.Event, deleted bool) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		s.logger.Error("failed to decode subscription event, dropping",
			zap.String("type", string(event.Type)), zap.Error(err))
		return nil
	}

	return s.applySubscription(ctx, &sub, deleted)
}

// applySubscription mirrors a provider subscription snapshot into the
// store. The identity comes from metadata propagated at checkout; without
// it the event cannot be reconciled and is dropped, not retried.
func (s *billingService) applySubscription(ctx context.Context, sub *stripe.Subscription, deleted bool) error {
	userID := sub.Metadata[payments.MetadataUserIDKey]
	if userID == "" {
		s.logger.Warn("subscription event without identity metadata, dropping",
			zap.String("subscription_id", sub.ID))
		return nil
	}

	record := &domain.Subscription{
		UserID:                 userID,
		ProviderSubscriptionID: sub.ID,
		Status:                 domain.SubscriptionStatus(sub.Status),
		Plan:                   domain.PlanMonthly,
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
	}

	if deleted {
		record.Status = domain.SubscriptionStatusCanceled
		record.CancelAtPeriodEnd = true
	}

	if sub.Customer != nil {
		record.ProviderCustomerID = sub.Customer.ID
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		record.CurrentPeriodStart = time.Unix(item.CurrentPeriodStart, 0).UTC()
		record.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
		if item.Price != nil {
			record.Plan = domain.Plan(s.provider.PlanForPriceID(item.Price.ID))
		}
	}

	if err := s.subscriptionRepo.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", ErrUnavailable)
	}

	s.logger.Info("subscription reconciled",
		zap.String("user_id", userID),
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(record.Status)),
	)

	return nil
}

func (s *billingService) countEvent(ctx context.Context, eventType, outcome string) {
	s.metrics.webhookEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", eventType),
		attribute.String("outcome", outcome),
	))
}
