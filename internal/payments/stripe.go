// Package payments wraps the Stripe API surface the service depends on:
// checkout and billing-portal session creation, subscription reads, and
// webhook signature verification.
package payments

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
)

// MetadataUserIDKey is the metadata key carrying the identity id on both
// the checkout session and the subscription it creates. The webhook
// reconciler resolves identities through it, never by matching emails.
const MetadataUserIDKey = "user_id"

type Config struct {
	SecretKey       string
	WebhookSecret   string
	MonthlyPriceID  string
	AnnualPriceID   string
	SuccessURL      string
	CancelURL       string
	PortalReturnURL string
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	return &Client{cfg: cfg}
}

// CreateCustomer creates a Stripe customer and returns the customer ID.
func (c *Client) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserIDKey, userID)

	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return cust.ID, nil
}

// CreateCheckoutSession creates a subscription-mode checkout session and
// returns its hosted URL. The identity id is attached as metadata to both
// the session and the resulting subscription.
func (c *Client) CreateCheckoutSession(ctx context.Context, customerID, priceID, userID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetadataUserIDKey: userID},
		},
		SuccessURL: stripe.String(c.cfg.SuccessURL),
		CancelURL:  stripe.String(c.cfg.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserIDKey, userID)

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreatePortalSession creates a billing portal session and returns its URL.
func (c *Client) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(c.cfg.PortalReturnURL),
	}
	params.Context = ctx

	sess, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return sess.URL, nil
}

// GetSubscription fetches the current subscription object from Stripe.
// Used after checkout completion, since that notification does not carry
// full subscription detail.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", subscriptionID, err)
	}
	return sub, nil
}

// PriceIDForPlan maps a plan name to its Stripe price ID ("" if unknown).
func (c *Client) PriceIDForPlan(plan string) string {
	switch plan {
	case "monthly":
		return c.cfg.MonthlyPriceID
	case "annual":
		return c.cfg.AnnualPriceID
	}
	return ""
}

// PlanForPriceID is the inverse mapping, defaulting to monthly for price
// IDs this deployment does not know about.
func (c *Client) PlanForPriceID(priceID string) string {
	if priceID == c.cfg.AnnualPriceID && priceID != "" {
		return "annual"
	}
	return "monthly"
}

// ConstructEvent verifies the webhook signature over the raw payload bytes
// and returns the parsed event.
func (c *Client) ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, c.cfg.WebhookSecret)
}
