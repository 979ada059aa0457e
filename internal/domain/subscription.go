package domain

import "time"

// SubscriptionStatus mirrors the payment provider's subscription lifecycle states.
type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
)

// Entitled reports whether the status grants unlimited usage.
func (s SubscriptionStatus) Entitled() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

// Plan identifies one of the two fixed price points.
type Plan string

const (
	PlanMonthly Plan = "monthly"
	PlanAnnual  Plan = "annual"
)

// Subscription is a point-in-time mirror of the payment provider's view of
// an identity's subscription. Every update replaces the whole record; at
// most one row exists per identity.
type Subscription struct {
	ID                     string             `json:"id" db:"id"`
	UserID                 string             `json:"user_id" db:"user_id"`
	ProviderCustomerID     string             `json:"provider_customer_id" db:"provider_customer_id"`
	ProviderSubscriptionID string             `json:"provider_subscription_id" db:"provider_subscription_id"`
	Status                 SubscriptionStatus `json:"status" db:"status"`
	Plan                   Plan               `json:"plan" db:"plan"`
	CurrentPeriodStart     time.Time          `json:"current_period_start" db:"current_period_start"`
	CurrentPeriodEnd       time.Time          `json:"current_period_end" db:"current_period_end"`
	CancelAtPeriodEnd      bool               `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	UpdatedAt              time.Time          `json:"updated_at" db:"updated_at"`
}
