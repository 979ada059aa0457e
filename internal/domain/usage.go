package domain

import "time"

// UsageRecord marks a domain as consumed against an identity's free tier.
// At most one record exists per (user, domain) pair; the record is the unit
// of "already used", not a counter.
type UsageRecord struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Domain      string    `json:"domain" db:"domain"`
	ResourceURL *string   `json:"resource_url" db:"resource_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// UsageSnapshot is the result of an entitlement check.
type UsageSnapshot struct {
	Allowed   bool `json:"allowed"`
	IsPremium bool `json:"is_premium"`
	Used      int  `json:"used"`
	Remaining int  `json:"remaining"`
	Limit     int  `json:"limit"`
	Unlimited bool `json:"unlimited"`
}
