package model

import (
	"time"
)

// PricingPlan describes how calls under a license are billed. Period caps are
// optional; nil means uncapped.
type PricingPlan struct {
	ID      string `db:"id" json:"id"`
	AgentID string `db:"agent_id" json:"agentId"`

	PlanType           PlanType `db:"plan_type" json:"planType"`
	PriceCents         int64    `db:"price_cents" json:"priceCents"`
	BillingInterval    *string  `db:"billing_interval" json:"billingInterval,omitempty"`
	RentalDurationDays *int     `db:"rental_duration_days" json:"rentalDurationDays,omitempty"`

	MaxMessagesPerPeriod *int64 `db:"max_messages_per_period" json:"maxMessagesPerPeriod,omitempty"`
	MaxTokensPerPeriod   *int64 `db:"max_tokens_per_period" json:"maxTokensPerPeriod,omitempty"`

	CreditsPerMessage  *int64 `db:"credits_per_message" json:"creditsPerMessage,omitempty"`
	CreditsPer1KTokens *int64 `db:"credits_per_1k_tokens" json:"creditsPer1kTokens,omitempty"`
	PlatformFeeBps     int    `db:"platform_fee_bps" json:"platformFeeBps"`

	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// License entitles a buyer to call an agent through the metered proxy. The
// opaque LicenseKey is the bearer credential; period counters reset at each
// billing period boundary.
type License struct {
	ID      string  `db:"id" json:"id"`
	AgentID string  `db:"agent_id" json:"agentId"`
	BuyerID string  `db:"buyer_id" json:"buyerId"`
	PlanID  *string `db:"plan_id" json:"planId,omitempty"`

	LicenseKey string        `db:"license_key" json:"-"`
	Status     LicenseStatus `db:"status" json:"status"`

	ActivatedAt time.Time  `db:"activated_at" json:"activatedAt"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expiresAt,omitempty"`

	// Usage counters
	TotalMessages   int64     `db:"total_messages" json:"totalMessages"`
	TotalTokensUsed int64     `db:"total_tokens_used" json:"totalTokensUsed"`
	TotalCostCents  int64     `db:"total_cost_cents" json:"totalCostCents"`
	PeriodMessages  int64     `db:"period_messages" json:"periodMessages"`
	PeriodTokens    int64     `db:"period_tokens" json:"periodTokens"`
	PeriodStart     time.Time `db:"period_start" json:"periodStart"`

	// Credits tracking
	CreditsSpent         int64 `db:"credits_spent" json:"creditsSpent"`
	CreatorCreditsEarned int64 `db:"creator_credits_earned" json:"creatorCreditsEarned"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateLicenseParams struct {
	AgentID    string
	BuyerID    string
	PlanID     *string
	LicenseKey string
	ExpiresAt  *time.Time
}
