package model

import (
	"time"
)

// UsageRecord is the append-only audit row for one proxied call, successful or
// not. Never mutated after creation.
type UsageRecord struct {
	ID        string `db:"id" json:"id"`
	LicenseID string `db:"license_id" json:"licenseId"`
	AgentID   string `db:"agent_id" json:"agentId"`
	BuyerID   string `db:"buyer_id" json:"buyerId"`

	Model              string  `db:"model" json:"model"`
	InputTokens        int64   `db:"input_tokens" json:"inputTokens"`
	OutputTokens       int64   `db:"output_tokens" json:"outputTokens"`
	TotalTokens        int64   `db:"total_tokens" json:"totalTokens"`
	EstimatedCostCents int64   `db:"estimated_cost_cents" json:"estimatedCostCents"`
	ResponseTimeMS     int64   `db:"response_time_ms" json:"responseTimeMs"`
	Success            bool    `db:"success" json:"success"`
	ErrorMessage       *string `db:"error_message" json:"errorMessage,omitempty"`

	CreditsCharged       int64 `db:"credits_charged" json:"creditsCharged"`
	CreatorCreditsEarned int64 `db:"creator_credits_earned" json:"creatorCreditsEarned"`
	PlatformFeeCredits   int64 `db:"platform_fee_credits" json:"platformFeeCredits"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateUsageRecordParams struct {
	LicenseID string
	AgentID   string
	BuyerID   string

	Model              string
	InputTokens        int64
	OutputTokens       int64
	EstimatedCostCents int64
	ResponseTimeMS     int64
	Success            bool
	ErrorMessage       *string

	CreditsCharged       int64
	CreatorCreditsEarned int64
	PlatformFeeCredits   int64
}

// EarningsRecord is created whenever a creator actually earns credits from a
// usage event. gross = fee + net always holds. Append-only.
type EarningsRecord struct {
	ID            string `db:"id" json:"id"`
	AgentID       string `db:"agent_id" json:"agentId"`
	OwnerID       string `db:"owner_id" json:"ownerId"`
	UsageRecordID string `db:"usage_record_id" json:"usageRecordId"`

	GrossCredits       int64 `db:"gross_credits" json:"grossCredits"`
	PlatformFeeCredits int64 `db:"platform_fee_credits" json:"platformFeeCredits"`
	NetCredits         int64 `db:"net_credits" json:"netCredits"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateEarningsRecordParams struct {
	AgentID       string
	OwnerID       string
	UsageRecordID string

	GrossCredits       int64
	PlatformFeeCredits int64
	NetCredits         int64
}
