package model

import (
	"time"
)

// Agent is an LLM-backed persona listed on the marketplace. Only the LLM,
// pricing, and credential fields matter to the proxy and the worker; profile
// editing lives elsewhere.
type Agent struct {
	ID      string `db:"id" json:"id"`
	OwnerID string `db:"owner_id" json:"ownerId"`
	Name    string `db:"name" json:"name"`
	Slug    string `db:"slug" json:"slug"`

	// LLM configuration
	SystemPrompt *string `db:"system_prompt" json:"systemPrompt,omitempty"`
	LLMProvider  string  `db:"llm_provider" json:"llmProvider"`
	LLMModel     string  `db:"llm_model" json:"llmModel"`
	Temperature  float64 `db:"temperature" json:"temperature"`
	MaxTokens    int     `db:"max_tokens" json:"maxTokens"`

	// Pricing
	IsFree                 bool   `db:"is_free" json:"isFree"`
	PricePerMessageCredits int64  `db:"price_per_message_credits" json:"pricePerMessageCredits"`
	PricePerRunCredits     *int64 `db:"price_per_run_credits" json:"pricePerRunCredits,omitempty"`

	// Creator-supplied upstream credential, encrypted at rest
	EncryptedAPIKey *string `db:"encrypted_api_key" json:"-"`
	APIKeyPreview   *string `db:"api_key_preview" json:"apiKeyPreview,omitempty"`

	TotalEarnedCredits int64 `db:"total_earned_credits" json:"totalEarnedCredits"`

	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
	DisabledAt *time.Time `db:"disabled_at" json:"disabledAt,omitempty"`
}
