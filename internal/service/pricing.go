package service

import (
	"github.com/agenthive/proxy-server-go/internal/model"
)

// BillingMode is the closed set of ways a proxied call can be billed. The
// mode is derived once from the pricing plan and switch-dispatched.
type BillingMode int

const (
	// BillingFree charges nothing.
	BillingFree BillingMode = iota
	// BillingPerMessage charges a flat credit price per call regardless of
	// token count, verified against the buyer's balance before the call.
	BillingPerMessage
	// BillingPerToken charges proportionally to actual usage, settled after
	// the call succeeds.
	BillingPerToken
)

// ModeForPlan maps a pricing plan to its billing mode.
func ModeForPlan(plan *model.PricingPlan) BillingMode {
	if plan == nil || plan.PlanType != model.PlanTypeCredits {
		return BillingFree
	}
	switch {
	case plan.CreditsPerMessage != nil && *plan.CreditsPerMessage > 0:
		return BillingPerMessage
	case plan.CreditsPer1KTokens != nil && *plan.CreditsPer1KTokens > 0:
		return BillingPerToken
	default:
		return BillingFree
	}
}

// ChargeForUsage returns the gross credit charge for a call under the given
// mode. For per-token mode the charge scales with total tokens,
// round-half-up per 1000 tokens.
func ChargeForUsage(mode BillingMode, plan *model.PricingPlan, totalTokens int64) int64 {
	switch mode {
	case BillingPerMessage:
		return *plan.CreditsPerMessage
	case BillingPerToken:
		if totalTokens <= 0 {
			return 0
		}
		return (totalTokens**plan.CreditsPer1KTokens + 500) / 1000
	default:
		return 0
	}
}

// SplitCredits divides a gross credit charge between the platform and the
// creator. The fee rounds half up, so on exact halves the platform wins by
// one credit; net = gross - fee always holds.
func SplitCredits(gross int64, feeBps int) (fee, net int64) {
	if gross <= 0 {
		return 0, 0
	}
	fee = (gross*int64(feeBps) + 5000) / 10000
	return fee, gross - fee
}

type modelRate struct {
	inputCentsPerMTok  int64
	outputCentsPerMTok int64
}

// Cost per million tokens, in cents. Estimation is advisory, not
// billing-authoritative, so unknown models fall back to the default rate
// rather than failing.
var modelRates = map[string]modelRate{
	"claude-sonnet-4-20250514":  {inputCentsPerMTok: 300, outputCentsPerMTok: 1500},
	"claude-haiku-4-5-20251001": {inputCentsPerMTok: 100, outputCentsPerMTok: 500},
	"claude-opus-4-6":           {inputCentsPerMTok: 1500, outputCentsPerMTok: 7500},
}

var defaultRate = modelRates["claude-sonnet-4-20250514"]

// EstimateCostCents estimates the upstream provider cost of a call in cents,
// rounded half up.
func EstimateCostCents(modelName string, inputTokens, outputTokens int64) int64 {
	rate, ok := modelRates[modelName]
	if !ok {
		rate = defaultRate
	}
	total := inputTokens*rate.inputCentsPerMTok + outputTokens*rate.outputCentsPerMTok
	return (total + 500_000) / 1_000_000
}
