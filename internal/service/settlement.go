package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/agenthive/proxy-server-go/internal/database"
	"github.com/agenthive/proxy-server-go/internal/model"
	"github.com/agenthive/proxy-server-go/internal/repository"
)

// SettleParams describes the outcome of one proxied call. Failed calls are
// settled too: they produce a zero-charge audit record.
type SettleParams struct {
	License *model.License
	Agent   *model.Agent
	Plan    *model.PricingPlan
	Mode    BillingMode

	Model          string
	InputTokens    int64
	OutputTokens   int64
	ResponseTimeMS int64
	Success        bool
	ErrorMessage   *string
}

// SettlementService moves credits between buyer, creator, and platform for
// one usage event, and writes the audit trail. One call produces at most one
// ledger mutation, performed inside a single transaction.
type SettlementService struct {
	db           database.TxRunner
	accountRepo  repository.AccountRepository
	agentRepo    repository.AgentRepository
	licenseRepo  repository.LicenseRepository
	usageRepo    repository.UsageRepository
	earningsRepo repository.EarningsRepository

	// defaultFeeBps applies when the plan does not set its own fee.
	defaultFeeBps int
}

func NewSettlementService(
	db database.TxRunner,
	accountRepo repository.AccountRepository,
	agentRepo repository.AgentRepository,
	licenseRepo repository.LicenseRepository,
	usageRepo repository.UsageRepository,
	earningsRepo repository.EarningsRepository,
	defaultFeeBps int,
) *SettlementService {
	return &SettlementService{
		db:            db,
		accountRepo:   accountRepo,
		agentRepo:     agentRepo,
		licenseRepo:   licenseRepo,
		usageRepo:     usageRepo,
		earningsRepo:  earningsRepo,
		defaultFeeBps: defaultFeeBps,
	}
}

// feeBpsFor resolves the platform fee for one plan. The fee is platform
// policy; a plan row with no fee of its own falls back to the configured
// default rather than waiving it.
func (s *SettlementService) feeBpsFor(plan *model.PricingPlan) int {
	if plan.PlatformFeeBps > 0 {
		return plan.PlatformFeeBps
	}
	return s.defaultFeeBps
}

// Settle charges the buyer, credits the creator, and records usage and
// earnings rows, all or nothing. The buyer debit is guarded by the balance;
// when actual per-token usage exceeds what the remaining balance covers, the
// charge is clamped to zero instead of driving the balance negative — the
// creator is underpaid for that call rather than the ledger going into debt.
func (s *SettlementService) Settle(ctx context.Context, p SettleParams) (*model.UsageRecord, error) {
	totalTokens := p.InputTokens + p.OutputTokens
	costCents := EstimateCostCents(p.Model, p.InputTokens, p.OutputTokens)

	var record *model.UsageRecord

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		accounts := s.accountRepo.WithTx(tx)
		agents := s.agentRepo.WithTx(tx)
		licenses := s.licenseRepo.WithTx(tx)
		usage := s.usageRepo.WithTx(tx)
		earnings := s.earningsRepo.WithTx(tx)

		var charged, fee, net int64
		if p.Success {
			gross := ChargeForUsage(p.Mode, p.Plan, totalTokens)
			if gross > 0 {
				ok, err := accounts.DebitIfSufficient(ctx, p.License.BuyerID, gross)
				if err != nil {
					return err
				}
				if ok {
					charged = gross
					fee, net = SplitCredits(gross, s.feeBpsFor(p.Plan))
				} else {
					log.Warn().
						Str("licenseId", p.License.ID).
						Int64("gross", gross).
						Msg("balance no longer covers usage, charge clamped to zero")
				}
			}
		}

		if net > 0 {
			if err := accounts.Credit(ctx, p.Agent.OwnerID, net); err != nil {
				return err
			}
			if err := agents.AddEarnedCredits(ctx, p.Agent.ID, net); err != nil {
				return err
			}
		}

		var err error
		record, err = usage.Create(ctx, model.CreateUsageRecordParams{
			LicenseID:            p.License.ID,
			AgentID:              p.Agent.ID,
			BuyerID:              p.License.BuyerID,
			Model:                p.Model,
			InputTokens:          p.InputTokens,
			OutputTokens:         p.OutputTokens,
			EstimatedCostCents:   costCents,
			ResponseTimeMS:       p.ResponseTimeMS,
			Success:              p.Success,
			ErrorMessage:         p.ErrorMessage,
			CreditsCharged:       charged,
			CreatorCreditsEarned: net,
			PlatformFeeCredits:   fee,
		})
		if err != nil {
			return err
		}

		if p.Success {
			if err := licenses.RecordUsage(ctx, p.License.ID, totalTokens, costCents, charged, net); err != nil {
				return err
			}
		}

		if net > 0 {
			_, err := earnings.Create(ctx, model.CreateEarningsRecordParams{
				AgentID:            p.Agent.ID,
				OwnerID:            p.Agent.OwnerID,
				UsageRecordID:      record.ID,
				GrossCredits:       charged,
				PlatformFeeCredits: fee,
				NetCredits:         net,
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}
