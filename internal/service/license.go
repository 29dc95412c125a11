package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/agenthive/proxy-server-go/internal/errors"
	"github.com/agenthive/proxy-server-go/internal/model"
	"github.com/agenthive/proxy-server-go/internal/repository"
	"github.com/agenthive/proxy-server-go/internal/util"
)

// ValidatedLicense bundles everything the proxy needs after a successful
// entitlement check.
type ValidatedLicense struct {
	License *model.License
	Agent   *model.Agent
	Plan    *model.PricingPlan
}

type LicenseService struct {
	licenseRepo repository.LicenseRepository
	planRepo    repository.PlanRepository
	agentRepo   repository.AgentRepository
}

func NewLicenseService(
	licenseRepo repository.LicenseRepository,
	planRepo repository.PlanRepository,
	agentRepo repository.AgentRepository,
) *LicenseService {
	return &LicenseService{
		licenseRepo: licenseRepo,
		planRepo:    planRepo,
		agentRepo:   agentRepo,
	}
}

// Validate resolves a license key to its license, agent, and pricing plan.
// An unknown key fails exactly like a malformed one, so callers cannot probe
// for key existence. Expiry is detected lazily: the first use after the
// expiry timestamp persists the expired status before failing.
func (s *LicenseService) Validate(ctx context.Context, licenseKey string) (*ValidatedLicense, error) {
	license, err := s.licenseRepo.FindByKey(ctx, licenseKey)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if license == nil {
		return nil, apperrors.InvalidLicenseKey()
	}

	if license.Status != model.LicenseStatusActive {
		return nil, apperrors.LicenseNotActive(string(license.Status))
	}

	if license.ExpiresAt != nil && time.Now().After(*license.ExpiresAt) {
		if err := s.licenseRepo.UpdateStatus(ctx, license.ID, model.LicenseStatusExpired); err != nil {
			log.Error().Err(err).Str("licenseId", license.ID).Msg("failed to persist license expiry")
		}
		return nil, apperrors.LicenseExpired()
	}

	var plan *model.PricingPlan
	if license.PlanID != nil {
		plan, err = s.planRepo.FindByID(ctx, *license.PlanID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
	}
	if plan == nil {
		return nil, apperrors.PlanMissing()
	}

	if plan.MaxMessagesPerPeriod != nil && license.PeriodMessages >= *plan.MaxMessagesPerPeriod {
		return nil, apperrors.PeriodLimitReached("Message")
	}
	if plan.MaxTokensPerPeriod != nil && license.PeriodTokens >= *plan.MaxTokensPerPeriod {
		return nil, apperrors.PeriodLimitReached("Token")
	}

	agent, err := s.agentRepo.FindByID(ctx, license.AgentID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if agent == nil {
		return nil, apperrors.AgentMissing()
	}

	return &ValidatedLicense{License: license, Agent: agent, Plan: plan}, nil
}

// Create issues a license for a buyer on the given plan. Rental and
// subscription plans derive an expiry; credits and one-time plans do not
// expire.
func (s *LicenseService) Create(ctx context.Context, agentID, buyerID string, plan *model.PricingPlan) (*model.License, error) {
	key, err := util.GenerateLicenseKey()
	if err != nil {
		return nil, fmt.Errorf("generate license key: %w", err)
	}

	var expiresAt *time.Time
	now := time.Now()
	switch {
	case plan.PlanType == model.PlanTypeRental && plan.RentalDurationDays != nil:
		t := now.AddDate(0, 0, *plan.RentalDurationDays)
		expiresAt = &t
	case plan.PlanType == model.PlanTypeSubscription && plan.BillingInterval != nil:
		days := 30
		if *plan.BillingInterval == "yearly" {
			days = 365
		}
		t := now.AddDate(0, 0, days)
		expiresAt = &t
	}

	license, err := s.licenseRepo.Create(ctx, model.CreateLicenseParams{
		AgentID:    agentID,
		BuyerID:    buyerID,
		PlanID:     &plan.ID,
		LicenseKey: key,
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create license: %w", err)
	}

	log.Info().
		Str("licenseId", license.ID).
		Str("agentId", agentID).
		Str("buyerId", buyerID).
		Str("key", util.MaskKey(key)).
		Msg("license created")

	return license, nil
}
