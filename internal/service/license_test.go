package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/agenthive/proxy-server-go/internal/errors"
	"github.com/agenthive/proxy-server-go/internal/model"
)

func validLicenseFixture() (*mockLicenseRepo, *mockPlanRepo, *mockAgentRepo) {
	licenseRepo := newMockLicenseRepo()
	planRepo := newMockPlanRepo()
	agentRepo := newMockAgentRepo()

	planID := "plan-1"
	licenseRepo.byKey["ah_lic_good"] = &model.License{
		ID:      "lic-1",
		AgentID: "agent-1",
		BuyerID: "buyer-1",
		PlanID:  &planID,
		Status:  model.LicenseStatusActive,
	}
	planRepo.plans[planID] = &model.PricingPlan{
		ID:                planID,
		PlanType:          model.PlanTypeCredits,
		CreditsPerMessage: int64Ptr(10),
		PlatformFeeBps:    1000,
	}
	agentRepo.agents["agent-1"] = &model.Agent{
		ID:      "agent-1",
		OwnerID: "creator-1",
	}

	return licenseRepo, planRepo, agentRepo
}

func TestLicenseServiceValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid license returns full bundle", func(t *testing.T) {
		licenseRepo, planRepo, agentRepo := validLicenseFixture()
		svc := NewLicenseService(licenseRepo, planRepo, agentRepo)

		validated, err := svc.Validate(ctx, "ah_lic_good")
		assert.NoError(t, err)
		assert.Equal(t, "lic-1", validated.License.ID)
		assert.Equal(t, "agent-1", validated.Agent.ID)
		assert.Equal(t, "plan-1", validated.Plan.ID)
	})

	t.Run("unknown key fails like a malformed one", func(t *testing.T) {
		licenseRepo, planRepo, agentRepo := validLicenseFixture()
		svc := NewLicenseService(licenseRepo, planRepo, agentRepo)

		_, err := svc.Validate(ctx, "ah_lic_nonexistent")
		assert.Equal(t, apperrors.ErrCodeInvalidLicenseKey, apperrors.GetCode(err))
	})

	t.Run("revoked license reports its status", func(t *testing.T) {
		licenseRepo, planRepo, agentRepo := validLicenseFixture()
		licenseRepo.byKey["ah_lic_good"].Status = model.LicenseStatusRevoked
		svc := NewLicenseService(licenseRepo, planRepo, agentRepo)

		_, err := svc.Validate(ctx, "ah_lic_good")
		assert.Equal(t, apperrors.ErrCodeLicenseNotActive, apperrors.GetCode(err))
		appErr, _ := apperrors.AsAppError(err)
		assert.Contains(t, appErr.Message, "revoked")
	})

	t.Run("expiry is detected lazily and persisted", func(t *testing.T) {
		licenseRepo, planRepo, agentRepo := validLicenseFixture()
		past := time.Now().Add(-time.Hour)
		licenseRepo.byKey["ah_lic_good"].ExpiresAt = &past
		svc := NewLicenseService(licenseRepo, planRepo, agentRepo)

		_, err := svc.Validate(ctx, "ah_lic_good")
		assert.Equal(t, apperrors.ErrCodeLicenseExpired, apperrors.GetCode(err))
		assert.Equal(t, model.LicenseStatusExpired, licenseRepo.statusUpdates["lic-1"])
	})

	t.Run("already-expired status does not write again", func(t *testing.T) {
		licenseRepo, planRepo, agentRepo := validLicenseFixture()
		licenseRepo.byKey["ah_lic_good"].Status = model.LicenseStatusExpired
		svc := NewLicenseService(licenseRepo, planRepo, agentRepo)

		_, err := svc.Validate(ctx, "ah_lic_good")
		assert.Equal(t, apperrors.ErrCodeLicenseNotActive, apperrors.GetCode(err))
		assert.Empty(t, licenseRepo.statusUpdates)
	})

	t.Run("future expiry passes", func(t *testing.T) {
		licenseRepo, planRepo, agentRepo := validLicenseFixture()
		future := time.Now().Add(time.Hour)
		licenseRepo.byKey["ah_lic_good"].ExpiresAt = &future
		svc := NewLicenseService(licenseRepo, planRepo, agentRepo)

		_, err := svc.Validate(ctx, "ah_lic_good")
		assert.NoError(t, err)
	})

	t.Run("missing plan fails", func(t *testing.T) {
		licenseRepo, planRepo, agentRepo := validLicenseFixture()
		licenseRepo.byKey["ah_lic_good"].PlanID = nil
		svc := NewLicenseService(licenseRepo, planRepo, agentRepo)

		_, err := svc.Validate(ctx, "ah_lic_good")
		assert.Equal(t, apperrors.ErrCodePlanMissing, apperrors.GetCode(err))
	})

	t.Run("message cap blocks at the limit", func(t *testing.T) {
		licenseRepo, planRepo, agentRepo := validLicenseFixture()
		planRepo.plans["plan-1"].MaxMessagesPerPeriod = int64Ptr(100)
		licenseRepo.byKey["ah_lic_good"].PeriodMessages = 100
		svc := NewLicenseService(licenseRepo, planRepo, agentRepo)

		_, err := svc.Validate(ctx, "ah_lic_good")
		assert.Equal(t, apperrors.ErrCodePeriodLimitReached, apperrors.GetCode(err))
	})

	t.Run("message cap allows below the limit", func(t *testing.T) {
		licenseRepo, planRepo, agentRepo := validLicenseFixture()
		planRepo.plans["plan-1"].MaxMessagesPerPeriod = int64Ptr(100)
		licenseRepo.byKey["ah_lic_good"].PeriodMessages = 99
		svc := NewLicenseService(licenseRepo, planRepo, agentRepo)

		_, err := svc.Validate(ctx, "ah_lic_good")
		assert.NoError(t, err)
	})

	t.Run("token cap blocks at the limit", func(t *testing.T) {
		licenseRepo, planRepo, agentRepo := validLicenseFixture()
		planRepo.plans["plan-1"].MaxTokensPerPeriod = int64Ptr(50_000)
		licenseRepo.byKey["ah_lic_good"].PeriodTokens = 50_000
		svc := NewLicenseService(licenseRepo, planRepo, agentRepo)

		_, err := svc.Validate(ctx, "ah_lic_good")
		assert.Equal(t, apperrors.ErrCodePeriodLimitReached, apperrors.GetCode(err))
	})

	t.Run("missing agent fails", func(t *testing.T) {
		licenseRepo, planRepo, agentRepo := validLicenseFixture()
		delete(agentRepo.agents, "agent-1")
		svc := NewLicenseService(licenseRepo, planRepo, agentRepo)

		_, err := svc.Validate(ctx, "ah_lic_good")
		assert.Equal(t, apperrors.ErrCodeAgentMissing, apperrors.GetCode(err))
	})
}

func TestLicenseServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("rental plan derives expiry from duration", func(t *testing.T) {
		licenseRepo, planRepo, agentRepo := validLicenseFixture()
		svc := NewLicenseService(licenseRepo, planRepo, agentRepo)
		days := 14
		plan := &model.PricingPlan{
			ID:                 "plan-rental",
			PlanType:           model.PlanTypeRental,
			RentalDurationDays: &days,
		}

		license, err := svc.Create(ctx, "agent-1", "buyer-1", plan)
		assert.NoError(t, err)
		assert.NotNil(t, license.ExpiresAt)
		expected := time.Now().AddDate(0, 0, 14)
		assert.WithinDuration(t, expected, *license.ExpiresAt, time.Minute)
	})

	t.Run("yearly subscription expires in 365 days", func(t *testing.T) {
		licenseRepo, planRepo, agentRepo := validLicenseFixture()
		svc := NewLicenseService(licenseRepo, planRepo, agentRepo)
		interval := "yearly"
		plan := &model.PricingPlan{
			ID:              "plan-sub",
			PlanType:        model.PlanTypeSubscription,
			BillingInterval: &interval,
		}

		license, err := svc.Create(ctx, "agent-1", "buyer-1", plan)
		assert.NoError(t, err)
		assert.NotNil(t, license.ExpiresAt)
		assert.WithinDuration(t, time.Now().AddDate(0, 0, 365), *license.ExpiresAt, time.Minute)
	})

	t.Run("credits plan never expires", func(t *testing.T) {
		licenseRepo, planRepo, agentRepo := validLicenseFixture()
		svc := NewLicenseService(licenseRepo, planRepo, agentRepo)
		plan := &model.PricingPlan{ID: "plan-credits", PlanType: model.PlanTypeCredits}

		license, err := svc.Create(ctx, "agent-1", "buyer-1", plan)
		assert.NoError(t, err)
		assert.Nil(t, license.ExpiresAt)
	})

	t.Run("generated key carries the prefix", func(t *testing.T) {
		licenseRepo, planRepo, agentRepo := validLicenseFixture()
		svc := NewLicenseService(licenseRepo, planRepo, agentRepo)
		plan := &model.PricingPlan{ID: "plan-credits", PlanType: model.PlanTypeCredits}

		license, err := svc.Create(ctx, "agent-1", "buyer-1", plan)
		assert.NoError(t, err)
		assert.Contains(t, license.LicenseKey, "ah_lic_")
	})
}
