package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/agenthive/proxy-server-go/internal/model"
)

type UsageRepository interface {
	Create(ctx context.Context, params model.CreateUsageRecordParams) (*model.UsageRecord, error)
	FindByLicenseID(ctx context.Context, licenseID string, limit, offset int) ([]model.UsageRecord, error)
	WithTx(tx *sqlx.Tx) UsageRepository
}

type usageRepo struct {
	db sqlxDB
}

func NewUsageRepository(db *sqlx.DB) UsageRepository {
	return &usageRepo{db: db}
}

func (r *usageRepo) WithTx(tx *sqlx.Tx) UsageRepository {
	return &usageRepo{db: tx}
}

func (r *usageRepo) Create(ctx context.Context, params model.CreateUsageRecordParams) (*model.UsageRecord, error) {
	var record model.UsageRecord
	err := r.db.GetContext(ctx, &record, `
		INSERT INTO usage_records (
			id, license_id, agent_id, buyer_id, model,
			input_tokens, output_tokens, total_tokens,
			estimated_cost_cents, response_time_ms, success, error_message,
			credits_charged, creator_credits_earned, platform_fee_credits
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING *
	`, uuid.NewString(), params.LicenseID, params.AgentID, params.BuyerID, params.Model,
		params.InputTokens, params.OutputTokens, params.InputTokens+params.OutputTokens,
		params.EstimatedCostCents, params.ResponseTimeMS, params.Success, params.ErrorMessage,
		params.CreditsCharged, params.CreatorCreditsEarned, params.PlatformFeeCredits)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *usageRepo) FindByLicenseID(ctx context.Context, licenseID string, limit, offset int) ([]model.UsageRecord, error) {
	var records []model.UsageRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT * FROM usage_records
		WHERE license_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, licenseID, limit, offset)
	if err != nil {
		return nil, err
	}
	return records, nil
}
