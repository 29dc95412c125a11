package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/agenthive/proxy-server-go/internal/model"
)

type EarningsRepository interface {
	Create(ctx context.Context, params model.CreateEarningsRecordParams) (*model.EarningsRecord, error)
	FindByOwnerID(ctx context.Context, ownerID string, limit, offset int) ([]model.EarningsRecord, error)
	WithTx(tx *sqlx.Tx) EarningsRepository
}

type earningsRepo struct {
	db sqlxDB
}

func NewEarningsRepository(db *sqlx.DB) EarningsRepository {
	return &earningsRepo{db: db}
}

func (r *earningsRepo) WithTx(tx *sqlx.Tx) EarningsRepository {
	return &earningsRepo{db: tx}
}

func (r *earningsRepo) Create(ctx context.Context, params model.CreateEarningsRecordParams) (*model.EarningsRecord, error) {
	var record model.EarningsRecord
	err := r.db.GetContext(ctx, &record, `
		INSERT INTO earnings_records (id, agent_id, owner_id, usage_record_id, gross_credits, platform_fee_credits, net_credits)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, uuid.NewString(), params.AgentID, params.OwnerID, params.UsageRecordID,
		params.GrossCredits, params.PlatformFeeCredits, params.NetCredits)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *earningsRepo) FindByOwnerID(ctx context.Context, ownerID string, limit, offset int) ([]model.EarningsRecord, error) {
	var records []model.EarningsRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT * FROM earnings_records
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return records, nil
}
