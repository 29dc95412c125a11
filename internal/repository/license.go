package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/agenthive/proxy-server-go/internal/model"
)

type LicenseRepository interface {
	FindByID(ctx context.Context, id string) (*model.License, error)
	FindByKey(ctx context.Context, licenseKey string) (*model.License, error)
	FindActiveByAgentAndBuyer(ctx context.Context, agentID, buyerID string) (*model.License, error)
	Create(ctx context.Context, params model.CreateLicenseParams) (*model.License, error)
	// UpdateStatus transitions the license status. Used by lazy expiry and by
	// revocation; transitions are persisted even when the enclosing validation
	// fails.
	UpdateStatus(ctx context.Context, id string, status model.LicenseStatus) error
	// RecordUsage bumps the lifetime and period counters after a successful
	// proxied call.
	RecordUsage(ctx context.Context, id string, tokens, costCents, creditsSpent, creatorCredits int64) error
	WithTx(tx *sqlx.Tx) LicenseRepository
}

type licenseRepo struct {
	db sqlxDB
}

func NewLicenseRepository(db *sqlx.DB) LicenseRepository {
	return &licenseRepo{db: db}
}

func (r *licenseRepo) WithTx(tx *sqlx.Tx) LicenseRepository {
	return &licenseRepo{db: tx}
}

func (r *licenseRepo) FindByID(ctx context.Context, id string) (*model.License, error) {
	var license model.License
	err := r.db.GetContext(ctx, &license, `
		SELECT * FROM licenses WHERE id = $1
	`, id)
	return HandleNotFound(&license, err)
}

func (r *licenseRepo) FindByKey(ctx context.Context, licenseKey string) (*model.License, error) {
	var license model.License
	err := r.db.GetContext(ctx, &license, `
		SELECT * FROM licenses WHERE license_key = $1
	`, licenseKey)
	return HandleNotFound(&license, err)
}

func (r *licenseRepo) FindActiveByAgentAndBuyer(ctx context.Context, agentID, buyerID string) (*model.License, error) {
	var license model.License
	err := r.db.GetContext(ctx, &license, `
		SELECT * FROM licenses
		WHERE agent_id = $1 AND buyer_id = $2 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1
	`, agentID, buyerID)
	return HandleNotFound(&license, err)
}

func (r *licenseRepo) Create(ctx context.Context, params model.CreateLicenseParams) (*model.License, error) {
	var license model.License
	err := r.db.GetContext(ctx, &license, `
		INSERT INTO licenses (id, agent_id, buyer_id, plan_id, license_key, status, activated_at, expires_at, period_start)
		VALUES ($1, $2, $3, $4, $5, 'active', NOW(), $6, NOW())
		RETURNING *
	`, uuid.NewString(), params.AgentID, params.BuyerID, params.PlanID, params.LicenseKey, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &license, nil
}

func (r *licenseRepo) UpdateStatus(ctx context.Context, id string, status model.LicenseStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE licenses SET status = $2, updated_at = $3 WHERE id = $1
	`, id, status, time.Now())
	return err
}

func (r *licenseRepo) RecordUsage(ctx context.Context, id string, tokens, costCents, creditsSpent, creatorCredits int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE licenses SET
			total_messages = total_messages + 1,
			total_tokens_used = total_tokens_used + $2,
			total_cost_cents = total_cost_cents + $3,
			period_messages = period_messages + 1,
			period_tokens = period_tokens + $2,
			credits_spent = credits_spent + $4,
			creator_credits_earned = creator_credits_earned + $5,
			updated_at = NOW()
		WHERE id = $1
	`, id, tokens, costCents, creditsSpent, creatorCredits)
	return err
}
