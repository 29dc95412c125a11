package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/agenthive/proxy-server-go/internal/model"
)

type PlanRepository interface {
	FindByID(ctx context.Context, id string) (*model.PricingPlan, error)
	WithTx(tx *sqlx.Tx) PlanRepository
}

type planRepo struct {
	db sqlxDB
}

func NewPlanRepository(db *sqlx.DB) PlanRepository {
	return &planRepo{db: db}
}

func (r *planRepo) WithTx(tx *sqlx.Tx) PlanRepository {
	return &planRepo{db: tx}
}

func (r *planRepo) FindByID(ctx context.Context, id string) (*model.PricingPlan, error) {
	var plan model.PricingPlan
	err := r.db.GetContext(ctx, &plan, `
		SELECT * FROM pricing_plans WHERE id = $1
	`, id)
	return HandleNotFound(&plan, err)
}
