package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/agenthive/proxy-server-go/internal/model"
)

type AgentRepository interface {
	FindByID(ctx context.Context, id string) (*model.Agent, error)
	// AddEarnedCredits bumps the agent's lifetime earnings counter.
	AddEarnedCredits(ctx context.Context, id string, credits int64) error
	WithTx(tx *sqlx.Tx) AgentRepository
}

type agentRepo struct {
	db sqlxDB
}

func NewAgentRepository(db *sqlx.DB) AgentRepository {
	return &agentRepo{db: db}
}

func (r *agentRepo) WithTx(tx *sqlx.Tx) AgentRepository {
	return &agentRepo{db: tx}
}

func (r *agentRepo) FindByID(ctx context.Context, id string) (*model.Agent, error) {
	var agent model.Agent
	err := r.db.GetContext(ctx, &agent, `
		SELECT * FROM agents WHERE id = $1 AND disabled_at IS NULL
	`, id)
	return HandleNotFound(&agent, err)
}

func (r *agentRepo) AddEarnedCredits(ctx context.Context, id string, credits int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE agents SET
			total_earned_credits = total_earned_credits + $2,
			updated_at = NOW()
		WHERE id = $1
	`, id, credits)
	return err
}
