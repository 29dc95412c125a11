package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/agenthive/proxy-server-go/internal/model"
)

type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*model.Account, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.Account, error)
	// Credit unconditionally adds amount to the account balance.
	Credit(ctx context.Context, id string, amount int64) error
	// DebitIfSufficient deducts amount in a single statement guarded by
	// balance >= amount. Returns false when the guard fails. This is the only
	// way a balance decreases, which keeps balances non-negative under
	// concurrent settlement.
	DebitIfSufficient(ctx context.Context, id string, amount int64) (bool, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) AccountRepository
}

type accountRepo struct {
	db sqlxDB
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) WithTx(tx *sqlx.Tx) AccountRepository {
	return &accountRepo{db: tx}
}

func (r *accountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM accounts WHERE id = $1
	`, id)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM accounts
		WHERE api_token_hash = $1 AND disabled_at IS NULL
	`, tokenHash)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) Credit(ctx context.Context, id string, amount int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET credit_balance = credit_balance + $2
		WHERE id = $1
	`, id, amount)
	return err
}

func (r *accountRepo) DebitIfSufficient(ctx context.Context, id string, amount int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET credit_balance = credit_balance - $2
		WHERE id = $1 AND credit_balance >= $2
	`, id, amount)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
