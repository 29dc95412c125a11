package model

import (
	"time"
)

// Account holds both buyers and creators. CreditBalance is mutated only
// through the ledger operations on AccountRepository and never goes negative.
type Account struct {
	ID               string     `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	DisplayName      *string    `db:"display_name" json:"displayName,omitempty"`
	CreditBalance    int64      `db:"credit_balance" json:"creditBalance"`
	StripeCustomerID *string    `db:"stripe_customer_id" json:"-"`
	APITokenHash     *string    `db:"api_token_hash" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	DisabledAt       *time.Time `db:"disabled_at" json:"disabledAt,omitempty"`
}
