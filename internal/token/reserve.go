package token

import (
	"context"

	"github.com/holiman/uint256"
)

// Reserve exposes one account of a Token as the sale's balance ledger:
// credits move tokens out of that account, debits move them back in.
type Reserve struct {
	token   *Token
	account string
}

// NewReserve returns a Reserve drawing from account.
func NewReserve(t *Token, account string) *Reserve {
	return &Reserve{token: t, account: account}
}

// Account returns the reserve account.
func (r *Reserve) Account() string { return r.account }

// Token returns the underlying token.
func (r *Reserve) Token() *Token { return r.token }

// Credit moves amount from the reserve account to account.
func (r *Reserve) Credit(_ context.Context, account string, amount *uint256.Int) error {
	return r.token.Transfer(r.account, account, amount)
}

// Debit moves amount from account back to the reserve account.
func (r *Reserve) Debit(_ context.Context, account string, amount *uint256.Int) error {
	return r.token.Transfer(account, r.account, amount)
}

// BalanceOf returns the token balance of account.
func (r *Reserve) BalanceOf(_ context.Context, account string) (*uint256.Int, error) {
	return r.token.BalanceOf(account), nil
}
