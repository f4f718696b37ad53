// Package token implements the balance ledger of the asset being sold: an
// in-memory fungible token, an adapter exposing one of its accounts as the
// sale reserve, and an HTTP client for a ledger served by another process.
package token

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

var (
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrInvalidAccount        = errors.New("token: invalid account")
	ErrInvalidAmount         = errors.New("token: invalid amount")
	ErrUnauthorized          = errors.New("token: unauthorized")
)

// Token is a fixed-supply fungible token. The whole supply is minted to the
// owner at construction, so the sum of all balances always equals TotalSupply.
type Token struct {
	mu sync.RWMutex

	name        string
	symbol      string
	totalSupply *uint256.Int
	balances    map[string]*uint256.Int
	allowances  map[string]map[string]*uint256.Int
	logger      *zap.Logger
}

// New mints supply to owner.
func New(name, symbol, owner string, supply *uint256.Int, logger *zap.Logger) (*Token, error) {
	if owner == "" {
		return nil, ErrInvalidAccount
	}
	if supply == nil {
		return nil, ErrInvalidAmount
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Token{
		name:        name,
		symbol:      symbol,
		totalSupply: supply.Clone(),
		balances:    map[string]*uint256.Int{owner: supply.Clone()},
		allowances:  map[string]map[string]*uint256.Int{},
		logger:      logger,
	}
	logger.Info("token minted", zap.String("symbol", symbol), zap.String("owner", owner), zap.Stringer("supply", supply))
	return t, nil
}

// Name returns the token name.
func (t *Token) Name() string { return t.name }

// Symbol returns the ticker symbol.
func (t *Token) Symbol() string { return t.symbol }

// Decimals returns the number of decimals amounts are expressed in.
func (t *Token) Decimals() uint8 { return Decimals }

// TotalSupply returns the fixed supply.
func (t *Token) TotalSupply() *uint256.Int { return t.totalSupply.Clone() }

// BalanceOf returns the balance of account; unknown accounts hold zero.
func (t *Token) BalanceOf(account string) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balanceOf(account).Clone()
}

func (t *Token) balanceOf(account string) *uint256.Int {
	if b, ok := t.balances[account]; ok {
		return b
	}
	return new(uint256.Int)
}

// Transfer moves amount from one account to another.
func (t *Token) Transfer(from, to string, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transfer(from, to, amount)
}

func (t *Token) transfer(from, to string, amount *uint256.Int) error {
	if from == "" || to == "" {
		return ErrInvalidAccount
	}
	if amount == nil {
		return ErrInvalidAmount
	}

	balance := t.balanceOf(from)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, from, balance.Dec(), amount.Dec())
	}

	t.balances[from] = new(uint256.Int).Sub(balance, amount)
	// Cannot overflow: the sum of balances is bounded by the supply.
	t.balances[to] = new(uint256.Int).Add(t.balanceOf(to), amount)

	t.logger.Debug("transfer", zap.String("from", from), zap.String("to", to), zap.Stringer("amount", amount))
	return nil
}

// Approve sets the amount spender may move out of owner's account.
func (t *Token) Approve(owner, spender string, amount *uint256.Int) error {
	if owner == "" || spender == "" {
		return ErrInvalidAccount
	}
	if amount == nil {
		return ErrInvalidAmount
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.allowances[owner] == nil {
		t.allowances[owner] = map[string]*uint256.Int{}
	}
	t.allowances[owner][spender] = amount.Clone()
	return nil
}

// Allowance returns what spender may still move out of owner's account.
func (t *Token) Allowance(owner, spender string) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if a, ok := t.allowances[owner][spender]; ok {
		return a.Clone()
	}
	return new(uint256.Int)
}

// TransferFrom moves amount from owner to recipient on behalf of spender,
// consuming spender's allowance.
func (t *Token) TransferFrom(spender, owner, recipient string, amount *uint256.Int) error {
	if amount == nil {
		return ErrInvalidAmount
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	allowance, ok := t.allowances[owner][spender]
	if !ok || allowance.Lt(amount) {
		return fmt.Errorf("%w: %s may not spend %s of %s", ErrInsufficientAllowance, spender, amount.Dec(), owner)
	}
	if err := t.transfer(owner, recipient, amount); err != nil {
		return err
	}
	t.allowances[owner][spender] = new(uint256.Int).Sub(allowance, amount)
	return nil
}
