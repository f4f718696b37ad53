package crowdsale

//go:generate mockgen -destination "mock_ledger_test.go" -package $GOPACKAGE -write_package_comment=false api_crowdsale/internal/crowdsale TokenLedger

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
)

// TokenLedger is the external balance ledger holding the asset being sold.
// Credit moves amount from the sale's reserve to account; Debit moves it back.
type TokenLedger interface {
	Credit(ctx context.Context, account string, amount *uint256.Int) error
	Debit(ctx context.Context, account string, amount *uint256.Int) error
	BalanceOf(ctx context.Context, account string) (*uint256.Int, error)
}

// DeliveryPolicy decides when purchased tokens leave the sale reserve.
type DeliveryPolicy string

const (
	// DeliverOnPurchase credits the full allocation at purchase time and also
	// records it as the vesting base, so releases credit it a second time.
	DeliverOnPurchase DeliveryPolicy = "purchase"

	// DeliverOnRelease credits nothing at purchase time; tokens only move
	// through Release.
	DeliverOnRelease DeliveryPolicy = "release"
)

// ParseDeliveryPolicy parses "purchase" or "release". An empty string is DeliverOnPurchase.
func ParseDeliveryPolicy(s string) (DeliveryPolicy, error) {
	switch DeliveryPolicy(s) {
	case "", DeliverOnPurchase:
		return DeliverOnPurchase, nil
	case DeliverOnRelease:
		return DeliverOnRelease, nil
	}
	return "", fmt.Errorf("%w: unknown delivery policy %q", ErrInvalidConfig, s)
}
