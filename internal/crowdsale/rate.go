package crowdsale

import (
	"fmt"

	"github.com/holiman/uint256"
)

// RateConverter maps a payment amount to an allocation at a fixed integer rate.
type RateConverter struct {
	rate *uint256.Int
}

// NewRateConverter returns a converter selling rate allocation units per payment unit.
func NewRateConverter(rate uint64) (*RateConverter, error) {
	if rate == 0 {
		return nil, fmt.Errorf("%w: rate must be positive", ErrInvalidConfig)
	}
	return &RateConverter{rate: uint256.NewInt(rate)}, nil
}

// Rate returns the configured multiplier.
func (c *RateConverter) Rate() uint64 { return c.rate.Uint64() }

// ToAllocation returns payment * rate. The conversion is exact; it fails with
// ErrOverflow if the product does not fit in 256 bits.
func (c *RateConverter) ToAllocation(payment *uint256.Int) (*uint256.Int, error) {
	allocation, overflow := new(uint256.Int).MulOverflow(payment, c.rate)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s", ErrOverflow, payment.Dec(), c.rate.Dec())
	}
	return allocation, nil
}
