package token

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Decimals is the number of decimals of every amount handled here.
const Decimals = 18

var one = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(Decimals))

// FromTokens converts a whole-token count to base units.
func FromTokens(tokens uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(tokens), one)
}

// ParseAmount parses a base-unit decimal string.
func ParseAmount(s string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return amount, nil
}
