package crowdsale

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var (
	// ErrUnauthorized is returned when a caller other than the administrator
	// attempts a privileged operation.
	ErrUnauthorized = errors.New("crowdsale: unauthorized")

	// ErrSaleNotOpen is returned when a purchase is attempted outside the sale
	// window or while the sale is halted.
	ErrSaleNotOpen = errors.New("crowdsale: sale not open")

	// ErrInvalidAmount is returned for zero payments or zero allocations.
	ErrInvalidAmount = errors.New("crowdsale: invalid amount")

	// ErrOverflow is returned when an amount does not fit in 256 bits.
	ErrOverflow = errors.New("crowdsale: arithmetic overflow")

	// ErrTransfer is matched by every TransferError.
	ErrTransfer = errors.New("crowdsale: token transfer failed")

	// ErrInvalidConfig is returned by constructors given inconsistent parameters.
	ErrInvalidConfig = errors.New("crowdsale: invalid configuration")

	// ErrNotFound is returned when a beneficiary has no record.
	ErrNotFound = errors.New("crowdsale: beneficiary not found")

	// ErrEmptyID is returned when an operation is given an empty identity.
	ErrEmptyID = errors.New("crowdsale: empty account")
)

// TransferError wraps a failure of the external token ledger.
type TransferError struct {
	Account string
	Amount  *uint256.Int
	Err     error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("crowdsale: credit of %s to %s failed: %v", e.Amount.Dec(), e.Account, e.Err)
}

func (e *TransferError) Unwrap() []error {
	return []error{ErrTransfer, e.Err}
}

// IsClientError returns true if the error was caused by the request rather
// than by the sale or its token ledger.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrSaleNotOpen) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrOverflow) ||
		errors.Is(err, ErrEmptyID) ||
		errors.Is(err, ErrNotFound)
}
