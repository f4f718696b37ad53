package crowdsale

import "github.com/holiman/uint256"

// Day is one day in seconds, the unit the sale schedule is usually expressed in.
const Day uint64 = 86400

// DefaultRate is the number of allocation units sold per payment unit.
const DefaultRate uint64 = 1000

// SaleConfig holds the fixed parameters of a sale plus the running total raised.
type SaleConfig struct {
	StartTime     uint64       `json:"start_time"`
	EndTime       uint64       `json:"end_time"`
	Rate          uint64       `json:"rate"`
	Administrator string       `json:"administrator"`
	TotalRaised   *uint256.Int `json:"total_raised"`
}

// SaleState is the mutable switch controlled by the administrator.
type SaleState struct {
	Halted bool `json:"halted"`
}

// VestingParams describes the cliff + linear schedule shared by all beneficiaries.
// Unit is the granularity vested amounts are rounded down to.
type VestingParams struct {
	CliffDuration   uint64 `json:"cliff_duration"`
	VestingStart    uint64 `json:"vesting_start"`
	VestingDuration uint64 `json:"vesting_duration"`
	Unit            uint64 `json:"unit"`
}

// BeneficiaryRecord is the vesting bookkeeping for one purchaser.
type BeneficiaryRecord struct {
	Beneficiary    string       `json:"beneficiary"`
	TotalAllocated *uint256.Int `json:"total_allocated"`
	TotalReleased  *uint256.Int `json:"total_released"`
}

func newBeneficiaryRecord(beneficiary string) *BeneficiaryRecord {
	return &BeneficiaryRecord{
		Beneficiary:    beneficiary,
		TotalAllocated: new(uint256.Int),
		TotalReleased:  new(uint256.Int),
	}
}

func (r *BeneficiaryRecord) clone() *BeneficiaryRecord {
	return &BeneficiaryRecord{
		Beneficiary:    r.Beneficiary,
		TotalAllocated: r.TotalAllocated.Clone(),
		TotalReleased:  r.TotalReleased.Clone(),
	}
}

// Purchase is the receipt of a successful Buy.
type Purchase struct {
	ID          string       `json:"id"`
	Beneficiary string       `json:"beneficiary"`
	Payment     *uint256.Int `json:"payment"`
	Allocation  *uint256.Int `json:"allocation"`
	Delivered   *uint256.Int `json:"delivered"`
	Timestamp   uint64       `json:"timestamp"`
}

// ReleaseReceipt is the result of a Release call. A zero Amount means the
// call was a no-op and nothing was stored.
type ReleaseReceipt struct {
	ID          string       `json:"id,omitempty"`
	Caller      string       `json:"caller"`
	Beneficiary string       `json:"beneficiary"`
	Amount      *uint256.Int `json:"amount"`
	Timestamp   uint64       `json:"timestamp"`
}

func (p *Purchase) clone() *Purchase {
	c := *p
	c.Payment = cloneInt(p.Payment)
	c.Allocation = cloneInt(p.Allocation)
	c.Delivered = cloneInt(p.Delivered)
	return &c
}

func (r *ReleaseReceipt) clone() *ReleaseReceipt {
	c := *r
	c.Amount = cloneInt(r.Amount)
	return &c
}

func cloneInt(x *uint256.Int) *uint256.Int {
	if x == nil {
		return nil
	}
	return x.Clone()
}

// PurchaseMetadata summarizes a purchase search.
type PurchaseMetadata struct {
	Quantity        int          `json:"quantity"`
	TotalPayment    *uint256.Int `json:"total_payment"`
	TotalAllocation *uint256.Int `json:"total_allocation"`
}

// BeneficiaryView is a point-in-time snapshot of a beneficiary's vesting.
type BeneficiaryView struct {
	BeneficiaryRecord
	Vested     *uint256.Int `json:"vested"`
	Releasable *uint256.Int `json:"releasable"`
}

// Stats is a point-in-time snapshot of the sale.
type Stats struct {
	SaleConfig
	VestingParams VestingParams  `json:"vesting"`
	Halted        bool           `json:"halted"`
	Open          bool           `json:"open"`
	Beneficiaries int            `json:"beneficiaries"`
	Delivery      DeliveryPolicy `json:"delivery"`
}
