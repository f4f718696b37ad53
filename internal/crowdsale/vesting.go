package crowdsale

import (
	"errors"
	"fmt"
	"math"

	"github.com/holiman/uint256"
)

// Validate checks the schedule invariants and normalizes a zero Unit to 1.
func (p *VestingParams) Validate() error {
	if p.VestingDuration == 0 {
		return fmt.Errorf("%w: vesting duration must be positive", ErrInvalidConfig)
	}
	if p.CliffDuration > p.VestingDuration {
		return fmt.Errorf("%w: cliff %d exceeds vesting duration %d", ErrInvalidConfig, p.CliffDuration, p.VestingDuration)
	}
	if p.VestingStart > math.MaxUint64-p.VestingDuration {
		return fmt.Errorf("%w: vesting end overflows", ErrInvalidConfig)
	}
	if p.Unit == 0 {
		p.Unit = 1
	}
	return nil
}

// VestedAt returns the portion of total unlocked at now.
//
// Before the cliff nothing is vested. From the cliff on, the vested fraction
// is measured from VestingStart, not from the cliff. At or after
// VestingStart+VestingDuration the whole total is vested. In between the
// result is truncated, then rounded down to a multiple of Unit.
func (p VestingParams) VestedAt(now uint64, total *uint256.Int) *uint256.Int {
	if now < p.VestingStart+p.CliffDuration {
		return new(uint256.Int)
	}
	if now >= p.VestingStart+p.VestingDuration {
		return total.Clone()
	}

	elapsed := uint256.NewInt(now - p.VestingStart)
	duration := uint256.NewInt(p.VestingDuration)

	// elapsed < duration, so the quotient is below total and cannot overflow.
	vested, _ := new(uint256.Int).MulDivOverflow(total, elapsed, duration)

	if p.Unit > 1 {
		rem := new(uint256.Int).Mod(vested, uint256.NewInt(p.Unit))
		vested.Sub(vested, rem)
	}
	return vested
}

// VestingLedger keeps one BeneficiaryRecord per purchaser and evaluates them
// against the shared schedule.
//
// Mutations are two-phase: Record and MarkReleased return a staged copy of
// the record, which becomes visible only once passed to CommitPurchase or
// CommitRelease. This lets the caller move tokens between the two phases.
type VestingLedger struct {
	params  VestingParams
	storage Storage
}

// NewVestingLedger creates a ledger over storage. A nil storage uses LocalStorage.
func NewVestingLedger(params VestingParams, storage Storage) (*VestingLedger, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if storage == nil {
		storage = NewLocalStorage()
	}
	return &VestingLedger{params: params, storage: storage}, nil
}

// Params returns the schedule.
func (v *VestingLedger) Params() VestingParams { return v.params }

// Get returns the beneficiary's record, or a zero record if none exists yet.
func (v *VestingLedger) Get(beneficiary string) (*BeneficiaryRecord, error) {
	record, err := v.storage.ReadRecord(beneficiary)
	if errors.Is(err, ErrNotFound) {
		return newBeneficiaryRecord(beneficiary), nil
	}
	return record, err
}

// VestedAmount returns the beneficiary's vested allocation at now.
func (v *VestingLedger) VestedAmount(now uint64, beneficiary string) (*uint256.Int, error) {
	record, err := v.Get(beneficiary)
	if err != nil {
		return nil, err
	}
	return v.params.VestedAt(now, record.TotalAllocated), nil
}

// Releasable returns vested minus already released at now.
func (v *VestingLedger) Releasable(now uint64, beneficiary string) (*uint256.Int, error) {
	record, err := v.Get(beneficiary)
	if err != nil {
		return nil, err
	}
	return v.releasable(now, record), nil
}

func (v *VestingLedger) releasable(now uint64, record *BeneficiaryRecord) *uint256.Int {
	vested := v.params.VestedAt(now, record.TotalAllocated)
	if vested.Lt(record.TotalReleased) {
		return new(uint256.Int)
	}
	return vested.Sub(vested, record.TotalReleased)
}

// Record stages an allocation increase for beneficiary.
func (v *VestingLedger) Record(beneficiary string, amount *uint256.Int) (*BeneficiaryRecord, error) {
	if beneficiary == "" {
		return nil, ErrEmptyID
	}
	if amount == nil || amount.IsZero() {
		return nil, fmt.Errorf("%w: allocation must be positive", ErrInvalidAmount)
	}

	record, err := v.Get(beneficiary)
	if err != nil {
		return nil, err
	}
	if _, overflow := record.TotalAllocated.AddOverflow(record.TotalAllocated, amount); overflow {
		return nil, fmt.Errorf("%w: total allocation of %s", ErrOverflow, beneficiary)
	}
	return record, nil
}

// MarkReleased stages a release of amount on record. It must only be
// committed after the matching external transfer succeeded.
func (v *VestingLedger) MarkReleased(record *BeneficiaryRecord, amount *uint256.Int) (*BeneficiaryRecord, error) {
	staged := record.clone()
	staged.TotalReleased.Add(staged.TotalReleased, amount)
	if staged.TotalReleased.Gt(staged.TotalAllocated) {
		return nil, fmt.Errorf("%w: release of %s exceeds allocation of %s", ErrInvalidAmount, amount.Dec(), record.Beneficiary)
	}
	return staged, nil
}

// CommitPurchase persists a record staged by Record together with its receipt.
func (v *VestingLedger) CommitPurchase(record *BeneficiaryRecord, p *Purchase) error {
	return v.storage.CommitPurchase(record, p)
}

// CommitRelease persists a record staged by MarkReleased together with its receipt.
func (v *VestingLedger) CommitRelease(record *BeneficiaryRecord, r *ReleaseReceipt) error {
	return v.storage.CommitRelease(record, r)
}

// Beneficiaries returns the number of beneficiaries with a record.
func (v *VestingLedger) Beneficiaries() int { return v.storage.CountRecords() }
