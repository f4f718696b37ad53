package crowdsale

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api_crowdsale/internal/token"
)

const t0 uint64 = 1_700_000_000

func referenceSchedule(unit uint64) VestingParams {
	return VestingParams{
		CliffDuration:   90 * Day,
		VestingStart:    t0,
		VestingDuration: 365 * Day,
		Unit:            unit,
	}
}

func TestVestingParams_Validate(t *testing.T) {
	p := VestingParams{CliffDuration: 10, VestingDuration: 10}
	require.NoError(t, p.Validate())
	assert.Equal(t, uint64(1), p.Unit, "zero unit should normalize to 1")

	bad := []VestingParams{
		{VestingDuration: 0},
		{CliffDuration: 11, VestingDuration: 10},
		{VestingStart: ^uint64(0), VestingDuration: 1},
	}
	for _, p := range bad {
		assert.ErrorIs(t, p.Validate(), ErrInvalidConfig)
	}
}

func TestVestedAt_BeforeCliffIsZero(t *testing.T) {
	p := referenceSchedule(1)
	total := token.FromTokens(1000)

	for _, now := range []uint64{0, t0 - 1, t0, t0 + Day, t0 + 90*Day - 1} {
		assert.True(t, p.VestedAt(now, total).IsZero(), "now=%d", now)
	}
}

func TestVestedAt_CliffGatesButRampStartsAtVestingStart(t *testing.T) {
	p := referenceSchedule(1)
	total := token.FromTokens(365)

	// At the cliff, the 90 days since vesting start are vested at once.
	got := p.VestedAt(t0+90*Day, total)
	assert.Equal(t, token.FromTokens(90), got)
}

func TestVestedAt_AfterDurationIsTotal(t *testing.T) {
	p := referenceSchedule(1000)
	total := new(uint256.Int).AddUint64(token.FromTokens(1000), 7)

	for _, now := range []uint64{t0 + 365*Day, t0 + 366*Day, ^uint64(0)} {
		assert.Equal(t, total, p.VestedAt(now, total), "now=%d", now)
	}
}

func TestVestedAt_ReferenceValue(t *testing.T) {
	total := token.FromTokens(1000)
	now := t0 + 181*Day

	// Rounded to whole payment units at rate 1000, as the reference deployment reports.
	assert.Equal(t, "495890410958904109000", referenceSchedule(1000).VestedAt(now, total).Dec())

	// Plain truncated formula.
	assert.Equal(t, "495890410958904109589", referenceSchedule(1).VestedAt(now, total).Dec())
}

func TestVestedAt_Monotonic(t *testing.T) {
	for _, unit := range []uint64{1, 1000} {
		p := referenceSchedule(unit)
		total := uint256.NewInt(999_999_999_999_999_999)

		prev := new(uint256.Int)
		for now := t0 - Day; now <= t0+370*Day; now += 3 * 3600 {
			v := p.VestedAt(now, total)
			require.False(t, v.Lt(prev), "unit=%d now=%d: %s < %s", unit, now, v.Dec(), prev.Dec())
			require.False(t, v.Gt(total))
			prev = v
		}
	}
}

func TestVestedAt_MaxAllocationDoesNotOverflow(t *testing.T) {
	p := referenceSchedule(1)
	top := new(uint256.Int).SetAllOne()

	half := p.VestedAt(t0+365*Day/2, top)
	assert.True(t, half.Lt(top))
	assert.True(t, half.Gt(new(uint256.Int).Rsh(top, 2)))
}

func TestVestingLedger_RecordAndRelease(t *testing.T) {
	v, err := NewVestingLedger(referenceSchedule(1), nil)
	require.NoError(t, err)

	_, err = v.Record("alice", new(uint256.Int))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = v.Record("", uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrEmptyID)

	staged, err := v.Record("alice", uint256.NewInt(365))
	require.NoError(t, err)

	// Nothing is visible before the commit.
	assert.Equal(t, 0, v.Beneficiaries())
	require.NoError(t, v.CommitPurchase(staged, &Purchase{ID: "p1", Beneficiary: "alice"}))
	assert.Equal(t, 1, v.Beneficiaries())

	releasable, err := v.Releasable(t0+100*Day, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), releasable.Uint64())

	record, err := v.Get("alice")
	require.NoError(t, err)
	released, err := v.MarkReleased(record, releasable)
	require.NoError(t, err)
	require.NoError(t, v.CommitRelease(released, &ReleaseReceipt{ID: "r1", Beneficiary: "alice"}))

	releasable, err = v.Releasable(t0+100*Day, "alice")
	require.NoError(t, err)
	assert.True(t, releasable.IsZero())

	releasable, err = v.Releasable(t0+400*Day, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(265), releasable.Uint64())

	_, err = v.MarkReleased(released, uint256.NewInt(266))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestVestingLedger_UnknownBeneficiaryIsZero(t *testing.T) {
	v, err := NewVestingLedger(referenceSchedule(1), nil)
	require.NoError(t, err)

	vested, err := v.VestedAmount(t0+400*Day, "nobody")
	require.NoError(t, err)
	assert.True(t, vested.IsZero())
	assert.Equal(t, 0, v.Beneficiaries())
}

func TestVestingLedger_RecordOverflow(t *testing.T) {
	v, err := NewVestingLedger(referenceSchedule(1), nil)
	require.NoError(t, err)

	staged, err := v.Record("alice", new(uint256.Int).SetAllOne())
	require.NoError(t, err)
	require.NoError(t, v.CommitPurchase(staged, &Purchase{ID: "p1", Beneficiary: "alice"}))

	_, err = v.Record("alice", uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrOverflow)
}
