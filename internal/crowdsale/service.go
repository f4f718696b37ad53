package crowdsale

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Config holds the constructor parameters of a Sale.
type Config struct {
	StartTime       uint64
	EndTime         uint64
	Administrator   string
	Ledger          TokenLedger
	CliffDuration   uint64
	VestingStart    uint64
	VestingDuration uint64
}

type options struct {
	rate     uint64
	unit     uint64
	unitSet  bool
	storage  Storage
	delivery DeliveryPolicy
	logger   *zap.Logger
}

// Option configures a Sale.
type Option func(*options)

// WithRate sets the allocation units sold per payment unit (default DefaultRate).
func WithRate(rate uint64) Option {
	return func(o *options) { o.rate = rate }
}

// WithVestingUnit sets the granularity vested amounts are rounded down to.
// The default is the rate, i.e. vesting advances in whole payment units.
// A unit of 1 applies the plain truncated linear formula.
func WithVestingUnit(unit uint64) Option {
	return func(o *options) {
		o.unit = unit
		o.unitSet = true
	}
}

// WithStorage sets the record and receipt storage (default LocalStorage).
func WithStorage(s Storage) Option {
	return func(o *options) { o.storage = s }
}

// WithDeliveryPolicy sets when purchased tokens are credited (default DeliverOnPurchase).
func WithDeliveryPolicy(p DeliveryPolicy) Option {
	return func(o *options) { o.delivery = p }
}

// WithLogger sets the logger (default zap.NewNop).
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Sale is a time-boxed token sale with linear vesting of purchased
// allocations. Mutating operations are serialized by a single lock held for
// the whole operation, external ledger call included; queries share a read
// lock and always observe a consistent snapshot.
type Sale struct {
	mu sync.RWMutex

	window      *SaleWindow
	converter   *RateConverter
	vesting     *VestingLedger
	ledger      TokenLedger
	totalRaised *uint256.Int
	delivery    DeliveryPolicy
	logger      *zap.Logger
}

// New creates a Sale.
func New(cfg Config, opts ...Option) (*Sale, error) {
	o := options{
		rate:     DefaultRate,
		delivery: DeliverOnPurchase,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if !o.unitSet {
		o.unit = o.rate
	}

	if cfg.Ledger == nil {
		return nil, fmt.Errorf("%w: token ledger is required", ErrInvalidConfig)
	}
	if o.delivery != DeliverOnPurchase && o.delivery != DeliverOnRelease {
		return nil, fmt.Errorf("%w: unknown delivery policy %q", ErrInvalidConfig, o.delivery)
	}

	window, err := NewSaleWindow(cfg.StartTime, cfg.EndTime, cfg.Administrator)
	if err != nil {
		return nil, err
	}
	converter, err := NewRateConverter(o.rate)
	if err != nil {
		return nil, err
	}
	vesting, err := NewVestingLedger(VestingParams{
		CliffDuration:   cfg.CliffDuration,
		VestingStart:    cfg.VestingStart,
		VestingDuration: cfg.VestingDuration,
		Unit:            o.unit,
	}, o.storage)
	if err != nil {
		return nil, err
	}

	return &Sale{
		window:      window,
		converter:   converter,
		vesting:     vesting,
		ledger:      cfg.Ledger,
		totalRaised: new(uint256.Int),
		delivery:    o.delivery,
		logger:      o.logger,
	}, nil
}

// Buy purchases tokens for buyer with payment at now.
//
// The buyer's allocation is recorded as vesting base and, under
// DeliverOnPurchase, credited immediately. If the credit fails nothing is
// committed.
func (s *Sale) Buy(ctx context.Context, buyer string, now uint64, payment *uint256.Int) (*Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.window.Admit(now); err != nil {
		s.logger.Warn("purchase rejected", zap.String("buyer", buyer), zap.Uint64("now", now), zap.Error(err))
		return nil, err
	}
	if buyer == "" {
		return nil, ErrEmptyID
	}
	if payment == nil || payment.IsZero() {
		return nil, fmt.Errorf("%w: payment must be positive", ErrInvalidAmount)
	}

	allocation, err := s.converter.ToAllocation(payment)
	if err != nil {
		return nil, err
	}
	raised, overflow := new(uint256.Int).AddOverflow(s.totalRaised, payment)
	if overflow {
		return nil, fmt.Errorf("%w: total raised", ErrOverflow)
	}
	record, err := s.vesting.Record(buyer, allocation)
	if err != nil {
		return nil, err
	}

	purchase := &Purchase{
		ID:          uuid.NewString(),
		Beneficiary: buyer,
		Payment:     payment.Clone(),
		Allocation:  allocation,
		Delivered:   new(uint256.Int),
		Timestamp:   now,
	}

	if s.delivery == DeliverOnPurchase {
		if err := s.ledger.Credit(ctx, buyer, allocation); err != nil {
			s.logger.Error("failed to deliver purchase", zap.String("buyer", buyer), zap.Stringer("allocation", allocation), zap.Error(err))
			return nil, &TransferError{Account: buyer, Amount: allocation.Clone(), Err: err}
		}
		purchase.Delivered = allocation.Clone()
	}

	if err := s.vesting.CommitPurchase(record, purchase); err != nil {
		s.compensate(ctx, buyer, purchase.Delivered)
		return nil, fmt.Errorf("crowdsale: commit purchase: %w", err)
	}
	s.totalRaised = raised

	s.logger.Info("tokens purchased",
		zap.String("purchase_id", purchase.ID),
		zap.String("buyer", buyer),
		zap.Stringer("payment", payment),
		zap.Stringer("allocation", allocation),
		zap.Stringer("delivered", purchase.Delivered),
	)
	return purchase, nil
}

// Release credits beneficiary with everything vested and not yet released
// at now. Anyone may call it for any beneficiary. A zero releasable amount is
// a successful no-op.
func (s *Sale) Release(ctx context.Context, caller string, now uint64, beneficiary string) (*ReleaseReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if beneficiary == "" {
		return nil, ErrEmptyID
	}

	record, err := s.vesting.Get(beneficiary)
	if err != nil {
		return nil, err
	}
	amount := s.vesting.releasable(now, record)
	receipt := &ReleaseReceipt{
		Caller:      caller,
		Beneficiary: beneficiary,
		Amount:      amount,
		Timestamp:   now,
	}
	if amount.IsZero() {
		s.logger.Debug("nothing to release", zap.String("beneficiary", beneficiary), zap.Uint64("now", now))
		return receipt, nil
	}

	staged, err := s.vesting.MarkReleased(record, amount)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Credit(ctx, beneficiary, amount); err != nil {
		s.logger.Error("failed to release tokens", zap.String("beneficiary", beneficiary), zap.Stringer("amount", amount), zap.Error(err))
		return nil, &TransferError{Account: beneficiary, Amount: amount.Clone(), Err: err}
	}

	receipt.ID = uuid.NewString()
	if err := s.vesting.CommitRelease(staged, receipt); err != nil {
		s.compensate(ctx, beneficiary, amount)
		return nil, fmt.Errorf("crowdsale: commit release: %w", err)
	}

	s.logger.Info("tokens released",
		zap.String("release_id", receipt.ID),
		zap.String("caller", caller),
		zap.String("beneficiary", beneficiary),
		zap.Stringer("amount", amount),
	)
	return receipt, nil
}

// compensate takes back a credit whose bookkeeping could not be committed.
func (s *Sale) compensate(ctx context.Context, account string, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	if err := s.ledger.Debit(ctx, account, amount); err != nil {
		s.logger.Error("failed to roll back credit", zap.String("account", account), zap.Stringer("amount", amount), zap.Error(err))
		return
	}
	s.logger.Warn("credit rolled back", zap.String("account", account), zap.Stringer("amount", amount))
}

// ToggleHalt flips the halt switch. Only the administrator may call it.
func (s *Sale) ToggleHalt(caller string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	halted, err := s.window.ToggleHalt(caller)
	if err != nil {
		s.logger.Warn("halt toggle rejected", zap.String("caller", caller))
		return halted, err
	}
	s.logger.Info("halt toggled", zap.String("caller", caller), zap.Bool("halted", halted))
	return halted, nil
}

// IsOpen reports whether a purchase at now would be admitted.
func (s *Sale) IsOpen(now uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window.IsOpen(now)
}

// IsHalted reports the halt switch.
func (s *Sale) IsHalted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window.Halted()
}

// VestedAmount returns the beneficiary's vested allocation at now.
func (s *Sale) VestedAmount(now uint64, beneficiary string) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vesting.VestedAmount(now, beneficiary)
}

// Releasable returns what a Release at now would credit.
func (s *Sale) Releasable(now uint64, beneficiary string) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vesting.Releasable(now, beneficiary)
}

// TotalRaised returns the sum of all accepted payments.
func (s *Sale) TotalRaised() *uint256.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalRaised.Clone()
}

// Rate returns the allocation units sold per payment unit.
func (s *Sale) Rate() uint64 { return s.converter.Rate() }

// Administrator returns the identity allowed to toggle the halt switch.
func (s *Sale) Administrator() string { return s.window.Administrator() }

// Beneficiary returns the beneficiary's record evaluated at now.
// Returns ErrNotFound if the beneficiary never purchased.
func (s *Sale) Beneficiary(now uint64, beneficiary string) (*BeneficiaryView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, err := s.vesting.storage.ReadRecord(beneficiary)
	if err != nil {
		return nil, err
	}
	return &BeneficiaryView{
		BeneficiaryRecord: *record,
		Vested:            s.vesting.params.VestedAt(now, record.TotalAllocated),
		Releasable:        s.vesting.releasable(now, record),
	}, nil
}

// SearchPurchases returns the purchases of beneficiary, or all purchases if
// beneficiary is empty, with summary metadata.
func (s *Sale) SearchPurchases(beneficiary string) ([]*Purchase, PurchaseMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.vesting.storage.GetPurchases()
	if err != nil {
		s.logger.Error("failed to get purchases from storage", zap.Error(err))
		return nil, PurchaseMetadata{}, fmt.Errorf("crowdsale: retrieve purchases: %w", err)
	}

	results := make([]*Purchase, 0)
	metadata := PurchaseMetadata{
		TotalPayment:    new(uint256.Int),
		TotalAllocation: new(uint256.Int),
	}
	for _, p := range all {
		if beneficiary != "" && p.Beneficiary != beneficiary {
			continue
		}
		results = append(results, p)
		metadata.Quantity++
		metadata.TotalPayment.Add(metadata.TotalPayment, p.Payment)
		metadata.TotalAllocation.Add(metadata.TotalAllocation, p.Allocation)
	}

	s.logger.Debug("purchase search completed",
		zap.String("beneficiary_filter", beneficiary),
		zap.Int("results_count", len(results)),
	)
	return results, metadata, nil
}

// Releases returns the non-zero releases of beneficiary, or all of them if
// beneficiary is empty.
func (s *Sale) Releases(beneficiary string) ([]*ReleaseReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.vesting.storage.GetReleases()
	if err != nil {
		return nil, fmt.Errorf("crowdsale: retrieve releases: %w", err)
	}
	results := make([]*ReleaseReceipt, 0, len(all))
	for _, r := range all {
		if beneficiary == "" || r.Beneficiary == beneficiary {
			results = append(results, r)
		}
	}
	return results, nil
}

// Stats returns a snapshot of the sale at now.
func (s *Sale) Stats(now uint64) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		SaleConfig: SaleConfig{
			StartTime:     s.window.StartTime(),
			EndTime:       s.window.EndTime(),
			Rate:          s.converter.Rate(),
			Administrator: s.window.Administrator(),
			TotalRaised:   s.totalRaised.Clone(),
		},
		VestingParams: s.vesting.Params(),
		Halted:        s.window.Halted(),
		Open:          s.window.IsOpen(now),
		Beneficiaries: s.vesting.Beneficiaries(),
		Delivery:      s.delivery,
	}
}
