package crowdsale

import "sort"

// Storage is the persistence interface behind the vesting ledger and the
// receipt history. Each Commit call must apply the record and the receipt
// together or not at all. Implementations need not be safe for concurrent
// use; Sale serializes every call.
type Storage interface {
	ReadRecord(beneficiary string) (*BeneficiaryRecord, error)
	CountRecords() int

	CommitPurchase(record *BeneficiaryRecord, p *Purchase) error
	CommitRelease(record *BeneficiaryRecord, r *ReleaseReceipt) error

	GetPurchases() ([]*Purchase, error)
	GetReleases() ([]*ReleaseReceipt, error)
}

// LocalStorage provides an in-memory implementation of Storage.
type LocalStorage struct {
	records   map[string]*BeneficiaryRecord
	purchases []*Purchase
	releases  []*ReleaseReceipt
}

// NewLocalStorage instantiates an empty LocalStorage.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		records: map[string]*BeneficiaryRecord{},
	}
}

// ReadRecord returns a copy of the beneficiary's record.
// Returns ErrNotFound if the beneficiary never purchased.
func (l *LocalStorage) ReadRecord(beneficiary string) (*BeneficiaryRecord, error) {
	r, ok := l.records[beneficiary]
	if !ok {
		return nil, ErrNotFound
	}
	return r.clone(), nil
}

// CountRecords returns the number of beneficiaries with a record.
func (l *LocalStorage) CountRecords() int {
	return len(l.records)
}

// CommitPurchase stores the updated record and appends a copy of the purchase.
// Returns ErrEmptyID if either has no identity.
func (l *LocalStorage) CommitPurchase(record *BeneficiaryRecord, p *Purchase) error {
	if record.Beneficiary == "" || p.ID == "" {
		return ErrEmptyID
	}
	l.records[record.Beneficiary] = record.clone()
	l.purchases = append(l.purchases, p.clone())
	return nil
}

// CommitRelease stores the updated record and appends a copy of the receipt.
// Returns ErrEmptyID if either has no identity.
func (l *LocalStorage) CommitRelease(record *BeneficiaryRecord, r *ReleaseReceipt) error {
	if record.Beneficiary == "" || r.ID == "" {
		return ErrEmptyID
	}
	l.records[record.Beneficiary] = record.clone()
	l.releases = append(l.releases, r.clone())
	return nil
}

// GetPurchases returns copies of all purchases ordered by timestamp.
func (l *LocalStorage) GetPurchases() ([]*Purchase, error) {
	out := make([]*Purchase, 0, len(l.purchases))
	for _, p := range l.purchases {
		out = append(out, p.clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// GetReleases returns copies of all non-zero releases in commit order.
func (l *LocalStorage) GetReleases() ([]*ReleaseReceipt, error) {
	out := make([]*ReleaseReceipt, 0, len(l.releases))
	for _, r := range l.releases {
		out = append(out, r.clone())
	}
	return out, nil
}
