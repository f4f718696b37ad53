package crowdsale

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestLocalStorage_ReadRecordNotFound(t *testing.T) {
	s := NewLocalStorage()

	if _, err := s.ReadRecord("alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if s.CountRecords() != 0 {
		t.Errorf("expected no records, got %d", s.CountRecords())
	}
}

func TestLocalStorage_CommitPurchase(t *testing.T) {
	s := NewLocalStorage()
	record := newBeneficiaryRecord("alice")
	record.TotalAllocated = uint256.NewInt(1000)

	if err := s.CommitPurchase(record, &Purchase{ID: "p1", Beneficiary: "alice", Timestamp: 2}); err != nil {
		t.Fatalf("CommitPurchase: %v", err)
	}

	// The stored record must not alias the caller's copy.
	record.TotalAllocated.SetUint64(1)

	got, err := s.ReadRecord("alice")
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if got.TotalAllocated.Uint64() != 1000 {
		t.Errorf("expected allocation 1000, got %s", got.TotalAllocated.Dec())
	}

	got.TotalAllocated.SetUint64(7)
	again, _ := s.ReadRecord("alice")
	if again.TotalAllocated.Uint64() != 1000 {
		t.Errorf("ReadRecord returned an aliased record")
	}
}

func TestLocalStorage_CommitRejectsMissingIdentity(t *testing.T) {
	s := NewLocalStorage()

	if err := s.CommitPurchase(newBeneficiaryRecord(""), &Purchase{ID: "p1"}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("expected ErrEmptyID for empty beneficiary, got %v", err)
	}
	if err := s.CommitPurchase(newBeneficiaryRecord("alice"), &Purchase{}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("expected ErrEmptyID for empty purchase ID, got %v", err)
	}
	if err := s.CommitRelease(newBeneficiaryRecord("alice"), &ReleaseReceipt{}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("expected ErrEmptyID for empty receipt ID, got %v", err)
	}

	// Nothing is applied by a rejected commit.
	if s.CountRecords() != 0 {
		t.Errorf("expected no records, got %d", s.CountRecords())
	}
	if purchases, _ := s.GetPurchases(); len(purchases) != 0 {
		t.Errorf("expected no purchases, got %d", len(purchases))
	}
}

func TestLocalStorage_GetPurchasesOrderedByTimestamp(t *testing.T) {
	s := NewLocalStorage()
	for _, p := range []*Purchase{
		{ID: "c", Beneficiary: "alice", Timestamp: 30},
		{ID: "a", Beneficiary: "bob", Timestamp: 10},
		{ID: "b", Beneficiary: "alice", Timestamp: 10},
	} {
		if err := s.CommitPurchase(newBeneficiaryRecord(p.Beneficiary), p); err != nil {
			t.Fatalf("CommitPurchase(%s): %v", p.ID, err)
		}
	}

	purchases, err := s.GetPurchases()
	if err != nil {
		t.Fatalf("GetPurchases: %v", err)
	}
	want := []string{"a", "b", "c"}
	for i, p := range purchases {
		if p.ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], p.ID)
		}
	}
	if s.CountRecords() != 2 {
		t.Errorf("expected 2 records, got %d", s.CountRecords())
	}
}

func TestLocalStorage_GetReleasesInCommitOrder(t *testing.T) {
	s := NewLocalStorage()
	record := newBeneficiaryRecord("alice")
	for _, id := range []string{"r2", "r1"} {
		if err := s.CommitRelease(record, &ReleaseReceipt{ID: id, Beneficiary: "alice"}); err != nil {
			t.Fatalf("CommitRelease(%s): %v", id, err)
		}
	}

	releases, _ := s.GetReleases()
	if len(releases) != 2 || releases[0].ID != "r2" || releases[1].ID != "r1" {
		t.Errorf("unexpected releases order: %+v", releases)
	}
}

func TestLocalStorage_ReceiptsAreCopies(t *testing.T) {
	s := NewLocalStorage()
	p := &Purchase{ID: "p1", Beneficiary: "alice", Payment: uint256.NewInt(10), Allocation: uint256.NewInt(10_000)}
	r := &ReleaseReceipt{ID: "r1", Beneficiary: "alice", Amount: uint256.NewInt(5)}
	if err := s.CommitPurchase(newBeneficiaryRecord("alice"), p); err != nil {
		t.Fatalf("CommitPurchase: %v", err)
	}
	if err := s.CommitRelease(newBeneficiaryRecord("alice"), r); err != nil {
		t.Fatalf("CommitRelease: %v", err)
	}

	// Neither the committed values nor the returned ones alias the store.
	p.Beneficiary = "bob"
	p.Payment.SetUint64(999)
	r.Amount.SetUint64(999)

	purchases, _ := s.GetPurchases()
	purchases[0].Allocation.SetUint64(1)
	releases, _ := s.GetReleases()
	releases[0].Beneficiary = "bob"

	purchases, _ = s.GetPurchases()
	if purchases[0].Beneficiary != "alice" || purchases[0].Payment.Uint64() != 10 || purchases[0].Allocation.Uint64() != 10_000 {
		t.Errorf("stored purchase was modified: %+v", purchases[0])
	}
	releases, _ = s.GetReleases()
	if releases[0].Beneficiary != "alice" || releases[0].Amount.Uint64() != 5 {
		t.Errorf("stored release was modified: %+v", releases[0])
	}
}
