package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/iho/tally/internal/domain"
	"github.com/iho/tally/internal/usecase"
	"github.com/iho/tally/internal/usecase/mocks"
)

func newLedgerFixture() (*usecase.LedgerUseCase, *mocks.MockAccountRepository, *mocks.MockEntryRepository, *mocks.MockTransactionManager) {
	accRepo := mocks.NewMockAccountRepository()
	entryRepo := mocks.NewMockEntryRepository()
	txMgr := mocks.NewMockTransactionManager()
	idGen := mocks.NewMockIDGenerator()
	idGen.GenerateFunc = func() string { return ulid.Make().String() }

	uc := usecase.NewLedgerUseCase(txMgr, mocks.NewMockRetrier(), accRepo, entryRepo, idGen, nil)

	return uc, accRepo, entryRepo, txMgr
}

func seedAccount(accRepo *mocks.MockAccountRepository, balance int64) *domain.Account {
	account := &domain.Account{
		ID:      ulid.Make().String(),
		Name:    "Ann",
		Email:   "a@x.com",
		Balance: decimal.NewFromInt(balance),
	}
	accRepo.Seed(account)

	return account
}

func TestLedgerUseCase_CreateEntry(t *testing.T) {
	uc, accRepo, _, _ := newLedgerFixture()
	account := seedAccount(accRepo, 0)

	entry, err := uc.CreateEntry(context.Background(), usecase.CreateEntryInput{
		AccountID: account.ID,
		Amount:    "100",
		Kind:      "deposit",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.ID == "" {
		t.Error("expected assigned entry id")
	}

	if !entry.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected amount 100, got %s", entry.Amount)
	}

	got, err := accRepo.GetByID(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !got.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected balance 100, got %s", got.Balance)
	}
}

func TestLedgerUseCase_CreateEntryNegativeAmount(t *testing.T) {
	uc, accRepo, _, _ := newLedgerFixture()
	account := seedAccount(accRepo, 100)

	_, err := uc.CreateEntry(context.Background(), usecase.CreateEntryInput{
		AccountID: account.ID,
		Amount:    "-40",
		Kind:      "withdrawal",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := accRepo.GetByID(context.Background(), account.ID)
	if !got.Balance.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected balance 60, got %s", got.Balance)
	}
}

func TestLedgerUseCase_CreateEntryValidation(t *testing.T) {
	tests := []struct {
		name      string
		input     usecase.CreateEntryInput
		errorKind error
	}{
		{
			name:      "malformed account id",
			input:     usecase.CreateEntryInput{AccountID: "nope", Amount: "10", Kind: "deposit"},
			errorKind: domain.ErrInvalidID,
		},
		{
			name:      "unparseable amount",
			input:     usecase.CreateEntryInput{AccountID: ulid.Make().String(), Amount: "ten", Kind: "deposit"},
			errorKind: domain.ErrValidation,
		},
		{
			name:      "missing amount",
			input:     usecase.CreateEntryInput{AccountID: ulid.Make().String(), Kind: "deposit"},
			errorKind: domain.ErrValidation,
		},
		{
			name:      "missing kind",
			input:     usecase.CreateEntryInput{AccountID: ulid.Make().String(), Amount: "10"},
			errorKind: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, _, _, txMgr := newLedgerFixture()

			begun := 0
			txMgr.BeginFunc = func(ctx context.Context) (usecase.Transaction, error) {
				begun++
				return &mocks.MockTransaction{}, nil
			}

			_, err := uc.CreateEntry(context.Background(), tt.input)
			if !errors.Is(err, tt.errorKind) {
				t.Errorf("expected %v, got %v", tt.errorKind, err)
			}

			if begun != 0 {
				t.Error("validation failures must not open a unit")
			}
		})
	}
}

func TestLedgerUseCase_CreateEntryAccountMissing(t *testing.T) {
	uc, _, entryRepo, txMgr := newLedgerFixture()

	_, err := uc.CreateEntry(context.Background(), usecase.CreateEntryInput{
		AccountID: ulid.Make().String(),
		Amount:    "100",
		Kind:      "deposit",
	})

	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || nf.Entity != "account" {
		t.Fatalf("expected account not-found, got %v", err)
	}

	if len(entryRepo.All()) != 0 {
		t.Error("no entry may be written when the account is missing")
	}

	if len(txMgr.Units) != 1 || !txMgr.Units[0].RolledBack() {
		t.Error("the unit must be rolled back")
	}
}

func TestLedgerUseCase_CreateEntryRollsBackOnBalanceWriteFailure(t *testing.T) {
	uc, accRepo, _, txMgr := newLedgerFixture()
	account := seedAccount(accRepo, 0)

	accRepo.AdjustBalanceFunc = func(ctx context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, updatedAt time.Time) error {
		return errors.New("write failed")
	}

	_, err := uc.CreateEntry(context.Background(), usecase.CreateEntryInput{
		AccountID: account.ID,
		Amount:    "100",
		Kind:      "deposit",
	})
	if err == nil {
		t.Fatal("expected error")
	}

	if len(txMgr.Units) != 1 {
		t.Fatalf("expected one unit, got %d", len(txMgr.Units))
	}

	if txMgr.Units[0].Committed() {
		t.Error("the unit must not commit after a failed balance write")
	}

	if !txMgr.Units[0].RolledBack() {
		t.Error("the unit must be rolled back")
	}
}

func TestLedgerUseCase_UpdateEntryAppliesDelta(t *testing.T) {
	uc, accRepo, entryRepo, _ := newLedgerFixture()
	account := seedAccount(accRepo, 60)

	entry := &domain.Entry{
		ID:        ulid.Make().String(),
		AccountID: account.ID,
		Amount:    decimal.NewFromInt(100),
		Kind:      "deposit",
	}
	entryRepo.Seed(entry)

	updated, err := uc.UpdateEntry(context.Background(), usecase.UpdateEntryInput{
		EntryID:   entry.ID,
		AccountID: account.ID,
		Amount:    "150",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !updated.Amount.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected amount 150, got %s", updated.Amount)
	}

	// Kind falls back to the stored value when omitted.
	if updated.Kind != "deposit" {
		t.Errorf("expected kind deposit, got %s", updated.Kind)
	}

	got, _ := accRepo.GetByID(context.Background(), account.ID)
	if !got.Balance.Equal(decimal.NewFromInt(110)) {
		t.Errorf("expected balance 110 after +50 delta, got %s", got.Balance)
	}
}

func TestLedgerUseCase_UpdateEntryZeroDelta(t *testing.T) {
	uc, accRepo, entryRepo, txMgr := newLedgerFixture()
	account := seedAccount(accRepo, 100)

	entry := &domain.Entry{
		ID:        ulid.Make().String(),
		AccountID: account.ID,
		Amount:    decimal.NewFromInt(100),
		Kind:      "deposit",
	}
	entryRepo.Seed(entry)

	balanceWrites := 0
	accRepo.AdjustBalanceFunc = func(ctx context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, updatedAt time.Time) error {
		balanceWrites++
		return nil
	}

	kind := "correction"
	updated, err := uc.UpdateEntry(context.Background(), usecase.UpdateEntryInput{
		EntryID:   entry.ID,
		AccountID: account.ID,
		Amount:    "100",
		Kind:      &kind,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if balanceWrites != 0 {
		t.Error("zero delta must not write the balance")
	}

	if updated.Kind != "correction" {
		t.Errorf("expected kind correction, got %s", updated.Kind)
	}

	if len(txMgr.Units) != 1 || !txMgr.Units[0].Committed() {
		t.Error("the unit must still commit the field changes")
	}
}

func TestLedgerUseCase_UpdateEntryWrongAccount(t *testing.T) {
	uc, accRepo, entryRepo, _ := newLedgerFixture()
	owner := seedAccount(accRepo, 0)
	other := seedAccount(accRepo, 0)

	entry := &domain.Entry{
		ID:        ulid.Make().String(),
		AccountID: owner.ID,
		Amount:    decimal.NewFromInt(10),
		Kind:      "deposit",
	}
	entryRepo.Seed(entry)

	_, err := uc.UpdateEntry(context.Background(), usecase.UpdateEntryInput{
		EntryID:   entry.ID,
		AccountID: other.ID,
		Amount:    "20",
	})

	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || nf.Entity != "entry" {
		t.Fatalf("expected entry not-found, got %v", err)
	}
}

func TestLedgerUseCase_DeleteEntry(t *testing.T) {
	uc, accRepo, entryRepo, _ := newLedgerFixture()
	account := seedAccount(accRepo, 110)

	entry := &domain.Entry{
		ID:        ulid.Make().String(),
		AccountID: account.ID,
		Amount:    decimal.NewFromInt(-40),
		Kind:      "withdrawal",
	}
	entryRepo.Seed(entry)

	if err := uc.DeleteEntry(context.Background(), entry.ID, account.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := accRepo.GetByID(context.Background(), account.ID)
	if !got.Balance.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected balance 150 after removing -40, got %s", got.Balance)
	}

	// Deleting the same entry again yields NotFound.
	err := uc.DeleteEntry(context.Background(), entry.ID, account.ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestLedgerUseCase_ConcurrentUpdatesSameAccount(t *testing.T) {
	uc, accRepo, entryRepo, _ := newLedgerFixture()
	account := seedAccount(accRepo, 30)

	first := &domain.Entry{
		ID:        ulid.Make().String(),
		AccountID: account.ID,
		Amount:    decimal.NewFromInt(10),
		Kind:      "deposit",
	}
	second := &domain.Entry{
		ID:        ulid.Make().String(),
		AccountID: account.ID,
		Amount:    decimal.NewFromInt(20),
		Kind:      "deposit",
	}
	entryRepo.Seed(first)
	entryRepo.Seed(second)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if _, err := uc.UpdateEntry(context.Background(), usecase.UpdateEntryInput{
			EntryID:   first.ID,
			AccountID: account.ID,
			Amount:    "20", // +10
		}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}()

	go func() {
		defer wg.Done()
		if _, err := uc.UpdateEntry(context.Background(), usecase.UpdateEntryInput{
			EntryID:   second.ID,
			AccountID: account.ID,
			Amount:    "15", // -5
		}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}()

	wg.Wait()

	got, _ := accRepo.GetByID(context.Background(), account.ID)
	if !got.Balance.Equal(decimal.NewFromInt(35)) {
		t.Errorf("expected balance 35 after both deltas, got %s", got.Balance)
	}
}

func TestLedgerUseCase_BalanceMatchesEntrySum(t *testing.T) {
	uc, accRepo, entryRepo, _ := newLedgerFixture()
	account := seedAccount(accRepo, 0)
	ctx := context.Background()

	amounts := []string{"100", "-40", "25.50", "-0.50"}
	var entryIDs []string
	for _, a := range amounts {
		entry, err := uc.CreateEntry(ctx, usecase.CreateEntryInput{
			AccountID: account.ID,
			Amount:    a,
			Kind:      "movement",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		entryIDs = append(entryIDs, entry.ID)
	}

	if _, err := uc.UpdateEntry(ctx, usecase.UpdateEntryInput{
		EntryID:   entryIDs[0],
		AccountID: account.ID,
		Amount:    "150",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := uc.DeleteEntry(ctx, entryIDs[1], account.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := decimal.Zero
	for _, e := range entryRepo.All() {
		sum = sum.Add(e.Amount)
	}

	got, _ := accRepo.GetByID(ctx, account.ID)
	if !got.Balance.Equal(sum) {
		t.Errorf("balance %s diverged from entry sum %s", got.Balance, sum)
	}
}

func TestLedgerUseCase_RetryExhaustionSurfacesConflict(t *testing.T) {
	accRepo := mocks.NewMockAccountRepository()
	entryRepo := mocks.NewMockEntryRepository()
	txMgr := mocks.NewMockTransactionManager()
	idGen := mocks.NewMockIDGenerator()
	idGen.GenerateFunc = func() string { return ulid.Make().String() }

	retrier := mocks.NewMockRetrier()
	retrier.RetryFunc = func(ctx context.Context, operation func() error) error {
		// Emulate exhausted retries on a persistent write conflict.
		for i := 0; i < 3; i++ {
			if err := operation(); err == nil {
				return nil
			}
		}
		return domain.ErrConflict
	}

	uc := usecase.NewLedgerUseCase(txMgr, retrier, accRepo, entryRepo, idGen, nil)
	account := seedAccount(accRepo, 0)

	accRepo.AdjustBalanceFunc = func(ctx context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, updatedAt time.Time) error {
		return errors.New("serialization failure")
	}

	_, err := uc.CreateEntry(context.Background(), usecase.CreateEntryInput{
		AccountID: account.ID,
		Amount:    "10",
		Kind:      "deposit",
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestLedgerUseCase_AuditAccount(t *testing.T) {
	uc, accRepo, _, _ := newLedgerFixture()
	account := seedAccount(accRepo, 0)

	for _, amount := range []string{"25", "-10", "5"} {
		if _, err := uc.CreateEntry(context.Background(), usecase.CreateEntryInput{
			AccountID: account.ID,
			Amount:    amount,
			Kind:      "adjustment",
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	report, err := uc.AuditAccount(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !report.Consistent {
		t.Errorf("expected consistent ledger, balance %s sum %s", report.Balance, report.EntrySum)
	}

	if !report.EntrySum.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected entry sum 20, got %s", report.EntrySum)
	}
}

func TestLedgerUseCase_AuditAccountDetectsDrift(t *testing.T) {
	uc, accRepo, entryRepo, _ := newLedgerFixture()
	account := seedAccount(accRepo, 50)

	// An entry written without its balance delta.
	entryRepo.Seed(&domain.Entry{
		ID:        ulid.Make().String(),
		AccountID: account.ID,
		Amount:    decimal.NewFromInt(30),
		Kind:      "deposit",
	})

	report, err := uc.AuditAccount(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Consistent {
		t.Error("expected drift to be reported")
	}

	if !report.Balance.Equal(decimal.NewFromInt(50)) || !report.EntrySum.Equal(decimal.NewFromInt(30)) {
		t.Errorf("unexpected report: balance %s sum %s", report.Balance, report.EntrySum)
	}
}
