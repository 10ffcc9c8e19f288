package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tally/internal/domain"
)

// LedgerUseCase is the ledger-balance consistency engine. Every entry
// mutation runs as one atomic unit that writes the entry change and the
// owning account's balance delta together; the delta is always computed from
// the entry's state before the mutation, never by re-summing the ledger.
type LedgerUseCase struct {
	txManager   TransactionManager
	retrier     Retrier
	accountRepo AccountRepository
	entryRepo   EntryRepository
	idGen       IDGenerator
	cache       Cache
}

// NewLedgerUseCase creates a new LedgerUseCase. cache may be nil.
func NewLedgerUseCase(
	txManager TransactionManager,
	retrier Retrier,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	idGen IDGenerator,
	cache Cache,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:   txManager,
		retrier:     retrier,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		idGen:       idGen,
		cache:       cache,
	}
}

// CreateEntryInput represents input for creating a ledger entry. Amount is
// the wire-form signed decimal; its sign encodes direction.
type CreateEntryInput struct {
	OccurredAt  *time.Time
	AccountID   string
	Amount      string
	Kind        string
	Description string
}

// CreateEntry records a new entry and credits its amount to the owning
// account's balance in the same unit.
func (uc *LedgerUseCase) CreateEntry(ctx context.Context, input CreateEntryInput) (*domain.Entry, error) {
	if err := domain.ValidateID(input.AccountID); err != nil {
		return nil, err
	}

	amount, err := domain.ParseAmount(input.Amount)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateKind(input.Kind); err != nil {
		return nil, err
	}

	if err := domain.ValidateDescription(input.Description); err != nil {
		return nil, err
	}

	var created *domain.Entry

	err = uc.retrier.Retry(ctx, func() error {
		entry, err := uc.createEntryUnit(ctx, input, amount)
		if err != nil {
			return err
		}

		created = entry

		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.invalidateAccount(ctx, input.AccountID)

	return created, nil
}

func (uc *LedgerUseCase) createEntryUnit(ctx context.Context, input CreateEntryInput, amount decimal.Decimal) (*domain.Entry, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock the owning account row for the whole unit; concurrent units on
	// the same account serialize here.
	account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, input.AccountID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	occurredAt := now
	if input.OccurredAt != nil {
		occurredAt = input.OccurredAt.UTC()
	}

	entry := &domain.Entry{
		ID:          uc.idGen.Generate(),
		AccountID:   account.ID,
		Amount:      amount,
		Kind:        input.Kind,
		Description: input.Description,
		OccurredAt:  occurredAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.entryRepo.Insert(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := uc.accountRepo.AdjustBalance(ctx, tx, account.ID, amount, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return entry, nil
}

// UpdateEntryInput represents input for amending an entry. Kind and
// Description fall back to the stored values when omitted.
type UpdateEntryInput struct {
	EntryID     string
	AccountID   string
	Amount      string
	Kind        *string
	Description *string
}

// UpdateEntry replaces an entry's amount (and optionally kind/description)
// and applies the amount difference to the owning account's balance.
func (uc *LedgerUseCase) UpdateEntry(ctx context.Context, input UpdateEntryInput) (*domain.Entry, error) {
	if err := domain.ValidateID(input.EntryID); err != nil {
		return nil, err
	}

	if err := domain.ValidateID(input.AccountID); err != nil {
		return nil, err
	}

	newAmount, err := domain.ParseAmount(input.Amount)
	if err != nil {
		return nil, err
	}

	if input.Kind != nil {
		if err := domain.ValidateKind(*input.Kind); err != nil {
			return nil, err
		}
	}

	if input.Description != nil {
		if err := domain.ValidateDescription(*input.Description); err != nil {
			return nil, err
		}
	}

	var updated *domain.Entry

	err = uc.retrier.Retry(ctx, func() error {
		entry, err := uc.updateEntryUnit(ctx, input, newAmount)
		if err != nil {
			return err
		}

		updated = entry

		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.invalidateAccount(ctx, input.AccountID)

	return updated, nil
}

func (uc *LedgerUseCase) updateEntryUnit(ctx context.Context, input UpdateEntryInput, newAmount decimal.Decimal) (*domain.Entry, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	existing, err := uc.lockEntry(ctx, tx, input.EntryID, input.AccountID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	delta := existing.DeltaTo(newAmount)

	next := *existing
	next.Amount = newAmount
	next.UpdatedAt = now

	if input.Kind != nil {
		next.Kind = *input.Kind
	}

	if input.Description != nil {
		next.Description = *input.Description
	}

	if err := uc.entryRepo.Replace(ctx, tx, &next); err != nil {
		return nil, err
	}

	// A zero delta still commits the field changes without a balance write.
	if !delta.IsZero() {
		if err := uc.accountRepo.AdjustBalance(ctx, tx, input.AccountID, delta, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &next, nil
}

// DeleteEntry removes an entry and subtracts its stored amount from the
// owning account's balance.
func (uc *LedgerUseCase) DeleteEntry(ctx context.Context, entryID, accountID string) error {
	if err := domain.ValidateID(entryID); err != nil {
		return err
	}

	if err := domain.ValidateID(accountID); err != nil {
		return err
	}

	err := uc.retrier.Retry(ctx, func() error {
		return uc.deleteEntryUnit(ctx, entryID, accountID)
	})
	if err != nil {
		return err
	}

	uc.invalidateAccount(ctx, accountID)

	return nil
}

func (uc *LedgerUseCase) deleteEntryUnit(ctx context.Context, entryID, accountID string) error {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	existing, err := uc.lockEntry(ctx, tx, entryID, accountID)
	if err != nil {
		return err
	}

	if err := uc.entryRepo.Remove(ctx, tx, existing.ID); err != nil {
		return err
	}

	now := time.Now().UTC()

	if err := uc.accountRepo.AdjustBalance(ctx, tx, accountID, existing.Amount.Neg(), now); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// AuditReport compares an account's stored balance against the recomputed
// sum of its entry amounts.
type AuditReport struct {
	AccountID  string
	Balance    decimal.Decimal
	EntrySum   decimal.Decimal
	Consistent bool
}

// AuditAccount recomputes the signed amount total for an account inside one
// unit and reports whether it matches the stored balance. The account row is
// locked so no entry mutation can land between the two reads.
func (uc *LedgerUseCase) AuditAccount(ctx context.Context, accountID string) (*AuditReport, error) {
	if err := domain.ValidateID(accountID); err != nil {
		return nil, err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	sum, err := uc.entryRepo.SumByAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &AuditReport{
		AccountID:  account.ID,
		Balance:    account.Balance,
		EntrySum:   sum,
		Consistent: account.Balance.Equal(sum),
	}, nil
}

// lockEntry takes the account row lock, then re-reads the entry inside the
// unit. Locking before the read is what keeps the delta computation from
// building on a stale amount.
func (uc *LedgerUseCase) lockEntry(ctx context.Context, tx Transaction, entryID, accountID string) (*domain.Entry, error) {
	if _, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, accountID); err != nil {
		// Entries are scoped to their account: a missing account means the
		// entry cannot exist either.
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrEntryNotFound
		}

		return nil, err
	}

	return uc.entryRepo.GetByIDTx(ctx, tx, entryID, accountID)
}

func (uc *LedgerUseCase) invalidateAccount(ctx context.Context, accountID string) {
	if uc.cache == nil {
		return
	}

	// Best effort; the TTL bounds staleness if the delete is lost.
	_ = uc.cache.Delete(ctx, accountCacheKey(accountID))
}
