package usecase

import (
	"context"

	"github.com/iho/tally/internal/domain"
)

// EntryUseCase handles the read side of the ledger.
type EntryUseCase struct {
	entryRepo EntryRepository
}

// NewEntryUseCase creates a new EntryUseCase.
func NewEntryUseCase(entryRepo EntryRepository) *EntryUseCase {
	return &EntryUseCase{entryRepo: entryRepo}
}

// ListEntriesInput represents input for listing entries.
type ListEntriesInput struct {
	AccountID string
	Limit     int
	Offset    int
}

// ListEntries lists an account's entries ordered by occurred_at descending.
// Each call re-queries current state; an unknown account yields an empty page.
func (uc *EntryUseCase) ListEntries(ctx context.Context, input ListEntriesInput) ([]*domain.Entry, error) {
	if err := domain.ValidateID(input.AccountID); err != nil {
		return nil, err
	}

	limit, offset := clampPage(input.Limit, input.Offset)

	return uc.entryRepo.ListByAccount(ctx, input.AccountID, limit, offset)
}

// GetEntry retrieves an entry scoped to its owning account. An entry id that
// exists under a different account is treated as not found.
func (uc *EntryUseCase) GetEntry(ctx context.Context, entryID, accountID string) (*domain.Entry, error) {
	if err := domain.ValidateID(entryID); err != nil {
		return nil, err
	}

	if err := domain.ValidateID(accountID); err != nil {
		return nil, err
	}

	return uc.entryRepo.GetByID(ctx, entryID, accountID)
}
