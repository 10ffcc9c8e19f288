package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tally/internal/domain"
)

// AccountUseCase handles account business logic. It never writes the balance
// column beyond the zero set at creation; that belongs to the ledger engine.
type AccountUseCase struct {
	txManager   TransactionManager
	retrier     Retrier
	accountRepo AccountRepository
	entryRepo   EntryRepository
	idGen       IDGenerator
	cache       Cache
}

// NewAccountUseCase creates a new AccountUseCase. cache may be nil.
func NewAccountUseCase(
	txManager TransactionManager,
	retrier Retrier,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	idGen IDGenerator,
	cache Cache,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		retrier:     retrier,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		idGen:       idGen,
		cache:       cache,
	}
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	Name  string
	Email string
}

// CreateAccount creates a new account with a zero balance and no entries.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	if err := domain.ValidateAccountInput(input.Name, input.Email); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	account := &domain.Account{
		ID:        uc.idGen.Generate(),
		Name:      input.Name,
		Email:     input.Email,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// GetAccount retrieves an account by ID, serving from cache when possible.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}

	if cached := uc.cachedAccount(ctx, id); cached != nil {
		return cached, nil
	}

	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	uc.storeAccount(ctx, account)

	return account, nil
}

// UpdateAccountInput represents input for updating account attributes.
type UpdateAccountInput struct {
	ID    string
	Name  string
	Email string
}

// UpdateAccount replaces the account's display attributes. The balance is
// never touched here.
func (uc *AccountUseCase) UpdateAccount(ctx context.Context, input UpdateAccountInput) (*domain.Account, error) {
	if err := domain.ValidateID(input.ID); err != nil {
		return nil, err
	}

	if err := domain.ValidateAccountInput(input.Name, input.Email); err != nil {
		return nil, err
	}

	var updated *domain.Account

	err := uc.retrier.Retry(ctx, func() error {
		account, err := uc.updateAccountUnit(ctx, input)
		if err != nil {
			return err
		}

		updated = account

		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.invalidate(ctx, input.ID)

	return updated, nil
}

func (uc *AccountUseCase) updateAccountUnit(ctx context.Context, input UpdateAccountInput) (*domain.Account, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, input.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if err := uc.accountRepo.UpdateFields(ctx, tx, account.ID, input.Name, input.Email, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	account.Name = input.Name
	account.Email = input.Email
	account.UpdatedAt = now

	return account, nil
}

// DeleteAccount removes the account and every entry referencing it in one
// atomic unit. The cascade is part of the unit, not a follow-up.
func (uc *AccountUseCase) DeleteAccount(ctx context.Context, id string) error {
	if err := domain.ValidateID(id); err != nil {
		return err
	}

	err := uc.retrier.Retry(ctx, func() error {
		return uc.deleteAccountUnit(ctx, id)
	})
	if err != nil {
		return err
	}

	uc.invalidate(ctx, id)

	return nil
}

func (uc *AccountUseCase) deleteAccountUnit(ctx context.Context, id string) error {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}

	if err := uc.entryRepo.DeleteByAccount(ctx, tx, account.ID); err != nil {
		return err
	}

	if err := uc.accountRepo.Delete(ctx, tx, account.ID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	limit, offset := clampPage(input.Limit, input.Offset)

	return uc.accountRepo.List(ctx, limit, offset)
}

func (uc *AccountUseCase) cachedAccount(ctx context.Context, id string) *domain.Account {
	if uc.cache == nil {
		return nil
	}

	raw, err := uc.cache.Get(ctx, accountCacheKey(id))
	if err != nil {
		return nil
	}

	var account domain.Account
	if err := json.Unmarshal([]byte(raw), &account); err != nil {
		return nil
	}

	return &account
}

func (uc *AccountUseCase) storeAccount(ctx context.Context, account *domain.Account) {
	if uc.cache == nil {
		return
	}

	raw, err := json.Marshal(account)
	if err != nil {
		return
	}

	_ = uc.cache.Set(ctx, accountCacheKey(account.ID), string(raw), AccountCacheTTL)
}

func (uc *AccountUseCase) invalidate(ctx context.Context, id string) {
	if uc.cache == nil {
		return
	}

	_ = uc.cache.Delete(ctx, accountCacheKey(id))
}
