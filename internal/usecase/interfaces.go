package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tally/internal/domain"
)

// AccountRepository defines data access for accounts. The balance column is
// owned by this repository: after creation it changes only through
// AdjustBalance, which the ledger engine calls inside an atomic unit.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Account, error)
	UpdateFields(ctx context.Context, tx Transaction, id, name, email string, updatedAt time.Time) error
	AdjustBalance(ctx context.Context, tx Transaction, id string, delta decimal.Decimal, updatedAt time.Time) error
	Delete(ctx context.Context, tx Transaction, id string) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// EntryRepository defines data access for ledger entries. It has no authority
// over balances; all writes happen inside units held by the ledger engine.
type EntryRepository interface {
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error)
	GetByID(ctx context.Context, entryID, accountID string) (*domain.Entry, error)
	GetByIDTx(ctx context.Context, tx Transaction, entryID, accountID string) (*domain.Entry, error)
	Insert(ctx context.Context, tx Transaction, entry *domain.Entry) error
	Replace(ctx context.Context, tx Transaction, entry *domain.Entry) error
	Remove(ctx context.Context, tx Transaction, entryID string) error
	DeleteByAccount(ctx context.Context, tx Transaction, accountID string) error
	SumByAccount(ctx context.Context, tx Transaction, accountID string) (decimal.Decimal, error)
}

// Transaction represents one atomic unit against the store.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles atomic unit lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation when the store reports a retryable write
// conflict. Deterministic failures pass through unchanged.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations for account reads. Cache failures are
// never allowed to fail a request; callers fall back to the repository.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore deduplicates mutating requests by client-supplied key.
type IdempotencyStore interface {
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
