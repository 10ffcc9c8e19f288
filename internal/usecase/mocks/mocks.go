package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tally/internal/domain"
	"github.com/iho/tally/internal/usecase"
)

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc           func(ctx context.Context, account *domain.Account) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error)
	UpdateFieldsFunc     func(ctx context.Context, tx usecase.Transaction, id, name, email string, updatedAt time.Time) error
	AdjustBalanceFunc    func(ctx context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, updatedAt time.Time) error
	DeleteFunc           func(ctx context.Context, tx usecase.Transaction, id string) error
	ListFunc             func(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

// Seed inserts an account directly into the backing map.
func (m *MockAccountRepository) Seed(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		copied := *acc
		return &copied, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockAccountRepository) UpdateFields(ctx context.Context, tx usecase.Transaction, id, name, email string, updatedAt time.Time) error {
	if m.UpdateFieldsFunc != nil {
		return m.UpdateFieldsFunc(ctx, tx, id, name, email, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[id]; ok {
		acc.Name = name
		acc.Email = email
		acc.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockAccountRepository) AdjustBalance(ctx context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, updatedAt time.Time) error {
	if m.AdjustBalanceFunc != nil {
		return m.AdjustBalanceFunc(ctx, tx, id, delta, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[id]; ok {
		acc.Balance = acc.Balance.Add(delta)
		acc.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockAccountRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
	return nil
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, acc := range m.accounts {
		copied := *acc
		accounts = append(accounts, &copied)
	}
	return accounts, nil
}

// MockEntryRepository is a mock implementation of EntryRepository.
type MockEntryRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.Entry

	ListByAccountFunc   func(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error)
	GetByIDFunc         func(ctx context.Context, entryID, accountID string) (*domain.Entry, error)
	GetByIDTxFunc       func(ctx context.Context, tx usecase.Transaction, entryID, accountID string) (*domain.Entry, error)
	InsertFunc          func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error
	ReplaceFunc         func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error
	RemoveFunc          func(ctx context.Context, tx usecase.Transaction, entryID string) error
	DeleteByAccountFunc func(ctx context.Context, tx usecase.Transaction, accountID string) error
	SumByAccountFunc    func(ctx context.Context, tx usecase.Transaction, accountID string) (decimal.Decimal, error)
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{
		entries: make(map[string]*domain.Entry),
	}
}

// Seed inserts an entry directly into the backing map.
func (m *MockEntryRepository) Seed(entry *domain.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
}

// All returns every stored entry.
func (m *MockEntryRepository) All() []*domain.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.Entry
	for _, e := range m.entries {
		copied := *e
		entries = append(entries, &copied)
	}
	return entries
}

func (m *MockEntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	if m.ListByAccountFunc != nil {
		return m.ListByAccountFunc(ctx, accountID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.Entry
	for _, e := range m.entries {
		if e.AccountID == accountID {
			copied := *e
			entries = append(entries, &copied)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].OccurredAt.After(entries[j].OccurredAt)
	})
	if offset >= len(entries) {
		return nil, nil
	}
	entries = entries[offset:]
	if limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *MockEntryRepository) GetByID(ctx context.Context, entryID, accountID string) (*domain.Entry, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, entryID, accountID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[entryID]; ok && e.AccountID == accountID {
		copied := *e
		return &copied, nil
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockEntryRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, entryID, accountID string) (*domain.Entry, error) {
	if m.GetByIDTxFunc != nil {
		return m.GetByIDTxFunc(ctx, tx, entryID, accountID)
	}
	return m.GetByID(ctx, entryID, accountID)
}

func (m *MockEntryRepository) Insert(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
	return nil
}

func (m *MockEntryRepository) Replace(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if m.ReplaceFunc != nil {
		return m.ReplaceFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
	return nil
}

func (m *MockEntryRepository) Remove(ctx context.Context, tx usecase.Transaction, entryID string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, tx, entryID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, entryID)
	return nil
}

func (m *MockEntryRepository) DeleteByAccount(ctx context.Context, tx usecase.Transaction, accountID string) error {
	if m.DeleteByAccountFunc != nil {
		return m.DeleteByAccountFunc(ctx, tx, accountID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.entries {
		if e.AccountID == accountID {
			delete(m.entries, id)
		}
	}
	return nil
}

func (m *MockEntryRepository) SumByAccount(ctx context.Context, tx usecase.Transaction, accountID string) (decimal.Decimal, error) {
	if m.SumByAccountFunc != nil {
		return m.SumByAccountFunc(ctx, tx, accountID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, e := range m.entries {
		if e.AccountID == accountID {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	mu         sync.Mutex
	committed  bool
	rolledBack bool

	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (t *MockTransaction) Commit(ctx context.Context) error {
	if t.CommitFunc != nil {
		return t.CommitFunc(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed = true
	return nil
}

func (t *MockTransaction) Rollback(ctx context.Context) error {
	if t.RollbackFunc != nil {
		return t.RollbackFunc(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

// Committed reports whether Commit was called.
func (t *MockTransaction) Committed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.committed
}

// RolledBack reports whether the unit was discarded without a commit.
func (t *MockTransaction) RolledBack() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rolledBack
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	mu    sync.Mutex
	Units []*MockTransaction

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &MockTransaction{}
	m.Units = append(m.Units, tx)
	return tx, nil
}

// MockRetrier runs the operation once unless overridden.
type MockRetrier struct {
	RetryFunc func(ctx context.Context, operation func() error) error
}

func NewMockRetrier() *MockRetrier {
	return &MockRetrier{}
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	if m.RetryFunc != nil {
		return m.RetryFunc(ctx, operation)
	}
	return operation()
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	return "mock-id"
}
