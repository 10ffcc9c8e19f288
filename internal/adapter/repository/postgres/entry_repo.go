package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/tally/internal/domain"
	"github.com/iho/tally/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository. It never touches
// balances; every write happens inside a unit held by the ledger engine.
type EntryRepository struct {
	store *Store
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(store *Store) *EntryRepository {
	return &EntryRepository{store: store}
}

const entryColumns = `id, account_id, amount::text, kind, description, occurred_at, created_at, updated_at`

// ListByAccount lists an account's entries, most recent first.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	pool, err := r.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE account_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.Entry, 0)

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// GetByID retrieves an entry scoped to its owning account.
func (r *EntryRepository) GetByID(ctx context.Context, entryID, accountID string) (*domain.Entry, error) {
	pool, err := r.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + entryColumns + ` FROM entries WHERE id = $1 AND account_id = $2`

	return scanEntry(pool.QueryRow(ctx, query, entryID, accountID))
}

// GetByIDTx is GetByID inside an open unit.
func (r *EntryRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, entryID, accountID string) (*domain.Entry, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `SELECT ` + entryColumns + ` FROM entries WHERE id = $1 AND account_id = $2`

	return scanEntry(pgxTx.QueryRow(ctx, query, entryID, accountID))
}

// Insert writes a new entry inside a unit.
func (r *EntryRepository) Insert(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO entries (id, account_id, amount, kind, description, occurred_at, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8)
	`

	_, err := pgxTx.Exec(ctx, query,
		entry.ID,
		entry.AccountID,
		entry.Amount.String(),
		entry.Kind,
		entry.Description,
		entry.OccurredAt,
		entry.CreatedAt,
		entry.UpdatedAt,
	)

	return err
}

// Replace rewrites an entry's mutable fields inside a unit.
func (r *EntryRepository) Replace(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE entries
		SET amount = $2::numeric, kind = $3, description = $4, updated_at = $5
		WHERE id = $1
	`

	tag, err := pgxTx.Exec(ctx, query,
		entry.ID,
		entry.Amount.String(),
		entry.Kind,
		entry.Description,
		entry.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}

	return nil
}

// Remove deletes one entry inside a unit.
func (r *EntryRepository) Remove(ctx context.Context, tx usecase.Transaction, entryID string) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `DELETE FROM entries WHERE id = $1`, entryID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}

	return nil
}

// DeleteByAccount bulk-deletes every entry referencing the account, inside
// the same unit that deletes the account row.
func (r *EntryRepository) DeleteByAccount(ctx context.Context, tx usecase.Transaction, accountID string) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `DELETE FROM entries WHERE account_id = $1`, accountID)

	return err
}

// SumByAccount recomputes the signed amount total for one account inside a
// unit. Used by the audit path only, never by entry mutations.
func (r *EntryRepository) SumByAccount(ctx context.Context, tx usecase.Transaction, accountID string) (decimal.Decimal, error) {
	pgxTx := tx.(*Tx).PgxTx()

	var sum string

	query := `SELECT COALESCE(SUM(amount), 0)::text FROM entries WHERE account_id = $1`

	if err := pgxTx.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return decimal.Zero, err
	}

	return decimal.NewFromString(sum)
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		entry  domain.Entry
		amount string
	)

	err := row.Scan(
		&entry.ID,
		&entry.AccountID,
		&amount,
		&entry.Kind,
		&entry.Description,
		&entry.OccurredAt,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}

		return nil, err
	}

	entry.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}

	return &entry, nil
}
