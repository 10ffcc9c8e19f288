package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is a single signed monetary movement attributed to one account.
// The sign of Amount is authoritative (positive = credit, negative = debit);
// Kind is a descriptive label and carries no semantics of its own.
type Entry struct {
	ID          string
	AccountID   string
	Amount      decimal.Decimal
	Kind        string
	Description string
	OccurredAt  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DeltaTo returns the balance correction required to replace this entry's
// amount with newAmount.
func (e *Entry) DeltaTo(newAmount decimal.Decimal) decimal.Decimal {
	return newAmount.Sub(e.Amount)
}
