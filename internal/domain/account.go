package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a ledger account with a running balance.
//
// Balance is derived from the account's entries but persisted; after creation
// it is written only by the ledger engine, inside the same atomic unit as the
// entry mutation that caused the change.
type Account struct {
	ID        string
	Name      string
	Email     string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}
