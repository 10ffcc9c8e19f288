package dto

import (
	"time"

	"github.com/iho/tally/internal/domain"
	"github.com/iho/tally/internal/usecase"
)

// AccountResponse represents an account in API responses. Balance is a
// decimal string so clients never round it through a float.
type AccountResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Balance:   a.Balance.String(),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse wraps a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Amount      string    `json:"amount"`
	Kind        string    `json:"kind"`
	Description string    `json:"description,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:          e.ID,
		AccountID:   e.AccountID,
		Amount:      e.Amount.String(),
		Kind:        e.Kind,
		Description: e.Description,
		OccurredAt:  e.OccurredAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// ListEntriesResponse wraps a page of entries.
type ListEntriesResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Total   int64            `json:"total"`
}

// AuditResponse reports a balance consistency check.
type AuditResponse struct {
	AccountID  string `json:"account_id"`
	Balance    string `json:"balance"`
	EntrySum   string `json:"entry_sum"`
	Consistent bool   `json:"consistent"`
}

// AuditFromReport converts an audit report to response.
func AuditFromReport(r *usecase.AuditReport) *AuditResponse {
	return &AuditResponse{
		AccountID:  r.AccountID,
		Balance:    r.Balance.String(),
		EntrySum:   r.EntrySum.String(),
		Consistent: r.Consistent,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
