package dto

import (
	"time"

	"github.com/iho/tally/internal/usecase"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		Name:  r.Name,
		Email: r.Email,
	}
}

// UpdateAccountRequest represents a request to update an account's display
// attributes. The balance is not part of the request surface.
type UpdateAccountRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateAccountRequest) ToUseCaseInput(id string) usecase.UpdateAccountInput {
	return usecase.UpdateAccountInput{
		ID:    id,
		Name:  r.Name,
		Email: r.Email,
	}
}

// CreateEntryRequest represents a request to record a ledger entry. Amount
// is a signed decimal string; its sign encodes direction.
type CreateEntryRequest struct {
	Amount      string     `json:"amount"`
	Kind        string     `json:"kind"`
	Description string     `json:"description,omitempty"`
	OccurredAt  *time.Time `json:"occurred_at,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateEntryRequest) ToUseCaseInput(accountID string) usecase.CreateEntryInput {
	return usecase.CreateEntryInput{
		AccountID:   accountID,
		Amount:      r.Amount,
		Kind:        r.Kind,
		Description: r.Description,
		OccurredAt:  r.OccurredAt,
	}
}

// UpdateEntryRequest represents a request to amend an entry. Kind and
// description keep their stored values when omitted.
type UpdateEntryRequest struct {
	Amount      string  `json:"amount"`
	Kind        *string `json:"kind,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateEntryRequest) ToUseCaseInput(entryID, accountID string) usecase.UpdateEntryInput {
	return usecase.UpdateEntryInput{
		EntryID:     entryID,
		AccountID:   accountID,
		Amount:      r.Amount,
		Kind:        r.Kind,
		Description: r.Description,
	}
}
