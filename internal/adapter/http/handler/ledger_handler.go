package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/tally/internal/adapter/http/dto"
	"github.com/iho/tally/internal/domain"
	"github.com/iho/tally/internal/usecase"
)

// LedgerService defines the mutating ledger behavior needed by LedgerHandler.
type LedgerService interface {
	CreateEntry(ctx context.Context, input usecase.CreateEntryInput) (*domain.Entry, error)
	UpdateEntry(ctx context.Context, input usecase.UpdateEntryInput) (*domain.Entry, error)
	DeleteEntry(ctx context.Context, entryID, accountID string) error
	AuditAccount(ctx context.Context, accountID string) (*usecase.AuditReport, error)
}

// LedgerHandler handles entry mutations. Every operation it exposes moves
// the owning account's balance together with the entry change.
type LedgerHandler struct {
	ledgerUC LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC}
}

// Create records a new entry.
func (h *LedgerHandler) Create(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	var req dto.CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.ledgerUC.CreateEntry(r.Context(), req.ToUseCaseInput(accountID))
	if err != nil {
		writeDomainError(w, err, "failed to create entry")
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry))
}

// Update amends an entry.
func (h *LedgerHandler) Update(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	entryID := chi.URLParam(r, "entryID")
	if accountID == "" || entryID == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	var req dto.UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.ledgerUC.UpdateEntry(r.Context(), req.ToUseCaseInput(entryID, accountID))
	if err != nil {
		writeDomainError(w, err, "failed to update entry")
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Delete removes an entry.
func (h *LedgerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	entryID := chi.URLParam(r, "entryID")
	if accountID == "" || entryID == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	if err := h.ledgerUC.DeleteEntry(r.Context(), entryID, accountID); err != nil {
		writeDomainError(w, err, "failed to delete entry")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Audit reports whether an account's balance matches the sum of its entries.
func (h *LedgerHandler) Audit(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	report, err := h.ledgerUC.AuditAccount(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, err, "failed to audit account")
		return
	}

	writeJSON(w, http.StatusOK, dto.AuditFromReport(report))
}
