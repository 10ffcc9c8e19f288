package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/tally/internal/adapter/http/dto"
	"github.com/iho/tally/internal/domain"
	"github.com/iho/tally/internal/usecase"
)

// EntryReader defines the read behavior needed by EntryHandler.
type EntryReader interface {
	ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.Entry, error)
	GetEntry(ctx context.Context, entryID, accountID string) (*domain.Entry, error)
}

// EntryHandler handles entry read requests.
type EntryHandler struct {
	entryUC EntryReader
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entryUC EntryReader) *EntryHandler {
	return &EntryHandler{entryUC: entryUC}
}

// ListByAccount lists entries for an account, most recent first.
func (h *EntryHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	entries, err := h.entryUC.ListEntries(r.Context(), usecase.ListEntriesInput{
		AccountID: accountID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		writeDomainError(w, err, "failed to list entries")
		return
	}

	writeJSON(w, http.StatusOK, dto.ListEntriesResponse{
		Entries: dto.EntriesFromDomain(entries),
		Total:   int64(len(entries)),
	})
}

// Get retrieves one entry scoped to its account.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	entryID := chi.URLParam(r, "entryID")
	if accountID == "" || entryID == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	entry, err := h.entryUC.GetEntry(r.Context(), entryID, accountID)
	if err != nil {
		writeDomainError(w, err, "failed to get entry")
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}
