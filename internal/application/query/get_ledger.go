package query

import (
	"context"
	"fmt"

	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/university"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEDGER QUERY
// Shortlist with the dependent records of each university.
// ══════════════════════════════════════════════════════════════════════════════

// GetLedgerQuery identifies the user.
type GetLedgerQuery struct {
	UserID shared.UserID
}

// LedgerItemDTO is one shortlisted university.
type LedgerItemDTO struct {
	University *university.University
	Locked     bool
	Tasks      []selection.Task
	Documents  []selection.Document
}

// LedgerDTO lists the shortlist in creation order.
type LedgerDTO struct {
	Items []LedgerItemDTO
}

// GetLedgerHandler reads the shortlist.
type GetLedgerHandler struct {
	ledger       selection.Reader
	universities university.Repository
}

// NewGetLedgerHandler creates a new GetLedgerHandler.
func NewGetLedgerHandler(ledger selection.Reader, universities university.Repository) *GetLedgerHandler {
	return &GetLedgerHandler{ledger: ledger, universities: universities}
}

// Handle returns the ledger. Entries whose university left the catalog are
// reported with a bare University carrying only the ID.
func (h *GetLedgerHandler) Handle(ctx context.Context, q GetLedgerQuery) (*LedgerDTO, error) {
	if q.UserID.IsEmpty() {
		return nil, fmt.Errorf("%w: get_ledger: user_id is required", shared.ErrValidation)
	}

	entries, err := h.ledger.ListEntries(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_ledger: %w", err)
	}

	dto := &LedgerDTO{Items: make([]LedgerItemDTO, 0, len(entries))}
	for _, e := range entries {
		uni, err := h.universities.GetUniversity(ctx, e.UniversityID)
		if err != nil {
			if !shared.IsNotFound(err) {
				return nil, fmt.Errorf("get_ledger: %w", err)
			}
			uni = &university.University{ID: e.UniversityID}
		}
		tasks, err := h.ledger.ListTasks(ctx, q.UserID, e.UniversityID)
		if err != nil {
			return nil, fmt.Errorf("get_ledger: %w", err)
		}
		docs, err := h.ledger.ListDocuments(ctx, q.UserID, e.UniversityID)
		if err != nil {
			return nil, fmt.Errorf("get_ledger: %w", err)
		}
		dto.Items = append(dto.Items, LedgerItemDTO{
			University: uni,
			Locked:     e.Locked,
			Tasks:      tasks,
			Documents:  docs,
		})
	}
	return dto, nil
}
