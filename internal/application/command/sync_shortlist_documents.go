package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC SHORTLIST DOCUMENTS COMMAND
// Under DOCUMENTS_ON_SHORTLIST every shortlisted university gets its document
// checklist. Universities that already have documents are left alone.
// ══════════════════════════════════════════════════════════════════════════════

// SyncShortlistDocumentsCommand contains the user to sync.
type SyncShortlistDocumentsCommand struct {
	UserID shared.UserID
}

// Validate validates the command.
func (c SyncShortlistDocumentsCommand) Validate() error {
	if c.UserID.IsEmpty() {
		return errors.New("sync_documents: user_id is required")
	}
	return nil
}

// SyncDocumentsResult reports created documents per university.
type SyncDocumentsResult struct {
	Created map[shared.UniversityID]int
}

// Total returns the number of created documents.
func (r *SyncDocumentsResult) Total() int {
	total := 0
	for _, n := range r.Created {
		total += n
	}
	return total
}

// SyncShortlistDocumentsHandler handles the sync command.
type SyncShortlistDocumentsHandler struct {
	runner *TxRunner
	policy selection.DocumentPolicy
	log    *logger.Logger
}

// NewSyncShortlistDocumentsHandler creates a new SyncShortlistDocumentsHandler.
func NewSyncShortlistDocumentsHandler(runner *TxRunner, policy selection.DocumentPolicy, log *logger.Logger) *SyncShortlistDocumentsHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &SyncShortlistDocumentsHandler{runner: runner, policy: policy, log: log.Named("sync_documents")}
}

// Handle creates missing documents for the whole shortlist.
func (h *SyncShortlistDocumentsHandler) Handle(ctx context.Context, cmd SyncShortlistDocumentsCommand) (*SyncDocumentsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if h.policy != selection.DocumentsOnShortlist {
		return nil, shared.NewDomainError("ledger", "SyncDocuments", shared.ErrPreconditionFailed,
			fmt.Sprintf("document sync requires the %s policy", selection.DocumentsOnShortlist))
	}

	var result *SyncDocumentsResult
	err := h.runner.Run(ctx, "sync_documents", cmd.UserID, func(tx selection.Tx) error {
		result = &SyncDocumentsResult{Created: make(map[shared.UniversityID]int)}
		ledger, err := tx.Entries(ctx)
		if err != nil {
			return err
		}
		for _, id := range ledger.UniversityIDs() {
			n, err := tx.CountDocuments(ctx, id)
			if err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			docs := selection.NewDocumentChecklist(cmd.UserID, id, h.runner.Now())
			if err := tx.CreateDocuments(ctx, docs); err != nil {
				return fmt.Errorf("create documents for %s: %w", id, err)
			}
			result.Created[id] = len(docs)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sync_documents: %w", err)
	}

	for id, n := range result.Created {
		ev := shared.NewLedgerEvent(shared.EventDocumentsGenerated, cmd.UserID, id)
		ev.DocsCreated = n
		h.runner.Publish(ev)
	}
	h.log.Debug("shortlist documents synced",
		logger.UserID(cmd.UserID.String()), logger.Int("documents_created", result.Total()))
	return result, nil
}
