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
// PURGE ORPHANED RECORDS COMMAND
// Deletes tasks whose university is no longer locked and documents the active
// policy no longer allows. Unlock leaves such rows behind on purpose.
// ══════════════════════════════════════════════════════════════════════════════

// PurgeOrphansCommand contains the user to clean up.
type PurgeOrphansCommand struct {
	UserID shared.UserID
}

// Validate validates the command.
func (c PurgeOrphansCommand) Validate() error {
	if c.UserID.IsEmpty() {
		return errors.New("purge_orphans: user_id is required")
	}
	return nil
}

// PurgeResult reports deleted rows.
type PurgeResult struct {
	TasksDeleted     int
	DocumentsDeleted int
	Universities     []shared.UniversityID
}

// PurgeOrphansHandler handles the purge command.
type PurgeOrphansHandler struct {
	runner *TxRunner
	policy selection.DocumentPolicy
	log    *logger.Logger
}

// NewPurgeOrphansHandler creates a new PurgeOrphansHandler.
func NewPurgeOrphansHandler(runner *TxRunner, policy selection.DocumentPolicy, log *logger.Logger) *PurgeOrphansHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &PurgeOrphansHandler{runner: runner, policy: policy, log: log.Named("purge_orphans")}
}

// Handle deletes orphaned rows in one unit of work.
func (h *PurgeOrphansHandler) Handle(ctx context.Context, cmd PurgeOrphansCommand) (*PurgeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	var result *PurgeResult
	err := h.runner.Run(ctx, "purge_orphans", cmd.UserID, func(tx selection.Tx) error {
		result = &PurgeResult{}
		ledger, err := tx.Entries(ctx)
		if err != nil {
			return err
		}
		withRecords, err := tx.UniversitiesWithRecords(ctx)
		if err != nil {
			return err
		}

		touched := make(map[shared.UniversityID]bool)
		taskOrphans, docOrphans := ledger.Orphans(withRecords, h.policy)
		for _, id := range taskOrphans {
			n, err := tx.DeleteTasks(ctx, id)
			if err != nil {
				return err
			}
			result.TasksDeleted += n
			touched[id] = n > 0 || touched[id]
		}
		for _, id := range docOrphans {
			n, err := tx.DeleteDocuments(ctx, id)
			if err != nil {
				return err
			}
			result.DocumentsDeleted += n
			touched[id] = n > 0 || touched[id]
		}
		for _, id := range withRecords {
			if touched[id] {
				result.Universities = append(result.Universities, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("purge_orphans: %w", err)
	}

	if result.TasksDeleted+result.DocumentsDeleted > 0 {
		ev := shared.NewLedgerEvent(shared.EventOrphansPurged, cmd.UserID, "")
		ev.TasksDeleted = result.TasksDeleted
		ev.DocsDeleted = result.DocumentsDeleted
		h.runner.Publish(ev)
	}
	h.log.Info("orphaned records purged",
		logger.UserID(cmd.UserID.String()),
		logger.Int("tasks_deleted", result.TasksDeleted),
		logger.Int("documents_deleted", result.DocumentsDeleted))
	return result, nil
}
