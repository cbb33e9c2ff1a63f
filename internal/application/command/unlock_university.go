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
// UNLOCK UNIVERSITY COMMAND
// Releases the commitment. Tasks and documents stay until PurgeOrphans runs.
// ══════════════════════════════════════════════════════════════════════════════

// UnlockUniversityCommand contains the data to unlock a university.
type UnlockUniversityCommand struct {
	UserID       shared.UserID
	UniversityID shared.UniversityID
}

// Validate validates the command.
func (c UnlockUniversityCommand) Validate() error {
	if c.UserID.IsEmpty() {
		return errors.New("unlock_university: user_id is required")
	}
	if c.UniversityID.IsEmpty() {
		return errors.New("unlock_university: university_id is required")
	}
	return nil
}

// UnlockResult describes a committed unlock.
type UnlockResult struct {
	UniversityID shared.UniversityID
	TasksKept    int
}

// UnlockUniversityHandler handles the unlock command.
type UnlockUniversityHandler struct {
	runner *TxRunner
	log    *logger.Logger
}

// NewUnlockUniversityHandler creates a new UnlockUniversityHandler.
func NewUnlockUniversityHandler(runner *TxRunner, log *logger.Logger) *UnlockUniversityHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &UnlockUniversityHandler{runner: runner, log: log.Named("unlock_university")}
}

// Handle executes the unlock.
func (h *UnlockUniversityHandler) Handle(ctx context.Context, cmd UnlockUniversityCommand) (*UnlockResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	result := &UnlockResult{UniversityID: cmd.UniversityID}
	err := h.runner.Run(ctx, "unlock", cmd.UserID, func(tx selection.Tx) error {
		ledger, err := tx.Entries(ctx)
		if err != nil {
			return err
		}
		entry, ok := ledger.Find(cmd.UniversityID)
		if !ok {
			return shared.ErrEntryNotFound
		}
		if !entry.Locked {
			return shared.ErrEntryNotLocked
		}
		if err := tx.SetLocked(ctx, cmd.UniversityID, false); err != nil {
			return err
		}
		result.TasksKept, err = tx.CountTasks(ctx, cmd.UniversityID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unlock_university: %w", err)
	}

	h.runner.Publish(shared.NewLedgerEvent(shared.EventUniversityUnlocked, cmd.UserID, cmd.UniversityID))
	h.log.Info("university unlocked",
		logger.UserID(cmd.UserID.String()),
		logger.UniversityID(cmd.UniversityID.String()),
		logger.Int("tasks_kept", result.TasksKept))
	return result, nil
}
