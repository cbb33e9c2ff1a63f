package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/abroad-hub/counsellor/internal/domain/intent"
	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/stage"
	"github.com/abroad-hub/counsellor/internal/domain/university"
	"github.com/abroad-hub/counsellor/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOGGLE SHORTLIST COMMAND
// Adds a university to the shortlist, or removes it together with every task
// and document that belongs to the pair.
// ══════════════════════════════════════════════════════════════════════════════

// ToggleShortlistCommand contains the data to toggle a shortlist entry.
type ToggleShortlistCommand struct {
	UserID       shared.UserID
	UniversityID shared.UniversityID
}

// Validate validates the command.
func (c ToggleShortlistCommand) Validate() error {
	if c.UserID.IsEmpty() {
		return errors.New("toggle_shortlist: user_id is required")
	}
	if c.UniversityID.IsEmpty() {
		return errors.New("toggle_shortlist: university_id is required")
	}
	return nil
}

// ToggleResult describes the committed change.
type ToggleResult struct {
	UniversityID     shared.UniversityID
	Shortlisted      bool // state after the toggle
	WasLocked        bool
	TasksDeleted     int
	DocumentsDeleted int
}

// ToggleShortlistHandler handles the toggle command.
type ToggleShortlistHandler struct {
	source       StageSource
	universities university.Repository
	runner       *TxRunner
	log          *logger.Logger
}

// NewToggleShortlistHandler creates a new ToggleShortlistHandler.
func NewToggleShortlistHandler(
	source StageSource,
	universities university.Repository,
	runner *TxRunner,
	log *logger.Logger,
) *ToggleShortlistHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &ToggleShortlistHandler{
		source:       source,
		universities: universities,
		runner:       runner,
		log:          log.Named("toggle_shortlist"),
	}
}

// Handle executes the toggle. Adding requires the DISCOVERY stage; removing
// is always allowed.
func (h *ToggleShortlistHandler) Handle(ctx context.Context, cmd ToggleShortlistCommand) (*ToggleResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if _, err := h.universities.GetUniversity(ctx, cmd.UniversityID); err != nil {
		return nil, fmt.Errorf("toggle_shortlist: %w", err)
	}
	user, p, err := h.source.Load(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("toggle_shortlist: %w", err)
	}

	var result *ToggleResult
	err = h.runner.Run(ctx, "toggle_shortlist", cmd.UserID, func(tx selection.Tx) error {
		result = &ToggleResult{UniversityID: cmd.UniversityID}

		st, ledger, err := inferInTx(ctx, tx, user, p)
		if err != nil {
			return err
		}

		if entry, ok := ledger.Find(cmd.UniversityID); ok {
			result.WasLocked = entry.Locked
			if result.TasksDeleted, err = tx.DeleteTasks(ctx, cmd.UniversityID); err != nil {
				return fmt.Errorf("delete tasks: %w", err)
			}
			if result.DocumentsDeleted, err = tx.DeleteDocuments(ctx, cmd.UniversityID); err != nil {
				return fmt.Errorf("delete documents: %w", err)
			}
			return tx.DeleteEntry(ctx, cmd.UniversityID)
		}

		if d := intent.RequireStage(st, stage.Discovery, "Shortlisting"); !d.Allowed {
			return d.Violation
		}
		result.Shortlisted = true
		_, err = tx.UpsertEntry(ctx, cmd.UniversityID)
		return err
	})
	if err != nil {
		var v *intent.Violation
		if errors.As(err, &v) {
			return nil, v
		}
		return nil, fmt.Errorf("toggle_shortlist: %w", err)
	}

	var ev *shared.LedgerEvent
	if result.Shortlisted {
		ev = shared.NewLedgerEvent(shared.EventShortlistAdded, cmd.UserID, cmd.UniversityID)
	} else {
		ev = shared.NewLedgerEvent(shared.EventShortlistRemoved, cmd.UserID, cmd.UniversityID)
		ev.TasksDeleted = result.TasksDeleted
		ev.DocsDeleted = result.DocumentsDeleted
	}
	h.runner.Publish(ev)

	h.log.Info("shortlist toggled",
		logger.UserID(cmd.UserID.String()),
		logger.UniversityID(cmd.UniversityID.String()),
		logger.Bool("shortlisted", result.Shortlisted))
	return result, nil
}
