package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/abroad-hub/counsellor/internal/domain/intent"
	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/university"
	"github.com/abroad-hub/counsellor/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOCK UNIVERSITY COMMAND
// Commits the user to one university. Any previous lock is released in the
// same unit of work, so a failed switch keeps the old commitment.
// ══════════════════════════════════════════════════════════════════════════════

// LockUniversityCommand contains the data to lock a university.
type LockUniversityCommand struct {
	UserID       shared.UserID
	UniversityID shared.UniversityID
}

// Validate validates the command.
func (c LockUniversityCommand) Validate() error {
	if c.UserID.IsEmpty() {
		return errors.New("lock_university: user_id is required")
	}
	if c.UniversityID.IsEmpty() {
		return errors.New("lock_university: university_id is required")
	}
	return nil
}

// LockResult describes a committed lock.
type LockResult struct {
	University          *university.University
	PreviousLocked      shared.UniversityID
	ShortlistCreated    bool
	TasksCreated        int
	TasksAlreadyExisted bool
	DocumentsCreated    int
}

// Switched reports whether a different university was locked before.
func (r *LockResult) Switched() bool {
	return !r.PreviousLocked.IsEmpty() && r.University != nil && r.PreviousLocked != r.University.ID
}

// LockUniversityHandler handles the lock command.
type LockUniversityHandler struct {
	source       StageSource
	universities university.Repository
	runner       *TxRunner
	policy       selection.DocumentPolicy
	log          *logger.Logger
}

// NewLockUniversityHandler creates a new LockUniversityHandler.
func NewLockUniversityHandler(
	source StageSource,
	universities university.Repository,
	runner *TxRunner,
	policy selection.DocumentPolicy,
	log *logger.Logger,
) *LockUniversityHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &LockUniversityHandler{
		source:       source,
		universities: universities,
		runner:       runner,
		policy:       policy,
		log:          log.Named("lock_university"),
	}
}

// Handle executes the lock.
func (h *LockUniversityHandler) Handle(ctx context.Context, cmd LockUniversityCommand) (*LockResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	uni, err := h.universities.GetUniversity(ctx, cmd.UniversityID)
	if err != nil {
		return nil, fmt.Errorf("lock_university: %w", err)
	}
	user, p, err := h.source.Load(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("lock_university: %w", err)
	}

	var result *LockResult
	err = h.runner.Run(ctx, "lock", cmd.UserID, func(tx selection.Tx) error {
		result = &LockResult{University: uni}

		st, _, err := inferInTx(ctx, tx, user, p)
		if err != nil {
			return err
		}
		if d := intent.CheckRestriction(st, intent.UniversityLocking); !d.Allowed {
			return d.Violation
		}

		previous, err := tx.UnlockAll(ctx)
		if err != nil {
			return fmt.Errorf("unlock previous: %w", err)
		}
		if len(previous) > 0 {
			result.PreviousLocked = previous[0]
		}

		if result.ShortlistCreated, err = tx.UpsertEntry(ctx, uni.ID); err != nil {
			return fmt.Errorf("shortlist: %w", err)
		}
		if err := tx.SetLocked(ctx, uni.ID, true); err != nil {
			return fmt.Errorf("set locked: %w", err)
		}

		existing, err := tx.CountTasks(ctx, uni.ID)
		if err != nil {
			return fmt.Errorf("count tasks: %w", err)
		}
		if existing > 0 {
			result.TasksAlreadyExisted = true
		} else {
			tasks := selection.NewTaskChecklist(cmd.UserID, uni.ID, h.runner.Now())
			if err := tx.CreateTasks(ctx, tasks); err != nil {
				return fmt.Errorf("create tasks: %w", err)
			}
			result.TasksCreated = len(tasks)
		}

		// Under DOCUMENTS_ON_SHORTLIST the sync usually created them already.
		docs, err := tx.CountDocuments(ctx, uni.ID)
		if err != nil {
			return fmt.Errorf("count documents: %w", err)
		}
		if docs == 0 {
			checklist := selection.NewDocumentChecklist(cmd.UserID, uni.ID, h.runner.Now())
			if err := tx.CreateDocuments(ctx, checklist); err != nil {
				return fmt.Errorf("create documents: %w", err)
			}
			result.DocumentsCreated = len(checklist)
		}
		return nil
	})
	if err != nil {
		h.log.Warn("lock rolled back",
			logger.UserID(cmd.UserID.String()), logger.UniversityID(cmd.UniversityID.String()), logger.Err(err))
		var v *intent.Violation
		if errors.As(err, &v) {
			return nil, v
		}
		return nil, fmt.Errorf("lock_university: %w", err)
	}

	ev := shared.NewLedgerEvent(shared.EventUniversityLocked, cmd.UserID, uni.ID)
	ev.PreviousLocked = result.PreviousLocked
	ev.TasksCreated = result.TasksCreated
	ev.DocsCreated = result.DocumentsCreated
	events := []shared.Event{ev}
	if result.ShortlistCreated {
		events = append([]shared.Event{shared.NewLedgerEvent(shared.EventShortlistAdded, cmd.UserID, uni.ID)}, events...)
	}
	h.runner.Publish(events...)

	h.log.Info("university locked",
		logger.UserID(cmd.UserID.String()),
		logger.UniversityID(uni.ID.String()),
		logger.TaskCount(result.TasksCreated),
		logger.DocumentPolicy(string(h.policy)),
		logger.Bool("switched", result.Switched()))
	return result, nil
}
