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
// GENERATE TASKS COMMAND
// Explicit regeneration of the task checklist for the locked university,
// e.g. after the user deleted their tasks by hand.
// ══════════════════════════════════════════════════════════════════════════════

// GenerateTasksCommand contains the data to generate tasks.
type GenerateTasksCommand struct {
	UserID       shared.UserID
	UniversityID shared.UniversityID
}

// Validate validates the command.
func (c GenerateTasksCommand) Validate() error {
	if c.UserID.IsEmpty() {
		return errors.New("generate_tasks: user_id is required")
	}
	if c.UniversityID.IsEmpty() {
		return errors.New("generate_tasks: university_id is required")
	}
	return nil
}

// GenerateTasksResult lists the created tasks.
type GenerateTasksResult struct {
	Tasks []selection.Task
}

// GenerateTasksHandler handles the generate command.
type GenerateTasksHandler struct {
	runner *TxRunner
	log    *logger.Logger
}

// NewGenerateTasksHandler creates a new GenerateTasksHandler.
func NewGenerateTasksHandler(runner *TxRunner, log *logger.Logger) *GenerateTasksHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &GenerateTasksHandler{runner: runner, log: log.Named("generate_tasks")}
}

// Handle creates the checklist. Fails with shared.ErrTasksRequireLock when the
// pair is not locked and shared.ErrTasksAlreadyExist when rows exist.
func (h *GenerateTasksHandler) Handle(ctx context.Context, cmd GenerateTasksCommand) (*GenerateTasksResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	var tasks []selection.Task
	err := h.runner.Run(ctx, "generate_tasks", cmd.UserID, func(tx selection.Tx) error {
		tasks = nil
		ledger, err := tx.Entries(ctx)
		if err != nil {
			return err
		}
		if !ledger.TasksAllowed(cmd.UniversityID) {
			return shared.ErrTasksRequireLock
		}
		n, err := tx.CountTasks(ctx, cmd.UniversityID)
		if err != nil {
			return err
		}
		if n > 0 {
			return shared.ErrTasksAlreadyExist
		}
		tasks = selection.NewTaskChecklist(cmd.UserID, cmd.UniversityID, h.runner.Now())
		return tx.CreateTasks(ctx, tasks)
	})
	if err != nil {
		return nil, fmt.Errorf("generate_tasks: %w", err)
	}

	h.log.Info("tasks generated",
		logger.UserID(cmd.UserID.String()),
		logger.UniversityID(cmd.UniversityID.String()),
		logger.TaskCount(len(tasks)))
	return &GenerateTasksResult{Tasks: tasks}, nil
}
