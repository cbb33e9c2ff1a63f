// Package query contains read operations. Nothing here mutates the ledger and
// nothing is cached: the stage is derived on every call.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/abroad-hub/counsellor/internal/domain/profile"
	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/stage"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STAGE QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetStageQuery identifies the user.
type GetStageQuery struct {
	UserID shared.UserID
}

// Validate checks the query.
func (q GetStageQuery) Validate() error {
	if q.UserID.IsEmpty() {
		return errors.New("user_id is required")
	}
	return nil
}

// StageDTO is the stage view returned to callers.
type StageDTO struct {
	Stage           stage.Stage
	StageOrdinal    int
	TotalStages     int
	MissingSections []string
	Shortlisted     int
	Locked          shared.UniversityID

	// Inputs, for callers that continue with gate decisions.
	User    *profile.User    `json:"-"`
	Profile *profile.Profile `json:"-"`
	Ledger  selection.Ledger `json:"-"`
}

// GetStageHandler infers the stage from persisted data.
type GetStageHandler struct {
	users    profile.UserRepository
	profiles profile.Repository
	ledger   selection.Reader
}

// NewGetStageHandler creates a new GetStageHandler.
func NewGetStageHandler(users profile.UserRepository, profiles profile.Repository, ledger selection.Reader) *GetStageHandler {
	return &GetStageHandler{users: users, profiles: profiles, ledger: ledger}
}

// Handle reads the user, profile and ledger and infers the stage.
func (h *GetStageHandler) Handle(ctx context.Context, q GetStageQuery) (*StageDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: get_stage: %v", shared.ErrValidation, err)
	}

	user, err := h.users.GetUser(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_stage: %w", err)
	}
	p, err := h.profiles.GetProfile(ctx, q.UserID)
	if err != nil && !shared.IsNotFound(err) {
		return nil, fmt.Errorf("get_stage: %w", err)
	}
	ledger, err := h.ledger.ListEntries(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_stage: %w", err)
	}

	st := stage.Infer(user, p, ledger)
	dto := &StageDTO{
		Stage:           st,
		StageOrdinal:    st.Ordinal(),
		TotalStages:     stage.TotalStages,
		MissingSections: p.MissingSections(),
		Shortlisted:     len(ledger),
		User:            user,
		Profile:         p,
		Ledger:          ledger,
	}
	if locked, ok := ledger.Locked(); ok {
		dto.Locked = locked.UniversityID
	}
	return dto, nil
}
