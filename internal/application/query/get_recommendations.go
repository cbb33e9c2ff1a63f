package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abroad-hub/counsellor/internal/domain/intent"
	"github.com/abroad-hub/counsellor/internal/domain/scoring"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/university"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET RECOMMENDATIONS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetRecommendationsQuery identifies the user.
type GetRecommendationsQuery struct {
	UserID shared.UserID
}

// Validate checks the query.
func (q GetRecommendationsQuery) Validate() error {
	if q.UserID.IsEmpty() {
		return errors.New("user_id is required")
	}
	return nil
}

// RecommendationsDTO wraps the scoring output with the stage it was computed at.
type RecommendationsDTO struct {
	Stage *StageDTO
	scoring.Recommendations
}

// ScoringRecorder receives recommendation instrumentation.
type ScoringRecorder interface {
	Recommended(scored int, d time.Duration)
}

// GetRecommendationsHandler scores the catalog for a user.
type GetRecommendationsHandler struct {
	stages       *GetStageHandler
	universities university.Repository
	opts         scoring.Options
	recorder     ScoringRecorder
}

// NewGetRecommendationsHandler creates a new GetRecommendationsHandler.
// recorder may be nil.
func NewGetRecommendationsHandler(
	stages *GetStageHandler,
	universities university.Repository,
	opts scoring.Options,
	recorder ScoringRecorder,
) *GetRecommendationsHandler {
	return &GetRecommendationsHandler{
		stages:       stages,
		universities: universities,
		opts:         opts,
		recorder:     recorder,
	}
}

// Handle gates the request on the user's stage and returns bucketed results.
// A blocked request returns an *intent.Violation.
func (h *GetRecommendationsHandler) Handle(ctx context.Context, q GetRecommendationsQuery) (*RecommendationsDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: get_recommendations: %v", shared.ErrValidation, err)
	}

	st, err := h.stages.Handle(ctx, GetStageQuery{UserID: q.UserID})
	if err != nil {
		return nil, err
	}
	if d := intent.CheckRestriction(st.Stage, intent.UniversityRecommendations); !d.Allowed {
		return nil, d.Violation
	}
	return h.ForStage(ctx, st)
}

// ForStage scores the catalog for an already loaded stage view without
// gating. Callers are expected to have evaluated the gate themselves.
func (h *GetRecommendationsHandler) ForStage(ctx context.Context, st *StageDTO) (*RecommendationsDTO, error) {
	catalog, err := h.universities.ListUniversities(ctx, university.Filter{})
	if err != nil {
		return nil, fmt.Errorf("get_recommendations: %w", err)
	}

	start := time.Now()
	recs := scoring.Recommend(st.Profile, catalog, h.opts)
	if h.recorder != nil {
		h.recorder.Recommended(recs.Scored, time.Since(start))
	}
	return &RecommendationsDTO{Stage: st, Recommendations: recs}, nil
}
