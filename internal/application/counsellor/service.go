// Package counsellor is the entry point of the decision engine. It turns a
// user message into a stage-aware response and runs confirmed lock/unlock
// requests through the ledger commands.
package counsellor

import (
	"context"
	"errors"
	"fmt"

	"github.com/abroad-hub/counsellor/internal/application/command"
	"github.com/abroad-hub/counsellor/internal/application/query"
	"github.com/abroad-hub/counsellor/internal/domain/intent"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/stage"
	"github.com/abroad-hub/counsellor/internal/domain/university"
	"github.com/abroad-hub/counsellor/pkg/logger"
)

// GateRecorder receives gate outcomes.
type GateRecorder interface {
	GateDecision(stage, intent string, allowed bool)
}

// Response is the result of HandleMessage.
type Response struct {
	Text         string
	Stage        stage.Stage
	StageOrdinal int
	Intent       intent.Intent // empty when nothing matched
	Violation    *intent.Violation
}

// StageView is the result of GetStage.
type StageView struct {
	Stage        stage.Stage
	StageOrdinal int
	TotalStages  int
}

// Dependencies wires the service.
type Dependencies struct {
	Stages          *query.GetStageHandler
	Recommendations *query.GetRecommendationsHandler
	Ledger          *query.GetLedgerHandler
	Universities    university.Repository
	Lock            *command.LockUniversityHandler
	Unlock          *command.UnlockUniversityHandler
	Toggle          *command.ToggleShortlistHandler
	GenerateTasks   *command.GenerateTasksHandler
	SyncDocuments   *command.SyncShortlistDocumentsHandler
	PurgeOrphans    *command.PurgeOrphansHandler
	Gate            GateRecorder // optional
	Logger          *logger.Logger
}

// Service is the counsellor facade.
type Service struct {
	stages          *query.GetStageHandler
	recommendations *query.GetRecommendationsHandler
	ledger          *query.GetLedgerHandler
	universities    university.Repository
	lock            *command.LockUniversityHandler
	unlock          *command.UnlockUniversityHandler
	toggle          *command.ToggleShortlistHandler
	generateTasks   *command.GenerateTasksHandler
	syncDocuments   *command.SyncShortlistDocumentsHandler
	purgeOrphans    *command.PurgeOrphansHandler
	gate            GateRecorder
	log             *logger.Logger
}

// NewService creates the counsellor service.
func NewService(deps Dependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		stages:          deps.Stages,
		recommendations: deps.Recommendations,
		ledger:          deps.Ledger,
		universities:    deps.Universities,
		lock:            deps.Lock,
		unlock:          deps.Unlock,
		toggle:          deps.Toggle,
		generateTasks:   deps.GenerateTasks,
		syncDocuments:   deps.SyncDocuments,
		purgeOrphans:    deps.PurgeOrphans,
		gate:            deps.Gate,
		log:             log.With(logger.Component("counsellor")),
	}
}

// GetStage infers the user's stage.
func (s *Service) GetStage(ctx context.Context, userID shared.UserID) (*StageView, error) {
	st, err := s.stages.Handle(ctx, query.GetStageQuery{UserID: userID})
	if err != nil {
		return nil, err
	}
	return &StageView{Stage: st.Stage, StageOrdinal: st.StageOrdinal, TotalStages: st.TotalStages}, nil
}

// HandleMessage classifies text, gates it on the user's current stage and
// answers it.
func (s *Service) HandleMessage(ctx context.Context, userID shared.UserID, text string) (*Response, error) {
	st, err := s.stages.Handle(ctx, query.GetStageQuery{UserID: userID})
	if err != nil {
		return nil, err
	}
	resp := &Response{Stage: st.Stage, StageOrdinal: st.StageOrdinal}

	in, ok := intent.Classify(text)
	if !ok {
		resp.Text = fallbackText(st)
		return resp, nil
	}
	resp.Intent = in
	if in == intent.Casual {
		resp.Text = SystemIdentity
		return resp, nil
	}

	d := intent.Evaluate(st.Stage, in, st.Ledger)
	if s.gate != nil {
		s.gate.GateDecision(st.Stage.String(), string(in), d.Allowed)
	}
	s.log.Debug("gate evaluated",
		logger.UserID(userID.String()),
		logger.Stage(st.Stage.String()),
		logger.Intent(string(in)),
		logger.Allowed(d.Allowed))
	if !d.Allowed {
		resp.Violation = d.Violation
		resp.Text = violationText(d.Violation)
		return resp, nil
	}

	resp.Text, err = s.answer(ctx, userID, in, st)
	if err != nil {
		return nil, fmt.Errorf("counsellor: answer %s: %w", in, err)
	}
	return resp, nil
}

func (s *Service) answer(ctx context.Context, userID shared.UserID, in intent.Intent, st *query.StageDTO) (string, error) {
	switch in {
	case intent.UniversityRecommendations:
		recs, err := s.recommendations.ForStage(ctx, st)
		if err != nil {
			return "", err
		}
		return recommendationsText(recs), nil

	case intent.UniversityLocking:
		ledger, err := s.ledger.Handle(ctx, query.GetLedgerQuery{UserID: userID})
		if err != nil {
			return "", err
		}
		return lockPromptText(ledger), nil

	case intent.UniversityUnlocking:
		ledger, err := s.ledger.Handle(ctx, query.GetLedgerQuery{UserID: userID})
		if err != nil {
			return "", err
		}
		return unlockPromptText(ledger), nil

	case intent.Comparison:
		ledger, err := s.ledger.Handle(ctx, query.GetLedgerQuery{UserID: userID})
		if err != nil {
			return "", err
		}
		return comparisonText(st.Profile, ledger), nil
	}

	// Application family: the gate guarantees a locked university.
	ledger, err := s.ledger.Handle(ctx, query.GetLedgerQuery{UserID: userID})
	if err != nil {
		return "", err
	}
	item, ok := lockedItem(ledger)
	if !ok {
		return "", shared.NewDomainError("counsellor", "Answer", shared.ErrInvariantViolation, "no locked university")
	}
	switch in {
	case intent.ApplicationGuidance:
		return applicationText(item), nil
	case intent.SOPWriting:
		return sopText(item), nil
	case intent.DocumentPrep:
		return documentsText(item), nil
	default:
		return timelineText(item), nil
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CONFIRMED ACTIONS
// ══════════════════════════════════════════════════════════════════════════════

// ActionStatus is the outcome of a lock or unlock request.
type ActionStatus string

const (
	StatusCompleted ActionStatus = "completed"
	StatusCancelled ActionStatus = "cancelled"
	StatusNotFound  ActionStatus = "not_found"
	StatusBlocked   ActionStatus = "blocked"
	StatusRejected  ActionStatus = "rejected"
)

// ActionResult describes a lock or unlock request.
type ActionResult struct {
	Status      ActionStatus
	Text        string
	University  *university.University
	Suggestions []string
	Violation   *intent.Violation
	Lock        *command.LockResult
	Stage       stage.Stage
}

// RequestLock locks the named university after an explicit confirmation.
// An unclear confirmation returns an error matching
// shared.ErrAmbiguousConfirmation; the caller should ask again.
func (s *Service) RequestLock(ctx context.Context, userID shared.UserID, universityName, confirmation string) (*ActionResult, error) {
	res, uni, err := s.prepareAction(ctx, universityName, confirmation, "Lock")
	if err != nil || res != nil {
		return res, err
	}

	lock, err := s.lock.Handle(ctx, command.LockUniversityCommand{UserID: userID, UniversityID: uni.ID})
	var v *intent.Violation
	switch {
	case errors.As(err, &v):
		return &ActionResult{Status: StatusBlocked, Text: violationText(v), University: uni, Violation: v, Stage: v.Stage}, nil
	case err != nil:
		return nil, err
	}

	return s.withStage(ctx, userID, &ActionResult{
		Status:     StatusCompleted,
		Text:       lockedText(lock),
		University: uni,
		Lock:       lock,
	})
}

// RequestUnlock unlocks the named university after an explicit confirmation.
func (s *Service) RequestUnlock(ctx context.Context, userID shared.UserID, universityName, confirmation string) (*ActionResult, error) {
	res, uni, err := s.prepareAction(ctx, universityName, confirmation, "Unlock")
	if err != nil || res != nil {
		return res, err
	}

	unlock, err := s.unlock.Handle(ctx, command.UnlockUniversityCommand{UserID: userID, UniversityID: uni.ID})
	switch {
	case errors.Is(err, shared.ErrEntryNotFound):
		return &ActionResult{Status: StatusRejected, University: uni,
			Text: fmt.Sprintf("%s is not on your shortlist, so there is nothing to unlock.", uni.Name)}, nil
	case errors.Is(err, shared.ErrEntryNotLocked):
		return &ActionResult{Status: StatusRejected, University: uni,
			Text: fmt.Sprintf("%s is shortlisted but not locked.", uni.Name)}, nil
	case err != nil:
		return nil, err
	}

	return s.withStage(ctx, userID, &ActionResult{
		Status:     StatusCompleted,
		Text:       unlockedText(uni, unlock),
		University: uni,
	})
}

// prepareAction parses the confirmation and resolves the name. A non-nil
// result ends the request early.
func (s *Service) prepareAction(ctx context.Context, name, confirmation, verb string) (*ActionResult, *university.University, error) {
	confirmed, err := intent.ParseConfirmation(confirmation)
	if err != nil {
		return nil, nil, err
	}
	if confirmed == intent.Declined {
		return &ActionResult{Status: StatusCancelled, Text: verb + " cancelled. Nothing was changed."}, nil, nil
	}

	catalog, err := s.universities.ListUniversities(ctx, university.Filter{})
	if err != nil {
		return nil, nil, fmt.Errorf("counsellor: list universities: %w", err)
	}
	r := university.ResolveName(name, catalog)
	if !r.Found() {
		return &ActionResult{Status: StatusNotFound, Text: notFoundText(name, r.Suggestions), Suggestions: r.Suggestions}, nil, nil
	}
	return nil, r.University, nil
}

func (s *Service) withStage(ctx context.Context, userID shared.UserID, res *ActionResult) (*ActionResult, error) {
	st, err := s.stages.Handle(ctx, query.GetStageQuery{UserID: userID})
	if err != nil {
		return nil, err
	}
	res.Stage = st.Stage
	return res, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DIRECT LEDGER OPERATIONS
// Structured calls from the HTTP surface that carry IDs instead of names and
// need no confirmation.
// ══════════════════════════════════════════════════════════════════════════════

// ToggleShortlist adds or removes a university from the shortlist.
func (s *Service) ToggleShortlist(ctx context.Context, userID shared.UserID, universityID shared.UniversityID) (*command.ToggleResult, error) {
	return s.toggle.Handle(ctx, command.ToggleShortlistCommand{UserID: userID, UniversityID: universityID})
}

// GenerateTasks recreates the task checklist for the locked university.
func (s *Service) GenerateTasks(ctx context.Context, userID shared.UserID, universityID shared.UniversityID) (*command.GenerateTasksResult, error) {
	return s.generateTasks.Handle(ctx, command.GenerateTasksCommand{UserID: userID, UniversityID: universityID})
}

// SyncShortlistDocuments creates missing document checklists for the whole
// shortlist. Only valid under the DOCUMENTS_ON_SHORTLIST policy.
func (s *Service) SyncShortlistDocuments(ctx context.Context, userID shared.UserID) (*command.SyncDocumentsResult, error) {
	return s.syncDocuments.Handle(ctx, command.SyncShortlistDocumentsCommand{UserID: userID})
}

// PurgeOrphanedRecords deletes tasks and documents left behind by unlocks.
func (s *Service) PurgeOrphanedRecords(ctx context.Context, userID shared.UserID) (*command.PurgeResult, error) {
	return s.purgeOrphans.Handle(ctx, command.PurgeOrphansCommand{UserID: userID})
}

// Ledger returns the shortlist with its dependent records.
func (s *Service) Ledger(ctx context.Context, userID shared.UserID) (*query.LedgerDTO, error) {
	return s.ledger.Handle(ctx, query.GetLedgerQuery{UserID: userID})
}

// Recommendations returns dream/target/safe recommendations, gated on stage.
// A blocked request returns the *intent.Violation as the error.
func (s *Service) Recommendations(ctx context.Context, userID shared.UserID) (*query.RecommendationsDTO, error) {
	return s.recommendations.Handle(ctx, query.GetRecommendationsQuery{UserID: userID})
}

// DocumentSyncer exposes the shortlist document sync command for event
// subscribers.
func (s *Service) DocumentSyncer() *command.SyncShortlistDocumentsHandler {
	return s.syncDocuments
}
