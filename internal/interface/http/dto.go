package http

import (
	"time"

	"github.com/abroad-hub/counsellor/internal/application/command"
	"github.com/abroad-hub/counsellor/internal/application/counsellor"
	"github.com/abroad-hub/counsellor/internal/application/query"
	"github.com/abroad-hub/counsellor/internal/domain/intent"
	"github.com/abroad-hub/counsellor/internal/domain/scoring"
	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/stage"
	"github.com/abroad-hub/counsellor/internal/domain/university"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUESTS
// ══════════════════════════════════════════════════════════════════════════════

// MessageRequest is the body of POST /messages.
type MessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// ActionRequest is the body of POST /lock and POST /unlock. Confirmation is
// the user's literal reply to the confirmation prompt, e.g. "yes".
type ActionRequest struct {
	University   string `json:"university" binding:"required"`
	Confirmation string `json:"confirmation" binding:"required"`
}

// GenerateTasksRequest is the body of POST /tasks/generate.
type GenerateTasksRequest struct {
	UniversityID string `json:"university_id" binding:"required"`
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSES
// ══════════════════════════════════════════════════════════════════════════════

// StageDTO is the serialized stage view.
type StageDTO struct {
	Stage        string `json:"stage"`
	StageOrdinal int    `json:"stage_ordinal"`
	TotalStages  int    `json:"total_stages"`
}

func stageDTO(s stage.Stage) StageDTO {
	return StageDTO{Stage: s.String(), StageOrdinal: s.Ordinal(), TotalStages: stage.TotalStages}
}

// ViolationDTO explains a blocked action.
type ViolationDTO struct {
	Stage         string   `json:"stage"`
	Intent        string   `json:"intent"`
	Reason        string   `json:"reason"`
	RequiredSteps []string `json:"required_steps"`
	NextAction    string   `json:"next_action"`
}

func violationDTO(v *intent.Violation) *ViolationDTO {
	if v == nil {
		return nil
	}
	return &ViolationDTO{
		Stage:         v.Stage.String(),
		Intent:        string(v.Intent),
		Reason:        v.Reason,
		RequiredSteps: v.RequiredSteps,
		NextAction:    v.NextAction,
	}
}

// MessageResponse is the counsellor's reply.
type MessageResponse struct {
	Text      string        `json:"text"`
	Stage     StageDTO      `json:"stage"`
	Intent    string        `json:"intent,omitempty"`
	Violation *ViolationDTO `json:"violation,omitempty"`
}

func messageResponse(r *counsellor.Response) MessageResponse {
	return MessageResponse{
		Text:      r.Text,
		Stage:     stageDTO(r.Stage),
		Intent:    string(r.Intent),
		Violation: violationDTO(r.Violation),
	}
}

// UniversityDTO is a catalog entry.
type UniversityDTO struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name,omitempty"`
	Country             string   `json:"country,omitempty"`
	AcceptanceRate      *float64 `json:"acceptance_rate,omitempty"`
	Ranking             *int     `json:"ranking,omitempty"`
	Tuition             int      `json:"tuition"`
	TuitionBand         string   `json:"tuition_band,omitempty"`
	LanguageRequirement *float64 `json:"language_requirement,omitempty"`
}

func universityDTO(u *university.University) *UniversityDTO {
	if u == nil {
		return nil
	}
	dto := &UniversityDTO{
		ID:                  u.ID.String(),
		Name:                u.Name,
		Country:             string(u.Country),
		AcceptanceRate:      u.AcceptanceRate,
		Ranking:             u.Ranking,
		Tuition:             u.Tuition,
		LanguageRequirement: u.LanguageRequirement,
	}
	if u.Name != "" {
		dto.TuitionBand = string(u.TuitionBand())
	}
	return dto
}

// RecommendationDTO is one scored university.
type RecommendationDTO struct {
	University           *UniversityDTO `json:"university"`
	Category             string         `json:"category"`
	AcceptanceLikelihood float64        `json:"acceptance_likelihood"`
	CostFit              string         `json:"cost_fit"`
	EstimatedCost        int            `json:"estimated_cost"`
	Rationale            []string       `json:"rationale"`
}

func recommendationDTO(r scoring.Recommendation) RecommendationDTO {
	return RecommendationDTO{
		University:           universityDTO(r.University),
		Category:             string(r.Result.Category),
		AcceptanceLikelihood: r.Result.AcceptanceLikelihood,
		CostFit:              string(r.Result.CostFit),
		EstimatedCost:        r.Result.EstimatedCost,
		Rationale:            r.Result.Rationale,
	}
}

func recommendationDTOs(rs []scoring.Recommendation) []RecommendationDTO {
	out := make([]RecommendationDTO, len(rs))
	for i, r := range rs {
		out[i] = recommendationDTO(r)
	}
	return out
}

// RecommendationsResponse is the bucketed recommendation view.
type RecommendationsResponse struct {
	Stage                StageDTO            `json:"stage"`
	Dream                []RecommendationDTO `json:"dream"`
	Target               []RecommendationDTO `json:"target"`
	Safe                 []RecommendationDTO `json:"safe"`
	TopPick              *RecommendationDTO  `json:"top_pick,omitempty"`
	Scored               int                 `json:"scored"`
	CountryFilterRelaxed bool                `json:"country_filter_relaxed"`
}

func recommendationsResponse(r *query.RecommendationsDTO) RecommendationsResponse {
	resp := RecommendationsResponse{
		Stage:                stageDTO(r.Stage.Stage),
		Dream:                recommendationDTOs(r.Dream),
		Target:               recommendationDTOs(r.Target),
		Safe:                 recommendationDTOs(r.Safe),
		Scored:               r.Scored,
		CountryFilterRelaxed: r.CountryFilterRelaxed,
	}
	if r.TopPick != nil {
		top := recommendationDTO(*r.TopPick)
		resp.TopPick = &top
	}
	return resp
}

// TaskDTO is one checklist task.
type TaskDTO struct {
	ID          string    `json:"id"`
	Position    int       `json:"position"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func taskDTOs(ts []selection.Task) []TaskDTO {
	out := make([]TaskDTO, len(ts))
	for i, t := range ts {
		out[i] = TaskDTO{
			ID:          t.ID,
			Position:    t.Position,
			Title:       t.Title,
			Description: t.Description,
			Status:      string(t.Status),
			CreatedAt:   t.CreatedAt,
		}
	}
	return out
}

// DocumentDTO is one document checklist item.
type DocumentDTO struct {
	ID        string    `json:"id"`
	Position  int       `json:"position"`
	Name      string    `json:"name"`
	Required  bool      `json:"required"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func documentDTOs(ds []selection.Document) []DocumentDTO {
	out := make([]DocumentDTO, len(ds))
	for i, d := range ds {
		out[i] = DocumentDTO{
			ID:        d.ID,
			Position:  d.Position,
			Name:      d.Name,
			Required:  d.Required,
			Status:    string(d.Status),
			CreatedAt: d.CreatedAt,
		}
	}
	return out
}

// LedgerItemDTO is one shortlisted university with its records.
type LedgerItemDTO struct {
	University *UniversityDTO `json:"university"`
	Locked     bool           `json:"locked"`
	Tasks      []TaskDTO      `json:"tasks"`
	Documents  []DocumentDTO  `json:"documents"`
}

// LedgerResponse is the shortlist view.
type LedgerResponse struct {
	Items []LedgerItemDTO `json:"items"`
}

func ledgerResponse(l *query.LedgerDTO) LedgerResponse {
	items := make([]LedgerItemDTO, len(l.Items))
	for i, it := range l.Items {
		items[i] = LedgerItemDTO{
			University: universityDTO(it.University),
			Locked:     it.Locked,
			Tasks:      taskDTOs(it.Tasks),
			Documents:  documentDTOs(it.Documents),
		}
	}
	return LedgerResponse{Items: items}
}

// ActionResponse describes a lock or unlock request.
type ActionResponse struct {
	Status      string         `json:"status"`
	Text        string         `json:"text"`
	Stage       *StageDTO      `json:"stage,omitempty"`
	University  *UniversityDTO `json:"university,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Violation   *ViolationDTO  `json:"violation,omitempty"`

	// Set on a completed lock.
	PreviousLocked   string `json:"previous_locked,omitempty"`
	ShortlistCreated bool   `json:"shortlist_created,omitempty"`
	TasksCreated     int    `json:"tasks_created,omitempty"`
	DocumentsCreated int    `json:"documents_created,omitempty"`
}

func actionResponse(r *counsellor.ActionResult) ActionResponse {
	resp := ActionResponse{
		Status:      string(r.Status),
		Text:        r.Text,
		University:  universityDTO(r.University),
		Suggestions: r.Suggestions,
		Violation:   violationDTO(r.Violation),
	}
	if r.Stage.IsValid() {
		st := stageDTO(r.Stage)
		resp.Stage = &st
	}
	if r.Lock != nil {
		resp.PreviousLocked = r.Lock.PreviousLocked.String()
		resp.ShortlistCreated = r.Lock.ShortlistCreated
		resp.TasksCreated = r.Lock.TasksCreated
		resp.DocumentsCreated = r.Lock.DocumentsCreated
	}
	return resp
}

// ToggleResponse reports the shortlist state after a toggle.
type ToggleResponse struct {
	UniversityID     string `json:"university_id"`
	Shortlisted      bool   `json:"shortlisted"`
	WasLocked        bool   `json:"was_locked"`
	TasksDeleted     int    `json:"tasks_deleted"`
	DocumentsDeleted int    `json:"documents_deleted"`
}

func toggleResponse(r *command.ToggleResult) ToggleResponse {
	return ToggleResponse{
		UniversityID:     r.UniversityID.String(),
		Shortlisted:      r.Shortlisted,
		WasLocked:        r.WasLocked,
		TasksDeleted:     r.TasksDeleted,
		DocumentsDeleted: r.DocumentsDeleted,
	}
}

// SyncDocumentsResponse reports documents created per university.
type SyncDocumentsResponse struct {
	Created map[string]int `json:"created"`
	Total   int            `json:"total"`
}

func syncDocumentsResponse(r *command.SyncDocumentsResult) SyncDocumentsResponse {
	created := make(map[string]int, len(r.Created))
	for id, n := range r.Created {
		created[id.String()] = n
	}
	return SyncDocumentsResponse{Created: created, Total: r.Total()}
}

// PurgeResponse reports deleted orphans.
type PurgeResponse struct {
	TasksDeleted     int      `json:"tasks_deleted"`
	DocumentsDeleted int      `json:"documents_deleted"`
	Universities     []string `json:"universities"`
}

func purgeResponse(r *command.PurgeResult) PurgeResponse {
	ids := make([]string, len(r.Universities))
	for i, id := range r.Universities {
		ids[i] = id.String()
	}
	return PurgeResponse{TasksDeleted: r.TasksDeleted, DocumentsDeleted: r.DocumentsDeleted, Universities: ids}
}

func universityID(raw string) (shared.UniversityID, error) {
	return shared.NewUniversityID(raw)
}
