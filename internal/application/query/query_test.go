package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abroad-hub/counsellor/internal/domain/intent"
	"github.com/abroad-hub/counsellor/internal/domain/profile"
	"github.com/abroad-hub/counsellor/internal/domain/scoring"
	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/stage"
	"github.com/abroad-hub/counsellor/internal/domain/university"
	"github.com/abroad-hub/counsellor/internal/infrastructure/persistence/memory"
)

const bob shared.UserID = "bob"

type scoredRecorder struct{ scored int }

func (r *scoredRecorder) Recommended(n int, _ time.Duration) { r.scored = n }

func seed(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.NewStore()
	s.PutUser(profile.User{ID: bob, OnboardingCompleted: true})
	rate := func(v float64) *float64 { return &v }
	s.PutUniversity(university.University{ID: "tum", Name: "TUM", Country: "DE", AcceptanceRate: rate(40), Tuition: 3000})
	s.PutUniversity(university.University{ID: "uoft", Name: "University of Toronto", Country: "CA", AcceptanceRate: rate(43), Tuition: 45000})
	s.PutUniversity(university.University{ID: "asu", Name: "Arizona State University", Country: "US", AcceptanceRate: rate(88), Tuition: 32000})
	return s
}

func fullProfile() profile.Profile {
	band := profile.Budget40KTo60K
	gpa := 3.6
	return profile.Profile{
		UserID:             bob,
		AcademicBackground: &profile.AcademicBackground{GPA: &gpa},
		StudyGoals:         &profile.StudyGoals{IntendedDegree: "MSc"},
		Budget:             &band,
		ExamReadiness:      profile.ExamReadiness{LanguageTestStatus: profile.TestCompleted},
	}
}

func TestGetStage(t *testing.T) {
	ctx := context.Background()
	s := seed(t)
	h := NewGetStageHandler(s, s, s)

	dto, err := h.Handle(ctx, GetStageQuery{UserID: bob})
	require.NoError(t, err)
	assert.Equal(t, stage.Analysis, dto.Stage)
	assert.Equal(t, 2, dto.StageOrdinal)
	assert.Equal(t, 5, dto.TotalStages)
	assert.Equal(t, []string{"academic background", "study goals", "budget"}, dto.MissingSections)

	s.PutProfile(fullProfile())
	dto, err = h.Handle(ctx, GetStageQuery{UserID: bob})
	require.NoError(t, err)
	assert.Equal(t, stage.Discovery, dto.Stage)
	assert.Empty(t, dto.MissingSections)

	require.NoError(t, s.WithinTx(ctx, bob, func(tx selection.Tx) error {
		if _, err := tx.UpsertEntry(ctx, "tum"); err != nil {
			return err
		}
		return tx.SetLocked(ctx, "tum", true)
	}))
	dto, err = h.Handle(ctx, GetStageQuery{UserID: bob})
	require.NoError(t, err)
	assert.Equal(t, stage.Application, dto.Stage)
	assert.Equal(t, shared.UniversityID("tum"), dto.Locked)
}

func TestGetStage_UnknownUser(t *testing.T) {
	s := seed(t)
	_, err := NewGetStageHandler(s, s, s).Handle(context.Background(), GetStageQuery{UserID: "ghost"})
	assert.True(t, shared.IsNotFound(err))
}

func TestGetRecommendations(t *testing.T) {
	ctx := context.Background()
	s := seed(t)
	rec := &scoredRecorder{}
	h := NewGetRecommendationsHandler(NewGetStageHandler(s, s, s), s, scoring.Options{}, rec)

	_, err := h.Handle(ctx, GetRecommendationsQuery{UserID: bob})
	var v *intent.Violation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, stage.Analysis, v.Stage)

	s.PutProfile(fullProfile())
	dto, err := h.Handle(ctx, GetRecommendationsQuery{UserID: bob})
	require.NoError(t, err)
	assert.Equal(t, 3, dto.Scored)
	assert.Equal(t, 3, rec.scored)
	assert.Equal(t, stage.Discovery, dto.Stage.Stage)
	require.NotNil(t, dto.TopPick)
}

func TestGetLedger(t *testing.T) {
	ctx := context.Background()
	s := seed(t)
	require.NoError(t, s.WithinTx(ctx, bob, func(tx selection.Tx) error {
		for _, id := range []shared.UniversityID{"asu", "retired"} {
			if _, err := tx.UpsertEntry(ctx, id); err != nil {
				return err
			}
		}
		return tx.CreateDocuments(ctx, selection.NewDocumentChecklist(bob, "asu", time.Now()))
	}))

	dto, err := NewGetLedgerHandler(s, s).Handle(ctx, GetLedgerQuery{UserID: bob})
	require.NoError(t, err)
	require.Len(t, dto.Items, 2)
	assert.Equal(t, "Arizona State University", dto.Items[0].University.Name)
	assert.Len(t, dto.Items[0].Documents, selection.DocumentTemplateCount())
	assert.Equal(t, shared.UniversityID("retired"), dto.Items[1].University.ID)
	assert.Empty(t, dto.Items[1].University.Name)
}
