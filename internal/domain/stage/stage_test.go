package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abroad-hub/counsellor/internal/domain/profile"
	"github.com/abroad-hub/counsellor/internal/domain/selection"
)

func completeProfile() *profile.Profile {
	band := profile.Budget40KTo60K
	return &profile.Profile{
		AcademicBackground: &profile.AcademicBackground{Degree: "BSc"},
		StudyGoals:         &profile.StudyGoals{IntendedDegree: "MSc"},
		Budget:             &band,
	}
}

func TestInfer(t *testing.T) {
	onboarded := &profile.User{ID: "u1", OnboardingCompleted: true}
	shortlisted := selection.Ledger{{UniversityID: "mit"}}
	locked := selection.Ledger{{UniversityID: "mit"}, {UniversityID: "tum", Locked: true}}

	tests := []struct {
		name    string
		user    *profile.User
		profile *profile.Profile
		ledger  selection.Ledger
		want    Stage
	}{
		{"nil user", nil, completeProfile(), locked, Onboarding},
		{"onboarding flag wins over everything", &profile.User{ID: "u1"}, completeProfile(), locked, Onboarding},
		{"missing profile", onboarded, nil, nil, Analysis},
		{"academic background null", onboarded, &profile.Profile{
			StudyGoals: completeProfile().StudyGoals,
			Budget:     completeProfile().Budget,
		}, nil, Analysis},
		{"incomplete profile beats locked ledger", onboarded, &profile.Profile{}, locked, Analysis},
		{"complete profile, empty ledger", onboarded, completeProfile(), nil, Discovery},
		{"shortlisted", onboarded, completeProfile(), shortlisted, Locking},
		{"locked", onboarded, completeProfile(), locked, Application},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Infer(tt.user, tt.profile, tt.ledger))
		})
	}
}

func TestInfer_ForwardProgressVisitsEveryStageInOrder(t *testing.T) {
	user := &profile.User{ID: "u1"}
	p := &profile.Profile{}
	var ledger selection.Ledger

	var visited []Stage
	record := func() { visited = append(visited, Infer(user, p, ledger)) }

	record()
	user.OnboardingCompleted = true
	record()
	p = completeProfile()
	record()
	ledger = selection.Ledger{{UniversityID: "mit"}}
	record()
	ledger[0].Locked = true
	record()

	assert.Equal(t, All(), visited)

	// unlocking regresses through data, not through a stored value
	ledger[0].Locked = false
	assert.Equal(t, Locking, Infer(user, p, ledger))
	ledger = nil
	assert.Equal(t, Discovery, Infer(user, p, ledger))
}

func TestStage_Ordinal(t *testing.T) {
	for i, s := range All() {
		assert.Equal(t, i+1, s.Ordinal())
		assert.True(t, s.IsValid())
	}
	assert.Equal(t, TotalStages, len(All()))
	assert.Equal(t, "LOCKING", Locking.String())
	assert.Equal(t, Application, Application.Next())
	assert.False(t, Stage(0).IsValid())
}
