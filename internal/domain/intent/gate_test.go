package intent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/stage"
)

func TestCheckRestriction_MatchesTableForEveryStageAndTaskIntent(t *testing.T) {
	expectedBlocked := map[stage.Stage][]Intent{
		stage.Onboarding:  TaskIntents,
		stage.Analysis:    TaskIntents,
		stage.Discovery:   {ApplicationGuidance, SOPWriting, DocumentPrep, TimelineTasks},
		stage.Locking:     {ApplicationGuidance, SOPWriting, DocumentPrep, TimelineTasks},
		stage.Application: nil,
	}

	for _, s := range stage.All() {
		for _, i := range TaskIntents {
			blocked := false
			for _, b := range expectedBlocked[s] {
				if b == i {
					blocked = true
				}
			}

			d := CheckRestriction(s, i)
			assert.Equal(t, !blocked, d.Allowed, "%s/%s", s, i)
			if blocked {
				require.NotNil(t, d.Violation, "%s/%s", s, i)
				assert.NotEmpty(t, d.Violation.RequiredSteps)
				assert.Equal(t, d.Violation.RequiredSteps[0], d.Violation.NextAction)
				assert.Equal(t, s, d.Violation.Stage)
			} else {
				assert.Nil(t, d.Violation)
			}
		}
	}
}

func TestCheckRestriction_UnknownStageBlocksTaskIntents(t *testing.T) {
	for _, i := range TaskIntents {
		assert.False(t, CheckRestriction(stage.Stage(42), i).Allowed)
	}
	assert.True(t, CheckRestriction(stage.Stage(42), Casual).Allowed)
}

func TestCheckRestriction_RequiredSteps(t *testing.T) {
	d := CheckRestriction(stage.Onboarding, SOPWriting)
	require.False(t, d.Allowed)
	assert.Equal(t, []string{
		RemediationFor(stage.Onboarding),
		RemediationFor(stage.Analysis),
		RemediationFor(stage.Discovery),
		RemediationFor(stage.Locking),
	}, d.Violation.RequiredSteps)

	d = CheckRestriction(stage.Analysis, UniversityRecommendations)
	require.False(t, d.Allowed)
	assert.Equal(t, []string{RemediationFor(stage.Analysis)}, d.Violation.RequiredSteps)

	d = CheckRestriction(stage.Locking, TimelineTasks)
	require.False(t, d.Allowed)
	assert.Equal(t, "Lock one university from your shortlist", d.Violation.NextAction)
}

func TestEvaluate_RequiresLockForApplicationFamily(t *testing.T) {
	d := Evaluate(stage.Application, ApplicationGuidance, selection.Ledger{{UniversityID: "mit"}})
	require.False(t, d.Allowed)
	assert.True(t, errors.Is(d.Violation, shared.ErrPreconditionFailed))
	assert.Equal(t, []string{RemediationFor(stage.Locking)}, d.Violation.RequiredSteps)

	d = Evaluate(stage.Application, ApplicationGuidance, nil)
	require.False(t, d.Allowed)
	assert.Len(t, d.Violation.RequiredSteps, 2)

	d = Evaluate(stage.Application, ApplicationGuidance, selection.Ledger{{UniversityID: "mit", Locked: true}})
	assert.True(t, d.Allowed)

	// recommendations are not application-family
	d = Evaluate(stage.Discovery, UniversityRecommendations, nil)
	assert.True(t, d.Allowed)
}

func TestRequireStage(t *testing.T) {
	assert.True(t, RequireStage(stage.Locking, stage.Discovery, "Shortlisting").Allowed)

	d := RequireStage(stage.Onboarding, stage.Discovery, "Shortlisting")
	require.False(t, d.Allowed)
	assert.Equal(t, []string{RemediationFor(stage.Onboarding), RemediationFor(stage.Analysis)}, d.Violation.RequiredSteps)
	assert.Equal(t, "Shortlisting is available from the DISCOVERY stage.", d.Violation.Reason)
}
