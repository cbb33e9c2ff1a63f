package counsellor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abroad-hub/counsellor/internal/domain/intent"
	"github.com/abroad-hub/counsellor/internal/domain/profile"
	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/stage"
	"github.com/abroad-hub/counsellor/internal/domain/university"
	"github.com/abroad-hub/counsellor/internal/infrastructure/persistence/memory"
	"github.com/abroad-hub/counsellor/pkg/logger/loggertest"
)

const dana shared.UserID = "dana"

func ptr[T any](v T) *T { return &v }

func seedCatalog(s *memory.Store) {
	s.PutUniversity(university.University{
		ID: "stanford", Name: "Stanford University", Country: "US",
		AcceptanceRate: ptr(4.0), Ranking: ptr(3), Tuition: 62000, LanguageRequirement: ptr(7.0),
	})
	s.PutUniversity(university.University{
		ID: "mit", Name: "Massachusetts Institute of Technology", Country: "US",
		AcceptanceRate: ptr(5.0), Ranking: ptr(1), Tuition: 60000, LanguageRequirement: ptr(7.0),
	})
	s.PutUniversity(university.University{
		ID: "tum", Name: "Technical University of Munich", Country: "DE",
		AcceptanceRate: ptr(40.0), Ranking: ptr(30), Tuition: 3000, LanguageRequirement: ptr(6.5),
	})
}

func fullProfile() profile.Profile {
	band := profile.Budget40KTo60K
	return profile.Profile{
		UserID:             dana,
		AcademicBackground: &profile.AcademicBackground{Degree: "BSc", GPA: ptr(3.9)},
		StudyGoals:         &profile.StudyGoals{IntendedDegree: "MSc", FieldOfStudy: "CS"},
		Budget:             &band,
		ExamReadiness: profile.ExamReadiness{
			LanguageTestStatus: profile.TestCompleted,
			LanguageTestScore:  ptr(7.5),
		},
		PreferredCountries: []shared.CountryCode{"DE"},
	}
}

type gateCounter struct{ allowed, blocked int }

func (g *gateCounter) GateDecision(_, _ string, allowed bool) {
	if allowed {
		g.allowed++
	} else {
		g.blocked++
	}
}

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	s := memory.NewStore()
	seedCatalog(s)
	s.PutUser(profile.User{ID: dana, OnboardingCompleted: true})
	s.PutProfile(fullProfile())
	svc := Wire(Stores{Users: s, Profiles: s, Universities: s, Ledger: s}, Options{
		DocumentPolicy: selection.TasksOnLockOnly,
		Logger:         loggertest.New(t),
	})
	return svc, s
}

func currentStage(t *testing.T, svc *Service) stage.Stage {
	t.Helper()
	v, err := svc.GetStage(context.Background(), dana)
	require.NoError(t, err)
	assert.Equal(t, stage.TotalStages, v.TotalStages)
	assert.Equal(t, int(v.Stage), v.StageOrdinal)
	return v.Stage
}

func TestForwardProgressVisitsEveryStageInOrder(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seedCatalog(s)
	svc := Wire(Stores{Users: s, Profiles: s, Universities: s, Ledger: s}, Options{})

	var visited []stage.Stage
	record := func() { visited = append(visited, currentStage(t, svc)) }

	s.PutUser(profile.User{ID: dana})
	record()
	s.PutUser(profile.User{ID: dana, OnboardingCompleted: true})
	record()
	s.PutProfile(fullProfile())
	record()
	_, err := svc.ToggleShortlist(ctx, dana, "tum")
	require.NoError(t, err)
	record()
	res, err := svc.RequestLock(ctx, dana, "Technical University of Munich", "yes")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
	record()

	assert.Equal(t, stage.All(), visited)
}

func TestIncompleteProfileStaysInAnalysis(t *testing.T) {
	svc, s := newService(t)
	p := fullProfile()
	p.AcademicBackground = nil
	s.PutProfile(p)

	assert.Equal(t, stage.Analysis, currentStage(t, svc))
}

func TestSwitchingLockKeepsOneLockedAndOneTaskSet(t *testing.T) {
	ctx := context.Background()
	svc, s := newService(t)

	res, err := svc.RequestLock(ctx, dana, "Stanford", "yes")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)

	res, err = svc.RequestLock(ctx, dana, "MIT", "yes please")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status, res.Text)
	assert.True(t, res.Lock.Switched())
	assert.Equal(t, stage.Application, res.Stage)

	ledger, err := s.ListEntries(ctx, dana)
	require.NoError(t, err)
	stanford, ok := ledger.Find("stanford")
	require.True(t, ok)
	assert.False(t, stanford.Locked)
	mit, ok := ledger.Find("mit")
	require.True(t, ok)
	assert.True(t, mit.Locked)

	tasks, err := s.ListTasks(ctx, dana, "mit")
	require.NoError(t, err)
	assert.Len(t, tasks, selection.TaskTemplateCount())

	// Stanford's rows are orphaned by the switch until purged.
	purged, err := svc.PurgeOrphanedRecords(ctx, dana)
	require.NoError(t, err)
	assert.Equal(t, selection.TaskTemplateCount(), purged.TasksDeleted)
	tasks, err = s.ListTasks(ctx, dana, "stanford")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestCasualMessageIgnoresStage(t *testing.T) {
	ctx := context.Background()
	svc, s := newService(t)

	for _, u := range []profile.User{{ID: dana}, {ID: dana, OnboardingCompleted: true}} {
		s.PutUser(u)
		resp, err := svc.HandleMessage(ctx, dana, "hello, how are you?")
		require.NoError(t, err)
		assert.Equal(t, intent.Casual, resp.Intent)
		assert.Equal(t, SystemIdentity, resp.Text)
		assert.Nil(t, resp.Violation)
	}
}

func TestUnlockRegressesStageAndBlocksApplicationIntents(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	gate := &gateCounter{}
	svc.gate = gate

	_, err := svc.RequestLock(ctx, dana, "Stanford", "yes")
	require.NoError(t, err)
	_, err = svc.RequestLock(ctx, dana, "MIT", "yes")
	require.NoError(t, err)

	resp, err := svc.HandleMessage(ctx, dana, "help me with my application")
	require.NoError(t, err)
	assert.Nil(t, resp.Violation)
	assert.Contains(t, resp.Text, "Massachusetts Institute of Technology")

	res, err := svc.RequestUnlock(ctx, dana, "MIT", "yes")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, stage.Locking, currentStage(t, svc))

	resp, err = svc.HandleMessage(ctx, dana, "help me with my application")
	require.NoError(t, err)
	assert.Equal(t, intent.ApplicationGuidance, resp.Intent)
	require.NotNil(t, resp.Violation)
	assert.ErrorIs(t, resp.Violation, shared.ErrPreconditionFailed)
	assert.Equal(t, "Lock one university from your shortlist", resp.Violation.NextAction)
	assert.Equal(t, 1, gate.allowed)
	assert.Equal(t, 1, gate.blocked)
}

func TestHandleMessage_BlockedBeforeProfileIsComplete(t *testing.T) {
	svc, s := newService(t)
	s.PutProfile(profile.Profile{UserID: dana})

	resp, err := svc.HandleMessage(context.Background(), dana, "Can you recommend universities?")
	require.NoError(t, err)
	assert.Equal(t, intent.UniversityRecommendations, resp.Intent)
	require.NotNil(t, resp.Violation)
	assert.Equal(t, stage.Analysis, resp.Stage)
	assert.Equal(t, []string{
		"Complete your profile: academic background, study goals and budget",
	}, resp.Violation.RequiredSteps)
	assert.Contains(t, resp.Text, "Next: Complete your profile")
}

func TestHandleMessage_Recommendations(t *testing.T) {
	svc, _ := newService(t)

	resp, err := svc.HandleMessage(context.Background(), dana, "which universities should I apply to? recommend some")
	require.NoError(t, err)
	assert.Equal(t, intent.UniversityRecommendations, resp.Intent)
	assert.Nil(t, resp.Violation)
	assert.Contains(t, resp.Text, "Technical University of Munich")
}

func TestHandleMessage_ComparisonAndFallback(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	resp, err := svc.HandleMessage(ctx, dana, "compare my universities")
	require.NoError(t, err)
	assert.Equal(t, intent.Comparison, resp.Intent)
	assert.Contains(t, resp.Text, "at least two")

	for _, id := range []shared.UniversityID{"mit", "tum"} {
		_, err := svc.ToggleShortlist(ctx, dana, id)
		require.NoError(t, err)
	}
	resp, err = svc.HandleMessage(ctx, dana, "compare my universities")
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "Massachusetts Institute of Technology: target")
	assert.Contains(t, resp.Text, "ranked #30")

	resp, err = svc.HandleMessage(ctx, dana, "blue")
	require.NoError(t, err)
	assert.Empty(t, resp.Intent)
	assert.Contains(t, resp.Text, "LOCKING stage (4 of 5)")
}

func TestRequestLock_Confirmation(t *testing.T) {
	ctx := context.Background()
	svc, s := newService(t)

	_, err := svc.RequestLock(ctx, dana, "MIT", "hmm, maybe")
	assert.True(t, shared.IsAmbiguousConfirmation(err))

	res, err := svc.RequestLock(ctx, dana, "MIT", "no")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, res.Status)

	ledger, err := s.ListEntries(ctx, dana)
	require.NoError(t, err)
	assert.Empty(t, ledger)
}

func TestRequestLock_UnknownNameSuggestsSpelling(t *testing.T) {
	svc, _ := newService(t)

	res, err := svc.RequestLock(context.Background(), dana, "Stanfrod Univercity", "yes")
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Contains(t, res.Text, "please check the spelling")
}

func TestRequestLock_BlockedInAnalysis(t *testing.T) {
	svc, s := newService(t)
	s.PutProfile(profile.Profile{UserID: dana})

	res, err := svc.RequestLock(context.Background(), dana, "MIT", "yes")
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, res.Status)
	require.NotNil(t, res.Violation)
	assert.Equal(t, stage.Analysis, res.Violation.Stage)
}

func TestRequestUnlock_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	res, err := svc.RequestUnlock(ctx, dana, "MIT", "yes")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, res.Status)
	assert.Contains(t, res.Text, "not on your shortlist")

	_, err = svc.ToggleShortlist(ctx, dana, "mit")
	require.NoError(t, err)
	res, err = svc.RequestUnlock(ctx, dana, "MIT", "yes")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, res.Status)
	assert.Contains(t, res.Text, "not locked")
}
