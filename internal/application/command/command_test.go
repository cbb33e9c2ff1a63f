package command

import (
	"context"
	"errors"
	"sync"
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
	"github.com/abroad-hub/counsellor/pkg/retry"
)

const (
	alice shared.UserID       = "alice"
	mit   shared.UniversityID = "mit"
	eth   shared.UniversityID = "eth"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturePublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type countingRecorder struct {
	mu      sync.Mutex
	ops     map[string]int
	retries int
}

func (r *countingRecorder) LedgerOperation(op string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = make(map[string]int)
	}
	r.ops[op]++
}

func (r *countingRecorder) LedgerRetry() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries++
}

type fixture struct {
	store     *memory.Store
	publisher *capturePublisher
	recorder  *countingRecorder
	runner    *TxRunner
	source    StageSource
	lock      *LockUniversityHandler
	unlock    *UnlockUniversityHandler
	toggle    *ToggleShortlistHandler
	generate  *GenerateTasksHandler
}

func completeProfile(userID shared.UserID) profile.Profile {
	band := profile.Budget40KTo60K
	gpa := 3.6
	return profile.Profile{
		UserID:             userID,
		AcademicBackground: &profile.AcademicBackground{Degree: "BSc", GPA: &gpa},
		StudyGoals:         &profile.StudyGoals{IntendedDegree: "MSc", FieldOfStudy: "CS"},
		Budget:             &band,
	}
}

func newFixture(t *testing.T, policy selection.DocumentPolicy) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.PutUser(profile.User{ID: alice, OnboardingCompleted: true})
	store.PutProfile(completeProfile(alice))
	store.PutUniversity(university.University{ID: mit, Name: "MIT", Country: "US", Tuition: 55000})
	store.PutUniversity(university.University{ID: eth, Name: "ETH Zurich", Country: "CH", Tuition: 1500})

	f := &fixture{
		store:     store,
		publisher: &capturePublisher{},
		recorder:  &countingRecorder{},
	}
	log := loggertest.New(t)
	f.runner = NewTxRunner(store,
		WithPublisher(f.publisher),
		WithRecorder(f.recorder),
		WithLogger(log),
	)
	f.source = StageSource{Users: store, Profiles: store}
	f.lock = NewLockUniversityHandler(f.source, store, f.runner, policy, log)
	f.unlock = NewUnlockUniversityHandler(f.runner, log)
	f.toggle = NewToggleShortlistHandler(f.source, store, f.runner, log)
	f.generate = NewGenerateTasksHandler(f.runner, log)
	return f
}

func (f *fixture) ledger(t *testing.T) selection.Ledger {
	t.Helper()
	l, err := f.store.ListEntries(context.Background(), alice)
	require.NoError(t, err)
	return l
}

func (f *fixture) counts(t *testing.T, id shared.UniversityID) (tasks, docs int) {
	t.Helper()
	ctx := context.Background()
	ts, err := f.store.ListTasks(ctx, alice, id)
	require.NoError(t, err)
	ds, err := f.store.ListDocuments(ctx, alice, id)
	require.NoError(t, err)
	return len(ts), len(ds)
}

// ══════════════════════════════════════════════════════════════════════════════
// LOCK
// ══════════════════════════════════════════════════════════════════════════════

func TestLock_CreatesEntryTasksAndDocuments(t *testing.T) {
	f := newFixture(t, selection.TasksOnLockOnly)

	res, err := f.lock.Handle(context.Background(), LockUniversityCommand{UserID: alice, UniversityID: mit})
	require.NoError(t, err)

	assert.True(t, res.ShortlistCreated)
	assert.Equal(t, selection.TaskTemplateCount(), res.TasksCreated)
	assert.Equal(t, selection.DocumentTemplateCount(), res.DocumentsCreated)
	assert.False(t, res.Switched())

	locked, ok := f.ledger(t).Locked()
	require.True(t, ok)
	assert.Equal(t, mit, locked.UniversityID)

	tasks, docs := f.counts(t, mit)
	assert.Equal(t, selection.TaskTemplateCount(), tasks)
	assert.Equal(t, selection.DocumentTemplateCount(), docs)

	assert.Equal(t, []shared.EventType{shared.EventShortlistAdded, shared.EventUniversityLocked}, f.publisher.types())
	assert.Equal(t, 1, f.recorder.ops["lock"])
}

func TestLock_SwitchKeepsExactlyOneLocked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, selection.TasksOnLockOnly)

	_, err := f.lock.Handle(ctx, LockUniversityCommand{UserID: alice, UniversityID: mit})
	require.NoError(t, err)
	res, err := f.lock.Handle(ctx, LockUniversityCommand{UserID: alice, UniversityID: eth})
	require.NoError(t, err)

	assert.Equal(t, mit, res.PreviousLocked)
	assert.True(t, res.Switched())

	ledger := f.ledger(t)
	assert.Equal(t, 1, ledger.LockedCount())
	locked, _ := ledger.Locked()
	assert.Equal(t, eth, locked.UniversityID)
	assert.True(t, ledger.IsShortlisted(mit), "previous lock stays on the shortlist")
}

func TestLock_RelockDoesNotDuplicateTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, selection.TasksOnLockOnly)

	_, err := f.lock.Handle(ctx, LockUniversityCommand{UserID: alice, UniversityID: mit})
	require.NoError(t, err)
	_, err = f.unlock.Handle(ctx, UnlockUniversityCommand{UserID: alice, UniversityID: mit})
	require.NoError(t, err)

	res, err := f.lock.Handle(ctx, LockUniversityCommand{UserID: alice, UniversityID: mit})
	require.NoError(t, err)
	assert.True(t, res.TasksAlreadyExisted)
	assert.Zero(t, res.TasksCreated)
	assert.Zero(t, res.DocumentsCreated)

	tasks, docs := f.counts(t, mit)
	assert.Equal(t, selection.TaskTemplateCount(), tasks)
	assert.Equal(t, selection.DocumentTemplateCount(), docs)
}

func TestLock_FailedSwitchRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, selection.TasksOnLockOnly)

	_, err := f.lock.Handle(ctx, LockUniversityCommand{UserID: alice, UniversityID: mit})
	require.NoError(t, err)

	boom := errors.New("disk full")
	f.store.FailOn("CreateTask", boom)
	_, err = f.lock.Handle(ctx, LockUniversityCommand{UserID: alice, UniversityID: eth})
	require.ErrorIs(t, err, boom)
	f.store.ClearFaults()

	ledger := f.ledger(t)
	locked, ok := ledger.Locked()
	require.True(t, ok)
	assert.Equal(t, mit, locked.UniversityID)
	assert.False(t, ledger.IsShortlisted(eth))

	tasks, docs := f.counts(t, eth)
	assert.Zero(t, tasks)
	assert.Zero(t, docs)
	assert.Len(t, f.publisher.types(), 2, "no events for the failed switch")
}

func TestLock_BlockedBeforeDiscovery(t *testing.T) {
	f := newFixture(t, selection.TasksOnLockOnly)
	f.store.PutProfile(profile.Profile{UserID: alice})

	_, err := f.lock.Handle(context.Background(), LockUniversityCommand{UserID: alice, UniversityID: mit})
	require.Error(t, err)
	assert.True(t, shared.IsPreconditionFailed(err))

	var v *intent.Violation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, stage.Analysis, v.Stage)
	assert.NotEmpty(t, v.NextAction)
	assert.Empty(t, f.ledger(t))
}

func TestLock_UnknownUniversity(t *testing.T) {
	f := newFixture(t, selection.TasksOnLockOnly)

	_, err := f.lock.Handle(context.Background(), LockUniversityCommand{UserID: alice, UniversityID: "nowhere"})
	assert.True(t, shared.IsNotFound(err))
}

func TestLock_Validation(t *testing.T) {
	f := newFixture(t, selection.TasksOnLockOnly)

	_, err := f.lock.Handle(context.Background(), LockUniversityCommand{UserID: alice})
	assert.True(t, shared.IsValidation(err))
}

func TestLock_ConcurrentRequestsKeepOneLock(t *testing.T) {
	f := newFixture(t, selection.TasksOnLockOnly)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := mit
			if i%2 == 0 {
				id = eth
			}
			_, err := f.lock.Handle(ctx, LockUniversityCommand{UserID: alice, UniversityID: id})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	ledger := f.ledger(t)
	assert.Equal(t, 1, ledger.LockedCount())
	assert.Len(t, ledger, 2)
}

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK
// ══════════════════════════════════════════════════════════════════════════════

func TestUnlock_KeepsTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, selection.TasksOnLockOnly)
	_, err := f.lock.Handle(ctx, LockUniversityCommand{UserID: alice, UniversityID: mit})
	require.NoError(t, err)

	res, err := f.unlock.Handle(ctx, UnlockUniversityCommand{UserID: alice, UniversityID: mit})
	require.NoError(t, err)
	assert.Equal(t, selection.TaskTemplateCount(), res.TasksKept)

	ledger := f.ledger(t)
	assert.False(t, ledger.HasLocked())
	assert.True(t, ledger.IsShortlisted(mit))
	assert.Equal(t, stage.Locking, stage.Infer(&profile.User{OnboardingCompleted: true}, ptrProfile(completeProfile(alice)), ledger))
}

func TestUnlock_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, selection.TasksOnLockOnly)

	_, err := f.unlock.Handle(ctx, UnlockUniversityCommand{UserID: alice, UniversityID: mit})
	assert.True(t, shared.IsNotFound(err))

	_, err = f.toggle.Handle(ctx, ToggleShortlistCommand{UserID: alice, UniversityID: mit})
	require.NoError(t, err)
	_, err = f.unlock.Handle(ctx, UnlockUniversityCommand{UserID: alice, UniversityID: mit})
	assert.True(t, shared.IsPreconditionFailed(err))
	assert.ErrorIs(t, err, shared.ErrEntryNotLocked)
}

func ptrProfile(p profile.Profile) *profile.Profile { return &p }

// ══════════════════════════════════════════════════════════════════════════════
// SHORTLIST
// ══════════════════════════════════════════════════════════════════════════════

func TestToggle_AddCreatesNoRecords(t *testing.T) {
	f := newFixture(t, selection.TasksOnLockOnly)

	res, err := f.toggle.Handle(context.Background(), ToggleShortlistCommand{UserID: alice, UniversityID: eth})
	require.NoError(t, err)
	assert.True(t, res.Shortlisted)

	assert.True(t, f.ledger(t).IsShortlisted(eth))
	tasks, docs := f.counts(t, eth)
	assert.Zero(t, tasks)
	assert.Zero(t, docs)
}

func TestToggle_RemovingLockedUniversityCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, selection.TasksOnLockOnly)
	_, err := f.lock.Handle(ctx, LockUniversityCommand{UserID: alice, UniversityID: mit})
	require.NoError(t, err)

	res, err := f.toggle.Handle(ctx, ToggleShortlistCommand{UserID: alice, UniversityID: mit})
	require.NoError(t, err)
	assert.False(t, res.Shortlisted)
	assert.True(t, res.WasLocked)
	assert.Equal(t, selection.TaskTemplateCount(), res.TasksDeleted)
	assert.Equal(t, selection.DocumentTemplateCount(), res.DocumentsDeleted)

	assert.Empty(t, f.ledger(t))
	tasks, docs := f.counts(t, mit)
	assert.Zero(t, tasks)
	assert.Zero(t, docs)
}

func TestToggle_AddBlockedInAnalysisButRemovalAllowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, selection.TasksOnLockOnly)
	_, err := f.toggle.Handle(ctx, ToggleShortlistCommand{UserID: alice, UniversityID: mit})
	require.NoError(t, err)

	f.store.PutProfile(profile.Profile{UserID: alice})

	_, err = f.toggle.Handle(ctx, ToggleShortlistCommand{UserID: alice, UniversityID: eth})
	var v *intent.Violation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, stage.Analysis, v.Stage)

	res, err := f.toggle.Handle(ctx, ToggleShortlistCommand{UserID: alice, UniversityID: mit})
	require.NoError(t, err)
	assert.False(t, res.Shortlisted)
}

// ══════════════════════════════════════════════════════════════════════════════
// GENERATE TASKS
// ══════════════════════════════════════════════════════════════════════════════

func TestGenerateTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, selection.TasksOnLockOnly)

	_, err := f.generate.Handle(ctx, GenerateTasksCommand{UserID: alice, UniversityID: mit})
	assert.ErrorIs(t, err, shared.ErrTasksRequireLock)

	// Locked without the cascade, as after a manual cleanup.
	require.NoError(t, f.store.WithinTx(ctx, alice, func(tx selection.Tx) error {
		if _, err := tx.UpsertEntry(ctx, mit); err != nil {
			return err
		}
		return tx.SetLocked(ctx, mit, true)
	}))

	res, err := f.generate.Handle(ctx, GenerateTasksCommand{UserID: alice, UniversityID: mit})
	require.NoError(t, err)
	require.Len(t, res.Tasks, selection.TaskTemplateCount())
	for i, task := range res.Tasks {
		assert.Equal(t, i+1, task.Position)
	}

	_, err = f.generate.Handle(ctx, GenerateTasksCommand{UserID: alice, UniversityID: mit})
	assert.True(t, shared.IsAlreadyExists(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// DOCUMENT SYNC AND PURGE
// ══════════════════════════════════════════════════════════════════════════════

func TestSyncShortlistDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("requires the shortlist policy", func(t *testing.T) {
		f := newFixture(t, selection.TasksOnLockOnly)
		h := NewSyncShortlistDocumentsHandler(f.runner, selection.TasksOnLockOnly, nil)
		_, err := h.Handle(ctx, SyncShortlistDocumentsCommand{UserID: alice})
		assert.True(t, shared.IsPreconditionFailed(err))
	})

	t.Run("creates missing documents once", func(t *testing.T) {
		f := newFixture(t, selection.DocumentsOnShortlist)
		h := NewSyncShortlistDocumentsHandler(f.runner, selection.DocumentsOnShortlist, nil)
		for _, id := range []shared.UniversityID{mit, eth} {
			_, err := f.toggle.Handle(ctx, ToggleShortlistCommand{UserID: alice, UniversityID: id})
			require.NoError(t, err)
		}

		res, err := h.Handle(ctx, SyncShortlistDocumentsCommand{UserID: alice})
		require.NoError(t, err)
		assert.Equal(t, 2*selection.DocumentTemplateCount(), res.Total())

		res, err = h.Handle(ctx, SyncShortlistDocumentsCommand{UserID: alice})
		require.NoError(t, err)
		assert.Zero(t, res.Total())

		_, docs := f.counts(t, eth)
		assert.Equal(t, selection.DocumentTemplateCount(), docs)
	})
}

func TestPurgeOrphans(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		policy       selection.DocumentPolicy
		wantDocsLeft int
	}{
		{name: "tasks on lock only", policy: selection.TasksOnLockOnly, wantDocsLeft: 0},
		{name: "documents on shortlist", policy: selection.DocumentsOnShortlist, wantDocsLeft: selection.DocumentTemplateCount()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.policy)
			_, err := f.lock.Handle(ctx, LockUniversityCommand{UserID: alice, UniversityID: mit})
			require.NoError(t, err)
			_, err = f.unlock.Handle(ctx, UnlockUniversityCommand{UserID: alice, UniversityID: mit})
			require.NoError(t, err)

			h := NewPurgeOrphansHandler(f.runner, tt.policy, nil)
			res, err := h.Handle(ctx, PurgeOrphansCommand{UserID: alice})
			require.NoError(t, err)
			assert.Equal(t, selection.TaskTemplateCount(), res.TasksDeleted)
			assert.Equal(t, []shared.UniversityID{mit}, res.Universities)

			tasks, docs := f.counts(t, mit)
			assert.Zero(t, tasks)
			assert.Equal(t, tt.wantDocsLeft, docs)
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RUNNER
// ══════════════════════════════════════════════════════════════════════════════

// flakyUnitOfWork loses the first n serialization races.
type flakyUnitOfWork struct {
	selection.UnitOfWork
	mu    sync.Mutex
	fails int
}

func (u *flakyUnitOfWork) WithinTx(ctx context.Context, userID shared.UserID, fn func(tx selection.Tx) error) error {
	u.mu.Lock()
	if u.fails > 0 {
		u.fails--
		u.mu.Unlock()
		return shared.ErrConcurrentModification
	}
	u.mu.Unlock()
	return u.UnitOfWork.WithinTx(ctx, userID, fn)
}

func TestTxRunner_RetriesSerializationFailures(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	rec := &countingRecorder{}

	runner := NewTxRunner(&flakyUnitOfWork{UnitOfWork: store, fails: 2},
		WithRecorder(rec), WithMaxAttempts(3))
	err := runner.Run(ctx, "test", alice, func(tx selection.Tx) error {
		_, err := tx.UpsertEntry(ctx, mit)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.retries)

	runner = NewTxRunner(&flakyUnitOfWork{UnitOfWork: store, fails: 5}, WithMaxAttempts(2))
	err = runner.Run(ctx, "test", alice, func(selection.Tx) error { return nil })
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)
	assert.False(t, retry.IsRetryable(err))
}

func TestTxRunner_DoesNotRetryDomainErrors(t *testing.T) {
	ctx := context.Background()
	rec := &countingRecorder{}
	runner := NewTxRunner(memory.NewStore(), WithRecorder(rec))

	calls := 0
	err := runner.Run(ctx, "test", alice, func(selection.Tx) error {
		calls++
		return shared.ErrEntryNotFound
	})
	assert.True(t, shared.IsNotFound(err))
	assert.Equal(t, 1, calls)
	assert.Zero(t, rec.retries)
}
