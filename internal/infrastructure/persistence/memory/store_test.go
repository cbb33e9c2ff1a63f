package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/university"
)

const user shared.UserID = "u1"

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.WithinTx(ctx, user, func(tx selection.Tx) error {
		created, err := tx.UpsertEntry(ctx, "mit")
		require.NoError(t, err)
		assert.True(t, created)
		return tx.SetLocked(ctx, "mit", true)
	})
	require.NoError(t, err)

	ledger, err := s.ListEntries(ctx, user)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.True(t, ledger[0].Locked)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, user, func(tx selection.Tx) error {
		_, _ = tx.UpsertEntry(ctx, "mit")
		_ = tx.CreateTasks(ctx, selection.NewTaskChecklist(user, "mit", s.now()))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	ledger, _ := s.ListEntries(ctx, user)
	assert.Empty(t, ledger)
	tasks, _ := s.ListTasks(ctx, user, "mit")
	assert.Empty(t, tasks)
}

func TestWithinTx_RejectsTwoLockedRows(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.WithinTx(ctx, user, func(tx selection.Tx) error {
		for _, id := range []shared.UniversityID{"a", "b"} {
			if _, err := tx.UpsertEntry(ctx, id); err != nil {
				return err
			}
			if err := tx.SetLocked(ctx, id, true); err != nil {
				return err
			}
		}
		return nil
	})
	assert.True(t, shared.IsInvariantViolation(err))

	ledger, _ := s.ListEntries(ctx, user)
	assert.Empty(t, ledger)
}

func TestFailOn_PartialTaskInsertIsDiscarded(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	boom := errors.New("disk full")
	s.FailOn("CreateTask", boom)

	err := s.WithinTx(ctx, user, func(tx selection.Tx) error {
		if _, err := tx.UpsertEntry(ctx, "mit"); err != nil {
			return err
		}
		return tx.CreateTasks(ctx, selection.NewTaskChecklist(user, "mit", s.now()))
	})
	assert.ErrorIs(t, err, boom)

	tasks, _ := s.ListTasks(ctx, user, "mit")
	assert.Empty(t, tasks)

	s.ClearFaults()
	assert.NoError(t, s.WithinTx(ctx, user, func(tx selection.Tx) error { return nil }))
}

func TestWithinTx_SerializesPerUser(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := shared.UniversityID([]string{"a", "b", "c", "d"}[i%4])
			_ = s.WithinTx(ctx, user, func(tx selection.Tx) error {
				if _, err := tx.UnlockAll(ctx); err != nil {
					return err
				}
				if _, err := tx.UpsertEntry(ctx, id); err != nil {
					return err
				}
				return tx.SetLocked(ctx, id, true)
			})
		}(i)
	}
	wg.Wait()

	ledger, _ := s.ListEntries(ctx, user)
	assert.Equal(t, 1, ledger.LockedCount())
	assert.Len(t, ledger, 4)
}

func TestListUniversities_SortedAndFiltered(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.PutUniversity(university.University{ID: "b", Name: "Beta", Country: "DE"})
	s.PutUniversity(university.University{ID: "a", Name: "Alpha", Country: "US"})
	s.PutUniversity(university.University{ID: "c", Name: "Gamma", Country: "DE"})

	all, err := s.ListUniversities(ctx, university.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Alpha", all[0].Name)

	de, err := s.ListUniversities(ctx, university.Filter{Countries: []shared.CountryCode{"DE"}})
	require.NoError(t, err)
	assert.Len(t, de, 2)

	_, err = s.GetUniversity(ctx, "missing")
	assert.True(t, shared.IsNotFound(err))
}
