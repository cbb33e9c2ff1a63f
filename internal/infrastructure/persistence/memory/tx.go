package memory

import (
	"context"
	"sort"

	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
)

// memTx mutates a private copy of one user's state.
type memTx struct {
	store  *Store
	userID shared.UserID
	state  *userState
}

func (t *memTx) Entries(_ context.Context) (selection.Ledger, error) {
	if err := t.store.fault("Entries"); err != nil {
		return nil, err
	}
	return append(selection.Ledger(nil), t.state.entries...), nil
}

func (t *memTx) index(universityID shared.UniversityID) int {
	for i, e := range t.state.entries {
		if e.UniversityID == universityID {
			return i
		}
	}
	return -1
}

func (t *memTx) UpsertEntry(_ context.Context, universityID shared.UniversityID) (bool, error) {
	if err := t.store.fault("UpsertEntry"); err != nil {
		return false, err
	}
	if t.index(universityID) >= 0 {
		return false, nil
	}
	now := t.store.now()
	t.state.entries = append(t.state.entries, selection.LedgerEntry{
		UserID:       t.userID,
		UniversityID: universityID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	return true, nil
}

func (t *memTx) DeleteEntry(_ context.Context, universityID shared.UniversityID) error {
	if err := t.store.fault("DeleteEntry"); err != nil {
		return err
	}
	i := t.index(universityID)
	if i < 0 {
		return shared.ErrEntryNotFound
	}
	t.state.entries = append(t.state.entries[:i], t.state.entries[i+1:]...)
	return nil
}

func (t *memTx) SetLocked(_ context.Context, universityID shared.UniversityID, locked bool) error {
	if err := t.store.fault("SetLocked"); err != nil {
		return err
	}
	i := t.index(universityID)
	if i < 0 {
		return shared.ErrEntryNotFound
	}
	t.state.entries[i].Locked = locked
	t.state.entries[i].UpdatedAt = t.store.now()
	return nil
}

func (t *memTx) UnlockAll(_ context.Context) ([]shared.UniversityID, error) {
	if err := t.store.fault("UnlockAll"); err != nil {
		return nil, err
	}
	var previous []shared.UniversityID
	for i := range t.state.entries {
		if t.state.entries[i].Locked {
			previous = append(previous, t.state.entries[i].UniversityID)
			t.state.entries[i].Locked = false
			t.state.entries[i].UpdatedAt = t.store.now()
		}
	}
	return previous, nil
}

func (t *memTx) CountTasks(_ context.Context, universityID shared.UniversityID) (int, error) {
	if err := t.store.fault("CountTasks"); err != nil {
		return 0, err
	}
	return len(t.state.tasks[universityID]), nil
}

// CreateTasks appends rows one at a time so an injected "CreateTask" fault
// leaves a partial set inside the transaction, as a real driver would.
func (t *memTx) CreateTasks(_ context.Context, tasks []selection.Task) error {
	if err := t.store.fault("CreateTasks"); err != nil {
		return err
	}
	for _, task := range tasks {
		if err := t.store.fault("CreateTask"); err != nil && task.Position > 1 {
			return err
		}
		t.state.tasks[task.UniversityID] = append(t.state.tasks[task.UniversityID], task)
	}
	return nil
}

func (t *memTx) DeleteTasks(_ context.Context, universityID shared.UniversityID) (int, error) {
	if err := t.store.fault("DeleteTasks"); err != nil {
		return 0, err
	}
	n := len(t.state.tasks[universityID])
	delete(t.state.tasks, universityID)
	return n, nil
}

func (t *memTx) CountDocuments(_ context.Context, universityID shared.UniversityID) (int, error) {
	if err := t.store.fault("CountDocuments"); err != nil {
		return 0, err
	}
	return len(t.state.docs[universityID]), nil
}

func (t *memTx) CreateDocuments(_ context.Context, docs []selection.Document) error {
	if err := t.store.fault("CreateDocuments"); err != nil {
		return err
	}
	for _, d := range docs {
		t.state.docs[d.UniversityID] = append(t.state.docs[d.UniversityID], d)
	}
	return nil
}

func (t *memTx) DeleteDocuments(_ context.Context, universityID shared.UniversityID) (int, error) {
	if err := t.store.fault("DeleteDocuments"); err != nil {
		return 0, err
	}
	n := len(t.state.docs[universityID])
	delete(t.state.docs, universityID)
	return n, nil
}

func (t *memTx) UniversitiesWithRecords(_ context.Context) ([]shared.UniversityID, error) {
	seen := make(map[shared.UniversityID]struct{})
	for id, ts := range t.state.tasks {
		if len(ts) > 0 {
			seen[id] = struct{}{}
		}
	}
	for id, ds := range t.state.docs {
		if len(ds) > 0 {
			seen[id] = struct{}{}
		}
	}
	out := make([]shared.UniversityID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
