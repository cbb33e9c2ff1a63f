// Package memory is an in-process implementation of the profile, catalog and
// selection stores. It backs local runs and the engine's tests.
//
// Units of work for one user are serialized by a per-user mutex. Each unit of
// work operates on a private copy of the user's ledger state which replaces the
// shared state only when the callback succeeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/abroad-hub/counsellor/internal/domain/profile"
	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/university"
)

// Store holds everything in maps.
type Store struct {
	mu           sync.RWMutex
	users        map[shared.UserID]profile.User
	profiles     map[shared.UserID]profile.Profile
	universities map[shared.UniversityID]university.University
	ledgers      map[shared.UserID]*userState

	locksMu   sync.Mutex
	userLocks map[shared.UserID]*sync.Mutex

	faultsMu sync.Mutex
	faults   map[string]error

	now func() time.Time
}

// userState is everything the ledger owns for one user.
type userState struct {
	entries []selection.LedgerEntry
	tasks   map[shared.UniversityID][]selection.Task
	docs    map[shared.UniversityID][]selection.Document
}

func newUserState() *userState {
	return &userState{
		tasks: make(map[shared.UniversityID][]selection.Task),
		docs:  make(map[shared.UniversityID][]selection.Document),
	}
}

func (s *userState) clone() *userState {
	c := newUserState()
	c.entries = append([]selection.LedgerEntry(nil), s.entries...)
	for id, ts := range s.tasks {
		c.tasks[id] = append([]selection.Task(nil), ts...)
	}
	for id, ds := range s.docs {
		c.docs[id] = append([]selection.Document(nil), ds...)
	}
	return c
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:        make(map[shared.UserID]profile.User),
		profiles:     make(map[shared.UserID]profile.Profile),
		universities: make(map[shared.UniversityID]university.University),
		ledgers:      make(map[shared.UserID]*userState),
		userLocks:    make(map[shared.UserID]*sync.Mutex),
		faults:       make(map[string]error),
		now:          time.Now,
	}
}

// WithClock replaces the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// SEEDING
// ══════════════════════════════════════════════════════════════════════════════

// PutUser stores or replaces a user.
func (s *Store) PutUser(u profile.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutProfile stores or replaces a profile.
func (s *Store) PutProfile(p profile.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

// PutUniversity stores or replaces a catalog entry.
func (s *Store) PutUniversity(u university.University) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.universities[u.ID] = u
}

// ══════════════════════════════════════════════════════════════════════════════
// FAULT INJECTION
// ══════════════════════════════════════════════════════════════════════════════

// FailOn makes every later call of the named transactional operation
// (e.g. "CreateTasks") return err until ClearFaults.
func (s *Store) FailOn(op string, err error) {
	s.faultsMu.Lock()
	defer s.faultsMu.Unlock()
	s.faults[op] = err
}

// ClearFaults removes all injected failures.
func (s *Store) ClearFaults() {
	s.faultsMu.Lock()
	defer s.faultsMu.Unlock()
	s.faults = make(map[string]error)
}

func (s *Store) fault(op string) error {
	s.faultsMu.Lock()
	defer s.faultsMu.Unlock()
	return s.faults[op]
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE STORE
// ══════════════════════════════════════════════════════════════════════════════

// GetUser implements profile.UserRepository.
func (s *Store) GetUser(_ context.Context, id shared.UserID) (*profile.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return &u, nil
}

// GetProfile implements profile.Repository.
func (s *Store) GetProfile(_ context.Context, userID shared.UserID) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	p.PreferredCountries = append([]shared.CountryCode(nil), p.PreferredCountries...)
	return &p, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CANDIDATE STORE
// ══════════════════════════════════════════════════════════════════════════════

// GetUniversity implements university.Repository.
func (s *Store) GetUniversity(_ context.Context, id shared.UniversityID) (*university.University, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.universities[id]
	if !ok {
		return nil, shared.ErrUniversityNotFound
	}
	return &u, nil
}

// ListUniversities implements university.Repository.
func (s *Store) ListUniversities(_ context.Context, filter university.Filter) ([]*university.University, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*university.University, 0, len(s.universities))
	for _, u := range s.universities {
		u := u
		if filter.Matches(&u) {
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SELECTION READER
// ══════════════════════════════════════════════════════════════════════════════

func (s *Store) snapshot(userID shared.UserID) *userState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.ledgers[userID]
	if !ok {
		return newUserState()
	}
	return st.clone()
}

// ListEntries implements selection.Reader.
func (s *Store) ListEntries(_ context.Context, userID shared.UserID) (selection.Ledger, error) {
	return selection.Ledger(s.snapshot(userID).entries), nil
}

// ListTasks implements selection.Reader.
func (s *Store) ListTasks(_ context.Context, userID shared.UserID, universityID shared.UniversityID) ([]selection.Task, error) {
	return s.snapshot(userID).tasks[universityID], nil
}

// ListDocuments implements selection.Reader.
func (s *Store) ListDocuments(_ context.Context, userID shared.UserID, universityID shared.UniversityID) ([]selection.Document, error) {
	return s.snapshot(userID).docs[universityID], nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// ══════════════════════════════════════════════════════════════════════════════

func (s *Store) userLock(userID shared.UserID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.userLocks[userID]
	if !ok {
		m = &sync.Mutex{}
		s.userLocks[userID] = m
	}
	return m
}

// WithinTx implements selection.UnitOfWork.
func (s *Store) WithinTx(ctx context.Context, userID shared.UserID, fn func(tx selection.Tx) error) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{store: s, userID: userID, state: s.snapshot(userID)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := selection.Ledger(tx.state.entries).CheckInvariants(); err != nil {
		return err
	}

	s.mu.Lock()
	s.ledgers[userID] = tx.state
	s.mu.Unlock()
	return nil
}

var (
	_ profile.UserRepository = (*Store)(nil)
	_ profile.Repository     = (*Store)(nil)
	_ university.Repository  = (*Store)(nil)
	_ selection.Store        = (*Store)(nil)
)
