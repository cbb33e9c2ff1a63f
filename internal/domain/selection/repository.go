package selection

import (
	"context"

	"github.com/abroad-hub/counsellor/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// Reader reads ledger state outside of a transaction.
type Reader interface {
	// ListEntries returns the user's ledger in creation order.
	ListEntries(ctx context.Context, userID shared.UserID) (Ledger, error)

	// ListTasks returns tasks for a pair ordered by position.
	ListTasks(ctx context.Context, userID shared.UserID, universityID shared.UniversityID) ([]Task, error)

	// ListDocuments returns documents for a pair ordered by position.
	ListDocuments(ctx context.Context, userID shared.UserID, universityID shared.UniversityID) ([]Document, error)
}

// Tx is the set of ledger mutations available inside a unit of work.
// Every method is scoped to the user the unit of work was opened for.
type Tx interface {
	// Entries returns the user's ledger as seen by this transaction.
	Entries(ctx context.Context) (Ledger, error)

	// UpsertEntry creates the entry if absent. Reports whether it was created.
	UpsertEntry(ctx context.Context, universityID shared.UniversityID) (bool, error)

	// DeleteEntry removes the entry. Returns shared.ErrEntryNotFound if absent.
	DeleteEntry(ctx context.Context, universityID shared.UniversityID) error

	// SetLocked flips the locked flag. Returns shared.ErrEntryNotFound if absent.
	SetLocked(ctx context.Context, universityID shared.UniversityID, locked bool) error

	// UnlockAll clears every locked flag and returns the previously locked IDs.
	UnlockAll(ctx context.Context) ([]shared.UniversityID, error)

	CountTasks(ctx context.Context, universityID shared.UniversityID) (int, error)
	CreateTasks(ctx context.Context, tasks []Task) error
	DeleteTasks(ctx context.Context, universityID shared.UniversityID) (int, error)

	CountDocuments(ctx context.Context, universityID shared.UniversityID) (int, error)
	CreateDocuments(ctx context.Context, docs []Document) error
	DeleteDocuments(ctx context.Context, universityID shared.UniversityID) (int, error)

	// UniversitiesWithRecords lists universities that have any task or
	// document rows for the user.
	UniversitiesWithRecords(ctx context.Context) ([]shared.UniversityID, error)
}

// UnitOfWork runs fn atomically for one user. Concurrent units of work for the
// same user are serialized. If fn returns an error nothing is committed.
type UnitOfWork interface {
	WithinTx(ctx context.Context, userID shared.UserID, fn func(tx Tx) error) error
}

// Store combines read access with the unit of work.
type Store interface {
	Reader
	UnitOfWork
}
