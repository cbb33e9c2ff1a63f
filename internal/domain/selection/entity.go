// Package selection contains the per-user selection ledger (shortlist + lock)
// and the dependent application records derived from it.
package selection

import (
	"strings"
	"time"

	"github.com/abroad-hub/counsellor/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// LedgerEntry is a (user, university) row. Existence means shortlisted.
type LedgerEntry struct {
	UserID       shared.UserID
	UniversityID shared.UniversityID
	Locked       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ledger is the full set of entries for one user.
type Ledger []LedgerEntry

// Locked returns the locked entry, if any.
func (l Ledger) Locked() (LedgerEntry, bool) {
	for _, e := range l {
		if e.Locked {
			return e, true
		}
	}
	return LedgerEntry{}, false
}

// HasLocked reports whether any entry is locked.
func (l Ledger) HasLocked() bool {
	_, ok := l.Locked()
	return ok
}

// LockedCount counts locked entries. Anything above one is a broken ledger.
func (l Ledger) LockedCount() int {
	n := 0
	for _, e := range l {
		if e.Locked {
			n++
		}
	}
	return n
}

// Find returns the entry for a university.
func (l Ledger) Find(id shared.UniversityID) (LedgerEntry, bool) {
	for _, e := range l {
		if e.UniversityID == id {
			return e, true
		}
	}
	return LedgerEntry{}, false
}

// IsShortlisted reports whether the university has an entry.
func (l Ledger) IsShortlisted(id shared.UniversityID) bool {
	_, ok := l.Find(id)
	return ok
}

// UniversityIDs returns the shortlisted university IDs in ledger order.
func (l Ledger) UniversityIDs() []shared.UniversityID {
	ids := make([]shared.UniversityID, 0, len(l))
	for _, e := range l {
		ids = append(ids, e.UniversityID)
	}
	return ids
}

// CheckInvariants verifies that at most one entry is locked.
func (l Ledger) CheckInvariants() error {
	if l.LockedCount() > 1 {
		return shared.ErrMultipleLocked
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOCUMENT POLICY
// ══════════════════════════════════════════════════════════════════════════════

// DocumentPolicy decides when document checklist rows may exist.
type DocumentPolicy string

const (
	// DocumentsOnShortlist keeps a document checklist for every shortlisted
	// university. Documents require a ledger entry, not a lock.
	DocumentsOnShortlist DocumentPolicy = "DOCUMENTS_ON_SHORTLIST"

	// TasksOnLockOnly creates documents together with tasks when a university
	// is locked. Documents require the lock.
	TasksOnLockOnly DocumentPolicy = "TASKS_ON_LOCK_ONLY"
)

// DefaultDocumentPolicy is used when nothing is configured.
const DefaultDocumentPolicy = TasksOnLockOnly

// IsValid checks the policy value.
func (p DocumentPolicy) IsValid() bool {
	return p == DocumentsOnShortlist || p == TasksOnLockOnly
}

// ParseDocumentPolicy parses a configured policy name, case-insensitively.
func ParseDocumentPolicy(s string) (DocumentPolicy, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultDocumentPolicy, nil
	}
	p := DocumentPolicy(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", shared.NewDomainError("selection", "ParseDocumentPolicy", shared.ErrInvalidInput,
			"unknown document policy "+s)
	}
	return p, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENT RECORDS
// ══════════════════════════════════════════════════════════════════════════════

// TaskStatus tracks application task progress.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// Task is one step of the application checklist for the locked university.
type Task struct {
	ID           string
	UserID       shared.UserID
	UniversityID shared.UniversityID
	Position     int
	Title        string
	Description  string
	Status       TaskStatus
	CreatedAt    time.Time
}

// DocumentStatus tracks checklist document collection.
type DocumentStatus string

const (
	DocumentMissing  DocumentStatus = "missing"
	DocumentUploaded DocumentStatus = "uploaded"
	DocumentVerified DocumentStatus = "verified"
)

// Document is one item of the document checklist for a university.
type Document struct {
	ID           string
	UserID       shared.UserID
	UniversityID shared.UniversityID
	Position     int
	Name         string
	Required     bool
	Status       DocumentStatus
	CreatedAt    time.Time
}
