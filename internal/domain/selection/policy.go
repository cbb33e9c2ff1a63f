package selection

import "github.com/abroad-hub/counsellor/internal/domain/shared"

// TasksAllowed reports whether task rows may exist for the university.
// Tasks always require the lock.
func (l Ledger) TasksAllowed(id shared.UniversityID) bool {
	e, ok := l.Find(id)
	return ok && e.Locked
}

// DocumentsAllowed reports whether document rows may exist for the university
// under the given policy.
func (l Ledger) DocumentsAllowed(id shared.UniversityID, policy DocumentPolicy) bool {
	e, ok := l.Find(id)
	if !ok {
		return false
	}
	if policy == DocumentsOnShortlist {
		return true
	}
	return e.Locked
}

// Orphans splits universities with dependent records into those whose tasks
// and those whose documents no longer have a valid owner.
func (l Ledger) Orphans(withRecords []shared.UniversityID, policy DocumentPolicy) (tasks, docs []shared.UniversityID) {
	for _, id := range withRecords {
		if !l.TasksAllowed(id) {
			tasks = append(tasks, id)
		}
		if !l.DocumentsAllowed(id, policy) {
			docs = append(docs, id)
		}
	}
	return tasks, docs
}
