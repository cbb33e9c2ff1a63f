package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER STORE
// Units of work serialize per user by locking the user row. Read-committed is
// enough because every ledger read inside the unit happens after that lock.
// ══════════════════════════════════════════════════════════════════════════════

// LedgerStore implements selection.Store.
type LedgerStore struct {
	conn *Connection
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(conn *Connection) *LedgerStore {
	return &LedgerStore{conn: conn}
}

// WithinTx implements selection.UnitOfWork.
func (s *LedgerStore) WithinTx(ctx context.Context, userID shared.UserID, fn func(tx selection.Tx) error) error {
	err := s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID.String()).Scan(&id)
		if IsNoRows(err) {
			return shared.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		return fn(&ledgerTx{tx: tx, userID: userID})
	})
	// Domain errors pass through untouched; raw driver errors get a kind.
	var domainErr *shared.DomainError
	if err == nil || pgCode(err) == "" || errors.As(err, &domainErr) {
		return err
	}
	return classify("WithinTx", err)
}

// ListEntries implements selection.Reader.
func (s *LedgerStore) ListEntries(ctx context.Context, userID shared.UserID) (selection.Ledger, error) {
	ctx, cancel := s.conn.readContext(ctx)
	defer cancel()
	return listEntries(ctx, s.conn.Pool(), userID)
}

// ListTasks implements selection.Reader.
func (s *LedgerStore) ListTasks(ctx context.Context, userID shared.UserID, universityID shared.UniversityID) ([]selection.Task, error) {
	ctx, cancel := s.conn.readContext(ctx)
	defer cancel()

	rows, err := s.conn.Pool().Query(ctx, `
		SELECT id::text, user_id, university_id, position, title, description, status, created_at
		FROM tasks WHERE user_id = $1 AND university_id = $2
		ORDER BY position
	`, userID.String(), universityID.String())
	if err != nil {
		return nil, classify("ListTasks", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (selection.Task, error) {
		var t selection.Task
		err := row.Scan(&t.ID, &t.UserID, &t.UniversityID, &t.Position, &t.Title, &t.Description, &t.Status, &t.CreatedAt)
		return t, err
	})
}

// ListDocuments implements selection.Reader.
func (s *LedgerStore) ListDocuments(ctx context.Context, userID shared.UserID, universityID shared.UniversityID) ([]selection.Document, error) {
	ctx, cancel := s.conn.readContext(ctx)
	defer cancel()

	rows, err := s.conn.Pool().Query(ctx, `
		SELECT id::text, user_id, university_id, position, name, required, status, created_at
		FROM documents WHERE user_id = $1 AND university_id = $2
		ORDER BY position
	`, userID.String(), universityID.String())
	if err != nil {
		return nil, classify("ListDocuments", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (selection.Document, error) {
		var d selection.Document
		err := row.Scan(&d.ID, &d.UserID, &d.UniversityID, &d.Position, &d.Name, &d.Required, &d.Status, &d.CreatedAt)
		return d, err
	})
}

func listEntries(ctx context.Context, q Querier, userID shared.UserID) (selection.Ledger, error) {
	rows, err := q.Query(ctx, `
		SELECT user_id, university_id, locked, created_at, updated_at
		FROM selection_ledger WHERE user_id = $1
		ORDER BY created_at, university_id
	`, userID.String())
	if err != nil {
		return nil, classify("ListEntries", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (selection.LedgerEntry, error) {
		var e selection.LedgerEntry
		err := row.Scan(&e.UserID, &e.UniversityID, &e.Locked, &e.CreatedAt, &e.UpdatedAt)
		return e, err
	})
	if err != nil {
		return nil, classify("ListEntries", err)
	}
	return selection.Ledger(entries), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSACTION
// ══════════════════════════════════════════════════════════════════════════════

type ledgerTx struct {
	tx     pgx.Tx
	userID shared.UserID
}

func (t *ledgerTx) Entries(ctx context.Context) (selection.Ledger, error) {
	return listEntries(ctx, t.tx, t.userID)
}

func (t *ledgerTx) UpsertEntry(ctx context.Context, universityID shared.UniversityID) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO selection_ledger (user_id, university_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, university_id) DO NOTHING
	`, t.userID.String(), universityID.String())
	if err != nil {
		return false, classify("UpsertEntry", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *ledgerTx) DeleteEntry(ctx context.Context, universityID shared.UniversityID) error {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM selection_ledger WHERE user_id = $1 AND university_id = $2`,
		t.userID.String(), universityID.String())
	if err != nil {
		return classify("DeleteEntry", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEntryNotFound
	}
	return nil
}

func (t *ledgerTx) SetLocked(ctx context.Context, universityID shared.UniversityID, locked bool) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE selection_ledger SET locked = $3, updated_at = NOW()
		WHERE user_id = $1 AND university_id = $2
	`, t.userID.String(), universityID.String(), locked)
	if err != nil {
		return classify("SetLocked", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEntryNotFound
	}
	return nil
}

func (t *ledgerTx) UnlockAll(ctx context.Context) ([]shared.UniversityID, error) {
	rows, err := t.tx.Query(ctx, `
		UPDATE selection_ledger SET locked = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND locked
		RETURNING university_id
	`, t.userID.String())
	if err != nil {
		return nil, classify("UnlockAll", err)
	}
	return collectIDs(rows)
}

func (t *ledgerTx) count(ctx context.Context, table string, universityID shared.UniversityID) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1 AND university_id = $2`, table),
		t.userID.String(), universityID.String()).Scan(&n)
	if err != nil {
		return 0, classify("Count", err)
	}
	return n, nil
}

func (t *ledgerTx) remove(ctx context.Context, table string, universityID shared.UniversityID) (int, error) {
	tag, err := t.tx.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND university_id = $2`, table),
		t.userID.String(), universityID.String())
	if err != nil {
		return 0, classify("Delete", err)
	}
	return int(tag.RowsAffected()), nil
}

func (t *ledgerTx) CountTasks(ctx context.Context, universityID shared.UniversityID) (int, error) {
	return t.count(ctx, "tasks", universityID)
}

func (t *ledgerTx) CreateTasks(ctx context.Context, tasks []selection.Task) error {
	rows := make([][]any, 0, len(tasks))
	for _, task := range tasks {
		id, err := uuid.Parse(task.ID)
		if err != nil {
			return fmt.Errorf("%w: task id %q", shared.ErrInvalidID, task.ID)
		}
		rows = append(rows, []any{
			id, t.userID.String(), task.UniversityID.String(), task.Position,
			task.Title, task.Description, string(task.Status), task.CreatedAt,
		})
	}
	_, err := t.tx.CopyFrom(ctx, pgx.Identifier{"tasks"},
		[]string{"id", "user_id", "university_id", "position", "title", "description", "status", "created_at"},
		pgx.CopyFromRows(rows))
	return classify("CreateTasks", err)
}

func (t *ledgerTx) DeleteTasks(ctx context.Context, universityID shared.UniversityID) (int, error) {
	return t.remove(ctx, "tasks", universityID)
}

func (t *ledgerTx) CountDocuments(ctx context.Context, universityID shared.UniversityID) (int, error) {
	return t.count(ctx, "documents", universityID)
}

func (t *ledgerTx) CreateDocuments(ctx context.Context, docs []selection.Document) error {
	rows := make([][]any, 0, len(docs))
	for _, d := range docs {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return fmt.Errorf("%w: document id %q", shared.ErrInvalidID, d.ID)
		}
		rows = append(rows, []any{
			id, t.userID.String(), d.UniversityID.String(), d.Position,
			d.Name, d.Required, string(d.Status), d.CreatedAt,
		})
	}
	_, err := t.tx.CopyFrom(ctx, pgx.Identifier{"documents"},
		[]string{"id", "user_id", "university_id", "position", "name", "required", "status", "created_at"},
		pgx.CopyFromRows(rows))
	return classify("CreateDocuments", err)
}

func (t *ledgerTx) DeleteDocuments(ctx context.Context, universityID shared.UniversityID) (int, error) {
	return t.remove(ctx, "documents", universityID)
}

func (t *ledgerTx) UniversitiesWithRecords(ctx context.Context) ([]shared.UniversityID, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT university_id FROM tasks WHERE user_id = $1
		UNION
		SELECT university_id FROM documents WHERE user_id = $1
		ORDER BY 1
	`, t.userID.String())
	if err != nil {
		return nil, classify("UniversitiesWithRecords", err)
	}
	return collectIDs(rows)
}

func collectIDs(rows pgx.Rows) ([]shared.UniversityID, error) {
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify("CollectIDs", err)
	}
	out := make([]shared.UniversityID, len(ids))
	for i, id := range ids {
		out[i] = shared.UniversityID(id)
	}
	return out, nil
}

var _ selection.Store = (*LedgerStore)(nil)
