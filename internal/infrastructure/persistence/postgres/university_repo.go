package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/university"
)

// UniversityRepository reads the catalog.
type UniversityRepository struct {
	conn *Connection
}

// NewUniversityRepository creates a new UniversityRepository.
func NewUniversityRepository(conn *Connection) *UniversityRepository {
	return &UniversityRepository{conn: conn}
}

const universityColumns = `id, name, country, acceptance_rate, ranking, tuition, language_requirement`

func scanUniversity(row pgx.Row) (*university.University, error) {
	u := &university.University{}
	err := row.Scan(&u.ID, &u.Name, &u.Country, &u.AcceptanceRate, &u.Ranking, &u.Tuition, &u.LanguageRequirement)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUniversity implements university.Repository.
func (r *UniversityRepository) GetUniversity(ctx context.Context, id shared.UniversityID) (*university.University, error) {
	ctx, cancel := r.conn.readContext(ctx)
	defer cancel()

	u, err := scanUniversity(r.conn.Pool().QueryRow(ctx,
		`SELECT `+universityColumns+` FROM universities WHERE id = $1`, id.String()))
	if IsNoRows(err) {
		return nil, shared.ErrUniversityNotFound
	}
	if err != nil {
		return nil, classify("GetUniversity", err)
	}
	return u, nil
}

// ListUniversities implements university.Repository. Results are ordered by
// name so callers see a stable catalog.
func (r *UniversityRepository) ListUniversities(ctx context.Context, filter university.Filter) ([]*university.University, error) {
	ctx, cancel := r.conn.readContext(ctx)
	defer cancel()

	query := `SELECT ` + universityColumns + ` FROM universities`
	var args []any
	if len(filter.Countries) > 0 {
		codes := make([]string, len(filter.Countries))
		for i, c := range filter.Countries {
			codes[i] = c.String()
		}
		query += ` WHERE country = ANY($1)`
		args = append(args, codes)
	}
	query += ` ORDER BY name, id`

	rows, err := r.conn.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, classify("ListUniversities", err)
	}
	defer rows.Close()

	var out []*university.University
	for rows.Next() {
		u, err := scanUniversity(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan university: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpsertUniversity writes a catalog entry. Used by catalog imports.
func (r *UniversityRepository) UpsertUniversity(ctx context.Context, u *university.University) error {
	if err := u.Validate(); err != nil {
		return err
	}
	_, err := r.conn.Pool().Exec(ctx, `
		INSERT INTO universities (`+universityColumns+`, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			country = EXCLUDED.country,
			acceptance_rate = EXCLUDED.acceptance_rate,
			ranking = EXCLUDED.ranking,
			tuition = EXCLUDED.tuition,
			language_requirement = EXCLUDED.language_requirement,
			updated_at = NOW()
	`, u.ID.String(), u.Name, u.Country.String(), u.AcceptanceRate, u.Ranking, u.Tuition, u.LanguageRequirement)
	return classify("UpsertUniversity", err)
}

var _ university.Repository = (*UniversityRepository)(nil)
