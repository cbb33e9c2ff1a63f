package university

import (
	"context"

	"github.com/abroad-hub/counsellor/internal/domain/shared"
)

// Filter narrows ListUniversities. Zero value lists the whole catalog.
type Filter struct {
	Countries []shared.CountryCode
}

// Matches reports whether u passes the filter.
func (f Filter) Matches(u *University) bool {
	if len(f.Countries) == 0 {
		return true
	}
	for _, c := range f.Countries {
		if u.Country == c {
			return true
		}
	}
	return false
}

// Repository is the read-only candidate store.
type Repository interface {
	// GetUniversity returns shared.ErrUniversityNotFound for unknown IDs.
	GetUniversity(ctx context.Context, id shared.UniversityID) (*University, error)

	// ListUniversities returns the catalog ordered by name.
	ListUniversities(ctx context.Context, filter Filter) ([]*University, error)
}
