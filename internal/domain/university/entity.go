// Package university contains the candidate catalog model.
// Universities are sourced externally and are immutable to the engine.
package university

import (
	"github.com/abroad-hub/counsellor/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TUITION BAND
// ══════════════════════════════════════════════════════════════════════════════

// TuitionBand is a coarse label for annual tuition, used for display and filters.
type TuitionBand string

const (
	TuitionLow      TuitionBand = "low"
	TuitionMedium   TuitionBand = "medium"
	TuitionHigh     TuitionBand = "high"
	TuitionVeryHigh TuitionBand = "very_high"
)

// Annual tuition upper bounds for each band (inclusive).
const (
	tuitionLowMax    = 10000
	tuitionMediumMax = 25000
	tuitionHighMax   = 45000
)

// BandFor maps an annual tuition amount to its band.
func BandFor(tuition int) TuitionBand {
	switch {
	case tuition <= tuitionLowMax:
		return TuitionLow
	case tuition <= tuitionMediumMax:
		return TuitionMedium
	case tuition <= tuitionHighMax:
		return TuitionHigh
	default:
		return TuitionVeryHigh
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// UNIVERSITY
// ══════════════════════════════════════════════════════════════════════════════

// University is a scoreable candidate.
type University struct {
	ID      shared.UniversityID
	Name    string
	Country shared.CountryCode

	// AcceptanceRate is on a 0..100 scale. Nil when the source has no figure.
	AcceptanceRate *float64

	// Ranking is the world ranking position; lower is better.
	Ranking *int

	// Tuition is the annual tuition in currency units.
	Tuition int

	// LanguageRequirement is the minimum language test score (IELTS scale).
	LanguageRequirement *float64
}

// TuitionBand returns the band derived from Tuition.
func (u *University) TuitionBand() TuitionBand {
	return BandFor(u.Tuition)
}

// RankingOrMax returns the ranking, or a value past every real ranking when unknown.
// Used to sort unranked universities last.
func (u *University) RankingOrMax() int {
	if u.Ranking == nil {
		return int(^uint(0) >> 1)
	}
	return *u.Ranking
}

// Validate checks catalog invariants before the university is stored.
func (u *University) Validate() error {
	if u.ID.IsEmpty() {
		return shared.NewDomainError("university", "Validate", shared.ErrInvalidID, "university ID cannot be empty")
	}
	if u.Name == "" {
		return shared.NewDomainError("university", "Validate", shared.ErrValidation, "name is required")
	}
	if !u.Country.IsValid() {
		return shared.NewDomainError("university", "Validate", shared.ErrValidation, "invalid country code")
	}
	if u.AcceptanceRate != nil && (*u.AcceptanceRate < 0 || *u.AcceptanceRate > 100) {
		return shared.NewDomainError("university", "Validate", shared.ErrValidation, "acceptance rate must be within 0..100")
	}
	if u.Tuition < 0 {
		return shared.NewDomainError("university", "Validate", shared.ErrValidation, "tuition cannot be negative")
	}
	return nil
}
