// Package scoring rates universities against a student profile with a fixed
// weighted heuristic. Scoring is pure: the same inputs always give the same
// result, with no randomness and no clock.
package scoring

import (
	"fmt"
	"strconv"

	"github.com/abroad-hub/counsellor/internal/domain/profile"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/university"
)

// Category buckets admission difficulty. Dream is the hardest.
type Category string

const (
	Dream  Category = "dream"
	Target Category = "target"
	Safe   Category = "safe"
)

// CostFit compares estimated yearly cost with the declared budget.
type CostFit string

const (
	Affordable CostFit = "affordable"
	Stretch    CostFit = "stretch"
	Expensive  CostFit = "expensive"
)

// Result is the score of one university for one profile.
type Result struct {
	UniversityID         shared.UniversityID
	Category             Category
	AcceptanceLikelihood float64
	CostFit              CostFit
	EstimatedCost        int
	Rationale            []string
}

// Score rates u for p.
func Score(p *profile.Profile, u *university.University) Result {
	likelihood := DefaultAcceptanceRate
	if u.AcceptanceRate != nil {
		likelihood = *u.AcceptanceRate
	}

	var rationale []string
	add := func(delta float64, reason string) {
		likelihood += delta
		rationale = append(rationale, reason)
	}

	if gpa, ok := p.GPA(); ok {
		add(academicAdjustment(gpa))
	}
	if delta, reason, ok := languageAdjustment(p, u); ok {
		add(delta, reason)
	}
	if delta, reason, ok := secondaryAdjustment(p); ok {
		add(delta, reason)
	}
	if len(rationale) == 0 {
		rationale = []string{FallbackRationale}
	}

	likelihood = clamp(likelihood, MinLikelihood, MaxLikelihood)
	cost := u.Tuition + LivingCostPerYear

	return Result{
		UniversityID:         u.ID,
		Category:             categorize(likelihood),
		AcceptanceLikelihood: likelihood,
		CostFit:              costFit(p, cost),
		EstimatedCost:        cost,
		Rationale:            rationale,
	}
}

func academicAdjustment(gpa float64) (float64, string) {
	g := formatNumber(gpa)
	for i, tier := range GPATiers {
		if gpa < tier.MinGPA {
			continue
		}
		switch {
		case tier.Delta > 0 && i == 0:
			return tier.Delta, fmt.Sprintf("Excellent GPA (%s) strengthens your application", g)
		case tier.Delta > 0:
			return tier.Delta, fmt.Sprintf("Strong GPA (%s) is above typical admits", g)
		case tier.Delta == 0:
			return tier.Delta, fmt.Sprintf("GPA (%s) is in line with typical admits", g)
		default:
			return tier.Delta, fmt.Sprintf("GPA (%s) is slightly below typical admits", g)
		}
	}
	return GPABelowTiersDelta, fmt.Sprintf("GPA (%s) is well below typical admits", g)
}

// languageAdjustment returns ok=false when neither a comparison nor the
// not-attempted penalty applies.
func languageAdjustment(p *profile.Profile, u *university.University) (float64, string, bool) {
	exam := examReadiness(p)
	score := exam.LanguageTestScore
	if score == nil && !exam.LanguageTestStatus.Attempted() {
		return LanguageNotAttemptedDelta, "Language test not attempted yet", true
	}
	if score == nil || u.LanguageRequirement == nil {
		return 0, "", false
	}

	req := *u.LanguageRequirement
	s, r := formatNumber(*score), formatNumber(req)
	switch {
	case *score >= req+LanguageMargin:
		return LanguageWellAboveDelta, fmt.Sprintf("Language score %s is well above the %s requirement", s, r), true
	case *score >= req:
		return LanguageMeetsDelta, fmt.Sprintf("Language score %s meets the %s requirement", s, r), true
	case *score >= req-LanguageMargin:
		return LanguageSlightlyDelta, fmt.Sprintf("Language score %s is just below the %s requirement", s, r), true
	default:
		return LanguageFarBelowDelta, fmt.Sprintf("Language score %s is well below the %s requirement", s, r), true
	}
}

func secondaryAdjustment(p *profile.Profile) (float64, string, bool) {
	switch examReadiness(p).SecondaryTestStatus {
	case profile.TestCompleted:
		return SecondaryCompletedDelta, "GRE/GMAT completed", true
	case profile.TestNotStarted:
		return SecondaryNotStartedDelta, "GRE/GMAT not started", true
	case profile.TestScheduled:
		return 0, "GRE/GMAT scheduled", true
	default:
		return 0, "", false
	}
}

func examReadiness(p *profile.Profile) profile.ExamReadiness {
	if p == nil {
		return profile.ExamReadiness{}
	}
	return p.ExamReadiness
}

func categorize(likelihood float64) Category {
	switch {
	case likelihood <= DreamMaxLikelihood:
		return Dream
	case likelihood <= TargetMaxLikelihood:
		return Target
	default:
		return Safe
	}
}

func costFit(p *profile.Profile, cost int) CostFit {
	ceiling := 0
	if band, ok := p.BudgetBand(); ok {
		ceiling = BudgetCeilings[band]
	}
	switch {
	case cost <= ceiling:
		return Affordable
	case float64(cost) <= float64(ceiling)*StretchMultiplier:
		return Stretch
	default:
		return Expensive
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
