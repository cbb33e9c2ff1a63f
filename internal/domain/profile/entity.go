// Package profile contains the user and profile model read by the decision engine.
// Profiles are authored by the intake flow; the engine only reads them.
package profile

import (
	"github.com/abroad-hub/counsellor/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// BudgetBand is the declared yearly budget range of the student.
type BudgetBand string

const (
	BudgetUnder20K BudgetBand = "under_20k"
	Budget20KTo40K BudgetBand = "20k_40k"
	Budget40KTo60K BudgetBand = "40k_60k"
	BudgetAbove60K BudgetBand = "above_60k"
)

// IsValid checks that the band is one of the known values.
func (b BudgetBand) IsValid() bool {
	switch b {
	case BudgetUnder20K, Budget20KTo40K, Budget40KTo60K, BudgetAbove60K:
		return true
	default:
		return false
	}
}

// TestStatus tracks the progress of a standardized test.
type TestStatus string

const (
	TestNotStarted TestStatus = "not_started"
	TestScheduled  TestStatus = "scheduled"
	TestCompleted  TestStatus = "completed"
)

// IsValid checks that the status is one of the known values.
func (s TestStatus) IsValid() bool {
	switch s {
	case TestNotStarted, TestScheduled, TestCompleted:
		return true
	default:
		return false
	}
}

// Attempted reports whether the student has at least booked the test.
func (s TestStatus) Attempted() bool {
	return s == TestScheduled || s == TestCompleted
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// User holds identity and the onboarding flag.
// OnboardingCompleted is flipped exactly once by the intake flow.
type User struct {
	ID                  shared.UserID
	Email               string
	FullName            string
	OnboardingCompleted bool
}

// AcademicBackground describes prior education.
type AcademicBackground struct {
	EducationLevel string `json:"education_level"`
	Degree         string `json:"degree"`
	Major          string `json:"major"`
	GraduationYear int    `json:"graduation_year,omitempty"`

	// GPA is a 4.0-scale proxy supplied by the intake flow. The engine never
	// derives one from free-text grades.
	GPA *float64 `json:"gpa,omitempty"`
}

// StudyGoals describes what and when the student wants to study.
type StudyGoals struct {
	IntendedDegree string `json:"intended_degree"`
	FieldOfStudy   string `json:"field_of_study"`
	TargetIntake   string `json:"target_intake,omitempty"`
}

// ExamReadiness holds language and secondary (GRE/GMAT) test progress.
type ExamReadiness struct {
	LanguageTestStatus TestStatus
	LanguageTestScore  *float64

	SecondaryTestStatus TestStatus
}

// Profile is one-to-one with User.
type Profile struct {
	UserID             shared.UserID
	AcademicBackground *AcademicBackground
	StudyGoals         *StudyGoals
	Budget             *BudgetBand
	ExamReadiness      ExamReadiness
	PreferredCountries []shared.CountryCode
}

// IsComplete reports whether academic background, study goals and budget are
// all present. This is the ANALYSIS → DISCOVERY gate condition.
func (p *Profile) IsComplete() bool {
	if p == nil {
		return false
	}
	return p.AcademicBackground != nil && p.StudyGoals != nil && p.Budget != nil
}

// MissingSections lists the sections that keep the profile incomplete, in a
// fixed order.
func (p *Profile) MissingSections() []string {
	if p == nil {
		return []string{"academic background", "study goals", "budget"}
	}
	var missing []string
	if p.AcademicBackground == nil {
		missing = append(missing, "academic background")
	}
	if p.StudyGoals == nil {
		missing = append(missing, "study goals")
	}
	if p.Budget == nil {
		missing = append(missing, "budget")
	}
	return missing
}

// GPA returns the academic GPA proxy, if any.
func (p *Profile) GPA() (float64, bool) {
	if p == nil || p.AcademicBackground == nil || p.AcademicBackground.GPA == nil {
		return 0, false
	}
	return *p.AcademicBackground.GPA, true
}

// BudgetBand returns the declared budget band, if any.
func (p *Profile) BudgetBand() (BudgetBand, bool) {
	if p == nil || p.Budget == nil {
		return "", false
	}
	return *p.Budget, true
}

// PrefersCountry reports whether the country is one of the preferred ones.
// An empty preference list prefers nothing.
func (p *Profile) PrefersCountry(c shared.CountryCode) bool {
	if p == nil {
		return false
	}
	for _, pc := range p.PreferredCountries {
		if pc == c {
			return true
		}
	}
	return false
}

// NormalizeCountries deduplicates preferred countries, keeping first-seen order
// and dropping invalid codes.
func NormalizeCountries(codes []string) []shared.CountryCode {
	seen := make(map[shared.CountryCode]struct{}, len(codes))
	out := make([]shared.CountryCode, 0, len(codes))
	for _, raw := range codes {
		cc, err := shared.NewCountryCode(raw)
		if err != nil {
			continue
		}
		if _, ok := seen[cc]; ok {
			continue
		}
		seen[cc] = struct{}{}
		out = append(out, cc)
	}
	return out
}
