package scoring

import "github.com/abroad-hub/counsellor/internal/domain/profile"

// All heuristic numbers of the scoring model live here.

// Base and bounds.
const (
	DefaultAcceptanceRate = 50.0
	MinLikelihood         = 5.0
	MaxLikelihood         = 95.0
)

// Category thresholds on the final likelihood (inclusive upper bounds).
const (
	DreamMaxLikelihood  = 30.0
	TargetMaxLikelihood = 70.0
)

// GPATier is one row of the academic adjustment table.
type GPATier struct {
	MinGPA float64
	Delta  float64
}

// GPATiers are checked top-down; the first tier whose MinGPA is met applies.
var GPATiers = []GPATier{
	{MinGPA: 3.8, Delta: 20},
	{MinGPA: 3.5, Delta: 10},
	{MinGPA: 3.2, Delta: 0},
	{MinGPA: 3.0, Delta: -15},
}

// GPABelowTiersDelta applies when the GPA is under every tier.
const GPABelowTiersDelta = -30.0

// Language test adjustment.
const (
	LanguageMargin            = 0.5
	LanguageWellAboveDelta    = 15.0  // score >= requirement + margin
	LanguageMeetsDelta        = 10.0  // score >= requirement
	LanguageSlightlyDelta     = -10.0 // score >= requirement - margin
	LanguageFarBelowDelta     = -25.0
	LanguageNotAttemptedDelta = -20.0
)

// Secondary (GRE/GMAT) test adjustment.
const (
	SecondaryCompletedDelta  = 5.0
	SecondaryNotStartedDelta = -10.0
)

// Cost model.
const (
	LivingCostPerYear = 20000
	StretchMultiplier = 1.2
)

// BudgetCeilings maps each band to the total yearly cost it covers.
// Bands missing here have a ceiling of zero.
var BudgetCeilings = map[profile.BudgetBand]int{
	profile.BudgetUnder20K: 20000,
	profile.Budget20KTo40K: 40000,
	profile.Budget40KTo60K: 60000,
	profile.BudgetAbove60K: 100000,
}

// Recommendation display defaults.
const (
	DefaultPerBucketLimit = 3
	MaxPerBucketLimit     = 5
	MinPerBucketLimit     = 1
)

// FallbackRationale is used when no adjustment produced a reason.
const FallbackRationale = "meets minimum eligibility"
