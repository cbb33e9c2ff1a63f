// Package stage derives the user's position in the application journey.
//
// The stage is never stored. It is recomputed from the onboarding flag, the
// profile and the selection ledger on every request, so a ledger mutation is
// reflected by the very next read.
package stage

import (
	"github.com/abroad-hub/counsellor/internal/domain/profile"
	"github.com/abroad-hub/counsellor/internal/domain/selection"
)

// Stage is one of the five ordered journey stages.
type Stage int

const (
	Onboarding Stage = iota + 1
	Analysis
	Discovery
	Locking
	Application
)

// TotalStages is the number of stages.
const TotalStages = 5

var names = map[Stage]string{
	Onboarding:  "ONBOARDING",
	Analysis:    "ANALYSIS",
	Discovery:   "DISCOVERY",
	Locking:     "LOCKING",
	Application: "APPLICATION",
}

// String returns the stage name.
func (s Stage) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// Ordinal returns the 1-based position of the stage.
func (s Stage) Ordinal() int {
	return int(s)
}

// IsValid checks the stage is one of the five.
func (s Stage) IsValid() bool {
	return s >= Onboarding && s <= Application
}

// Next returns the following stage. Application is terminal.
func (s Stage) Next() Stage {
	if s >= Application {
		return Application
	}
	return s + 1
}

// All returns the stages in order.
func All() []Stage {
	return []Stage{Onboarding, Analysis, Discovery, Locking, Application}
}

// Infer maps persisted state to a stage. First matching rule wins:
//  1. onboarding not completed → Onboarding
//  2. profile incomplete (or missing) → Analysis
//  3. any locked ledger entry → Application
//  4. any ledger entry → Locking
//  5. otherwise → Discovery
//
// A nil user is treated as not onboarded.
func Infer(user *profile.User, p *profile.Profile, ledger selection.Ledger) Stage {
	switch {
	case user == nil || !user.OnboardingCompleted:
		return Onboarding
	case !p.IsComplete():
		return Analysis
	case ledger.HasLocked():
		return Application
	case len(ledger) > 0:
		return Locking
	default:
		return Discovery
	}
}
