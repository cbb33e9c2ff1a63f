package intent

import (
	"fmt"

	"github.com/abroad-hub/counsellor/internal/domain/selection"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/stage"
)

// ══════════════════════════════════════════════════════════════════════════════
// STAGE RESTRICTIONS
// ══════════════════════════════════════════════════════════════════════════════

type intentSet map[Intent]struct{}

func setOf(intents ...Intent) intentSet {
	s := make(intentSet, len(intents))
	for _, i := range intents {
		s[i] = struct{}{}
	}
	return s
}

// StageRestrictions lists the intents blocked at each stage.
var StageRestrictions = map[stage.Stage]intentSet{
	stage.Onboarding:  setOf(TaskIntents...),
	stage.Analysis:    setOf(TaskIntents...),
	stage.Discovery:   setOf(ApplicationGuidance, SOPWriting, DocumentPrep, TimelineTasks),
	stage.Locking:     setOf(ApplicationGuidance, SOPWriting, DocumentPrep, TimelineTasks),
	stage.Application: setOf(),
}

// IsBlocked reports whether the table blocks the intent at the stage.
// Every task intent is blocked at a stage missing from the table.
func IsBlocked(s stage.Stage, i Intent) bool {
	blocked, ok := StageRestrictions[s]
	if !ok {
		return i.IsTask()
	}
	_, hit := blocked[i]
	return hit
}

// remediation is the step that moves a user out of each stage.
var remediation = map[stage.Stage]string{
	stage.Onboarding: "Complete the onboarding questionnaire",
	stage.Analysis:   "Complete your profile: academic background, study goals and budget",
	stage.Discovery:  "Shortlist at least one university",
	stage.Locking:    "Lock one university from your shortlist",
}

// RemediationFor returns the step that leaves the given stage.
func RemediationFor(s stage.Stage) string {
	return remediation[s]
}

// ══════════════════════════════════════════════════════════════════════════════
// DECISIONS
// ══════════════════════════════════════════════════════════════════════════════

// Violation explains a blocked action. It unwraps to shared.ErrPreconditionFailed.
type Violation struct {
	Stage         stage.Stage
	Intent        Intent
	Reason        string
	RequiredSteps []string
	NextAction    string
}

// Error implements error.
func (v *Violation) Error() string {
	return fmt.Sprintf("gate.%s: %s", v.Stage, v.Reason)
}

// Unwrap lets errors.Is match shared.ErrPreconditionFailed.
func (v *Violation) Unwrap() error {
	return shared.ErrPreconditionFailed
}

// Decision is the gate outcome. Violation is set iff Allowed is false.
type Decision struct {
	Allowed   bool
	Violation *Violation
}

func allow() Decision { return Decision{Allowed: true} }

func block(v *Violation) Decision { return Decision{Violation: v} }

// CheckRestriction evaluates the static table only.
func CheckRestriction(s stage.Stage, i Intent) Decision {
	if !IsBlocked(s, i) {
		return allow()
	}

	var steps []string
	for cur := s; cur.IsValid() && IsBlocked(cur, i); cur = cur.Next() {
		steps = append(steps, remediation[cur])
		if cur == stage.Application {
			break
		}
	}

	v := &Violation{
		Stage:         s,
		Intent:        i,
		Reason:        fmt.Sprintf("%s is not available in the %s stage.", i.Label(), s),
		RequiredSteps: steps,
	}
	if len(steps) > 0 {
		v.NextAction = steps[0]
	}
	return block(v)
}

// Evaluate runs the table check and then requires a locked university for
// application-family intents.
func Evaluate(s stage.Stage, i Intent, ledger selection.Ledger) Decision {
	if d := CheckRestriction(s, i); !d.Allowed {
		return d
	}
	if !i.IsApplicationFamily() || ledger.HasLocked() {
		return allow()
	}

	var steps []string
	if len(ledger) == 0 {
		steps = append(steps, remediation[stage.Discovery])
	}
	steps = append(steps, remediation[stage.Locking])
	return block(&Violation{
		Stage:         s,
		Intent:        i,
		Reason:        fmt.Sprintf("%s needs a locked university.", i.Label()),
		RequiredSteps: steps,
		NextAction:    steps[0],
	})
}

// RequireStage blocks an action until the user reaches the minimum stage.
// Used for ledger actions that are not free-text intents, like shortlisting.
func RequireStage(current, minimum stage.Stage, action string) Decision {
	if current >= minimum {
		return allow()
	}
	var steps []string
	for cur := current; cur < minimum; cur = cur.Next() {
		steps = append(steps, remediation[cur])
	}
	v := &Violation{
		Stage:         current,
		Reason:        fmt.Sprintf("%s is available from the %s stage.", action, minimum),
		RequiredSteps: steps,
	}
	if len(steps) > 0 {
		v.NextAction = steps[0]
	}
	return block(v)
}
