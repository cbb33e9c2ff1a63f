package counsellor

import (
	"fmt"
	"strings"

	"github.com/abroad-hub/counsellor/internal/application/command"
	"github.com/abroad-hub/counsellor/internal/application/query"
	"github.com/abroad-hub/counsellor/internal/domain/intent"
	"github.com/abroad-hub/counsellor/internal/domain/profile"
	"github.com/abroad-hub/counsellor/internal/domain/scoring"
	"github.com/abroad-hub/counsellor/internal/domain/stage"
	"github.com/abroad-hub/counsellor/internal/domain/university"
)

// SystemIdentity is the fixed answer to small talk.
const SystemIdentity = "I'm your study-abroad counsellor. I help you move from onboarding " +
	"to a submitted application: I recommend universities that fit your profile, " +
	"help you shortlist and lock one, and then guide you through tasks and documents " +
	"for that university. Ask me for recommendations, or what to do next."

var stageHints = map[stage.Stage]string{
	stage.Onboarding:  "Let's start by finishing the onboarding questionnaire.",
	stage.Analysis:    "Once your profile is complete I can recommend universities.",
	stage.Discovery:   "Ask me for university recommendations and shortlist the ones you like.",
	stage.Locking:     "When you're ready, lock one university from your shortlist.",
	stage.Application: "Ask me about your tasks, documents or statement of purpose.",
}

func fallbackText(st *query.StageDTO) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I'm not sure what you mean. You're in the %s stage (%d of %d). ",
		st.Stage, st.StageOrdinal, st.TotalStages)
	b.WriteString(stageHints[st.Stage])
	return b.String()
}

func violationText(v *intent.Violation) string {
	var b strings.Builder
	b.WriteString(v.Reason)
	if len(v.RequiredSteps) > 0 {
		b.WriteString("\nTo get there:")
		for i, step := range v.RequiredSteps {
			fmt.Fprintf(&b, "\n%d. %s", i+1, step)
		}
	}
	if v.NextAction != "" {
		fmt.Fprintf(&b, "\nNext: %s.", v.NextAction)
	}
	return b.String()
}

func recommendationsText(recs *query.RecommendationsDTO) string {
	if recs.Scored == 0 {
		return "There are no universities in the catalog yet."
	}
	var b strings.Builder
	if recs.CountryFilterRelaxed {
		b.WriteString("None of your preferred countries are in the catalog, so here is everything.\n")
	}
	if recs.TopPick != nil {
		fmt.Fprintf(&b, "Top pick: %s.\n", recommendationLine(*recs.TopPick))
	}
	writeBucket(&b, "Dream", recs.Dream)
	writeBucket(&b, "Target", recs.Target)
	writeBucket(&b, "Safe", recs.Safe)
	b.WriteString("Shortlist the ones you like, then lock one to start your application.")
	return b.String()
}

func writeBucket(b *strings.Builder, title string, rs []scoring.Recommendation) {
	if len(rs) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, r := range rs {
		fmt.Fprintf(b, "- %s\n", recommendationLine(r))
	}
}

func recommendationLine(r scoring.Recommendation) string {
	return fmt.Sprintf("%s (%s), %.0f%% likelihood, %s at about %d a year: %s",
		r.University.Name, r.University.Country, r.Result.AcceptanceLikelihood,
		r.Result.CostFit, r.Result.EstimatedCost, strings.Join(r.Result.Rationale, "; "))
}

func lockedItem(l *query.LedgerDTO) (query.LedgerItemDTO, bool) {
	for _, item := range l.Items {
		if item.Locked {
			return item, true
		}
	}
	return query.LedgerItemDTO{}, false
}

func shortlistNames(l *query.LedgerDTO) []string {
	out := make([]string, 0, len(l.Items))
	for _, item := range l.Items {
		out = append(out, displayName(item.University))
	}
	return out
}

func displayName(u *university.University) string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID.String()
}

func lockPromptText(l *query.LedgerDTO) string {
	if len(l.Items) == 0 {
		return "Your shortlist is empty. Shortlist a university first, or name one and confirm to lock it directly."
	}
	var b strings.Builder
	if item, ok := lockedItem(l); ok {
		fmt.Fprintf(&b, "You have locked %s. Locking another university releases it.\n", displayName(item.University))
	}
	fmt.Fprintf(&b, "Your shortlist: %s.\n", strings.Join(shortlistNames(l), ", "))
	b.WriteString("Tell me which one to lock and confirm with yes.")
	return b.String()
}

func unlockPromptText(l *query.LedgerDTO) string {
	item, ok := lockedItem(l)
	if !ok {
		return "You have no locked university."
	}
	return fmt.Sprintf("You have locked %s. Confirm with yes to unlock it. "+
		"Your tasks and documents for it are kept.", displayName(item.University))
}

func comparisonText(p *profile.Profile, l *query.LedgerDTO) string {
	if len(l.Items) < 2 {
		return "Shortlist at least two universities and I'll compare them for you."
	}
	var b strings.Builder
	b.WriteString("Here's how your shortlist compares:\n")
	for _, item := range l.Items {
		if item.University.Name == "" {
			continue
		}
		r := scoring.Score(p, item.University)
		fmt.Fprintf(&b, "- %s: %s, %.0f%% likelihood, %s", item.University.Name, r.Category, r.AcceptanceLikelihood, r.CostFit)
		if item.University.Ranking != nil {
			fmt.Fprintf(&b, ", ranked #%d", *item.University.Ranking)
		}
		if item.Locked {
			b.WriteString(" (locked)")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func applicationText(item query.LedgerItemDTO) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your application to %s:\n", displayName(item.University))
	for _, t := range item.Tasks {
		fmt.Fprintf(&b, "%d. %s: %s\n", t.Position, t.Title, t.Description)
	}
	if len(item.Tasks) == 0 {
		b.WriteString("No tasks yet. Ask me to generate your task checklist.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func sopText(item query.LedgerItemDTO) string {
	return fmt.Sprintf("For %s, structure your statement of purpose in four parts: "+
		"your motivation for the field, your academic and project background, "+
		"why this programme at %s, and your goals after graduating. "+
		"Keep it specific and within the word limit on the application portal.",
		displayName(item.University), displayName(item.University))
}

func documentsText(item query.LedgerItemDTO) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Documents for %s:\n", displayName(item.University))
	for _, d := range item.Documents {
		req := "required"
		if !d.Required {
			req = "optional"
		}
		fmt.Fprintf(&b, "- %s (%s, %s)\n", d.Name, req, d.Status)
	}
	if len(item.Documents) == 0 {
		b.WriteString("No document checklist yet.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func timelineText(item query.LedgerItemDTO) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your next steps for %s:\n", displayName(item.University))
	for _, t := range item.Tasks {
		fmt.Fprintf(&b, "%d. %s [%s]\n", t.Position, t.Title, t.Status)
	}
	if len(item.Tasks) == 0 {
		b.WriteString("No tasks yet.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func notFoundText(name string, suggestions []string) string {
	msg := fmt.Sprintf("I couldn't find a university called %q, please check the spelling.", name)
	if len(suggestions) > 0 {
		msg += " Did you mean: " + strings.Join(suggestions, ", ") + "?"
	}
	return msg
}

func lockedText(r *command.LockResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Locked %s.", r.University.Name)
	if r.Switched() {
		b.WriteString(" Your previous lock was released.")
	}
	if r.TasksAlreadyExisted {
		b.WriteString(" Your existing task checklist is still there.")
	} else {
		fmt.Fprintf(&b, " I created %d application tasks.", r.TasksCreated)
	}
	if r.DocumentsCreated > 0 {
		fmt.Fprintf(&b, " Your document checklist has %d items.", r.DocumentsCreated)
	}
	return b.String()
}

func unlockedText(u *university.University, r *command.UnlockResult) string {
	msg := fmt.Sprintf("Unlocked %s. It stays on your shortlist.", u.Name)
	if r.TasksKept > 0 {
		msg += fmt.Sprintf(" Its %d tasks are kept in case you lock it again.", r.TasksKept)
	}
	return msg
}
