// Package intent classifies free-text messages and gates them by stage.
//
// Classification is keyword based: an ordered list of (pattern, Intent) rules
// is evaluated against the lower-cased message and the first match wins.
package intent

import (
	"regexp"
	"strings"
)

// Intent is the classified purpose of a message.
type Intent string

const (
	UniversityRecommendations Intent = "UNIVERSITY_RECOMMENDATIONS"
	ApplicationGuidance       Intent = "APPLICATION_GUIDANCE"
	SOPWriting                Intent = "SOP_WRITING"
	DocumentPrep              Intent = "DOCUMENT_PREP"
	TimelineTasks             Intent = "TIMELINE_TASKS"
	UniversityLocking         Intent = "UNIVERSITY_LOCKING"
	UniversityUnlocking       Intent = "UNIVERSITY_UNLOCKING"
	Comparison                Intent = "COMPARISON"
	Casual                    Intent = "CASUAL"
)

// TaskIntents are the six intents governed by the stage restriction table.
var TaskIntents = []Intent{
	UniversityRecommendations,
	ApplicationGuidance,
	SOPWriting,
	DocumentPrep,
	TimelineTasks,
	UniversityLocking,
}

// IsTask reports whether the intent is one of TaskIntents.
func (i Intent) IsTask() bool {
	for _, t := range TaskIntents {
		if t == i {
			return true
		}
	}
	return false
}

// IsApplicationFamily reports whether the intent needs a locked university
// to be useful.
func (i Intent) IsApplicationFamily() bool {
	switch i {
	case ApplicationGuidance, SOPWriting, DocumentPrep, TimelineTasks:
		return true
	default:
		return false
	}
}

// Label is a short human-readable name used in explanations.
func (i Intent) Label() string {
	switch i {
	case UniversityRecommendations:
		return "University recommendations"
	case ApplicationGuidance:
		return "Application guidance"
	case SOPWriting:
		return "Statement of purpose help"
	case DocumentPrep:
		return "Document preparation"
	case TimelineTasks:
		return "Timeline and tasks"
	case UniversityLocking:
		return "Locking a university"
	case UniversityUnlocking:
		return "Unlocking a university"
	case Comparison:
		return "University comparison"
	case Casual:
		return "Small talk"
	default:
		return string(i)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RULES
// ══════════════════════════════════════════════════════════════════════════════

type rule struct {
	intent  Intent
	pattern *regexp.Regexp
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{UniversityRecommendations, regexp.MustCompile(
		`\b(recommend|suggest)\b` +
			`|\b(recommendations?|suggestions?)\b.*\buniversit(y|ies)\b` +
			`|\buniversit(y|ies)\b.*\b(recommendations?|suggestions?)\b` +
			`|\b(which|best|top|good)\s+(universit(y|ies)|schools?|colleges?)\b` +
			`|\bwhere\s+(should|can|could)\s+i\s+(study|apply)\b`)},
	{ApplicationGuidance, regexp.MustCompile(
		`\b(application|applications|apply|applying|admission process)\b`)},
	{SOPWriting, regexp.MustCompile(
		`\bsop\b|statement of purpose|personal statement|\bessays?\b|motivation letter`)},
	{DocumentPrep, regexp.MustCompile(
		`\b(documents?|transcripts?|lors?|resume|cv|passport)\b|letters? of recommendation`)},
	{TimelineTasks, regexp.MustCompile(
		`\b(timeline|deadlines?|tasks?|to-?do|schedule|next steps?)\b|\bwhat('s| is) next\b`)},
	{UniversityLocking, regexp.MustCompile(
		`\b(lock|locking|finali[sz]e)\b|\bcommit to\b`)},
	{UniversityUnlocking, regexp.MustCompile(
		`\b(unlock|unlocking)\b|\b(switch|change)\s+(my\s+)?universit(y|ies)\b|\bundo\s+(my\s+)?lock\b`)},
	{Comparison, regexp.MustCompile(
		`\b(compare|comparison|versus|vs)\b|\bdifference between\b`)},
}

var greeting = regexp.MustCompile(
	`^\s*(hi|hello|hey|hiya|yo|greetings|good (morning|afternoon|evening)|thanks|thank you)\b|\bhow are you\b|\bwho are you\b`)

// Classify returns the intent of a message. The boolean is false when the
// message matches no rule at all.
func Classify(text string) (Intent, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return "", false
	}
	for _, r := range rules {
		if r.pattern.MatchString(t) {
			return r.intent, true
		}
	}
	// Only reached when no task keyword matched.
	if greeting.MatchString(t) || strings.Contains(t, "?") {
		return Casual, true
	}
	return "", false
}
