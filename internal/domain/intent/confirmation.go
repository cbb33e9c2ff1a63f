package intent

import (
	"strings"
	"unicode"

	"github.com/abroad-hub/counsellor/internal/domain/shared"
)

// Confirmation is an explicit yes or no.
type Confirmation bool

const (
	Confirmed Confirmation = true
	Declined  Confirmation = false
)

var affirmative = map[string]struct{}{
	"yes": {}, "y": {}, "yeah": {}, "yep": {}, "yup": {}, "sure": {}, "ok": {}, "okay": {},
	"confirm": {}, "confirmed": {}, "proceed": {}, "absolutely": {}, "definitely": {},
	"certainly": {}, "of course": {},
	"do it": {}, "go ahead": {}, "lets do it": {}, "yes please": {},
}

var negative = map[string]struct{}{
	"no": {}, "n": {}, "nope": {}, "nah": {}, "cancel": {}, "stop": {}, "abort": {},
	"dont": {}, "never mind": {}, "nevermind": {}, "not now": {}, "no thanks": {},
	"dont do it": {}, "do not": {}, "no way": {},
}

// negators flip or cancel an affirmative anywhere in the reply.
var negators = map[string]struct{}{
	"no": {}, "not": {}, "never": {}, "dont": {}, "nope": {}, "nah": {},
	"cant": {}, "wont": {}, "shouldnt": {},
}

// hedges may precede a trailing negator: "definitely not", "of course not".
var hedges = map[string]struct{}{
	"absolutely": {}, "definitely": {}, "certainly": {}, "sure": {}, "surely": {},
	"of": {}, "course": {}, "hell": {},
}

// ParseConfirmation turns free text into an explicit yes/no. Anything that is
// not clearly one or the other returns shared.ErrAmbiguousConfirmation; it is
// never assumed.
//
// A reply containing any negation is never a yes. "definitely not" is a no;
// "yes not really" is ambiguous.
func ParseConfirmation(text string) (Confirmation, error) {
	norm := normalizeConfirmation(text)
	if _, ok := affirmative[norm]; ok {
		return Confirmed, nil
	}
	if _, ok := negative[norm]; ok {
		return Declined, nil
	}

	words := strings.Fields(norm)
	if len(words) == 0 {
		return Declined, ambiguousConfirmation()
	}

	yes, negated := 0, false
	for n := 1; n <= 2; n++ {
		for i := 0; i+n <= len(words); i++ {
			phrase := strings.Join(words[i:i+n], " ")
			if _, ok := affirmative[phrase]; ok {
				yes++
			}
			if _, ok := negative[phrase]; ok {
				negated = true
			}
		}
	}
	for _, w := range words {
		if _, ok := negators[w]; ok {
			negated = true
		}
	}

	_, firstYes := affirmative[words[0]]
	_, firstNo := negators[words[0]]
	switch {
	case !negated && firstYes:
		// "yes, lock it"
		return Confirmed, nil
	case negated && firstNo && yes == 0:
		// "nope, not now"
		return Declined, nil
	case isNegatedHedge(words):
		return Declined, nil
	}
	return Declined, ambiguousConfirmation()
}

// isNegatedHedge matches hedges followed only by negators.
func isNegatedHedge(words []string) bool {
	i := 0
	for i < len(words) {
		if _, ok := hedges[words[i]]; !ok {
			break
		}
		i++
	}
	if i == 0 || i == len(words) {
		return false
	}
	for _, w := range words[i:] {
		if _, ok := negators[w]; !ok {
			return false
		}
	}
	return true
}

func ambiguousConfirmation() error {
	return shared.NewDomainError("intent", "ParseConfirmation", shared.ErrAmbiguousConfirmation,
		"please answer yes or no")
}

func normalizeConfirmation(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsSpace(r):
			b.WriteRune(r)
		case r == '\'' || r == '’':
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
