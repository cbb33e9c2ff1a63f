package university

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// MaxSuggestions caps the spelling suggestions returned on a failed lookup.
const MaxSuggestions = 3

// Resolution is the outcome of matching free text against catalog names.
type Resolution struct {
	// University is set when exactly one catalog entry matched.
	University *University

	// Suggestions holds close names when nothing matched unambiguously.
	Suggestions []string
}

// Found reports whether the lookup resolved to a single university.
func (r Resolution) Found() bool {
	return r.University != nil
}

// names adapts a university slice to fuzzy.Source.
type names []*University

func (n names) String(i int) string { return n[i].Name }
func (n names) Len() int            { return len(n) }

// ResolveName finds the university a user means by name.
//
// Matching order: case-insensitive exact name, then the single name whose
// acronym is the query ("MIT", "TUM"), then the single name sharing whole
// words with the query in either direction ("Stanford", "I mean Stanford
// University"). Fragments inside a word ("mit" in "Smith") and ties only
// produce suggestions, never an automatic pick.
func ResolveName(query string, catalog []*University) Resolution {
	q := normalizeName(query)
	if q == "" {
		return Resolution{}
	}

	for _, u := range catalog {
		if normalizeName(u.Name) == q {
			return Resolution{University: u}
		}
	}

	if !strings.Contains(q, " ") && len(q) >= 2 {
		var byAcronym []*University
		for _, u := range catalog {
			if acronym(u.Name) == q {
				byAcronym = append(byAcronym, u)
			}
		}
		switch {
		case len(byAcronym) == 1:
			return Resolution{University: byAcronym[0]}
		case len(byAcronym) > 1:
			return Resolution{Suggestions: topNames(byAcronym)}
		}
	}

	qWords := strings.Fields(q)
	var whole, fragment []*University
	for _, u := range catalog {
		n := normalizeName(u.Name)
		nWords := strings.Fields(n)
		switch {
		case containsWords(nWords, qWords) || containsWords(qWords, nWords):
			whole = append(whole, u)
		case strings.Contains(n, q) || strings.Contains(q, n):
			fragment = append(fragment, u)
		}
	}
	switch {
	case len(whole) == 1:
		return Resolution{University: whole[0]}
	case len(whole) > 1:
		return Resolution{Suggestions: topNames(whole)}
	case len(fragment) > 0:
		return Resolution{Suggestions: topNames(fragment)}
	}

	matches := fuzzy.FindFrom(q, names(catalog))
	suggestions := make([]string, 0, MaxSuggestions)
	for _, m := range matches {
		if len(suggestions) == MaxSuggestions {
			break
		}
		suggestions = append(suggestions, catalog[m.Index].Name)
	}
	return Resolution{Suggestions: suggestions}
}

// containsWords reports whether needle appears in hay as a run of whole words.
func containsWords(hay, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(hay) {
		return false
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		match := true
		for j, w := range needle {
			if hay[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func topNames(us []*University) []string {
	out := make([]string, 0, len(us))
	for _, u := range us {
		out = append(out, u.Name)
	}
	sort.Strings(out)
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

var acronymStopWords = map[string]struct{}{
	"of": {}, "the": {}, "and": {}, "at": {}, "for": {}, "in": {}, "&": {},
}

// acronym returns the lower-case initials of the significant words.
func acronym(name string) string {
	var b strings.Builder
	for _, w := range strings.Fields(normalizeName(name)) {
		if _, stop := acronymStopWords[w]; stop {
			continue
		}
		b.WriteRune([]rune(w)[0])
	}
	return b.String()
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "the ")
	return strings.Join(strings.Fields(s), " ")
}
