// Package names generates lowercase search variants for a person's name and
// aliases and matches them against participant lists and transcript text.
// Matching is a plain case-insensitive substring test.
package names

import "strings"

// Variants returns the match variants for one name: the full name, the first
// token, the last token and two initial-plus-surname forms.
func Variants(name string) []string {
	full := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if full == "" {
		return nil
	}
	tokens := strings.Fields(full)
	out := []string{full, tokens[0]}
	if len(tokens) >= 2 {
		first, last := tokens[0], tokens[len(tokens)-1]
		initial := string([]rune(first)[0])
		out = append(out, last, initial+". "+last, initial+" "+last)
	}
	return dedupe(out)
}

// VariantsWithAliases unions the variants of name and every alias.
func VariantsWithAliases(name string, aliases []string) []string {
	out := Variants(name)
	for _, a := range aliases {
		out = append(out, Variants(a)...)
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Matcher holds the precomputed variants for one person.
type Matcher struct {
	variants []string
}

func NewMatcher(name string, aliases []string) *Matcher {
	return &Matcher{variants: VariantsWithAliases(name, aliases)}
}

func (m *Matcher) Variants() []string {
	return append([]string(nil), m.variants...)
}

// InParticipants reports whether any variant is a substring of a listed
// participant name.
func (m *Matcher) InParticipants(participants []string) bool {
	for _, p := range participants {
		if m.containedIn(strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// InText reports whether any variant occurs in text.
func (m *Matcher) InText(text string) bool {
	if text == "" {
		return false
	}
	return m.containedIn(strings.ToLower(text))
}

// IsSpeaker reports whether a speaker label refers to this person.
func (m *Matcher) IsSpeaker(label string) bool {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return false
	}
	return m.containedIn(label)
}

func (m *Matcher) containedIn(haystack string) bool {
	for _, v := range m.variants {
		if strings.Contains(haystack, v) {
			return true
		}
	}
	return false
}

// MatchesParticipants is the one-shot form of Matcher.InParticipants.
func MatchesParticipants(name string, aliases, participants []string) bool {
	return NewMatcher(name, aliases).InParticipants(participants)
}

// MatchesText is the one-shot form of Matcher.InText.
func MatchesText(name string, aliases []string, text string) bool {
	return NewMatcher(name, aliases).InText(text)
}
