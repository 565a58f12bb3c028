package assistant

import "strings"

// Match answers input with the built-in rulebook.
func Match(input string, lang Language) string {
	return Default().Match(input, lang)
}

// Match returns the localized response of the first rule, in declaration
// order, with any keyword contained in the lower-cased input. Containment is
// plain substring search, so "timestamp" matches "time". Input that matches
// nothing gets the fallback for lang.
func (b *Rulebook) Match(input string, lang Language) string {
	index, ok := b.Classify(input)
	if !ok {
		return b.fallback.In(lang)
	}

	return b.rules[index].Response.In(lang)
}

// Classify returns the index of the rule Match would answer with.
func (b *Rulebook) Classify(input string) (int, bool) {
	lowered := strings.ToLower(input)

	for i, rule := range b.rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(lowered, keyword) {
				return i, true
			}
		}
	}

	return -1, false
}
