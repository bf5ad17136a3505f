package memory

import (
	"strings"
	"unicode"
)

const maxLabels = 10

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"as": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"being": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {},
	"did": {}, "will": {}, "would": {}, "should": {}, "could": {}, "can": {},
	"may": {}, "might": {}, "must": {},
}

// ExtractLabels pulls keyword labels out of free text. Punctuation is
// stripped, stop words and short words are dropped, duplicates removed,
// and the result is capped at maxLabels.
func ExtractLabels(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	seen := make(map[string]struct{})
	labels := make([]string, 0, maxLabels)
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 3 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		labels = append(labels, word)
		if len(labels) == maxLabels {
			break
		}
	}
	return labels
}
