// Package textproc contains the lexical text-processing stages of the
// dialog pipeline: cleansing, coreference resolution, and the profanity
// and concern classifiers. Everything here is deterministic and makes no
// network calls.
package textproc

import (
	"regexp"
	"strings"
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(
		"a about all also am an and any are as " +
			"at be being been between both by can could " +
			"did do does doing during each for from few further " +
			"had has have having he he'd he'll he's her hers herself " +
			"him himself his how how's i i'd i'll i'm i've in " +
			"into is it its itself let let's me more most my " +
			"must myself of off on once one only or other ought " +
			"our ours ourselves out over own same she she'd she'll " +
			"she's should so some such than that that's the their " +
			"theirs them themselves then there there's these they they'd " +
			"they'll they're they've this those to too until us very " +
			"was we we'd we'll we're we've were while whom will with " +
			"would you you'd you'll you're you've your yours yourself yourselves " +
			"ll re ve s d t") {
		stopWords[w] = struct{}{}
	}
}

var nonWordPattern = regexp.MustCompile(`[^A-Za-z0-9\-]`)

// CleanWords lowercases the text, strips everything outside letters,
// digits and hyphens, and drops stop words. Word order is preserved.
func CleanWords(text string) []string {
	raw := strings.Fields(strings.ToLower(nonWordPattern.ReplaceAllString(text, " ")))
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		if _, stop := stopWords[w]; !stop {
			words = append(words, w)
		}
	}
	return words
}

// CleanText cleans the text and additionally removes the given ignore
// words, returning the remaining words joined by single spaces. Cleaning
// an already-cleaned text is a no-op.
func CleanText(text string, ignoreWords []string) string {
	ignore := make(map[string]struct{}, len(ignoreWords))
	for _, w := range ignoreWords {
		ignore[w] = struct{}{}
	}
	words := CleanWords(text)
	kept := words[:0]
	for _, w := range words {
		if _, skip := ignore[w]; !skip {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}
