package response

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/concernlab/dialog-platform/internal/intent"
)

// Snippet is one authored prefix, suffix, or full response text with its
// expression tag.
type Snippet struct {
	Text       string
	Expression string
}

// TemplateSet holds the authored snippets of one argument-type bucket.
type TemplateSet struct {
	Prefix []Snippet
	Suffix []Snippet
	Full   []Snippet
}

// Library is the immutable per-language connecting-text library:
// intent label → persona → argument type → templates.
type Library struct {
	byIntent map[intent.Label]map[string]map[string]TemplateSet
}

// NewLibrary validates the raw authored library against the closed intent
// vocabulary and returns the typed library. Unknown intent keys fail
// fast.
func NewLibrary(raw map[string]map[string]map[string]TemplateSet) (*Library, error) {
	byIntent := make(map[intent.Label]map[string]map[string]TemplateSet, len(raw))
	for key, personas := range raw {
		label, err := intent.ParseLabel(key)
		if err != nil {
			return nil, fmt.Errorf("response: connecting-text library: %w", err)
		}
		byIntent[label] = personas
	}
	return &Library{byIntent: byIntent}, nil
}

// Covers reports whether the library has connecting text for the label.
func (l *Library) Covers(label intent.Label) bool {
	_, ok := l.byIntent[label]
	return ok
}

// RephraseOptions tune candidate generation.
type RephraseOptions struct {
	// Initial forces emission of the generic full-response texts in
	// addition to the templated combinations, used to precompute the
	// complete per-intent/persona catalogue.
	Initial bool
	// BothSides additionally emits prefix+argument+suffix combinations.
	BothSides bool
}

// Rephrase produces the combinatorial candidate set for the given base
// arguments under the intent and persona. Deterministic: bucket order is
// the sorted argument-type key order, snippet order is authored order.
func (l *Library) Rephrase(args []Argument, label intent.Label, persona string, opts RephraseOptions) ([]Argument, error) {
	personas, ok := l.byIntent[label]
	if !ok {
		return nil, fmt.Errorf("response: no connecting text for intent %q", label)
	}
	buckets, ok := personas[persona]
	if !ok {
		return nil, fmt.Errorf("response: no connecting text for persona %q under intent %q", persona, label)
	}

	var needCanned, preFinalized []Argument
	for _, arg := range args {
		if arg.Type == NoCannedTextType {
			preFinalized = append(preFinalized, arg)
		} else {
			needCanned = append(needCanned, arg)
		}
	}

	argTypes := make([]string, 0, len(buckets))
	for argType := range buckets {
		argTypes = append(argTypes, argType)
	}
	sort.Strings(argTypes)

	var out []Argument
	for _, argType := range argTypes {
		bucketArgs := needCanned
		if argType != GeneralType {
			bucketArgs = nil
			for _, arg := range needCanned {
				if arg.Type == argType {
					bucketArgs = append(bucketArgs, arg)
				}
			}
		}
		if len(bucketArgs) == 0 {
			continue
		}

		set := buckets[argType]
		for _, prefix := range set.Prefix {
			for _, arg := range bucketArgs {
				out = append(out, wrap(arg, Snippet{Text: prefix.Text + " ", Expression: prefix.Expression}, Snippet{}))
			}
		}
		for _, suffix := range set.Suffix {
			for _, arg := range bucketArgs {
				out = append(out, wrap(arg, Snippet{}, Snippet{Text: " " + suffix.Text, Expression: suffix.Expression}))
			}
		}
		if opts.BothSides {
			for _, prefix := range set.Prefix {
				for _, arg := range bucketArgs {
					for _, suffix := range set.Suffix {
						out = append(out, wrap(arg,
							Snippet{Text: prefix.Text + " ", Expression: prefix.Expression},
							Snippet{Text: " " + suffix.Text, Expression: suffix.Expression}))
					}
				}
			}
		}
	}

	for _, arg := range preFinalized {
		out = append(out, Argument{
			Text:         arg.Text,
			Type:         arg.Type,
			BaseResponse: arg.Text,
			Expression:   DefaultExpression,
		})
	}

	// No combination produced (or full catalogue requested): fall back
	// to the generic full responses that need no knowledge-base argument.
	if len(out) == 0 || opts.Initial {
		for _, argType := range argTypes {
			for _, full := range buckets[argType].Full {
				out = append(out, Argument{
					Text:         full.Text,
					Type:         argType,
					BaseResponse: full.Text,
					Expression:   full.Expression,
				})
			}
		}
	}
	return out, nil
}

// Single returns the single generic text for an intent, used for survey
// closing comments.
func (l *Library) Single(label intent.Label, persona string) (string, error) {
	args, err := l.Rephrase(nil, label, persona, RephraseOptions{})
	if err != nil {
		return "", err
	}
	if len(args) == 0 {
		return "", fmt.Errorf("response: no full response authored for intent %q", label)
	}
	return args[0].Text, nil
}

// CreateAllCombinations emits the complete catalogue of candidate
// phrasings across every intent and persona, for offline QA of the
// authored content.
func (l *Library) CreateAllCombinations(args []Argument) ([]Argument, error) {
	labels := make([]intent.Label, 0, len(l.byIntent))
	for label := range l.byIntent {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	var out []Argument
	for _, label := range labels {
		personas := make([]string, 0, len(l.byIntent[label]))
		for persona := range l.byIntent[label] {
			personas = append(personas, persona)
		}
		sort.Strings(personas)
		for _, persona := range personas {
			combos, err := l.Rephrase(args, label, persona, RephraseOptions{Initial: true})
			if err != nil {
				return nil, err
			}
			out = append(out, combos...)
		}
	}
	return out, nil
}

// wrap applies a prefix/suffix pair to a base argument. The prefix text
// already carries its trailing space and the suffix its leading space;
// empty snippets stand for "no prefix"/"no suffix".
func wrap(arg Argument, prefix, suffix Snippet) Argument {
	expression := prefix.Expression
	if expression == "" {
		expression = suffix.Expression
	}
	return Argument{
		Text:         strings.TrimSpace(prefix.Text + lowerIfNeeded(arg.Text, prefix.Text) + suffix.Text),
		Type:         arg.Type,
		BaseResponse: arg.Text,
		CannedText:   [2]string{prefix.Text, suffix.Text},
		Expression:   expression,
	}
}

// lowerIfNeeded lowercases the argument's first letter when it continues
// the prefix mid-sentence. A prefix ending in sentence-terminal
// punctuation starts a new sentence; an argument whose second letter is
// uppercase is likely an acronym and is left alone.
func lowerIfNeeded(text, prefix string) string {
	if len(prefix) <= 1 {
		return text
	}
	trimmed := strings.TrimRight(prefix, " \t")
	if strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, "!") {
		return text
	}
	runes := []rune(text)
	if len(runes) < 2 || !unicode.IsLower(runes[1]) {
		return text
	}
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
