package response

import (
	"regexp"
	"sort"
)

var linkPattern = regexp.MustCompile(`(\[(?: )?LINK(?: )?\|(?: )?(.+)(?: )?\|(?: )?(.+)(?: )?\])`)

// KnowledgeBase is the immutable per-language response knowledge base:
// the concern→response keypoint mapping and the argument templates of
// each response keypoint. Campaign link substitution happens at read
// time, never at load time.
type KnowledgeBase struct {
	mapping map[string]string
	args    map[string][]Argument
	conKPs  []string
}

// NewKnowledgeBase builds a knowledge base from the authored mapping and
// the per-response-keypoint argument templates.
func NewKnowledgeBase(mapping map[string]string, args map[string][]Argument) *KnowledgeBase {
	conKPs := make([]string, 0, len(mapping))
	for kp := range mapping {
		conKPs = append(conKPs, kp)
	}
	sort.Strings(conKPs)
	return &KnowledgeBase{mapping: mapping, args: args, conKPs: conKPs}
}

// ConcernKeypoints returns the sorted concern keypoints the knowledge
// base can answer.
func (kb *KnowledgeBase) ConcernKeypoints() []string {
	return kb.conKPs
}

// ConcernKeypointSet returns the concern keypoints as a membership set
// for the matcher's allowed-keypoint filter.
func (kb *KnowledgeBase) ConcernKeypointSet() map[string]struct{} {
	set := make(map[string]struct{}, len(kb.conKPs))
	for _, kp := range kb.conKPs {
		set[kp] = struct{}{}
	}
	return set
}

// ResponseKeypoint maps a concern keypoint to its response keypoint.
// Keypoints absent from the mapping yield "".
func (kb *KnowledgeBase) ResponseKeypoint(conKP string) string {
	return kb.mapping[conKP]
}

// Arguments returns copies of the response keypoint's argument templates,
// with the campaign's link substitution applied when one is authored for
// it. An empty response keypoint yields no arguments.
func (kb *KnowledgeBase) Arguments(proKP, campaignID string) []Argument {
	if proKP == "" {
		return nil
	}
	templates := kb.args[proKP]
	out := make([]Argument, len(templates))
	copy(out, templates)
	if campaignID == "" {
		return out
	}
	for i := range out {
		replacement, ok := out[i].LinkReplacement[campaignID]
		if !ok {
			continue
		}
		out[i].Text = substituteLink(out[i].Text, replacement)
		out[i].BaseResponse = substituteLink(out[i].BaseResponse, replacement)
	}
	return out
}

func substituteLink(text, replacement string) string {
	if m := linkPattern.FindString(text); m != "" {
		return linkPattern.ReplaceAllLiteralString(text, replacement)
	}
	return text
}
