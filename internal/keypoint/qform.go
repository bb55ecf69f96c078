package keypoint

import "fmt"

// QForms maps keypoints to the question-phrased forms offered to the user
// in feedback menus, and back.
type QForms struct {
	toQuestion map[string]string
	toKeypoint map[string]string
}

// NewQForms builds the bidirectional mapping from the authored
// keypoint-to-question table.
func NewQForms(kpToQuestion map[string]string) *QForms {
	inverse := make(map[string]string, len(kpToQuestion))
	for kp, q := range kpToQuestion {
		inverse[q] = kp
	}
	return &QForms{toQuestion: kpToQuestion, toKeypoint: inverse}
}

// Questions returns the question form of each keypoint, in input order.
func (q *QForms) Questions(keypoints []string) ([]string, error) {
	out := make([]string, len(keypoints))
	for i, kp := range keypoints {
		question, ok := q.toQuestion[kp]
		if !ok {
			return nil, fmt.Errorf("keypoint: no question form for keypoint %q", kp)
		}
		out[i] = question
	}
	return out, nil
}

// Keypoint returns the keypoint behind a question form.
func (q *QForms) Keypoint(question string) (string, bool) {
	kp, ok := q.toKeypoint[question]
	return kp, ok
}
