package dialog

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// ErrBadInput indicates malformed client input: empty or oversized text,
// disallowed characters, bad session ids, or out-of-range feedback
// values. Surfaced as a client error, never retried.
var ErrBadInput = errors.New("dialog: bad input")

// maxTextLength bounds a single user message.
const maxTextLength = 255

// maxTurnIndex bounds feedback correlation; conversations never grow
// anywhere near this long.
const maxTurnIndex = 100

var allowedInputPattern = regexp.MustCompile("[-–,?'\"`’:;/+.!@#%^&()\\[\\]$* ¡¿a-zA-Z0-9À-ÿ֐-׾]")

// ValidateInputText rejects empty, oversized, or out-of-charset text.
func ValidateInputText(text string, maxLength int) error {
	if len(text) == 0 {
		return fmt.Errorf("%w: input is empty", ErrBadInput)
	}
	if len(text) > maxLength {
		return fmt.Errorf("%w: input is too long", ErrBadInput)
	}
	if remaining := allowedInputPattern.ReplaceAllString(text, ""); len(remaining) > 0 {
		return fmt.Errorf("%w: input contains invalid characters (%s)", ErrBadInput, remaining)
	}
	return nil
}

// ValidateSessionID rejects session ids that cannot have been issued.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: bad session id %q", ErrBadInput, id)
	}
	return nil
}

// ValidateFeedbackValue accepts only thumbs up (+1) or down (-1).
func ValidateFeedbackValue(value int) error {
	if value != 1 && value != -1 {
		return fmt.Errorf("%w: feedback must be +1 or -1", ErrBadInput)
	}
	return nil
}

// ValidateTurnIndex rejects indexes that cannot address a real turn.
func ValidateTurnIndex(index int) error {
	if index < 0 {
		return fmt.Errorf("%w: turn index is negative", ErrBadInput)
	}
	if index > maxTurnIndex {
		return fmt.Errorf("%w: turn index too big", ErrBadInput)
	}
	return nil
}
