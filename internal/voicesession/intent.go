package voicesession

import "strings"

type Intent int

const (
	IntentQuestion Intent = iota
	IntentTag
)

func (i Intent) String() string {
	if i == IntentTag {
		return "tag"
	}
	return "question"
}

// Classify routes a transcript to the tagging path when it reads like a
// "remember this" or "mark this as" command, and to question answering
// otherwise.
func Classify(transcript string) Intent {
	lower := strings.ToLower(strings.TrimSpace(transcript))
	if strings.HasPrefix(lower, "remember") ||
		strings.HasPrefix(lower, "mark this") ||
		strings.Contains(lower, "mark as") {
		return IntentTag
	}
	return IntentQuestion
}
