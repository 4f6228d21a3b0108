package ingest

import "strings"

type Class int

const (
	ClassInvalid Class = iota
	ClassEmpty
	ClassControl
	ClassPrompt
	ClassEmptyPrompt
)

const promptPrefix = "/prompt"

// Classify implements step 3 of the ingest algorithm: events with no text
// are Empty; "/start" and "/help" are Control; "/prompt <text>" with a
// non-blank payload is Prompt; "/prompt" with nothing after it is
// EmptyPrompt; anything else is Invalid.
func Classify(text string) (class Class, prompt string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ClassEmpty, ""
	}

	switch {
	case strings.HasPrefix(trimmed, "/start"), strings.HasPrefix(trimmed, "/help"):
		return ClassControl, ""
	case strings.HasPrefix(trimmed, promptPrefix):
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, promptPrefix))
		if rest == "" {
			return ClassEmptyPrompt, ""
		}
		return ClassPrompt, rest
	default:
		return ClassInvalid, ""
	}
}
