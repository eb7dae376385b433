package roomsync

import (
	"strings"
	"unicode"
)

// MentionToken is the prefix that routes a message to the AI responder.
const MentionToken = "@ai"

// ExtractPrompt reports whether content is an AI mention and returns the
// usable prompt. The token must open the message (case-insensitive) and
// be followed by whitespace, a colon, or nothing at all. A mention with
// no remaining text carries no usable prompt and yields ok == false.
func ExtractPrompt(content string) (string, bool) {
	if len(content) < len(MentionToken) {
		return "", false
	}
	if !strings.EqualFold(content[:len(MentionToken)], MentionToken) {
		return "", false
	}

	rest := content[len(MentionToken):]
	if rest == "" {
		return "", false
	}

	first := []rune(rest)[0]
	if first != ':' && !unicode.IsSpace(first) {
		// Something like "@aid" is a different word, not a mention.
		return "", false
	}

	prompt := strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	if prompt == "" {
		return "", false
	}
	return prompt, true
}
