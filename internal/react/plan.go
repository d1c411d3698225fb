package react

import (
	"regexp"
	"strings"
)

var (
	trailingFencedBlockPattern = regexp.MustCompile("(?s)```(?:python)?\\s*\\n?.*\"tool\".*```\\s*$")
	trailingToolObjectPattern  = regexp.MustCompile(`(?s)\{[^{}]*"tool"[^{}]*\}\s*$`)
)

// stripTrailingToolCall removes a tool-call fragment a planning response
// sometimes appends to the end of its plan text despite being told this
// pass produces prose only, so the stored plan stays pure commentary.
func stripTrailingToolCall(text string) string {
	if loc := trailingFencedBlockPattern.FindStringIndex(text); loc != nil {
		return strings.TrimRight(text[:loc[0]], " \n\t\r")
	}
	if loc := trailingToolObjectPattern.FindStringIndex(text); loc != nil {
		return strings.TrimRight(text[:loc[0]], " \n\t\r")
	}
	return text
}
